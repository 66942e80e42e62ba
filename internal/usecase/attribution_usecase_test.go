package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	attributiondto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/attribution"
	signupdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/signup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordClick_StoresEveryClick(t *testing.T) {
	e := newEnv(t)
	referrer := e.addReferrer("JESSICA-NSZP83")
	id := e.hasher.Hash("Mozilla/5.0", "203.0.113.7")

	for i := 0; i < 2; i++ {
		out, err := e.attribution.RecordClick(context.Background(), &attributiondto.RecordClickInput{
			ReferralCode: "JESSICA-NSZP83",
			Identity:     id,
			LandingPath:  "/r/JESSICA-NSZP83",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://whop.example/creator", out.DestinationURL)
		assert.Equal(t, referrer.ID, out.Click.ReferrerID)
		assert.Equal(t, testNow.Add(domain.AttributionWindow), out.Click.ExpiresAt)
		assert.False(t, out.Click.Converted)
	}

	clicks := e.store.AllClicks()
	assert.Len(t, clicks, 2)
	assert.Equal(t, id.Fingerprint, clicks[0].Fingerprint)
	assert.Equal(t, id.IPHash, clicks[0].IPHash)
	assert.Equal(t, referrer.CreatorID, clicks[0].CreatorID)
	assert.Equal(t, "/r/JESSICA-NSZP83", clicks[0].LandingPath)
	assert.NotContains(t, clicks[0].Fingerprint, "Mozilla")
	assert.NotContains(t, clicks[0].IPHash, "203.0.113.7")
}

func TestRecordClick_RejectsBadCodes(t *testing.T) {
	e := newEnv(t)
	e.addReferrer("JESSICA-NSZP83")

	_, err := e.attribution.RecordClick(context.Background(), &attributiondto.RecordClickInput{ReferralCode: "jessica nszp83"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.attribution.RecordClick(context.Background(), &attributiondto.RecordClickInput{ReferralCode: "NOBODY-000000"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, e.store.AllClicks())
}

func TestFindActiveAttribution_PrefersFingerprintThenIP(t *testing.T) {
	e := newEnv(t)
	e.addReferrer("ALICE-AAAAAA")
	e.addReferrer("BOB-BBBBBB")
	ctx := context.Background()

	visitor := e.hasher.Hash("Visitor UA", "198.51.100.1")
	sameNetwork := e.hasher.Hash("Other UA", "198.51.100.1")

	_, err := e.attribution.RecordClick(ctx, &attributiondto.RecordClickInput{ReferralCode: "ALICE-AAAAAA", Identity: visitor})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	_, err = e.attribution.RecordClick(ctx, &attributiondto.RecordClickInput{ReferralCode: "BOB-BBBBBB", Identity: sameNetwork})
	require.NoError(t, err)

	click, source, err := e.attribution.FindActiveAttribution(ctx, visitor, domain.ClickScope{})
	require.NoError(t, err)
	require.NotNil(t, click)
	assert.Equal(t, "ALICE-AAAAAA", click.ReferralCode)
	assert.Equal(t, signupdto.MatchFingerprint, source)

	ipOnly := e.hasher.Hash("Third UA", "198.51.100.1")
	click, source, err = e.attribution.FindActiveAttribution(ctx, ipOnly, domain.ClickScope{})
	require.NoError(t, err)
	require.NotNil(t, click)
	assert.Equal(t, "BOB-BBBBBB", click.ReferralCode)
	assert.Equal(t, signupdto.MatchIP, source)
}

func TestFindActiveAttribution_ExpiresAfterWindow(t *testing.T) {
	e := newEnv(t)
	e.addReferrer("ALICE-AAAAAA")
	visitor := e.hasher.Hash("Visitor UA", "198.51.100.1")

	_, err := e.attribution.RecordClick(context.Background(), &attributiondto.RecordClickInput{ReferralCode: "ALICE-AAAAAA", Identity: visitor})
	require.NoError(t, err)

	e.clock.Advance(domain.AttributionWindow - time.Second)
	click, _, err := e.attribution.FindActiveAttribution(context.Background(), visitor, domain.ClickScope{})
	require.NoError(t, err)
	assert.NotNil(t, click)

	e.clock.Advance(time.Second)
	click, _, err = e.attribution.FindActiveAttribution(context.Background(), visitor, domain.ClickScope{})
	require.NoError(t, err)
	assert.Nil(t, click)
}

func TestFindActiveAttribution_NoSignalsIsOrganic(t *testing.T) {
	e := newEnv(t)

	click, source, err := e.attribution.FindActiveAttribution(context.Background(), domain.Identity{}, domain.ClickScope{})
	require.NoError(t, err)
	assert.Nil(t, click)
	assert.Empty(t, source)
}
