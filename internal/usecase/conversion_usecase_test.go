package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/kafka"
	attributiondto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/attribution"
	signupdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/signup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	visitorUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4)"
	visitorIP = "203.0.113.7"
)

func (e *env) click(t *testing.T, code, ua, ip string) *domain.AttributionClick {
	t.Helper()
	out, err := e.attribution.RecordClick(context.Background(), &attributiondto.RecordClickInput{
		ReferralCode: code,
		Identity:     e.hasher.Hash(ua, ip),
		LandingPath:  "/r/" + code,
	})
	require.NoError(t, err)
	return out.Click
}

func (e *env) signup(t *testing.T, membershipID, cookie string) *signupdto.SignupOutput {
	t.Helper()
	out, err := e.conversion.Signup(context.Background(), &signupdto.SignupInput{
		CreatorID:    e.creator.ID,
		MembershipID: membershipID,
		DisplayName:  "Sam",
		UserAgent:    visitorUA,
		ClientIP:     visitorIP,
		CookieCode:   cookie,
	})
	require.NoError(t, err)
	return out
}

func TestSignup_FingerprintMatch(t *testing.T) {
	e := newEnv(t)
	referrer := e.addReferrer("JESSICA-NSZP83")
	click := e.click(t, "JESSICA-NSZP83", visitorUA, visitorIP)
	e.clock.Advance(2 * time.Hour)

	out := e.signup(t, "mem_sam", "")

	require.NotNil(t, out.Member)
	assert.Equal(t, domain.OriginReferred, out.Member.Origin)
	require.NotNil(t, out.Member.ReferredBy)
	assert.Equal(t, "JESSICA-NSZP83", *out.Member.ReferredBy)
	assert.Equal(t, signupdto.MatchFingerprint, out.MatchSource)
	assert.Equal(t, click.ID, out.ClickID)
	assert.False(t, out.ReplayRejected)
	assert.Regexp(t, `^SAM-[A-Z0-9]{6}$`, out.Member.ReferralCode)

	stored := e.store.Member(referrer.ID)
	assert.EqualValues(t, 1, stored.Stats.TotalReferred)
	assert.EqualValues(t, 1, stored.Stats.MonthlyReferred)

	clicks := e.store.AllClicks()
	require.Len(t, clicks, 1)
	assert.True(t, clicks[0].Converted)
	require.NotNil(t, clicks[0].MemberID)
	assert.Equal(t, out.Member.ID, *clicks[0].MemberID)

	events := e.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, kafka.EventReferralConverted, events[0].EventType)
	assert.Equal(t, domain.TopicAffiliateEvents, events[0].Topic)
	assert.Equal(t, "JESSICA-NSZP83", events[0].Key)

	require.Len(t, e.fraud.subjects, 1)
	subject := e.fraud.subjects[0]
	assert.Equal(t, domain.FraudStageConversion, subject.Stage)
	assert.Equal(t, referrer.ID, subject.ReferrerID)
	assert.Equal(t, out.Member.ID, subject.RefereeID)
	assert.Equal(t, e.hasher.Hash(visitorUA, visitorIP), subject.RefereeIdentity)
	require.NotNil(t, out.Fraud)

	assert.Equal(t, []string{referrer.ID}, e.cache.ids)
}

func TestSignup_IPOnlyMatch(t *testing.T) {
	e := newEnv(t)
	e.addReferrer("JESSICA-NSZP83")
	e.click(t, "JESSICA-NSZP83", "Some other browser", visitorIP)

	out := e.signup(t, "mem_sam", "")

	assert.Equal(t, domain.OriginReferred, out.Member.Origin)
	assert.Equal(t, signupdto.MatchIP, out.MatchSource)
}

func TestSignup_ExpiredClickIsOrganic(t *testing.T) {
	e := newEnv(t)
	referrer := e.addReferrer("JESSICA-NSZP83")
	e.click(t, "JESSICA-NSZP83", visitorUA, visitorIP)
	e.clock.Advance(31 * 24 * time.Hour)

	out := e.signup(t, "mem_sam", "")

	assert.Equal(t, domain.OriginOrganic, out.Member.Origin)
	assert.Nil(t, out.Member.ReferredBy)
	assert.Equal(t, signupdto.MatchNone, out.MatchSource)
	assert.Empty(t, out.ClickID)
	assert.Nil(t, out.Fraud)
	assert.Empty(t, e.fraud.subjects)
	assert.Empty(t, e.store.OutboxEvents())
	assert.Zero(t, e.store.Member(referrer.ID).Stats.TotalReferred)
}

func TestSignup_CookieWinsOverFingerprint(t *testing.T) {
	e := newEnv(t)
	e.addReferrer("ALICE-AAAAAA")
	bob := e.addReferrer("BOB-BBBBBB")
	aliceClick := e.click(t, "ALICE-AAAAAA", visitorUA, visitorIP)

	out := e.signup(t, "mem_sam", "BOB-BBBBBB")

	require.NotNil(t, out.Member.ReferredBy)
	assert.Equal(t, "BOB-BBBBBB", *out.Member.ReferredBy)
	assert.Equal(t, signupdto.MatchCookieOnly, out.MatchSource)
	assert.Empty(t, out.ClickID)
	assert.EqualValues(t, 1, e.store.Member(bob.ID).Stats.TotalReferred)

	clicks := e.store.AllClicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, aliceClick.ID, clicks[0].ID)
	assert.False(t, clicks[0].Converted)
}

func TestSignup_CookieWithMatchingClickConvertsIt(t *testing.T) {
	e := newEnv(t)
	e.addReferrer("ALICE-AAAAAA")
	click := e.click(t, "ALICE-AAAAAA", visitorUA, visitorIP)

	out := e.signup(t, "mem_sam", "ALICE-AAAAAA")

	assert.Equal(t, signupdto.MatchCookie, out.MatchSource)
	assert.Equal(t, click.ID, out.ClickID)
	assert.True(t, e.store.AllClicks()[0].Converted)
}

func TestSignup_IgnoresUnusableCookies(t *testing.T) {
	e := newEnv(t)
	e.addReferrer("ALICE-AAAAAA")
	other := e.store.AddCreator(domain.Creator{Name: "Other"})
	e.store.AddMember(domain.Member{CreatorID: other.ID, MembershipID: "mem_eve", ReferralCode: "EVE-EEEEEE"})
	e.click(t, "ALICE-AAAAAA", visitorUA, visitorIP)

	for i, cookie := range []string{"not a code", "NOBODY-000000", "EVE-EEEEEE"} {
		t.Run(cookie, func(t *testing.T) {
			out := e.signup(t, fmt.Sprintf("mem_%d", i), cookie)
			if i == 0 {
				// первый забирает клик по отпечатку
				require.NotNil(t, out.Member.ReferredBy)
				assert.Equal(t, "ALICE-AAAAAA", *out.Member.ReferredBy)
				assert.Equal(t, signupdto.MatchFingerprint, out.MatchSource)
				return
			}
			assert.Equal(t, domain.OriginOrganic, out.Member.Origin)
		})
	}
}

func TestSignup_CookieReplayIsRejected(t *testing.T) {
	e := newEnv(t)
	alice := e.addReferrer("ALICE-AAAAAA")
	e.click(t, "ALICE-AAAAAA", visitorUA, visitorIP)

	first := e.signup(t, "mem_sam", "ALICE-AAAAAA")
	require.Equal(t, domain.OriginReferred, first.Member.Origin)

	second := e.signup(t, "mem_sam_alt", "ALICE-AAAAAA")

	assert.Equal(t, domain.OriginOrganic, second.Member.Origin)
	assert.True(t, second.ReplayRejected)
	assert.Equal(t, signupdto.MatchNone, second.MatchSource)
	assert.EqualValues(t, 1, e.store.Member(alice.ID).Stats.TotalReferred)
}

func TestSignup_ConvertedClickIsNotReusedByFingerprint(t *testing.T) {
	e := newEnv(t)
	alice := e.addReferrer("ALICE-AAAAAA")
	e.click(t, "ALICE-AAAAAA", visitorUA, visitorIP)

	e.signup(t, "mem_sam", "")
	second := e.signup(t, "mem_sam_alt", "")

	assert.Equal(t, domain.OriginOrganic, second.Member.Origin)
	assert.EqualValues(t, 1, e.store.Member(alice.ID).Stats.TotalReferred)
}

func TestSignup_ConcurrentSignupsConvertClickOnce(t *testing.T) {
	e := newEnv(t)
	alice := e.addReferrer("ALICE-AAAAAA")
	e.click(t, "ALICE-AAAAAA", visitorUA, visitorIP)

	const n = 10
	var wg sync.WaitGroup
	outs := make([]*signupdto.SignupOutput, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = e.conversion.Signup(context.Background(), &signupdto.SignupInput{
				CreatorID:    e.creator.ID,
				MembershipID: fmt.Sprintf("mem_%d", i),
				DisplayName:  "Sam",
				UserAgent:    visitorUA,
				ClientIP:     visitorIP,
			})
		}(i)
	}
	wg.Wait()

	referred := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if outs[i].Member.IsReferred() {
			referred++
		}
	}
	assert.Equal(t, 1, referred)
	assert.EqualValues(t, 1, e.store.Member(alice.ID).Stats.TotalReferred)
	assert.Len(t, e.store.OutboxEvents(), 1)
}

func TestSignup_IdempotentByMembership(t *testing.T) {
	e := newEnv(t)
	alice := e.addReferrer("ALICE-AAAAAA")
	e.click(t, "ALICE-AAAAAA", visitorUA, visitorIP)

	first := e.signup(t, "mem_sam", "")
	second := e.signup(t, "mem_sam", "")

	assert.True(t, second.Existing)
	assert.Equal(t, first.Member.ID, second.Member.ID)
	assert.EqualValues(t, 1, e.store.Member(alice.ID).Stats.TotalReferred)
	assert.Len(t, e.fraud.subjects, 1)
}

func TestSignup_Validation(t *testing.T) {
	e := newEnv(t)

	_, err := e.conversion.Signup(context.Background(), &signupdto.SignupInput{MembershipID: "mem_sam"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.conversion.Signup(context.Background(), &signupdto.SignupInput{CreatorID: e.creator.ID, MembershipID: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.conversion.Signup(context.Background(), &signupdto.SignupInput{CreatorID: "missing", MembershipID: "mem_sam"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSignup_ClicksAreScopedToCreator(t *testing.T) {
	e := newEnv(t)
	other := e.store.AddCreator(domain.Creator{Name: "Other"})
	eve := e.store.AddMember(domain.Member{CreatorID: other.ID, MembershipID: "mem_eve", ReferralCode: "EVE-EEEEEE"})
	e.click(t, "EVE-EEEEEE", visitorUA, visitorIP)

	out := e.signup(t, "mem_sam", "")

	assert.Equal(t, domain.OriginOrganic, out.Member.Origin)
	assert.Zero(t, e.store.Member(eve.ID).Stats.TotalReferred)
	assert.False(t, e.store.AllClicks()[0].Converted)
}
