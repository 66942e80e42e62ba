package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/identity"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/testutil/memstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testHashKey = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingAssessor struct {
	mu       sync.Mutex
	subjects []domain.FraudSubject
}

func (a *recordingAssessor) Assess(ctx context.Context, subject domain.FraudSubject) *domain.FraudAssessment {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subjects = append(a.subjects, subject)
	return &domain.FraudAssessment{Decision: domain.FraudApprove, EvaluatedAt: testNow}
}

type recordingCache struct {
	mu  sync.Mutex
	ids []string
}

func (c *recordingCache) Invalidate(memberID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, memberID)
}

type env struct {
	store       *memstore.Store
	clock       *clock
	hasher      *identity.Hasher
	fraud       *recordingAssessor
	cache       *recordingCache
	attribution *DefaultAttributionUsecase
	conversion  *DefaultConversionUsecase
	creator     *domain.Creator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	clk := &clock{now: testNow}
	hasher, err := identity.NewHasher(testHashKey)
	require.NoError(t, err)
	codes, err := NewReferralCodeGenerator()
	require.NoError(t, err)

	fraud := &recordingAssessor{}
	cache := &recordingCache{}
	attribution := NewDefaultAttributionUsecase(store.Clicks(), store.Members(), store.Creators(), domain.AttributionWindow, nil, zap.NewNop()).
		WithClock(clk.Now)
	conversion := NewDefaultConversionUsecase(store.Members(), store.Creators(), store.Clicks(), attribution, hasher, fraud, cache, codes, nil, zap.NewNop()).
		WithClock(clk.Now)

	creator := store.AddCreator(domain.Creator{Name: "Creator", DestinationURL: "https://whop.example/creator"})
	return &env{
		store:       store,
		clock:       clk,
		hasher:      hasher,
		fraud:       fraud,
		cache:       cache,
		attribution: attribution,
		conversion:  conversion,
		creator:     creator,
	}
}

func (e *env) addReferrer(code string) *domain.Member {
	return e.store.AddMember(domain.Member{
		CreatorID:    e.creator.ID,
		MembershipID: "mem_" + code,
		ReferralCode: code,
		CreatedAt:    testNow.Add(-24 * time.Hour),
	})
}
