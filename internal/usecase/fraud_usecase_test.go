package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/engine"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/rules"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFraudUsecase(t *testing.T) (*DefaultFraudUsecase, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	manager := engine.NewRuleManager(store.Fraud())
	_, err := manager.EnsureDefaults(context.Background())
	require.NoError(t, err)
	return NewDefaultFraudUsecase(store.Fraud(), manager), store
}

func ruleByType(t *testing.T, uc *DefaultFraudUsecase, ruleType string) *domain.FraudRule {
	t.Helper()
	all, err := uc.GetRules(context.Background(), false)
	require.NoError(t, err)
	for _, r := range all {
		if r.Type == ruleType {
			return r
		}
	}
	t.Fatalf("rule %s not seeded", ruleType)
	return nil
}

func TestFraudUsecase_UpdateRule(t *testing.T) {
	uc, _ := newFraudUsecase(t)
	rule := ruleByType(t, uc, rules.TypeSharedDevice)

	inactive := false
	priority := 7
	err := uc.UpdateRule(context.Background(), &UpdateRuleInput{
		RuleID:   rule.ID,
		IsActive: &inactive,
		Priority: &priority,
	})
	require.NoError(t, err)

	updated := ruleByType(t, uc, rules.TypeSharedDevice)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 7, updated.Priority)

	active, err := uc.GetRules(context.Background(), true)
	require.NoError(t, err)
	for _, r := range active {
		assert.NotEqual(t, rule.ID, r.ID)
	}
}

func TestFraudUsecase_UpdateRuleRejectsBadConfig(t *testing.T) {
	uc, _ := newFraudUsecase(t)
	rule := ruleByType(t, uc, rules.TypeClickVelocity)

	err := uc.UpdateRule(context.Background(), &UpdateRuleInput{
		RuleID: rule.ID,
		Type:   rules.TypeClickVelocity,
		Config: map[string]interface{}{"max_clicks": 0, "time_window": 60000000000, "points": 20},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = uc.UpdateRule(context.Background(), &UpdateRuleInput{
		RuleID: rule.ID,
		Type:   "geo_velocity",
		Config: map[string]interface{}{"points": 1},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, rule.Config, ruleByType(t, uc, rules.TypeClickVelocity).Config)
}

func TestFraudUsecase_ListFlags(t *testing.T) {
	uc, store := newFraudUsecase(t)
	repo := store.Fraud()
	for i, decision := range []domain.FraudDecision{domain.FraudApprove, domain.FraudReview, domain.FraudBlock} {
		require.NoError(t, repo.SaveAssessment(context.Background(), &domain.FraudAssessmentLog{
			ID:        string(rune('a' + i)),
			Stage:     domain.FraudStagePayment,
			Decision:  decision,
			CheckedAt: testNow,
		}))
	}

	flags, err := uc.ListFlags(context.Background(), domain.FraudFlagFilter{})
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, domain.FraudBlock, flags[0].Decision)

	block := domain.FraudBlock
	flags, err = uc.ListFlags(context.Background(), domain.FraudFlagFilter{Decision: &block})
	require.NoError(t, err)
	assert.Len(t, flags, 1)

	_, err = uc.ListFlags(context.Background(), domain.FraudFlagFilter{Offset: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFraudUsecase_UpdateRuleResolvesType(t *testing.T) {
	uc, _ := newFraudUsecase(t)
	rule := ruleByType(t, uc, rules.TypeSharedDevice)

	err := uc.UpdateRule(context.Background(), &UpdateRuleInput{
		RuleID: rule.ID,
		Config: map[string]interface{}{"min_other_members": 3, "points": 15},
	})
	require.NoError(t, err)

	updated := ruleByType(t, uc, rules.TypeSharedDevice)
	assert.EqualValues(t, 3, updated.Config["min_other_members"])
	assert.EqualValues(t, 15, updated.Config["points"])

	err = uc.UpdateRule(context.Background(), &UpdateRuleInput{
		RuleID: "missing",
		Config: map[string]interface{}{"points": 1},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFraudUsecase_UpdateRuleCannotChangeType(t *testing.T) {
	uc, store := newFraudUsecase(t)
	rule := ruleByType(t, uc, rules.TypeClickVelocity)

	err := uc.UpdateRule(context.Background(), &UpdateRuleInput{
		RuleID: rule.ID,
		Type:   rules.TypeSharedDevice,
		Config: map[string]interface{}{"min_other_members": 1, "points": 45},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// без типа конфиг всё равно проверяется по сохранённому типу
	err = uc.UpdateRule(context.Background(), &UpdateRuleInput{
		RuleID: rule.ID,
		Config: map[string]interface{}{"min_other_members": 1, "points": 45},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, rule.Config, ruleByType(t, uc, rules.TypeClickVelocity).Config)

	fraudEngine := engine.NewDefaultFraudEngine(store.Fraud(), store.Fraud(), nil, zap.NewNop(), nil)
	active, err := uc.GetRules(context.Background(), true)
	require.NoError(t, err)
	snap := &domain.ActivitySnapshot{
		Subject: domain.FraudSubject{
			Stage:           domain.FraudStagePayment,
			ReferrerID:      "referrer",
			RefereeID:       "referee",
			RefereeIdentity: domain.Identity{Fingerprint: "fp", IPHash: "ip"},
		},
		ReferrerIdentity: domain.Identity{Fingerprint: "fp", IPHash: "ip"},
		ClickWindow:      time.Hour,
		CapturedAt:       testNow,
	}
	a, err := fraudEngine.Score(snap, active)
	require.NoError(t, err)
	assert.Equal(t, domain.FraudBlock, a.Decision)
	assert.False(t, a.Degraded)
}
