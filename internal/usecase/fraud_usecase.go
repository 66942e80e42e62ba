package usecase

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/engine"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/rules"
)

type FraudUsecase interface {
	ListFlags(ctx context.Context, filter domain.FraudFlagFilter) ([]*domain.FraudAssessmentLog, error)
	GetRules(ctx context.Context, activeOnly bool) ([]*domain.FraudRule, error)
	UpdateRule(ctx context.Context, input *UpdateRuleInput) error
}

type UpdateRuleInput struct {
	RuleID   string
	Type     string
	Config   map[string]interface{}
	IsActive *bool
	Priority *int
}

type DefaultFraudUsecase struct {
	audit   domain.FraudAuditRepository
	manager *engine.RuleManager
}

func NewDefaultFraudUsecase(audit domain.FraudAuditRepository, manager *engine.RuleManager) *DefaultFraudUsecase {
	return &DefaultFraudUsecase{audit: audit, manager: manager}
}

func (uc *DefaultFraudUsecase) ListFlags(ctx context.Context, filter domain.FraudFlagFilter) ([]*domain.FraudAssessmentLog, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative")
	}
	return uc.audit.ListFlags(ctx, filter)
}

func (uc *DefaultFraudUsecase) GetRules(ctx context.Context, activeOnly bool) ([]*domain.FraudRule, error) {
	return uc.manager.GetRules(ctx, activeOnly)
}

// UpdateRule валидирует конфиг по типу сохранённого правила. Тип правила
// не меняется: input.Type, если передан, должен совпадать с сохранённым.
func (uc *DefaultFraudUsecase) UpdateRule(ctx context.Context, input *UpdateRuleInput) error {
	existing, err := uc.findRule(ctx, input.RuleID)
	if err != nil {
		return err
	}
	if input.Type != "" && input.Type != existing.Type {
		return domain.NewValidationError("type", fmt.Sprintf("rule %s has type %q, got %q", existing.ID, existing.Type, input.Type))
	}

	var cfg rules.RuleConfig
	if input.Config != nil {
		typed, err := rules.ConfigForType(existing.Type)
		if err != nil {
			return domain.NewValidationError("type", err.Error())
		}
		if err := rules.Decode(input.Config, typed); err != nil {
			return domain.NewValidationError("config", err.Error())
		}
		cfg = typed
	}
	return uc.manager.UpdateRule(ctx, existing.ID, cfg, input.IsActive, input.Priority)
}

func (uc *DefaultFraudUsecase) findRule(ctx context.Context, ruleID string) (*domain.FraudRule, error) {
	all, err := uc.manager.GetRules(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.ID == ruleID {
			return r, nil
		}
	}
	return nil, domain.NewNotFoundError("fraud rule", ruleID)
}
