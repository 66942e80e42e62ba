package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/rules"
	"github.com/google/uuid"
)

// RuleManager управляет правилами антифрода
type RuleManager struct {
	repo domain.FraudRuleRepository
}

func NewRuleManager(repo domain.FraudRuleRepository) *RuleManager {
	return &RuleManager{repo: repo}
}

// CreateRule создает новое правило
func (rm *RuleManager) CreateRule(ctx context.Context, name, ruleType string, config rules.RuleConfig, priority int) (*domain.FraudRule, error) {
	if err := config.Validate(); err != nil {
		return nil, domain.NewValidationError("config", err.Error())
	}
	configMap, err := rules.Encode(config)
	if err != nil {
		return nil, fmt.Errorf("encode rule config: %w", err)
	}

	now := time.Now().UTC()
	rule := &domain.FraudRule{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      ruleType,
		Config:    configMap,
		IsActive:  true,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := rm.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule обновляет существующее правило
func (rm *RuleManager) UpdateRule(ctx context.Context, ruleID string, config rules.RuleConfig, isActive *bool, priority *int) error {
	updates := make(map[string]interface{})

	if config != nil {
		if err := config.Validate(); err != nil {
			return domain.NewValidationError("config", err.Error())
		}
		configMap, err := rules.Encode(config)
		if err != nil {
			return fmt.Errorf("encode rule config: %w", err)
		}
		updates["config"] = configMap
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}
	if priority != nil {
		updates["priority"] = *priority
	}
	if len(updates) == 0 {
		return nil
	}
	return rm.repo.UpdateRule(ctx, ruleID, updates)
}

func (rm *RuleManager) GetRules(ctx context.Context, activeOnly bool) ([]*domain.FraudRule, error) {
	return rm.repo.GetRules(ctx, activeOnly)
}

// EnsureDefaults создаёт отсутствующие правила по умолчанию, существующие не трогает.
// Возвращает количество созданных.
func (rm *RuleManager) EnsureDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, def := range rules.DefaultRules() {
		_, err := rm.repo.GetRuleByName(ctx, def.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return created, err
		}
		if _, err := rm.CreateRule(ctx, def.Name, def.Type, def.Config, def.Priority); err != nil {
			return created, fmt.Errorf("failed to create %s rule: %w", def.Type, err)
		}
		created++
	}
	return created, nil
}
