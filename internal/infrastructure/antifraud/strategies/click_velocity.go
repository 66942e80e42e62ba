package strategies

import (
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/rules"
)

// ClickVelocityStrategy проверяет количество кликов по коду за окно
type ClickVelocityStrategy struct{}

func NewClickVelocityStrategy() *ClickVelocityStrategy {
	return &ClickVelocityStrategy{}
}

func (s *ClickVelocityStrategy) Name() string {
	return rules.TypeClickVelocity
}

func (s *ClickVelocityStrategy) GetDescription() string {
	return "Проверка частоты кликов по реферальному коду"
}

func (s *ClickVelocityStrategy) Check(snapshot *domain.ActivitySnapshot, rule *domain.FraudRule) (*CheckResult, error) {
	var config rules.ClickVelocityConfig
	if err := rules.Decode(rule.Config, &config); err != nil {
		return nil, fmt.Errorf("click_velocity rule %s: %w", rule.Name, err)
	}

	result := &CheckResult{
		RuleName:     rule.Name,
		CurrentValue: snapshot.RecentClicks,
		Threshold:    config.MaxClicks,
		Message: fmt.Sprintf("Code %s has %d clicks in last %v (limit: %d)",
			snapshot.Subject.ReferralCode, snapshot.RecentClicks, snapshot.ClickWindow, config.MaxClicks),
		Details: map[string]interface{}{
			"time_window": config.TimeWindow.String(),
		},
	}
	if snapshot.RecentClicks > int64(config.MaxClicks) {
		result.Points = config.Points
		result.Reasons = []string{"click_velocity"}
	}
	return result, nil
}
