package strategies

import (
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/rules"
)

type SharedDeviceStrategy struct{}

func NewSharedDeviceStrategy() *SharedDeviceStrategy {
	return &SharedDeviceStrategy{}
}

func (s *SharedDeviceStrategy) Name() string {
	return rules.TypeSharedDevice
}

func (s *SharedDeviceStrategy) GetDescription() string {
	return "Устройство реферала уже использовалось другими участниками"
}

func (s *SharedDeviceStrategy) Check(snapshot *domain.ActivitySnapshot, rule *domain.FraudRule) (*CheckResult, error) {
	var config rules.SharedDeviceConfig
	if err := rules.Decode(rule.Config, &config); err != nil {
		return nil, fmt.Errorf("shared_device rule %s: %w", rule.Name, err)
	}

	result := &CheckResult{
		RuleName:     rule.Name,
		CurrentValue: snapshot.SharedDeviceMembers,
		Threshold:    config.MinOtherMembers,
		Message: fmt.Sprintf("Fingerprint shared with %d other members (limit: %d)",
			snapshot.SharedDeviceMembers, config.MinOtherMembers),
	}
	if snapshot.SharedDeviceMembers >= int64(config.MinOtherMembers) {
		result.Points = config.Points
		result.Reasons = []string{"shared_device"}
	}
	return result, nil
}
