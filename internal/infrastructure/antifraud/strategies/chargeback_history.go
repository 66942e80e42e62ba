package strategies

import (
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/rules"
)

// ChargebackHistoryStrategy учитывает только самое тяжёлое событие:
// чарджбек перекрывает возврат
type ChargebackHistoryStrategy struct{}

func NewChargebackHistoryStrategy() *ChargebackHistoryStrategy {
	return &ChargebackHistoryStrategy{}
}

func (s *ChargebackHistoryStrategy) Name() string {
	return rules.TypeChargebackHistory
}

func (s *ChargebackHistoryStrategy) GetDescription() string {
	return "История возвратов и чарджбеков реферала"
}

func (s *ChargebackHistoryStrategy) Check(snapshot *domain.ActivitySnapshot, rule *domain.FraudRule) (*CheckResult, error) {
	var config rules.ChargebackHistoryConfig
	if err := rules.Decode(rule.Config, &config); err != nil {
		return nil, fmt.Errorf("chargeback_history rule %s: %w", rule.Name, err)
	}

	result := &CheckResult{
		RuleName:     rule.Name,
		CurrentValue: snapshot.RefereeChargebacks + snapshot.RefereeRefunds,
		Threshold:    config.GetThreshold(),
		Details: map[string]interface{}{
			"refunds":     snapshot.RefereeRefunds,
			"chargebacks": snapshot.RefereeChargebacks,
		},
	}

	switch {
	case snapshot.RefereeChargebacks > 0:
		result.Points = config.ChargebackPoints
		result.Reasons = []string{"chargeback_history:chargeback"}
	case snapshot.RefereeRefunds > 0:
		result.Points = config.RefundPoints
		result.Reasons = []string{"chargeback_history:refund"}
	}
	result.Message = fmt.Sprintf("Referee has %d refunds and %d chargebacks",
		snapshot.RefereeRefunds, snapshot.RefereeChargebacks)
	return result, nil
}
