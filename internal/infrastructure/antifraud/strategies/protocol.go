package strategies

import (
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
)

// ============= ИНТЕРФЕЙС СТРАТЕГИИ =============

// FraudStrategy оценивает один сигнал по снапшоту. Без I/O: одинаковый
// снапшот и правило дают одинаковый результат.
type FraudStrategy interface {
	Name() string
	Check(snapshot *domain.ActivitySnapshot, rule *domain.FraudRule) (*CheckResult, error)
	GetDescription() string
}

// CheckResult содержит результат проверки правила
type CheckResult struct {
	RuleName     string                 `json:"rule_name"`
	Points       int                    `json:"points"`
	Reasons      []string               `json:"reasons,omitempty"`
	CurrentValue interface{}            `json:"current_value"`
	Threshold    interface{}            `json:"threshold"`
	Message      string                 `json:"message"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

func (r *CheckResult) Triggered() bool {
	return r.Points > 0
}
