package mappers

import (
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
)

func ToDomainFraudRule(model *models.FraudRuleModel) *domain.FraudRule {
	return &domain.FraudRule{
		ID:        model.ID,
		Name:      model.Name,
		Type:      model.Type,
		Config:    map[string]interface{}(model.Config),
		IsActive:  model.IsActive,
		Priority:  model.Priority,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func ToGORMFraudRule(rule *domain.FraudRule) *models.FraudRuleModel {
	return &models.FraudRuleModel{
		ID:        rule.ID,
		Name:      rule.Name,
		Type:      rule.Type,
		Config:    rule.Config,
		IsActive:  rule.IsActive,
		Priority:  rule.Priority,
		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}
}

func ToDomainAssessmentLog(model *models.FraudAssessmentModel) *domain.FraudAssessmentLog {
	return &domain.FraudAssessmentLog{
		ID:           model.ID,
		Stage:        domain.FraudStage(model.Stage),
		ReferralCode: model.ReferralCode,
		ReferrerID:   model.ReferrerID,
		RefereeID:    model.RefereeID,
		CommissionID: model.CommissionID,
		Score:        model.Score,
		Decision:     domain.FraudDecision(model.Decision),
		Reasons:      []string(model.Reasons),
		Degraded:     model.Degraded,
		CheckedAt:    model.CheckedAt,
	}
}

func ToGORMAssessmentLog(log *domain.FraudAssessmentLog) *models.FraudAssessmentModel {
	return &models.FraudAssessmentModel{
		ID:           log.ID,
		Stage:        string(log.Stage),
		ReferralCode: log.ReferralCode,
		ReferrerID:   log.ReferrerID,
		RefereeID:    log.RefereeID,
		CommissionID: log.CommissionID,
		Score:        log.Score,
		Decision:     string(log.Decision),
		Reasons:      log.Reasons,
		Degraded:     log.Degraded,
		CheckedAt:    log.CheckedAt,
	}
}
