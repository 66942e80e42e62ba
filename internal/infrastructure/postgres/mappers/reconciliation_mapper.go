package mappers

import (
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
)

func ToDomainRun(model *models.ReconciliationRunModel) *domain.ReconciliationRun {
	return &domain.ReconciliationRun{
		ID:             model.ID,
		Mode:           domain.ReconciliationMode(model.Mode),
		StartedAt:      model.StartedAt,
		FinishedAt:     model.FinishedAt,
		MembersScanned: model.MembersScanned,
		Mismatches:     model.Mismatches,
		Fixed:          model.Fixed,
		Skipped:        model.Skipped,
		Conflicts:      model.Conflicts,
		Error:          model.Error,
	}
}

func ToGORMRun(run *domain.ReconciliationRun) *models.ReconciliationRunModel {
	return &models.ReconciliationRunModel{
		ID:             run.ID,
		Mode:           string(run.Mode),
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		MembersScanned: run.MembersScanned,
		Mismatches:     run.Mismatches,
		Fixed:          run.Fixed,
		Skipped:        run.Skipped,
		Conflicts:      run.Conflicts,
		Error:          run.Error,
	}
}

func ToDomainMismatch(model *models.ReconciliationMismatchModel) *domain.ReconciliationMismatch {
	m := &domain.ReconciliationMismatch{
		ID:         model.ID,
		RunID:      model.RunID,
		Field:      domain.StatsField(model.Field),
		Cached:     model.Cached,
		Recomputed: model.Recomputed,
		Action:     domain.MismatchAction(model.Action),
		DetectedAt: model.DetectedAt,
	}
	if model.MemberID != nil {
		m.MemberID = *model.MemberID
	}
	if model.CommissionID != nil {
		m.CommissionID = *model.CommissionID
	}
	return m
}

func ToGORMMismatch(m *domain.ReconciliationMismatch) *models.ReconciliationMismatchModel {
	return &models.ReconciliationMismatchModel{
		ID:           m.ID,
		RunID:        m.RunID,
		MemberID:     optionalString(m.MemberID),
		CommissionID: optionalString(m.CommissionID),
		Field:        string(m.Field),
		Cached:       m.Cached,
		Recomputed:   m.Recomputed,
		Action:       string(m.Action),
		DetectedAt:   m.DetectedAt,
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
