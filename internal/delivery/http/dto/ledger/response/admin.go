package response

import (
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
)

type FraudFlagResponse struct {
	ID           string    `json:"id"`
	Stage        string    `json:"stage"`
	ReferralCode string    `json:"referralCode"`
	ReferrerID   string    `json:"referrerId,omitempty"`
	RefereeID    string    `json:"refereeId,omitempty"`
	CommissionID string    `json:"commissionId,omitempty"`
	Score        int       `json:"score"`
	Decision     string    `json:"decision"`
	Reasons      []string  `json:"reasons"`
	Degraded     bool      `json:"degraded"`
	CheckedAt    time.Time `json:"checkedAt"`
}

func NewFraudFlagResponse(l *domain.FraudAssessmentLog) FraudFlagResponse {
	return FraudFlagResponse{
		ID:           l.ID,
		Stage:        string(l.Stage),
		ReferralCode: l.ReferralCode,
		ReferrerID:   l.ReferrerID,
		RefereeID:    l.RefereeID,
		CommissionID: l.CommissionID,
		Score:        l.Score,
		Decision:     string(l.Decision),
		Reasons:      l.Reasons,
		Degraded:     l.Degraded,
		CheckedAt:    l.CheckedAt,
	}
}

type FraudRuleResponse struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Type      string                 `json:"type"`
	Config    map[string]interface{} `json:"config"`
	IsActive  bool                   `json:"isActive"`
	Priority  int                    `json:"priority"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

func NewFraudRuleResponse(r *domain.FraudRule) FraudRuleResponse {
	return FraudRuleResponse{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.Type,
		Config:    r.Config,
		IsActive:  r.IsActive,
		Priority:  r.Priority,
		UpdatedAt: r.UpdatedAt,
	}
}

type MismatchResponse struct {
	MemberID     string `json:"memberId,omitempty"`
	CommissionID string `json:"commissionId,omitempty"`
	Field        string `json:"field"`
	Cached       string `json:"cached"`
	Recomputed   string `json:"recomputed"`
	Action       string `json:"action"`
}

type ReconciliationRunResponse struct {
	ID             string             `json:"id"`
	Mode           string             `json:"mode"`
	StartedAt      time.Time          `json:"startedAt"`
	FinishedAt     *time.Time         `json:"finishedAt,omitempty"`
	MembersScanned int                `json:"membersScanned"`
	Mismatches     int                `json:"mismatches"`
	Fixed          int                `json:"fixed"`
	Skipped        int                `json:"skipped"`
	Conflicts      int                `json:"conflicts"`
	Error          string             `json:"error,omitempty"`
	Details        []MismatchResponse `json:"details"`
}

func NewReconciliationRunResponse(run *domain.ReconciliationRun, mismatches []*domain.ReconciliationMismatch) ReconciliationRunResponse {
	out := ReconciliationRunResponse{
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
		Details:        make([]MismatchResponse, 0, len(mismatches)),
	}
	for _, m := range mismatches {
		out.Details = append(out.Details, MismatchResponse{
			MemberID:     m.MemberID,
			CommissionID: m.CommissionID,
			Field:        string(m.Field),
			Cached:       m.Cached,
			Recomputed:   m.Recomputed,
			Action:       string(m.Action),
		})
	}
	return out
}
