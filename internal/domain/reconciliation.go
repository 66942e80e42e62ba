package domain

import (
	"context"
	"time"
)

type StatsField string

const (
	FieldTotalReferred    StatsField = "total_referred"
	FieldMonthlyReferred  StatsField = "monthly_referred"
	FieldLifetimeEarnings StatsField = "lifetime_earnings"
	FieldMonthlyEarnings  StatsField = "monthly_earnings"
	FieldCommissionSplit  StatsField = "commission_split"
)

type MismatchAction string

const (
	ActionReported MismatchAction = "reported"
	ActionFixed    MismatchAction = "fixed"
	ActionSkipped  MismatchAction = "skipped"
	ActionConflict MismatchAction = "conflict"
)

type ReconciliationMode string

const (
	ReconcileReport ReconciliationMode = "report"
	ReconcileFix    ReconciliationMode = "fix"
)

// MemberSnapshot - кэшированные и пересчитанные значения, снятые в одной
// согласованной транзакции
type MemberSnapshot struct {
	MemberID     string
	ReferralCode string
	Cached       MemberStats
	Recomputed   MemberStats
	StatsVersion int64
	TakenAt      time.Time
}

type ReconciliationMismatch struct {
	ID           string
	RunID        string
	MemberID     string
	CommissionID string
	Field        StatsField
	Cached       string
	Recomputed   string
	Action       MismatchAction
	DetectedAt   time.Time
}

type ReconciliationRun struct {
	ID             string
	Mode           ReconciliationMode
	StartedAt      time.Time
	FinishedAt     *time.Time
	MembersScanned int
	Mismatches     int
	Fixed          int
	Skipped        int
	Conflicts      int
	Error          string
}

type ReconciliationRepository interface {
	// ListMemberIDs pages through member ids in ascending order after afterID.
	ListMemberIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	LoadMemberSnapshot(ctx context.Context, memberID string, monthStart time.Time) (*MemberSnapshot, error)
	// ApplyStats overwrites cached stats only if stats_version still equals
	// expectedVersion, otherwise returns ErrStaleStats.
	ApplyStats(ctx context.Context, memberID string, expectedVersion int64, stats MemberStats) error
	ListUnbalancedCommissions(ctx context.Context, limit int) ([]*Commission, error)
	CreateRun(ctx context.Context, run *ReconciliationRun) error
	FinishRun(ctx context.Context, run *ReconciliationRun) error
	SaveMismatches(ctx context.Context, mismatches []*ReconciliationMismatch) error
	GetLatestRun(ctx context.Context) (*ReconciliationRun, []*ReconciliationMismatch, error)
}
