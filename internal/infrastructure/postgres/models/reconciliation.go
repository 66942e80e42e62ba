package models

import "time"

type ReconciliationRunModel struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	Mode           string    `gorm:"not null"`
	StartedAt      time.Time `gorm:"not null;index"`
	FinishedAt     *time.Time
	MembersScanned int
	Mismatches     int
	Fixed          int
	Skipped        int
	Conflicts      int
	Error          string
}

func (ReconciliationRunModel) TableName() string { return "reconciliation_runs" }

type ReconciliationMismatchModel struct {
	ID           string    `gorm:"primaryKey;type:uuid"`
	RunID        string    `gorm:"type:uuid;not null;index"`
	MemberID     *string   `gorm:"type:uuid"`
	CommissionID *string   `gorm:"type:uuid"`
	Field        string    `gorm:"not null"`
	Cached       string
	Recomputed   string
	Action       string    `gorm:"not null"`
	DetectedAt   time.Time `gorm:"not null"`
}

func (ReconciliationMismatchModel) TableName() string { return "reconciliation_mismatches" }
