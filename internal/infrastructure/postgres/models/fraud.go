package models

import (
	"time"

	"gorm.io/datatypes"
)

// FraudRuleModel - настраиваемое правило антифрода
type FraudRuleModel struct {
	ID        string            `gorm:"primaryKey;type:uuid"`
	Name      string            `gorm:"not null;unique"`
	Type      string            `gorm:"not null"` // self_referral, click_velocity, chargeback_history, shared_device
	Config    datatypes.JSONMap `gorm:"type:jsonb;not null"`
	IsActive  bool              `gorm:"default:true"`
	Priority  int               `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FraudRuleModel) TableName() string { return "fraud_rules" }

// FraudAssessmentModel - аудит каждой оценки
type FraudAssessmentModel struct {
	ID           string                      `gorm:"primaryKey;type:uuid"`
	Stage        string                      `gorm:"not null"`
	ReferralCode string                      `gorm:"index"`
	ReferrerID   string
	RefereeID    string
	CommissionID string
	Score        int                         `gorm:"not null"`
	Decision     string                      `gorm:"not null;index:idx_fraud_assessments_decision"`
	Reasons      datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Degraded     bool                        `gorm:"not null;default:false"`
	CheckedAt    time.Time                   `gorm:"not null;index:idx_fraud_assessments_decision"`
}

func (FraudAssessmentModel) TableName() string { return "fraud_assessments" }
