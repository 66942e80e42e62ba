package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreatorModel struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	Name           string    `gorm:"not null"`
	DestinationURL string    `gorm:"not null"`
	CreatedAt      time.Time
}

func (CreatorModel) TableName() string { return "creators" }

type MemberModel struct {
	ID                string          `gorm:"primaryKey;type:uuid"`
	CreatorID         string          `gorm:"type:uuid;not null;index:idx_members_creator"`
	MembershipID      *string         `gorm:"uniqueIndex:ux_members_membership_id"`
	DisplayName       string
	ReferralCode      string          `gorm:"not null;uniqueIndex:ux_members_referral_code"`
	ReferredBy        *string         `gorm:"index:idx_members_referred_by"`
	Origin            string          `gorm:"not null;default:organic"`
	SignupFingerprint string          `gorm:"index:idx_members_signup_fingerprint"`
	SignupIPHash      string
	TotalReferred     int64           `gorm:"not null;default:0"`
	MonthlyReferred   int64           `gorm:"not null;default:0"`
	LifetimeEarnings  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	MonthlyEarnings   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	StatsVersion      int64           `gorm:"not null;default:0"`
	CreatedAt         time.Time       `gorm:"index:idx_members_created_at"`
	UpdatedAt         time.Time
}

func (MemberModel) TableName() string { return "members" }
