package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CommissionModel struct {
	ID                string                      `gorm:"primaryKey;type:uuid"`
	ExternalPaymentID string                      `gorm:"not null;uniqueIndex:ux_commissions_external_payment_id"`
	SaleAmount        decimal.Decimal             `gorm:"type:numeric(18,2);not null"`
	MemberShare       decimal.Decimal             `gorm:"type:numeric(18,2);not null"`
	CreatorShare      decimal.Decimal             `gorm:"type:numeric(18,2);not null"`
	PlatformShare     decimal.Decimal             `gorm:"type:numeric(18,2);not null"`
	Currency          string                      `gorm:"not null"`
	Status            string                      `gorm:"not null;index:idx_commissions_member_status"`
	PaymentCaptured   bool                        `gorm:"not null;default:false"`
	FraudScore        int                         `gorm:"not null;default:0"`
	FraudReasons      datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	ReviewFlag        bool                        `gorm:"not null;default:false"`
	MemberID          string                      `gorm:"type:uuid;not null;index:idx_commissions_member_status"`
	RefereeID         string                      `gorm:"type:uuid;not null;index:idx_commissions_referee"`
	CreatorID         string                      `gorm:"type:uuid;not null"`
	PaidAt            *time.Time
	ReversedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (CommissionModel) TableName() string { return "commissions" }
