package models

import "time"

type AttributionClickModel struct {
	ID           string     `gorm:"primaryKey;type:uuid"`
	ReferralCode string     `gorm:"not null;index:idx_clicks_code_created"`
	ReferrerID   string     `gorm:"type:uuid;not null"`
	CreatorID    string     `gorm:"type:uuid;not null"`
	Fingerprint  string     `gorm:"not null;index:idx_clicks_fingerprint"`
	IPHash       string     `gorm:"not null;index:idx_clicks_ip_hash"`
	LandingPath  string
	CreatedAt    time.Time  `gorm:"index:idx_clicks_code_created"`
	ExpiresAt    time.Time  `gorm:"not null"`
	Converted    bool       `gorm:"not null;default:false"`
	ConvertedAt  *time.Time
	MemberID     *string    `gorm:"type:uuid"`
}

func (AttributionClickModel) TableName() string { return "attribution_clicks" }
