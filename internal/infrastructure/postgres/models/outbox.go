package models

import (
	"time"

	"gorm.io/datatypes"
)

type OutboxEventModel struct {
	ID          string         `gorm:"primaryKey;type:uuid"`
	Topic       string         `gorm:"not null"`
	Key         string
	EventType   string         `gorm:"not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null"`
	Attempts    int            `gorm:"not null;default:0"`
	LastError   string
	CreatedAt   time.Time      `gorm:"not null;index:idx_outbox_pending"`
	PublishedAt *time.Time
}

func (OutboxEventModel) TableName() string { return "outbox_events" }
