package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/google/uuid"
)

// envelope - общий формат сообщений в affiliate-events
type envelope struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

func NewOutboxEvent(topic, key, eventType string, data interface{}) (*domain.OutboxEvent, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	payload, err := json.Marshal(envelope{
		EventID:    id,
		EventType:  eventType,
		OccurredAt: now,
		Data:       data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return &domain.OutboxEvent{
		ID:        id,
		Topic:     topic,
		Key:       key,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}
