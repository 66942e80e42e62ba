package domain

import (
	"context"
	"time"
)

const (
	TopicAffiliateEvents = "affiliate-events"
	TopicPaymentEvents   = "payment-events"
)

type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type PublisherPort interface {
	Publish(ctx context.Context, topic string, msgs ...Message) error
}

type SubscriberPort interface {
	Subscribe(ctx context.Context, topic, groupID string) (<-chan Message, error)
}

// OutboxEvent пишется в той же транзакции, что и изменение состояния,
// и публикуется релеем позже.
type OutboxEvent struct {
	ID          string
	Topic       string
	Key         string
	EventType   string
	Payload     []byte
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

type OutboxRepository interface {
	FetchPending(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}
