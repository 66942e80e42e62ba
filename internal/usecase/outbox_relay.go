package usecase

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const defaultRelayBatch = 100

// OutboxRelay публикует события outbox после коммита. Доставка
// at-least-once: событие помечается опубликованным только после
// подтверждения брокера.
type OutboxRelay struct {
	repo      domain.OutboxRepository
	publisher domain.PublisherPort
	batchSize int
	metrics   *metrics.LedgerMetrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewOutboxRelay(repo domain.OutboxRepository, publisher domain.PublisherPort, batchSize int, m *metrics.LedgerMetrics, logger *zap.Logger) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = defaultRelayBatch
	}
	return &OutboxRelay{
		repo:      repo,
		publisher: publisher,
		batchSize: batchSize,
		metrics:   m,
		logger:    logger.With(zap.String("component", "outbox_relay")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RelayOnce публикует одну пачку, сгруппированную по топикам.
// Возвращает число опубликованных событий.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	events, err := r.repo.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	var topics []string
	byTopic := make(map[string][]*domain.OutboxEvent)
	for _, e := range events {
		if _, ok := byTopic[e.Topic]; !ok {
			topics = append(topics, e.Topic)
		}
		byTopic[e.Topic] = append(byTopic[e.Topic], e)
	}

	published := 0
	for _, topic := range topics {
		batch := byTopic[topic]
		msgs := make([]domain.Message, 0, len(batch))
		ids := make([]string, 0, len(batch))
		for _, e := range batch {
			msgs = append(msgs, domain.Message{
				Key:   []byte(e.Key),
				Value: e.Payload,
				Headers: map[string]string{
					"event_type": e.EventType,
					"event_id":   e.ID,
				},
			})
			ids = append(ids, e.ID)
		}

		if err := r.publisher.Publish(ctx, topic, msgs...); err != nil {
			r.metrics.RecordOutbox(topic, 0, true)
			r.logger.Warn("failed to publish outbox batch",
				zap.String("topic", topic),
				zap.Int("events", len(batch)),
				zap.Error(err),
			)
			for _, e := range batch {
				if markErr := r.repo.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
					r.logger.Error("failed to record outbox failure", zap.String("event_id", e.ID), zap.Error(markErr))
				}
			}
			continue
		}

		if err := r.repo.MarkPublished(ctx, ids, r.now()); err != nil {
			// сообщения уже у брокера; при повторе уйдут ещё раз
			return published, err
		}
		published += len(batch)
		r.metrics.RecordOutbox(topic, len(batch), false)
	}
	return published, nil
}
