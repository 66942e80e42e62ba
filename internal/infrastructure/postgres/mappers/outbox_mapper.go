package mappers

import (
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
	"gorm.io/datatypes"
)

func ToDomainOutboxEvent(model *models.OutboxEventModel) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:          model.ID,
		Topic:       model.Topic,
		Key:         model.Key,
		EventType:   model.EventType,
		Payload:     []byte(model.Payload),
		Attempts:    model.Attempts,
		LastError:   model.LastError,
		CreatedAt:   model.CreatedAt,
		PublishedAt: model.PublishedAt,
	}
}

func ToGORMOutboxEvents(events []*domain.OutboxEvent) []*models.OutboxEventModel {
	out := make([]*models.OutboxEventModel, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		out = append(out, &models.OutboxEventModel{
			ID:        e.ID,
			Topic:     e.Topic,
			Key:       e.Key,
			EventType: e.EventType,
			Payload:   datatypes.JSON(e.Payload),
			Attempts:  e.Attempts,
			LastError: e.LastError,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
