package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

const maxOutboxErrorLength = 512

type DefaultOutboxRepository struct {
	DB *gorm.DB
}

func NewDefaultOutboxRepository(db *gorm.DB) *DefaultOutboxRepository {
	return &DefaultOutboxRepository{DB: db}
}

func (r *DefaultOutboxRepository) FetchPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var rows []models.OutboxEventModel
	if err := r.DB.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch pending outbox events: %w", err)
	}
	result := make([]*domain.OutboxEvent, 0, len(rows))
	for i := range rows {
		result = append(result, mappers.ToDomainOutboxEvent(&rows[i]))
	}
	return result, nil
}

func (r *DefaultOutboxRepository) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.DB.WithContext(ctx).Model(&models.OutboxEventModel{}).
		Where("id IN ?", ids).
		Update("published_at", at).Error; err != nil {
		return fmt.Errorf("failed to mark outbox events published: %w", err)
	}
	return nil
}

func (r *DefaultOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	if len(reason) > maxOutboxErrorLength {
		reason = reason[:maxOutboxErrorLength]
	}
	if err := r.DB.WithContext(ctx).Model(&models.OutboxEventModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark outbox event %s failed: %w", id, err)
	}
	return nil
}
