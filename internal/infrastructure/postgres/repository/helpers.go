package repository

import (
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/mappers"
	"gorm.io/gorm"
)

// mapNotFound переводит gorm.ErrRecordNotFound в доменную NotFoundError
func mapNotFound(err error, entity, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFoundError(entity, key)
	}
	return fmt.Errorf("failed to load %s %s: %w", entity, key, err)
}

// insertOutbox пишет события в outbox внутри транзакции tx
func insertOutbox(tx *gorm.DB, events []*domain.OutboxEvent) error {
	rows := mappers.ToGORMOutboxEvents(events)
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to enqueue outbox events: %w", err)
	}
	return nil
}
