package repository

import (
	"context"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultCreatorRepository struct {
	DB *gorm.DB
}

func NewDefaultCreatorRepository(db *gorm.DB) *DefaultCreatorRepository {
	return &DefaultCreatorRepository{DB: db}
}

func (r *DefaultCreatorRepository) GetByID(ctx context.Context, id string) (*domain.Creator, error) {
	var model models.CreatorModel
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, mapNotFound(err, "creator", id)
	}
	return mappers.ToDomainCreator(&model), nil
}
