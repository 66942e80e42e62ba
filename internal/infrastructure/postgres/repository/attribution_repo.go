package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultAttributionRepository struct {
	DB *gorm.DB
}

func NewDefaultAttributionRepository(db *gorm.DB) *DefaultAttributionRepository {
	return &DefaultAttributionRepository{DB: db}
}

func (r *DefaultAttributionRepository) CreateClick(ctx context.Context, click *domain.AttributionClick) error {
	if err := r.DB.WithContext(ctx).Create(mappers.ToGORMClick(click)).Error; err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}
	return nil
}

func (r *DefaultAttributionRepository) FindActiveByFingerprint(ctx context.Context, fingerprint string, scope domain.ClickScope, now time.Time) (*domain.AttributionClick, error) {
	return r.findActive(ctx, "fingerprint", fingerprint, scope, now)
}

func (r *DefaultAttributionRepository) FindActiveByIPHash(ctx context.Context, ipHash string, scope domain.ClickScope, now time.Time) (*domain.AttributionClick, error) {
	return r.findActive(ctx, "ip_hash", ipHash, scope, now)
}

func (r *DefaultAttributionRepository) findActive(ctx context.Context, column, value string, scope domain.ClickScope, now time.Time) (*domain.AttributionClick, error) {
	if value == "" {
		return nil, nil
	}
	query := r.DB.WithContext(ctx).
		Where(column+" = ?", value).
		Where("converted = ? AND expires_at > ?", false, now)
	if scope.CreatorID != "" {
		query = query.Where("creator_id = ?", scope.CreatorID)
	}
	return takeClick(query.Order("created_at DESC"))
}

func (r *DefaultAttributionRepository) FindLatestForCode(ctx context.Context, code string, identity domain.Identity, now time.Time) (*domain.AttributionClick, error) {
	base := func() *gorm.DB {
		return r.DB.WithContext(ctx).
			Where("referral_code = ? AND expires_at > ?", code, now).
			Order("created_at DESC")
	}
	if identity.Fingerprint != "" {
		click, err := takeClick(base().Where("fingerprint = ?", identity.Fingerprint))
		if err != nil || click != nil {
			return click, err
		}
	}
	if identity.IPHash != "" {
		return takeClick(base().Where("ip_hash = ?", identity.IPHash))
	}
	return nil, nil
}

func (r *DefaultAttributionRepository) CountClicksSince(ctx context.Context, code string, since time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.AttributionClickModel{}).
		Where("referral_code = ? AND created_at >= ?", code, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

func takeClick(query *gorm.DB) (*domain.AttributionClick, error) {
	var model models.AttributionClickModel
	if err := query.Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query clicks: %w", err)
	}
	return mappers.ToDomainClick(&model), nil
}
