package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultMemberRepository struct {
	DB *gorm.DB
}

func NewDefaultMemberRepository(db *gorm.DB) *DefaultMemberRepository {
	return &DefaultMemberRepository{DB: db}
}

func (r *DefaultMemberRepository) RegisterSignup(ctx context.Context, rec *domain.SignupRecord) error {
	member := rec.Member
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(mappers.ToGORMMember(member)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateReferralCode
			}
			return fmt.Errorf("failed to insert member: %w", err)
		}

		// CAS: клик конвертируется ровно один раз
		if rec.ClickID != "" {
			res := tx.Model(&models.AttributionClickModel{}).
				Where("id = ? AND converted = ?", rec.ClickID, false).
				Updates(map[string]interface{}{
					"converted":    true,
					"converted_at": member.CreatedAt,
					"member_id":    member.ID,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to convert click %s: %w", rec.ClickID, res.Error)
			}
			if res.RowsAffected == 0 {
				return domain.ErrAlreadyConverted
			}
		}

		if member.IsReferred() {
			res := tx.Model(&models.MemberModel{}).
				Where("referral_code = ?", *member.ReferredBy).
				Updates(map[string]interface{}{
					"total_referred":   gorm.Expr("total_referred + 1"),
					"monthly_referred": gorm.Expr("monthly_referred + 1"),
					"stats_version":    gorm.Expr("stats_version + 1"),
					"updated_at":       member.CreatedAt,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to bump referrer counters: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return domain.NewNotFoundError("referrer", *member.ReferredBy)
			}
		}

		return insertOutbox(tx, rec.Events)
	})
}

func (r *DefaultMemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	var model models.MemberModel
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, mapNotFound(err, "member", id)
	}
	return mappers.ToDomainMember(&model), nil
}

func (r *DefaultMemberRepository) GetByReferralCode(ctx context.Context, code string) (*domain.Member, error) {
	var model models.MemberModel
	if err := r.DB.WithContext(ctx).Where("referral_code = ?", code).Take(&model).Error; err != nil {
		return nil, mapNotFound(err, "referral code", code)
	}
	return mappers.ToDomainMember(&model), nil
}

func (r *DefaultMemberRepository) GetByMembershipID(ctx context.Context, membershipID string) (*domain.Member, error) {
	var model models.MemberModel
	if err := r.DB.WithContext(ctx).Where("membership_id = ?", membershipID).Take(&model).Error; err != nil {
		return nil, mapNotFound(err, "membership", membershipID)
	}
	return mappers.ToDomainMember(&model), nil
}
