package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultCommissionRepository struct {
	DB *gorm.DB
}

func NewDefaultCommissionRepository(db *gorm.DB) *DefaultCommissionRepository {
	return &DefaultCommissionRepository{DB: db}
}

func (r *DefaultCommissionRepository) InsertOrGet(ctx context.Context, c *domain.Commission, events []*domain.OutboxEvent) (*domain.Commission, bool, error) {
	var (
		stored  *domain.Commission
		created bool
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := mappers.ToGORMCommission(c)
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_payment_id"}},
			DoNothing: true,
		}).Create(model)
		if res.Error != nil {
			return fmt.Errorf("failed to insert commission: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			var existing models.CommissionModel
			if err := tx.Where("external_payment_id = ?", c.ExternalPaymentID).Take(&existing).Error; err != nil {
				return mapNotFound(err, "commission", c.ExternalPaymentID)
			}
			stored = mappers.ToDomainCommission(&existing)
			return nil
		}

		created = true
		stored = mappers.ToDomainCommission(model)
		return insertOutbox(tx, events)
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *DefaultCommissionRepository) GetByID(ctx context.Context, id string) (*domain.Commission, error) {
	var model models.CommissionModel
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, mapNotFound(err, "commission", id)
	}
	return mappers.ToDomainCommission(&model), nil
}

func (r *DefaultCommissionRepository) GetByExternalPaymentID(ctx context.Context, externalPaymentID string) (*domain.Commission, error) {
	var model models.CommissionModel
	if err := r.DB.WithContext(ctx).Where("external_payment_id = ?", externalPaymentID).Take(&model).Error; err != nil {
		return nil, mapNotFound(err, "commission", externalPaymentID)
	}
	return mappers.ToDomainCommission(&model), nil
}

func (r *DefaultCommissionRepository) List(ctx context.Context, filter domain.CommissionFilter) ([]*domain.Commission, int64, error) {
	query := r.DB.WithContext(ctx).Model(&models.CommissionModel{})
	if filter.MemberID != "" {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count commissions: %w", err)
	}

	var rows []models.CommissionModel
	if err := query.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list commissions: %w", err)
	}

	result := make([]*domain.Commission, 0, len(rows))
	for i := range rows {
		result = append(result, mappers.ToDomainCommission(&rows[i]))
	}
	return result, total, nil
}

func (r *DefaultCommissionRepository) MarkPaid(ctx context.Context, id string, from domain.CommissionStatus, paidAt time.Time, event *domain.OutboxEvent) (*domain.Commission, error) {
	var result *domain.Commission
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CommissionModel{}).
			Where("id = ? AND status = ?", id, string(from)).
			Updates(map[string]interface{}{
				"status":           string(domain.CommissionPaid),
				"payment_captured": true,
				"paid_at":          paidAt,
				"updated_at":       paidAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark commission %s paid: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrInvalidTransition
		}

		var model models.CommissionModel
		if err := tx.Where("id = ?", id).Take(&model).Error; err != nil {
			return mapNotFound(err, "commission", id)
		}

		// Заработок начисляется в той же транзакции, что и смена статуса
		credit := tx.Model(&models.MemberModel{}).
			Where("id = ?", model.MemberID).
			Updates(map[string]interface{}{
				"lifetime_earnings": gorm.Expr("lifetime_earnings + ?", model.MemberShare),
				"monthly_earnings":  gorm.Expr("monthly_earnings + ?", model.MemberShare),
				"stats_version":     gorm.Expr("stats_version + 1"),
				"updated_at":        paidAt,
			})
		if credit.Error != nil {
			return fmt.Errorf("failed to credit member %s: %w", model.MemberID, credit.Error)
		}

		result = mappers.ToDomainCommission(&model)
		return insertOutbox(tx, []*domain.OutboxEvent{event})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *DefaultCommissionRepository) UpdateStatus(ctx context.Context, upd *domain.StatusUpdate) (*domain.Commission, error) {
	var result *domain.Commission
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     string(upd.To),
			"updated_at": upd.At,
		}
		if upd.PaymentCaptured != nil {
			updates["payment_captured"] = *upd.PaymentCaptured
		}
		if upd.To.IsReversed() {
			updates["reversed_at"] = upd.At
		}

		res := tx.Model(&models.CommissionModel{}).
			Where("id = ? AND status = ?", upd.CommissionID, string(upd.From)).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update commission %s: %w", upd.CommissionID, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrInvalidTransition
		}

		var model models.CommissionModel
		if err := tx.Where("id = ?", upd.CommissionID).Take(&model).Error; err != nil {
			return mapNotFound(err, "commission", upd.CommissionID)
		}
		result = mappers.ToDomainCommission(&model)
		return insertOutbox(tx, []*domain.OutboxEvent{upd.Event})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *DefaultCommissionRepository) Reverse(ctx context.Context, id string, to domain.CommissionStatus, at time.Time, monthStart time.Time, event *domain.OutboxEvent) (*domain.Commission, *domain.EarningsDebit, error) {
	var (
		result *domain.Commission
		debit  *domain.EarningsDebit
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CommissionModel{}).
			Where("id = ? AND status = ?", id, string(domain.CommissionPaid)).
			Updates(map[string]interface{}{
				"status":      string(to),
				"reversed_at": at,
				"updated_at":  at,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to reverse commission %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrInvalidTransition
		}

		var commission models.CommissionModel
		if err := tx.Where("id = ?", id).Take(&commission).Error; err != nil {
			return mapNotFound(err, "commission", id)
		}

		// Блокируем строку участника: списание с полом в ноль требует read-modify-write
		var member models.MemberModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", commission.MemberID).
			Take(&member).Error; err != nil {
			return mapNotFound(err, "member", commission.MemberID)
		}

		applyMonthly := commission.PaidAt != nil && !commission.PaidAt.Before(monthStart)
		lifetime, lifetimeFloored := debitFloor(member.LifetimeEarnings, commission.MemberShare)
		monthly, monthlyFloored := member.MonthlyEarnings, false
		if applyMonthly {
			monthly, monthlyFloored = debitFloor(member.MonthlyEarnings, commission.MemberShare)
		}

		upd := tx.Model(&models.MemberModel{}).
			Where("id = ?", member.ID).
			Updates(map[string]interface{}{
				"lifetime_earnings": lifetime,
				"monthly_earnings":  monthly,
				"stats_version":     gorm.Expr("stats_version + 1"),
				"updated_at":        at,
			})
		if upd.Error != nil {
			return fmt.Errorf("failed to debit member %s: %w", member.ID, upd.Error)
		}

		result = mappers.ToDomainCommission(&commission)
		debit = &domain.EarningsDebit{
			Requested:       commission.MemberShare,
			LifetimeFloored: lifetimeFloored,
			MonthlyApplied:  applyMonthly,
			MonthlyFloored:  monthlyFloored,
		}
		return insertOutbox(tx, []*domain.OutboxEvent{event})
	})
	if err != nil {
		return nil, nil, err
	}
	return result, debit, nil
}

func debitFloor(balance, amount decimal.Decimal) (decimal.Decimal, bool) {
	next := balance.Sub(amount)
	if next.IsNegative() {
		return decimal.Zero, true
	}
	return next, false
}
