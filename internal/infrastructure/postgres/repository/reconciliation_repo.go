package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DefaultReconciliationRepository struct {
	DB *gorm.DB
}

func NewDefaultReconciliationRepository(db *gorm.DB) *DefaultReconciliationRepository {
	return &DefaultReconciliationRepository{DB: db}
}

func (r *DefaultReconciliationRepository) ListMemberIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	query := r.DB.WithContext(ctx).Model(&models.MemberModel{})
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	var ids []string
	if err := query.Order("id ASC").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to page members: %w", err)
	}
	return ids, nil
}

// LoadMemberSnapshot читает кэш и пересчёт в одной REPEATABLE READ транзакции,
// чтобы сравнение шло по одному согласованному срезу.
func (r *DefaultReconciliationRepository) LoadMemberSnapshot(ctx context.Context, memberID string, monthStart time.Time) (*domain.MemberSnapshot, error) {
	var snapshot *domain.MemberSnapshot
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.MemberModel
		if err := tx.Where("id = ?", memberID).Take(&member).Error; err != nil {
			return mapNotFound(err, "member", memberID)
		}

		var earnings struct {
			Lifetime decimal.Decimal
			Monthly  decimal.Decimal
		}
		if err := tx.Model(&models.CommissionModel{}).
			Select("COALESCE(SUM(member_share), 0) AS lifetime, "+
				"COALESCE(SUM(member_share) FILTER (WHERE paid_at >= ?), 0) AS monthly", monthStart).
			Where("member_id = ? AND status = ?", memberID, string(domain.CommissionPaid)).
			Scan(&earnings).Error; err != nil {
			return fmt.Errorf("failed to sum earnings: %w", err)
		}

		var counts struct {
			Total   int64
			Monthly int64
		}
		if err := tx.Model(&models.MemberModel{}).
			Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE created_at >= ?) AS monthly", monthStart).
			Where("referred_by = ?", member.ReferralCode).
			Scan(&counts).Error; err != nil {
			return fmt.Errorf("failed to count referrals: %w", err)
		}

		snapshot = &domain.MemberSnapshot{
			MemberID:     member.ID,
			ReferralCode: member.ReferralCode,
			Cached: domain.MemberStats{
				TotalReferred:    member.TotalReferred,
				MonthlyReferred:  member.MonthlyReferred,
				LifetimeEarnings: member.LifetimeEarnings,
				MonthlyEarnings:  member.MonthlyEarnings,
			},
			Recomputed: domain.MemberStats{
				TotalReferred:    counts.Total,
				MonthlyReferred:  counts.Monthly,
				LifetimeEarnings: earnings.Lifetime,
				MonthlyEarnings:  earnings.Monthly,
			},
			StatsVersion: member.StatsVersion,
			TakenAt:      time.Now().UTC(),
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *DefaultReconciliationRepository) ApplyStats(ctx context.Context, memberID string, expectedVersion int64, stats domain.MemberStats) error {
	res := r.DB.WithContext(ctx).Model(&models.MemberModel{}).
		Where("id = ? AND stats_version = ?", memberID, expectedVersion).
		Updates(map[string]interface{}{
			"total_referred":    stats.TotalReferred,
			"monthly_referred":  stats.MonthlyReferred,
			"lifetime_earnings": stats.LifetimeEarnings,
			"monthly_earnings":  stats.MonthlyEarnings,
			"stats_version":     expectedVersion + 1,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to apply stats for member %s: %w", memberID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleStats
	}
	return nil
}

func (r *DefaultReconciliationRepository) ListUnbalancedCommissions(ctx context.Context, limit int) ([]*domain.Commission, error) {
	var rows []models.CommissionModel
	if err := r.DB.WithContext(ctx).
		Where("member_share + creator_share + platform_share <> sale_amount").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to audit commission splits: %w", err)
	}
	result := make([]*domain.Commission, 0, len(rows))
	for i := range rows {
		result = append(result, mappers.ToDomainCommission(&rows[i]))
	}
	return result, nil
}

func (r *DefaultReconciliationRepository) CreateRun(ctx context.Context, run *domain.ReconciliationRun) error {
	if err := r.DB.WithContext(ctx).Create(mappers.ToGORMRun(run)).Error; err != nil {
		return fmt.Errorf("failed to create reconciliation run: %w", err)
	}
	return nil
}

func (r *DefaultReconciliationRepository) FinishRun(ctx context.Context, run *domain.ReconciliationRun) error {
	if err := r.DB.WithContext(ctx).Save(mappers.ToGORMRun(run)).Error; err != nil {
		return fmt.Errorf("failed to finish reconciliation run %s: %w", run.ID, err)
	}
	return nil
}

func (r *DefaultReconciliationRepository) SaveMismatches(ctx context.Context, mismatches []*domain.ReconciliationMismatch) error {
	if len(mismatches) == 0 {
		return nil
	}
	rows := make([]*models.ReconciliationMismatchModel, 0, len(mismatches))
	for _, m := range mismatches {
		rows = append(rows, mappers.ToGORMMismatch(m))
	}
	if err := r.DB.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("failed to save mismatches: %w", err)
	}
	return nil
}

func (r *DefaultReconciliationRepository) GetLatestRun(ctx context.Context) (*domain.ReconciliationRun, []*domain.ReconciliationMismatch, error) {
	var run models.ReconciliationRunModel
	if err := r.DB.WithContext(ctx).Order("started_at DESC").Take(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.NewNotFoundError("reconciliation run", "latest")
		}
		return nil, nil, fmt.Errorf("failed to load latest run: %w", err)
	}

	var rows []models.ReconciliationMismatchModel
	if err := r.DB.WithContext(ctx).Where("run_id = ?", run.ID).Order("detected_at ASC").Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load mismatches: %w", err)
	}
	mismatches := make([]*domain.ReconciliationMismatch, 0, len(rows))
	for i := range rows {
		mismatches = append(mismatches, mappers.ToDomainMismatch(&rows[i]))
	}
	return mappers.ToDomainRun(&run), mismatches, nil
}
