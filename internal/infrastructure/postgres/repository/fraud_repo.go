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

type DefaultFraudRepository struct {
	DB *gorm.DB
}

func NewDefaultFraudRepository(db *gorm.DB) *DefaultFraudRepository {
	return &DefaultFraudRepository{DB: db}
}

// ============= Снапшот активности =============

func (r *DefaultFraudRepository) LoadSnapshot(ctx context.Context, subject domain.FraudSubject, clickWindow time.Duration, now time.Time) (*domain.ActivitySnapshot, error) {
	snapshot := &domain.ActivitySnapshot{
		Subject:     subject,
		ClickWindow: clickWindow,
		CapturedAt:  now,
	}
	db := r.DB.WithContext(ctx)

	var referrer models.MemberModel
	query := db.Select("id", "referral_code", "signup_fingerprint", "signup_ip_hash")
	switch {
	case subject.ReferrerID != "":
		query = query.Where("id = ?", subject.ReferrerID)
	case subject.ReferralCode != "":
		query = query.Where("referral_code = ?", subject.ReferralCode)
	default:
		return nil, domain.NewValidationError("subject", "referrer id or referral code required")
	}
	if err := query.Take(&referrer).Error; err != nil {
		return nil, mapNotFound(err, "referrer", subject.ReferrerID+subject.ReferralCode)
	}
	snapshot.Subject.ReferrerID = referrer.ID
	snapshot.Subject.ReferralCode = referrer.ReferralCode
	snapshot.ReferrerIdentity = domain.Identity{
		Fingerprint: referrer.SignupFingerprint,
		IPHash:      referrer.SignupIPHash,
	}

	if err := db.Model(&models.AttributionClickModel{}).
		Where("referral_code = ? AND created_at >= ?", referrer.ReferralCode, now.Add(-clickWindow)).
		Count(&snapshot.RecentClicks).Error; err != nil {
		return nil, fmt.Errorf("failed to count recent clicks: %w", err)
	}

	if subject.RefereeID != "" {
		var reversals []struct {
			Status string
			Total  int64
		}
		if err := db.Model(&models.CommissionModel{}).
			Select("status, COUNT(*) AS total").
			Where("referee_id = ? AND status IN ?", subject.RefereeID,
				[]string{string(domain.CommissionRefunded), string(domain.CommissionChargedBack)}).
			Group("status").
			Scan(&reversals).Error; err != nil {
			return nil, fmt.Errorf("failed to count referee reversals: %w", err)
		}
		for _, row := range reversals {
			switch domain.CommissionStatus(row.Status) {
			case domain.CommissionRefunded:
				snapshot.RefereeRefunds = row.Total
			case domain.CommissionChargedBack:
				snapshot.RefereeChargebacks = row.Total
			}
		}
	}

	if fp := subject.RefereeIdentity.Fingerprint; fp != "" {
		query := db.Model(&models.MemberModel{}).
			Where("signup_fingerprint = ? AND id <> ?", fp, referrer.ID)
		if subject.RefereeID != "" {
			query = query.Where("id <> ?", subject.RefereeID)
		}
		if err := query.Distinct("id").Count(&snapshot.SharedDeviceMembers).Error; err != nil {
			return nil, fmt.Errorf("failed to count shared device members: %w", err)
		}
	}

	return snapshot, nil
}

// ============= Правила =============

func (r *DefaultFraudRepository) GetRules(ctx context.Context, activeOnly bool) ([]*domain.FraudRule, error) {
	query := r.DB.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var rows []models.FraudRuleModel
	if err := query.Order("priority DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch fraud rules: %w", err)
	}

	result := make([]*domain.FraudRule, 0, len(rows))
	for i := range rows {
		result = append(result, mappers.ToDomainFraudRule(&rows[i]))
	}
	return result, nil
}

func (r *DefaultFraudRepository) GetRuleByName(ctx context.Context, name string) (*domain.FraudRule, error) {
	var model models.FraudRuleModel
	if err := r.DB.WithContext(ctx).Where("name = ?", name).Take(&model).Error; err != nil {
		return nil, mapNotFound(err, "fraud rule", name)
	}
	return mappers.ToDomainFraudRule(&model), nil
}

func (r *DefaultFraudRepository) CreateRule(ctx context.Context, rule *domain.FraudRule) error {
	if err := r.DB.WithContext(ctx).Create(mappers.ToGORMFraudRule(rule)).Error; err != nil {
		return fmt.Errorf("failed to create fraud rule %s: %w", rule.Name, err)
	}
	return nil
}

func (r *DefaultFraudRepository) UpdateRule(ctx context.Context, ruleID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	res := r.DB.WithContext(ctx).
		Model(&models.FraudRuleModel{}).
		Where("id = ?", ruleID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update fraud rule %s: %w", ruleID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError("fraud rule", ruleID)
	}
	return nil
}

// ============= Аудит =============

func (r *DefaultFraudRepository) SaveAssessment(ctx context.Context, log *domain.FraudAssessmentLog) error {
	if err := r.DB.WithContext(ctx).Create(mappers.ToGORMAssessmentLog(log)).Error; err != nil {
		return fmt.Errorf("failed to save fraud assessment: %w", err)
	}
	return nil
}

func (r *DefaultFraudRepository) ListFlags(ctx context.Context, filter domain.FraudFlagFilter) ([]*domain.FraudAssessmentLog, error) {
	query := r.DB.WithContext(ctx).Model(&models.FraudAssessmentModel{})

	if filter.Decision != nil {
		query = query.Where("decision = ?", string(*filter.Decision))
	} else {
		query = query.Where("decision <> ?", string(domain.FraudApprove))
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", string(filter.Stage))
	}
	if filter.Since != nil {
		query = query.Where("checked_at >= ?", *filter.Since)
	}

	var rows []models.FraudAssessmentModel
	if err := query.Order("checked_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list fraud flags: %w", err)
	}

	result := make([]*domain.FraudAssessmentLog, 0, len(rows))
	for i := range rows {
		result = append(result, mappers.ToDomainAssessmentLog(&rows[i]))
	}
	return result, nil
}
