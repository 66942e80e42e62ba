package mappers

import (
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
)

func ToDomainCommission(model *models.CommissionModel) *domain.Commission {
	return &domain.Commission{
		ID:                model.ID,
		ExternalPaymentID: model.ExternalPaymentID,
		SaleAmount:        model.SaleAmount,
		Shares: domain.Shares{
			Member:   model.MemberShare,
			Creator:  model.CreatorShare,
			Platform: model.PlatformShare,
		},
		Currency:        model.Currency,
		Status:          domain.CommissionStatus(model.Status),
		PaymentCaptured: model.PaymentCaptured,
		FraudScore:      model.FraudScore,
		FraudReasons:    []string(model.FraudReasons),
		ReviewFlag:      model.ReviewFlag,
		MemberID:        model.MemberID,
		RefereeID:       model.RefereeID,
		CreatorID:       model.CreatorID,
		PaidAt:          model.PaidAt,
		ReversedAt:      model.ReversedAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func ToGORMCommission(c *domain.Commission) *models.CommissionModel {
	return &models.CommissionModel{
		ID:                c.ID,
		ExternalPaymentID: c.ExternalPaymentID,
		SaleAmount:        c.SaleAmount,
		MemberShare:       c.Shares.Member,
		CreatorShare:      c.Shares.Creator,
		PlatformShare:     c.Shares.Platform,
		Currency:          c.Currency,
		Status:            string(c.Status),
		PaymentCaptured:   c.PaymentCaptured,
		FraudScore:        c.FraudScore,
		FraudReasons:      c.FraudReasons,
		ReviewFlag:        c.ReviewFlag,
		MemberID:          c.MemberID,
		RefereeID:         c.RefereeID,
		CreatorID:         c.CreatorID,
		PaidAt:            c.PaidAt,
		ReversedAt:        c.ReversedAt,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}
