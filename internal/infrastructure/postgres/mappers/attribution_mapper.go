package mappers

import (
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
)

func ToDomainClick(model *models.AttributionClickModel) *domain.AttributionClick {
	return &domain.AttributionClick{
		ID:           model.ID,
		ReferralCode: model.ReferralCode,
		ReferrerID:   model.ReferrerID,
		CreatorID:    model.CreatorID,
		Fingerprint:  model.Fingerprint,
		IPHash:       model.IPHash,
		LandingPath:  model.LandingPath,
		CreatedAt:    model.CreatedAt,
		ExpiresAt:    model.ExpiresAt,
		Converted:    model.Converted,
		ConvertedAt:  model.ConvertedAt,
		MemberID:     model.MemberID,
	}
}

func ToGORMClick(click *domain.AttributionClick) *models.AttributionClickModel {
	return &models.AttributionClickModel{
		ID:           click.ID,
		ReferralCode: click.ReferralCode,
		ReferrerID:   click.ReferrerID,
		CreatorID:    click.CreatorID,
		Fingerprint:  click.Fingerprint,
		IPHash:       click.IPHash,
		LandingPath:  click.LandingPath,
		CreatedAt:    click.CreatedAt,
		ExpiresAt:    click.ExpiresAt,
		Converted:    click.Converted,
		ConvertedAt:  click.ConvertedAt,
		MemberID:     click.MemberID,
	}
}
