package mappers

import (
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/postgres/models"
)

func ToDomainMember(model *models.MemberModel) *domain.Member {
	member := &domain.Member{
		ID:                model.ID,
		CreatorID:         model.CreatorID,
		DisplayName:       model.DisplayName,
		ReferralCode:      model.ReferralCode,
		ReferredBy:        model.ReferredBy,
		Origin:            domain.MemberOrigin(model.Origin),
		SignupFingerprint: model.SignupFingerprint,
		SignupIPHash:      model.SignupIPHash,
		Stats: domain.MemberStats{
			TotalReferred:    model.TotalReferred,
			MonthlyReferred:  model.MonthlyReferred,
			LifetimeEarnings: model.LifetimeEarnings,
			MonthlyEarnings:  model.MonthlyEarnings,
		},
		StatsVersion: model.StatsVersion,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
	if model.MembershipID != nil {
		member.MembershipID = *model.MembershipID
	}
	return member
}

func ToGORMMember(member *domain.Member) *models.MemberModel {
	model := &models.MemberModel{
		ID:                member.ID,
		CreatorID:         member.CreatorID,
		DisplayName:       member.DisplayName,
		ReferralCode:      member.ReferralCode,
		ReferredBy:        member.ReferredBy,
		Origin:            string(member.Origin),
		SignupFingerprint: member.SignupFingerprint,
		SignupIPHash:      member.SignupIPHash,
		TotalReferred:     member.Stats.TotalReferred,
		MonthlyReferred:   member.Stats.MonthlyReferred,
		LifetimeEarnings:  member.Stats.LifetimeEarnings,
		MonthlyEarnings:   member.Stats.MonthlyEarnings,
		StatsVersion:      member.StatsVersion,
		CreatedAt:         member.CreatedAt,
		UpdatedAt:         member.UpdatedAt,
	}
	if member.MembershipID != "" {
		id := member.MembershipID
		model.MembershipID = &id
	}
	return model
}

func ToDomainCreator(model *models.CreatorModel) *domain.Creator {
	return &domain.Creator{
		ID:             model.ID,
		Name:           model.Name,
		DestinationURL: model.DestinationURL,
		CreatedAt:      model.CreatedAt,
	}
}
