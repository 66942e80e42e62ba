package usecase

import (
	"context"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/cache"
	statsdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/stats"
)

type StatsUsecase interface {
	GetMemberStats(ctx context.Context, memberID string) (*statsdto.MemberStatsOutput, error)
}

// DefaultStatsUsecase отдаёт проекции через кэш; кэш никогда не источник истины
type DefaultStatsUsecase struct {
	memberRepo domain.MemberRepository
	cache      *cache.StatsCache
}

func NewDefaultStatsUsecase(memberRepo domain.MemberRepository, statsCache *cache.StatsCache) *DefaultStatsUsecase {
	return &DefaultStatsUsecase{memberRepo: memberRepo, cache: statsCache}
}

func (uc *DefaultStatsUsecase) GetMemberStats(ctx context.Context, memberID string) (*statsdto.MemberStatsOutput, error) {
	if memberID == "" {
		return nil, domain.NewValidationError("member_id", "must not be empty")
	}
	member, err := uc.cache.GetOrLoad(ctx, memberID, uc.memberRepo.GetByID)
	if err != nil {
		return nil, err
	}

	out := &statsdto.MemberStatsOutput{
		MemberID:         member.ID,
		ReferralCode:     member.ReferralCode,
		Origin:           string(member.Origin),
		TotalReferred:    member.Stats.TotalReferred,
		MonthlyReferred:  member.Stats.MonthlyReferred,
		LifetimeEarnings: member.Stats.LifetimeEarnings,
		MonthlyEarnings:  member.Stats.MonthlyEarnings,
		UpdatedAt:        member.UpdatedAt,
	}
	if member.ReferredBy != nil {
		out.ReferredBy = *member.ReferredBy
	}
	return out, nil
}
