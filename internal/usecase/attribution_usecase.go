package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/metrics"
	attributiondto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/attribution"
	signupdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/signup"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AttributionUsecase interface {
	RecordClick(ctx context.Context, input *attributiondto.RecordClickInput) (*attributiondto.RecordClickOutput, error)
	FindActiveAttribution(ctx context.Context, identity domain.Identity, scope domain.ClickScope) (*domain.AttributionClick, string, error)
}

type DefaultAttributionUsecase struct {
	clickRepo   domain.AttributionRepository
	memberRepo  domain.MemberRepository
	creatorRepo domain.CreatorRepository
	window      time.Duration
	metrics     *metrics.LedgerMetrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewDefaultAttributionUsecase(
	clickRepo domain.AttributionRepository,
	memberRepo domain.MemberRepository,
	creatorRepo domain.CreatorRepository,
	window time.Duration,
	m *metrics.LedgerMetrics,
	logger *zap.Logger,
) *DefaultAttributionUsecase {
	if window <= 0 {
		window = domain.AttributionWindow
	}
	return &DefaultAttributionUsecase{
		clickRepo:   clickRepo,
		memberRepo:  memberRepo,
		creatorRepo: creatorRepo,
		window:      window,
		metrics:     m,
		logger:      logger.With(zap.String("component", "attribution")),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DefaultAttributionUsecase) WithClock(now func() time.Time) *DefaultAttributionUsecase {
	uc.now = now
	return uc
}

// RecordClick пишет клик по реферальной ссылке. Клики не дедуплицируются:
// каждый переход - отдельная строка, это сигнал для click_velocity.
func (uc *DefaultAttributionUsecase) RecordClick(ctx context.Context, input *attributiondto.RecordClickInput) (*attributiondto.RecordClickOutput, error) {
	if err := domain.ValidateReferralCode(input.ReferralCode); err != nil {
		uc.metrics.RecordClick("invalid")
		return nil, err
	}

	referrer, err := uc.memberRepo.GetByReferralCode(ctx, input.ReferralCode)
	if err != nil {
		uc.metrics.RecordClick("unknown_code")
		return nil, err
	}

	now := uc.now()
	click := &domain.AttributionClick{
		ID:           uuid.New().String(),
		ReferralCode: referrer.ReferralCode,
		ReferrerID:   referrer.ID,
		CreatorID:    referrer.CreatorID,
		Fingerprint:  input.Identity.Fingerprint,
		IPHash:       input.Identity.IPHash,
		LandingPath:  input.LandingPath,
		CreatedAt:    now,
		ExpiresAt:    now.Add(uc.window),
	}
	if err := uc.clickRepo.CreateClick(ctx, click); err != nil {
		uc.metrics.RecordClick("error")
		return nil, fmt.Errorf("record click for %s: %w", input.ReferralCode, err)
	}
	uc.metrics.RecordClick("recorded")

	output := &attributiondto.RecordClickOutput{Click: click}
	creator, err := uc.creatorRepo.GetByID(ctx, referrer.CreatorID)
	if err != nil {
		// клик уже записан; без адреса назначения отправим на fallback
		uc.logger.Warn("creator lookup failed after click",
			zap.String("creator_id", referrer.CreatorID),
			zap.Error(err),
		)
		return output, nil
	}
	output.DestinationURL = creator.DestinationURL
	return output, nil
}

// FindActiveAttribution возвращает самый свежий живой клик: сначала по
// отпечатку, затем по IP. nil - атрибуции нет, участник органический.
func (uc *DefaultAttributionUsecase) FindActiveAttribution(ctx context.Context, identity domain.Identity, scope domain.ClickScope) (*domain.AttributionClick, string, error) {
	now := uc.now()

	click, err := uc.clickRepo.FindActiveByFingerprint(ctx, identity.Fingerprint, scope, now)
	if err != nil {
		return nil, "", err
	}
	if click != nil {
		return click, signupdto.MatchFingerprint, nil
	}

	click, err = uc.clickRepo.FindActiveByIPHash(ctx, identity.IPHash, scope, now)
	if err != nil {
		return nil, "", err
	}
	if click != nil {
		return click, signupdto.MatchIP, nil
	}
	return nil, "", nil
}
