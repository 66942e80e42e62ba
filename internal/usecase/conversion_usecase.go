package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/metrics"
	signupdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/signup"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxSignupAttempts = 5

type ConversionUsecase interface {
	Signup(ctx context.Context, input *signupdto.SignupInput) (*signupdto.SignupOutput, error)
}

type DefaultConversionUsecase struct {
	memberRepo  domain.MemberRepository
	creatorRepo domain.CreatorRepository
	clickRepo   domain.AttributionRepository
	attribution AttributionUsecase
	hasher      domain.IdentityHasher
	fraud       domain.FraudAssessor
	cache       domain.StatsCache
	codes       *ReferralCodeGenerator
	metrics     *metrics.LedgerMetrics
	logger      *zap.Logger
	security    *zap.Logger
	now         func() time.Time
}

func NewDefaultConversionUsecase(
	memberRepo domain.MemberRepository,
	creatorRepo domain.CreatorRepository,
	clickRepo domain.AttributionRepository,
	attribution AttributionUsecase,
	hasher domain.IdentityHasher,
	fraud domain.FraudAssessor,
	cache domain.StatsCache,
	codes *ReferralCodeGenerator,
	m *metrics.LedgerMetrics,
	log *zap.Logger,
) *DefaultConversionUsecase {
	return &DefaultConversionUsecase{
		memberRepo:  memberRepo,
		creatorRepo: creatorRepo,
		clickRepo:   clickRepo,
		attribution: attribution,
		hasher:      hasher,
		fraud:       fraud,
		cache:       cache,
		codes:       codes,
		metrics:     m,
		logger:      log.With(zap.String("component", "conversion")),
		security:    logger.Security(log),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DefaultConversionUsecase) WithClock(now func() time.Time) *DefaultConversionUsecase {
	uc.now = now
	return uc
}

// match - результат поиска атрибуции для регистрации
type match struct {
	code   string
	click  *domain.AttributionClick
	source string
}

// Signup регистрирует участника и атрибутирует его рефереру.
// Кука с реферальным кодом имеет приоритет над отпечатком. Клик
// конвертируется ровно один раз: проигравшая сторона гонки или повторное
// использование клика становится органической регистрацией.
func (uc *DefaultConversionUsecase) Signup(ctx context.Context, input *signupdto.SignupInput) (*signupdto.SignupOutput, error) {
	if err := validateSignup(input); err != nil {
		return nil, err
	}
	if _, err := uc.creatorRepo.GetByID(ctx, input.CreatorID); err != nil {
		return nil, err
	}

	existing, err := uc.existingMember(ctx, input.MembershipID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existingSignup(existing), nil
	}

	identity := uc.hasher.Hash(input.UserAgent, input.ClientIP)
	m, replay, err := uc.findMatch(ctx, input, identity)
	if err != nil {
		return nil, err
	}
	output := &signupdto.SignupOutput{ReplayRejected: replay}

	for attempt := 1; ; attempt++ {
		member := uc.newMember(input, identity, m)
		rec := &domain.SignupRecord{Member: member}
		if m.click != nil {
			rec.ClickID = m.click.ID
		}
		if member.IsReferred() {
			event, err := kafka.ReferralOutboxEvent(member, rec.ClickID, m.source)
			if err != nil {
				return nil, fmt.Errorf("build referral event: %w", err)
			}
			rec.Events = []*domain.OutboxEvent{event}
		}

		err := uc.memberRepo.RegisterSignup(ctx, rec)
		switch {
		case err == nil:
			output.Member = member
			output.MatchSource = m.source
			output.ClickID = rec.ClickID
			uc.afterSignup(ctx, output, identity, m)
			return output, nil

		case errors.Is(err, domain.ErrAlreadyConverted):
			// гонка за клик проиграна, регистрируем органически
			uc.reportReplay(input, m)
			output.ReplayRejected = true
			m = match{source: signupdto.MatchNone}

		case errors.Is(err, domain.ErrDuplicateReferralCode):
			existing, lookupErr := uc.existingMember(ctx, input.MembershipID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil {
				return existingSignup(existing), nil
			}
			uc.logger.Debug("referral code collision, regenerating", zap.String("code", member.ReferralCode))

		default:
			return nil, fmt.Errorf("signup %s: %w", input.MembershipID, err)
		}

		if attempt >= maxSignupAttempts {
			return nil, fmt.Errorf("signup %s: gave up after %d attempts: %w", input.MembershipID, attempt, err)
		}
	}
}

func (uc *DefaultConversionUsecase) existingMember(ctx context.Context, membershipID string) (*domain.Member, error) {
	member, err := uc.memberRepo.GetByMembershipID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return member, nil
}

// findMatch: кука, затем отпечаток/IP. Второе значение - true, если
// найденный клик уже был использован.
func (uc *DefaultConversionUsecase) findMatch(ctx context.Context, input *signupdto.SignupInput, identity domain.Identity) (match, bool, error) {
	if code := strings.TrimSpace(input.CookieCode); code != "" {
		m, replay, ok, err := uc.matchCookie(ctx, code, input, identity)
		if err != nil || ok {
			return m, replay, err
		}
	}

	click, source, err := uc.attribution.FindActiveAttribution(ctx, identity, domain.ClickScope{CreatorID: input.CreatorID})
	if err != nil {
		return match{}, false, err
	}
	if click == nil {
		return match{source: signupdto.MatchNone}, false, nil
	}
	return match{code: click.ReferralCode, click: click, source: source}, false, nil
}

// matchCookie возвращает ok=false, если куку следует проигнорировать
func (uc *DefaultConversionUsecase) matchCookie(ctx context.Context, code string, input *signupdto.SignupInput, identity domain.Identity) (match, bool, bool, error) {
	if err := domain.ValidateReferralCode(code); err != nil {
		uc.logger.Info("ignoring malformed referral cookie", zap.String("cookie", code))
		return match{}, false, false, nil
	}
	referrer, err := uc.memberRepo.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Info("ignoring referral cookie with unknown code", zap.String("code", code))
			return match{}, false, false, nil
		}
		return match{}, false, false, err
	}
	if referrer.CreatorID != input.CreatorID {
		uc.logger.Info("ignoring referral cookie from another community",
			zap.String("code", code),
			zap.String("creator_id", input.CreatorID),
		)
		return match{}, false, false, nil
	}

	click, err := uc.clickRepo.FindLatestForCode(ctx, code, identity, uc.now())
	if err != nil {
		return match{}, false, false, err
	}
	if click == nil {
		return match{code: code, source: signupdto.MatchCookieOnly}, false, true, nil
	}
	if click.Converted {
		m := match{code: code, click: click, source: signupdto.MatchCookie}
		uc.reportReplay(input, m)
		return match{source: signupdto.MatchNone}, true, true, nil
	}
	return match{code: code, click: click, source: signupdto.MatchCookie}, false, true, nil
}

func (uc *DefaultConversionUsecase) newMember(input *signupdto.SignupInput, identity domain.Identity, m match) *domain.Member {
	now := uc.now()
	member := &domain.Member{
		ID:                uuid.New().String(),
		CreatorID:         input.CreatorID,
		MembershipID:      input.MembershipID,
		DisplayName:       input.DisplayName,
		ReferralCode:      uc.codes.Generate(input.DisplayName),
		Origin:            domain.OriginOrganic,
		SignupFingerprint: identity.Fingerprint,
		SignupIPHash:      identity.IPHash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if m.code != "" {
		code := m.code
		member.ReferredBy = &code
		member.Origin = domain.OriginReferred
	}
	return member
}

func (uc *DefaultConversionUsecase) afterSignup(ctx context.Context, output *signupdto.SignupOutput, identity domain.Identity, m match) {
	member := output.Member
	uc.metrics.RecordConversion(string(member.Origin), output.MatchSource)
	if !member.IsReferred() {
		uc.logger.Info("organic signup", zap.String("member_id", member.ID))
		return
	}

	referrer, err := uc.memberRepo.GetByReferralCode(ctx, m.code)
	if err == nil {
		uc.cache.Invalidate(referrer.ID)
	}

	// скор считается для аудита и не блокирует регистрацию
	subject := domain.FraudSubject{
		Stage:           domain.FraudStageConversion,
		ReferralCode:    m.code,
		RefereeID:       member.ID,
		RefereeIdentity: identity,
	}
	if referrer != nil {
		subject.ReferrerID = referrer.ID
	}
	output.Fraud = uc.fraud.Assess(ctx, subject)

	uc.logger.Info("referred signup",
		zap.String("member_id", member.ID),
		zap.String("referred_by", m.code),
		zap.String("match_source", output.MatchSource),
		zap.Int("fraud_score", output.Fraud.Score),
		zap.String("fraud_decision", string(output.Fraud.Decision)),
	)
}

func (uc *DefaultConversionUsecase) reportReplay(input *signupdto.SignupInput, m match) {
	uc.metrics.RecordClickReplay()
	fields := []zap.Field{
		zap.Bool("security", true),
		zap.Error(domain.ErrAlreadyConverted),
		zap.String("referral_code", m.code),
		zap.String("match_source", m.source),
		zap.String("membership_id", input.MembershipID),
	}
	if m.click != nil {
		fields = append(fields, zap.String("click_id", m.click.ID))
	}
	uc.security.Warn("attribution click replay, falling back to organic", fields...)
}

func existingSignup(member *domain.Member) *signupdto.SignupOutput {
	return &signupdto.SignupOutput{Member: member, MatchSource: signupdto.MatchNone, Existing: true}
}

func validateSignup(input *signupdto.SignupInput) error {
	if strings.TrimSpace(input.CreatorID) == "" {
		return domain.NewValidationError("creator_id", "must not be empty")
	}
	if strings.TrimSpace(input.MembershipID) == "" {
		return domain.NewValidationError("membership_id", "must not be empty")
	}
	return nil
}
