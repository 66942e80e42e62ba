package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/kafka"
	ledgerdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ingest обрабатывает платёжное событие:
// received -> idempotency-check -> validated -> split-computed ->
// persisted(pending|held) -> status-update -> paid|failed.
// Ключ идемпотентности - externalPaymentId; повтор возвращает сохранённую
// комиссию, а статус двигается только условными переходами.
func (uc *DefaultLedgerUsecase) Ingest(ctx context.Context, event *domain.PaymentEvent) (*ledgerdto.IngestResult, error) {
	if err := uc.validateEvent(event); err != nil {
		uc.metrics.RecordIngest(string(event.Type), "invalid")
		return nil, err
	}

	existing, err := uc.commissionRepo.GetByExternalPaymentID(ctx, event.ExternalPaymentID)
	switch {
	case err == nil:
		uc.metrics.RecordIngest(string(event.Type), "duplicate")
		return uc.applyToStored(ctx, existing, event, true, nil)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	if event.Type.IsReversal() {
		uc.metrics.RecordIngest(string(event.Type), "unknown_payment")
		return nil, domain.NewNotFoundError("commission", event.ExternalPaymentID)
	}

	referee, earner, err := uc.resolveEarner(ctx, event)
	if err != nil {
		if errors.Is(err, domain.ErrNotAttributable) {
			uc.metrics.RecordIngest(string(event.Type), "not_attributable")
		}
		return nil, err
	}

	commission := uc.buildCommission(event, referee, earner)
	assessment := uc.fraud.Assess(ctx, domain.FraudSubject{
		Stage:        domain.FraudStagePayment,
		ReferralCode: earner.ReferralCode,
		ReferrerID:   earner.ID,
		RefereeID:    referee.ID,
		RefereeIdentity: domain.Identity{
			Fingerprint: referee.SignupFingerprint,
			IPHash:      referee.SignupIPHash,
		},
		CommissionID: commission.ID,
	})
	applyAssessment(commission, assessment)

	created, err := kafka.CommissionOutboxEvent(kafka.EventCommissionCreated, commission)
	if err != nil {
		return nil, err
	}
	stored, isNew, err := uc.commissionRepo.InsertOrGet(ctx, commission, []*domain.OutboxEvent{created})
	if err != nil {
		return nil, fmt.Errorf("persist commission %s: %w", event.ExternalPaymentID, err)
	}
	if !isNew {
		// параллельная доставка того же события успела раньше
		uc.metrics.RecordIngest(string(event.Type), "duplicate")
		return uc.applyToStored(ctx, stored, event, true, nil)
	}

	uc.metrics.RecordIngest(string(event.Type), "created")
	uc.metrics.RecordCommissionShares(stored.Currency,
		stored.Shares.Member.InexactFloat64(),
		stored.Shares.Creator.InexactFloat64(),
		stored.Shares.Platform.InexactFloat64(),
	)
	uc.logger.Info("commission created",
		zap.String("commission_id", stored.ID),
		zap.String("external_payment_id", stored.ExternalPaymentID),
		zap.String("member_id", stored.MemberID),
		zap.String("status", string(stored.Status)),
		zap.String("sale_amount", stored.SaleAmount.StringFixed(2)),
		zap.Int("fraud_score", stored.FraudScore),
	)
	if assessment.Decision == domain.FraudBlock {
		uc.security.Warn("commission held by fraud engine",
			zap.Bool("security", true),
			zap.String("commission_id", stored.ID),
			zap.Strings("reasons", assessment.Reasons),
		)
	}

	return uc.applyToStored(ctx, stored, event, false, assessment)
}

func (uc *DefaultLedgerUsecase) applyToStored(ctx context.Context, c *domain.Commission, event *domain.PaymentEvent, duplicate bool, assessment *domain.FraudAssessment) (*ledgerdto.IngestResult, error) {
	updated, transitioned, err := uc.applyEvent(ctx, c, event.Type)
	if err != nil {
		return nil, err
	}
	if duplicate || transitioned {
		uc.cache.Invalidate(updated.MemberID)
	}
	return &ledgerdto.IngestResult{
		Commission:   updated,
		Duplicate:    duplicate,
		Transitioned: transitioned,
		Fraud:        assessment,
	}, nil
}

func (uc *DefaultLedgerUsecase) validateEvent(event *domain.PaymentEvent) error {
	if strings.TrimSpace(event.ExternalPaymentID) == "" {
		return domain.NewValidationError("external_payment_id", "must not be empty")
	}
	if !event.Type.Valid() {
		return domain.NewValidationError("event_type", fmt.Sprintf("unsupported %q", event.Type))
	}
	if strings.TrimSpace(event.MembershipID) == "" {
		return domain.NewValidationError("membership_id", "must not be empty")
	}
	if strings.TrimSpace(event.CompanyID) == "" {
		return domain.NewValidationError("company_id", "must not be empty")
	}

	amount, err := NormalizeAmount(event.SaleAmount, uc.cfg.SaleCeiling)
	if err != nil {
		return err
	}
	event.SaleAmount = amount

	currency, err := NormalizeCurrency(event.Currency, uc.cfg.Currency)
	if err != nil {
		return err
	}
	if currency != uc.cfg.Currency {
		return domain.NewValidationError("currency", fmt.Sprintf("only %s is supported", uc.cfg.Currency))
	}
	event.Currency = currency
	return nil
}

// resolveEarner: плательщик -> его referredBy -> владелец кода
func (uc *DefaultLedgerUsecase) resolveEarner(ctx context.Context, event *domain.PaymentEvent) (*domain.Member, *domain.Member, error) {
	referee, err := uc.memberRepo.GetByMembershipID(ctx, event.MembershipID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: unknown membership %s", domain.ErrNotAttributable, event.MembershipID)
		}
		return nil, nil, err
	}
	if referee.CreatorID != event.CompanyID {
		return nil, nil, domain.NewValidationError("company_id", "does not own the membership")
	}
	if !referee.IsReferred() {
		return nil, nil, fmt.Errorf("%w: member %s signed up organically", domain.ErrNotAttributable, referee.ID)
	}

	earner, err := uc.memberRepo.GetByReferralCode(ctx, *referee.ReferredBy)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: referrer %s not found", domain.ErrNotAttributable, *referee.ReferredBy)
		}
		return nil, nil, err
	}
	return referee, earner, nil
}

func (uc *DefaultLedgerUsecase) buildCommission(event *domain.PaymentEvent, referee, earner *domain.Member) *domain.Commission {
	now := uc.now()
	return &domain.Commission{
		ID:                uuid.New().String(),
		ExternalPaymentID: event.ExternalPaymentID,
		SaleAmount:        event.SaleAmount,
		Shares:            uc.cfg.Policy.Split(event.SaleAmount),
		Currency:          event.Currency,
		Status:            domain.CommissionPending,
		MemberID:          earner.ID,
		RefereeID:         referee.ID,
		CreatorID:         referee.CreatorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// applyAssessment: approve -> pending, review -> pending с флагом, block -> held
func applyAssessment(c *domain.Commission, a *domain.FraudAssessment) {
	c.FraudScore = a.Score
	c.FraudReasons = a.Reasons
	switch a.Decision {
	case domain.FraudBlock:
		c.Status = domain.CommissionHeld
	case domain.FraudReview:
		c.ReviewFlag = true
	}
}
