package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/kafka"
	"go.uber.org/zap"
)

// applyEvent двигает статус комиссии по типу события. Все переходы
// условные (WHERE status = from): повтор события или проигранная гонка -
// no-op, возвращается актуальное состояние.
//
//	payment.pending    -> без перехода
//	payment.succeeded  pending -> paid (начисление), held -> held + paymentCaptured
//	payment.failed     pending|held -> failed
//	payment.refunded   paid -> refunded (списание), pending|held -> refunded
//	payment.chargeback paid -> charged_back (списание), pending|held -> charged_back
func (uc *DefaultLedgerUsecase) applyEvent(ctx context.Context, c *domain.Commission, eventType domain.PaymentEventType) (*domain.Commission, bool, error) {
	var (
		updated *domain.Commission
		err     error
	)

	switch eventType {
	case domain.EventPaymentSucceeded:
		switch {
		case c.Status == domain.CommissionPending:
			updated, err = uc.markPaid(ctx, c, domain.CommissionPending, kafka.EventCommissionPaid)
		case c.Status == domain.CommissionHeld && !c.PaymentCaptured:
			captured := true
			updated, err = uc.commissionRepo.UpdateStatus(ctx, &domain.StatusUpdate{
				CommissionID:    c.ID,
				From:            domain.CommissionHeld,
				To:              domain.CommissionHeld,
				PaymentCaptured: &captured,
				At:              uc.now(),
			})
		default:
			return c, false, nil
		}

	case domain.EventPaymentFailed:
		if c.Status != domain.CommissionPending && c.Status != domain.CommissionHeld {
			return c, false, nil
		}
		updated, err = uc.updateStatus(ctx, c, domain.CommissionFailed, kafka.EventCommissionFailed)

	case domain.EventPaymentRefunded, domain.EventPaymentChargeback:
		to := eventType.ReversalStatus()
		switch c.Status {
		case domain.CommissionPaid:
			updated, err = uc.reverse(ctx, c, to)
		case domain.CommissionPending, domain.CommissionHeld:
			updated, err = uc.updateStatus(ctx, c, to, kafka.EventCommissionReversed)
		default:
			return c, false, nil
		}

	default:
		return c, false, nil
	}

	if errors.Is(err, domain.ErrInvalidTransition) {
		uc.logger.Info("commission changed concurrently, transition skipped",
			zap.String("commission_id", c.ID),
			zap.String("event_type", string(eventType)),
		)
		current, getErr := uc.commissionRepo.GetByID(ctx, c.ID)
		if getErr != nil {
			return nil, false, getErr
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	uc.metrics.RecordTransition(string(c.Status), string(updated.Status))
	return updated, true, nil
}

func (uc *DefaultLedgerUsecase) markPaid(ctx context.Context, c *domain.Commission, from domain.CommissionStatus, eventType string) (*domain.Commission, error) {
	paidAt := uc.now()
	next := *c
	next.Status = domain.CommissionPaid
	next.PaymentCaptured = true
	next.PaidAt = &paidAt

	event, err := kafka.CommissionOutboxEvent(eventType, &next)
	if err != nil {
		return nil, err
	}
	updated, err := uc.commissionRepo.MarkPaid(ctx, c.ID, from, paidAt, event)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("commission paid",
		zap.String("commission_id", c.ID),
		zap.String("member_id", c.MemberID),
		zap.String("member_share", c.Shares.Member.StringFixed(2)),
	)
	return updated, nil
}

func (uc *DefaultLedgerUsecase) updateStatus(ctx context.Context, c *domain.Commission, to domain.CommissionStatus, eventType string) (*domain.Commission, error) {
	next := *c
	next.Status = to
	event, err := kafka.CommissionOutboxEvent(eventType, &next)
	if err != nil {
		return nil, err
	}
	return uc.commissionRepo.UpdateStatus(ctx, &domain.StatusUpdate{
		CommissionID: c.ID,
		From:         c.Status,
		To:           to,
		At:           uc.now(),
		Event:        event,
	})
}

// reverse - компенсирующее списание с оплаченной комиссии, заработок не уходит ниже нуля
func (uc *DefaultLedgerUsecase) reverse(ctx context.Context, c *domain.Commission, to domain.CommissionStatus) (*domain.Commission, error) {
	now := uc.now()
	next := *c
	next.Status = to
	event, err := kafka.CommissionOutboxEvent(kafka.EventCommissionReversed, &next)
	if err != nil {
		return nil, err
	}

	updated, debit, err := uc.commissionRepo.Reverse(ctx, c.ID, to, now, domain.MonthStart(now), event)
	if err != nil {
		return nil, err
	}

	if debit.LifetimeFloored {
		uc.metrics.RecordFloorHit(string(domain.FieldLifetimeEarnings))
	}
	if debit.MonthlyFloored {
		uc.metrics.RecordFloorHit(string(domain.FieldMonthlyEarnings))
	}
	if debit.LifetimeFloored || debit.MonthlyFloored {
		uc.logger.Error("earnings debit floored at zero, upstream ledger inconsistency",
			zap.String("commission_id", c.ID),
			zap.String("member_id", c.MemberID),
			zap.String("requested", debit.Requested.StringFixed(2)),
			zap.Bool("lifetime_floored", debit.LifetimeFloored),
			zap.Bool("monthly_floored", debit.MonthlyFloored),
		)
	}
	uc.logger.Info("commission reversed",
		zap.String("commission_id", c.ID),
		zap.String("status", string(to)),
		zap.Bool("monthly_applied", debit.MonthlyApplied),
	)
	return updated, nil
}

// Release снимает ручной холд: paid, если платёж уже подтверждён, иначе pending
func (uc *DefaultLedgerUsecase) Release(ctx context.Context, commissionID string) (*domain.Commission, error) {
	c, err := uc.commissionRepo.GetByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CommissionHeld {
		return nil, fmt.Errorf("release commission %s in status %s: %w", c.ID, c.Status, domain.ErrInvalidTransition)
	}

	var updated *domain.Commission
	if c.PaymentCaptured {
		updated, err = uc.markPaid(ctx, c, domain.CommissionHeld, kafka.EventCommissionReleased)
	} else {
		updated, err = uc.updateStatus(ctx, c, domain.CommissionPending, kafka.EventCommissionReleased)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil, fmt.Errorf("release commission %s: %w", c.ID, err)
		}
		return nil, err
	}

	uc.metrics.RecordTransition(string(c.Status), string(updated.Status))
	uc.cache.Invalidate(updated.MemberID)
	uc.security.Info("held commission released",
		zap.Bool("security", true),
		zap.String("commission_id", updated.ID),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}
