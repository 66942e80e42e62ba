package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/webhook"
	ledgerdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/ledger"
	"go.uber.org/zap"
)

type SignatureVerifier interface {
	Verify(ctx context.Context, header string, body []byte) error
}

// PaymentProcessor - общий путь для вебхука и топика payment-events:
// подпись проверяется до любого обращения к хранилищу.
type PaymentProcessor struct {
	verifier SignatureVerifier
	ledger   LedgerUsecase
	metrics  *metrics.LedgerMetrics
	logger   *zap.Logger
	security *zap.Logger
	now      func() time.Time
}

func NewPaymentProcessor(verifier SignatureVerifier, ledger LedgerUsecase, m *metrics.LedgerMetrics, log *zap.Logger) *PaymentProcessor {
	return &PaymentProcessor{
		verifier: verifier,
		ledger:   ledger,
		metrics:  m,
		logger:   log.With(zap.String("component", "payment_webhook")),
		security: logger.Security(log),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *PaymentProcessor) Process(ctx context.Context, signature string, body []byte) (*ledgerdto.IngestResult, error) {
	if err := p.verifier.Verify(ctx, signature, body); err != nil {
		outcome := "invalid_signature"
		if errors.Is(err, domain.ErrSignatureTimeout) {
			outcome = "signature_timeout"
		}
		p.metrics.RecordWebhook(outcome)
		p.security.Warn("payment webhook rejected",
			zap.Bool("security", true),
			zap.String("outcome", outcome),
			zap.Int("body_bytes", len(body)),
		)
		return nil, err
	}

	event, err := webhook.DecodePaymentEvent(body, p.now())
	if err != nil {
		p.metrics.RecordWebhook("invalid_payload")
		p.logger.Warn("invalid payment payload", zap.Error(err))
		return nil, err
	}

	result, err := p.ledger.Ingest(ctx, event)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotAttributable):
		p.metrics.RecordWebhook("not_attributable")
		p.logger.Info("payment not attributable",
			zap.String("external_payment_id", event.ExternalPaymentID),
			zap.String("membership_id", event.MembershipID),
		)
		return nil, err
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		p.metrics.RecordWebhook("rejected")
		return nil, err
	default:
		p.metrics.RecordWebhook("error")
		p.logger.Error("failed to ingest payment",
			zap.String("external_payment_id", event.ExternalPaymentID),
			zap.Error(err),
		)
		return nil, err
	}

	if result.Duplicate {
		p.metrics.RecordWebhook("duplicate")
	} else {
		p.metrics.RecordWebhook("processed")
	}
	return result, nil
}
