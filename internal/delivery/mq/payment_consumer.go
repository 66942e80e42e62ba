package mq

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	ledgerdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/ledger"
	"go.uber.org/zap"
)

// SignatureHeader - заголовок сообщения с той же HMAC-подписью, что у вебхука
const SignatureHeader = "signature"

// ErrSubscriptionClosed: подписка закрылась, хотя ctx ещё жив (например, reader упал)
var ErrSubscriptionClosed = errors.New("payment events subscription closed")

const (
	maxProcessAttempts = 3
	retryBackoff       = 200 * time.Millisecond
)

type PaymentProcessor interface {
	Process(ctx context.Context, signature string, body []byte) (*ledgerdto.IngestResult, error)
}

// PaymentConsumer читает payment-events и прогоняет каждое сообщение
// через тот же путь проверки и записи, что и вебхук.
type PaymentConsumer struct {
	subscriber domain.SubscriberPort
	processor  PaymentProcessor
	topic      string
	groupID    string
	backoff    time.Duration
	logger     *zap.Logger
}

func NewPaymentConsumer(subscriber domain.SubscriberPort, processor PaymentProcessor, groupID string, logger *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{
		subscriber: subscriber,
		processor:  processor,
		topic:      domain.TopicPaymentEvents,
		groupID:    groupID,
		backoff:    retryBackoff,
		logger:     logger.With(zap.String("component", "payment_consumer")),
	}
}

// Run блокируется до отмены ctx или закрытия подписки. Закрытие подписки
// при живом ctx возвращает ErrSubscriptionClosed.
func (c *PaymentConsumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic, c.groupID)
	if err != nil {
		return err
	}
	c.logger.Info("consuming payment events", zap.String("topic", c.topic), zap.String("group", c.groupID))

	for msg := range messages {
		c.handle(ctx, msg)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Error("payment events subscription closed unexpectedly", zap.String("topic", c.topic))
	return ErrSubscriptionClosed
}

func (c *PaymentConsumer) handle(ctx context.Context, msg domain.Message) {
	var err error
	for attempt := 1; attempt <= maxProcessAttempts; attempt++ {
		var result *ledgerdto.IngestResult
		result, err = c.processor.Process(ctx, msg.Headers[SignatureHeader], msg.Value)
		if err == nil {
			c.logger.Debug("payment event processed",
				zap.ByteString("key", msg.Key),
				zap.Bool("duplicate", result.Duplicate),
				zap.Bool("transitioned", result.Transitioned),
			)
			return
		}
		if isPermanent(err) {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}

	level := c.logger.Warn
	if !isPermanent(err) {
		level = c.logger.Error
	}
	level("payment event dropped",
		zap.ByteString("key", msg.Key),
		zap.Error(err),
	)
}

// isPermanent: повтор не поможет
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrNotAttributable) ||
		errors.Is(err, domain.ErrInvalidSignature) ||
		errors.Is(err, domain.ErrSignatureTimeout) ||
		errors.Is(err, domain.ErrInvalidTransition)
}
