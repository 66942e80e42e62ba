package kafka

import (
	"context"
	"errors"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaSubscriber struct {
	cfg    KafkaConfig
	logger *zap.Logger
}

func NewKafkaSubscriber(cfg KafkaConfig, logger *zap.Logger) *KafkaSubscriber {
	return &KafkaSubscriber{cfg: cfg, logger: logger}
}

// Subscribe читает топик в рамках consumer group. Канал закрывается,
// когда ctx отменён или reader вернул ошибку.
func (k *KafkaSubscriber) Subscribe(ctx context.Context, topic, groupID string) (<-chan domain.Message, error) {
	mechanism, err := k.cfg.saslMechanism()
	if err != nil {
		return nil, err
	}
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: k.cfg.Brokers,
		Topic:   topic,
		GroupID: groupID,
		Dialer: &kafkago.Dialer{
			ClientID:      k.cfg.ClientID,
			SASLMechanism: mechanism,
			TLS:           k.cfg.tlsConfig(),
			DualStack:     true,
		},
	})

	out := make(chan domain.Message)
	go func() {
		defer close(out)
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					k.logger.Error("kafka reader stopped", zap.String("topic", topic), zap.Error(err))
				}
				return
			}
			headers := make(map[string]string, len(m.Headers))
			for _, h := range m.Headers {
				headers[h.Key] = string(h.Value)
			}
			select {
			case out <- domain.Message{Key: m.Key, Value: m.Value, Headers: headers}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
