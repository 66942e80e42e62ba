package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

type KafkaConfig struct {
	Brokers    []string
	ClientID   string
	Username   string
	Password   string
	Mechanism  string // "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"
	TLSEnabled bool
}

func (c KafkaConfig) saslMechanism() (sasl.Mechanism, error) {
	switch c.Mechanism {
	case "":
		return nil, nil
	case "PLAIN":
		return plain.Mechanism{Username: c.Username, Password: c.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.Username, c.Password)
	default:
		return nil, fmt.Errorf("unsupported sasl mechanism %q", c.Mechanism)
	}
}

func (c KafkaConfig) tlsConfig() *tls.Config {
	if !c.TLSEnabled {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// KafkaPublisher пишет в любой топик, топик задаётся на сообщении
type KafkaPublisher struct {
	writer *kafkago.Writer
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	mechanism, err := cfg.saslMechanism()
	if err != nil {
		return nil, err
	}
	transport := &kafkago.Transport{
		ClientID: cfg.ClientID,
		SASL:     mechanism,
		TLS:      cfg.tlsConfig(),
	}
	return &KafkaPublisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Balancer:               &kafkago.LeastBytes{},
			Transport:              transport,
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: false,
		},
	}, nil
}

func (k *KafkaPublisher) Publish(ctx context.Context, topic string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now()
	km := make([]kafkago.Message, 0, len(msgs))
	for _, m := range msgs {
		headers := make([]kafkago.Header, 0, len(m.Headers))
		for k, v := range m.Headers {
			headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
		}
		km = append(km, kafkago.Message{
			Topic:   topic,
			Key:     m.Key,
			Value:   m.Value,
			Headers: headers,
			Time:    now,
		})
	}

	if err := k.writer.WriteMessages(ctx, km...); err != nil {
		return fmt.Errorf("failed to write %d messages to %s: %w", len(km), topic, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
