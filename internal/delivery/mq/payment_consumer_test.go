package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	ledgerdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Process(ctx context.Context, signature string, body []byte) (*ledgerdto.IngestResult, error) {
	args := m.Called(ctx, signature, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerdto.IngestResult), args.Error(1)
}

type chanSubscriber struct {
	ch      chan domain.Message
	topic   string
	groupID string
}

func (s *chanSubscriber) Subscribe(ctx context.Context, topic, groupID string) (<-chan domain.Message, error) {
	s.topic, s.groupID = topic, groupID
	return s.ch, nil
}

func runConsumer(t *testing.T, proc *MockProcessor, msgs ...domain.Message) *chanSubscriber {
	t.Helper()
	sub := &chanSubscriber{ch: make(chan domain.Message, len(msgs))}
	for _, m := range msgs {
		sub.ch <- m
	}
	close(sub.ch)

	consumer := NewPaymentConsumer(sub, proc, "affiliate-ledger", zap.NewNop())
	consumer.backoff = time.Millisecond
	require.ErrorIs(t, consumer.Run(context.Background()), ErrSubscriptionClosed)
	return sub
}

func TestPaymentConsumer_ProcessesSignedMessages(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Process", mock.Anything, "sha256=abc", []byte(`{"a":1}`)).Return(&ledgerdto.IngestResult{}, nil).Once()
	proc.On("Process", mock.Anything, "", []byte(`{"b":2}`)).Return(nil, domain.ErrInvalidSignature).Once()

	sub := runConsumer(t, proc,
		domain.Message{Key: []byte("pay_1"), Value: []byte(`{"a":1}`), Headers: map[string]string{SignatureHeader: "sha256=abc"}},
		domain.Message{Key: []byte("pay_2"), Value: []byte(`{"b":2}`)},
	)

	assert.Equal(t, domain.TopicPaymentEvents, sub.topic)
	assert.Equal(t, "affiliate-ledger", sub.groupID)
	proc.AssertExpectations(t)
}

func TestPaymentConsumer_RetriesTransientErrors(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Process", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Twice()
	proc.On("Process", mock.Anything, mock.Anything, mock.Anything).Return(&ledgerdto.IngestResult{}, nil).Once()

	runConsumer(t, proc, domain.Message{Value: []byte(`{}`)})

	proc.AssertNumberOfCalls(t, "Process", 3)
}

func TestPaymentConsumer_GivesUpAfterMaxAttempts(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Process", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	runConsumer(t, proc, domain.Message{Value: []byte(`{}`)})

	proc.AssertNumberOfCalls(t, "Process", maxProcessAttempts)
}

func TestPaymentConsumer_CancelledContextIsNotAFailure(t *testing.T) {
	proc := new(MockProcessor)
	sub := &chanSubscriber{ch: make(chan domain.Message)}
	consumer := NewPaymentConsumer(sub, proc, "affiliate-ledger", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Run(ctx) }()

	cancel()
	close(sub.ch)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrSubscriptionClosed)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	proc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentConsumer_ReaderFailureSurfacesAsError(t *testing.T) {
	proc := new(MockProcessor)
	sub := &chanSubscriber{ch: make(chan domain.Message)}
	close(sub.ch)

	consumer := NewPaymentConsumer(sub, proc, "affiliate-ledger", zap.NewNop())
	err := consumer.Run(context.Background())

	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, isPermanent(domain.NewValidationError("x", "y")))
	assert.True(t, isPermanent(domain.ErrNotAttributable))
	assert.False(t, isPermanent(errors.New("timeout")))
}
