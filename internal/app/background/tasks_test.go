package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/reconciliation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingValidator struct {
	runs atomic.Int32
	fix  atomic.Bool
}

func (v *countingValidator) Run(ctx context.Context, opts reconciliation.RunOptions) (*domain.ReconciliationRun, []*domain.ReconciliationMismatch, error) {
	v.runs.Add(1)
	v.fix.Store(opts.Fix)
	return &domain.ReconciliationRun{ID: "run", Mode: domain.ReconcileFix}, nil, nil
}

func (v *countingValidator) Latest(ctx context.Context) (*domain.ReconciliationRun, []*domain.ReconciliationMismatch, error) {
	return nil, nil, domain.ErrNotFound
}

type countingRelay struct {
	calls atomic.Int32
}

func (r *countingRelay) RelayOnce(ctx context.Context) (int, error) {
	if r.calls.Add(1) == 1 {
		return 0, errors.New("broker unavailable")
	}
	return 1, nil
}

type blockingConsumer struct {
	started atomic.Bool
}

func (c *blockingConsumer) Run(ctx context.Context) error {
	c.started.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func TestBackgroundTasks_RunsLoopsUntilCancelled(t *testing.T) {
	validator := &countingValidator{}
	relay := &countingRelay{}
	consumer := &blockingConsumer{}

	bt := NewBackgroundTasks(validator, relay, consumer, Options{
		ReconcileInterval: 5 * time.Millisecond,
		ReconcileFix:      true,
		RelayInterval:     5 * time.Millisecond,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bt.Run(ctx) }()

	require.Eventually(t, func() bool {
		return validator.runs.Load() >= 2 && relay.calls.Load() >= 2 && consumer.started.Load()
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, validator.fix.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("background tasks did not stop")
	}
}

func TestBackgroundTasks_ConsumerFailureStopsGroup(t *testing.T) {
	bt := NewBackgroundTasks(&countingValidator{}, nil, consumerFunc(func(ctx context.Context) error {
		return errors.New("subscribe failed")
	}), Options{ReconcileInterval: time.Hour}, zap.NewNop())

	err := bt.Run(context.Background())
	assert.EqualError(t, err, "subscribe failed")
}

type consumerFunc func(ctx context.Context) error

func (f consumerFunc) Run(ctx context.Context) error { return f(ctx) }
