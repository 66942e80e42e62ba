package background

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/reconciliation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Relay interface {
	RelayOnce(ctx context.Context) (int, error)
}

type Consumer interface {
	Run(ctx context.Context) error
}

type Options struct {
	ReconcileInterval time.Duration
	ReconcileFix      bool
	RelayInterval     time.Duration
}

type BackgroundTasks struct {
	Validator reconciliation.Validator
	// Relay и Consumer опциональны, без kafka их нет
	Relay    Relay
	Consumer Consumer
	opts     Options
	logger   *zap.Logger
}

func NewBackgroundTasks(validator reconciliation.Validator, relay Relay, consumer Consumer, opts Options, logger *zap.Logger) *BackgroundTasks {
	return &BackgroundTasks{
		Validator: validator,
		Relay:     relay,
		Consumer:  consumer,
		opts:      opts,
		logger:    logger.With(zap.String("component", "background")),
	}
}

// Run запускает все фоновые циклы и ждёт их остановки по ctx
func (bt *BackgroundTasks) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if bt.Validator != nil && bt.opts.ReconcileInterval > 0 {
		g.Go(func() error {
			bt.startReconciliation(ctx)
			return nil
		})
	}
	if bt.Relay != nil && bt.opts.RelayInterval > 0 {
		g.Go(func() error {
			bt.startOutboxRelay(ctx)
			return nil
		})
	}
	if bt.Consumer != nil {
		g.Go(func() error {
			err := bt.Consumer.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

func (bt *BackgroundTasks) startReconciliation(ctx context.Context) {
	ticker := time.NewTicker(bt.opts.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run, _, err := bt.Validator.Run(ctx, reconciliation.RunOptions{Fix: bt.opts.ReconcileFix})
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					bt.logger.Error("reconciliation run failed", zap.Error(err))
				}
				continue
			}
			bt.logRun(run)
		}
	}
}

func (bt *BackgroundTasks) logRun(run *domain.ReconciliationRun) {
	level := bt.logger.Info
	if run.Mismatches > 0 {
		level = bt.logger.Warn
	}
	level("reconciliation finished",
		zap.String("run_id", run.ID),
		zap.String("mode", string(run.Mode)),
		zap.Int("members", run.MembersScanned),
		zap.Int("mismatches", run.Mismatches),
		zap.Int("fixed", run.Fixed),
		zap.Int("conflicts", run.Conflicts),
	)
}

func (bt *BackgroundTasks) startOutboxRelay(ctx context.Context) {
	ticker := time.NewTicker(bt.opts.RelayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := bt.Relay.RelayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				bt.logger.Error("outbox relay failed", zap.Error(err))
			}
		}
	}
}
