package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers  = 4
	defaultPageSize = 500
)

// moneyEpsilon - расхождение меньше цента не считается дрейфом
var moneyEpsilon = decimal.New(1, -2)

type RunOptions struct {
	Fix bool
}

type Validator interface {
	Run(ctx context.Context, opts RunOptions) (*domain.ReconciliationRun, []*domain.ReconciliationMismatch, error)
	Latest(ctx context.Context) (*domain.ReconciliationRun, []*domain.ReconciliationMismatch, error)
}

// DefaultValidator пересчитывает кэшированные счётчики участников из
// леджера. Каждый участник сверяется по своему согласованному снапшоту,
// исправление - одна условная запись по stats_version, глобальных
// блокировок нет.
type DefaultValidator struct {
	repo     domain.ReconciliationRepository
	cache    domain.StatsCache
	metrics  *metrics.LedgerMetrics
	logger   *zap.Logger
	workers  int
	pageSize int
	now      func() time.Time
}

func NewDefaultValidator(
	repo domain.ReconciliationRepository,
	cache domain.StatsCache,
	m *metrics.LedgerMetrics,
	logger *zap.Logger,
	workers, pageSize int,
) *DefaultValidator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &DefaultValidator{
		repo:     repo,
		cache:    cache,
		metrics:  m,
		logger:   logger.With(zap.String("component", "reconciliation")),
		workers:  workers,
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (v *DefaultValidator) WithClock(now func() time.Time) *DefaultValidator {
	v.now = now
	return v
}

type tally struct {
	mu         sync.Mutex
	scanned    int
	mismatches []*domain.ReconciliationMismatch
}

func (t *tally) add(scanned int, found []*domain.ReconciliationMismatch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scanned += scanned
	t.mismatches = append(t.mismatches, found...)
}

func (v *DefaultValidator) Run(ctx context.Context, opts RunOptions) (*domain.ReconciliationRun, []*domain.ReconciliationMismatch, error) {
	started := v.now()
	mode := domain.ReconcileReport
	if opts.Fix {
		mode = domain.ReconcileFix
	}
	run := &domain.ReconciliationRun{
		ID:        uuid.New().String(),
		Mode:      mode,
		StartedAt: started,
	}
	if err := v.repo.CreateRun(ctx, run); err != nil {
		return nil, nil, err
	}
	v.logger.Info("reconciliation started", zap.String("run_id", run.ID), zap.String("mode", string(mode)))

	result := &tally{}
	runErr := v.scanMembers(ctx, run.ID, opts.Fix, result)
	if runErr == nil {
		runErr = v.auditSplits(ctx, run.ID, result)
	}

	for _, m := range result.mismatches {
		v.metrics.RecordMismatch(string(m.Field), string(m.Action))
		switch m.Action {
		case domain.ActionFixed:
			run.Fixed++
		case domain.ActionSkipped:
			run.Skipped++
		case domain.ActionConflict:
			run.Conflicts++
		}
	}
	run.MembersScanned = result.scanned
	run.Mismatches = len(result.mismatches)

	// фоновые записи отчёта не должны теряться из-за отменённого контекста запуска
	persistCtx := context.WithoutCancel(ctx)
	if err := v.repo.SaveMismatches(persistCtx, result.mismatches); err != nil && runErr == nil {
		runErr = err
	}
	finished := v.now()
	run.FinishedAt = &finished
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := v.repo.FinishRun(persistCtx, run); err != nil {
		v.logger.Error("failed to persist reconciliation run", zap.String("run_id", run.ID), zap.Error(err))
	}
	v.metrics.RecordReconciliationRun(string(mode), finished.Sub(started).Seconds())

	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.Int("members_scanned", run.MembersScanned),
		zap.Int("mismatches", run.Mismatches),
		zap.Int("fixed", run.Fixed),
		zap.Int("skipped", run.Skipped),
		zap.Int("conflicts", run.Conflicts),
	}
	if runErr != nil {
		v.logger.Error("reconciliation failed", append(fields, zap.Error(runErr))...)
		return run, result.mismatches, runErr
	}
	v.logger.Info("reconciliation finished", fields...)
	return run, result.mismatches, nil
}

func (v *DefaultValidator) Latest(ctx context.Context) (*domain.ReconciliationRun, []*domain.ReconciliationMismatch, error) {
	return v.repo.GetLatestRun(ctx)
}

func (v *DefaultValidator) scanMembers(ctx context.Context, runID string, fix bool, result *tally) error {
	monthStart := domain.MonthStart(v.now())
	afterID := ""
	for {
		ids, err := v.repo.ListMemberIDs(ctx, afterID, v.pageSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(v.workers)
		for _, id := range ids {
			g.Go(func() error {
				found, err := v.checkMember(gctx, runID, id, monthStart, fix)
				if err != nil {
					return fmt.Errorf("member %s: %w", id, err)
				}
				result.add(1, found)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if len(ids) < v.pageSize {
			return nil
		}
		afterID = ids[len(ids)-1]
	}
}

func (v *DefaultValidator) checkMember(ctx context.Context, runID, memberID string, monthStart time.Time, fix bool) ([]*domain.ReconciliationMismatch, error) {
	snap, err := v.repo.LoadMemberSnapshot(ctx, memberID, monthStart)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	found := Compare(snap)
	if len(found) == 0 {
		return nil, nil
	}

	action := domain.ActionReported
	switch {
	case !snap.Recomputed.Consistent():
		// пересчёт сам себе противоречит: не пишем заведомо неверные данные
		action = domain.ActionSkipped
		v.logger.Warn("recomputed stats are inconsistent, member skipped",
			zap.String("member_id", memberID),
			zap.Int64("monthly_referred", snap.Recomputed.MonthlyReferred),
			zap.Int64("total_referred", snap.Recomputed.TotalReferred),
			zap.String("monthly_earnings", snap.Recomputed.MonthlyEarnings.StringFixed(2)),
			zap.String("lifetime_earnings", snap.Recomputed.LifetimeEarnings.StringFixed(2)),
		)
	case fix:
		err := v.repo.ApplyStats(ctx, memberID, snap.StatsVersion, snap.Recomputed)
		switch {
		case err == nil:
			action = domain.ActionFixed
			v.cache.Invalidate(memberID)
		case errors.Is(err, domain.ErrStaleStats):
			action = domain.ActionConflict
		default:
			return nil, err
		}
	}

	detected := v.now()
	for _, m := range found {
		m.ID = uuid.New().String()
		m.RunID = runID
		m.Action = action
		m.DetectedAt = detected
		v.logger.Warn("stats mismatch",
			zap.String("member_id", memberID),
			zap.String("field", string(m.Field)),
			zap.String("cached", m.Cached),
			zap.String("recomputed", m.Recomputed),
			zap.String("action", string(action)),
		)
	}
	return found, nil
}

// auditSplits отчитывается о комиссиях, доли которых не сходятся с суммой.
// Такие строки не исправляются автоматически.
func (v *DefaultValidator) auditSplits(ctx context.Context, runID string, result *tally) error {
	unbalanced, err := v.repo.ListUnbalancedCommissions(ctx, v.pageSize)
	if err != nil {
		return err
	}
	detected := v.now()
	found := make([]*domain.ReconciliationMismatch, 0, len(unbalanced))
	for _, c := range unbalanced {
		found = append(found, &domain.ReconciliationMismatch{
			ID:           uuid.New().String(),
			RunID:        runID,
			CommissionID: c.ID,
			Field:        domain.FieldCommissionSplit,
			Cached:       c.Shares.Total().StringFixed(2),
			Recomputed:   c.SaleAmount.StringFixed(2),
			Action:       domain.ActionReported,
			DetectedAt:   detected,
		})
		v.logger.Error("commission shares do not tie out",
			zap.String("commission_id", c.ID),
			zap.String("sale_amount", c.SaleAmount.StringFixed(2)),
			zap.String("shares_total", c.Shares.Total().StringFixed(2)),
		)
	}
	result.add(0, found)
	return nil
}

// Compare возвращает расхождения между кэшем и пересчётом
func Compare(snap *domain.MemberSnapshot) []*domain.ReconciliationMismatch {
	var out []*domain.ReconciliationMismatch
	add := func(field domain.StatsField, cached, recomputed string) {
		out = append(out, &domain.ReconciliationMismatch{
			MemberID:   snap.MemberID,
			Field:      field,
			Cached:     cached,
			Recomputed: recomputed,
		})
	}

	c, r := snap.Cached, snap.Recomputed
	if c.TotalReferred != r.TotalReferred {
		add(domain.FieldTotalReferred, strconv.FormatInt(c.TotalReferred, 10), strconv.FormatInt(r.TotalReferred, 10))
	}
	if c.MonthlyReferred != r.MonthlyReferred {
		add(domain.FieldMonthlyReferred, strconv.FormatInt(c.MonthlyReferred, 10), strconv.FormatInt(r.MonthlyReferred, 10))
	}
	if moneyDiffers(c.LifetimeEarnings, r.LifetimeEarnings) {
		add(domain.FieldLifetimeEarnings, c.LifetimeEarnings.StringFixed(2), r.LifetimeEarnings.StringFixed(2))
	}
	if moneyDiffers(c.MonthlyEarnings, r.MonthlyEarnings) {
		add(domain.FieldMonthlyEarnings, c.MonthlyEarnings.StringFixed(2), r.MonthlyEarnings.StringFixed(2))
	}
	return out
}

func moneyDiffers(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThanOrEqual(moneyEpsilon)
}
