package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type ReconciliationRepository struct{ s *Store }

func (r *ReconciliationRepository) ListMemberIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]string, 0, len(r.s.members))
	for id := range r.s.members {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *ReconciliationRepository) LoadMemberSnapshot(ctx context.Context, memberID string, monthStart time.Time) (*domain.MemberSnapshot, error) {
	snapshot, err := r.loadSnapshot(memberID, monthStart)
	if err != nil {
		return nil, err
	}
	if r.s.SnapshotOverride != nil {
		r.s.SnapshotOverride(snapshot)
	}
	return snapshot, nil
}

func (r *ReconciliationRepository) loadSnapshot(memberID string, monthStart time.Time) (*domain.MemberSnapshot, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[memberID]
	if !ok {
		return nil, domain.NewNotFoundError("member", memberID)
	}

	recomputed := domain.MemberStats{
		LifetimeEarnings: decimal.Zero,
		MonthlyEarnings:  decimal.Zero,
	}
	for _, c := range s.commissions {
		if c.MemberID != memberID || c.Status != domain.CommissionPaid {
			continue
		}
		recomputed.LifetimeEarnings = recomputed.LifetimeEarnings.Add(c.Shares.Member)
		if c.PaidAt != nil && !c.PaidAt.Before(monthStart) {
			recomputed.MonthlyEarnings = recomputed.MonthlyEarnings.Add(c.Shares.Member)
		}
	}
	for _, other := range s.members {
		if other.ReferredBy == nil || *other.ReferredBy != m.ReferralCode {
			continue
		}
		recomputed.TotalReferred++
		if !other.CreatedAt.Before(monthStart) {
			recomputed.MonthlyReferred++
		}
	}

	return &domain.MemberSnapshot{
		MemberID:     m.ID,
		ReferralCode: m.ReferralCode,
		Cached:       m.Stats,
		Recomputed:   recomputed,
		StatsVersion: m.StatsVersion,
		TakenAt:      time.Now().UTC(),
	}, nil
}

func (r *ReconciliationRepository) ApplyStats(ctx context.Context, memberID string, expectedVersion int64, stats domain.MemberStats) error {
	if r.s.BeforeApplyStats != nil {
		r.s.BeforeApplyStats(memberID)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberID]
	if !ok || m.StatsVersion != expectedVersion {
		return domain.ErrStaleStats
	}
	m.Stats = stats
	m.StatsVersion = expectedVersion + 1
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ReconciliationRepository) ListUnbalancedCommissions(ctx context.Context, limit int) ([]*domain.Commission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Commission
	for _, c := range r.s.commissions {
		if !c.SharesTieOut() {
			out = append(out, cloneCommission(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReconciliationRepository) CreateRun(ctx context.Context, run *domain.ReconciliationRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *run
	r.s.runs = append(r.s.runs, &cp)
	return nil
}

func (r *ReconciliationRepository) FinishRun(ctx context.Context, run *domain.ReconciliationRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.runs {
		if existing.ID == run.ID {
			cp := *run
			r.s.runs[i] = &cp
			return nil
		}
	}
	return domain.NewNotFoundError("reconciliation run", run.ID)
}

func (r *ReconciliationRepository) SaveMismatches(ctx context.Context, mismatches []*domain.ReconciliationMismatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range mismatches {
		cp := *m
		r.s.mismatches = append(r.s.mismatches, &cp)
	}
	return nil
}

func (r *ReconciliationRepository) GetLatestRun(ctx context.Context) (*domain.ReconciliationRun, []*domain.ReconciliationMismatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.runs) == 0 {
		return nil, nil, domain.NewNotFoundError("reconciliation run", "latest")
	}
	latest := r.s.runs[0]
	for _, run := range r.s.runs[1:] {
		if !run.StartedAt.Before(latest.StartedAt) {
			latest = run
		}
	}
	var mismatches []*domain.ReconciliationMismatch
	for _, m := range r.s.mismatches {
		if m.RunID == latest.ID {
			cp := *m
			mismatches = append(mismatches, &cp)
		}
	}
	run := *latest
	return &run, mismatches, nil
}

type OutboxRepository struct{ s *Store }

func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range r.s.outbox {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, cloneEvent(e))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for _, e := range r.s.outbox {
		if _, ok := set[e.ID]; ok {
			t := at
			e.PublishedAt = &t
		}
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID == id {
			e.Attempts++
			e.LastError = reason
		}
	}
	return nil
}
