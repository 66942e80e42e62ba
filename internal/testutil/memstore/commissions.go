package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
)

type CommissionRepository struct{ s *Store }

func (r *CommissionRepository) InsertOrGet(ctx context.Context, c *domain.Commission, events []*domain.OutboxEvent) (*domain.Commission, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.commissions {
		if existing.ExternalPaymentID == c.ExternalPaymentID {
			return cloneCommission(existing), false, nil
		}
	}
	s.commissions[c.ID] = cloneCommission(c)
	s.enqueue(events)
	return cloneCommission(c), true, nil
}

func (r *CommissionRepository) GetByID(ctx context.Context, id string) (*domain.Commission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.commissions[id]
	if !ok {
		return nil, domain.NewNotFoundError("commission", id)
	}
	return cloneCommission(c), nil
}

func (r *CommissionRepository) GetByExternalPaymentID(ctx context.Context, externalPaymentID string) (*domain.Commission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.commissions {
		if c.ExternalPaymentID == externalPaymentID {
			return cloneCommission(c), nil
		}
	}
	return nil, domain.NewNotFoundError("commission", externalPaymentID)
}

func (r *CommissionRepository) List(ctx context.Context, filter domain.CommissionFilter) ([]*domain.Commission, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*domain.Commission
	for _, c := range r.s.commissions {
		if filter.MemberID != "" && c.MemberID != filter.MemberID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if filter.Offset > len(matched) {
		matched = nil
	} else {
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	out := make([]*domain.Commission, 0, len(matched))
	for _, c := range matched {
		out = append(out, cloneCommission(c))
	}
	return out, total, nil
}

func (r *CommissionRepository) MarkPaid(ctx context.Context, id string, from domain.CommissionStatus, paidAt time.Time, event *domain.OutboxEvent) (*domain.Commission, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commissions[id]
	if !ok || c.Status != from {
		return nil, domain.ErrInvalidTransition
	}
	c.Status = domain.CommissionPaid
	c.PaymentCaptured = true
	at := paidAt
	c.PaidAt = &at
	c.UpdatedAt = paidAt

	if m, ok := s.members[c.MemberID]; ok {
		m.Stats.LifetimeEarnings = m.Stats.LifetimeEarnings.Add(c.Shares.Member)
		m.Stats.MonthlyEarnings = m.Stats.MonthlyEarnings.Add(c.Shares.Member)
		m.StatsVersion++
		m.UpdatedAt = paidAt
	}
	s.enqueue([]*domain.OutboxEvent{event})
	return cloneCommission(c), nil
}

func (r *CommissionRepository) UpdateStatus(ctx context.Context, upd *domain.StatusUpdate) (*domain.Commission, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commissions[upd.CommissionID]
	if !ok || c.Status != upd.From {
		return nil, domain.ErrInvalidTransition
	}
	c.Status = upd.To
	c.UpdatedAt = upd.At
	if upd.PaymentCaptured != nil {
		c.PaymentCaptured = *upd.PaymentCaptured
	}
	if upd.To.IsReversed() {
		at := upd.At
		c.ReversedAt = &at
	}
	s.enqueue([]*domain.OutboxEvent{upd.Event})
	return cloneCommission(c), nil
}

func (r *CommissionRepository) Reverse(ctx context.Context, id string, to domain.CommissionStatus, at time.Time, monthStart time.Time, event *domain.OutboxEvent) (*domain.Commission, *domain.EarningsDebit, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commissions[id]
	if !ok || c.Status != domain.CommissionPaid {
		return nil, nil, domain.ErrInvalidTransition
	}
	m, ok := s.members[c.MemberID]
	if !ok {
		return nil, nil, domain.NewNotFoundError("member", c.MemberID)
	}

	c.Status = to
	reversedAt := at
	c.ReversedAt = &reversedAt
	c.UpdatedAt = at

	debit := &domain.EarningsDebit{Requested: c.Shares.Member}
	m.Stats.LifetimeEarnings, debit.LifetimeFloored = floorSub(m.Stats.LifetimeEarnings, c.Shares.Member)
	if c.PaidAt != nil && !c.PaidAt.Before(monthStart) {
		debit.MonthlyApplied = true
		m.Stats.MonthlyEarnings, debit.MonthlyFloored = floorSub(m.Stats.MonthlyEarnings, c.Shares.Member)
	}
	m.StatsVersion++
	m.UpdatedAt = at

	s.enqueue([]*domain.OutboxEvent{event})
	return cloneCommission(c), debit, nil
}
