package memstore

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
)

type CreatorRepository struct{ s *Store }

func (r *CreatorRepository) GetByID(ctx context.Context, id string) (*domain.Creator, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.creators[id]
	if !ok {
		return nil, domain.NewNotFoundError("creator", id)
	}
	cp := *c
	return &cp, nil
}

type MemberRepository struct{ s *Store }

func (r *MemberRepository) RegisterSignup(ctx context.Context, rec *domain.SignupRecord) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	m := rec.Member
	for _, existing := range s.members {
		if existing.ReferralCode == m.ReferralCode ||
			(m.MembershipID != "" && existing.MembershipID == m.MembershipID) {
			return domain.ErrDuplicateReferralCode
		}
	}

	var click *domain.AttributionClick
	if rec.ClickID != "" {
		c, ok := s.clicks[rec.ClickID]
		if !ok || c.Converted {
			return domain.ErrAlreadyConverted
		}
		click = c
	}

	var referrer *domain.Member
	if m.IsReferred() {
		for _, candidate := range s.members {
			if candidate.ReferralCode == *m.ReferredBy {
				referrer = candidate
				break
			}
		}
		if referrer == nil {
			return domain.NewNotFoundError("referrer", *m.ReferredBy)
		}
	}

	// все проверки пройдены, применяем изменения целиком
	s.members[m.ID] = cloneMember(m)
	if click != nil {
		at := m.CreatedAt
		id := m.ID
		click.Converted = true
		click.ConvertedAt = &at
		click.MemberID = &id
	}
	if referrer != nil {
		referrer.Stats.TotalReferred++
		referrer.Stats.MonthlyReferred++
		referrer.StatsVersion++
		referrer.UpdatedAt = m.CreatedAt
	}
	s.enqueue(rec.Events)
	return nil
}

func (r *MemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, domain.NewNotFoundError("member", id)
	}
	return cloneMember(m), nil
}

func (r *MemberRepository) GetByReferralCode(ctx context.Context, code string) (*domain.Member, error) {
	return r.find("member", code, func(m *domain.Member) bool { return m.ReferralCode == code })
}

func (r *MemberRepository) GetByMembershipID(ctx context.Context, membershipID string) (*domain.Member, error) {
	return r.find("member", membershipID, func(m *domain.Member) bool {
		return membershipID != "" && m.MembershipID == membershipID
	})
}

func (r *MemberRepository) find(entity, key string, match func(*domain.Member) bool) (*domain.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if match(m) {
			return cloneMember(m), nil
		}
	}
	return nil, domain.NewNotFoundError(entity, key)
}

type AttributionRepository struct{ s *Store }

func (r *AttributionRepository) CreateClick(ctx context.Context, click *domain.AttributionClick) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.clicks[click.ID] = cloneClick(click)
	return nil
}

func (r *AttributionRepository) FindActiveByFingerprint(ctx context.Context, fingerprint string, scope domain.ClickScope, now time.Time) (*domain.AttributionClick, error) {
	if fingerprint == "" {
		return nil, nil
	}
	return r.newest(func(c *domain.AttributionClick) bool {
		return c.Fingerprint == fingerprint && c.IsActive(now) && inScope(c, scope)
	}), nil
}

func (r *AttributionRepository) FindActiveByIPHash(ctx context.Context, ipHash string, scope domain.ClickScope, now time.Time) (*domain.AttributionClick, error) {
	if ipHash == "" {
		return nil, nil
	}
	return r.newest(func(c *domain.AttributionClick) bool {
		return c.IPHash == ipHash && c.IsActive(now) && inScope(c, scope)
	}), nil
}

func (r *AttributionRepository) FindLatestForCode(ctx context.Context, code string, identity domain.Identity, now time.Time) (*domain.AttributionClick, error) {
	live := func(c *domain.AttributionClick) bool {
		return c.ReferralCode == code && now.Before(c.ExpiresAt)
	}
	if identity.Fingerprint != "" {
		if click := r.newest(func(c *domain.AttributionClick) bool {
			return live(c) && c.Fingerprint == identity.Fingerprint
		}); click != nil {
			return click, nil
		}
	}
	if identity.IPHash != "" {
		return r.newest(func(c *domain.AttributionClick) bool {
			return live(c) && c.IPHash == identity.IPHash
		}), nil
	}
	return nil, nil
}

func (r *AttributionRepository) CountClicksSince(ctx context.Context, code string, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.clicks {
		if c.ReferralCode == code && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *AttributionRepository) newest(match func(*domain.AttributionClick) bool) *domain.AttributionClick {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *domain.AttributionClick
	for _, c := range r.s.clicks {
		if !match(c) {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return cloneClick(best)
}

func inScope(c *domain.AttributionClick, scope domain.ClickScope) bool {
	return scope.CreatorID == "" || c.CreatorID == scope.CreatorID
}
