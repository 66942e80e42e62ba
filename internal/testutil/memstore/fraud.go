package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
)

type FraudRepository struct{ s *Store }

func (r *FraudRepository) LoadSnapshot(ctx context.Context, subject domain.FraudSubject, clickWindow time.Duration, now time.Time) (*domain.ActivitySnapshot, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var referrer *domain.Member
	for _, m := range s.members {
		if (subject.ReferrerID != "" && m.ID == subject.ReferrerID) ||
			(subject.ReferrerID == "" && subject.ReferralCode != "" && m.ReferralCode == subject.ReferralCode) {
			referrer = m
			break
		}
	}
	if referrer == nil {
		return nil, domain.NewNotFoundError("referrer", subject.ReferrerID+subject.ReferralCode)
	}

	snapshot := &domain.ActivitySnapshot{
		Subject:     subject,
		ClickWindow: clickWindow,
		CapturedAt:  now,
		ReferrerIdentity: domain.Identity{
			Fingerprint: referrer.SignupFingerprint,
			IPHash:      referrer.SignupIPHash,
		},
	}
	snapshot.Subject.ReferrerID = referrer.ID
	snapshot.Subject.ReferralCode = referrer.ReferralCode

	since := now.Add(-clickWindow)
	for _, c := range s.clicks {
		if c.ReferralCode == referrer.ReferralCode && !c.CreatedAt.Before(since) {
			snapshot.RecentClicks++
		}
	}
	if subject.RefereeID != "" {
		for _, c := range s.commissions {
			if c.RefereeID != subject.RefereeID {
				continue
			}
			switch c.Status {
			case domain.CommissionRefunded:
				snapshot.RefereeRefunds++
			case domain.CommissionChargedBack:
				snapshot.RefereeChargebacks++
			}
		}
	}
	if fp := subject.RefereeIdentity.Fingerprint; fp != "" {
		for _, m := range s.members {
			if m.SignupFingerprint == fp && m.ID != referrer.ID && m.ID != subject.RefereeID {
				snapshot.SharedDeviceMembers++
			}
		}
	}
	return snapshot, nil
}

func (r *FraudRepository) GetRules(ctx context.Context, activeOnly bool) ([]*domain.FraudRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.FraudRule, 0, len(r.s.rules))
	for _, rule := range r.s.rules {
		if activeOnly && !rule.IsActive {
			continue
		}
		out = append(out, cloneRule(rule))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (r *FraudRepository) GetRuleByName(ctx context.Context, name string) (*domain.FraudRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rule := range r.s.rules {
		if rule.Name == name {
			return cloneRule(rule), nil
		}
	}
	return nil, domain.NewNotFoundError("fraud rule", name)
}

func (r *FraudRepository) CreateRule(ctx context.Context, rule *domain.FraudRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rules[rule.ID] = cloneRule(rule)
	return nil
}

func (r *FraudRepository) UpdateRule(ctx context.Context, ruleID string, updates map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rule, ok := r.s.rules[ruleID]
	if !ok {
		return domain.NewNotFoundError("fraud rule", ruleID)
	}
	if v, ok := updates["config"].(map[string]interface{}); ok {
		rule.Config = v
	}
	if v, ok := updates["is_active"].(bool); ok {
		rule.IsActive = v
	}
	if v, ok := updates["priority"].(int); ok {
		rule.Priority = v
	}
	rule.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *FraudRepository) SaveAssessment(ctx context.Context, log *domain.FraudAssessmentLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *log
	cp.Reasons = append([]string(nil), log.Reasons...)
	r.s.assessments = append(r.s.assessments, &cp)
	return nil
}

func (r *FraudRepository) ListFlags(ctx context.Context, filter domain.FraudFlagFilter) ([]*domain.FraudAssessmentLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.FraudAssessmentLog
	for i := len(r.s.assessments) - 1; i >= 0; i-- {
		a := r.s.assessments[i]
		if filter.Decision != nil {
			if a.Decision != *filter.Decision {
				continue
			}
		} else if a.Decision == domain.FraudApprove {
			continue
		}
		if filter.Stage != "" && a.Stage != filter.Stage {
			continue
		}
		if filter.Since != nil && a.CheckedAt.Before(*filter.Since) {
			continue
		}
		cp := *a
		cp.Reasons = append([]string(nil), a.Reasons...)
		out = append(out, &cp)
	}
	if filter.Offset >= len(out) {
		return []*domain.FraudAssessmentLog{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func cloneRule(rule *domain.FraudRule) *domain.FraudRule {
	cp := *rule
	cp.Config = make(map[string]interface{}, len(rule.Config))
	for k, v := range rule.Config {
		cp.Config[k] = v
	}
	return &cp
}
