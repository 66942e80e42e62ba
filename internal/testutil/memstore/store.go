// Package memstore - in-memory реализации репозиториев для тестов юзкейсов.
// Повторяет семантику Postgres: уникальные ключи, условные (CAS) апдейты,
// атомарность "транзакций" под одним мьютексом. Наружу отдаются только копии.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu sync.Mutex

	creators    map[string]*domain.Creator
	members     map[string]*domain.Member
	clicks      map[string]*domain.AttributionClick
	commissions map[string]*domain.Commission
	rules       map[string]*domain.FraudRule
	assessments []*domain.FraudAssessmentLog
	runs        []*domain.ReconciliationRun
	mismatches  []*domain.ReconciliationMismatch
	outbox      []*domain.OutboxEvent

	// BeforeApplyStats вызывается без блокировки перед условной записью
	// валидатора; позволяет смоделировать конкурентную запись.
	BeforeApplyStats func(memberID string)
	// SnapshotOverride позволяет подменить снапшот после чтения.
	SnapshotOverride func(s *domain.MemberSnapshot)
}

func New() *Store {
	return &Store{
		creators:    make(map[string]*domain.Creator),
		members:     make(map[string]*domain.Member),
		clicks:      make(map[string]*domain.AttributionClick),
		commissions: make(map[string]*domain.Commission),
		rules:       make(map[string]*domain.FraudRule),
	}
}

func (s *Store) Members() *MemberRepository { return &MemberRepository{s: s} }
func (s *Store) Creators() *CreatorRepository { return &CreatorRepository{s: s} }
func (s *Store) Clicks() *AttributionRepository { return &AttributionRepository{s: s} }
func (s *Store) Commissions() *CommissionRepository { return &CommissionRepository{s: s} }
func (s *Store) Fraud() *FraudRepository { return &FraudRepository{s: s} }
func (s *Store) Reconciliation() *ReconciliationRepository { return &ReconciliationRepository{s: s} }
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{s: s} }

// AddCreator сидирует тенанта
func (s *Store) AddCreator(c domain.Creator) *domain.Creator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.creators[c.ID] = &c
	out := c
	return &out
}

// AddMember сидирует участника напрямую, минуя счётчики реферера
func (s *Store) AddMember(m domain.Member) *domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Origin == "" {
		m.Origin = domain.OriginOrganic
	}
	s.members[m.ID] = cloneMember(&m)
	return cloneMember(&m)
}

// AddCommission сидирует комиссию как есть, без проверок
func (s *Store) AddCommission(c domain.Commission) *domain.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.commissions[c.ID] = cloneCommission(&c)
	return cloneCommission(&c)
}

// SetStats перезаписывает кэшированные счётчики, имитируя дрейф
func (s *Store) SetStats(memberID string, stats domain.MemberStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.members[memberID]; ok {
		m.Stats = stats
		m.StatsVersion++
	}
}

func (s *Store) Member(id string) *domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil
	}
	return cloneMember(m)
}

func (s *Store) AllClicks() []*domain.AttributionClick {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.AttributionClick, 0, len(s.clicks))
	for _, c := range s.clicks {
		out = append(out, cloneClick(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) AllCommissions() []*domain.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Commission, 0, len(s.commissions))
	for _, c := range s.commissions {
		out = append(out, cloneCommission(c))
	}
	return out
}

func (s *Store) OutboxEvents() []*domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		out = append(out, cloneEvent(e))
	}
	return out
}

func (s *Store) Assessments() []*domain.FraudAssessmentLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.FraudAssessmentLog, 0, len(s.assessments))
	for _, a := range s.assessments {
		cp := *a
		cp.Reasons = append([]string(nil), a.Reasons...)
		out = append(out, &cp)
	}
	return out
}

// Enqueue кладёт события в outbox напрямую
func (s *Store) Enqueue(events ...*domain.OutboxEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueue(events)
}

// enqueue вызывается под s.mu
func (s *Store) enqueue(events []*domain.OutboxEvent) {
	for _, e := range events {
		if e == nil {
			continue
		}
		cp := cloneEvent(e)
		if cp.ID == "" {
			cp.ID = uuid.New().String()
		}
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now().UTC()
		}
		s.outbox = append(s.outbox, cp)
	}
}

func cloneMember(m *domain.Member) *domain.Member {
	cp := *m
	if m.ReferredBy != nil {
		ref := *m.ReferredBy
		cp.ReferredBy = &ref
	}
	return &cp
}

func cloneClick(c *domain.AttributionClick) *domain.AttributionClick {
	cp := *c
	if c.ConvertedAt != nil {
		t := *c.ConvertedAt
		cp.ConvertedAt = &t
	}
	if c.MemberID != nil {
		id := *c.MemberID
		cp.MemberID = &id
	}
	return &cp
}

func cloneCommission(c *domain.Commission) *domain.Commission {
	cp := *c
	cp.FraudReasons = append([]string(nil), c.FraudReasons...)
	if c.PaidAt != nil {
		t := *c.PaidAt
		cp.PaidAt = &t
	}
	if c.ReversedAt != nil {
		t := *c.ReversedAt
		cp.ReversedAt = &t
	}
	return &cp
}

func cloneEvent(e *domain.OutboxEvent) *domain.OutboxEvent {
	cp := *e
	cp.Payload = append([]byte(nil), e.Payload...)
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}

func floorSub(balance, amount decimal.Decimal) (decimal.Decimal, bool) {
	next := balance.Sub(amount)
	if next.IsNegative() {
		return decimal.Zero, true
	}
	return next, false
}
