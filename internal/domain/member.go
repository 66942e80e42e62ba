package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type MemberOrigin string

const (
	OriginReferred MemberOrigin = "referred"
	OriginOrganic  MemberOrigin = "organic"
)

// Creator - тенант, владелец сообщества
type Creator struct {
	ID             string
	Name           string
	DestinationURL string
	CreatedAt      time.Time
}

// MemberStats - кэшированные счётчики участника, сверяются валидатором
type MemberStats struct {
	TotalReferred    int64
	MonthlyReferred  int64
	LifetimeEarnings decimal.Decimal
	MonthlyEarnings  decimal.Decimal
}

type Member struct {
	ID                string
	CreatorID         string
	MembershipID      string
	DisplayName       string
	ReferralCode      string
	ReferredBy        *string
	Origin            MemberOrigin
	SignupFingerprint string
	SignupIPHash      string
	Stats             MemberStats
	StatsVersion      int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (m *Member) IsReferred() bool {
	return m.ReferredBy != nil && *m.ReferredBy != ""
}

// SignupRecord - всё, что должно попасть в базу одной транзакцией при регистрации
type SignupRecord struct {
	Member  *Member
	ClickID string
	Events  []*OutboxEvent
}

type MemberRepository interface {
	// RegisterSignup atomically converts ClickID (if set), inserts the member,
	// bumps the referrer's counters and enqueues Events.
	// Returns ErrAlreadyConverted when the click was taken by a concurrent signup
	// and ErrDuplicateReferralCode on a code collision.
	RegisterSignup(ctx context.Context, rec *SignupRecord) error
	GetByID(ctx context.Context, id string) (*Member, error)
	GetByReferralCode(ctx context.Context, code string) (*Member, error)
	GetByMembershipID(ctx context.Context, membershipID string) (*Member, error)
}

type CreatorRepository interface {
	GetByID(ctx context.Context, id string) (*Creator, error)
}

// StatsCache инвалидирует проекции статистики после записи
type StatsCache interface {
	Invalidate(memberID string)
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Consistent: месячные значения не могут превышать накопленные
func (s MemberStats) Consistent() bool {
	return s.MonthlyReferred <= s.TotalReferred &&
		!s.MonthlyEarnings.GreaterThan(s.LifetimeEarnings)
}
