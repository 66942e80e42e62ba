package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionPending     CommissionStatus = "pending"
	CommissionPaid        CommissionStatus = "paid"
	CommissionHeld        CommissionStatus = "held"
	CommissionFailed      CommissionStatus = "failed"
	CommissionRefunded    CommissionStatus = "refunded"
	CommissionChargedBack CommissionStatus = "charged_back"
)

func (s CommissionStatus) IsReversed() bool {
	return s == CommissionRefunded || s == CommissionChargedBack
}

type PaymentEventType string

const (
	EventPaymentPending    PaymentEventType = "payment.pending"
	EventPaymentSucceeded  PaymentEventType = "payment.succeeded"
	EventPaymentFailed     PaymentEventType = "payment.failed"
	EventPaymentRefunded   PaymentEventType = "payment.refunded"
	EventPaymentChargeback PaymentEventType = "payment.chargeback"
)

func (t PaymentEventType) Valid() bool {
	switch t {
	case EventPaymentPending, EventPaymentSucceeded, EventPaymentFailed,
		EventPaymentRefunded, EventPaymentChargeback:
		return true
	}
	return false
}

func (t PaymentEventType) IsReversal() bool {
	return t == EventPaymentRefunded || t == EventPaymentChargeback
}

// ReversalStatus - во что превращается оплаченная комиссия при возврате
func (t PaymentEventType) ReversalStatus() CommissionStatus {
	if t == EventPaymentChargeback {
		return CommissionChargedBack
	}
	return CommissionRefunded
}

// PaymentEvent - провалидированное событие от платёжного провайдера
type PaymentEvent struct {
	ExternalPaymentID string
	MembershipID      string
	CompanyID         string
	SaleAmount        decimal.Decimal
	Currency          string
	Type              PaymentEventType
	ReceivedAt        time.Time
}

type Shares struct {
	Member   decimal.Decimal
	Creator  decimal.Decimal
	Platform decimal.Decimal
}

func (s Shares) Total() decimal.Decimal {
	return s.Member.Add(s.Creator).Add(s.Platform)
}

type Commission struct {
	ID                string
	ExternalPaymentID string
	SaleAmount        decimal.Decimal
	Shares            Shares
	Currency          string
	Status            CommissionStatus
	PaymentCaptured   bool
	FraudScore        int
	FraudReasons      []string
	ReviewFlag        bool
	MemberID          string
	RefereeID         string
	CreatorID         string
	PaidAt            *time.Time
	ReversedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SharesTieOut reports whether the three shares sum exactly to the sale amount.
func (c *Commission) SharesTieOut() bool {
	return c.Shares.Total().Equal(c.SaleAmount)
}

// StatusUpdate - условный переход статуса без движения заработка
type StatusUpdate struct {
	CommissionID    string
	From            CommissionStatus
	To              CommissionStatus
	PaymentCaptured *bool
	At              time.Time
	Event           *OutboxEvent
}

// EarningsDebit - результат списания с кэшированного заработка
type EarningsDebit struct {
	Requested       decimal.Decimal
	LifetimeFloored bool
	MonthlyApplied  bool
	MonthlyFloored  bool
}

type CommissionFilter struct {
	MemberID string
	Status   CommissionStatus
	Limit    int
	Offset   int
}

type CommissionRepository interface {
	// InsertOrGet inserts c keyed by ExternalPaymentID. When a row already
	// exists it is returned with created=false and events are not enqueued.
	InsertOrGet(ctx context.Context, c *Commission, events []*OutboxEvent) (stored *Commission, created bool, err error)
	GetByID(ctx context.Context, id string) (*Commission, error)
	GetByExternalPaymentID(ctx context.Context, externalPaymentID string) (*Commission, error)
	List(ctx context.Context, filter CommissionFilter) ([]*Commission, int64, error)
	// MarkPaid moves the commission from `from` to paid and credits the
	// earner's lifetime and monthly earnings in one transaction.
	// Returns ErrInvalidTransition if the row is no longer in `from`.
	MarkPaid(ctx context.Context, id string, from CommissionStatus, paidAt time.Time, event *OutboxEvent) (*Commission, error)
	UpdateStatus(ctx context.Context, upd *StatusUpdate) (*Commission, error)
	// Reverse moves a paid commission to `to` and debits the earner, flooring at zero.
	Reverse(ctx context.Context, id string, to CommissionStatus, at time.Time, monthStart time.Time, event *OutboxEvent) (*Commission, *EarningsDebit, error)
}
