package kafka

import (
	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
)

const (
	EventCommissionCreated  = "commission.created"
	EventCommissionPaid     = "commission.paid"
	EventCommissionFailed   = "commission.failed"
	EventCommissionReversed = "commission.reversed"
	EventCommissionReleased = "commission.released"
)

type CommissionEvent struct {
	CommissionID      string   `json:"commission_id"`
	ExternalPaymentID string   `json:"external_payment_id"`
	MemberID          string   `json:"member_id"`
	RefereeID         string   `json:"referee_id"`
	CreatorID         string   `json:"creator_id"`
	Status            string   `json:"status"`
	SaleAmount        string   `json:"sale_amount"`
	MemberShare       string   `json:"member_share"`
	CreatorShare      string   `json:"creator_share"`
	PlatformShare     string   `json:"platform_share"`
	Currency          string   `json:"currency"`
	FraudScore        int      `json:"fraud_score"`
	ReviewFlag        bool     `json:"review_flag"`
	FraudReasons      []string `json:"fraud_reasons,omitempty"`
}

func NewCommissionEvent(c *domain.Commission) CommissionEvent {
	return CommissionEvent{
		CommissionID:      c.ID,
		ExternalPaymentID: c.ExternalPaymentID,
		MemberID:          c.MemberID,
		RefereeID:         c.RefereeID,
		CreatorID:         c.CreatorID,
		Status:            string(c.Status),
		SaleAmount:        c.SaleAmount.StringFixed(2),
		MemberShare:       c.Shares.Member.StringFixed(2),
		CreatorShare:      c.Shares.Creator.StringFixed(2),
		PlatformShare:     c.Shares.Platform.StringFixed(2),
		Currency:          c.Currency,
		FraudScore:        c.FraudScore,
		ReviewFlag:        c.ReviewFlag,
		FraudReasons:      c.FraudReasons,
	}
}

// CommissionOutboxEvent собирает событие для outbox, ключ - id заработавшего участника
func CommissionOutboxEvent(eventType string, c *domain.Commission) (*domain.OutboxEvent, error) {
	return NewOutboxEvent(domain.TopicAffiliateEvents, c.MemberID, eventType, NewCommissionEvent(c))
}
