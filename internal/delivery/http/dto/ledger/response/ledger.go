package response

import (
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type CommissionResponse struct {
	ID                string          `json:"id"`
	ExternalPaymentID string          `json:"externalPaymentId"`
	SaleAmount        decimal.Decimal `json:"saleAmount"`
	MemberShare       decimal.Decimal `json:"memberShare"`
	CreatorShare      decimal.Decimal `json:"creatorShare"`
	PlatformShare     decimal.Decimal `json:"platformShare"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	PaymentCaptured   bool            `json:"paymentCaptured"`
	FraudScore        int             `json:"fraudScore"`
	FraudReasons      []string        `json:"fraudReasons,omitempty"`
	ReviewFlag        bool            `json:"reviewFlag"`
	MemberID          string          `json:"memberId"`
	RefereeID         string          `json:"refereeId"`
	CreatorID         string          `json:"creatorId"`
	PaidAt            *time.Time      `json:"paidAt,omitempty"`
	ReversedAt        *time.Time      `json:"reversedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func NewCommissionResponse(c *domain.Commission) CommissionResponse {
	return CommissionResponse{
		ID:                c.ID,
		ExternalPaymentID: c.ExternalPaymentID,
		SaleAmount:        c.SaleAmount,
		MemberShare:       c.Shares.Member,
		CreatorShare:      c.Shares.Creator,
		PlatformShare:     c.Shares.Platform,
		Currency:          c.Currency,
		Status:            string(c.Status),
		PaymentCaptured:   c.PaymentCaptured,
		FraudScore:        c.FraudScore,
		FraudReasons:      c.FraudReasons,
		ReviewFlag:        c.ReviewFlag,
		MemberID:          c.MemberID,
		RefereeID:         c.RefereeID,
		CreatorID:         c.CreatorID,
		PaidAt:            c.PaidAt,
		ReversedAt:        c.ReversedAt,
		CreatedAt:         c.CreatedAt,
	}
}

type ListCommissionsResponse struct {
	Commissions []CommissionResponse `json:"commissions"`
	Total       int64                `json:"total"`
}

// WebhookResponse - ответ провайдеру; status: processed, duplicate, not_attributable
type WebhookResponse struct {
	Status     string              `json:"status"`
	Commission *CommissionResponse `json:"commission,omitempty"`
}

type MemberStatsResponse struct {
	MemberID         string          `json:"memberId"`
	ReferralCode     string          `json:"referralCode"`
	Origin           string          `json:"origin"`
	ReferredBy       string          `json:"referredBy,omitempty"`
	TotalReferred    int64           `json:"totalReferred"`
	MonthlyReferred  int64           `json:"monthlyReferred"`
	LifetimeEarnings decimal.Decimal `json:"lifetimeEarnings"`
	MonthlyEarnings  decimal.Decimal `json:"monthlyEarnings"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
