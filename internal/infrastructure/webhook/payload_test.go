package webhook

import (
	"testing"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var received = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestDecodePaymentEvent(t *testing.T) {
	body := []byte(`{
		"externalPaymentId": "pay_1",
		"membershipId": "mem_sam",
		"companyId": "biz_1",
		"saleAmount": 49.99,
		"eventType": "payment.succeeded",
		"currency": "usd"
	}`)

	event, err := DecodePaymentEvent(body, received)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", event.ExternalPaymentID)
	assert.Equal(t, "mem_sam", event.MembershipID)
	assert.Equal(t, "biz_1", event.CompanyID)
	assert.True(t, event.SaleAmount.Equal(decimal.RequireFromString("49.99")))
	assert.Equal(t, domain.EventPaymentSucceeded, event.Type)
	assert.Equal(t, "usd", event.Currency)
	assert.Equal(t, received, event.ReceivedAt)
}

func TestDecodePaymentEvent_KeepsAmountPrecision(t *testing.T) {
	body := []byte(`{"externalPaymentId":"p","membershipId":"m","companyId":"c","saleAmount":0.1,"eventType":"payment.pending"}`)

	event, err := DecodePaymentEvent(body, received)
	require.NoError(t, err)
	assert.Equal(t, "0.1", event.SaleAmount.String())
	assert.Empty(t, event.Currency)
}

func TestDecodePaymentEvent_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `payment`},
		{"unknown field", `{"externalPaymentId":"p","membershipId":"m","companyId":"c","saleAmount":1,"eventType":"payment.pending","extra":true}`},
		{"unknown type", `{"externalPaymentId":"p","membershipId":"m","companyId":"c","saleAmount":1,"eventType":"payment.disputed"}`},
		{"missing membership", `{"externalPaymentId":"p","companyId":"c","saleAmount":1,"eventType":"payment.pending"}`},
		{"missing amount", `{"externalPaymentId":"p","membershipId":"m","companyId":"c","eventType":"payment.pending"}`},
		{"amount not a number", `{"externalPaymentId":"p","membershipId":"m","companyId":"c","saleAmount":"ten","eventType":"payment.pending"}`},
		{"trailing data", `{"externalPaymentId":"p","membershipId":"m","companyId":"c","saleAmount":1,"eventType":"payment.pending"} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePaymentEvent([]byte(tt.body), received)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
