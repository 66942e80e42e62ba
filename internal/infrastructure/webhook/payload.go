package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentPayload - тело вебхука платёжного провайдера как оно приходит по сети
type PaymentPayload struct {
	ExternalPaymentID string      `json:"externalPaymentId"`
	MembershipID      string      `json:"membershipId"`
	CompanyID         string      `json:"companyId"`
	SaleAmount        json.Number `json:"saleAmount"`
	EventType         string      `json:"eventType"`
	Currency          string      `json:"currency,omitempty"`
}

// DecodePaymentEvent строго разбирает тело: неизвестные поля, лишние данные
// после объекта и незнакомые типы событий отклоняются.
func DecodePaymentEvent(body []byte, receivedAt time.Time) (*domain.PaymentEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var p PaymentPayload
	if err := dec.Decode(&p); err != nil {
		return nil, domain.NewValidationError("body", err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, domain.NewValidationError("body", "unexpected data after payload")
	}
	return p.ToEvent(receivedAt)
}

func (p *PaymentPayload) ToEvent(receivedAt time.Time) (*domain.PaymentEvent, error) {
	required := []struct {
		field, value string
	}{
		{"externalPaymentId", p.ExternalPaymentID},
		{"membershipId", p.MembershipID},
		{"companyId", p.CompanyID},
		{"eventType", p.EventType},
		{"saleAmount", p.SaleAmount.String()},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, domain.NewValidationError(r.field, "is required")
		}
	}

	eventType := domain.PaymentEventType(p.EventType)
	if !eventType.Valid() {
		return nil, domain.NewValidationError("eventType", fmt.Sprintf("unsupported event type %q", p.EventType))
	}
	amount, err := decimal.NewFromString(p.SaleAmount.String())
	if err != nil {
		return nil, domain.NewValidationError("saleAmount", "must be a decimal number")
	}

	return &domain.PaymentEvent{
		ExternalPaymentID: strings.TrimSpace(p.ExternalPaymentID),
		MembershipID:      strings.TrimSpace(p.MembershipID),
		CompanyID:         strings.TrimSpace(p.CompanyID),
		SaleAmount:        amount,
		Currency:          p.Currency,
		Type:              eventType,
		ReceivedAt:        receivedAt,
	}, nil
}
