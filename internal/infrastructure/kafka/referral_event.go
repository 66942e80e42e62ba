package kafka

import (
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
)

const EventReferralConverted = "referral.converted"

type ReferralEvent struct {
	MemberID     string    `json:"member_id"`
	CreatorID    string    `json:"creator_id"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   string    `json:"referred_by"`
	ClickID      string    `json:"click_id,omitempty"`
	MatchSource  string    `json:"match_source"`
	ConvertedAt  time.Time `json:"converted_at"`
}

func ReferralOutboxEvent(m *domain.Member, clickID, matchSource string) (*domain.OutboxEvent, error) {
	payload := ReferralEvent{
		MemberID:     m.ID,
		CreatorID:    m.CreatorID,
		ReferralCode: m.ReferralCode,
		ClickID:      clickID,
		MatchSource:  matchSource,
		ConvertedAt:  m.CreatedAt,
	}
	if m.ReferredBy != nil {
		payload.ReferredBy = *m.ReferredBy
	}
	return NewOutboxEvent(domain.TopicAffiliateEvents, payload.ReferredBy, EventReferralConverted, payload)
}
