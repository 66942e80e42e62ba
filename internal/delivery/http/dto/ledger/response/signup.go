package response

import "github.com/LavaJover/shvark-affiliate-ledger/internal/domain"

type FraudResponse struct {
	Score    int      `json:"score"`
	Decision string   `json:"decision"`
	Reasons  []string `json:"reasons,omitempty"`
	Degraded bool     `json:"degraded"`
}

func NewFraudResponse(a *domain.FraudAssessment) *FraudResponse {
	if a == nil {
		return nil
	}
	return &FraudResponse{Score: a.Score, Decision: string(a.Decision), Reasons: a.Reasons, Degraded: a.Degraded}
}

type SignupResponse struct {
	MemberID       string         `json:"memberId"`
	ReferralCode   string         `json:"referralCode"`
	Origin         string         `json:"origin"`
	ReferredBy     string         `json:"referredBy,omitempty"`
	MatchSource    string         `json:"matchSource"`
	Existing       bool           `json:"existing"`
	ReplayRejected bool           `json:"replayRejected"`
	Fraud          *FraudResponse `json:"fraud,omitempty"`
}
