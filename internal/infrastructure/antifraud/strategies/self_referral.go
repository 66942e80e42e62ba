package strategies

import (
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/antifraud/rules"
)

type SelfReferralStrategy struct{}

func NewSelfReferralStrategy() *SelfReferralStrategy {
	return &SelfReferralStrategy{}
}

func (s *SelfReferralStrategy) Name() string {
	return rules.TypeSelfReferral
}

func (s *SelfReferralStrategy) GetDescription() string {
	return "Реферер и реферал совпадают по устройству, сети или аккаунту"
}

func (s *SelfReferralStrategy) Check(snapshot *domain.ActivitySnapshot, rule *domain.FraudRule) (*CheckResult, error) {
	var config rules.SelfReferralConfig
	if err := rules.Decode(rule.Config, &config); err != nil {
		return nil, fmt.Errorf("self_referral rule %s: %w", rule.Name, err)
	}

	result := &CheckResult{
		RuleName:  rule.Name,
		Threshold: config.GetThreshold(),
		Details:   map[string]interface{}{},
	}

	referrer := snapshot.ReferrerIdentity
	referee := snapshot.Subject.RefereeIdentity

	if referrer.Fingerprint != "" && referrer.Fingerprint == referee.Fingerprint {
		result.Points += config.FingerprintPoints
		result.Reasons = append(result.Reasons, "self_referral:fingerprint")
	}
	if referrer.IPHash != "" && referrer.IPHash == referee.IPHash {
		result.Points += config.IPPoints
		result.Reasons = append(result.Reasons, "self_referral:ip")
	}
	if snapshot.Subject.RefereeID != "" && snapshot.Subject.RefereeID == snapshot.Subject.ReferrerID {
		result.Points += config.AccountPoints
		result.Reasons = append(result.Reasons, "self_referral:account")
	}

	result.CurrentValue = len(result.Reasons)
	result.Message = fmt.Sprintf("%d self-referral signals matched", len(result.Reasons))
	return result, nil
}
