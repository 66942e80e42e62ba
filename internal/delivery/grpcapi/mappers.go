package grpcapi

import (
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	statsdto "github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/dto/stats"
	"google.golang.org/protobuf/types/known/structpb"
)

// Деньги отдаются строкой с двумя знаками: float64 в Struct теряет точность.

func memberStatsToMap(s *statsdto.MemberStatsOutput) map[string]interface{} {
	return map[string]interface{}{
		"memberId":         s.MemberID,
		"referralCode":     s.ReferralCode,
		"origin":           s.Origin,
		"referredBy":       s.ReferredBy,
		"totalReferred":    float64(s.TotalReferred),
		"monthlyReferred":  float64(s.MonthlyReferred),
		"lifetimeEarnings": s.LifetimeEarnings.StringFixed(2),
		"monthlyEarnings":  s.MonthlyEarnings.StringFixed(2),
		"updatedAt":        formatTime(s.UpdatedAt),
	}
}

func commissionToMap(c *domain.Commission) map[string]interface{} {
	m := map[string]interface{}{
		"id":                c.ID,
		"externalPaymentId": c.ExternalPaymentID,
		"saleAmount":        c.SaleAmount.StringFixed(2),
		"memberShare":       c.Shares.Member.StringFixed(2),
		"creatorShare":      c.Shares.Creator.StringFixed(2),
		"platformShare":     c.Shares.Platform.StringFixed(2),
		"currency":          c.Currency,
		"status":            string(c.Status),
		"paymentCaptured":   c.PaymentCaptured,
		"fraudScore":        float64(c.FraudScore),
		"reviewFlag":        c.ReviewFlag,
		"memberId":          c.MemberID,
		"refereeId":         c.RefereeID,
		"createdAt":         formatTime(c.CreatedAt),
	}
	if c.PaidAt != nil {
		m["paidAt"] = formatTime(*c.PaidAt)
	}
	if c.ReversedAt != nil {
		m["reversedAt"] = formatTime(*c.ReversedAt)
	}
	return m
}

func fraudFlagToMap(l *domain.FraudAssessmentLog) map[string]interface{} {
	reasons := make([]interface{}, 0, len(l.Reasons))
	for _, r := range l.Reasons {
		reasons = append(reasons, r)
	}
	return map[string]interface{}{
		"id":           l.ID,
		"stage":        string(l.Stage),
		"referralCode": l.ReferralCode,
		"referrerId":   l.ReferrerID,
		"refereeId":    l.RefereeID,
		"commissionId": l.CommissionID,
		"score":        float64(l.Score),
		"decision":     string(l.Decision),
		"reasons":      reasons,
		"degraded":     l.Degraded,
		"checkedAt":    formatTime(l.CheckedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func intField(s *structpb.Struct, key string) int {
	if s == nil {
		return 0
	}
	return int(s.GetFields()[key].GetNumberValue())
}
