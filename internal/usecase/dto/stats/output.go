package statsdto

import (
	"time"

	"github.com/shopspring/decimal"
)

type MemberStatsOutput struct {
	MemberID         string
	ReferralCode     string
	Origin           string
	ReferredBy       string
	TotalReferred    int64
	MonthlyReferred  int64
	LifetimeEarnings decimal.Decimal
	MonthlyEarnings  decimal.Decimal
	UpdatedAt        time.Time
}
