package attributiondto

import "github.com/LavaJover/shvark-affiliate-ledger/internal/domain"

type RecordClickInput struct {
	ReferralCode string
	Identity     domain.Identity
	LandingPath  string
}
