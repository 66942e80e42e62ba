package signupdto

import "github.com/LavaJover/shvark-affiliate-ledger/internal/domain"

// Источники атрибуции при регистрации
const (
	MatchCookie      = "cookie"
	MatchCookieOnly  = "cookie_only"
	MatchFingerprint = "fingerprint"
	MatchIP          = "ip"
	MatchNone        = "none"
)

type SignupOutput struct {
	Member      *domain.Member
	MatchSource string
	ClickID     string
	// Existing - участник с таким membershipId уже был зарегистрирован
	Existing bool
	// ReplayRejected - найденный клик уже был сконвертирован, участник стал органическим
	ReplayRejected bool
	Fraud          *domain.FraudAssessment
}
