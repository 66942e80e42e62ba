package domain

import (
	"context"
	"regexp"
	"time"
)

const (
	AttributionWindow     = 30 * 24 * time.Hour
	maxReferralCodeLength = 64
)

var referralCodePattern = regexp.MustCompile(`^[A-Z0-9]+-[A-Z0-9]+$`)

func ValidateReferralCode(code string) error {
	if code == "" {
		return NewValidationError("referral_code", "must not be empty")
	}
	if len(code) > maxReferralCodeLength || !referralCodePattern.MatchString(code) {
		return NewValidationError("referral_code", "expected PREFIX-SUFFIX of uppercase letters and digits")
	}
	return nil
}

// Identity - хэшированные сигналы посетителя. Сырые UA/IP никогда не хранятся.
type Identity struct {
	Fingerprint string
	IPHash      string
}

func (i Identity) IsZero() bool {
	return i.Fingerprint == "" && i.IPHash == ""
}

type IdentityHasher interface {
	Hash(userAgent, clientIP string) Identity
}

type AttributionClick struct {
	ID           string
	ReferralCode string
	ReferrerID   string
	CreatorID    string
	Fingerprint  string
	IPHash       string
	LandingPath  string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Converted    bool
	ConvertedAt  *time.Time
	MemberID     *string
}

func (c *AttributionClick) IsActive(now time.Time) bool {
	return !c.Converted && now.Before(c.ExpiresAt)
}

// ClickScope ограничивает поиск кликов тенантом; пустой CreatorID - без ограничения
type ClickScope struct {
	CreatorID string
}

type AttributionRepository interface {
	CreateClick(ctx context.Context, click *AttributionClick) error
	// FindActiveByFingerprint returns the newest unconverted, unexpired click
	// for fingerprint or nil when there is none.
	FindActiveByFingerprint(ctx context.Context, fingerprint string, scope ClickScope, now time.Time) (*AttributionClick, error)
	FindActiveByIPHash(ctx context.Context, ipHash string, scope ClickScope, now time.Time) (*AttributionClick, error)
	// FindLatestForCode returns the newest unexpired click for code matching
	// identity (fingerprint first, then IP hash), converted or not.
	FindLatestForCode(ctx context.Context, code string, identity Identity, now time.Time) (*AttributionClick, error)
	CountClicksSince(ctx context.Context, code string, since time.Time) (int64, error)
}
