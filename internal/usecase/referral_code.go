package usecase

import (
	"strings"

	"github.com/jaevor/go-nanoid"
)

const (
	referralAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralSuffixLength = 6
	referralPrefixMax    = 12
	referralPrefixDummy  = "MEMBER"
)

// ReferralCodeGenerator выдаёт коды вида JESSICA-NSZP83
type ReferralCodeGenerator struct {
	suffix func() string
}

func NewReferralCodeGenerator() (*ReferralCodeGenerator, error) {
	suffix, err := nanoid.CustomASCII(referralAlphabet, referralSuffixLength)
	if err != nil {
		return nil, err
	}
	return &ReferralCodeGenerator{suffix: suffix}, nil
}

func (g *ReferralCodeGenerator) Generate(displayName string) string {
	return referralPrefix(displayName) + "-" + g.suffix()
}

func referralPrefix(displayName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(displayName) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == referralPrefixMax {
				break
			}
		}
	}
	if b.Len() == 0 {
		return referralPrefixDummy
	}
	return b.String()
}
