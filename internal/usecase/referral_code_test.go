package usecase

import (
	"strings"
	"testing"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralCodeGenerator(t *testing.T) {
	gen, err := NewReferralCodeGenerator()
	require.NoError(t, err)

	tests := []struct {
		displayName string
		prefix      string
	}{
		{"Jessica", "JESSICA"},
		{"jessica smith-jones", "JESSICASMITH"},
		{"  ", "MEMBER"},
		{"Зоя", "MEMBER"},
		{"R2-D2", "R2D2"},
	}
	for _, tt := range tests {
		t.Run(tt.displayName, func(t *testing.T) {
			code := gen.Generate(tt.displayName)
			require.NoError(t, domain.ValidateReferralCode(code))
			assert.True(t, strings.HasPrefix(code, tt.prefix+"-"), code)
			assert.Len(t, code, len(tt.prefix)+1+referralSuffixLength)
		})
	}
}

func TestReferralCodeGenerator_Unique(t *testing.T) {
	gen, err := NewReferralCodeGenerator()
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		seen[gen.Generate("Jessica")] = struct{}{}
	}
	assert.Greater(t, len(seen), 990)
}
