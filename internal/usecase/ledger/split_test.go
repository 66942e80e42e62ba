package ledger

import (
	"testing"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Example(t *testing.T) {
	shares := DefaultSplitPolicy().Split(decimal.RequireFromString("49.99"))

	assert.Equal(t, "5.00", shares.Member.StringFixed(2))
	assert.Equal(t, "34.99", shares.Creator.StringFixed(2))
	assert.Equal(t, "10.00", shares.Platform.StringFixed(2))
}

func TestSplit_TiesOutForEveryCent(t *testing.T) {
	policy := DefaultSplitPolicy()

	for cents := int64(0); cents <= 200000; cents++ {
		amount := decimal.New(cents, -2)
		shares := policy.Split(amount)

		if !shares.Total().Equal(amount) {
			t.Fatalf("shares of %s sum to %s", amount, shares.Total())
		}
		if shares.Platform.IsNegative() {
			t.Fatalf("negative platform share for %s", amount)
		}
		if shares.Member.Exponent() < -2 || shares.Creator.Exponent() < -2 {
			t.Fatalf("share of %s not rounded to cents", amount)
		}
	}
}

func TestSplit_CeilingTiesOut(t *testing.T) {
	amount := decimal.RequireFromString("100000.00")
	shares := DefaultSplitPolicy().Split(amount)
	assert.True(t, shares.Total().Equal(amount))
	assert.Equal(t, "10000.00", shares.Member.StringFixed(2))
}

func TestParseSplitPolicy(t *testing.T) {
	policy, err := ParseSplitPolicy("0.10", "0.70")
	require.NoError(t, err)
	assert.True(t, policy.MemberRate.Equal(decimal.RequireFromString("0.1")))

	_, err = ParseSplitPolicy("0.50", "0.60")
	assert.Error(t, err)

	_, err = ParseSplitPolicy("ten", "0.70")
	assert.Error(t, err)
}

func TestNormalizeAmount(t *testing.T) {
	ceiling := decimal.RequireFromString("1000.00")

	tests := []struct {
		name    string
		amount  string
		want    string
		wantErr bool
	}{
		{"zero", "0", "0.00", false},
		{"exact cents", "49.99", "49.99", false},
		{"rounds half up", "10.005", "10.01", false},
		{"at ceiling", "1000.00", "1000.00", false},
		{"above ceiling", "1000.01", "", true},
		{"negative", "-0.01", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAmount(decimal.RequireFromString(tt.amount), ceiling)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestNormalizeCurrency(t *testing.T) {
	got, err := NormalizeCurrency(" usd ", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "USD", got)

	got, err = NormalizeCurrency("", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "EUR", got)

	_, err = NormalizeCurrency("US1", "USD")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
