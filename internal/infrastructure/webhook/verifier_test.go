package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func TestVerifier(t *testing.T) {
	v, err := NewVerifier(testSecret, time.Second)
	require.NoError(t, err)
	body := []byte(`{"externalPaymentId":"pay_1"}`)
	valid := Sign(testSecret, body)

	tests := []struct {
		name   string
		header string
		body   []byte
		want   error
	}{
		{"valid", valid, body, nil},
		{"valid with spaces", "  " + valid + " ", body, nil},
		{"tampered body", valid, []byte(`{"externalPaymentId":"pay_2"}`), domain.ErrInvalidSignature},
		{"other secret", Sign("other", body), body, domain.ErrInvalidSignature},
		{"missing header", "", body, domain.ErrInvalidSignature},
		{"no prefix", valid[len("sha256="):], body, domain.ErrInvalidSignature},
		{"not hex", "sha256=zz", body, domain.ErrInvalidSignature},
		{"truncated", valid[:len(valid)-2], body, domain.ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(context.Background(), tt.header, tt.body)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifier_CancelledContextFailsClosed(t *testing.T) {
	v, err := NewVerifier(testSecret, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := []byte("{}")
	err = v.Verify(ctx, Sign(testSecret, body), body)
	assert.ErrorIs(t, err, domain.ErrSignatureTimeout)
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier("", time.Second)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
