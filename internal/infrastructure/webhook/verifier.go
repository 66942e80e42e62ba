package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
)

const (
	SignatureHeader = "X-Signature"
	signaturePrefix = "sha256="

	defaultVerifyTimeout = 2 * time.Second
)

var ErrEmptySecret = errors.New("webhook secret must not be empty")

// Verifier проверяет HMAC-SHA256 подпись тела вебхука.
// Любая ошибка, включая таймаут, означает отказ.
type Verifier struct {
	secret  []byte
	timeout time.Duration
}

func NewVerifier(secret string, timeout time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	return &Verifier{secret: []byte(secret), timeout: timeout}, nil
}

// Verify сверяет заголовок вида "sha256=<hex>" с подписью body.
func (v *Verifier) Verify(ctx context.Context, header string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	if ctx.Err() != nil {
		return domain.ErrSignatureTimeout
	}

	result := make(chan error, 1)
	go func() {
		result <- v.verify(header, body)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return domain.ErrSignatureTimeout
	}
}

func (v *Verifier) verify(header string, body []byte) error {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, signaturePrefix) {
		return domain.ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil || len(got) != sha256.Size {
		return domain.ErrInvalidSignature
	}
	if !hmac.Equal(got, sum(v.secret, body)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign возвращает значение заголовка подписи для body
func Sign(secret string, body []byte) string {
	return signaturePrefix + hex.EncodeToString(sum([]byte(secret), body))
}

func sum(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
