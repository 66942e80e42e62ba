package identity

import (
	"encoding/hex"
	"errors"
	"net"
	"strings"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"golang.org/x/crypto/blake2b"
)

const (
	tagFingerprint = "fp"
	tagIP          = "ip"
	minKeyLength   = 16
)

var ErrInvalidKey = errors.New("identity hash key must be 16..64 bytes")

// Hasher строит ключевые BLAKE2b-256 хэши UA и IP.
// Одинаковый вход и ключ дают одинаковый результат, сырые значения не сохраняются.
type Hasher struct {
	key []byte
}

func NewHasher(key string) (*Hasher, error) {
	if len(key) < minKeyLength || len(key) > blake2b.Size {
		return nil, ErrInvalidKey
	}
	return &Hasher{key: []byte(key)}, nil
}

// Hash returns a fingerprint over the normalized user agent and IP, plus a
// separate IP-only hash. Empty inputs still hash.
func (h *Hasher) Hash(userAgent, clientIP string) domain.Identity {
	ua := NormalizeUserAgent(userAgent)
	ip := NormalizeIP(clientIP)
	return domain.Identity{
		Fingerprint: h.sum(tagFingerprint, ua, ip),
		IPHash:      h.sum(tagIP, ip),
	}
}

func (h *Hasher) sum(tag string, parts ...string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// ключ проверен в NewHasher
		panic(err)
	}
	mac.Write([]byte(tag))
	for _, p := range parts {
		mac.Write([]byte{0})
		mac.Write([]byte(p))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

func NormalizeUserAgent(ua string) string {
	return strings.Join(strings.Fields(ua), " ")
}

// NormalizeIP strips an optional port and brackets and returns the canonical
// textual form. IPv4-mapped IPv6 addresses collapse to IPv4.
func NormalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	raw = strings.Trim(raw, "[]")
	ip := net.ParseIP(raw)
	if ip == nil {
		return strings.ToLower(raw)
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}
