package ledger

import (
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const centPlaces = 2

// SplitPolicy - доли участника и создателя; платформа забирает остаток,
// поэтому сумма долей всегда равна сумме продажи до цента.
type SplitPolicy struct {
	MemberRate  decimal.Decimal
	CreatorRate decimal.Decimal
}

func DefaultSplitPolicy() SplitPolicy {
	return SplitPolicy{
		MemberRate:  decimal.RequireFromString("0.10"),
		CreatorRate: decimal.RequireFromString("0.70"),
	}
}

// ParseSplitPolicy разбирает ставки из конфига
func ParseSplitPolicy(memberRate, creatorRate string) (SplitPolicy, error) {
	member, err := decimal.NewFromString(memberRate)
	if err != nil {
		return SplitPolicy{}, fmt.Errorf("parse member rate: %w", err)
	}
	creator, err := decimal.NewFromString(creatorRate)
	if err != nil {
		return SplitPolicy{}, fmt.Errorf("parse creator rate: %w", err)
	}
	policy := SplitPolicy{MemberRate: member, CreatorRate: creator}
	if err := policy.Validate(); err != nil {
		return SplitPolicy{}, err
	}
	return policy, nil
}

func (p SplitPolicy) Validate() error {
	if p.MemberRate.IsNegative() || p.CreatorRate.IsNegative() {
		return fmt.Errorf("split rates cannot be negative")
	}
	if p.MemberRate.Add(p.CreatorRate).GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("member and creator rates exceed 100%%")
	}
	return nil
}

// Split делит сумму в центах. Доли участника и создателя округляются
// независимо (half away from zero), платформа получает остаток.
func (p SplitPolicy) Split(amount decimal.Decimal) domain.Shares {
	member := amount.Mul(p.MemberRate).Round(centPlaces)
	creator := amount.Mul(p.CreatorRate).Round(centPlaces)
	return domain.Shares{
		Member:   member,
		Creator:  creator,
		Platform: amount.Sub(member).Sub(creator),
	}
}

// NormalizeAmount проверяет 0 <= amount <= ceiling и приводит к центам
func NormalizeAmount(amount, ceiling decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, domain.NewValidationError("sale_amount", "must not be negative")
	}
	if amount.GreaterThan(ceiling) {
		return decimal.Zero, domain.NewValidationError("sale_amount",
			fmt.Sprintf("exceeds ceiling %s", ceiling.StringFixed(centPlaces)))
	}
	return amount.Round(centPlaces), nil
}

// NormalizeCurrency приводит код валюты к ISO-виду; пустой - валюта по умолчанию
func NormalizeCurrency(currency, fallback string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return fallback, nil
	}
	if len(currency) != 3 {
		return "", domain.NewValidationError("currency", "expected 3-letter ISO code")
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", domain.NewValidationError("currency", "expected 3-letter ISO code")
		}
	}
	return currency, nil
}
