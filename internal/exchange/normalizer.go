package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fincycle/internal/core"
)

// Normalizer converts minor-unit amounts into the base currency.
type Normalizer struct {
	Base     string
	Provider RateProvider
}

func NewNormalizer(base string, provider RateProvider) *Normalizer {
	return &Normalizer{Base: strings.ToUpper(base), Provider: provider}
}

// Normalize returns amountMinor in Base minor units. Amounts already in Base are
// returned unchanged; others are floor(amountMinor * rate). A provider failure
// is returned as-is, there is no fallback rate.
func (n *Normalizer) Normalize(ctx context.Context, amountMinor int64, currency string) (int64, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == n.Base {
		return amountMinor, nil
	}
	if n.Provider == nil {
		return 0, core.Upstream("normalize amount", fmt.Errorf("no rate provider for %s", currency))
	}

	rate, err := n.Provider.Rate(ctx, currency, n.Base)
	if err != nil {
		return 0, err
	}
	converted := decimal.NewFromInt(amountMinor).Mul(rate).Floor()
	if !converted.IsInteger() || converted.GreaterThan(decimal.NewFromInt(maxMinor)) {
		return 0, core.Invalid("amount", "converted amount out of range")
	}
	return converted.IntPart(), nil
}

const maxMinor = int64(^uint64(0) >> 1)

// NormalizeMoney is Normalize for a core.Money value.
func (n *Normalizer) NormalizeMoney(ctx context.Context, m core.Money) (int64, error) {
	return n.Normalize(ctx, m.Cents, m.Currency)
}
