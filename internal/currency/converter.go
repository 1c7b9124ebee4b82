// Package currency provides the optional conversion capability the ledger
// aggregations are parameterized with. A nil Converter means "no conversion":
// aggregation never fails because rates are unavailable.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

// Converter converts an amount between two currency codes. Implementations
// must treat unknown codes as identity rather than failing.
type Converter interface {
	Convert(amount float64, from, to string) float64
	BaseCurrency() string
}

// RateService holds an in-memory rate table keyed by currency code, with all
// rates expressed relative to the loaded base currency. The table is replaced
// wholesale on every LoadRates call.
type RateService struct {
	source RateSource

	mu    sync.RWMutex
	base  string
	rates map[string]decimal.Decimal
}

var _ Converter = (*RateService)(nil)

func NewRateService(source RateSource) *RateService {
	return &RateService{
		source: source,
		rates:  make(map[string]decimal.Decimal),
	}
}

// LoadRates refreshes the whole rate table for the given base currency.
// Safe to call repeatedly, e.g. whenever the display currency changes.
func (s *RateService) LoadRates(ctx context.Context, base string) error {
	rates, err := s.source.Rates(ctx, base)
	if err != nil {
		return fmt.Errorf("load rates for %s: %w", base, err)
	}
	rates[base] = decimal.NewFromInt(1)

	s.mu.Lock()
	s.base = base
	s.rates = rates
	s.mu.Unlock()

	slog.InfoContext(ctx, "Currency rates loaded", "base", base, "count", len(rates))
	return nil
}

// Convert translates amount from one currency to another through the rate
// table. Unknown codes pass the amount through unchanged.
func (s *RateService) Convert(amount float64, from, to string) float64 {
	if from == to {
		return amount
	}

	s.mu.RLock()
	fromRate, okFrom := s.rates[from]
	toRate, okTo := s.rates[to]
	s.mu.RUnlock()

	if !okFrom || !okTo || fromRate.IsZero() {
		slog.Warn("Missing conversion rate, passing amount through",
			"from", from, "to", to)
		return amount
	}

	converted, _ := decimal.NewFromFloat(amount).Div(fromRate).Mul(toRate).Float64()
	return converted
}

// BaseCurrency returns the base the current rate table was loaded for, or the
// process default when no table has been loaded yet.
func (s *RateService) BaseCurrency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.base == "" {
		return defaultBase
	}
	return s.base
}
