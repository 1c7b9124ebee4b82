package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBase = "IDR"

// RateSource supplies a rate table for a base currency: one rate per currency
// code, each expressed as units of that currency per one unit of base.
type RateSource interface {
	Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// HTTPSource fetches rates from a JSON endpoint shaped like
// {"base": "IDR", "rates": {"USD": 0.000061, ...}}.
type HTTPSource struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPSource(endpoint string) *HTTPSource {
	return &HTTPSource{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSource) Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse rates endpoint: %w", err)
	}
	q := u.Query()
	q.Set("base", base)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rates: unexpected status %s", resp.Status)
	}

	var payload struct {
		Base  string                 `json:"base"`
		Rates map[string]json.Number `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates response: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(payload.Rates))
	for code, raw := range payload.Rates {
		rate, err := decimal.NewFromString(raw.String())
		if err != nil {
			return nil, fmt.Errorf("parse rate for %s: %w", code, err)
		}
		rates[code] = rate
	}
	return rates, nil
}

// StaticSource serves rates from a fixed table expressed per one IDR. Rates
// for any other base are derived as cross rates, so the service keeps working
// offline or in tests.
type StaticSource struct {
	PerIDR map[string]decimal.Decimal
}

func NewStaticSource() *StaticSource {
	// Rough reference rates; precision does not matter for a fallback table.
	return &StaticSource{PerIDR: map[string]decimal.Decimal{
		"IDR": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("0.000061"),
		"EUR": decimal.RequireFromString("0.000056"),
		"JPY": decimal.RequireFromString("0.0095"),
		"GBP": decimal.RequireFromString("0.000048"),
		"SGD": decimal.RequireFromString("0.000082"),
		"MYR": decimal.RequireFromString("0.00029"),
		"AUD": decimal.RequireFromString("0.000094"),
	}}
}

func (s *StaticSource) Rates(_ context.Context, base string) (map[string]decimal.Decimal, error) {
	baseRate, ok := s.PerIDR[base]
	if !ok || baseRate.IsZero() {
		return nil, fmt.Errorf("no static rates for base %s", base)
	}

	rates := make(map[string]decimal.Decimal, len(s.PerIDR))
	for code, perIDR := range s.PerIDR {
		rates[code] = perIDR.Div(baseRate)
	}
	return rates, nil
}
