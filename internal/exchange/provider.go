// Package exchange converts foreign-currency amounts into a workspace's base
// currency using rates fetched from an external HTTP API.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fincycle/internal/core"
)

// RateProvider returns how many units of `to` one unit of `from` buys.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

const defaultTimeout = 10 * time.Second

// HTTPProvider reads rates from an ExchangeRate-API style endpoint:
// GET {baseURL}/{from} returning {"conversion_rates": {"BRL": 5.12, ...}}.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

type ratesResponse struct {
	Result          string                     `json:"result"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+from, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, core.Upstream("fetch exchange rates", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, core.Upstream("fetch exchange rates",
			fmt.Errorf("status %d for base %s", resp.StatusCode, from))
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, core.Upstream("decode exchange rates", err)
	}

	rate, ok := body.ConversionRates[to]
	if !ok {
		return decimal.Zero, core.Upstream("read exchange rate",
			fmt.Errorf("no %s rate for base %s", to, from))
	}
	if !rate.IsPositive() {
		return decimal.Zero, core.Upstream("read exchange rate",
			fmt.Errorf("non-positive %s rate for base %s: %s", to, from, rate))
	}
	return rate, nil
}
