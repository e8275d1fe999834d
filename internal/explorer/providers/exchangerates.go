package providers

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/country-explorer/internal/currency"
	"github.com/i474232898/country-explorer/internal/explorer"
)

// RatesClient reads the exchange rate table through the exchangeRates proxy.
type RatesClient struct {
	ep endpoint
}

func NewRatesClient(cfg Config) *RatesClient {
	return &RatesClient{ep: newEndpoint(explorer.SourceRates, cfg.ProxyBaseURL, cfg.Client)}
}

func (c *RatesClient) ExchangeRates(ctx context.Context, base string) (currency.Table, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	var values url.Values
	if base != "" {
		values = url.Values{"base": {base}}
	}
	r, err := c.ep.get(ctx, "exchangeRates.php", values)
	if err != nil {
		return currency.Table{}, err
	}

	var payload struct {
		ExchangeRate *struct {
			Base      string             `json:"base"`
			Timestamp int64              `json:"timestamp"`
			Rates     map[string]float64 `json:"rates"`
		} `json:"exchangeRate"`
	}
	if err := c.ep.decodeEnvelope(r, &payload); err != nil {
		return currency.Table{}, err
	}
	if payload.ExchangeRate == nil || payload.ExchangeRate.Rates == nil {
		return currency.Table{}, c.ep.missing("exchangeRate.rates")
	}
	if len(payload.ExchangeRate.Rates) == 0 {
		return currency.Table{}, c.ep.empty()
	}

	t := currency.Table{
		Base:  strings.ToUpper(payload.ExchangeRate.Base),
		Rates: make(map[string]float64, len(payload.ExchangeRate.Rates)),
	}
	if t.Base == "" {
		t.Base = base
	}
	for code, rate := range payload.ExchangeRate.Rates {
		t.Rates[strings.ToUpper(code)] = rate
	}
	if payload.ExchangeRate.Timestamp > 0 {
		t.Timestamp = time.Unix(payload.ExchangeRate.Timestamp, 0).UTC()
	}
	return t, nil
}
