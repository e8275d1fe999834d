package currency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable is returned whenever a conversion cannot be produced.
var ErrUnavailable = errors.New("currency conversion unavailable")

// Convert multiplies amount by rate and rounds the result to cents.
// A missing, zero, negative or non-finite rate yields ErrUnavailable.
func Convert(amount, rate float64) (float64, error) {
	if !finite(rate) || rate <= 0 {
		return 0, ErrUnavailable
	}
	if !finite(amount) {
		return 0, ErrUnavailable
	}
	v := math.Round(amount*rate*100) / 100
	if !finite(v) {
		return 0, ErrUnavailable
	}
	return v, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Table is an exchange rate table relative to Base: 1 Base = Rates[code] code.
type Table struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	Timestamp time.Time          `json:"timestamp"`
}

// Rate looks up the rate for code.
func (t Table) Rate(code string) (float64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || t.Rates == nil {
		return 0, ErrUnavailable
	}
	r, ok := t.Rates[code]
	if !ok || !finite(r) || r <= 0 {
		return 0, ErrUnavailable
	}
	return r, nil
}

// RateSource fetches a fresh rate table.
type RateSource interface {
	ExchangeRates(ctx context.Context, base string) (Table, error)
}

// Quote is the outcome of a conversion through a Converter.
type Quote struct {
	Base      string  `json:"base"`
	Target    string  `json:"target"`
	Rate      float64 `json:"rate"`
	Amount    float64 `json:"amount"`
	Converted float64 `json:"converted"`
}

// Converter holds the most recently loaded rate table and target currency.
type Converter struct {
	mu     sync.RWMutex
	source RateSource
	table  *Table
	target string
}

// NewConverter creates a Converter. source may be nil when tables are only
// pushed through SetTable.
func NewConverter(source RateSource) *Converter {
	return &Converter{source: source}
}

// LoadRate fetches the table for base and makes it current.
func (c *Converter) LoadRate(ctx context.Context, base string) (Table, error) {
	if c.source == nil {
		return Table{}, fmt.Errorf("load rates for %s: no rate source configured", base)
	}
	t, err := c.source.ExchangeRates(ctx, base)
	if err != nil {
		return Table{}, fmt.Errorf("load rates for %s: %w", base, err)
	}
	c.SetTable(t)
	return t, nil
}

// SetTable replaces the current table.
func (c *Converter) SetTable(t Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = &t
}

// SetTarget sets the currency amounts are converted into. An empty code
// makes conversion unavailable.
func (c *Converter) SetTarget(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = strings.ToUpper(strings.TrimSpace(code))
}

// Target returns the current target currency code.
func (c *Converter) Target() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

// Base returns the base currency of the loaded table, or "" if none.
func (c *Converter) Base() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.table == nil {
		return ""
	}
	return c.table.Base
}

// Convert converts amount of the table's base currency into the target.
func (c *Converter) Convert(amount float64) (Quote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.table == nil || c.target == "" {
		return Quote{}, ErrUnavailable
	}
	rate, err := c.table.Rate(c.target)
	if err != nil {
		return Quote{}, err
	}
	v, err := Convert(amount, rate)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Base:      c.table.Base,
		Target:    c.target,
		Rate:      rate,
		Amount:    amount,
		Converted: v,
	}, nil
}
