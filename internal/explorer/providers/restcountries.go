package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/i474232898/country-explorer/internal/explorer"
)

// CountryClient fetches country facts through the restCountries proxy.
type CountryClient struct {
	ep endpoint
}

func NewCountryClient(cfg Config) *CountryClient {
	return &CountryClient{ep: newEndpoint(explorer.SourceFacts, cfg.ProxyBaseURL, cfg.Client)}
}

type restCountry struct {
	CCA2 string `json:"cca2"`
	CCA3 string `json:"cca3"`
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Capital    []string        `json:"capital"`
	Region     string          `json:"region"`
	Subregion  string          `json:"subregion"`
	Population int64           `json:"population"`
	Flag       string          `json:"flag"`
	LatLng     []float64       `json:"latlng"`
	Currencies json.RawMessage `json:"currencies"`
}

func (c *CountryClient) CountryFacts(ctx context.Context, iso3 string) (explorer.CountryFacts, error) {
	r, err := c.ep.get(ctx, "restCountries.php", url.Values{"country": {iso3}})
	if err != nil {
		return explorer.CountryFacts{}, err
	}

	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.ep.decodeEnvelope(r, &payload); err != nil {
		return explorer.CountryFacts{}, err
	}
	if len(payload.Data) == 0 {
		return explorer.CountryFacts{}, c.ep.missing("data")
	}
	if string(payload.Data) == "null" {
		return explorer.CountryFacts{}, c.ep.empty()
	}

	var rc restCountry
	if err := json.Unmarshal(payload.Data, &rc); err != nil {
		return explorer.CountryFacts{}, explorer.ShapeError(explorer.SourceFacts, fmt.Errorf("decode data: %w", err))
	}
	if rc.CCA3 == "" {
		return explorer.CountryFacts{}, c.ep.missing("data.cca3")
	}
	currencies, err := orderedCurrencies(rc.Currencies)
	if err != nil {
		return explorer.CountryFacts{}, explorer.ShapeError(explorer.SourceFacts, err)
	}

	facts := explorer.CountryFacts{
		ISO2:         strings.ToUpper(rc.CCA2),
		ISO3:         strings.ToUpper(rc.CCA3),
		CommonName:   rc.Name.Common,
		OfficialName: rc.Name.Official,
		Region:       rc.Region,
		Subregion:    rc.Subregion,
		Population:   rc.Population,
		Flag:         rc.Flag,
		Currencies:   currencies,
	}
	if len(rc.Capital) > 0 {
		facts.Capital = rc.Capital[0]
	}
	if len(rc.LatLng) == 2 {
		facts.LatLng = &explorer.Coord{Lat: rc.LatLng[0], Lon: rc.LatLng[1]}
	}
	return facts, nil
}

// orderedCurrencies decodes the currencies object in document order; the
// first entry is the one shown and converted.
func orderedCurrencies(raw json.RawMessage) ([]explorer.CurrencyInfo, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode currencies: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("decode currencies: expected an object")
	}

	var out []explorer.CurrencyInfo
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode currencies: %w", err)
		}
		code, ok := tok.(string)
		if !ok {
			return nil, errors.New("decode currencies: expected a currency code")
		}
		var cur struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		}
		if err := dec.Decode(&cur); err != nil {
			return nil, fmt.Errorf("decode currency %s: %w", code, err)
		}
		out = append(out, explorer.CurrencyInfo{
			Code:   strings.ToUpper(code),
			Name:   cur.Name,
			Symbol: cur.Symbol,
		})
	}
	return out, nil
}
