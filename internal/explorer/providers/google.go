package providers

import (
	"context"
	"strings"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/country-explorer/internal/explorer"
)

// CountryLister supplies the known countries, used to map geocoder country
// names to ISO codes.
type CountryLister interface {
	Countries(ctx context.Context) ([]explorer.Country, error)
}

// GoogleGeocoder reverse-geocodes with the Google geocoding API. Google
// reports the country by name only, so results are matched against the
// country list.
type GoogleGeocoder struct {
	countries CountryLister
	circuit   *gobreaker.CircuitBreaker
	reverse   func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleGeocoder sets the package-wide API key of the geocoder library.
func NewGoogleGeocoder(apiKey string, countries CountryLister) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{
		countries: countries,
		circuit:   newBreaker("google-geocoder"),
		reverse:   geocoder.GeocodingReverse,
	}
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) ([]explorer.Country, error) {
	type outcome struct {
		addrs []geocoder.Address
		err   error
	}

	// The library has no context support; abandon the call on cancellation.
	ch := make(chan outcome, 1)
	go func() {
		res, err := g.circuit.Execute(func() (interface{}, error) {
			return g.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		})
		addrs, _ := res.([]geocoder.Address)
		ch <- outcome{addrs: addrs, err: err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return nil, explorer.TransportError(explorer.SourceGeocoder, ctx.Err())
	case out = <-ch:
	}
	if out.err != nil {
		// The library reports zero results as an error.
		if strings.Contains(strings.ToUpper(out.err.Error()), "ZERO_RESULTS") {
			return nil, nil
		}
		return nil, explorer.TransportError(explorer.SourceGeocoder, out.err)
	}
	if len(out.addrs) == 0 {
		return nil, nil
	}

	known, err := g.countries.Countries(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]explorer.Country, len(known))
	for _, c := range known {
		byName[strings.ToLower(c.Name)] = c
	}

	var found []explorer.Country
	seen := make(map[string]bool)
	for _, a := range out.addrs {
		c, ok := byName[strings.ToLower(strings.TrimSpace(a.Country))]
		if !ok || seen[c.ISO3] {
			continue
		}
		seen[c.ISO3] = true
		c.Centroid = nil
		found = append(found, c)
	}
	return found, nil
}
