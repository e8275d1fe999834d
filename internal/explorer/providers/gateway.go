package providers

import (
	"github.com/i474232898/country-explorer/internal/explorer"
)

// Gateway is the HTTP implementation of explorer.Gateway. Each provider has
// its own client and circuit breaker.
type Gateway struct {
	*BorderClient
	*CountryClient
	*GeonamesClient
	*WeatherClient
	*WikipediaClient
	*NewsClient
	*RatesClient
}

var _ explorer.Gateway = (*Gateway)(nil)

func NewGateway(cfg Config) *Gateway {
	return &Gateway{
		BorderClient:    NewBorderClient(cfg),
		CountryClient:   NewCountryClient(cfg),
		GeonamesClient:  NewGeonamesClient(cfg),
		WeatherClient:   NewWeatherClient(cfg),
		WikipediaClient: NewWikipediaClient(cfg),
		NewsClient:      NewNewsClient(cfg),
		RatesClient:     NewRatesClient(cfg),
	}
}

// NewGeocoder picks the Google geocoder when an API key is configured and
// the OpenCage proxy otherwise.
func NewGeocoder(cfg Config, googleAPIKey string, countries CountryLister) explorer.Geocoder {
	if googleAPIKey != "" {
		return NewGoogleGeocoder(googleAPIKey, countries)
	}
	return NewOpenCageGeocoder(cfg)
}
