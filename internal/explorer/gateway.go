package explorer

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/i474232898/country-explorer/internal/currency"
	"github.com/i474232898/country-explorer/internal/markers"
)

// Gateway is the uniform transport boundary to the remote providers.
// Implementations perform no retries and no caching.
type Gateway interface {
	Countries(ctx context.Context) ([]Country, error)
	Border(ctx context.Context, iso3 string) (Border, error)
	CountryFacts(ctx context.Context, iso3 string) (CountryFacts, error)
	CountryInfo(ctx context.Context, iso2 string) (GeonamesFacts, error)
	CurrentWeather(ctx context.Context, capital string) (Weather, error)
	Forecast(ctx context.Context, lat, lon float64) (Forecast, error)
	NearbyPlaces(ctx context.Context, lat, lon float64) ([]markers.Record, error)
	SearchPOI(ctx context.Context, iso2, query string) ([]markers.Record, error)
	Summary(ctx context.Context, title string) (Summary, error)
	News(ctx context.Context, iso2 string) ([]NewsItem, error)
	currency.RateSource
}

// Geocoder resolves coordinates to the countries found there.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) ([]Country, error)
}

// Locator supplies the user's position once at startup.
type Locator interface {
	CurrentPosition(ctx context.Context) (lat, lon float64, err error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (float64, float64, error)

func (f LocatorFunc) CurrentPosition(ctx context.Context) (float64, float64, error) {
	return f(ctx)
}

// Overlay is the capability a map renderer exposes to the coordinator.
type Overlay interface {
	SetBorder(geometry orb.Geometry)
	AddMarker(m markers.Marker)
	ClearMarkers(scope markers.Scope)
	FlyTo(bounds orb.Bound)
}

// Sink receives field-level updates for the presentation layer.
type Sink interface {
	Publish(u Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Update)

func (f SinkFunc) Publish(u Update) { f(u) }

type nopOverlay struct{}

func (nopOverlay) SetBorder(orb.Geometry)     {}
func (nopOverlay) AddMarker(markers.Marker)   {}
func (nopOverlay) ClearMarkers(markers.Scope) {}
func (nopOverlay) FlyTo(orb.Bound)            {}
