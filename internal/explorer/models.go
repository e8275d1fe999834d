package explorer

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/i474232898/country-explorer/internal/markers"
)

// Epoch identifies one country selection and every call it spawned.
type Epoch uint64

// Country is the selected country. ISO3 is always set; the other fields may
// be filled in from the country facts provider once it resolves.
type Country struct {
	ISO2        string     `json:"iso2,omitempty"`
	ISO3        string     `json:"iso3"`
	Name        string     `json:"name,omitempty"`
	CapitalName string     `json:"capital,omitempty"`
	Centroid    *orb.Point `json:"centroid,omitempty"`
}

// Coord is a latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CurrencyInfo describes one currency used by a country.
type CurrencyInfo struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

// CountryFacts is the country-facts provider's view of a country.
type CountryFacts struct {
	ISO2         string         `json:"iso2"`
	ISO3         string         `json:"iso3"`
	CommonName   string         `json:"commonName"`
	OfficialName string         `json:"officialName,omitempty"`
	Capital      string         `json:"capital,omitempty"`
	Region       string         `json:"region,omitempty"`
	Subregion    string         `json:"subregion,omitempty"`
	Population   int64          `json:"population,omitempty"`
	Flag         string         `json:"flag,omitempty"`
	LatLng       *Coord         `json:"latlng,omitempty"`
	Currencies   []CurrencyInfo `json:"currencies"`
}

// GeonamesFacts holds the demographic and geographic panel figures.
type GeonamesFacts struct {
	Capital      string  `json:"capital"`
	AreaInSqKm   float64 `json:"areaInSqKm"`
	Continent    string  `json:"continent"`
	Population   int64   `json:"population"`
	Languages    string  `json:"languages"`
	CurrencyCode string  `json:"currencyCode,omitempty"`
}

// Condition is a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Weather is the current weather at the capital.
type Weather struct {
	City         string    `json:"city"`
	Coord        *Coord    `json:"coord,omitempty"`
	TemperatureC float64   `json:"temperatureC"`
	HumidityPct  float64   `json:"humidityPercent"`
	WindSpeed    float64   `json:"windSpeed"`
	Description  string    `json:"description"`
	Condition    Condition `json:"condition"`
	IconRef      string    `json:"iconRef,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Coordinates returns the resolved capital coordinates, if any.
func (w Weather) Coordinates() (lat, lon float64, ok bool) {
	if w.Coord == nil {
		return 0, 0, false
	}
	return w.Coord.Lat, w.Coord.Lon, true
}

// ForecastDay is one daily forecast entry.
type ForecastDay struct {
	Date        time.Time `json:"date"`
	MinC        float64   `json:"minC"`
	MaxC        float64   `json:"maxC"`
	Description string    `json:"description"`
	Condition   Condition `json:"condition"`
}

// Forecast is a daily forecast ordered by date, starting today.
type Forecast struct {
	Days []ForecastDay `json:"days"`
}

// Tomorrow returns the second forecast day.
func (f Forecast) Tomorrow() (ForecastDay, bool) {
	if len(f.Days) < 2 {
		return ForecastDay{}, false
	}
	return f.Days[1], true
}

// Summary is the encyclopedia summary of the country.
type Summary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ExtractHTML string `json:"extractHtml,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Place is a point of interest listed in the places panel.
type Place struct {
	Title   string  `json:"title"`
	Summary string  `json:"summary,omitempty"`
	URL     string  `json:"url,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// NewsItem is a single headline.
type NewsItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// Border is the outline of a country.
type Border struct {
	ISO3     string
	Name     string
	Geometry orb.Geometry
}

// Bound returns the bounding box of the border geometry.
func (b Border) Bound() orb.Bound {
	if b.Geometry == nil {
		return orb.Bound{}
	}
	return b.Geometry.Bound()
}

func (b Border) MarshalJSON() ([]byte, error) {
	out := struct {
		ISO3     string            `json:"iso3"`
		Name     string            `json:"name"`
		Geometry *geojson.Geometry `json:"geometry,omitempty"`
		Bounds   [2]orb.Point      `json:"bounds"`
	}{ISO3: b.ISO3, Name: b.Name}
	if b.Geometry != nil {
		out.Geometry = geojson.NewGeometry(b.Geometry)
		bound := b.Geometry.Bound()
		out.Bounds = [2]orb.Point{bound.Min, bound.Max}
	}
	return json.Marshal(out)
}

// State is the lifecycle of one display model field.
type State string

const (
	StatePending     State = "pending"
	StateResolved    State = "resolved"
	StateUnavailable State = "unavailable"
)

// Slot is one independently resolving field of the display model.
type Slot[T any] struct {
	State State
	Value T
	Err   error
}

func (s Slot[T]) MarshalJSON() ([]byte, error) {
	out := struct {
		State State  `json:"state"`
		Value *T     `json:"value,omitempty"`
		Error string `json:"error,omitempty"`
	}{State: s.State}
	if out.State == "" {
		out.State = StatePending
	}
	if s.State == StateResolved {
		out.Value = &s.Value
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return json.Marshal(out)
}

// Settled reports whether the slot has left the pending state.
func (s Slot[T]) Settled() bool {
	return s.State == StateResolved || s.State == StateUnavailable
}

// DisplayModel is the merged snapshot of one epoch.
type DisplayModel struct {
	Epoch        Epoch                  `json:"epoch"`
	Selection    Country                `json:"selection"`
	Facts        Slot[CountryFacts]     `json:"facts"`
	Currency     Slot[CurrencyInfo]     `json:"currency"`
	ExchangeRate Slot[float64]          `json:"exchangeRate"`
	Geonames     Slot[GeonamesFacts]    `json:"geonames"`
	WeatherNow   Slot[Weather]          `json:"weatherNow"`
	Forecast     Slot[Forecast]         `json:"forecast"`
	Summary      Slot[Summary]          `json:"summary"`
	Places       Slot[[]Place]          `json:"places"`
	News         Slot[[]NewsItem]       `json:"news"`
	Border       Slot[Border]           `json:"border"`
	POIMarkers   Slot[[]markers.Marker] `json:"poiMarkers"`
}

// Field names a display model field in update events.
type Field string

const (
	FieldSelection    Field = "selection"
	FieldFacts        Field = "facts"
	FieldCurrency     Field = "currency"
	FieldExchangeRate Field = "exchangeRate"
	FieldGeonames     Field = "geonames"
	FieldWeatherNow   Field = "weatherNow"
	FieldForecast     Field = "forecast"
	FieldSummary      Field = "summary"
	FieldPlaces       Field = "places"
	FieldNews         Field = "news"
	FieldBorder       Field = "border"
	FieldPOIMarkers   Field = "poiMarkers"
)

// Update is a field-level change notification for the presentation layer.
type Update struct {
	Seq   uint64 `json:"seq"`
	Epoch Epoch  `json:"epoch"`
	Field Field  `json:"field"`
	State State  `json:"state"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Status is the coordinator state machine position.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)
