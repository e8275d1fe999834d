package explorer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/i474232898/country-explorer/internal/currency"
	"github.com/i474232898/country-explorer/internal/markers"
)

type fixture struct {
	iso2, iso3, name, capital string
	lat, lon                  float64
	currencies                []CurrencyInfo
}

var fixtures = map[string]fixture{
	"FRA": {"FR", "FRA", "France", "Paris", 48.85, 2.35, []CurrencyInfo{{Code: "EUR", Name: "Euro", Symbol: "€"}}},
	"DEU": {"DE", "DEU", "Germany", "Berlin", 52.52, 13.40, []CurrencyInfo{{Code: "EUR", Name: "Euro", Symbol: "€"}}},
	"ITA": {"IT", "ITA", "Italy", "Rome", 41.90, 12.50, []CurrencyInfo{{Code: "EUR", Name: "Euro", Symbol: "€"}}},
	"ATA": {"AQ", "ATA", "Antarctica", "", -75, 0, nil},
	"GBR": {"GB", "GBR", "United Kingdom", "London", 51.50, -0.12, []CurrencyInfo{{Code: "GBP", Name: "British pound", Symbol: "£"}}},
}

var errDown = errors.New("proxy unreachable")

// fakeGateway serves fixtures. Calls can be failed or held back per
// "source:ISO3" key, and every call is recorded in order.
type fakeGateway struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	gates  map[string]chan struct{}
	jitter time.Duration
	geo    []Country
	geoErr error
	rates  currency.Table
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		fail:  make(map[string]error),
		gates: make(map[string]chan struct{}),
		rates: currency.Table{Base: "USD", Rates: map[string]float64{"EUR": 0.85, "GBP": 0.79}},
	}
}

// hold blocks every call for iso3 until the returned release func is called.
func (f *fakeGateway) hold(iso3 string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[iso3] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeGateway) failOn(src Source, iso3 string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[string(src)+":"+iso3] = err
}

func (f *fakeGateway) enter(ctx context.Context, src Source, iso3 string) error {
	key := string(src) + ":" + iso3

	f.mu.Lock()
	f.calls = append(f.calls, key)
	gate := f.gates[iso3]
	err := f.fail[key]
	jitter := f.jitter
	f.mu.Unlock()

	if jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(jitter))))
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeGateway) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeGateway) indexOf(key string) int {
	for i, c := range f.callLog() {
		if c == key {
			return i
		}
	}
	return -1
}

func byISO2(iso2 string) fixture {
	for _, fx := range fixtures {
		if fx.iso2 == iso2 {
			return fx
		}
	}
	return fixture{}
}

func byCapital(capital string) fixture {
	for _, fx := range fixtures {
		if fx.capital != "" && fx.capital == capital {
			return fx
		}
	}
	return fixture{}
}

func byCoords(lat, lon float64) fixture {
	for _, fx := range fixtures {
		if fx.lat == lat && fx.lon == lon {
			return fx
		}
	}
	return fixture{}
}

func records(fx fixture, kind string) []markers.Record {
	return []markers.Record{
		{ID: fmt.Sprintf("geonames:%s-%s-1", fx.iso3, kind), Title: fx.name + " " + kind + " 1", Feature: markers.FeatureAirport, Lat: fx.lat + 0.1, Lon: fx.lon},
		{ID: fmt.Sprintf("geonames:%s-city", fx.iso3), Title: fx.capital, Feature: markers.FeatureCity, Lat: fx.lat, Lon: fx.lon},
		{ID: fmt.Sprintf("geonames:%s-adm", fx.iso3), Title: "region", Feature: markers.FeatureAdm1st},
	}
}

func (f *fakeGateway) Countries(context.Context) ([]Country, error) {
	var out []Country
	for _, fx := range fixtures {
		out = append(out, Country{ISO2: fx.iso2, ISO3: fx.iso3, Name: fx.name})
	}
	return out, nil
}

func (f *fakeGateway) Border(ctx context.Context, iso3 string) (Border, error) {
	if err := f.enter(ctx, SourceBorders, iso3); err != nil {
		return Border{}, err
	}
	fx := fixtures[iso3]
	ring := orb.Ring{{fx.lon - 1, fx.lat - 1}, {fx.lon + 1, fx.lat - 1}, {fx.lon + 1, fx.lat + 1}, {fx.lon - 1, fx.lat - 1}}
	return Border{ISO3: iso3, Name: fx.name, Geometry: orb.Polygon{ring}}, nil
}

func (f *fakeGateway) CountryFacts(ctx context.Context, iso3 string) (CountryFacts, error) {
	if err := f.enter(ctx, SourceFacts, iso3); err != nil {
		return CountryFacts{}, err
	}
	fx, ok := fixtures[iso3]
	if !ok {
		return CountryFacts{}, EmptyResultError(SourceFacts)
	}
	return CountryFacts{
		ISO2:       fx.iso2,
		ISO3:       fx.iso3,
		CommonName: fx.name,
		Capital:    fx.capital,
		LatLng:     &Coord{Lat: fx.lat, Lon: fx.lon},
		Currencies: fx.currencies,
	}, nil
}

func (f *fakeGateway) CountryInfo(ctx context.Context, iso2 string) (GeonamesFacts, error) {
	fx := byISO2(iso2)
	if err := f.enter(ctx, SourceGeonames, fx.iso3); err != nil {
		return GeonamesFacts{}, err
	}
	return GeonamesFacts{Capital: fx.capital, Continent: "EU", Population: 1000}, nil
}

func (f *fakeGateway) CurrentWeather(ctx context.Context, capital string) (Weather, error) {
	fx := byCapital(capital)
	if err := f.enter(ctx, SourceWeather, fx.iso3); err != nil {
		return Weather{}, err
	}
	return Weather{City: capital, Coord: &Coord{Lat: fx.lat, Lon: fx.lon}, Condition: ConditionClear}, nil
}

func (f *fakeGateway) Forecast(ctx context.Context, lat, lon float64) (Forecast, error) {
	fx := byCoords(lat, lon)
	if err := f.enter(ctx, SourceForecast, fx.iso3); err != nil {
		return Forecast{}, err
	}
	return Forecast{Days: []ForecastDay{{MinC: 1, MaxC: 2}, {MinC: 3, MaxC: 4}}}, nil
}

func (f *fakeGateway) NearbyPlaces(ctx context.Context, lat, lon float64) ([]markers.Record, error) {
	fx := byCoords(lat, lon)
	if err := f.enter(ctx, SourceNearby, fx.iso3); err != nil {
		return nil, err
	}
	return records(fx, "nearby"), nil
}

func (f *fakeGateway) SearchPOI(ctx context.Context, iso2, query string) ([]markers.Record, error) {
	fx := byISO2(iso2)
	if err := f.enter(ctx, SourceSearch, fx.iso3); err != nil {
		return nil, err
	}
	return records(fx, query), nil
}

func (f *fakeGateway) Summary(ctx context.Context, title string) (Summary, error) {
	var fx fixture
	for _, c := range fixtures {
		if strings.ReplaceAll(c.name, " ", "_") == title {
			fx = c
		}
	}
	if err := f.enter(ctx, SourceSummary, fx.iso3); err != nil {
		return Summary{}, err
	}
	return Summary{Title: fx.name, Extract: "About " + fx.name, Thumbnail: "https://img/" + fx.iso3 + ".png"}, nil
}

func (f *fakeGateway) News(ctx context.Context, iso2 string) ([]NewsItem, error) {
	fx := byISO2(iso2)
	if err := f.enter(ctx, SourceNews, fx.iso3); err != nil {
		return nil, err
	}
	return []NewsItem{{Name: fx.name + " headline", Description: "news"}}, nil
}

func (f *fakeGateway) ExchangeRates(ctx context.Context, base string) (currency.Table, error) {
	if err := f.enter(ctx, SourceRates, base); err != nil {
		return currency.Table{}, err
	}
	return f.rates, nil
}

func (f *fakeGateway) ReverseGeocode(ctx context.Context, lat, lon float64) ([]Country, error) {
	if err := f.enter(ctx, SourceGeocoder, "GEO"); err != nil {
		return nil, err
	}
	return f.geo, f.geoErr
}

// recordingOverlay logs every overlay operation.
type recordingOverlay struct {
	mu      sync.Mutex
	ops     []string
	markers map[string]markers.Marker
	border  orb.Geometry
	flights int
}

func newRecordingOverlay() *recordingOverlay {
	return &recordingOverlay{markers: make(map[string]markers.Marker)}
}

func (o *recordingOverlay) SetBorder(g orb.Geometry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.border = g
	o.ops = append(o.ops, "border")
}

func (o *recordingOverlay) AddMarker(m markers.Marker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.markers[m.ID] = m
	o.ops = append(o.ops, "add:"+m.ID)
}

func (o *recordingOverlay) ClearMarkers(scope markers.Scope) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, m := range o.markers {
		if scope.Includes(m.Category) {
			delete(o.markers, id)
		}
	}
	o.ops = append(o.ops, "clear:"+string(scope))
}

func (o *recordingOverlay) FlyTo(orb.Bound) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flights++
	o.ops = append(o.ops, "fly")
}

func (o *recordingOverlay) ids() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for id := range o.markers {
		out = append(out, id)
	}
	return out
}

func (o *recordingOverlay) opLog() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.ops))
	copy(out, o.ops)
	return out
}

// recordingSink collects updates.
type recordingSink struct {
	mu      sync.Mutex
	updates []Update
}

func (s *recordingSink) Publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
}

func (s *recordingSink) all() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Update, len(s.updates))
	copy(out, s.updates)
	return out
}
