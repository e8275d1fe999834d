package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/country-explorer/internal/explorer"
	"github.com/i474232898/country-explorer/internal/markers"
)

const okStatus = `"status":{"code":"200","name":"ok","description":"mission saved"}`

type route struct {
	code int
	body string
}

// newProxy serves canned replies keyed by path and counts the requests.
func newProxy(t *testing.T, routes map[string]route) (Config, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		rt, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if rt.code == 0 {
			rt.code = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rt.code)
		_, _ = w.Write([]byte(rt.body))
	}))
	t.Cleanup(srv.Close)

	return Config{
		Client:       &http.Client{Timeout: 5 * time.Second},
		ProxyBaseURL: srv.URL,
		WikipediaURL: srv.URL + "/rest",
	}, &hits
}

func TestEnvelopeErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		rt   route
		kind error
	}{
		{"status not ok", route{body: `{"status":{"code":"500","name":"error","description":"upstream down"}}`}, explorer.ErrTransport},
		{"status not ok on 200 with payload", route{body: `{"status":{"name":"failure"},"data":[]}`}, explorer.ErrTransport},
		{"html error page", route{code: http.StatusBadGateway, body: `<html>bad gateway</html>`}, explorer.ErrTransport},
		{"truncated json", route{body: `{"status":{"name":"ok"},"data":[`}, explorer.ErrShape},
		{"missing status", route{body: `{"data":[]}`}, explorer.ErrShape},
		{"missing payload key", route{body: `{` + okStatus + `}`}, explorer.ErrShape},
		{"wrong payload type", route{body: `{` + okStatus + `,"data":{"name":1}}`}, explorer.ErrShape},
		{"zero matches", route{body: `{` + okStatus + `,"data":[]}`}, explorer.ErrEmptyResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := newProxy(t, map[string]route{"/news.php": tt.rt})
			_, err := NewNewsClient(cfg).News(context.Background(), "FR")
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			var pe *explorer.ProviderError
			if !errors.As(err, &pe) || pe.Source != explorer.SourceNews {
				t.Fatalf("expected a news ProviderError, got %#v", err)
			}
		})
	}
}

func TestOpenCircuitFailsFastAsTransportError(t *testing.T) {
	cfg, hits := newProxy(t, map[string]route{
		"/news.php": {code: http.StatusInternalServerError, body: `{"status":{"code":"500","name":"error","description":"upstream down"}}`},
	})
	ep := newEndpoint(explorer.SourceNews, cfg.ProxyBaseURL, cfg.Client)
	ctx := context.Background()

	// The breaker trips after more than five consecutive failures.
	for i := 0; i < 6; i++ {
		r, err := ep.get(ctx, "news.php", nil)
		if err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
		if r.code != http.StatusInternalServerError {
			t.Fatalf("call %d: status %d, want 500", i, r.code)
		}
	}

	_, err := ep.get(ctx, "news.php", nil)
	if !errors.Is(err, explorer.ErrTransport) || !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected an open-circuit transport error, got %v", err)
	}
	if got := hits.Load(); got != 6 {
		t.Fatalf("expected the open circuit to skip the request, got %d hits", got)
	}
}

func TestUnreachableProxyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewNewsClient(Config{Client: &http.Client{Timeout: time.Second}, ProxyBaseURL: base})
	if _, err := c.News(context.Background(), "FR"); !errors.Is(err, explorer.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestNewsParsesItems(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/news.php": {body: `{` + okStatus + `,"data":[{"name":"Headline","description":"Body","url":"https://n/1"},{"name":""}]}`},
	})
	items, err := NewNewsClient(cfg).News(context.Background(), "FR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Headline" || items[0].URL != "https://n/1" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestCountryFactsKeepsCurrencyOrder(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/restCountries.php": {body: `{` + okStatus + `,"currency":{"name":"Swiss franc","symbol":"Fr."},"data":{
			"cca2":"ch","cca3":"che","name":{"common":"Switzerland","official":"Swiss Confederation"},
			"capital":["Bern"],"region":"Europe","population":8654622,"latlng":[47,8],
			"currencies":{"CHF":{"name":"Swiss franc","symbol":"Fr."},"EUR":{"name":"Euro","symbol":"€"},"AAA":{"name":"First by sort only"}}}}`},
	})

	facts, err := NewCountryClient(cfg).CountryFacts(context.Background(), "CHE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if facts.ISO2 != "CH" || facts.ISO3 != "CHE" || facts.Capital != "Bern" || facts.CommonName != "Switzerland" {
		t.Fatalf("unexpected facts %+v", facts)
	}
	if facts.LatLng == nil || facts.LatLng.Lat != 47 || facts.LatLng.Lon != 8 {
		t.Fatalf("unexpected latlng %+v", facts.LatLng)
	}
	if len(facts.Currencies) != 3 || facts.Currencies[0].Code != "CHF" || facts.Currencies[2].Code != "AAA" {
		t.Fatalf("currencies out of document order: %+v", facts.Currencies)
	}
}

func TestCountryFactsNullDataIsEmpty(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/restCountries.php": {body: `{` + okStatus + `,"currency":null,"data":null}`},
	})
	_, err := NewCountryClient(cfg).CountryFacts(context.Background(), "XXX")
	if !errors.Is(err, explorer.ErrEmptyResult) {
		t.Fatalf("expected empty result, got %v", err)
	}
}

const borderCollection = `{"type":"FeatureCollection","features":[
	{"type":"Feature","properties":{"name":"Italy","iso_a2":"IT","iso_a3":"ITA"},"geometry":{"type":"Polygon","coordinates":[[[6,36],[18,36],[18,47],[6,47],[6,36]]]}},
	{"type":"Feature","properties":{"name":"Kosovo","iso_a2":"-99","iso_a3":"-99"},"geometry":{"type":"Polygon","coordinates":[[[20,42],[21,42],[21,43],[20,42]]]}},
	{"type":"Feature","properties":{"name":"France","iso_a2":"FR","iso_a3":"FRA"},"geometry":{"type":"MultiPolygon","coordinates":[[[[-5,42],[8,42],[8,51],[-5,42]]]]}}
]}`

func TestBordersAndCountries(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/geoJson.php": {body: `{` + okStatus + `,"data":{"border":` + borderCollection + `}}`},
	})
	c := NewBorderClient(cfg)

	countries, err := c.Countries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(countries) != 2 || countries[0].ISO3 != "FRA" || countries[1].ISO3 != "ITA" {
		t.Fatalf("expected FRA, ITA sorted by name, got %+v", countries)
	}
	if countries[1].ISO2 != "IT" || countries[1].Centroid == nil {
		t.Fatalf("unexpected country %+v", countries[1])
	}

	b, err := c.Border(context.Background(), "ita")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bound := b.Bound()
	if b.ISO3 != "ITA" || bound.Min.X() != 6 || bound.Max.Y() != 47 {
		t.Fatalf("unexpected border %+v bound %+v", b, bound)
	}

	if _, err := c.Border(context.Background(), "DEU"); !errors.Is(err, explorer.ErrEmptyResult) {
		t.Fatalf("expected empty result for unknown country, got %v", err)
	}
	if _, err := c.Border(context.Background(), "-99"); !errors.Is(err, explorer.ErrEmptyResult) {
		t.Fatalf("expected the uncoded feature to stay unreachable, got %v", err)
	}
}

func TestBorderCollectionMalformed(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/geoJson.php": {body: `{` + okStatus + `,"data":{"border":{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":"x"}}]}}}`},
	})
	if _, err := NewBorderClient(cfg).Border(context.Background(), "ITA"); !errors.Is(err, explorer.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestCountryInfoParsesStringNumbers(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/getCountryInfo.php": {body: `{` + okStatus + `,"data":{"geonames":[{"capital":"Paris","areaInSqKm":"551500.0","continent":"EU","population":"64768389","languages":"fr-FR,frp,br","currencyCode":"EUR"}]}}`},
	})
	info, err := NewGeonamesClient(cfg).CountryInfo(context.Background(), "FR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.AreaInSqKm != 551500 || info.Population != 64768389 || info.Capital != "Paris" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestSearchPOIRejectsInvalidCountryBeforeCalling(t *testing.T) {
	cfg, hits := newProxy(t, map[string]route{})
	c := NewGeonamesClient(cfg)

	for _, iso2 := range []string{"", "FRA", "F1"} {
		if _, err := c.SearchPOI(context.Background(), iso2, "airport"); !errors.Is(err, explorer.ErrShape) {
			t.Fatalf("SearchPOI(%q): expected shape error, got %v", iso2, err)
		}
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no requests, got %d", hits.Load())
	}
}

func TestSearchPOIRecords(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/wikipediaSearchJSONAirport.php": {body: `{` + okStatus + `,"geonames":[
			{"title":"Charles de Gaulle Airport","feature":"airport","lat":49.0,"lng":2.55,"geoNameId":6269554,"wikipediaUrl":"en.wikipedia.org/wiki/CDG"},
			{"title":"Orly","feature":"airport","lat":"48.72","lng":"2.37","wikipediaUrl":"en.wikipedia.org/wiki/Orly"}]}`},
	})
	recs, err := NewGeonamesClient(cfg).SearchPOI(context.Background(), "fr", "airport")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "geonames:6269554" || recs[0].Feature != markers.FeatureAirport {
		t.Fatalf("unexpected record %+v", recs[0])
	}
	if recs[1].ID != "wiki:en.wikipedia.org/wiki/Orly" || recs[1].URL != "https://en.wikipedia.org/wiki/Orly" || recs[1].Lat != 48.72 {
		t.Fatalf("unexpected record %+v", recs[1])
	}
}

func TestNearbyPlacesNullIsShapeEmptyIsEmpty(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/wikiPlaces.php": {body: `{` + okStatus + `,"wikiPlaces":null}`},
	})
	if _, err := NewGeonamesClient(cfg).NearbyPlaces(context.Background(), 48.85, 2.35); !errors.Is(err, explorer.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}

	cfg, _ = newProxy(t, map[string]route{
		"/wikiPlaces.php": {body: `{` + okStatus + `,"wikiPlaces":[]}`},
	})
	if _, err := NewGeonamesClient(cfg).NearbyPlaces(context.Background(), 48.85, 2.35); !errors.Is(err, explorer.ErrEmptyResult) {
		t.Fatalf("expected empty result, got %v", err)
	}
}

func TestCurrentWeather(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/openWeatherCurrent.php": {body: `{` + okStatus + `,"weatherData":{"cod":200,"name":"Paris","dt":1700000000,
			"coord":{"lat":48.85,"lon":2.35},"main":{"temp":12.5,"humidity":81},"wind":{"speed":3.1},
			"weather":[{"main":"Clouds","description":"broken clouds"}]}}`},
	})
	w, err := NewWeatherClient(cfg).CurrentWeather(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Condition != explorer.ConditionCloudy || w.IconRef != "assets/cloud.png" || w.Description != "broken clouds" {
		t.Fatalf("unexpected condition %+v", w)
	}
	lat, lon, ok := w.Coordinates()
	if !ok || lat != 48.85 || lon != 2.35 {
		t.Fatalf("unexpected coordinates %v %v %v", lat, lon, ok)
	}
}

func TestCurrentWeatherUnknownCity(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/openWeatherCurrent.php": {body: `{` + okStatus + `,"weatherData":{"cod":"404","message":"city not found"}}`},
	})
	if _, err := NewWeatherClient(cfg).CurrentWeather(context.Background(), "Atlantis"); !errors.Is(err, explorer.ErrEmptyResult) {
		t.Fatalf("expected empty result, got %v", err)
	}
}

func TestForecastTomorrow(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/openWeatherForcast.php": {body: `{` + okStatus + `,"weatherForcast":{"daily":[
			{"dt":1700000000,"temp":{"min":5,"max":11},"weather":[{"main":"Rain","description":"light rain"}]},
			{"dt":1700086400,"temp":{"min":3,"max":9},"weather":[{"main":"Snow","description":"snow"}]}]}}`},
	})
	f, err := NewWeatherClient(cfg).Forecast(context.Background(), 48.85, 2.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day, ok := f.Tomorrow()
	if !ok || day.Condition != explorer.ConditionSnow || day.MinC != 3 || day.MaxC != 9 {
		t.Fatalf("unexpected tomorrow %+v %v", day, ok)
	}
}

func TestMapOpenWeatherCondition(t *testing.T) {
	tests := map[string]explorer.Condition{
		"Thunderstorm": explorer.ConditionStorm,
		"Drizzle":      explorer.ConditionRain,
		"Mist":         explorer.ConditionMist,
		"Haze":         explorer.ConditionMist,
		"Clear":        explorer.ConditionClear,
		"Tornado":      explorer.ConditionUnknown,
	}
	for main, want := range tests {
		got, _ := mapOpenWeatherCondition([]owmCondition{{Main: main}})
		if got != want {
			t.Errorf("%s: expected %s, got %s", main, want, got)
		}
	}
	if got, _ := mapOpenWeatherCondition(nil); got != explorer.ConditionUnknown {
		t.Errorf("empty: expected unknown, got %s", got)
	}
}

func TestSummary(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		if r.URL.Path != "/rest/page/summary/United_Kingdom" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"title":"United Kingdom","extract":"Island country","extract_html":"<p>Island country</p>",
			"thumbnail":{"source":"https://img/uk.png"},"content_urls":{"desktop":{"page":"https://en.wikipedia.org/wiki/United_Kingdom"}}}`))
	}))
	defer srv.Close()

	c := NewWikipediaClient(Config{Client: srv.Client(), WikipediaURL: srv.URL + "/rest"})
	s, err := c.Summary(context.Background(), "United Kingdom")
	if err != nil {
		t.Fatalf("unexpected error (path %v): %v", path.Load(), err)
	}
	if s.Thumbnail != "https://img/uk.png" || s.ExtractHTML == "" || s.URL == "" {
		t.Fatalf("unexpected summary %+v", s)
	}

	if _, err := c.Summary(context.Background(), "Atlantis"); !errors.Is(err, explorer.ErrEmptyResult) {
		t.Fatalf("expected empty result for missing page, got %v", err)
	}
}

func TestExchangeRates(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/exchangeRates.php": {body: `{` + okStatus + `,"exchangeRate":{"base":"usd","timestamp":1700000000,"rates":{"eur":0.85,"GBP":0.79}}}`},
	})
	table, err := NewRatesClient(cfg).ExchangeRates(context.Background(), "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Base != "USD" || table.Timestamp.IsZero() {
		t.Fatalf("unexpected table %+v", table)
	}
	if r, err := table.Rate("EUR"); err != nil || r != 0.85 {
		t.Fatalf("Rate(EUR) = %v, %v", r, err)
	}
}

func TestOpenCageGeocoder(t *testing.T) {
	cfg, _ := newProxy(t, map[string]route{
		"/openCage.php": {body: `{` + okStatus + `,"data":[
			{"components":{"ISO_3166-1_alpha-2":"DE","ISO_3166-1_alpha-3":"DEU","country":"Germany"}},
			{"components":{"body_of_water":"Baltic Sea"}}]}`},
	})
	got, err := NewOpenCageGeocoder(cfg).ReverseGeocode(context.Background(), 52.5, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ISO3 != "DEU" || got[0].ISO2 != "DE" || got[0].Name != "Germany" {
		t.Fatalf("unexpected countries %+v", got)
	}
}

type staticCountries []explorer.Country

func (s staticCountries) Countries(context.Context) ([]explorer.Country, error) {
	return s, nil
}

func TestGoogleGeocoderMapsCountryNames(t *testing.T) {
	g := &GoogleGeocoder{
		countries: staticCountries{{ISO2: "FR", ISO3: "FRA", Name: "France"}, {ISO2: "DE", ISO3: "DEU", Name: "Germany"}},
		circuit:   newBreaker("test"),
		reverse: func(loc geocoder.Location) ([]geocoder.Address, error) {
			return []geocoder.Address{{Country: "Germany"}, {Country: "germany"}, {Country: "Atlantis"}}, nil
		},
	}
	got, err := g.ReverseGeocode(context.Background(), 52.5, 13.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ISO3 != "DEU" {
		t.Fatalf("unexpected countries %+v", got)
	}

	g.reverse = func(geocoder.Location) ([]geocoder.Address, error) {
		return nil, errors.New("ZERO_RESULTS")
	}
	if got, err := g.ReverseGeocode(context.Background(), 0, 0); err != nil || len(got) != 0 {
		t.Fatalf("expected no countries and no error, got %+v %v", got, err)
	}
}
