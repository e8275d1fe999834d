package explorer

import (
	"github.com/paulmach/orb"

	"github.com/i474232898/country-explorer/internal/currency"
	"github.com/i474232898/country-explorer/internal/markers"
)

// poiSources is the number of calls contributing to the POI marker field:
// the airport search and the nearby places lookup.
const poiSources = 2

// engine reconciles the results of a single epoch into its display model.
// It is owned by the coordinator's event loop and never shared.
type engine struct {
	epoch   Epoch
	model   DisplayModel
	markers *markers.Set
	overlay Overlay
	sink    Sink

	poiPending int
	poiOK      bool
	poiErr     error

	iso2Issued    bool
	weatherIssued bool
}

func newEngine(epoch Epoch, sel Country, overlay Overlay, sink Sink) *engine {
	e := &engine{
		epoch:      epoch,
		markers:    markers.NewSet(),
		overlay:    overlay,
		sink:       sink,
		poiPending: poiSources,
	}
	e.model = DisplayModel{
		Epoch:        epoch,
		Selection:    sel,
		Facts:        Slot[CountryFacts]{State: StatePending},
		Currency:     Slot[CurrencyInfo]{State: StatePending},
		ExchangeRate: Slot[float64]{State: StatePending},
		Geonames:     Slot[GeonamesFacts]{State: StatePending},
		WeatherNow:   Slot[Weather]{State: StatePending},
		Forecast:     Slot[Forecast]{State: StatePending},
		Summary:      Slot[Summary]{State: StatePending},
		Places:       Slot[[]Place]{State: StatePending},
		News:         Slot[[]NewsItem]{State: StatePending},
		Border:       Slot[Border]{State: StatePending},
		POIMarkers:   Slot[[]markers.Marker]{State: StatePending},
	}
	e.emit(FieldSelection, StateResolved, sel, nil)
	return e
}

func (e *engine) emit(f Field, st State, v any, err error) {
	if e.sink == nil {
		return
	}
	u := Update{Epoch: e.epoch, Field: f, State: st, Value: v}
	if err != nil {
		u.Error = err.Error()
	}
	e.sink.Publish(u)
}

func settle[T any](e *engine, slot *Slot[T], f Field, r Result[T]) bool {
	if r.OK() {
		resolve(e, slot, f, r.Value)
		return true
	}
	fail(e, slot, f, r.Err)
	return false
}

func resolve[T any](e *engine, slot *Slot[T], f Field, v T) {
	*slot = Slot[T]{State: StateResolved, Value: v}
	e.emit(f, StateResolved, v, nil)
}

func fail[T any](e *engine, slot *Slot[T], f Field, err error) {
	*slot = Slot[T]{State: StateUnavailable, Err: err}
	e.emit(f, StateUnavailable, nil, err)
}

// ready reports whether every field has settled.
func (e *engine) ready() bool {
	m := &e.model
	return e.poiPending == 0 &&
		m.Facts.Settled() &&
		m.Currency.Settled() &&
		m.ExchangeRate.Settled() &&
		m.Geonames.Settled() &&
		m.WeatherNow.Settled() &&
		m.Forecast.Settled() &&
		m.Summary.Settled() &&
		m.Places.Settled() &&
		m.News.Settled() &&
		m.Border.Settled() &&
		m.POIMarkers.Settled()
}

func (e *engine) snapshot() DisplayModel {
	return e.model
}

func (e *engine) border(r Result[Border]) {
	if !settle(e, &e.model.Border, FieldBorder, r) {
		return
	}
	e.overlay.SetBorder(r.Value.Geometry)
	if r.Value.Geometry != nil {
		e.overlay.FlyTo(r.Value.Bound())
	}
}

// facts applies the country facts, completes the selection and derives the
// currency. It reports whether the facts resolved.
func (e *engine) facts(r Result[CountryFacts]) bool {
	if !settle(e, &e.model.Facts, FieldFacts, r) {
		fail(e, &e.model.Currency, FieldCurrency, r.Err)
		fail(e, &e.model.ExchangeRate, FieldExchangeRate, DependencyUnmetError(SourceRates, SourceFacts))
		fail(e, &e.model.Summary, FieldSummary, DependencyUnmetError(SourceSummary, SourceFacts))
		return false
	}

	f := r.Value
	sel := &e.model.Selection
	if sel.ISO2 == "" {
		sel.ISO2 = f.ISO2
	}
	if sel.Name == "" {
		sel.Name = f.CommonName
	}
	if sel.CapitalName == "" {
		sel.CapitalName = f.Capital
	}
	if sel.Centroid == nil && f.LatLng != nil {
		sel.Centroid = &orb.Point{f.LatLng.Lon, f.LatLng.Lat}
	}
	e.emit(FieldSelection, StateResolved, *sel, nil)

	if len(f.Currencies) == 0 || f.Currencies[0].Code == "" {
		fail(e, &e.model.Currency, FieldCurrency, EmptyResultError(SourceFacts))
		fail(e, &e.model.ExchangeRate, FieldExchangeRate, DependencyUnmetError(SourceRates, SourceFacts))
		return true
	}
	resolve(e, &e.model.Currency, FieldCurrency, f.Currencies[0])
	return true
}

func (e *engine) rate(r Result[currency.Table], code string) {
	if !r.OK() {
		fail(e, &e.model.ExchangeRate, FieldExchangeRate, r.Err)
		return
	}
	rate, err := r.Value.Rate(code)
	if err != nil {
		fail(e, &e.model.ExchangeRate, FieldExchangeRate, &ProviderError{Source: SourceRates, Kind: ErrEmptyResult, Cause: err})
		return
	}
	resolve(e, &e.model.ExchangeRate, FieldExchangeRate, rate)
}

func (e *engine) geonames(r Result[GeonamesFacts]) {
	settle(e, &e.model.Geonames, FieldGeonames, r)
}

func (e *engine) news(r Result[[]NewsItem]) {
	settle(e, &e.model.News, FieldNews, r)
}

func (e *engine) summary(r Result[Summary]) bool {
	return settle(e, &e.model.Summary, FieldSummary, r)
}

func (e *engine) forecast(r Result[Forecast]) {
	settle(e, &e.model.Forecast, FieldForecast, r)
}

// weather applies the current weather and reports whether it resolved with
// coordinates usable by the chained calls.
func (e *engine) weather(r Result[Weather]) bool {
	if !settle(e, &e.model.WeatherNow, FieldWeatherNow, r) {
		return false
	}
	_, _, ok := r.Value.Coordinates()
	return ok
}

func (e *engine) places(r Result[[]markers.Record]) {
	if !r.OK() {
		fail(e, &e.model.Places, FieldPlaces, r.Err)
		return
	}
	out := make([]Place, 0, len(r.Value))
	for _, rec := range r.Value {
		out = append(out, Place{
			Title:   rec.Title,
			Summary: rec.Summary,
			URL:     rec.URL,
			Lat:     rec.Lat,
			Lon:     rec.Lon,
		})
	}
	resolve(e, &e.model.Places, FieldPlaces, out)
}

// poi folds one POI source into the marker set and the overlay.
func (e *engine) poi(r Result[[]markers.Record]) {
	if e.poiPending > 0 {
		e.poiPending--
	}
	if r.OK() {
		e.poiOK = true
		for _, m := range e.markers.AddRecords(r.Value) {
			e.overlay.AddMarker(m)
		}
	} else if e.poiErr == nil {
		e.poiErr = r.Err
	}
	e.syncMarkers()
}

func (e *engine) pin(m markers.Marker) {
	if e.markers.Add(m) {
		e.overlay.AddMarker(m)
		e.syncMarkers()
	}
}

func (e *engine) syncMarkers() {
	switch {
	case e.poiOK || e.markers.Len() > 0:
		resolve(e, &e.model.POIMarkers, FieldPOIMarkers, e.markers.Markers())
	case e.poiPending == 0:
		err := e.poiErr
		if err == nil {
			err = EmptyResultError(SourceSearch)
		}
		fail(e, &e.model.POIMarkers, FieldPOIMarkers, err)
	}
}

// unmetISO2 settles every field whose call needs the ISO2 code.
func (e *engine) unmetISO2(dep Source) {
	fail(e, &e.model.Geonames, FieldGeonames, DependencyUnmetError(SourceGeonames, dep))
	fail(e, &e.model.News, FieldNews, DependencyUnmetError(SourceNews, dep))
	e.poi(Result[[]markers.Record]{Epoch: e.epoch, Source: SourceSearch, Err: DependencyUnmetError(SourceSearch, dep)})
}

// unmetWeather settles the weather field and everything chained after it.
func (e *engine) unmetWeather(dep Source) {
	fail(e, &e.model.WeatherNow, FieldWeatherNow, DependencyUnmetError(SourceWeather, dep))
	e.unmetCoordinates()
}

// unmetCoordinates settles the fields that need the capital coordinates.
func (e *engine) unmetCoordinates() {
	fail(e, &e.model.Forecast, FieldForecast, DependencyUnmetError(SourceForecast, SourceWeather))
	fail(e, &e.model.Places, FieldPlaces, DependencyUnmetError(SourceNearby, SourceWeather))
	e.poi(Result[[]markers.Record]{Epoch: e.epoch, Source: SourceNearby, Err: DependencyUnmetError(SourceNearby, SourceWeather)})
}
