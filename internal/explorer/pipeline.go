package explorer

import (
	"context"
	"strings"

	"github.com/i474232898/country-explorer/internal/currency"
	"github.com/i474232898/country-explorer/internal/markers"
)

// POIQuery is the search term used for the country-wide POI search.
const POIQuery = "airport"

// spawn runs fn on its own goroutine and applies the result on the loop,
// unless epoch is no longer current by then. Must be called on the loop.
func spawn[T any](c *Coordinator, epoch Epoch, src Source, fn func(context.Context) (T, error), apply func(Result[T])) {
	c.inflight++
	ctx := c.ctx
	c.log.Debug().Uint64("epoch", uint64(epoch)).Str("source", string(src)).Msg("provider call issued")

	go func() {
		res := Call(ctx, epoch, src, fn)
		_ = c.post(context.Background(), func() {
			defer c.release()
			if res.Epoch != c.current {
				c.log.Debug().
					Uint64("epoch", uint64(res.Epoch)).
					Uint64("current", uint64(c.current)).
					Str("source", string(src)).
					Msg("discarding stale result")
				return
			}
			if !res.OK() {
				c.log.Warn().Err(res.Err).Uint64("epoch", uint64(epoch)).Msg("provider call failed")
			}
			apply(res)
			c.commit()
		})
	}()
}

func (c *Coordinator) fanOut(e *engine) {
	sel := e.model.Selection

	spawn(c, e.epoch, SourceBorders, func(ctx context.Context) (Border, error) {
		return c.gateway.Border(ctx, sel.ISO3)
	}, c.onBorder)

	spawn(c, e.epoch, SourceFacts, func(ctx context.Context) (CountryFacts, error) {
		return c.gateway.CountryFacts(ctx, sel.ISO3)
	}, c.onFacts)

	if sel.ISO2 != "" {
		c.issueByISO2(e, sel.ISO2)
	}
	if sel.CapitalName != "" {
		c.issueWeather(e, sel.CapitalName)
	}
}

func (c *Coordinator) issueByISO2(e *engine, iso2 string) {
	e.iso2Issued = true

	spawn(c, e.epoch, SourceGeonames, func(ctx context.Context) (GeonamesFacts, error) {
		return c.gateway.CountryInfo(ctx, iso2)
	}, func(r Result[GeonamesFacts]) { c.engine.geonames(r) })

	spawn(c, e.epoch, SourceNews, func(ctx context.Context) ([]NewsItem, error) {
		return c.gateway.News(ctx, iso2)
	}, func(r Result[[]NewsItem]) { c.engine.news(r) })

	spawn(c, e.epoch, SourceSearch, func(ctx context.Context) ([]markers.Record, error) {
		return c.gateway.SearchPOI(ctx, iso2, POIQuery)
	}, func(r Result[[]markers.Record]) { c.engine.poi(r) })
}

func (c *Coordinator) issueWeather(e *engine, capital string) {
	e.weatherIssued = true

	spawn(c, e.epoch, SourceWeather, func(ctx context.Context) (Weather, error) {
		return c.gateway.CurrentWeather(ctx, capital)
	}, c.onWeather)
}

func (c *Coordinator) onBorder(r Result[Border]) {
	c.engine.border(r)
}

func (c *Coordinator) onFacts(r Result[CountryFacts]) {
	e := c.engine
	if !e.facts(r) {
		if !e.iso2Issued {
			e.unmetISO2(SourceFacts)
		}
		if !e.weatherIssued {
			e.unmetWeather(SourceFacts)
		}
		return
	}

	if e.model.Currency.State == StateResolved {
		code := e.model.Currency.Value.Code
		base := c.ratesBase
		spawn(c, e.epoch, SourceRates, func(ctx context.Context) (currency.Table, error) {
			return c.gateway.ExchangeRates(ctx, base)
		}, func(r Result[currency.Table]) {
			if r.OK() {
				c.converter.SetTable(r.Value)
				c.converter.SetTarget(code)
			}
			c.engine.rate(r, code)
		})
	}

	if title := summaryTitle(e.model.Selection.Name); title != "" {
		spawn(c, e.epoch, SourceSummary, func(ctx context.Context) (Summary, error) {
			return c.gateway.Summary(ctx, title)
		}, c.onSummary)
	} else {
		fail(e, &e.model.Summary, FieldSummary, DependencyUnmetError(SourceSummary, SourceFacts))
	}

	if !e.iso2Issued {
		if iso2 := e.model.Selection.ISO2; iso2 != "" {
			c.issueByISO2(e, iso2)
		} else {
			e.unmetISO2(SourceFacts)
		}
	}
	if !e.weatherIssued {
		if capital := e.model.Selection.CapitalName; capital != "" {
			c.issueWeather(e, capital)
		} else {
			e.unmetWeather(SourceFacts)
		}
	}
}

func (c *Coordinator) onWeather(r Result[Weather]) {
	e := c.engine
	if !e.weather(r) {
		e.unmetCoordinates()
		return
	}
	lat, lon, _ := r.Value.Coordinates()

	spawn(c, e.epoch, SourceForecast, func(ctx context.Context) (Forecast, error) {
		return c.gateway.Forecast(ctx, lat, lon)
	}, func(r Result[Forecast]) { c.engine.forecast(r) })

	spawn(c, e.epoch, SourceNearby, func(ctx context.Context) ([]markers.Record, error) {
		return c.gateway.NearbyPlaces(ctx, lat, lon)
	}, func(r Result[[]markers.Record]) {
		c.engine.places(r)
		c.engine.poi(r)
	})
}

func (c *Coordinator) onSummary(r Result[Summary]) {
	e := c.engine
	if !e.summary(r) {
		return
	}
	sel := e.model.Selection
	if sel.Centroid == nil {
		return
	}
	e.pin(markers.Pin("summary:"+sel.ISO3, r.Value.Title, sel.Centroid.Lat(), sel.Centroid.Lon(), r.Value.Thumbnail))
}

// summaryTitle turns a country name into an encyclopedia page title.
func summaryTitle(name string) string {
	return strings.Join(strings.Fields(name), "_")
}
