package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/i474232898/country-explorer/internal/common"
	"github.com/i474232898/country-explorer/internal/currency"
	"github.com/i474232898/country-explorer/internal/markers"
)

var (
	ErrStopped         = errors.New("coordinator is not running")
	ErrNoGeocoder      = errors.New("no geocoder configured")
	ErrInvalidCountry  = errors.New("invalid country")
	ErrInvalidPosition = errors.New("invalid position")
)

// DefaultRatesBase is the base currency exchange rates are requested in.
const DefaultRatesBase = "USD"

type view struct {
	model  DisplayModel
	status Status
}

// Coordinator owns the current selection. All state changes run on the event
// loop started by Run; provider calls run concurrently and post their results
// back to it, where results from a superseded epoch are dropped.
type Coordinator struct {
	gateway   Gateway
	geocoder  Geocoder
	overlay   Overlay
	sink      Sink
	converter *currency.Converter
	ratesBase string
	log       zerolog.Logger

	inbox   chan func()
	done    chan struct{}
	running atomic.Bool
	ctx     context.Context

	next atomic.Uint64
	live atomic.Pointer[view]

	// Loop-owned.
	current  Epoch
	engine   *engine
	inflight int
	idle     []chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

func WithGeocoder(g Geocoder) Option {
	return func(c *Coordinator) { c.geocoder = g }
}

// WithConverter shares an existing converter; by default the coordinator
// creates one backed by the gateway.
func WithConverter(cv *currency.Converter) Option {
	return func(c *Coordinator) { c.converter = cv }
}

func WithRatesBase(base string) Option {
	return func(c *Coordinator) {
		if base = strings.ToUpper(strings.TrimSpace(base)); base != "" {
			c.ratesBase = base
		}
	}
}

// NewCoordinator creates an idle coordinator. overlay and sink may be nil.
func NewCoordinator(gw Gateway, overlay Overlay, sink Sink, opts ...Option) *Coordinator {
	if overlay == nil {
		overlay = nopOverlay{}
	}
	c := &Coordinator{
		gateway:   gw,
		overlay:   overlay,
		sink:      sink,
		ratesBase: DefaultRatesBase,
		log:       zerolog.Nop(),
		inbox:     make(chan func()),
		done:      make(chan struct{}),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.converter == nil {
		c.converter = currency.NewConverter(gw)
	}
	c.live.Store(&view{status: StatusIdle})
	return c
}

// Run is the event loop. It returns when ctx is cancelled; results of calls
// still in flight are discarded.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("coordinator already running")
	}
	c.ctx = ctx
	defer close(c.done)

	c.log.Debug().Msg("event loop started")
	for {
		select {
		case <-ctx.Done():
			c.log.Debug().Msg("event loop stopped")
			return nil
		case fn := <-c.inbox:
			fn()
		}
	}
}

func (c *Coordinator) post(ctx context.Context, fn func()) error {
	select {
	case c.inbox <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// SelectCountry starts a new epoch for country and returns its id. The
// transition is applied asynchronously on the loop; a selection overtaken by
// a later one is never applied.
func (c *Coordinator) SelectCountry(ctx context.Context, country Country) (Epoch, error) {
	if err := normalizeCountry(&country); err != nil {
		return 0, err
	}
	epoch := Epoch(c.next.Add(1))
	if err := c.post(ctx, func() { c.begin(epoch, country) }); err != nil {
		return 0, err
	}
	return epoch, nil
}

// GeolocationResolved reverse-geocodes the position and selects the country
// found there. Nothing happens if no country is found or if the selection
// changed while the lookup was in flight.
func (c *Coordinator) GeolocationResolved(ctx context.Context, lat, lon float64) error {
	if c.geocoder == nil {
		return ErrNoGeocoder
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: %f,%f", ErrInvalidPosition, lat, lon)
	}
	return c.post(ctx, func() {
		spawn(c, c.current, SourceGeocoder, func(ctx context.Context) ([]Country, error) {
			return c.geocoder.ReverseGeocode(ctx, lat, lon)
		}, c.onGeocoded)
	})
}

// Locate asks loc for the user's position once and feeds it to
// GeolocationResolved. A failed lookup leaves the selection untouched.
func (c *Coordinator) Locate(ctx context.Context, loc Locator) error {
	lat, lon, err := loc.CurrentPosition(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("current position unavailable")
		return fmt.Errorf("get current position: %w", err)
	}
	return c.GeolocationResolved(ctx, lat, lon)
}

// ClosePanel retires the current epoch. The last model stays readable but is
// never mutated again.
func (c *Coordinator) ClosePanel(ctx context.Context) error {
	epoch := Epoch(c.next.Add(1))
	return c.post(ctx, func() {
		if epoch <= c.current {
			return
		}
		c.log.Info().Uint64("epoch", uint64(c.current)).Msg("panel closed")
		c.current = epoch
		c.engine = nil
		prev := c.live.Load()
		c.live.Store(&view{model: prev.model, status: StatusIdle})
	})
}

// Settle blocks until every call issued so far has been applied or dropped.
func (c *Coordinator) Settle(ctx context.Context) error {
	ack := make(chan struct{})
	err := c.post(ctx, func() {
		if c.inflight == 0 {
			close(ack)
			return
		}
		c.idle = append(c.idle, ack)
	})
	if err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// Snapshot returns the latest committed display model.
func (c *Coordinator) Snapshot() DisplayModel {
	return c.live.Load().model
}

// Status returns the state machine position.
func (c *Coordinator) Status() Status {
	return c.live.Load().status
}

// RefreshRates reloads the rate table while a currency is selected and
// republishes the exchange rate of the current model. A failed reload keeps
// the previous table and rate.
func (c *Coordinator) RefreshRates(ctx context.Context) error {
	code := c.converter.Target()
	if code == "" {
		return nil
	}
	epoch := c.Epoch()

	t, err := c.converter.LoadRate(ctx, c.ratesBase)
	if err != nil {
		return err
	}
	return c.post(ctx, func() {
		e := c.engine
		if e == nil || e.epoch != epoch || c.converter.Target() != code {
			return
		}
		e.rate(Result[currency.Table]{Epoch: epoch, Source: SourceRates, Value: t}, code)
		c.commit()
	})
}

// Epoch returns the most recently allocated epoch. Results tagged with an
// older epoch are dropped once the loop has caught up.
func (c *Coordinator) Epoch() Epoch {
	return Epoch(c.next.Load())
}

// Converter returns the currency converter fed by the current selection.
func (c *Coordinator) Converter() *currency.Converter {
	return c.converter
}

func (c *Coordinator) begin(epoch Epoch, country Country) {
	if epoch <= c.current {
		c.log.Debug().Uint64("epoch", uint64(epoch)).Uint64("current", uint64(c.current)).Msg("selection superseded before start")
		return
	}
	c.log.Info().
		Uint64("epoch", uint64(epoch)).
		Str("iso3", country.ISO3).
		Msg("country selected")

	c.current = epoch
	c.overlay.ClearMarkers(markers.ScopeAll)
	c.overlay.SetBorder(nil)
	c.converter.SetTarget("")
	c.engine = newEngine(epoch, country, c.overlay, c.sink)
	c.commit()
	c.fanOut(c.engine)
}

func (c *Coordinator) commit() {
	if c.engine == nil {
		return
	}
	status := StatusLoading
	if c.engine.ready() {
		status = StatusReady
	}
	c.live.Store(&view{model: c.engine.snapshot(), status: status})
}

func (c *Coordinator) release() {
	c.inflight--
	if c.inflight > 0 {
		return
	}
	for _, ch := range c.idle {
		close(ch)
	}
	c.idle = nil
}

func (c *Coordinator) onGeocoded(r Result[[]Country]) {
	if !r.OK() {
		c.log.Warn().Err(r.Err).Msg("reverse geocoding failed")
		return
	}
	if len(r.Value) == 0 {
		c.log.Debug().Msg("reverse geocoding found no country")
		return
	}
	country := r.Value[0]
	if err := normalizeCountry(&country); err != nil {
		c.log.Warn().Err(err).Msg("reverse geocoding returned an unusable country")
		return
	}
	c.begin(Epoch(c.next.Add(1)), country)
}

func normalizeCountry(c *Country) error {
	c.ISO3 = strings.ToUpper(strings.TrimSpace(c.ISO3))
	c.ISO2 = strings.ToUpper(strings.TrimSpace(c.ISO2))
	c.Name = strings.TrimSpace(c.Name)
	c.CapitalName = strings.TrimSpace(c.CapitalName)
	if !common.IsCountryCode(c.ISO3, 3) {
		return fmt.Errorf("%w: iso3 %q", ErrInvalidCountry, c.ISO3)
	}
	if c.ISO2 != "" && !common.IsCountryCode(c.ISO2, 2) {
		return fmt.Errorf("%w: iso2 %q", ErrInvalidCountry, c.ISO2)
	}
	return nil
}
