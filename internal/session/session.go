package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/i474232898/country-explorer/internal/currency"
	"github.com/i474232898/country-explorer/internal/explorer"
	"github.com/i474232898/country-explorer/internal/store"
)

// Session is one client's explorer: a coordinator with its own overlay,
// update feed and currency converter.
type Session struct {
	ID      string
	Created time.Time

	coord     *explorer.Coordinator
	overlay   *store.MemoryOverlay
	feed      *store.Feed
	converter *currency.Converter

	lastSeen atomic.Int64
	cancel   context.CancelFunc
	done     chan struct{}
}

// Select starts loading country and returns the new epoch.
func (s *Session) Select(ctx context.Context, country explorer.Country) (explorer.Epoch, error) {
	return s.coord.SelectCountry(ctx, country)
}

// Geolocate selects the country found at the given position, if any.
func (s *Session) Geolocate(ctx context.Context, lat, lon float64) error {
	return s.coord.GeolocationResolved(ctx, lat, lon)
}

// Locate asks loc for the user's position and selects the country there.
func (s *Session) Locate(ctx context.Context, loc explorer.Locator) error {
	return s.coord.Locate(ctx, loc)
}

// ClosePanel retires the current selection.
func (s *Session) ClosePanel(ctx context.Context) error {
	return s.coord.ClosePanel(ctx)
}

// Settle waits until every call issued so far has been applied or dropped.
func (s *Session) Settle(ctx context.Context) error {
	return s.coord.Settle(ctx)
}

func (s *Session) Model() explorer.DisplayModel {
	return s.coord.Snapshot()
}

func (s *Session) Status() explorer.Status {
	return s.coord.Status()
}

func (s *Session) Overlay() store.OverlayView {
	return s.overlay.View()
}

// Updates returns the updates published after seq. With wait set it blocks
// until at least one is available or ctx is done.
func (s *Session) Updates(ctx context.Context, after uint64, wait bool) []explorer.Update {
	if wait {
		return s.feed.Wait(ctx, after)
	}
	return s.feed.Since(after)
}

// LastSeq returns the sequence number of the newest published update.
func (s *Session) LastSeq() uint64 {
	return s.feed.Last()
}

// Convert converts amount from the rates base into the selected country's
// currency.
func (s *Session) Convert(amount float64) (currency.Quote, error) {
	return s.converter.Convert(amount)
}

// RefreshRates reloads the rate table while a target currency is set. The
// model's exchange rate follows the reloaded table.
func (s *Session) RefreshRates(ctx context.Context) error {
	return s.coord.RefreshRates(ctx)
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) stop() {
	s.cancel()
	<-s.done
}
