package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/country-explorer/internal/currency"
	"github.com/i474232898/country-explorer/internal/explorer"
	"github.com/i474232898/country-explorer/internal/store"
)

var (
	// ErrNotFound is returned when no session exists for an id.
	ErrNotFound = errors.New("session not found")
)

// Options tunes the sessions created by a Manager.
type Options struct {
	FeedMaxHistory int
	FeedMaxAge     time.Duration
	RatesBase      string
}

// Manager is a concurrency-safe registry of sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	gateway  explorer.Gateway
	geocoder explorer.Geocoder
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
}

// NewManager creates a Manager. geocoder may be nil, in which case
// geolocation is unavailable.
func NewManager(gw explorer.Gateway, geocoder explorer.Geocoder, opts Options, log zerolog.Logger) *Manager {
	if opts.RatesBase == "" {
		opts.RatesBase = explorer.DefaultRatesBase
	}
	return &Manager{
		sessions: make(map[string]*Session),
		gateway:  gw,
		geocoder: geocoder,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// Create starts a new session with its own event loop.
func (m *Manager) Create() *Session {
	id := uuid.NewString()
	log := m.log.With().Str("session", id).Logger()

	s := &Session{
		ID:        id,
		Created:   m.now(),
		overlay:   store.NewMemoryOverlay(),
		feed:      store.NewFeed(m.opts.FeedMaxHistory, m.opts.FeedMaxAge),
		converter: currency.NewConverter(m.gateway),
		done:      make(chan struct{}),
	}
	s.touch(s.Created)

	opts := []explorer.Option{
		explorer.WithLogger(log),
		explorer.WithConverter(s.converter),
		explorer.WithRatesBase(m.opts.RatesBase),
	}
	if m.geocoder != nil {
		opts = append(opts, explorer.WithGeocoder(m.geocoder))
	}
	s.coord = explorer.NewCoordinator(m.gateway, s.overlay, s.feed, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		if err := s.coord.Run(ctx); err != nil {
			log.Error().Err(err).Msg("event loop exited")
		}
	}()

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	log.Info().Msg("session created")
	return s
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Close stops the session's event loop and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.stop()
	m.log.Info().Str("session", id).Msg("session closed")
	return nil
}

// Prune closes the sessions unused for longer than maxAge and returns their
// ids. A non-positive maxAge disables pruning.
func (m *Manager) Prune(maxAge time.Duration) []string {
	if maxAge <= 0 {
		return nil
	}
	cutoff := m.now().Add(-maxAge)

	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(stale))
	for _, s := range stale {
		s.stop()
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	if len(ids) > 0 {
		m.log.Info().Int("count", len(ids)).Msg("pruned idle sessions")
	}
	return ids
}

// Sessions returns the live sessions ordered by creation time.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Countries lists the selectable countries.
func (m *Manager) Countries(ctx context.Context) ([]explorer.Country, error) {
	return m.gateway.Countries(ctx)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
}
