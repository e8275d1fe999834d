package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/country-explorer/internal/session"
)

// refreshConcurrency bounds the rate reloads running at once.
const refreshConcurrency = 4

// Scheduler periodically prunes idle sessions and reloads the rate tables of
// the remaining ones.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sessions  *session.Manager
	interval  time.Duration
	maxAge    time.Duration
	log       zerolog.Logger
}

// New creates a new Scheduler.
func New(sessions *session.Manager, interval, maxAge time.Duration, log zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		sessions:  sessions,
		interval:  interval,
		maxAge:    maxAge,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info().Msg("refresh interval not set; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce prunes idle sessions, then refreshes the rate tables of the rest.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.log.Debug().Msg("running maintenance job")

	pruned := s.sessions.Prune(s.maxAge)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, sess := range s.sessions.Sessions() {
		sess := sess
		g.Go(func() error {
			// A failed reload keeps the previous table; it must not cancel
			// the other sessions' reloads.
			if err := sess.RefreshRates(ctx); err != nil {
				s.log.Warn().Err(err).Str("session", sess.ID).Msg("rate refresh failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Debug().Int("pruned", len(pruned)).Int("live", s.sessions.Len()).Msg("completed maintenance job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
