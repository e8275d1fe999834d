package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/country-explorer/internal/explorer"
)

type feedEntry struct {
	update explorer.Update
	at     time.Time
}

// Feed is a concurrency-safe, bounded log of display model updates. It
// implements explorer.Sink and assigns every update a sequence number so
// clients can poll for what they have not seen.
type Feed struct {
	mu sync.RWMutex

	seq     uint64
	entries []feedEntry
	changed chan struct{}

	// retention configuration
	maxHistory int           // max number of updates kept
	maxAge     time.Duration // optional max age of updates

	now func() time.Time
}

// NewFeed creates a Feed with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewFeed(maxHistory int, maxAge time.Duration) *Feed {
	return &Feed{
		changed:    make(chan struct{}),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Publish appends u and enforces retention.
func (f *Feed) Publish(u explorer.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	u.Seq = f.seq
	f.entries = append(f.entries, feedEntry{update: u, at: f.now()})

	// Enforce retention by count.
	if f.maxHistory > 0 && len(f.entries) > f.maxHistory {
		over := len(f.entries) - f.maxHistory
		f.entries = f.entries[over:]
	}

	// Enforce retention by age, always keeping the newest entry.
	if f.maxAge > 0 {
		cutoff := f.now().Add(-f.maxAge)
		i := 0
		for ; i < len(f.entries)-1; i++ {
			if !f.entries[i].at.Before(cutoff) {
				break
			}
		}
		f.entries = f.entries[i:]
	}

	close(f.changed)
	f.changed = make(chan struct{})
}

// Since returns the retained updates with a sequence number above after,
// oldest first.
func (f *Feed) Since(after uint64) []explorer.Update {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.since(after)
}

func (f *Feed) since(after uint64) []explorer.Update {
	var out []explorer.Update
	for _, e := range f.entries {
		if e.update.Seq > after {
			out = append(out, e.update)
		}
	}
	return out
}

// Last returns the sequence number of the newest update.
func (f *Feed) Last() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.seq
}

// Wait blocks until there are updates after the given sequence number or
// ctx is done. It returns whatever is available at that point.
func (f *Feed) Wait(ctx context.Context, after uint64) []explorer.Update {
	for {
		f.mu.RLock()
		out := f.since(after)
		changed := f.changed
		f.mu.RUnlock()

		if len(out) > 0 {
			return out
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}
