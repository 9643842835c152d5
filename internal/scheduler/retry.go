package scheduler

import (
	"context"
	"sync"
	"time"

	"listingscraper/internal/model"
)

// RetryEntry is one failed task awaiting a retry attempt.
type RetryEntry struct {
	Task      model.ScrapeTask
	Attempts  int
	FirstSeen time.Time
}

// RetryRunner executes a single retried task and reports whether it
// succeeded, so the backlog knows whether to drop the entry or keep it
// for another pass. Mirrors try_scrape_page's bool return, used by
// retry_scrape.
type RetryRunner interface {
	RunOne(ctx context.Context, task model.ScrapeTask) bool
}

// NextScrapeTime reports when a task's own schedule would next run it
// regardless of the retry backlog. If that's sooner than a retry pass
// would get to it anyway, retrying now is wasted effort.
type NextScrapeTime func(task model.ScrapeTask) time.Time

// RetryOptions configures the hourly retry pass. Mirrors the knobs
// retry_failed_scrapes and retry_scrape read from SchedulerProps.
type RetryOptions struct {
	StartupDelay   time.Duration
	MaxAge         time.Duration
	WaitBetween    time.Duration
	ProcessTimeout time.Duration
	MaxAttempts    int
}

// RetryBacklog accumulates failed tasks across a run and works through
// them once per hour, oldest-first, never more than one at a time (a
// single-worker pool, per the original).
type RetryBacklog struct {
	mu      sync.Mutex
	entries []RetryEntry
}

// Add appends a newly failed task to the backlog.
func (b *RetryBacklog) Add(task model.ScrapeTask, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, RetryEntry{Task: task, FirstSeen: now})
}

// Len reports the current backlog size.
func (b *RetryBacklog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *RetryBacklog) snapshot() []RetryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RetryEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *RetryBacklog) replace(entries []RetryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = entries
}

// Run executes one retry pass: waits StartupDelay, then walks the backlog
// oldest-first. An entry older than MaxAge is dropped as stale. An entry
// whose own schedule will run it again sooner than WaitBetween is left in
// place untouched rather than retried now. Everything else is retried one
// at a time, spaced by WaitBetween and bounded by ProcessTimeout; a
// successful retry drops the entry, a failed one keeps it with Attempts
// incremented unless MaxAttempts has been reached. now is supplied by the
// caller (RetryPass passes time.Now()); Run measures entry ages and
// schedules against it instead of reading the clock.
func (b *RetryBacklog) Run(ctx context.Context, now time.Time, opts RetryOptions, nextRun NextScrapeTime, runner RetryRunner) {
	select {
	case <-time.After(opts.StartupDelay):
	case <-ctx.Done():
		return
	}

	pending := b.snapshot()
	kept := make([]RetryEntry, 0, len(pending))

	for i, entry := range pending {
		if ctx.Err() != nil {
			kept = append(kept, pending[i:]...)
			break
		}

		if opts.MaxAge > 0 && now.Sub(entry.FirstSeen) > opts.MaxAge {
			continue
		}

		if nextRun != nil && opts.WaitBetween > 0 {
			if at := nextRun(entry.Task); !at.IsZero() && at.Sub(now) < opts.WaitBetween {
				kept = append(kept, entry)
				continue
			}
		}

		retryCtx := ctx
		var cancel context.CancelFunc
		if opts.ProcessTimeout > 0 {
			retryCtx, cancel = context.WithTimeout(ctx, opts.ProcessTimeout)
		}
		ok := runner.RunOne(retryCtx, entry.Task)
		if cancel != nil {
			cancel()
		}

		if !ok {
			entry.Attempts++
			if opts.MaxAttempts <= 0 || entry.Attempts < opts.MaxAttempts {
				kept = append(kept, entry)
			}
		}

		if i < len(pending)-1 && opts.WaitBetween > 0 {
			select {
			case <-time.After(opts.WaitBetween):
			case <-ctx.Done():
				kept = append(kept, pending[i+1:]...)
				b.replace(kept)
				return
			}
		}
	}

	b.replace(kept)
}
