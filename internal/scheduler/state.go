package scheduler

import (
	"context"
	"sync"

	"listingscraper/internal/model"
)

// State tracks the one shared RunTimeoutEvent per scraper type that is
// live at any moment, plus the retry backlog each type's failed tasks
// feed into. Mirrors SchedulerProps: the original keeps one global
// timeout Event per scrape kind so the signal handler can clear all of
// them at once on shutdown.
type State struct {
	mu       sync.Mutex
	events   map[model.ScraperType]*model.RunTimeoutEvent
	backlogs map[model.ScraperType]*RetryBacklog
}

// NewState returns an empty registry.
func NewState() *State {
	return &State{
		events:   map[model.ScraperType]*model.RunTimeoutEvent{},
		backlogs: map[model.ScraperType]*RetryBacklog{},
	}
}

// BeginRun creates and registers a fresh timeout event for scraperType,
// bound to ctx, replacing any prior event for that type. Returns the new
// event for the caller to pass into RunPool.
func (s *State) BeginRun(ctx context.Context, scraperType model.ScraperType) *model.RunTimeoutEvent {
	event := model.NewRunTimeoutEvent(ctx)
	s.mu.Lock()
	s.events[scraperType] = event
	s.mu.Unlock()
	return event
}

// Backlog returns the retry backlog for scraperType, creating it on first
// use.
func (s *State) Backlog(scraperType model.ScraperType) *RetryBacklog {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.backlogs[scraperType]
	if !ok {
		b = &RetryBacklog{}
		s.backlogs[scraperType] = b
	}
	return b
}

// Clear forces every registered timeout event, so in-flight workers of
// every scraper type observe cancellation. Mirrors SchedulerProps.clear(),
// invoked by the signal handler on SIGINT/SIGTERM.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range s.events {
		event.Set()
	}
}
