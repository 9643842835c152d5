package scheduler

import (
	"context"
	"testing"

	"listingscraper/internal/model"
)

func TestStateClearSetsEveryRegisteredEvent(t *testing.T) {
	s := NewState()
	catalog := s.BeginRun(context.Background(), model.ScraperCatalog)
	detail := s.BeginRun(context.Background(), model.ScraperDetail)

	if catalog.IsSet() || detail.IsSet() {
		t.Fatal("expected events unset before Clear")
	}

	s.Clear()

	if !catalog.IsSet() || !detail.IsSet() {
		t.Fatal("expected Clear to set every registered event")
	}
}

func TestStateBacklogIsStablePerScraperType(t *testing.T) {
	s := NewState()
	a := s.Backlog(model.ScraperCatalog)
	b := s.Backlog(model.ScraperCatalog)
	if a != b {
		t.Fatal("expected repeated Backlog calls for the same type to return the same instance")
	}

	other := s.Backlog(model.ScraperDetail)
	if other == a {
		t.Fatal("expected distinct backlogs per scraper type")
	}
}

func TestStateBeginRunReplacesPriorEvent(t *testing.T) {
	s := NewState()
	first := s.BeginRun(context.Background(), model.ScraperCatalog)
	second := s.BeginRun(context.Background(), model.ScraperCatalog)

	s.Clear()
	if !second.IsSet() {
		t.Fatal("expected the latest event to be cleared")
	}
	if first.IsSet() {
		t.Fatal("expected the replaced event to be left unset by Clear")
	}
}
