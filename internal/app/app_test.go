package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"listingscraper/internal/config"
	"listingscraper/internal/model"
	"listingscraper/internal/result"
	"listingscraper/internal/scheduler"
	"listingscraper/internal/store"
)

type fakeRepo struct {
	savedRecords []model.Record
	savedDetail  []model.Record
	saveErr      error
}

func (f *fakeRepo) SaveRun(ctx context.Context, runType model.ScraperType) (int64, error) { return 1, nil }
func (f *fakeRepo) EndRun(ctx context.Context, runID int64) error                         { return nil }
func (f *fakeRepo) SaveScrape(ctx context.Context, task model.ScrapeTask, recordCount int, message string, elapsed time.Duration) (int64, error) {
	return 42, nil
}
func (f *fakeRepo) UpdateScrape(ctx context.Context, sessionID int64, recordCount int, message string, elapsed time.Duration) error {
	return nil
}
func (f *fakeRepo) SaveRecords(ctx context.Context, records []model.Record, task model.ScrapeTask, sessionID int64) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedRecords = append(f.savedRecords, records...)
	return nil
}
func (f *fakeRepo) SaveOrUpdateDetail(ctx context.Context, record model.Record) error {
	f.savedDetail = append(f.savedDetail, record)
	return nil
}
func (f *fakeRepo) GetAverageCount(ctx context.Context, url string) (float64, error) { return 0, nil }
func (f *fakeRepo) GetRecordsWithImages(ctx context.Context, task model.ScrapeTask) ([]string, error) {
	return nil, nil
}
func (f *fakeRepo) GetDefaultImageHashes(ctx context.Context) (map[string]bool, error) {
	return nil, nil
}
func (f *fakeRepo) GetProxies(ctx context.Context) ([]model.Proxy, error)              { return nil, nil }
func (f *fakeRepo) GetSettings(ctx context.Context, schedulerID string) (*store.Settings, error) {
	return &store.Settings{}, nil
}
func (f *fakeRepo) GetTargetDomains(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeRepo) GetLocaleConfigurations(ctx context.Context, scraperType model.ScraperType) ([]model.ScrapeTask, error) {
	return nil, nil
}
func (f *fakeRepo) GetVDPWorkList(ctx context.Context) ([]model.ScrapeTask, []model.ScrapeTask, []model.ScrapeTask, []model.ScrapeTask, error) {
	return nil, nil, nil, nil, nil
}

var _ store.Repository = (*fakeRepo)(nil)

func testDeps(repo *fakeRepo) Dependencies {
	return Dependencies{
		Config: &config.Config{},
		Store:  repo,
		State:  scheduler.NewState(),
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestNewRunnersRoutesByScraperType(t *testing.T) {
	runners := NewRunners(testDeps(&fakeRepo{}))

	catalogTask, catalogRetry := runners(model.ScraperCatalog)
	if catalogTask == nil || catalogRetry == nil {
		t.Fatal("expected catalog to have both a task runner and a retry runner")
	}

	detailTask, detailRetry := runners(model.ScraperDetail)
	if detailTask == nil {
		t.Fatal("expected detail to have a task runner")
	}
	if detailRetry != nil {
		t.Fatal("expected detail to have no retry runner (retryFailed=false)")
	}

	staticTask, staticRetry := runners(model.ScraperCatalogStatic)
	if staticTask == nil || staticRetry == nil {
		t.Fatal("expected static to have both a task runner and a retry runner")
	}

	unknownTask, unknownRetry := runners(model.ScraperType("bogus"))
	if unknownTask != nil || unknownRetry != nil {
		t.Fatal("expected an unknown scraper type to resolve to no runners")
	}
}

func TestCleanerConfigForAppliesIgnoredSteps(t *testing.T) {
	task := model.ScrapeTask{
		URL:           "https://example.com/cars",
		Configuration: model.Configuration{IgnoredCleaningSteps: []string{"stripComments"}},
	}
	cfg := cleanerConfigFor(task)
	if !cfg.IgnoredSteps["stripComments"] {
		t.Fatalf("expected stripComments to be ignored, got %v", cfg.IgnoredSteps)
	}
	if cfg.BaseURL != task.URL {
		t.Fatalf("expected base URL to be the task URL, got %q", cfg.BaseURL)
	}
}

func TestPersistScrapeSavesRecordsOnSuccess(t *testing.T) {
	repo := &fakeRepo{}
	deps := testDeps(repo)
	task := model.ScrapeTask{Domain: "example"}
	out := result.OkResult([]model.Record{{Alias: "a1"}})

	if ok := persistScrape(context.Background(), deps, task, out, time.Now()); !ok {
		t.Fatal("expected success")
	}
	if len(repo.savedRecords) != 1 {
		t.Fatalf("expected 1 saved record, got %d", len(repo.savedRecords))
	}
}

func TestPersistScrapeSkipsRecordsOnFailure(t *testing.T) {
	repo := &fakeRepo{}
	deps := testDeps(repo)
	task := model.ScrapeTask{Domain: "example"}
	out := result.TerminalResult(result.InsufficientRecords, "too few records")

	if ok := persistScrape(context.Background(), deps, task, out, time.Now()); ok {
		t.Fatal("expected failure")
	}
	if len(repo.savedRecords) != 0 {
		t.Fatalf("expected no saved records on failure, got %d", len(repo.savedRecords))
	}
}

func TestNextScrapeTimeReturnsZero(t *testing.T) {
	if got := NextScrapeTime(model.ScrapeTask{}); !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}
}
