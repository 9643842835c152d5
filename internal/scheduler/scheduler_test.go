package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"listingscraper/internal/model"
	"listingscraper/internal/store"
)

type fakeRepo struct {
	mu              sync.Mutex
	locales         map[model.ScraperType][]model.ScrapeTask
	vdpSubsets      [4][]model.ScrapeTask
	proxies         []model.Proxy
	settings        store.Settings
	savedRuns       []model.ScraperType
	endedRuns       []int64
	nextRunID       int64
	settingsErr     error
}

func (f *fakeRepo) SaveRun(ctx context.Context, runType model.ScraperType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRunID++
	f.savedRuns = append(f.savedRuns, runType)
	return f.nextRunID, nil
}

func (f *fakeRepo) EndRun(ctx context.Context, runID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endedRuns = append(f.endedRuns, runID)
	return nil
}

func (f *fakeRepo) SaveScrape(ctx context.Context, task model.ScrapeTask, recordCount int, message string, elapsed time.Duration) (int64, error) {
	return 1, nil
}
func (f *fakeRepo) UpdateScrape(ctx context.Context, sessionID int64, recordCount int, message string, elapsed time.Duration) error {
	return nil
}
func (f *fakeRepo) SaveRecords(ctx context.Context, records []model.Record, task model.ScrapeTask, sessionID int64) error {
	return nil
}
func (f *fakeRepo) SaveOrUpdateDetail(ctx context.Context, record model.Record) error { return nil }
func (f *fakeRepo) GetAverageCount(ctx context.Context, url string) (float64, error)  { return 0, nil }
func (f *fakeRepo) GetRecordsWithImages(ctx context.Context, task model.ScrapeTask) ([]string, error) {
	return nil, nil
}
func (f *fakeRepo) GetDefaultImageHashes(ctx context.Context) (map[string]bool, error) {
	return nil, nil
}
func (f *fakeRepo) GetProxies(ctx context.Context) ([]model.Proxy, error) { return f.proxies, nil }
func (f *fakeRepo) GetSettings(ctx context.Context, schedulerID string) (*store.Settings, error) {
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}
	s := f.settings
	return &s, nil
}
func (f *fakeRepo) GetTargetDomains(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeRepo) GetLocaleConfigurations(ctx context.Context, scraperType model.ScraperType) ([]model.ScrapeTask, error) {
	return f.locales[scraperType], nil
}

func (f *fakeRepo) GetVDPWorkList(ctx context.Context) ([]model.ScrapeTask, []model.ScrapeTask, []model.ScrapeTask, []model.ScrapeTask, error) {
	return f.vdpSubsets[0], f.vdpSubsets[1], f.vdpSubsets[2], f.vdpSubsets[3], nil
}

var _ store.Repository = (*fakeRepo)(nil)

type fakeTaskRunner struct {
	mu  sync.Mutex
	ran []string
}

func (r *fakeTaskRunner) RunBatch(ctx context.Context, batch model.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tk := range batch.Tasks {
		r.ran = append(r.ran, tk.URL)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCatalogDispatchesEveryTask(t *testing.T) {
	repo := &fakeRepo{
		locales: map[model.ScraperType][]model.ScrapeTask{
			model.ScraperCatalog: {
				{Domain: "a", URL: "a1"},
				{Domain: "a", URL: "a2"},
				{Domain: "b", URL: "b1"},
			},
		},
		settings: store.Settings{PoolCapacity: 2, BatchSize: 2},
	}
	runner := &fakeTaskRunner{}
	sched := New("sched-1", repo, testLogger())

	sched.RunCatalog(context.Background(), func(model.ScraperType) (TaskRunner, RetryRunner) { return runner, nil }, 7)

	if len(runner.ran) != 3 {
		t.Fatalf("expected all 3 tasks dispatched, got %d (%v)", len(runner.ran), runner.ran)
	}
	if len(repo.savedRuns) != 1 || repo.savedRuns[0] != model.ScraperCatalog {
		t.Fatalf("expected one saved catalog run, got %v", repo.savedRuns)
	}
	if len(repo.endedRuns) != 1 {
		t.Fatalf("expected run to be ended, got %v", repo.endedRuns)
	}
}

func TestRunCatalogSkipsWhenNoConfigurations(t *testing.T) {
	repo := &fakeRepo{settings: store.Settings{PoolCapacity: 1, BatchSize: 1}}
	runner := &fakeTaskRunner{}
	sched := New("sched-1", repo, testLogger())

	sched.RunCatalog(context.Background(), func(model.ScraperType) (TaskRunner, RetryRunner) { return runner, nil }, 1)

	if len(repo.savedRuns) != 0 {
		t.Fatalf("expected no run saved when there are no tasks, got %v", repo.savedRuns)
	}
}

func TestRunDetailConcatenatesAllFourSubsets(t *testing.T) {
	repo := &fakeRepo{
		vdpSubsets: [4][]model.ScrapeTask{
			{{Domain: "a", URL: "new1"}},
			{{Domain: "b", URL: "comp1"}},
			{{Domain: "c", URL: "inc1"}},
			{{Domain: "d", URL: "plat1"}},
		},
		settings: store.Settings{PoolCapacity: 4, BatchSize: 4},
	}
	runner := &fakeTaskRunner{}
	sched := New("sched-1", repo, testLogger())

	sched.RunDetail(context.Background(), func(model.ScraperType) (TaskRunner, RetryRunner) { return runner, nil }, 1)

	if len(runner.ran) != 4 {
		t.Fatalf("expected 4 tasks across all subsets dispatched, got %d (%v)", len(runner.ran), runner.ran)
	}
}

func TestRetryPassInvokesBacklogRun(t *testing.T) {
	repo := &fakeRepo{settings: store.Settings{RetryAttempts: 2}}
	sched := New("sched-1", repo, testLogger())
	sched.State.Backlog(model.ScraperCatalog).Add(model.ScrapeTask{URL: "a"}, time.Now())

	runner := &scriptedRetryRunner{results: []bool{true}}
	sched.RetryPass(context.Background(), model.ScraperCatalog, func(model.ScraperType) (TaskRunner, RetryRunner) { return nil, runner }, nil)

	if len(runner.calls) != 1 {
		t.Fatalf("expected retry pass to invoke the retry runner once, got %v", runner.calls)
	}
	if sched.State.Backlog(model.ScraperCatalog).Len() != 0 {
		t.Fatal("expected successful retry to clear the backlog")
	}
}
