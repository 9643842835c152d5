package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"listingscraper/internal/model"
	"listingscraper/internal/store"
)

// RunnerFor resolves which TaskRunner/RetryRunner executes tasks of a
// given scraper type. Supplied by cmd-level wiring, since each scraper
// type (catalog, detail, catalog_static) constructs a different driver
// from a batch's shared proxy and persists through internal/store itself.
// The RetryRunner may be nil for scraper types that never retry (the
// detail run: SPEC_FULL.md §4.7 "retryFailed=false").
type RunnerFor func(scraperType model.ScraperType) (TaskRunner, RetryRunner)

// Scheduler wires cron triggers to the catalog/detail/static/cleanup/
// heartbeat runs, using State for the shared timeout events and retry
// backlogs each run needs. Grounded on
// original_source/scraper/main/python/Scheduler.py's top-level
// schedule.every(...) wiring, trimmed to this fixed set of six triggers;
// cron registration style from
// ternarybob-quaero/internal/services/scheduler/scheduler_service.go's
// cron.New()/AddFunc pattern (not its dynamic job-definition machinery).
type Scheduler struct {
	SchedulerID string
	Store       store.Repository
	State       *State
	Log         *slog.Logger

	cron *cron.Cron
}

// New constructs a Scheduler bound to repo, ready for Triggers + Start.
func New(schedulerID string, repo store.Repository, log *slog.Logger) *Scheduler {
	return &Scheduler{SchedulerID: schedulerID, Store: repo, State: NewState(), Log: log, cron: cron.New()}
}

// Triggers registers six cron jobs: the catalog, static, detail and
// cleanup runs, one retry pass covering both retryable scraper types
// (catalog and catalog_static), and a heartbeat. How often each fires is
// set by its spec string; an empty spec skips that trigger. runID mints a fresh run identifier for each fire
// (the caller typically closes over an atomic counter or a clock-derived
// value).
func (s *Scheduler) Triggers(spec TriggerSpec, runners RunnerFor, runID func() int64, nextRun NextScrapeTime) error {
	add := func(cronSpec string, job func()) error {
		if cronSpec == "" {
			return nil
		}
		_, err := s.cron.AddFunc(cronSpec, s.recovering(job))
		return err
	}

	if err := add(spec.CatalogCron, func() { s.RunCatalog(context.Background(), runners, runID()) }); err != nil {
		return err
	}
	if err := add(spec.StaticCron, func() { s.RunStatic(context.Background(), runners, runID()) }); err != nil {
		return err
	}
	if err := add(spec.DetailCron, func() { s.RunDetail(context.Background(), runners, runID()) }); err != nil {
		return err
	}
	if err := add(spec.CleanupCron, func() { s.Cleanup(context.Background(), spec.CleanupFn) }); err != nil {
		return err
	}
	if err := add(spec.RetryCron, func() {
		s.RetryPass(context.Background(), model.ScraperCatalog, runners, nextRun)
		s.RetryPass(context.Background(), model.ScraperCatalogStatic, runners, nextRun)
	}); err != nil {
		return err
	}
	if err := add(spec.HeartbeatCron, s.Heartbeat); err != nil {
		return err
	}
	return nil
}

// TriggerSpec is the set of cron expressions (and the one OS-touching
// callback) Triggers wires up.
type TriggerSpec struct {
	CatalogCron   string
	DetailCron    string
	StaticCron    string
	CleanupCron   string
	RetryCron     string
	HeartbeatCron string
	CleanupFn     func(ctx context.Context) error
}

// Start begins firing registered triggers in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for in-flight trigger invocations to finish and stops firing
// new ones.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

func (s *Scheduler) recovering(job func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.Log.Error("scheduler job panicked", "recover", r)
			}
		}()
		job()
	}
}

// RunCatalog runs one full catalog scrape across every active locale
// configuration, retrying failures on the next hourly pass.
func (s *Scheduler) RunCatalog(ctx context.Context, runners RunnerFor, runID int64) {
	s.runLocaleConfigurations(ctx, model.ScraperCatalog, runners, runID)
}

// RunStatic runs one full catalog_static scrape, the plain-HTTP variant of
// RunCatalog (SPEC_FULL.md §4.7 "Static scraper variant").
func (s *Scheduler) RunStatic(ctx context.Context, runners RunnerFor, runID int64) {
	s.runLocaleConfigurations(ctx, model.ScraperCatalogStatic, runners, runID)
}

func (s *Scheduler) runLocaleConfigurations(ctx context.Context, scraperType model.ScraperType, runners RunnerFor, runID int64) {
	log := s.Log.With("scraperType", scraperType, "runId", runID)

	settings, err := s.Store.GetSettings(ctx, s.SchedulerID)
	if err != nil {
		log.Error("load settings failed", "error", err)
		return
	}

	tasks, err := s.Store.GetLocaleConfigurations(ctx, scraperType)
	if err != nil {
		log.Error("load locale configurations failed", "error", err)
		return
	}
	if len(tasks) == 0 {
		log.Warn("no active locale configurations")
		return
	}

	proxies, err := s.Store.GetProxies(ctx)
	if err != nil {
		log.Error("load proxies failed", "error", err)
		return
	}

	s.dispatch(ctx, scraperType, tasks, proxies, settings, runID, runners, log)
}

// RunDetail runs one full detail scrape across the four priority subsets
// (SPEC_FULL.md §4.7 "Detail run"): newly added records, competitor
// backlog, inconclusive records, platform backlog, each independently
// interleaved across domains before concatenation. Detail failures are
// never retried (retryFailed=false): RunnerFor's RetryRunner is not
// consulted here.
func (s *Scheduler) RunDetail(ctx context.Context, runners RunnerFor, runID int64) {
	log := s.Log.With("scraperType", model.ScraperDetail, "runId", runID)

	settings, err := s.Store.GetSettings(ctx, s.SchedulerID)
	if err != nil {
		log.Error("load settings failed", "error", err)
		return
	}

	newlyAdded, competitorBacklog, inconclusive, platformBacklog, err := s.Store.GetVDPWorkList(ctx)
	if err != nil {
		log.Error("load vdp work list failed", "error", err)
		return
	}

	proxies, err := s.Store.GetProxies(ctx)
	if err != nil {
		log.Error("load proxies failed", "error", err)
		return
	}

	var tasks []model.ScrapeTask
	for _, subset := range [][]model.ScrapeTask{newlyAdded, competitorBacklog, inconclusive, platformBacklog} {
		if len(subset) == 0 {
			continue
		}
		for i := range subset {
			subset[i].RunID = runID
		}
		subset = AssignProxies(subset, proxies, runID)
		tasks = append(tasks, Interleave(subset)...)
	}
	if len(tasks) == 0 {
		log.Warn("no vdp work found")
		return
	}

	s.dispatch(ctx, model.ScraperDetail, tasks, proxies, settings, runID, runners, log)
}

func (s *Scheduler) dispatch(ctx context.Context, scraperType model.ScraperType, tasks []model.ScrapeTask,
	proxies []model.Proxy, settings *store.Settings, runID int64, runners RunnerFor, log *slog.Logger) {

	storeRunID, err := s.Store.SaveRun(ctx, scraperType)
	if err != nil {
		log.Error("save run failed", "error", err)
		return
	}
	defer func() {
		if err := s.Store.EndRun(ctx, storeRunID); err != nil {
			log.Error("end run failed", "error", err)
		}
	}()

	batches := Batch(tasks, settings.BatchSize, settings.PoolCapacity, proxies)

	taskRunner, _ := runners(scraperType)
	if taskRunner == nil {
		log.Error("no task runner registered for scraper type")
		return
	}

	event := s.State.BeginRun(ctx, scraperType)
	opts := PoolOptions{
		Capacity:            settings.PoolCapacity,
		StartupStaggerDelay: settings.StartupStaggerDelay,
		BatchTimeout:        settings.BatchTimeout,
		RunTimeout:          settings.RunTimeout,
	}
	RunPool(event.Context(), batches, taskRunner, opts, event)
}

// RetryPass runs the hourly retry backlog pass for scraperType.
func (s *Scheduler) RetryPass(ctx context.Context, scraperType model.ScraperType, runners RunnerFor, nextRun NextScrapeTime) {
	settings, err := s.Store.GetSettings(ctx, s.SchedulerID)
	if err != nil {
		s.Log.Error("retry pass: load settings failed", "scraperType", scraperType, "error", err)
		return
	}

	_, retryRunner := runners(scraperType)
	if retryRunner == nil {
		return
	}

	opts := RetryOptions{
		StartupDelay:   settings.RetryStartupDelay,
		MaxAge:         settings.MaxRetryAge,
		WaitBetween:    settings.RetryWaitBetween,
		ProcessTimeout: settings.ProcessTimeout,
		MaxAttempts:    settings.RetryAttempts + 1,
	}
	s.State.Backlog(scraperType).Run(ctx, time.Now(), opts, nextRun, retryRunner)
}

// Cleanup runs cleanupFn and logs its error; a nil cleanupFn makes it a
// no-op. cleanupFn is supplied by cmd-level wiring, since OS processes and
// the filesystem are not part of the scheduling model.
func (s *Scheduler) Cleanup(ctx context.Context, cleanupFn func(ctx context.Context) error) {
	if cleanupFn == nil {
		return
	}
	if err := cleanupFn(ctx); err != nil {
		s.Log.Error("cleanup failed", "error", err)
	}
}

// Heartbeat logs a liveness line, fired every four hours per
// SPEC_FULL.md §4.7.
func (s *Scheduler) Heartbeat() {
	s.Log.Info("scheduler heartbeat", "schedulerId", s.SchedulerID)
}
