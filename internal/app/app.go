// Package app wires the scheduler's abstract TaskRunner/RetryRunner
// contracts to concrete pipelines: a browser-driven runner for the catalog
// and detail scrapers, and a plain-HTTP runner for catalog_static.
// Grounded on ncecere-raito/cmd/raito-api/main.go's construct-then-handoff
// wiring style, generalized from one HTTP server handoff to three scraper
// pipelines sharing one store.Repository and blobstore.Store.
package app

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"listingscraper/internal/blobstore"
	"listingscraper/internal/blockfinder"
	"listingscraper/internal/browser"
	"listingscraper/internal/catalogscraper"
	"listingscraper/internal/cleaner"
	"listingscraper/internal/config"
	"listingscraper/internal/detailscraper"
	"listingscraper/internal/model"
	"listingscraper/internal/pagination"
	"listingscraper/internal/result"
	"listingscraper/internal/scheduler"
	"listingscraper/internal/staticscraper"
	"listingscraper/internal/store"
)

// Dependencies bundles everything a runner needs beyond the task itself.
type Dependencies struct {
	Config *config.Config
	Store  store.Repository
	Blob   blobstore.Store
	Rules  []model.AttributeRule
	State  *scheduler.State
	Log    *slog.Logger
}

// NewRunners assembles the catalog/detail/static runners into the
// scheduler.RunnerFor closure Scheduler.Triggers needs. Detail never
// retries (SPEC_FULL.md §4.7 "retryFailed=false"), so its RetryRunner is
// nil.
func NewRunners(deps Dependencies) scheduler.RunnerFor {
	catalog := &catalogRunner{deps: deps}
	detail := &detailRunner{deps: deps}
	static := &staticRunner{deps: deps}
	return func(scraperType model.ScraperType) (scheduler.TaskRunner, scheduler.RetryRunner) {
		switch scraperType {
		case model.ScraperCatalog:
			return catalog, catalog
		case model.ScraperDetail:
			return detail, nil
		case model.ScraperCatalogStatic:
			return static, static
		default:
			return nil, nil
		}
	}
}

// NextScrapeTime answers scheduler.RetryPass's deferral question with "no
// known upcoming run": without a cron-schedule-to-next-fire-time table
// wired in, the retry backlog always falls through to its normal
// WaitBetween cadence rather than ever deferring. A complete deployment
// would supply a NextScrapeTime backed by the TriggerSpec's cron
// expressions; this is the conservative stand-in.
func NextScrapeTime(model.ScrapeTask) time.Time {
	return time.Time{}
}

func driverTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Driver.LaunchTimeoutMs) * time.Millisecond
}

func cleanerConfigFor(task model.ScrapeTask) cleaner.Config {
	cfg := cleaner.DefaultConfig(task.URL)
	if len(task.Configuration.IgnoredCleaningSteps) > 0 {
		ignored := make(map[string]bool, len(task.Configuration.IgnoredCleaningSteps))
		for _, step := range task.Configuration.IgnoredCleaningSteps {
			ignored[step] = true
		}
		cfg.IgnoredSteps = ignored
	}
	return cfg
}

func blockFinderOptionsFor(p config.PipelineConfig) blockfinder.Options {
	return blockfinder.Options{
		MaxTagDistance: p.MaxTagDistance,
		Fallback:       true,
	}
}

// catalogRunner drives the C5 catalog pipeline over a rendered browser
// session, one session reused across a batch's tasks with crash-rebuild
// via Session.IsAlive (SPEC_FULL.md §5 "Browser process lifecycle").
type catalogRunner struct {
	deps Dependencies
}

func (r *catalogRunner) RunBatch(ctx context.Context, batch model.Batch) {
	timeout := driverTimeout(r.deps.Config)
	session, err := browser.Launch(ctx, timeout, batch.Proxy)
	if err != nil {
		r.deps.Log.Error("launch browser failed", "error", err)
		r.requeueAll(batch.Tasks)
		return
	}
	defer session.Close()

	for _, task := range batch.Tasks {
		if !session.IsAlive() {
			session.Close()
			rebuilt, err := browser.Launch(ctx, timeout, batch.Proxy)
			if err != nil {
				r.deps.Log.Error("rebuild browser after crash failed", "error", err)
				r.requeueAll([]model.ScrapeTask{task})
				continue
			}
			session = rebuilt
		}
		if ok := r.runOne(ctx, session, task); !ok {
			r.deps.State.Backlog(model.ScraperCatalog).Add(task, time.Now())
		}
	}
}

func (r *catalogRunner) requeueAll(tasks []model.ScrapeTask) {
	for _, task := range tasks {
		r.deps.State.Backlog(model.ScraperCatalog).Add(task, time.Now())
	}
}

// RunOne satisfies scheduler.RetryRunner for the hourly retry pass: each
// retried task gets its own short-lived browser session, since retries run
// one at a time and never share a batch.
func (r *catalogRunner) RunOne(ctx context.Context, task model.ScrapeTask) bool {
	session, err := browser.Launch(ctx, driverTimeout(r.deps.Config), task.Proxy)
	if err != nil {
		r.deps.Log.Error("retry: launch browser failed", "error", err)
		return false
	}
	defer session.Close()
	return r.runOne(ctx, session, task)
}

func (r *catalogRunner) runOne(ctx context.Context, session *browser.Session, task model.ScrapeTask) bool {
	start := time.Now()
	cfg := r.catalogConfig(task)

	var screenshotErr error
	onWarning := func(png []byte) {
		// A uuid suffix, not just the timestamp, keeps two low-count warnings
		// in the same batch (same domain/locale, same second) from colliding
		// on one blob key.
		stamp := start.Format("20060102T150405") + "_" + uuid.NewString()[:8]
		key := blobstore.ScreenshotKey(task.RunID, task.Domain, task.Locale, stamp)
		if _, err := r.deps.Blob.Put(ctx, key, bytes.NewReader(png)); err != nil {
			screenshotErr = err
		}
	}

	out := catalogscraper.Run(ctx, session, task, cfg, r.deps.Log, onWarning)
	if screenshotErr != nil {
		r.deps.Log.Warn("screenshot upload failed", "domain", task.Domain, "error", screenshotErr)
	}
	return persistScrape(ctx, r.deps, task, out, start)
}

func (r *catalogRunner) catalogConfig(task model.ScrapeTask) catalogscraper.Config {
	p := r.deps.Config.Pipeline
	return catalogscraper.Config{
		MaxPageCount:       p.MaxPageCount,
		MinRecordCount:     p.MinRecordCount,
		RecordCountWarning: p.RecordCountWarning,
		RetryTimeout:       time.Duration(p.RetryTimeoutMs) * time.Millisecond,
		Rules:              r.deps.Rules,
		BlockFinder:        blockFinderOptionsFor(p),
		Pagination: pagination.Config{
			MaxPageCount:          p.MaxPageCount,
			ScrollDelay:           time.Duration(p.ScrollDelayMs) * time.Millisecond,
			ScrollOffset:          p.ScrollOffset,
			CountSelector:         p.CountSelector,
			PaginatorDelay:        time.Duration(p.PaginatorDelayMs) * time.Millisecond,
			PaginatorAttempts:     p.PaginatorAttempts,
			MaxPaginationDistance: p.MaxPaginationDistance,
			PaginatorClasses:      p.PaginatorClasses,
			PaginatorLevels:       p.PaginatorLevels,
			ViewMoreAliases:       p.ViewMoreAliases,
			ViewMoreAttempts:      p.ViewMoreAttempts,
			ViewMoreLoadDelay:     time.Duration(p.ViewMoreLoadDelayMs) * time.Millisecond,
			PaginationTags:        p.PaginationTags,
			InteractionButtons:    task.Configuration.InteractionButtons,
		},
		Cleaner: cleanerConfigFor(task),
	}
}

func persistScrape(ctx context.Context, deps Dependencies, task model.ScrapeTask, out result.Variant, start time.Time) bool {
	elapsed := time.Since(start)
	sessionID, err := deps.Store.SaveScrape(ctx, task, len(out.Records), out.Message, elapsed)
	if err != nil {
		deps.Log.Error("save scrape failed", "domain", task.Domain, "error", err)
	}
	if !out.Success() {
		deps.Log.Warn("scrape did not succeed", "domain", task.Domain, "url", task.URL, "kind", out.Kind, "message", out.Message)
		return false
	}
	if err := deps.Store.SaveRecords(ctx, out.Records, task, sessionID); err != nil {
		deps.Log.Error("save records failed", "domain", task.Domain, "error", err)
		return false
	}
	return true
}

// detailRunner drives the C6 detail pipeline, one page per task, never
// retried (the VDP work list is re-derived from store state on the next
// scheduled run instead).
type detailRunner struct {
	deps Dependencies
}

func (r *detailRunner) RunBatch(ctx context.Context, batch model.Batch) {
	timeout := driverTimeout(r.deps.Config)
	session, err := browser.Launch(ctx, timeout, batch.Proxy)
	if err != nil {
		r.deps.Log.Error("launch browser failed", "error", err)
		return
	}
	defer session.Close()

	for _, task := range batch.Tasks {
		if !session.IsAlive() {
			session.Close()
			rebuilt, err := browser.Launch(ctx, timeout, batch.Proxy)
			if err != nil {
				r.deps.Log.Error("rebuild browser after crash failed", "error", err)
				continue
			}
			session = rebuilt
		}
		r.runOne(ctx, session, task)
	}
}

func (r *detailRunner) runOne(ctx context.Context, session *browser.Session, task model.ScrapeTask) {
	defaultHashes, err := r.deps.Store.GetDefaultImageHashes(ctx)
	if err != nil {
		r.deps.Log.Warn("load default image hashes failed", "error", err)
	}

	p := r.deps.Config.Pipeline
	cfg := detailscraper.Config{
		EmptyFieldThreshold: p.EmptyFieldThreshold,
		HighPriorityFields:  p.HighPriorityFields,
		Rules:               r.deps.Rules,
		BlockFinder:         blockFinderOptionsFor(p),
		Cleaner:             cleanerConfigFor(task),
		DefaultImageHashes:  defaultHashes,
	}

	out := detailscraper.Run(ctx, session, task, cfg, r.deps.Log)
	if !out.Success() {
		r.deps.Log.Warn("detail scrape did not succeed", "domain", task.Domain, "url", task.URL, "kind", out.Kind, "message", out.Message)
		return
	}
	for _, rec := range out.Records {
		if err := r.deps.Store.SaveOrUpdateDetail(ctx, rec); err != nil {
			r.deps.Log.Error("save detail failed", "domain", task.Domain, "error", err)
		}
	}
}

// staticRunner drives the plain-HTTP catalog_static pipeline; it needs no
// browser, so the tasks of a batch share one staticscraper.Client built
// from the batch's proxy.
type staticRunner struct {
	deps Dependencies
}

func (r *staticRunner) RunBatch(ctx context.Context, batch model.Batch) {
	client := staticscraper.NewClient(batch.Proxy, r.deps.Config.Static.UserAgent, r.deps.Config.Static.RespectRobots)
	for _, task := range batch.Tasks {
		if ok := r.runOne(ctx, client, task); !ok {
			r.deps.State.Backlog(model.ScraperCatalogStatic).Add(task, time.Now())
		}
	}
}

func (r *staticRunner) RunOne(ctx context.Context, task model.ScrapeTask) bool {
	client := staticscraper.NewClient(task.Proxy, r.deps.Config.Static.UserAgent, r.deps.Config.Static.RespectRobots)
	return r.runOne(ctx, client, task)
}

func (r *staticRunner) runOne(ctx context.Context, client *staticscraper.Client, task model.ScrapeTask) bool {
	start := time.Now()
	defaultHashes, err := r.deps.Store.GetDefaultImageHashes(ctx)
	if err != nil {
		r.deps.Log.Warn("load default image hashes failed", "error", err)
	}

	p := r.deps.Config.Pipeline
	cfg := staticscraper.Config{
		MaxPageCount:       p.MaxPageCount,
		MinRecordCount:     p.MinRecordCount,
		RecordCountWarning: p.RecordCountWarning,
		Rules:              r.deps.Rules,
		BlockFinder:        blockFinderOptionsFor(p),
		Cleaner:            cleanerConfigFor(task),
		DefaultImageHashes: defaultHashes,
	}

	out := staticscraper.Run(ctx, client, task, cfg, r.deps.Log)
	return persistScrape(ctx, r.deps, task, out, start)
}

// DebugRun executes a single task through one of the three pipelines and
// returns its result, for the debug-run CLI (SPEC_FULL.md §6): `debug-run
// <schedulerId> <scraperType> <domain> <locale> <url> <configJSON> <runId>`.
func DebugRun(ctx context.Context, deps Dependencies, scraperType model.ScraperType, task model.ScrapeTask) (result.Variant, error) {
	switch scraperType {
	case model.ScraperCatalog:
		timeout := driverTimeout(deps.Config)
		session, err := browser.Launch(ctx, timeout, task.Proxy)
		if err != nil {
			return result.Variant{}, fmt.Errorf("launch browser: %w", err)
		}
		defer session.Close()
		runner := &catalogRunner{deps: deps}
		out := catalogscraper.Run(ctx, session, task, runner.catalogConfig(task), deps.Log, nil)
		return out, nil

	case model.ScraperDetail:
		timeout := driverTimeout(deps.Config)
		session, err := browser.Launch(ctx, timeout, task.Proxy)
		if err != nil {
			return result.Variant{}, fmt.Errorf("launch browser: %w", err)
		}
		defer session.Close()

		defaultHashes, _ := deps.Store.GetDefaultImageHashes(ctx)
		p := deps.Config.Pipeline
		cfg := detailscraper.Config{
			EmptyFieldThreshold: p.EmptyFieldThreshold,
			HighPriorityFields:  p.HighPriorityFields,
			Rules:               deps.Rules,
			BlockFinder:         blockFinderOptionsFor(p),
			Cleaner:             cleanerConfigFor(task),
			DefaultImageHashes:  defaultHashes,
		}
		return detailscraper.Run(ctx, session, task, cfg, deps.Log), nil

	case model.ScraperCatalogStatic:
		client := staticscraper.NewClient(task.Proxy, deps.Config.Static.UserAgent, deps.Config.Static.RespectRobots)
		defaultHashes, _ := deps.Store.GetDefaultImageHashes(ctx)
		p := deps.Config.Pipeline
		cfg := staticscraper.Config{
			MaxPageCount:       p.MaxPageCount,
			MinRecordCount:     p.MinRecordCount,
			RecordCountWarning: p.RecordCountWarning,
			Rules:              deps.Rules,
			BlockFinder:        blockFinderOptionsFor(p),
			Cleaner:            cleanerConfigFor(task),
			DefaultImageHashes: defaultHashes,
		}
		return staticscraper.Run(ctx, client, task, cfg, deps.Log), nil

	default:
		return result.Variant{}, fmt.Errorf("unknown scraper type: %q", scraperType)
	}
}
