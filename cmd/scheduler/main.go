package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"listingscraper/internal/app"
	"listingscraper/internal/blobstore"
	"listingscraper/internal/config"
	"listingscraper/internal/migrate"
	"listingscraper/internal/scheduler"
	"listingscraper/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.Scheduler.SchedulerID = args[0]
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := migrate.Run(cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Fatalf("load rules failed: %v", err)
	}

	blob := blobstore.NewLocalStore(cfg.Blobstore.LocalRoot)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	sched := scheduler.New(cfg.Scheduler.SchedulerID, st, logger)
	runners := app.NewRunners(app.Dependencies{
		Config: cfg,
		Store:  st,
		Blob:   blob,
		Rules:  rules,
		State:  sched.State,
		Log:    logger,
	})

	var runCounter int64
	runID := func() int64 { return atomic.AddInt64(&runCounter, 1) }

	spec := scheduler.TriggerSpec{
		CatalogCron:   cfg.Scheduler.CatalogCron,
		DetailCron:    cfg.Scheduler.DetailCron,
		StaticCron:    cfg.Scheduler.StaticCron,
		CleanupCron:   cfg.Scheduler.CleanupCron,
		RetryCron:     cfg.Scheduler.RetryCron,
		HeartbeatCron: cfg.Scheduler.HeartbeatCron,
		CleanupFn:     cleanupBrowserProcesses,
	}
	if err := sched.Triggers(spec, runners, runID, app.NextScrapeTime); err != nil {
		log.Fatalf("register triggers failed: %v", err)
	}

	sched.Start()
	logger.Info("scheduler started", "schedulerId", cfg.Scheduler.SchedulerID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("scheduler received termination signal, shutting down")
	sched.State.Clear()
	<-sched.Stop().Done()
	os.Exit(1)
}

// cleanupBrowserProcesses is the callback of the nightly cleanup trigger.
// It returns nil without doing any work: no leftover browser process is
// terminated and no temp profile directory is removed.
func cleanupBrowserProcesses(ctx context.Context) error {
	return nil
}
