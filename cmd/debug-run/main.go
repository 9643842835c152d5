package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"listingscraper/internal/app"
	"listingscraper/internal/blobstore"
	"listingscraper/internal/config"
	"listingscraper/internal/migrate"
	"listingscraper/internal/model"
	"listingscraper/internal/scheduler"
	"listingscraper/internal/store"
)

// debug-run <schedulerId> <scraperType> <domain> <locale> <url> <configJSON> <runId>
func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	args := flag.Args()
	if len(args) != 7 {
		log.Fatalf("usage: debug-run [-config path] <schedulerId> <scraperType> <domain> <locale> <url> <configJSON> <runId>")
	}
	schedulerID, scraperTypeArg, domain, locale, url, configJSON, runIDArg := args[0], args[1], args[2], args[3], args[4], args[5], args[6]

	scraperType := model.ScraperType(scraperTypeArg)
	switch scraperType {
	case model.ScraperCatalog, model.ScraperDetail, model.ScraperCatalogStatic:
	default:
		log.Fatalf("unknown scraperType %q, expected catalog|vdp|catalog_static", scraperTypeArg)
	}

	runID, err := strconv.ParseInt(runIDArg, 10, 64)
	if err != nil {
		log.Fatalf("invalid runId %q: %v", runIDArg, err)
	}

	var taskConfig model.Configuration
	if configJSON != "" && configJSON != "{}" {
		if err := json.Unmarshal([]byte(configJSON), &taskConfig); err != nil {
			log.Fatalf("invalid configJSON: %v", err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	cfg.Scheduler.SchedulerID = schedulerID

	if err := migrate.Run(cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	defer db.Close()
	st := store.New(db)

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Fatalf("load rules failed: %v", err)
	}

	deps := app.Dependencies{
		Config: cfg,
		Store:  st,
		Blob:   blobstore.NewLocalStore(cfg.Blobstore.LocalRoot),
		Rules:  rules,
		State:  scheduler.NewState(),
		Log:    slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}

	task := model.ScrapeTask{
		Domain:        domain,
		Locale:        locale,
		URL:           url,
		Configuration: taskConfig,
		RunID:         runID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	out, err := app.DebugRun(ctx, deps, scraperType, task)
	if err != nil {
		log.Fatalf("debug run failed: %v", err)
	}

	fmt.Printf("kind=%v success=%v records=%d message=%q\n", out.Kind, out.Success(), len(out.Records), out.Message)
	for _, r := range out.Records {
		fmt.Printf("  alias=%s title=%q price=%v link=%s\n", r.Alias, r.Title, r.Price, r.Link)
	}
}
