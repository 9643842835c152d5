// Package config loads the scheduler's static YAML configuration: the
// nested-struct/yaml.v3/Validate pattern follows
// ncecere-raito/internal/config/config.go, generalized from API/tenant/LLM
// settings to this domain's scheduler/driver/database/rule settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"listingscraper/internal/model"
)

// Environment selects log verbosity, screenshot upload, and destructive
// cleanup gating (SPEC_FULL.md §6).
type Environment string

const (
	EnvDev   Environment = "DEV"
	EnvStage Environment = "STAGE"
	EnvProd  Environment = "PROD"
)

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type BlobstoreConfig struct {
	LocalRoot string `yaml:"localRoot"`
}

// DriverConfig tunes the go-rod browser launcher.
type DriverConfig struct {
	LaunchTimeoutMs int    `yaml:"launchTimeoutMs"`
	UserAgent       string `yaml:"userAgent"`
}

// StaticScraperConfig tunes the plain-HTTP catalog_static client.
type StaticScraperConfig struct {
	UserAgent     string `yaml:"userAgent"`
	RespectRobots bool   `yaml:"respectRobots"`
}

// SchedulerConfig holds the pool/batch/timeout/retry knobs SPEC_FULL.md
// §4.7 describes, one set shared by every scraper type's run (the
// scheduler re-reads the store's per-scheduler-ID Settings row at runtime
// for the values that are meant to be hot-reloadable; these are the
// process-startup defaults and the cron schedule strings, which are not).
type SchedulerConfig struct {
	SchedulerID string `yaml:"schedulerId"`

	PoolCapacity        int `yaml:"poolCapacity"`
	BatchSize           int `yaml:"batchSize"`
	StartupStaggerMs    int `yaml:"startupStaggerMs"`
	BatchTimeoutMs      int `yaml:"batchTimeoutMs"`
	RunTimeoutMs        int `yaml:"runTimeoutMs"`
	ProcessTimeoutMs    int `yaml:"processTimeoutMs"`

	RetryStartupMinutes int `yaml:"retryStartupMinutes"`
	MaxRetryHours       int `yaml:"maxRetryHours"`
	RetryWaitMinutes    int `yaml:"retryWaitMinutes"`
	RetryAttempts       int `yaml:"retryAttempts"`

	MinRecordCount     int `yaml:"minRecordCount"`
	RecordCountWarning int `yaml:"recordCountWarning"`

	CatalogCron   string `yaml:"catalogCron"`
	DetailCron    string `yaml:"detailCron"`
	StaticCron    string `yaml:"staticCron"`
	CleanupCron   string `yaml:"cleanupCron"`
	RetryCron     string `yaml:"retryCron"`
	HeartbeatCron string `yaml:"heartbeatCron"`
}

// PoolOptions projects SchedulerConfig onto the scheduler package's
// PoolOptions for one run.
func (c SchedulerConfig) PoolOptions() PoolOptionsShape {
	return PoolOptionsShape{
		Capacity:            c.PoolCapacity,
		StartupStaggerDelay: time.Duration(c.StartupStaggerMs) * time.Millisecond,
		BatchTimeout:        time.Duration(c.BatchTimeoutMs) * time.Millisecond,
		RunTimeout:          time.Duration(c.RunTimeoutMs) * time.Millisecond,
	}
}

// PoolOptionsShape mirrors scheduler.PoolOptions's fields without importing
// internal/scheduler here (config stays a leaf package importable by
// every other package, including scheduler itself).
type PoolOptionsShape struct {
	Capacity            int
	StartupStaggerDelay time.Duration
	BatchTimeout        time.Duration
	RunTimeout          time.Duration
}

// PipelineConfig tunes the C1-C4 pipeline stages shared by the catalog,
// detail, and static scrapers.
type PipelineConfig struct {
	MaxPageCount          int      `yaml:"maxPageCount"`
	MinRecordCount        int      `yaml:"minRecordCount"`
	RecordCountWarning    int      `yaml:"recordCountWarning"`
	RetryTimeoutMs        int      `yaml:"retryTimeoutMs"`
	MaxTagDistance        int      `yaml:"maxTagDistance"`
	EmptyFieldThreshold   int      `yaml:"emptyFieldThreshold"`
	HighPriorityFields    []string `yaml:"highPriorityFields"`
	ScrollDelayMs         int      `yaml:"scrollDelayMs"`
	ScrollOffset          int      `yaml:"scrollOffset"`
	CountSelector         string   `yaml:"countSelector"`
	PaginatorDelayMs      int      `yaml:"paginatorDelayMs"`
	PaginatorAttempts     int      `yaml:"paginatorAttempts"`
	MaxPaginationDistance int      `yaml:"maxPaginationDistance"`
	PaginatorClasses      []string `yaml:"paginatorClasses"`
	PaginatorLevels       int      `yaml:"paginatorLevels"`
	ViewMoreAliases       []string `yaml:"viewMoreAliases"`
	ViewMoreAttempts      int      `yaml:"viewMoreAttempts"`
	ViewMoreLoadDelayMs   int      `yaml:"viewMoreLoadDelayMs"`
	PaginationTags        []string `yaml:"paginationTags"`
}

// Config is the top-level scheduler process configuration.
type Config struct {
	Environment Environment         `yaml:"environment"`
	Database    DatabaseConfig      `yaml:"database"`
	Blobstore   BlobstoreConfig     `yaml:"blobstore"`
	Driver      DriverConfig        `yaml:"driver"`
	Static      StaticScraperConfig `yaml:"static"`
	Scheduler   SchedulerConfig     `yaml:"scheduler"`
	Pipeline    PipelineConfig      `yaml:"pipeline"`
	RulesPath   string              `yaml:"rulesPath"`
}

// Load reads and decodes a YAML configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadRules reads the attribute rule set (per locale/domain) from a
// separate YAML file at cfg.RulesPath, keeping the (large, frequently
// edited) rule catalog out of the process config file.
func LoadRules(path string) ([]model.AttributeRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()

	var rules []model.AttributeRule
	if err := yaml.NewDecoder(f).Decode(&rules); err != nil {
		return nil, fmt.Errorf("decode rules %s: %w", path, err)
	}
	return rules, nil
}

// Validate performs basic sanity checks so a misconfigured scheduler fails
// fast at startup rather than mid-run.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	switch cfg.Environment {
	case EnvDev, EnvStage, EnvProd:
	default:
		return fmt.Errorf("unsupported environment: %q", cfg.Environment)
	}
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn must be set")
	}
	if cfg.Scheduler.SchedulerID == "" {
		return errors.New("scheduler.schedulerId must be set")
	}
	if cfg.Scheduler.PoolCapacity <= 0 {
		return errors.New("scheduler.poolCapacity must be positive")
	}
	if cfg.Scheduler.BatchSize <= 0 {
		return errors.New("scheduler.batchSize must be positive")
	}
	return nil
}
