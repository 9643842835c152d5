// Package store implements the persistence contract the scheduler and
// scrapers depend on (SPEC_FULL.md §6), over hand-written SQL against
// Postgres. There is no sqlc-generated query layer here (the retrieval
// pack's sqlc setup is tied to the teacher's own schema), so Store talks
// to *sql.DB directly, keeping the teacher's *sql.DB-wrapper shape and
// pgx/v5/stdlib driver registration.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"listingscraper/internal/model"
)

// Settings is the scheduler configuration bundle read from the database,
// refreshed periodically (SPEC_FULL.md §6, "Settings refresh").
type Settings struct {
	SchedulerID             string
	PoolCapacity            int
	BatchSize               int
	StartupStaggerDelay     time.Duration
	BatchTimeout            time.Duration
	RunTimeout              time.Duration
	ProcessTimeout          time.Duration
	RetryStartupDelay       time.Duration
	MaxRetryAge             time.Duration
	RetryWaitBetween        time.Duration
	RetryAttempts           int
	MinRecordCount          int
	RecordCountWarning      int
	RetryDifferenceFraction float64
}

// Repository is the persistence contract consumed by the scheduler and
// scrapers (SPEC_FULL.md §6). Implementations must make SaveRecords,
// SaveOrUpdateDetail, SaveRun/EndRun, and SaveScrape/UpdateScrape safe to
// call repeatedly with the same identifying key (idempotent upsert).
type Repository interface {
	SaveRun(ctx context.Context, runType model.ScraperType) (int64, error)
	EndRun(ctx context.Context, runID int64) error

	SaveScrape(ctx context.Context, task model.ScrapeTask, recordCount int, message string, elapsed time.Duration) (int64, error)
	UpdateScrape(ctx context.Context, sessionID int64, recordCount int, message string, elapsed time.Duration) error

	SaveRecords(ctx context.Context, records []model.Record, task model.ScrapeTask, sessionID int64) error
	SaveOrUpdateDetail(ctx context.Context, record model.Record) error

	GetAverageCount(ctx context.Context, url string) (float64, error)
	GetRecordsWithImages(ctx context.Context, task model.ScrapeTask) ([]string, error)
	GetDefaultImageHashes(ctx context.Context) (map[string]bool, error)
	GetProxies(ctx context.Context) ([]model.Proxy, error)
	GetSettings(ctx context.Context, schedulerID string) (*Settings, error)
	GetTargetDomains(ctx context.Context) ([]string, error)

	// GetLocaleConfigurations returns every active (domain, locale, url,
	// configuration) row for scraperType, grouped contiguously by domain
	// (sorted by domain, then locale), ready for scheduler.AssignProxies +
	// Interleave.
	GetLocaleConfigurations(ctx context.Context, scraperType model.ScraperType) ([]model.ScrapeTask, error)

	// GetVDPWorkList returns the four priority subsets the detail run
	// concatenates (SPEC_FULL.md §4.7): newly added records, competitor
	// backlog, inconclusive records, platform backlog. Each subset is
	// already grouped contiguously by domain.
	GetVDPWorkList(ctx context.Context) (newlyAdded, competitorBacklog, inconclusive, platformBacklog []model.ScrapeTask, err error)
}

// Store is the pgx/v5-backed Repository implementation.
type Store struct {
	DB *sql.DB
}

// New wraps an already-opened database handle. Callers are responsible
// for opening it (typically via sql.Open("pgx", dsn)) and for running
// migrations beforehand via internal/migrate.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

var _ Repository = (*Store)(nil)

// SaveRun inserts a new run row and returns its id.
func (s *Store) SaveRun(ctx context.Context, runType model.ScraperType) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO runs (run_type, started_at) VALUES ($1, now()) RETURNING id`,
		string(runType),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save run: %w", err)
	}
	return id, nil
}

// EndRun marks a run as finished.
func (s *Store) EndRun(ctx context.Context, runID int64) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE runs SET ended_at = now() WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("end run %d: %w", runID, err)
	}
	return nil
}

// SaveScrape inserts a scrape session row and returns its id.
func (s *Store) SaveScrape(ctx context.Context, task model.ScrapeTask, recordCount int, message string, elapsed time.Duration) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO scrapes (domain, locale, url, record_count, message, elapsed_ms, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id`,
		task.Domain, task.Locale, task.URL, recordCount, message, elapsed.Milliseconds(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save scrape for %s: %w", task.Domain, err)
	}
	return id, nil
}

// UpdateScrape overwrites a scrape session's result after a later page or
// retry changes the final record count/message (e.g. a static-scraper
// pagination follow-up).
func (s *Store) UpdateScrape(ctx context.Context, sessionID int64, recordCount int, message string, elapsed time.Duration) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE scrapes SET record_count = $2, message = $3, elapsed_ms = $4 WHERE id = $1`,
		sessionID, recordCount, message, elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("update scrape %d: %w", sessionID, err)
	}
	return nil
}

// SaveRecords upserts every record by (domain, alias), inserts one price
// row per record, marks records not present in this batch as sold (with
// dateSold backdated one day, matching the original's grace window), and
// clears dateSold on any record that reappears.
func (s *Store) SaveRecords(ctx context.Context, records []model.Record, task model.ScrapeTask, sessionID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save records for %s: begin tx: %w", task.Domain, err)
	}
	defer tx.Rollback()

	seenAliases := make([]string, 0, len(records))
	for _, r := range records {
		seenAliases = append(seenAliases, r.Alias)

		var recordID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO records (domain, alias, title, make, model, variant, year, mileage, link,
				fuel_type, transmission, image_link, image_hash, date_sold, last_seen_scrape_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL, $14)
			ON CONFLICT (domain, alias) DO UPDATE SET
				title = EXCLUDED.title, make = EXCLUDED.make, model = EXCLUDED.model,
				variant = EXCLUDED.variant, year = EXCLUDED.year, mileage = EXCLUDED.mileage,
				link = EXCLUDED.link, fuel_type = EXCLUDED.fuel_type,
				transmission = EXCLUDED.transmission, image_link = EXCLUDED.image_link,
				image_hash = EXCLUDED.image_hash, date_sold = NULL,
				last_seen_scrape_id = EXCLUDED.last_seen_scrape_id
			RETURNING id`,
			task.Domain, r.Alias, r.Title, r.Make, r.Model, r.Variant, r.Year, r.Mileage, r.Link,
			r.FuelType, r.Transmission, r.ImageLink, r.ImageHash, sessionID,
		).Scan(&recordID)
		if err != nil {
			return fmt.Errorf("upsert record %s/%s: %w", task.Domain, r.Alias, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_prices (record_id, price, observed_at) VALUES ($1, $2, now())`,
			recordID, r.Price,
		); err != nil {
			return fmt.Errorf("insert price for %s/%s: %w", task.Domain, r.Alias, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE records SET date_sold = now() - interval '1 day'
		WHERE domain = $1 AND date_sold IS NULL AND NOT (alias = ANY($2))`,
		task.Domain, toPQArray(seenAliases),
	); err != nil {
		return fmt.Errorf("mark sold records for %s: %w", task.Domain, err)
	}

	return tx.Commit()
}

// SaveOrUpdateDetail upserts a detail-page record by its record id, read
// from record.Extra["id"] (the detail scraper copies the task's RecordID
// there); a record without one is keyed by its alias.
func (s *Store) SaveOrUpdateDetail(ctx context.Context, record model.Record) error {
	recordID := record.Alias
	if id, ok := record.Extra["id"].(string); ok && id != "" {
		recordID = id
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO record_details (record_id, title, make, model, variant, year, mileage,
			fuel_type, transmission, image_link, image_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (record_id) DO UPDATE SET
			title = EXCLUDED.title, make = EXCLUDED.make, model = EXCLUDED.model,
			variant = EXCLUDED.variant, year = EXCLUDED.year, mileage = EXCLUDED.mileage,
			fuel_type = EXCLUDED.fuel_type, transmission = EXCLUDED.transmission,
			image_link = EXCLUDED.image_link, image_hash = EXCLUDED.image_hash`,
		recordID, record.Title, record.Make, record.Model, record.Variant, record.Year,
		record.Mileage, record.FuelType, record.Transmission, record.ImageLink, record.ImageHash,
	)
	if err != nil {
		return fmt.Errorf("save detail %s: %w", record.Alias, err)
	}
	return nil
}

// GetAverageCount returns the mean found-count over the prior week for a
// catalog URL, excluding runs that were incomplete or already under a
// shape-anomaly warning.
func (s *Store) GetAverageCount(ctx context.Context, url string) (float64, error) {
	var avg sql.NullFloat64
	err := s.DB.QueryRowContext(ctx, `
		SELECT avg(record_count) FROM scrapes
		WHERE url = $1 AND started_at > now() - interval '7 days'
		AND message = ''`,
		url,
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average count for %s: %w", url, err)
	}
	return avg.Float64, nil
}

// GetRecordsWithImages returns the aliases at task.Domain that already
// carry a resolved image hash, so the image fetcher can skip them.
func (s *Store) GetRecordsWithImages(ctx context.Context, task model.ScrapeTask) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT alias FROM records WHERE domain = $1 AND image_hash <> ''`, task.Domain)
	if err != nil {
		return nil, fmt.Errorf("records with images for %s: %w", task.Domain, err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}
	return aliases, rows.Err()
}

// GetDefaultImageHashes returns the set of hashes known to be generic
// placeholder images, so the image resolver can reject them.
func (s *Store) GetDefaultImageHashes(ctx context.Context) (map[string]bool, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT hash FROM default_image_hashes`)
	if err != nil {
		return nil, fmt.Errorf("default image hashes: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		out[hash] = true
	}
	return out, rows.Err()
}

// GetProxies returns the configured proxy pool.
func (s *Store) GetProxies(ctx context.Context) ([]model.Proxy, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT username, password, host, port FROM proxies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("get proxies: %w", err)
	}
	defer rows.Close()

	var out []model.Proxy
	for rows.Next() {
		var p model.Proxy
		if err := rows.Scan(&p.Username, &p.Password, &p.Host, &p.Port); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetSettings loads the scheduler settings bundle for schedulerID.
func (s *Store) GetSettings(ctx context.Context, schedulerID string) (*Settings, error) {
	var st Settings
	var staggerMs, batchMs, runMs, processMs, retryStartupMs, maxRetryHours, retryWaitMs int64
	st.SchedulerID = schedulerID

	err := s.DB.QueryRowContext(ctx, `
		SELECT pool_capacity, batch_size, startup_stagger_delay_ms, batch_timeout_ms, run_timeout_ms,
			process_timeout_ms, retry_startup_delay_ms, max_retry_hours, retry_wait_ms, retry_attempts,
			min_record_count, record_count_warning, retry_difference_fraction
		FROM scheduler_settings WHERE scheduler_id = $1`,
		schedulerID,
	).Scan(&st.PoolCapacity, &st.BatchSize, &staggerMs, &batchMs, &runMs, &processMs,
		&retryStartupMs, &maxRetryHours, &retryWaitMs, &st.RetryAttempts,
		&st.MinRecordCount, &st.RecordCountWarning, &st.RetryDifferenceFraction)
	if err != nil {
		return nil, fmt.Errorf("get settings for %s: %w", schedulerID, err)
	}

	st.StartupStaggerDelay = time.Duration(staggerMs) * time.Millisecond
	st.BatchTimeout = time.Duration(batchMs) * time.Millisecond
	st.RunTimeout = time.Duration(runMs) * time.Millisecond
	st.ProcessTimeout = time.Duration(processMs) * time.Millisecond
	st.RetryStartupDelay = time.Duration(retryStartupMs) * time.Millisecond
	st.MaxRetryAge = time.Duration(maxRetryHours) * time.Hour
	st.RetryWaitBetween = time.Duration(retryWaitMs) * time.Millisecond
	return &st, nil
}

// GetTargetDomains returns every domain with at least one active locale
// configuration.
func (s *Store) GetTargetDomains(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT DISTINCT domain FROM locale_configurations WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("get target domains: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetLocaleConfigurations loads active locale rows for scraperType, sorted
// by domain and then locale; the interleaver's groupByDomain keeps that
// order of first occurrence.
func (s *Store) GetLocaleConfigurations(ctx context.Context, scraperType model.ScraperType) ([]model.ScrapeTask, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT domain, locale, url, use_proxy, ignore_min_record_count, translate_page
		FROM locale_configurations
		WHERE active AND scraper_type = $1
		ORDER BY domain, locale`,
		string(scraperType),
	)
	if err != nil {
		return nil, fmt.Errorf("get locale configurations for %s: %w", scraperType, err)
	}
	defer rows.Close()

	var out []model.ScrapeTask
	for rows.Next() {
		var t model.ScrapeTask
		if err := rows.Scan(&t.Domain, &t.Locale, &t.URL,
			&t.Configuration.UseProxy, &t.Configuration.IgnoreMinRecordCount, &t.Configuration.TranslatePage); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetVDPWorkList loads the four detail-run priority subsets.
func (s *Store) GetVDPWorkList(ctx context.Context) (newlyAdded, competitorBacklog, inconclusive, platformBacklog []model.ScrapeTask, err error) {
	queries := []struct {
		sql  string
		dest *[]model.ScrapeTask
	}{
		{`SELECT domain, locale, link, record_id, alias FROM records
		  WHERE first_seen_at > now() - interval '1 day' ORDER BY domain, locale`, &newlyAdded},
		{`SELECT r.domain, r.locale, r.link, r.record_id, r.alias FROM records r
		  LEFT JOIN record_details d ON d.record_id = r.record_id
		  WHERE d.record_id IS NULL AND r.domain NOT IN (SELECT domain FROM platform_domains)
		  ORDER BY r.domain, r.locale`, &competitorBacklog},
		{`SELECT r.domain, r.locale, r.link, r.record_id, r.alias FROM records r
		  JOIN record_details d ON d.record_id = r.record_id
		  WHERE d.make = '' AND d.model = '' ORDER BY r.domain, r.locale`, &inconclusive},
		{`SELECT r.domain, r.locale, r.link, r.record_id, r.alias FROM records r
		  LEFT JOIN record_details d ON d.record_id = r.record_id
		  WHERE d.record_id IS NULL AND r.domain IN (SELECT domain FROM platform_domains)
		  ORDER BY r.domain, r.locale`, &platformBacklog},
	}

	for _, q := range queries {
		rows, qerr := s.DB.QueryContext(ctx, q.sql)
		if qerr != nil {
			return nil, nil, nil, nil, fmt.Errorf("vdp work list: %w", qerr)
		}
		var tasks []model.ScrapeTask
		for rows.Next() {
			var t model.ScrapeTask
			if serr := rows.Scan(&t.Domain, &t.Locale, &t.URL,
				&t.Configuration.RecordID, &t.Configuration.RecordAlias); serr != nil {
				rows.Close()
				return nil, nil, nil, nil, serr
			}
			tasks = append(tasks, t)
		}
		rerr := rows.Err()
		rows.Close()
		if rerr != nil {
			return nil, nil, nil, nil, rerr
		}
		*q.dest = tasks
	}
	return newlyAdded, competitorBacklog, inconclusive, platformBacklog, nil
}

func toPQArray(items []string) string {
	if len(items) == 0 {
		return "{}"
	}
	out := "{"
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += `"` + escapePQ(it) + `"`
	}
	return out + "}"
}

func escapePQ(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
