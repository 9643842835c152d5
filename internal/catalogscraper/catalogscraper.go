// Package catalogscraper implements the Catalog Scraper stage (C5): the
// per-URL render/clean/tag/find/paginate loop, grounded on
// original_source/.../scrapers/CatalogScraper.py.
package catalogscraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"listingscraper/internal/blockfinder"
	"listingscraper/internal/cleaner"
	"listingscraper/internal/model"
	"listingscraper/internal/pagination"
	"listingscraper/internal/result"
	"listingscraper/internal/tagger"
)

// Driver is the page-control surface C5 needs: rendering plus the
// click/scroll mechanics pagination.NextPage drives.
type Driver interface {
	pagination.Driver
	Navigate(url string) error
	HTML() (string, error)
	Screenshot(fullPage bool) ([]byte, error)
}

// Config holds the per-task tuning CatalogScraper.py reads from settings.
type Config struct {
	MaxPageCount       int
	MinRecordCount     int
	RecordCountWarning int
	RetryTimeout       time.Duration
	Rules              []model.AttributeRule
	BlockFinder        blockfinder.Options
	Pagination         pagination.Config
	Cleaner            cleaner.Config
}

// Screenshotter receives a rendered screenshot when the final record count
// falls under RecordCountWarning, for the caller to hand to the blob store.
type Screenshotter func(png []byte)

// Run drives driver through task's URL, page by page, until termination,
// and returns the projected records as a result.Variant.
func Run(ctx context.Context, driver Driver, task model.ScrapeTask, cfg Config, log *slog.Logger, onWarning Screenshotter) result.Variant {
	if err := driver.Navigate(task.URL); err != nil {
		return result.TerminalResult(result.NavigationFailure, err.Error())
	}

	records := map[string]model.Block{}
	handler := task.Configuration.PreferredPaginationHandler
	failed := pagination.FailedHandlers{}
	hasRetried := false

	for page := 1; page <= cfg.MaxPageCount; page++ {
		if ctx.Err() != nil {
			return result.TransientResult("process timeout")
		}

		idx, root, err := renderAndClean(driver, cfg.Cleaner)
		if err != nil {
			return result.TransientResult(err.Error())
		}
		ann := tagger.Tag(idx, root, cfg.Rules)

		newBlocks := blockfinder.FindNew(idx, root, ann, cfg.Rules, cfg.BlockFinder, records)

		if len(newBlocks) < cfg.MinRecordCount && !hasRetried {
			fired := fireInteractionButtons(ctx, driver, task.Configuration.InteractionButtons)
			if !fired {
				select {
				case <-ctx.Done():
					return result.TransientResult("process timeout")
				case <-time.After(cfg.RetryTimeout):
				}
			}
			hasRetried = true
			page--
			continue
		}

		if page == 1 && len(newBlocks) == 0 && handler != nil {
			log.Warn("blacklisting preferred pagination handler, no blocks found on first page",
				"domain", task.Domain, "handler", *handler)
			failed[*handler] = true
			handler = nil
			page = 0
			continue
		}

		for _, b := range newBlocks {
			records[b.Alias] = b
		}

		won := pagination.NextPage(ctx, driver, root, idx, newBlocks, page, handler, failed, cfg.Pagination)
		if won == nil {
			if page > 1 {
				break
			}
		} else {
			handler = won
		}

		if ctx.Err() != nil {
			return result.TransientResult("process timeout")
		}
	}

	if len(records) < cfg.RecordCountWarning && onWarning != nil {
		if png, err := driver.Screenshot(true); err == nil {
			onWarning(png)
		}
	}
	if len(records) < cfg.MinRecordCount && !task.Configuration.IgnoreMinRecordCount {
		return result.TerminalResult(result.InsufficientRecords, "insufficient records found")
	}

	out := make([]model.Record, 0, len(records))
	for alias, b := range records {
		r := model.NewRecord(b)
		r.Alias = alias
		r.Link = model.JoinRecordURL(task.URL, r.Link)
		out = append(out, r)
	}
	return result.OkResult(out)
}

// renderAndClean fetches the driver's current HTML, parses it with goquery
// and runs it through the cleaner, returning a fresh index and root for
// this iteration (each page snapshot gets its own: cleaning mutates the
// tree in place and scraperIndex is only valid for the tree it was built
// over).
func renderAndClean(driver Driver, cfg cleaner.Config) (*model.Index, *html.Node, error) {
	markup, err := driver.HTML()
	if err != nil {
		return nil, nil, fmt.Errorf("read html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}
	idx, _ := cleaner.Clean(doc, cfg)
	return idx, doc.Nodes[0], nil
}

func fireInteractionButtons(ctx context.Context, driver Driver, buttons []string) bool {
	fired := false
	for _, selector := range buttons {
		if err := driver.Click(ctx, selector); err == nil {
			fired = true
		}
	}
	return fired
}
