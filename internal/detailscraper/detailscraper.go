// Package detailscraper implements the Detail Scraper stage (C6): a single
// page, no pagination, resolving exactly the one record block this detail
// page is about. Grounded on
// original_source/scraper/main/python/scrapers/VdpScraper.py.
package detailscraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"listingscraper/internal/attrparse"
	"listingscraper/internal/blockfinder"
	"listingscraper/internal/cleaner"
	"listingscraper/internal/model"
	"listingscraper/internal/result"
	"listingscraper/internal/tagger"
)

// Driver is the page-control surface C6 needs: just a render and the
// authenticated HTTP fetch record_image resolution needs.
type Driver interface {
	Navigate(url string) error
	HTML() (string, error)
	attrparse.ImageFetcher
}

// Config holds the per-task tuning VdpScraper.py reads from settings.
type Config struct {
	EmptyFieldThreshold int
	HighPriorityFields  []string
	Rules               []model.AttributeRule
	BlockFinder         blockfinder.Options
	Cleaner             cleaner.Config
	DefaultImageHashes  map[string]bool
}

// Run renders task's URL once, selects the one block this detail page is
// about, fills gaps from a fuzzy whole-body pass if it came back mostly
// empty, and returns a single record.
func Run(ctx context.Context, driver Driver, task model.ScrapeTask, cfg Config, log *slog.Logger) result.Variant {
	if err := driver.Navigate(task.URL); err != nil {
		return result.TerminalResult(result.NavigationFailure, err.Error())
	}

	idx, root, err := renderAndClean(driver, cfg.Cleaner)
	if err != nil {
		return result.TransientResult(err.Error())
	}
	ann := tagger.Tag(idx, root, cfg.Rules)

	opts := cfg.BlockFinder
	opts.PrioritizeFirst = true
	opts.RecordAlias = task.Configuration.RecordAlias

	blocks := blockfinder.Find(idx, root, ann, cfg.Rules, opts)
	if len(blocks) == 0 {
		return result.TransientResult("no record blocks found")
	}
	block := blocks[0]

	emptyCount := countEmptyFields(block, cfg.Rules)
	if emptyCount >= cfg.EmptyFieldThreshold {
		if ctx.Err() != nil {
			return result.TransientResult("process timeout")
		}
		log.Warn("record block has too few filled fields, reading from the whole body instead",
			"domain", task.Domain, "url", task.URL, "emptyCount", emptyCount)

		fuzzy := blockfinder.ParseWholeBody(idx, ann, root, cfg.Rules)
		mergeMissing(&block, fuzzy)
		emptyCount = countEmptyFields(block, cfg.Rules)
	}

	if emptyCount >= cfg.EmptyFieldThreshold {
		if !hasAnyHighPriorityField(block, cfg.HighPriorityFields) {
			return result.TerminalResult(result.LowFieldCount,
				fmt.Sprintf("record block has too few filled fields: %d empty", emptyCount))
		}
	}

	record := model.NewRecord(block)
	if record.Alias == "" {
		record.Alias = task.Configuration.RecordAlias
	}
	record.Link = task.URL
	if task.Configuration.RecordID != "" {
		record.Extra["id"] = task.Configuration.RecordID
	}
	resolveImage(ctx, driver, &record, block, cfg.DefaultImageHashes)

	return result.OkResult([]model.Record{record})
}

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

// countEmptyFields counts rules whose parsed value is the zero value for
// its type: an unset string/image-link, not a numeric zero (0 mileage or
// price is a plausible real value, never treated as "missing").
func countEmptyFields(b model.Block, rules []model.AttributeRule) int {
	count := 0
	for _, rule := range rules {
		if isEmptyValue(b.Values[rule.Name]) {
			count++
		}
	}
	return count
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

// mergeMissing fills every field in primary that is still empty with
// fuzzy's value for that field, mirroring VdpScraper.py's merge loop.
func mergeMissing(primary *model.Block, fuzzy model.Block) {
	if isEmptyValue(primary.Values["alias"]) && !isEmptyValue(fuzzy.Values["alias"]) {
		primary.Alias = fuzzy.Alias
	}
	for key, v := range fuzzy.Values {
		if isEmptyValue(primary.Values[key]) {
			primary.Values[key] = v
		}
	}
}

func hasAnyHighPriorityField(b model.Block, fields []string) bool {
	for _, f := range fields {
		if !isEmptyValue(b.Values[f]) {
			return true
		}
	}
	return false
}

// resolveImage fetches and hashes the block's image_link candidates,
// skipping any that match a site's default/placeholder photo. Detail pages
// are the only stage with a real HTTP client in hand, so this resolution
// (deferred unresolved by the block finder) happens here rather than in C3.
func resolveImage(ctx context.Context, fetcher attrparse.ImageFetcher, record *model.Record, b model.Block, defaults map[string]bool) {
	candidates, ok := b.Values["image_link"].([]string)
	if !ok || len(candidates) == 0 {
		return
	}
	link, hash, ok := attrparse.ResolveImageLink(ctx, fetcher, candidates, defaults)
	if !ok {
		return
	}
	record.ImageLink = link
	record.ImageHash = hash
}
