package staticscraper

import (
	"context"
	"log/slog"

	"listingscraper/internal/attrparse"
	"listingscraper/internal/blockfinder"
	"listingscraper/internal/cleaner"
	"listingscraper/internal/model"
	"listingscraper/internal/result"
	"listingscraper/internal/tagger"
)

var _ attrparse.ImageFetcher = (*Client)(nil)

// Config holds the per-task tuning the static variant shares with the
// catalog scraper, minus anything that needs a driver (interaction
// buttons, scroll/click pagination).
type Config struct {
	MaxPageCount       int
	MinRecordCount     int
	RecordCountWarning int
	Rules              []model.AttributeRule
	BlockFinder        blockfinder.Options
	Cleaner            cleaner.Config
	DefaultImageHashes map[string]bool
}

// Run drives task's catalog through the C1-C4 pipeline page by page, each
// page a single HTTP round trip, advancing by following a next-page anchor
// directly rather than clicking through a rendered page.
func Run(ctx context.Context, client *Client, task model.ScrapeTask, cfg Config, log *slog.Logger) result.Variant {
	records := map[string]model.Block{}
	currentURL := task.URL

	for page := 1; page <= cfg.MaxPageCount; page++ {
		if ctx.Err() != nil {
			return result.TransientResult("process timeout")
		}

		doc, err := client.FetchDocument(ctx, currentURL)
		if err != nil {
			if page == 1 {
				return result.TerminalResult(result.NavigationFailure, err.Error())
			}
			break
		}

		idx, _ := cleaner.Clean(doc, cfg.Cleaner)
		root := doc.Nodes[0]
		ann := tagger.Tag(idx, root, cfg.Rules)

		newBlocks := blockfinder.FindNew(idx, root, ann, cfg.Rules, cfg.BlockFinder, records)
		for _, b := range newBlocks {
			records[b.Alias] = b
		}

		href, ok := findNextLink(root, page)
		if !ok {
			break
		}
		next := resolveAgainst(currentURL, href)
		if next == currentURL {
			break
		}
		currentURL = next
	}

	if len(records) < cfg.RecordCountWarning {
		log.Warn("static catalog scrape returned few records", "domain", task.Domain, "count", len(records))
	}

	if len(records) < cfg.MinRecordCount && !task.Configuration.IgnoreMinRecordCount {
		return result.TerminalResult(result.InsufficientRecords, "insufficient records found")
	}

	out := make([]model.Record, 0, len(records))
	for alias, b := range records {
		r := model.NewRecord(b)
		r.Alias = alias
		r.Link = model.JoinRecordURL(task.URL, r.Link)
		resolveImage(ctx, client, &r, b, cfg.DefaultImageHashes)
		out = append(out, r)
	}
	return result.OkResult(out)
}

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
