package pagination

import (
	"context"
	"strings"
	"time"

	"golang.org/x/net/html"

	"listingscraper/internal/blockfinder"
	"listingscraper/internal/browser"
	"listingscraper/internal/model"
)

// tryClickViewMore looks for a "load more"/"show more" style control
// (cfg.ViewMoreAliases) near the listing blocks, confirms it doesn't
// navigate off-site, and clicks it up to ViewMoreAttempts times, checking
// after each click whether the element count grew.
func tryClickViewMore(ctx context.Context, driver Driver, root *html.Node, blocks []model.Block,
	blockParent *html.Node, handler *model.PaginationHandlerName, failed FailedHandlers, cfg Config) bool {

	if !canHandle(handler, model.HandlerViewMore, failed) {
		return false
	}

	button := findViewMoreButton(root, blockParent, cfg)
	if button == nil {
		return false
	}

	currentURL, err := driver.CurrentURL(ctx)
	if err != nil {
		return false
	}
	if href := attr(button, "href"); href != "" && !browser.SameOrigin(href, currentURL) {
		return false
	}

	selector := cssSelector(button)
	before, _ := driver.CountElements(ctx, cfg.CountSelector)

	for attempt := 0; attempt < cfg.ViewMoreAttempts; attempt++ {
		if err := driver.Click(ctx, selector); err != nil {
			continue
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(cfg.ViewMoreLoadDelay):
		}
		after, err := driver.CountElements(ctx, cfg.CountSelector)
		if err == nil && after > before {
			return true
		}
	}
	return false
}

// findViewMoreButton looks for an element whose text matches one of the
// configured view-more labels, preferring the one closest to the listing
// blocks' parent.
func findViewMoreButton(root *html.Node, blockParent *html.Node, cfg Config) *html.Node {
	if len(cfg.ViewMoreAliases) == 0 {
		return nil
	}
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			label := strings.TrimSpace(textContent(n))
			if label != "" && matchesAlias(label, cfg.ViewMoreAliases) {
				matches = append(matches, findParentButton(n, cfg.PaginationTags))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	matches = dedupeNodes(matches)

	var inRange []*html.Node
	for _, b := range matches {
		if blockParent == nil || blockfinder.Distance(b, blockParent) <= cfg.MaxPaginationDistance {
			inRange = append(inRange, b)
		}
	}
	return findClosest(inRange, blockParent)
}

func matchesAlias(label string, aliases []string) bool {
	lower := strings.ToLower(label)
	for _, alias := range aliases {
		if strings.Contains(lower, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}
