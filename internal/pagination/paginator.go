package pagination

import (
	"context"
	"strings"
	"time"

	"golang.org/x/net/html"

	"listingscraper/internal/blockfinder"
	"listingscraper/internal/model"
)

// tryClickPaginator looks for a page-number or "next" button near the
// listing blocks and clicks it, retrying up to PaginatorAttempts times
// before giving up. A successful click is one that changes the current
// URL, mirroring try_click_paginator's before/after comparison.
func tryClickPaginator(ctx context.Context, driver Driver, root *html.Node, idx *model.Index, currentPage int,
	blocks []model.Block, blockParent *html.Node, handler *model.PaginationHandlerName,
	failed FailedHandlers, cfg Config) bool {

	if !canHandle(handler, model.HandlerPaginator, failed) {
		return false
	}

	button := getPaginatorButton(root, idx, currentPage, blocks, blockParent, cfg)
	if button == nil {
		return false
	}

	selector := cssSelector(button)
	before, _ := driver.CurrentURL(ctx)

	for attempt := 0; attempt < cfg.PaginatorAttempts; attempt++ {
		if err := clickButton(ctx, driver, selector, cfg.PaginatorDelay); err != nil {
			continue
		}
		after, err := driver.CurrentURL(ctx)
		if err == nil && after != "" && after != before {
			return true
		}
	}
	return false
}

func clickButton(ctx context.Context, driver Driver, selector string, delay time.Duration) error {
	if err := driver.Click(ctx, selector); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}
	return nil
}

// getPaginatorButton finds the element most likely to advance to
// currentPage+1: first among candidates whose label is the next page
// number and which carry a recognized paginator class, falling back to any
// label match, and finally to a generic "next" interaction button. Only
// elements that come after the current blocks in document order are
// considered, so a stray page number in a header or sidebar never wins.
func getPaginatorButton(root *html.Node, idx *model.Index, currentPage int, blocks []model.Block,
	blockParent *html.Node, cfg Config) *html.Node {

	candidates := dedupeNodes(findLabelMatches(root, currentPage+1))

	var buttons []*html.Node
	for _, c := range candidates {
		btn := findParentButton(c, cfg.PaginationTags)
		if blockParent != nil && blockfinder.Distance(btn, blockParent) > cfg.MaxPaginationDistance {
			continue
		}
		if idx != nil && len(blocks) > 0 && !isAfterBlocks(idx, btn, blocks) {
			continue
		}
		buttons = append(buttons, btn)
	}
	buttons = dedupeNodes(buttons)

	var classed []*html.Node
	for _, b := range buttons {
		if hasPaginatorClass(b, cfg.PaginatorClasses, cfg.PaginatorLevels) {
			classed = append(classed, b)
		}
	}
	if len(classed) > 0 {
		return findClosest(classed, blockParent)
	}
	if len(buttons) > 0 {
		return findClosest(buttons, blockParent)
	}
	return findInteractionButton(root, blockParent, cfg)
}

// findInteractionButton searches for a generically-labeled "next"/"more"
// control (cfg.InteractionButtons) when no page-numbered button was found,
// for paginators that only expose an arrow or "Next" link.
func findInteractionButton(root *html.Node, blockParent *html.Node, cfg Config) *html.Node {
	if len(cfg.InteractionButtons) == 0 {
		return nil
	}
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			label := strings.TrimSpace(textContent(n))
			if label != "" && containsFold(cfg.InteractionButtons, label) {
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
