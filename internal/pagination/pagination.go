// Package pagination implements the Pagination Handler stage (C4): trying
// each of the three navigation strategies in turn and remembering which one
// worked. Grounded on
// original_source/scraper/main/python/element_finder/PaginationHandler.py.
package pagination

import (
	"context"
	"time"

	"golang.org/x/net/html"

	"listingscraper/internal/blockfinder"
	"listingscraper/internal/model"
)

// Driver is the browser control surface the pagination handler needs.
// internal/browser.Session implements it.
type Driver interface {
	Click(ctx context.Context, selector string) error
	CountElements(ctx context.Context, selector string) (int, error)
	ScrollToBottom(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)
}

// Config holds the catalog settings next_page/try_* consult.
type Config struct {
	MaxPageCount          int
	ScrollDelay           time.Duration
	ScrollOffset          int
	CountSelector         string
	PaginatorDelay        time.Duration
	PaginatorAttempts     int
	MaxPaginationDistance int
	PaginatorClasses      []string
	PaginatorLevels       int
	ViewMoreAliases       []string
	ViewMoreAttempts      int
	ViewMoreLoadDelay     time.Duration
	PaginationTags        []string
	InteractionButtons    []string
}

// FailedHandlers remembers which strategies have already been tried and
// failed for this task, so they are never retried (spec.md §4.4 "failed
// once, skip forever").
type FailedHandlers map[model.PaginationHandlerName]bool

// NextPage tries to advance to currentPage+1 using handler if already
// pinned, or each strategy in turn until one succeeds. Returns the handler
// that worked (which pins it for subsequent calls), or nil if no handler
// could advance the page.
func NextPage(ctx context.Context, driver Driver, root *html.Node, idx *model.Index, blocks []model.Block,
	currentPage int, handler *model.PaginationHandlerName, failed FailedHandlers, cfg Config) *model.PaginationHandlerName {

	if currentPage == cfg.MaxPageCount {
		return nil
	}

	blockParent := blockParentNode(idx, blocks)
	pruned := removeBlockSubtrees(root, blocks)

	if tryInfiniteScroll(ctx, driver, currentPage, cfg.MaxPageCount, handler, failed, cfg) {
		h := model.HandlerInfiniteScroll
		return &h
	}
	if tryClickPaginator(ctx, driver, pruned, idx, currentPage, blocks, blockParent, handler, failed, cfg) {
		h := model.HandlerPaginator
		return &h
	}
	if tryClickViewMore(ctx, driver, pruned, blocks, blockParent, handler, failed, cfg) {
		h := model.HandlerViewMore
		return &h
	}
	return nil
}

func canHandle(handler *model.PaginationHandlerName, want model.PaginationHandlerName, failed FailedHandlers) bool {
	if failed[want] {
		return false
	}
	return handler == nil || *handler == want
}

func blockParentNode(idx *model.Index, blocks []model.Block) *html.Node {
	if len(blocks) == 0 {
		return nil
	}
	if !blocks[0].HasParent {
		return nil
	}
	return idx.Node(blocks[0].ParentIndex)
}

// removeBlockSubtrees clears the text content of every selected block so
// pagination button text-matching never mistakes a record's own price or
// year for a page number, mirroring remove_blocks' tag.clear().
func removeBlockSubtrees(root *html.Node, blocks []model.Block) *html.Node {
	for _, b := range blocks {
		for c := b.Tag.FirstChild; c != nil; {
			next := c.NextSibling
			b.Tag.RemoveChild(c)
			c = next
		}
	}
	return root
}

func lastBlockIndex(blocks []model.Block) int {
	if len(blocks) == 0 {
		return -1
	}
	return blocks[len(blocks)-1].ScraperIndex
}

func isAfterBlocks(idx *model.Index, node *html.Node, blocks []model.Block) bool {
	if len(blocks) == 0 {
		return true
	}
	i, ok := idx.Of(node)
	if !ok {
		return false
	}
	return i > lastBlockIndex(blocks)
}

// distance delegates to the block finder's DOM-distance formula, which is
// shared between the two stages in the source (PaginationHandler.py calls
// straight into BlockFinder.get_distance).
func distance(a, b *html.Node) int {
	return blockfinder.Distance(a, b)
}
