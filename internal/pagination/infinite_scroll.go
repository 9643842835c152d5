package pagination

import (
	"context"
	"time"

	"listingscraper/internal/model"
)

// tryInfiniteScroll repeatedly scrolls to the bottom of the page, polling
// for new record elements after each scroll, until a scroll brings no new
// elements or the page bound is reached. Declining to call it a real
// pagination event unless the count grew after at least three scrolls
// guards against a page that merely finishes loading its first screen.
func tryInfiniteScroll(ctx context.Context, driver Driver, currentPage, maxPage int,
	handler *model.PaginationHandlerName, failed FailedHandlers, cfg Config) bool {

	if !canHandle(handler, model.HandlerInfiniteScroll, failed) {
		return false
	}

	oldCount := 0
	newCount, _ := driver.CountElements(ctx, cfg.CountSelector)
	heightChanges := 0
	growths := 0

	for oldCount != newCount && currentPage+heightChanges <= maxPage {
		heightChanges++
		oldCount = newCount

		if err := driver.ScrollToBottom(ctx); err != nil {
			return false
		}

		pollIterations := int(cfg.ScrollDelay.Seconds() * 2)
		for i := 0; i < pollIterations; i++ {
			newCount, _ = driver.CountElements(ctx, cfg.CountSelector)
			if oldCount != newCount {
				break
			}
			select {
			case <-ctx.Done():
				return false
			case <-time.After(500 * time.Millisecond):
			}
		}
		if newCount != oldCount {
			growths++
		}
	}

	return growths >= 3
}
