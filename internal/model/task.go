package model

import (
	"context"
	"sync/atomic"
)

// ScraperType selects which pipeline variant a task is driven through.
type ScraperType string

const (
	ScraperCatalog       ScraperType = "catalog"
	ScraperDetail        ScraperType = "vdp"
	ScraperCatalogStatic ScraperType = "catalog_static"
)

// PaginationHandlerName names one of the three pagination strategies.
type PaginationHandlerName string

const (
	HandlerInfiniteScroll PaginationHandlerName = "infiniteScroll"
	HandlerPaginator      PaginationHandlerName = "paginator"
	HandlerViewMore       PaginationHandlerName = "viewMore"
)

// Configuration is the fixed map of recognized per-task options (spec.md §3).
type Configuration struct {
	InteractionButtons         []string
	IgnoredCleaningSteps       []string
	PreferredPaginationHandler *PaginationHandlerName
	IgnoreMinRecordCount       bool
	TranslatePage              bool
	UseProxy                   bool
	RecordID                   string
	RecordAlias                string
}

// Proxy is a connection descriptor; a nil *Proxy means direct connection.
type Proxy struct {
	Username string
	Password string
	Host     string
	Port     int
}

// ScrapeTask is one (domain, locale, url) unit of work.
type ScrapeTask struct {
	Domain        string
	Locale        string
	URL           string
	Configuration Configuration
	RunID         int64
	Proxy         *Proxy
}

// Batch is a group of tasks that share one browser session.
type Batch struct {
	Proxy *Proxy
	Tasks []ScrapeTask
}

// RunTimeoutEvent is a shared boolean flag with a monotone false->true
// transition: once set, it stays set. Safe for concurrent use by any number
// of workers. This is the Go realization of SPEC_FULL.md §9's cooperative
// cancellation flag, carried alongside (not instead of) a context.Context so
// that ctx.Done() and the flag can be checked together at one call site.
type RunTimeoutEvent struct {
	ctx    context.Context
	cancel context.CancelFunc
	set    atomic.Bool
}

// NewRunTimeoutEvent returns an event bound to parent; calling Set or
// letting the context's own deadline/parent cancellation fire both set it.
func NewRunTimeoutEvent(parent context.Context) *RunTimeoutEvent {
	ctx, cancel := context.WithCancel(parent)
	e := &RunTimeoutEvent{ctx: ctx, cancel: cancel}
	go func() {
		<-ctx.Done()
		e.set.Store(true)
	}()
	return e
}

// Set forces the event, e.g. on run timeout or OS signal.
func (e *RunTimeoutEvent) Set() {
	e.set.Store(true)
	e.cancel()
}

// IsSet reports whether the event has fired.
func (e *RunTimeoutEvent) IsSet() bool {
	return e.set.Load()
}

// Context returns the bound context, for use in select statements.
func (e *RunTimeoutEvent) Context() context.Context {
	return e.ctx
}
