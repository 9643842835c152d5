package catalogscraper

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"listingscraper/internal/blockfinder"
	"listingscraper/internal/model"
)

func rules() []model.AttributeRule {
	return []model.AttributeRule{
		{Name: "alias", Type: model.RuleText, Required: true, Examples: []string{"ALIAS-1", "ALIAS-2"}, Text: true},
		{Name: "title", Type: model.RuleText, Required: true, Examples: []string{"Volvo", "Saab"}, Text: true},
	}
}

const onePageMarkup = `<body>
	<div class="list">
		<div class="card"><span>ALIAS-1</span><h2>Volvo</h2></div>
		<div class="card"><span>ALIAS-2</span><h2>Saab</h2></div>
	</div>
</body>`

type stubDriver struct {
	html string
}

func (s *stubDriver) Navigate(_ string) error           { return nil }
func (s *stubDriver) HTML() (string, error)             { return s.html, nil }
func (s *stubDriver) Screenshot(bool) ([]byte, error)   { return nil, nil }
func (s *stubDriver) Click(context.Context, string) error { return nil }
func (s *stubDriver) CountElements(context.Context, string) (int, error) {
	return 2, nil
}
func (s *stubDriver) ScrollToBottom(context.Context) error { return nil }
func (s *stubDriver) CurrentURL(context.Context) (string, error) {
	return "https://example.test/cars", nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunTerminatesAfterOnePageWithNoPaginationHandler(t *testing.T) {
	driver := &stubDriver{html: onePageMarkup}
	cfg := Config{
		MaxPageCount:       5,
		MinRecordCount:     1,
		RecordCountWarning: 0,
		Rules:              rules(),
		BlockFinder:        blockfinder.Options{MaxTagDistance: 4},
	}

	res := Run(context.Background(), driver, model.ScrapeTask{Domain: "example", URL: "https://example.test/cars"}, cfg, silentLogger(), nil)
	if !res.Success() {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	aliases := map[string]bool{}
	for _, r := range res.Records {
		aliases[r.Alias] = true
	}
	if !aliases["ALIAS-1"] || !aliases["ALIAS-2"] {
		t.Fatalf("got aliases %v, want ALIAS-1 and ALIAS-2", aliases)
	}
}

func TestRunFailsInsufficientRecordsWhenBelowMinimum(t *testing.T) {
	// An empty page still yields one pseudo-block (the whole document, with
	// every required field unmatched, so its values are nil and its alias
	// is ""), so the minimum must be set above that to exercise the failure
	// path.
	driver := &stubDriver{html: `<body><div class="list"></div></body>`}
	cfg := Config{
		MaxPageCount:   3,
		MinRecordCount: 2,
		Rules:          rules(),
	}

	res := Run(context.Background(), driver, model.ScrapeTask{Domain: "example", URL: "https://example.test/cars"}, cfg, silentLogger(), nil)
	if res.Success() {
		t.Fatal("expected failure for a page with no listing blocks")
	}
	if res.TerminalK != "InsufficientRecords" {
		t.Fatalf("got terminal kind %q, want InsufficientRecords", res.TerminalK)
	}
}

func TestRunHonorsIgnoreMinRecordCount(t *testing.T) {
	driver := &stubDriver{html: `<body><div class="list"></div></body>`}
	cfg := Config{
		MaxPageCount:   3,
		MinRecordCount: 2,
		Rules:          rules(),
	}
	task := model.ScrapeTask{
		Domain:        "example",
		URL:           "https://example.test/cars",
		Configuration: model.Configuration{IgnoreMinRecordCount: true},
	}

	res := Run(context.Background(), driver, task, cfg, silentLogger(), nil)
	if !res.Success() {
		t.Fatalf("expected success when IgnoreMinRecordCount is set, got %+v", res)
	}
}

func TestRunRespectsCanceledContext(t *testing.T) {
	driver := &stubDriver{html: onePageMarkup}
	cfg := Config{MaxPageCount: 5, MinRecordCount: 1, Rules: rules()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg.BlockFinder = blockfinder.Options{MaxTagDistance: 4}
	res := Run(ctx, driver, model.ScrapeTask{Domain: "example", URL: "https://example.test/cars"}, cfg, silentLogger(), nil)
	if res.Kind != 1 {
		t.Fatalf("expected a Transient result for an already-canceled context, got kind %d", res.Kind)
	}
}
