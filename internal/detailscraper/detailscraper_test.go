package detailscraper

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
		{Name: "alias", Type: model.RuleText, Required: true, Examples: []string{"ALIAS-1"}, Text: true},
		{Name: "title", Type: model.RuleText, Required: true, Examples: []string{"Volvo"}, Text: true},
		{Name: "make", Type: model.RuleText, Examples: []string{"Volvo"}, Text: true},
	}
}

type stubDriver struct {
	html string
}

func (s *stubDriver) Navigate(_ string) error { return nil }
func (s *stubDriver) HTML() (string, error)   { return s.html, nil }
func (s *stubDriver) Fetch(_ context.Context, _ string) ([]byte, error) {
	return nil, nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig() Config {
	return Config{
		EmptyFieldThreshold: 5,
		HighPriorityFields:  []string{"title"},
		Rules:               rules(),
		BlockFinder:         blockfinder.Options{MaxTagDistance: 4},
	}
}

func TestRunSucceedsWithPopulatedBlock(t *testing.T) {
	driver := &stubDriver{html: `<body><div class="vdp"><span>ALIAS-1</span><h2>Volvo</h2></div></body>`}
	cfg := baseConfig()

	task := model.ScrapeTask{
		Domain:        "example",
		URL:           "https://example.test/cars/1",
		Configuration: model.Configuration{RecordAlias: "ALIAS-1", RecordID: "rid-1"},
	}

	res := Run(context.Background(), driver, task, cfg, silentLogger())
	if !res.Success() {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	rec := res.Records[0]
	if rec.Title != "Volvo" {
		t.Fatalf("expected title Volvo, got %q", rec.Title)
	}
	if rec.Link != task.URL {
		t.Fatalf("expected link %q, got %q", task.URL, rec.Link)
	}
	if rec.Extra["id"] != "rid-1" {
		t.Fatalf("expected extra id rid-1, got %v", rec.Extra["id"])
	}
}

func TestRunFailsLowFieldCountWithoutHighPriorityField(t *testing.T) {
	driver := &stubDriver{html: `<body><div class="vdp"></div></body>`}
	cfg := baseConfig()
	cfg.EmptyFieldThreshold = 1
	cfg.HighPriorityFields = []string{"make"}

	task := model.ScrapeTask{Domain: "example", URL: "https://example.test/cars/1"}
	res := Run(context.Background(), driver, task, cfg, silentLogger())
	if res.Success() {
		t.Fatal("expected failure for an empty detail block with no high-priority field")
	}
	if res.TerminalK != "LowFieldCount" {
		t.Fatalf("got terminal kind %q, want LowFieldCount", res.TerminalK)
	}
}

func TestRunSucceedsWhenHighPriorityFieldPopulatedDespiteLowCount(t *testing.T) {
	driver := &stubDriver{html: `<body><div class="vdp"><h2>Volvo</h2></div></body>`}
	cfg := baseConfig()
	cfg.EmptyFieldThreshold = 1
	cfg.HighPriorityFields = []string{"title"}

	task := model.ScrapeTask{Domain: "example", URL: "https://example.test/cars/1"}
	res := Run(context.Background(), driver, task, cfg, silentLogger())
	if !res.Success() {
		t.Fatalf("expected success since a high-priority field is populated, got %+v", res)
	}
}
