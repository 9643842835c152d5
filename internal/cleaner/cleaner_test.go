package cleaner

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, htmlStr string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestRemoveCommentsEliminatesAllComments(t *testing.T) {
	doc := mustDoc(t, `<div><!-- one --><p>text</p><!-- two --></div>`)
	cfg := DefaultConfig("")
	Clean(doc, cfg)

	html, err := doc.Html()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<!--") {
		t.Fatalf("expected no comments left, got: %s", html)
	}
}

func TestRemoveInvisibleTags(t *testing.T) {
	doc := mustDoc(t, `<div><p hidden>gone</p><p style="display: none">gone2</p><p>kept</p></div>`)
	cfg := DefaultConfig("")
	Clean(doc, cfg)

	text := doc.Find("body").Text()
	if strings.Contains(text, "gone") || strings.Contains(text, "gone2") {
		t.Fatalf("invisible tags survived: %q", text)
	}
	if !strings.Contains(text, "kept") {
		t.Fatalf("visible tag was removed: %q", text)
	}
}

func TestIndexingAssignsPreOrderIndexes(t *testing.T) {
	doc := mustDoc(t, `<div><p>a</p><p>b</p></div>`)
	cfg := DefaultConfig("")
	idx, _ := Clean(doc, cfg)

	if idx.Len() == 0 {
		t.Fatalf("expected at least one indexed element")
	}
	// every element must have a distinct index
	seen := map[int]bool{}
	for i := 0; i < idx.Len(); i++ {
		if seen[i] {
			t.Fatalf("duplicate index %d", i)
		}
		seen[i] = true
	}
}

func TestCollapsePunctuationWhitespace(t *testing.T) {
	doc := mustDoc(t, `<p>SPACE HERE !</p>`)
	cfg := DefaultConfig("")
	Clean(doc, cfg)

	got := strings.TrimSpace(doc.Find("p").Text())
	if got != "SPACE HERE!" {
		t.Fatalf("got %q, want %q", got, "SPACE HERE!")
	}
}

func TestCollapseDuplicateWhitespace(t *testing.T) {
	doc := mustDoc(t, "<p>a\n\n\t  b</p>")
	cfg := DefaultConfig("")
	Clean(doc, cfg)

	got := doc.Find("p").Text()
	if strings.Contains(got, "  ") {
		t.Fatalf("expected whitespace collapsed to single spaces, got %q", got)
	}
}

func TestRemoveEmptyTagsIsTransitive(t *testing.T) {
	doc := mustDoc(t, `<div><span><b></b></span><p>kept</p></div>`)
	cfg := DefaultConfig("")
	Clean(doc, cfg)

	if doc.Find("span").Length() != 0 {
		t.Fatalf("expected empty span (containing only an empty b) to be removed")
	}
	if doc.Find("p").Length() != 1 {
		t.Fatalf("expected non-empty p to survive")
	}
}

func TestEmptyAllowedTagsSurvive(t *testing.T) {
	doc := mustDoc(t, `<div><img src="x.png"></div>`)
	cfg := DefaultConfig("")
	Clean(doc, cfg)

	if doc.Find("img").Length() != 1 {
		t.Fatalf("expected img to survive empty-tag removal")
	}
}

func TestIgnoredCleaningStepsSkipsStage(t *testing.T) {
	doc := mustDoc(t, `<p hidden>still here</p>`)
	cfg := DefaultConfig("")
	cfg.IgnoredSteps = map[string]bool{"remove_invisible_tags": true}
	Clean(doc, cfg)

	if !strings.Contains(doc.Find("body").Text(), "still here") {
		t.Fatalf("expected invisible-tag removal to be skipped")
	}
}
