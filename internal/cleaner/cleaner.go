// Package cleaner implements the DOM Cleaner (C1): it normalizes a
// fully rendered page into a compact, comparable tag tree. Grounded on
// original_source/scraper/main/python/preprocessing/HtmlCleaner.py, whose
// eleven-step pipeline (in the same order, for the ordering reasons given
// there) this package reproduces over a goquery document instead of
// BeautifulSoup.
package cleaner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"listingscraper/internal/model"
)

// Config is the subset of scrape configuration the cleaner consults.
type Config struct {
	BaseURL             string
	IgnoredSteps        map[string]bool
	InvisibilityRegexes []*regexp.Regexp
	ExcludedTags        map[string]bool
	AttributeWhitelist  map[string]bool
	FlattenableTags     map[string]bool
	SpecialStrings      []string
	PunctuationMarks    []string
	EmptyAllowedTags    map[string]bool
}

// DefaultConfig mirrors the source's default tuning (car-listing sites):
// scripts/styles/svg stripped, inline event/style noise whitelisted away,
// img/br/input allowed to stay "empty".
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		InvisibilityRegexes: []*regexp.Regexp{
			regexp.MustCompile(`display:\s?none`),
			regexp.MustCompile(`visibility:\s?hidden`),
		},
		ExcludedTags: map[string]bool{
			"script": true, "style": true, "svg": true, "noscript": true, "iframe": true,
		},
		AttributeWhitelist: map[string]bool{
			"href": true, "src": true, "class": true, "id": true, "alt": true, "title": true,
		},
		FlattenableTags: map[string]bool{
			"span": true, "b": true, "strong": true, "i": true, "em": true, "small": true, "u": true,
		},
		SpecialStrings:   []string{},
		PunctuationMarks: []string{"!", "?", ".", ",", ":", ";"},
		EmptyAllowedTags: map[string]bool{
			"img": true, "br": true, "input": true, "hr": true,
		},
	}
}

// Warning records a non-fatal cleaning-stage failure; only the inline_css
// step reports one, when inlineCSS returns an error. There is no second,
// more permissive CSS engine to retry with.
type Warning struct {
	Step    string
	Message string
}

// Clean runs the eleven-step pipeline over doc in place and returns the
// resulting scraperIndex table plus any non-fatal warnings collected along
// the way. Steps named in cfg.IgnoredSteps are skipped entirely.
func Clean(doc *goquery.Document, cfg Config) (*model.Index, []Warning) {
	var warnings []Warning
	run := func(name string, fn func()) {
		if cfg.IgnoredSteps[name] {
			return
		}
		fn()
	}

	run("inline_css", func() {
		if err := inlineCSS(doc, cfg.BaseURL); err != nil {
			warnings = append(warnings, Warning{Step: "inline_css", Message: err.Error()})
		}
	})
	run("inline_images", func() { inlineBackgroundImages(doc) })
	run("remove_comments", func() { removeComments(doc.Nodes[0]) })
	run("remove_invisible_tags", func() { removeInvisibleTags(doc, cfg) })
	run("remove_excluded_tags", func() { removeExcludedTags(doc, cfg) })
	run("filter_attributes", func() { filterAttributes(doc, cfg) })
	run("flatten_text", func() { flattenInlineTextTags(doc, cfg) })
	run("flatten_special_strings", func() { flattenSpecialStrings(doc, cfg) })
	run("collapse_punctuation_whitespace", func() { collapsePunctuationWhitespace(doc, cfg) })
	run("collapse_whitespace", func() { collapseRepeatedWhitespace(doc) })
	run("remove_empty_tags", func() { removeEmptyTags(doc, cfg) })

	return model.NewIndex(doc.Nodes[0]), warnings
}

// removeComments strips every html.CommentNode from the tree (step 3).
func removeComments(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
			continue
		}
		removeComments(c)
	}
}
