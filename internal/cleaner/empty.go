package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// removeEmptyTags transitively removes tags with no non-whitespace text
// child and no element child, except those named in cfg.EmptyAllowedTags.
// Step 11, last in the pipeline so earlier steps (which can empty out a
// tag, e.g. by stripping its only child) don't strand empty ancestors.
func removeEmptyTags(doc *goquery.Document, cfg Config) {
	// Repeat until a full pass removes nothing, since removing a child can
	// make its parent empty in turn ("removal is transitive").
	for {
		removed := removeEmptyPass(doc.Nodes[0], cfg)
		if removed == 0 {
			return
		}
	}
}

func removeEmptyPass(n *html.Node, cfg Config) int {
	removed := 0
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode {
			removed += removeEmptyPass(c, cfg)
			if isEmpty(c, cfg) {
				n.RemoveChild(c)
				removed++
			}
		}
	}
	return removed
}

func isEmpty(n *html.Node, cfg Config) bool {
	if cfg.EmptyAllowedTags[n.Data] {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			return false
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return false
			}
		}
	}
	return true
}
