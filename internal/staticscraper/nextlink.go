package staticscraper

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"listingscraper/internal/pagination"
)

// findNextLink looks for an anchor whose label names the next page number
// (digits or spelled out, same ambiguity PaginationHandler.py allows for a
// translated page) or whose rel/class marks it as the next-page control,
// and returns its href as written (Run resolves it against the current
// page URL). StaticScraper.py has no click mechanics at
// all for a static page; this is the "follow <a href> pagination links
// directly" variant SPEC_FULL.md §6 calls for in place of a driver click.
func findNextLink(root *html.Node, currentPage int) (string, bool) {
	var anchors []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			anchors = append(anchors, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	want := currentPage + 1
	for _, a := range anchors {
		href := attrOf(a, "href")
		if href == "" {
			continue
		}
		if isNextRel(a) || labelMatchesPage(textContent(a), want) {
			return href, true
		}
	}
	return "", false
}

func isNextRel(a *html.Node) bool {
	rel := strings.ToLower(attrOf(a, "rel"))
	if rel == "next" {
		return true
	}
	class := strings.ToLower(attrOf(a, "class"))
	return strings.Contains(class, "next")
}

func labelMatchesPage(label string, page int) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	if n, err := strconv.Atoi(label); err == nil {
		return n == page
	}
	return pagination.LooksLikeNumberWords(label, page)
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
