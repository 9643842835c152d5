package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// flattenInlineTextTags replaces a tag whose descendants are all in
// cfg.FlattenableTags with its own concatenated text, joined to neighboring
// text runs with a single space. Step 7: purely inline formatting wrappers
// (span/b/strong/...) collapse to plain text so the tagger sees one text
// node instead of a forest of spans around it.
func flattenInlineTextTags(doc *goquery.Document, cfg Config) {
	var candidates []*goquery.Selection
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node == nil || !cfg.FlattenableTags[node.Data] {
			return
		}
		if allDescendantsFlattenable(node, cfg) {
			candidates = append(candidates, s)
		}
	})
	for _, s := range candidates {
		text := strings.Join(strings.Fields(s.Text()), " ")
		s.ReplaceWithHtml(" " + html.EscapeString(text) + " ")
	}
}

func allDescendantsFlattenable(n *html.Node, cfg Config) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			if !cfg.FlattenableTags[c.Data] {
				return false
			}
			if !allDescendantsFlattenable(c, cfg) {
				return false
			}
		}
	}
	return true
}

// flattenSpecialStrings collapses the immediate siblings of the tag
// containing a configured special string into a single text run. Step 8:
// some sites split one logical phrase ("From", "€", "12,000") across
// adjacent inline tags; configured markers identify which phrases to rejoin.
func flattenSpecialStrings(doc *goquery.Document, cfg Config) {
	if len(cfg.SpecialStrings) == 0 {
		return
	}
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node == nil || node.Parent == nil {
			return
		}
		var own strings.Builder
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				own.WriteString(c.Data)
			}
		}
		text := own.String()
		for _, special := range cfg.SpecialStrings {
			if strings.Contains(text, special) {
				collapseSiblingsToText(node.Parent)
				return
			}
		}
	})
}

func collapseSiblingsToText(parent *html.Node) {
	var b strings.Builder
	var next *html.Node
	for c := parent.FirstChild; c != nil; c = next {
		next = c.NextSibling
		b.WriteString(nodeText(c))
		b.WriteString(" ")
		parent.RemoveChild(c)
	}
	joined := strings.Join(strings.Fields(b.String()), " ")
	parent.AppendChild(&html.Node{Type: html.TextNode, Data: joined})
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
