package cleaner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var repeatedWhitespaceRe = regexp.MustCompile(`[\s\n\r\t\v\f\x00]+`)

// collapsePunctuationWhitespace removes whitespace immediately before each
// configured punctuation mark, and collapses redundant surrounding
// whitespace around the mark to a single space. Step 9; must run before
// step 10's blanket whitespace collapse, since its \sX -> X rewrite
// depends on the punctuation mark still being locatable as a literal.
func collapsePunctuationWhitespace(doc *goquery.Document, cfg Config) {
	if len(cfg.PunctuationMarks) == 0 {
		return
	}
	forEachTextNode(doc.Nodes[0], func(n *html.Node) {
		text := n.Data
		for _, mark := range cfg.PunctuationMarks {
			q := regexp.QuoteMeta(mark)
			text = regexp.MustCompile(`\s+`+q).ReplaceAllString(text, mark)
			text = regexp.MustCompile(`\s*`+q+`\s+`).ReplaceAllString(text, mark+" ")
		}
		n.Data = text
	})
}

// collapseRepeatedWhitespace rewrites any run of whitespace to a single
// space. Step 10, last whitespace pass before empty-tag removal.
func collapseRepeatedWhitespace(doc *goquery.Document) {
	forEachTextNode(doc.Nodes[0], func(n *html.Node) {
		n.Data = repeatedWhitespaceRe.ReplaceAllString(n.Data, " ")
	})
}

func forEachTextNode(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.TextNode {
		fn(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		forEachTextNode(c, fn)
	}
}

// trimJoin joins parts with single spaces, dropping leading, trailing and
// repeated whitespace. Nothing in the package calls it.
func trimJoin(parts []string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
