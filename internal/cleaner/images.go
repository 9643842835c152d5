package cleaner

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var backgroundImageRe = regexp.MustCompile(`background-image:\s*url\(["']?([^"')]+)["']?\)`)

// inlineBackgroundImages inserts a synthetic <img> child for every tag
// whose style carries a background-image, so later stages (value tagger,
// image_link parsing) see it like any other <img src>. Step 2; must run
// before filter_attributes strips style down, and before remove_excluded
// so the synthetic node survives classification as a real element.
func inlineBackgroundImages(doc *goquery.Document) {
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		m := backgroundImageRe.FindStringSubmatch(style)
		if m == nil {
			return
		}
		img := &html.Node{
			Type: html.ElementNode,
			Data: "img",
			Attr: []html.Attribute{{Key: "src", Val: m[1]}},
		}
		if node := s.Get(0); node != nil {
			node.AppendChild(img)
		}
	})
}
