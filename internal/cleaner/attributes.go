package cleaner

import "github.com/PuerkitoBio/goquery"

// filterAttributes retains only whitelisted attribute names. Step 6; must
// run after background-image inlining (step 2) so the synthetic <img src>
// is itself subject to the same whitelist as any other element.
func filterAttributes(doc *goquery.Document, cfg Config) {
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node == nil {
			return
		}
		kept := node.Attr[:0]
		for _, a := range node.Attr {
			if cfg.AttributeWhitelist[a.Key] {
				kept = append(kept, a)
			}
		}
		node.Attr = kept
	})
}
