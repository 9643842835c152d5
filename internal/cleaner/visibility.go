package cleaner

import (
	"github.com/PuerkitoBio/goquery"
)

// removeInvisibleTags drops elements with a hidden attribute, or a style
// matching any configured invisibility regex. Step 4; must run after CSS
// inlining since visibility is frequently expressed only via a stylesheet
// rule, not an inline style, until step 1 has run.
func removeInvisibleTags(doc *goquery.Document, cfg Config) {
	var toRemove []*goquery.Selection
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("hidden"); ok {
			toRemove = append(toRemove, s)
			return
		}
		style, ok := s.Attr("style")
		if !ok {
			return
		}
		for _, re := range cfg.InvisibilityRegexes {
			if re.MatchString(style) {
				toRemove = append(toRemove, s)
				return
			}
		}
	})
	for _, s := range toRemove {
		s.Remove()
	}
}

// removeExcludedTags removes tags whose name is in cfg.ExcludedTags,
// replacing each with a single whitespace text node so that surrounding
// text does not accidentally fuse across the removed element. Step 5.
func removeExcludedTags(doc *goquery.Document, cfg Config) {
	if len(cfg.ExcludedTags) == 0 {
		return
	}
	var names []string
	for name := range cfg.ExcludedTags {
		names = append(names, name)
	}
	doc.Find(joinSelectors(names)).Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml(" ")
	})
}

func joinSelectors(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
