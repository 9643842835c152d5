package cleaner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var cssRuleRe = regexp.MustCompile(`(?s)([^{}]+)\{([^{}]*)\}`)

// inlineCSS resolves <style> block declarations into per-tag style
// attributes, step 1 of the pipeline. It extracts selector{declarations}
// rules with a permissive regex rather than a full CSS parser -- the pack
// carries none -- and skips any selector goquery can't resolve instead of
// aborting the pass.
func inlineCSS(doc *goquery.Document, baseURL string) error {
	var sheet string
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		sheet += s.Text() + "\n"
	})
	if strings.TrimSpace(sheet) == "" {
		return nil
	}

	if err := applyStylesheet(doc, sheet); err != nil {
		return fmt.Errorf("inline css: %w", err)
	}
	return nil
}

func applyStylesheet(doc *goquery.Document, sheet string) error {
	matches := cssRuleRe.FindAllStringSubmatch(sheet, -1)
	for _, m := range matches {
		selector := strings.TrimSpace(m[1])
		decls := strings.TrimSpace(m[2])
		if selector == "" || decls == "" {
			continue
		}
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		sel.Each(func(_ int, s *goquery.Selection) {
			existing, _ := s.Attr("style")
			merged := mergeDeclarations(existing, decls)
			s.SetAttr("style", merged)
		})
	}
	return nil
}

// mergeDeclarations appends added declarations after existing ones. No
// conflict is resolved here: the invisibility check matches any
// declaration, and background-image inlining takes the first url(), so an
// inline background-image is found before one from a stylesheet.
func mergeDeclarations(existing, added string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return added
	}
	if !strings.HasSuffix(existing, ";") {
		existing += ";"
	}
	return existing + " " + added
}
