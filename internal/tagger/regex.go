package tagger

import (
	"regexp"

	"golang.org/x/net/html"

	"listingscraper/internal/model"
)

// applyRegexDriven handles a single compiled pattern per rule, for both
// text and attribute targets, per spec.md §4.2 "Regex-driven, text/attribute".
// If ReplaceSimilar, every distinct concrete match is collected and re-run
// as a synthetic example-driven rule so textually identical occurrences
// anywhere in the page are also claimed (e.g. a VIN seen once becomes an
// exact-match example everywhere).
func applyRegexDriven(idx *model.Index, ann model.AnnotationTable, root *html.Node, rule model.AttributeRule) {
	re, err := regexp.Compile(withCaseFlag(rule.Regex, rule.IgnoreCase))
	if err != nil {
		return
	}

	seen := map[string]bool{}
	var distinct []string

	wantText := rule.Text || !rule.Attribute
	wantAttr := rule.Attribute

	if wantText {
		matchTextNodes(root, func(tn *html.Node) {
			for {
				loc := re.FindStringIndex(tn.Data)
				if loc == nil {
					return
				}
				value := tn.Data[loc[0]:loc[1]]
				if rule.Labeled && !hasNearbyLabel(idx, ann, tn, loc[0], rule) {
					return
				}
				annotate(idx, ann, tn.Parent, rule, value)
				tn.Data = tn.Data[:loc[0]] + sentinel(rule.Name) + tn.Data[loc[1]:]
				if !seen[value] {
					seen[value] = true
					distinct = append(distinct, value)
				}
			}
		})
	}
	if wantAttr && rule.AttributeRegex != "" {
		if attrRe, err := regexp.Compile(rule.AttributeRegex); err == nil {
			matchAttributesByKey(root, attrRe, func(el *html.Node, attrIdx int) {
				attr := &el.Attr[attrIdx]
				loc := re.FindStringIndex(attr.Val)
				if loc == nil {
					return
				}
				value := attr.Val[loc[0]:loc[1]]
				annotate(idx, ann, el, rule, value)
				attr.Val = attr.Val[:loc[0]] + sentinel(rule.Name) + attr.Val[loc[1]:]
				if !seen[value] {
					seen[value] = true
					distinct = append(distinct, value)
				}
			})
		}
	}

	if rule.ReplaceSimilar && len(distinct) > 0 {
		synthetic := rule
		synthetic.Examples = distinct
		synthetic.Regex = ""
		synthetic.ReorderExamples = true
		applyExampleDriven(idx, ann, root, synthetic)
	}
}

func withCaseFlag(pattern string, ignoreCase bool) string {
	if ignoreCase {
		return "(?i)" + pattern
	}
	return pattern
}

func matchAttributesByKey(n *html.Node, re *regexp.Regexp, fn func(*html.Node, int)) {
	if n.Type == html.ElementNode {
		for i, a := range n.Attr {
			if re.MatchString(a.Key) {
				fn(n, i)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		matchAttributesByKey(c, re, fn)
	}
}
