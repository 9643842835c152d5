package tagger

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"listingscraper/internal/model"
)

// applyExampleDriven handles both text and attribute example matching for
// rule, per spec.md §4.2 "Example-driven, text" / "Example-driven, attribute".
func applyExampleDriven(idx *model.Index, ann model.AnnotationTable, root *html.Node, rule model.AttributeRule) {
	examples := orderedExamples(rule)
	if len(examples) == 0 {
		return
	}

	wantText := rule.Text || !rule.Attribute
	wantAttr := rule.Attribute

	for _, example := range examples {
		re := compileExample(example, rule.IgnoreCase)

		if wantText {
			matchTextNodes(root, func(tn *html.Node) {
				matchAndReplaceText(idx, ann, tn, rule, re)
			})
		}
		if wantAttr {
			matchAttributes(root, rule, func(el *html.Node, attrIdx int) {
				matchAndReplaceAttribute(idx, ann, el, attrIdx, rule, re)
			})
		}
	}
}

func matchAndReplaceText(idx *model.Index, ann model.AnnotationTable, tn *html.Node, rule model.AttributeRule, re *regexp.Regexp) {
	for {
		loc := re.FindStringIndex(tn.Data)
		if loc == nil {
			return
		}
		value := tn.Data[loc[0]:loc[1]]

		if rule.Labeled && !hasNearbyLabel(idx, ann, tn, loc[0], rule) {
			// Not near a label: consume nothing, stop trying this text
			// node for this example to avoid an infinite loop.
			return
		}

		annotate(idx, ann, tn.Parent, rule, value)
		tn.Data = tn.Data[:loc[0]] + sentinel(rule.Name) + tn.Data[loc[1]:]
	}
}

func matchAndReplaceAttribute(idx *model.Index, ann model.AnnotationTable, el *html.Node, attrIdx int, rule model.AttributeRule, re *regexp.Regexp) {
	attr := &el.Attr[attrIdx]
	loc := re.FindStringIndex(attr.Val)
	if loc == nil {
		return
	}
	value := attr.Val[loc[0]:loc[1]]
	annotate(idx, ann, el, rule, value)
	attr.Val = attr.Val[:loc[0]] + sentinel(rule.Name) + attr.Val[loc[1]:]
}

func matchTextNodes(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.TextNode {
		fn(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		matchTextNodes(c, fn)
	}
}

func matchAttributes(n *html.Node, rule model.AttributeRule, fn func(*html.Node, int)) {
	if n.Type == html.ElementNode && rule.AttributeRegex != "" {
		if re, err := regexp.Compile(rule.AttributeRegex); err == nil {
			for i, a := range n.Attr {
				if re.MatchString(a.Key) {
					fn(n, i)
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		matchAttributes(c, rule, fn)
	}
}

// hasNearbyLabel walks up to maxLabelDistance ancestors from tn looking for
// an annotation of rule's synthetic label rule. When the label and the
// candidate value share the same text node, the label text must precede
// the value's offset (spec.md §4.2).
func hasNearbyLabel(idx *model.Index, ann model.AnnotationTable, tn *html.Node, valueOffset int, rule model.AttributeRule) bool {
	labelRule := rule.LabelRuleName()

	if before := tn.Data[:valueOffset]; before != "" {
		for _, label := range rule.Labels {
			if strings.Contains(strings.ToLower(before), strings.ToLower(label)) {
				return true
			}
		}
	}

	steps := 0
	for n := tn.Parent; n != nil && steps <= maxLabelDistance(rule); n, steps = n.Parent, steps+1 {
		if n.Type != html.ElementNode {
			continue
		}
		i, ok := idx.Of(n)
		if !ok {
			continue
		}
		entry, ok := ann[i]
		if !ok {
			continue
		}
		if len(entry.Data[labelRule]) > 0 || entry.Counts[labelRule] > 0 {
			return true
		}
	}
	return false
}
