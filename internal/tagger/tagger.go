// Package tagger implements the Value Tagger (C2): for each AttributeRule,
// locate every place it matches in the cleaned tree, record the match in
// the annotation side-table, and replace the matched literal with a
// sentinel so later rules cannot re-match the same text. Grounded on
// original_source/.../preprocessing/ValueTagger.py.
package tagger

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"listingscraper/internal/model"
)

const defaultMaxLabelDistance = 4

// sentinel formats the $NAME$ placeholder used to block re-matching,
// per spec.md's GLOSSARY entry and §9 "First example wins" re-entry.
func sentinel(name string) string {
	return "$" + strings.ToUpper(name) + "$"
}

// Tag runs every rule, in declared order, over root and returns the
// resulting annotation table. Rules are mutated in place only in the sense
// that matched text is replaced by sentinels in the live tree; annotation
// bookkeeping lives entirely in the returned table (SPEC_FULL.md §9).
func Tag(idx *model.Index, root *html.Node, rules []model.AttributeRule) model.AnnotationTable {
	ann := model.AnnotationTable{}

	for _, rule := range rules {
		applyRule(idx, ann, root, rule)

		if rule.Labeled {
			labelRule := model.AttributeRule{
				Name:     rule.LabelRuleName(),
				Type:     model.RuleText,
				Examples: rule.Labels,
				Text:     true,
				Fallback: rule.Fallback,
			}
			applyRule(idx, ann, root, labelRule)
		}
	}

	for _, rule := range rules {
		if rule.Aggregate {
			applyAggregate(ann, rule)
		}
	}

	return ann
}

func applyRule(idx *model.Index, ann model.AnnotationTable, root *html.Node, rule model.AttributeRule) {
	switch {
	case rule.TableSourced != "" || len(rule.Examples) > 0:
		applyExampleDriven(idx, ann, root, rule)
	case rule.Regex != "":
		applyRegexDriven(idx, ann, root, rule)
	}
}

// maxLabelDistance returns the configured or default ancestor-walk bound
// for a Labeled rule.
func maxLabelDistance(rule model.AttributeRule) int {
	if rule.MaxLabelDistance > 0 {
		return rule.MaxLabelDistance
	}
	return defaultMaxLabelDistance
}

// orderedExamples returns rule.Examples, longest-first when ReorderExamples
// is set so that e.g. "4x4" is tried before "4" would wrongly sub-match it.
func orderedExamples(rule model.AttributeRule) []string {
	examples := append([]string(nil), rule.Examples...)
	if rule.ReorderExamples {
		sort.Slice(examples, func(i, j int) bool { return len(examples[i]) > len(examples[j]) })
	}
	return examples
}

func compileExample(example string, ignoreCase bool) *regexp.Regexp {
	pattern := `\b` + regexp.QuoteMeta(example) + `\b`
	if ignoreCase {
		pattern = `(?i)` + pattern
	}
	return regexp.MustCompile(pattern)
}

func annotate(idx *model.Index, ann model.AnnotationTable, owner *html.Node, rule model.AttributeRule, value string) {
	value = applyFilters(rule, value)
	for n := owner; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		i, ok := idx.Of(n)
		if !ok {
			continue
		}
		entry := ann.Get(i)
		if n == owner {
			if rule.Fallback {
				entry.AddFallback(rule.Name, value)
			} else {
				entry.AddData(rule.Name, value)
			}
			continue
		}
		if rule.Fallback {
			entry.FallbackCounts[rule.Name]++
		} else {
			entry.Counts[rule.Name]++
		}
	}
}

func applyFilters(rule model.AttributeRule, value string) string {
	if rule.FilterRegex != "" {
		if re, err := regexp.Compile(rule.FilterRegex); err == nil {
			value = re.ReplaceAllString(value, "")
		}
	}
	if rule.Prefix != "" {
		value = rule.Prefix + value
	}
	if mapped, ok := translate(rule, value); ok {
		value = mapped
	}
	return value
}

func translate(rule model.AttributeRule, value string) (string, bool) {
	if len(rule.Translations) == 0 {
		return "", false
	}
	key := value
	if rule.IgnoreCase {
		key = strings.ToLower(key)
	}
	for k, v := range rule.Translations {
		candidate := k
		if rule.IgnoreCase {
			candidate = strings.ToLower(candidate)
		}
		if candidate == key {
			return v, true
		}
	}
	return "", false
}
