package blockfinder

import (
	"golang.org/x/net/html"

	"listingscraper/internal/attrparse"
	"listingscraper/internal/model"
)

// ParseWholeBody parses rule values directly from root's entire subtree,
// skipping block-finding/grouping entirely. This is VdpScraper.py's fuzzy
// fallback pass (parse_blocks([tagged_soup], ...)), used when a detail
// page's primary block came back mostly empty.
func ParseWholeBody(idx *model.Index, ann model.AnnotationTable, root *html.Node, rules []model.AttributeRule) model.Block {
	return parseBlock(idx, ann, root, rules)
}

func parseBlocks(idx *model.Index, ann model.AnnotationTable, tags []*html.Node, rules []model.AttributeRule) []model.Block {
	var out []model.Block
	for _, tag := range tags {
		out = append(out, parseBlock(idx, ann, tag, rules))
	}
	return out
}

// parseBlock resolves every rule's value at tag's subtree, per
// parse_block: a rule with no matched values anywhere under tag takes its
// configured default, whether or not it's required — required-but-missing
// blocks were already excluded upstream by has_required_attributes gating
// which tags ever became block candidates.
func parseBlock(idx *model.Index, ann model.AnnotationTable, tag *html.Node, rules []model.AttributeRule) model.Block {
	values := make(map[string]any, len(rules))

	for _, rule := range rules {
		found := findAttributeValues(idx, ann, tag, rule.Name)
		if len(found) == 0 {
			values[rule.Name] = defaultValue(rule)
			continue
		}
		values[rule.Name] = coerce(rule, found)
	}

	i, _ := idx.Of(tag)
	alias, _ := values["alias"].(string)
	return model.Block{
		Tag:          tag,
		ScraperIndex: i,
		Values:       values,
		Alias:        alias,
	}
}

// findAttributeValues collects every value annotated for ruleName anywhere
// in tag's subtree (tag itself plus every descendant), preferring the
// primary set wholesale over the fallback set wholesale. Mirrors
// find_attribute_values/find_values.
func findAttributeValues(idx *model.Index, ann model.AnnotationTable, tag *html.Node, ruleName string) []string {
	var primary, fallback []string
	walkSubtree(tag, func(n *html.Node) {
		i, ok := idx.Of(n)
		if !ok {
			return
		}
		entry, ok := ann[i]
		if !ok {
			return
		}
		primary = append(primary, entry.Data[ruleName]...)
		fallback = append(fallback, entry.Fallback[ruleName]...)
	})
	if len(primary) > 0 {
		return primary
	}
	return fallback
}

func walkSubtree(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkSubtree(c, fn)
	}
}

// coerce converts the raw matched strings for one rule into its typed
// value. image_link resolution (fetch + hash) needs network access the
// block finder doesn't have, so the candidate URLs pass through unresolved
// for the scraper stage to resolve via attrparse.ResolveImageLink.
func coerce(rule model.AttributeRule, raw []string) any {
	switch rule.Type {
	case model.RuleFloat:
		v, ok := attrparse.ParseNumeric(raw, rule)
		if !ok {
			return defaultValue(rule)
		}
		return v
	case model.RuleInt:
		v, ok := attrparse.ParseNumeric(raw, rule)
		if !ok {
			return defaultValue(rule)
		}
		return int(v)
	case model.RuleDate:
		v, ok := attrparse.ParseDate(raw[0])
		if !ok {
			return defaultValue(rule)
		}
		return v
	case model.RuleImageLink:
		return raw
	case model.RuleLink:
		return raw[0]
	default:
		v, _ := attrparse.ParseText(raw)
		return v
	}
}

func defaultValue(rule model.AttributeRule) any {
	if rule.Default == "" {
		switch rule.Type {
		case model.RuleFloat:
			return 0.0
		case model.RuleInt:
			return 0
		case model.RuleImageLink:
			return []string(nil)
		default:
			return nil
		}
	}
	return rule.Default
}
