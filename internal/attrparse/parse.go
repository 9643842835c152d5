package attrparse

import "listingscraper/internal/model"

// ParseNumeric converts every raw candidate to its scaled numeric value and
// applies the rule's constraints, returning the single chosen value. ok is
// false when no candidate survives conversion or discardSmallerThan.
func ParseNumeric(raw []string, rule model.AttributeRule) (float64, bool) {
	values := ConvertValues(raw, rule.Conversions)
	return ApplyConstraints(values, rule.Constraints)
}

// ParseText returns the first candidate verbatim. Filters, prefixes and
// translations are applied earlier, by the tagger, so this is a pass-through
// kept for symmetry with the numeric/date entry points.
func ParseText(raw []string) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	return raw[0], true
}
