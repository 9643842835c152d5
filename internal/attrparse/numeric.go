// Package attrparse implements AttributeParser: coercion of raw matched
// strings into typed rule values (text/float/int/link/date/image_link) and
// the constraint narrowing applied to numeric candidates. Grounded on
// original_source/.../element_finder/AttributeParser.py.
package attrparse

import (
	"regexp"
	"strconv"
	"strings"

	"listingscraper/internal/model"
)

var (
	trailingDecimalCommaRe = regexp.MustCompile(`,(\d{1,2})\b`)
	thousandSeparatorRe    = regexp.MustCompile(`[,.](\d{3})`)
	nonNumericRe           = regexp.MustCompile(`[^\d.]`)
)

// numericValue implements the three-step normalization in spec.md §4.3
// "float/int": (a) a trailing ,\d{1,2} becomes a decimal point, (b)
// thousand-separator commas/periods before a 3-digit group are dropped,
// (c) anything left that isn't a digit or '.' is stripped.
func numericValue(raw string) string {
	s := trailingDecimalCommaRe.ReplaceAllString(raw, ".$1")
	s = thousandSeparatorRe.ReplaceAllString(s, "$1")
	s = nonNumericRe.ReplaceAllString(s, "")
	return s
}

// conversionFor returns the multiplier for the first conversion whose Regex
// matches raw, or 1 if none match / none configured.
func conversionFor(raw string, conversions []model.Conversion) float64 {
	for _, c := range conversions {
		re, err := regexp.Compile(c.Regex)
		if err != nil {
			continue
		}
		if re.MatchString(raw) {
			if c.Multiplier == 0 {
				return 1
			}
			return c.Multiplier
		}
	}
	return 1
}

// ConvertValues turns every raw candidate into its scaled numeric value,
// skipping any candidate whose digits don't parse at all.
func ConvertValues(raw []string, conversions []model.Conversion) []float64 {
	out := make([]float64, 0, len(raw))
	for _, r := range raw {
		digits := numericValue(r)
		if digits == "" || digits == "." {
			continue
		}
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		out = append(out, v*conversionFor(r, conversions))
	}
	return out
}

// ApplyConstraints narrows candidates per spec.md §4.3: discardSmallerThan
// first (absolute or "N%" of the largest candidate), then
// prioritizeNthBiggest (1-indexed rank, falling back to the largest
// remaining when the rank doesn't exist).
func ApplyConstraints(candidates []float64, constraints *model.Constraints) (float64, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	values := append([]float64(nil), candidates...)

	if constraints != nil && constraints.DiscardSmallerThan != "" {
		values = discardSmallerThan(values, constraints.DiscardSmallerThan)
	}
	if len(values) == 0 {
		return 0, false
	}

	sortDescending(values)

	if constraints != nil && constraints.PrioritizeNthBiggest > 0 {
		rank := constraints.PrioritizeNthBiggest
		if rank <= len(values) {
			return values[rank-1], true
		}
	}
	return values[0], true
}

func discardSmallerThan(values []float64, spec string) []float64 {
	spec = strings.TrimSpace(spec)
	var threshold float64
	if strings.HasSuffix(spec, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(spec, "%"), 64)
		if err != nil {
			return values
		}
		largest := values[0]
		for _, v := range values {
			if v > largest {
				largest = v
			}
		}
		threshold = largest * pct / 100
	} else {
		v, err := strconv.ParseFloat(spec, 64)
		if err != nil {
			return values
		}
		threshold = v
	}

	out := values[:0]
	for _, v := range values {
		if v >= threshold {
			out = append(out, v)
		}
	}
	return out
}

func sortDescending(values []float64) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j] > values[j-1]; j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}
