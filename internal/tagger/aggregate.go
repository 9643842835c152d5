package tagger

import (
	"regexp"
	"strings"

	"listingscraper/internal/model"
)

var placeholderRe = regexp.MustCompile(`\$([A-Z0-9_]+)\$`)

// applyAggregate substitutes nested $NAME$ placeholders inside an already
// collected annotation with the value previously annotated for that name
// at the same tag, per spec.md §4.2 "Aggregate". Aggregate rules are
// expected to run after the rules they reference, per §4.2's ordering note.
func applyAggregate(ann model.AnnotationTable, rule model.AttributeRule) {
	for _, entry := range ann {
		entry.Data[rule.Name] = substitutePlaceholders(entry, entry.Data[rule.Name])
		entry.Fallback[rule.Name] = substitutePlaceholders(entry, entry.Fallback[rule.Name])
	}
}

func substitutePlaceholders(entry *model.TagAnnotations, values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = placeholderRe.ReplaceAllStringFunc(v, func(token string) string {
			name := strings.ToLower(strings.Trim(token, "$"))
			if vals, ok := entry.Data[name]; ok && len(vals) > 0 {
				return vals[0]
			}
			if vals, ok := entry.Fallback[name]; ok && len(vals) > 0 {
				return vals[0]
			}
			return token
		})
	}
	return out
}
