// Package model holds the data types shared across the extraction pipeline:
// attribute rules, annotated tags, blocks, tasks, batches and the output
// record shape. None of these types carry behavior that belongs to a single
// pipeline stage; they are the nouns C1-C7 pass between each other.
package model

// RuleType selects how a matched raw string is coerced into a typed value.
type RuleType string

const (
	RuleText       RuleType = "text"
	RuleFloat      RuleType = "float"
	RuleInt        RuleType = "int"
	RuleLink       RuleType = "link"
	RuleDate       RuleType = "date"
	RuleImageLink  RuleType = "image_link"
)

// Conversion scales a numeric candidate when its text matches Regex, e.g.
// "thd" meaning thousands.
type Conversion struct {
	Regex      string  `yaml:"regex" json:"regex"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// Constraints narrows a list of numeric candidates down to one value.
type Constraints struct {
	// DiscardSmallerThan is either a bare number ("500") or a percentage of
	// the largest candidate ("30%").
	DiscardSmallerThan string `yaml:"discardSmallerThan,omitempty" json:"discardSmallerThan,omitempty"`
	// PrioritizeNthBiggest is 1-indexed; 1 means the largest candidate.
	PrioritizeNthBiggest int `yaml:"prioritizeNthBiggest,omitempty" json:"prioritizeNthBiggest,omitempty"`
}

// AttributeRule is a declarative matcher for one output field. Exactly one
// of Examples, Regex, or TableSourced should be set as the match source.
type AttributeRule struct {
	Name            string   `yaml:"name" json:"name"`
	Type            RuleType `yaml:"type" json:"type"`
	Required        bool     `yaml:"required,omitempty" json:"required,omitempty"`
	IsAntiAttribute bool     `yaml:"isAntiAttribute,omitempty" json:"isAntiAttribute,omitempty"`
	Fallback        bool     `yaml:"fallback,omitempty" json:"fallback,omitempty"`

	Examples    []string `yaml:"examples,omitempty" json:"examples,omitempty"`
	Regex       string   `yaml:"regex,omitempty" json:"regex,omitempty"`
	TableSourced string  `yaml:"tableSourced,omitempty" json:"tableSourced,omitempty"`

	Text           bool   `yaml:"text,omitempty" json:"text,omitempty"`
	Attribute      bool   `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	AttributeRegex string `yaml:"attributeRegex,omitempty" json:"attributeRegex,omitempty"`

	IgnoreCase      bool              `yaml:"ignoreCase,omitempty" json:"ignoreCase,omitempty"`
	Exclusive       bool              `yaml:"exclusive,omitempty" json:"exclusive,omitempty"`
	Labeled         bool              `yaml:"labeled,omitempty" json:"labeled,omitempty"`
	Labels          []string          `yaml:"labels,omitempty" json:"labels,omitempty"`
	FilterRegex     string            `yaml:"filterRegex,omitempty" json:"filterRegex,omitempty"`
	Prefix          string            `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	ReorderExamples bool              `yaml:"reorderExamples,omitempty" json:"reorderExamples,omitempty"`
	ReplaceSimilar  bool              `yaml:"replaceSimilar,omitempty" json:"replaceSimilar,omitempty"`
	Aggregate       bool              `yaml:"aggregate,omitempty" json:"aggregate,omitempty"`
	Translations    map[string]string `yaml:"translations,omitempty" json:"translations,omitempty"`
	Conversions     []Conversion      `yaml:"conversions,omitempty" json:"conversions,omitempty"`
	Constraints     *Constraints      `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Default         string            `yaml:"default,omitempty" json:"default,omitempty"`

	// MaxLabelDistance bounds how many ancestors a Labeled match may walk
	// looking for one of Labels. Zero means "use the package default".
	MaxLabelDistance int `yaml:"maxLabelDistance,omitempty" json:"maxLabelDistance,omitempty"`
}

// LabelRuleName is the synthetic rule name tagging label occurrences for a
// Labeled rule, per spec.md §4.2 "Labeled-only helper rule".
func (r AttributeRule) LabelRuleName() string {
	return r.Name + "_label"
}
