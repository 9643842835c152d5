// Package result implements the tagged-union replacement for the source's
// exceptions-as-control-flow (StopException, InsufficientRecordsException,
// LowFieldCountException), per SPEC_FULL.md §9. Every pipeline stage
// boundary (C1-C6) returns a Variant instead of throwing.
package result

import "listingscraper/internal/model"

// Kind discriminates a Variant.
type Kind int

const (
	Ok Kind = iota
	Transient
	ShapeAnomaly
	Terminal
)

// TerminalKind names which terminal condition occurred.
type TerminalKind string

const (
	InsufficientRecords TerminalKind = "InsufficientRecords"
	LowFieldCount       TerminalKind = "LowFieldCount"
	MissingConfiguration TerminalKind = "MissingConfiguration"
	NavigationFailure   TerminalKind = "NavigationFailure"
)

// Variant is a small tagged struct carrying exactly the fields relevant to
// its Kind. Callers switch on Kind before reading the other fields.
type Variant struct {
	Kind Kind

	Records []model.Record
	Message string

	Found, Expected int

	TerminalK TerminalKind
}

func OkResult(records []model.Record) Variant {
	return Variant{Kind: Ok, Records: records}
}

func TransientResult(message string) Variant {
	return Variant{Kind: Transient, Message: message}
}

func ShapeAnomalyResult(found, expected int) Variant {
	return Variant{Kind: ShapeAnomaly, Found: found, Expected: expected}
}

func TerminalResult(kind TerminalKind, message string) Variant {
	return Variant{Kind: Terminal, TerminalK: kind, Message: message}
}

// Success reports whether the variant represents a usable outcome; only Ok
// is success — ShapeAnomaly and Terminal both count as scheduler-visible
// failure, matching "return success=false to feed the retry backlog".
func (v Variant) Success() bool {
	return v.Kind == Ok
}
