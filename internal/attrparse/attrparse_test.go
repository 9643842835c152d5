package attrparse

import (
	"context"
	"errors"
	"testing"

	"listingscraper/internal/model"
)

func TestNumericValueNormalizesPricesAndMileages(t *testing.T) {
	cases := map[string]float64{
		"3,950 €":        3950,
		"2,470€":         2470,
		"12 700 €":       12700,
		"€26,950.00":     26950,
		"€1,250,950.00":  1250950,
		"€23 500":        23500,
		"137 km":         137,
		"100,7 km":       100.7,
		"2132km":         2132,
	}
	for raw, want := range cases {
		got := ConvertValues([]string{raw}, nil)
		if len(got) != 1 {
			t.Fatalf("%q: expected one converted value, got %v", raw, got)
		}
		if got[0] != want {
			t.Fatalf("%q: got %v, want %v", raw, got[0], want)
		}
	}
}

func TestConversionsApplyThousandMultiplier(t *testing.T) {
	conversions := []model.Conversion{{Regex: `thd`, Multiplier: 1000}}
	cases := map[string]float64{
		"12thd":     12000,
		"120 thd":   120000,
		"15.6thd":   15600,
	}
	for raw, want := range cases {
		got := ConvertValues([]string{raw}, conversions)
		if len(got) != 1 || got[0] != want {
			t.Fatalf("%q: got %v, want %v", raw, got, want)
		}
	}
}

func TestApplyConstraintsDiscardsAndPrioritizes(t *testing.T) {
	raw := []string{"3,950 €", "2,470€", "12 700 €"}
	values := ConvertValues(raw, nil)
	constraints := &model.Constraints{DiscardSmallerThan: "30%", PrioritizeNthBiggest: 2}

	got, ok := ApplyConstraints(values, constraints)
	if !ok {
		t.Fatalf("expected a surviving candidate")
	}
	// Largest is 12700; 30% of that is 3810, which discards 2470 but keeps
	// 3950 and 12700. The 2nd-biggest of what remains is 3950.
	if got != 3950 {
		t.Fatalf("got %v, want 3950", got)
	}
}

func TestApplyConstraintsFallsBackToLargestWhenRankMissing(t *testing.T) {
	values := []float64{100}
	got, ok := ApplyConstraints(values, &model.Constraints{PrioritizeNthBiggest: 5})
	if !ok || got != 100 {
		t.Fatalf("got %v, %v, want 100, true", got, ok)
	}
}

func TestParseDateFullTriple(t *testing.T) {
	got, ok := ParseDate("2021.05.17")
	if !ok || got != "2021-05-17" {
		t.Fatalf("got %q, %v, want 2021-05-17, true", got, ok)
	}
}

func TestParseDateMonthYear(t *testing.T) {
	got, ok := ParseDate("05/2021")
	if !ok || got != "2021-05-01" {
		t.Fatalf("got %q, %v, want 2021-05-01, true", got, ok)
	}
}

func TestParseDateYearOnly(t *testing.T) {
	got, ok := ParseDate("2021")
	if !ok || got != "2021-01-01" {
		t.Fatalf("got %q, %v, want 2021-01-01, true", got, ok)
	}
}

func TestParseDateNoYearIsNull(t *testing.T) {
	if _, ok := ParseDate("unknown"); ok {
		t.Fatalf("expected no date for a string with no 4-digit year")
	}
}

type fakeFetcher struct {
	bodies map[string][]byte
}

func (f fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	b, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func TestResolveImageLinkSkipsDefaultImage(t *testing.T) {
	placeholder := []byte("placeholder-bytes")
	real := []byte("real-photo-bytes")
	fetcher := fakeFetcher{bodies: map[string][]byte{
		"https://dealer.example/default.jpg": placeholder,
		"https://dealer.example/real.jpg":    real,
	}}
	defaults := map[string]bool{HashImage(placeholder): true}

	link, hash, ok := ResolveImageLink(context.Background(), fetcher,
		[]string{"https://dealer.example/default.jpg", "https://dealer.example/real.jpg"}, defaults)

	if !ok {
		t.Fatalf("expected a resolved image")
	}
	if link != "https://dealer.example/real.jpg" {
		t.Fatalf("got link %q, want the real photo", link)
	}
	if hash != HashImage(real) {
		t.Fatalf("hash mismatch")
	}
}

func TestResolveImageLinkAllDefaultYieldsNoImage(t *testing.T) {
	placeholder := []byte("placeholder-bytes")
	fetcher := fakeFetcher{bodies: map[string][]byte{
		"https://dealer.example/default.jpg": placeholder,
	}}
	defaults := map[string]bool{HashImage(placeholder): true}

	_, _, ok := ResolveImageLink(context.Background(), fetcher,
		[]string{"https://dealer.example/default.jpg"}, defaults)
	if ok {
		t.Fatalf("expected no image when every candidate is a placeholder")
	}
}
