package pagination

import "strings"

var onesWords = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen",
}

var tensWords = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
}

// numberWords spells out n in English for the page numbers a translated
// paginator might render as words instead of digits (spec.md §4.4 notes
// Google Translate sometimes does this). Only covers 0-999: page numbers
// never realistically exceed that range.
func numberWords(n int) string {
	if n < 0 {
		return ""
	}
	if n < 20 {
		return onesWords[n]
	}
	if n < 100 {
		tens := tensWords[n/10]
		if n%10 == 0 {
			return tens
		}
		return tens + "-" + onesWords[n%10]
	}
	hundreds := onesWords[n/100] + " hundred"
	if n%100 == 0 {
		return hundreds
	}
	return hundreds + " " + numberWords(n%100)
}

// looksLikeNumberWords reports whether text, once hyphens/whitespace are
// collapsed, matches number spelled out as words — case-insensitively and
// tolerant of "twenty one" vs "twenty-one".
func looksLikeNumberWords(text string, n int) bool {
	normalize := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		s = strings.ReplaceAll(s, "-", " ")
		return strings.Join(strings.Fields(s), " ")
	}
	return normalize(text) == normalize(numberWords(n))
}

// LooksLikeNumberWords exports the word-form page-number matcher for other
// pagination-following code (the static scraper's plain <a href> follower)
// that needs the same translated-label tolerance without its own copy of
// the number-word table.
func LooksLikeNumberWords(text string, n int) bool {
	return looksLikeNumberWords(text, n)
}
