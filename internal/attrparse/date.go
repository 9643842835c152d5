package attrparse

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	dateYMDRe   = regexp.MustCompile(`(\d{4})[./-](\d{1,2})[./-](\d{1,2})`)
	dateMYRe    = regexp.MustCompile(`(\d{1,2})[./-](\d{4})`)
	dateYearRe  = regexp.MustCompile(`\d{4}`)
)

// ParseDate extracts a date from raw per spec.md §4.3 "date": a full
// year-month-day triple, a month/year pair (day defaults to 1), or a bare
// year (month and day default to 1). Returns ok=false when no 4-digit year
// is present anywhere in raw.
func ParseDate(raw string) (string, bool) {
	if m := dateYMDRe.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return formatDate(year, month, day), true
		}
	}
	if m := dateMYRe.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			return formatDate(year, month, 1), true
		}
	}
	if m := dateYearRe.FindString(raw); m != "" {
		year, _ := strconv.Atoi(m)
		return formatDate(year, 1, 1), true
	}
	return "", false
}

func formatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
