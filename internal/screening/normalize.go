package screening

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// separators matches whitespace and the punctuation that extraction output
// sprinkles inconsistently through identifiers.
var separators = regexp.MustCompile(`[\pZ\s\-_,.'/\\]+`)

// NormalizeText lower-cases s and strips whitespace and separator punctuation so
// that "INV-1002", "inv 1002" and "INV/1002" compare equal.
func NormalizeText(s string) string {
	return strings.TrimSpace(separators.ReplaceAllString(strings.ToLower(s), ""))
}

// dateLayouts is tried in order. Day-first layouts come before ISO, so an
// ambiguous "03-04-2025" is always read as 3 April 2025.
var dateLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2006-1-2",
	"2.1.2006",
}

// isoLayouts is the fallback for ISO-8601 timestamps.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"20060102",
}

// ParseDate reads an invoice date. It returns the calendar date at midnight UTC
// and false when no known layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil(t), true
		}
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil(t), true
		}
	}
	return time.Time{}, false
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateDiffDays returns the absolute number of days between two invoice dates,
// or NaN when either date cannot be parsed. NaN means unknown, never zero.
func DateDiffDays(a, b string) float64 {
	da, ok := ParseDate(a)
	if !ok {
		return math.NaN()
	}
	db, ok := ParseDate(b)
	if !ok {
		return math.NaN()
	}
	return math.Abs(float64(daysBetween(db, da)))
}

// daysBetween returns the signed whole days from "from" to "to".
func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// canonicalDate renders a parseable date as YYYY-MM-DD and leaves anything else trimmed as-is.
func canonicalDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return strings.TrimSpace(s)
}
