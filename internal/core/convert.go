package core

// convert.go provides cell conversion for downloaded reports.
//
// These functions handle the reality of exported CSV data:
//   - Numbers with surrounding whitespace or Excel formula prefixes (="12.5")
//   - Percentages with or without a trailing '%'
//   - Timestamps in ISO, slash, dotted, US and compact layouts
//
// Conversions report success with a bool; callers decide which error kind
// a failure becomes.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a plain decimal number after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TimestampLayout is the canonical display form of a collection time.
const TimestampLayout = "2006-01-02 15:04:05"

// timestampLayouts are tried in order. Month, day and hour accept one or
// two digits. Fractional seconds are accepted after the seconds field even
// when a layout does not name them.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-1-2T15:04:05Z07:00",
	"2006-1-2T15:04:05",
	"2006-1-2T15:04",
	"2006-1-2 15:04:05Z07:00",
	"2006-1-2 15:04:05 Z07:00",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006.1.2 15:04:05",
	"2006. 1. 2. 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"20060102150405",
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
}

// ParseNumber converts a cell to float64.
// Returns false for empty cells and anything that is not a plain decimal.
func ParseNumber(s string) (float64, bool) {
	s = CleanCell(s)
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePercent is ParseNumber that also tolerates a trailing '%'.
func ParsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(CleanCell(s))
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	return ParseNumber(s)
}

// FormatFixed2 renders v with exactly two fractional digits, correctly
// rounded from its binary value (12.345 -> "12.35", 12 -> "12.00").
func FormatFixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// TruncatePercent drops the fractional part of a percentage (87.9 -> 87).
// The result is not limited to 0-100, only to the int32 range.
func TruncatePercent(v float64) int {
	t := math.Trunc(v)
	switch {
	case t > math.MaxInt32:
		return math.MaxInt32
	case t < math.MinInt32:
		return math.MinInt32
	}
	return int(t)
}

// ParseTimestamp parses a cell using the accepted timestamp layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CanonicalTimestamp reformats a cell as YYYY-MM-DD HH:MM:SS.
// A parsed offset is kept: the wall time in that offset is printed.
func CanonicalTimestamp(s string) (string, bool) {
	t, ok := ParseTimestamp(s)
	if !ok {
		return "", false
	}
	return t.Format(TimestampLayout), true
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are cleaned and lowercased for case-insensitive matching.
// The first occurrence of a duplicated header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
//   - Trims whitespace
//   - Removes Excel formula prefix (="...")
//   - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
