package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Package dateparse canonicalizes the date and time spellings found in
// solar plant exports. Meter sheets carry DD-MM-YYYY dates, weather sheets
// carry DD-MMM-YY, and ISO YYYY-MM-DD appears as a bridging form. All
// functions are pure; unparseable input passes through unchanged so the
// validators can report it instead.

var monthAbbrevs = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

var monthByName = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Parse attempts to interpret s as a calendar date in any accepted form:
// DD-MM-YYYY, DD-MMM-YY, DD/Mon/YY, DD/MM/YYYY or YYYY-MM-DD, with 1- or
// 2-digit day and month segments and case-insensitive 3-letter month
// names. A 2-digit year maps to 20YY.
func Parse(s string) (time.Time, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	parts := strings.Split(cleaned, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	var day, year int
	var month time.Month

	if len(parts[0]) == 4 && isDigits(parts[0]) {
		// ISO: year leads
		y, errY := strconv.Atoi(parts[0])
		m, okM := parseMonthSegment(parts[1])
		d, errD := strconv.Atoi(parts[2])
		if errY != nil || !okM || errD != nil {
			return time.Time{}, false
		}
		year, month, day = y, m, d
	} else {
		d, errD := strconv.Atoi(parts[0])
		m, okM := parseMonthSegment(parts[1])
		y, okY := parseYearSegment(parts[2])
		if errD != nil || !okM || !okY {
			return time.Time{}, false
		}
		year, month, day = y, m, d
	}

	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. 31-Feb becomes 2-Mar); reject it
	if t.Day() != day || t.Month() != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// ToMeterDate canonicalizes s into the meter dialect DD-MM-YYYY.
func ToMeterDate(s string) string {
	t, ok := Parse(s)
	if !ok {
		return s
	}
	return fmt.Sprintf("%02d-%02d-%04d", t.Day(), int(t.Month()), t.Year())
}

// ToWeatherDate canonicalizes s into the weather dialect DD-MMM-YY.
func ToWeatherDate(s string) string {
	t, ok := Parse(s)
	if !ok {
		return s
	}
	return fmt.Sprintf("%02d-%s-%02d", t.Day(), monthAbbrevs[int(t.Month())-1], t.Year()%100)
}

// ToISODate canonicalizes s into YYYY-MM-DD.
func ToISODate(s string) string {
	t, ok := Parse(s)
	if !ok {
		return s
	}
	return t.Format("2006-01-02")
}

// DateVariants returns every equivalent spelling of s across the meter,
// weather and ISO dialects, deduplicated, in that order. Correlation
// between the two data streams must go through these variants; comparing
// dialect strings directly never matches. Unparseable input yields just s.
func DateVariants(s string) []string {
	if _, ok := Parse(s); !ok {
		return []string{s}
	}

	variants := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for _, v := range []string{ToMeterDate(s), ToWeatherDate(s), ToISODate(s)} {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
	}
	return variants
}

// NormalizeTime collapses H:MM, HH:MM and HH:MM:SS into zero-padded HH:MM,
// dropping seconds. Anything else passes through unchanged.
func NormalizeTime(s string) string {
	h, m, ok := splitClock(strings.TrimSpace(s))
	if !ok {
		return s
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// MinutesOfDay converts a normalized or loose clock string into minutes
// since midnight.
func MinutesOfDay(s string) (int, bool) {
	h, m, ok := splitClock(strings.TrimSpace(s))
	if !ok {
		return 0, false
	}
	return h*60 + m, true
}

// FormatMinutes renders a minutes-since-midnight value as HH:MM.
func FormatMinutes(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func splitClock(s string) (hour, minute int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, false
	}
	if len(parts[0]) < 1 || len(parts[0]) > 2 || !isDigits(parts[0]) {
		return 0, 0, false
	}
	if len(parts[1]) != 2 || !isDigits(parts[1]) {
		return 0, 0, false
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	if h > 23 || m > 59 {
		return 0, 0, false
	}
	if len(parts) == 3 {
		if len(parts[2]) != 2 || !isDigits(parts[2]) {
			return 0, 0, false
		}
		sec, _ := strconv.Atoi(parts[2])
		if sec > 59 {
			return 0, 0, false
		}
	}
	return h, m, true
}

func parseMonthSegment(s string) (time.Month, bool) {
	if isDigits(s) && len(s) <= 2 {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			return 0, false
		}
		return time.Month(m), true
	}
	m, ok := monthByName[strings.ToLower(s)]
	return m, ok
}

func parseYearSegment(s string) (int, bool) {
	if !isDigits(s) {
		return 0, false
	}
	switch len(s) {
	case 2:
		y, _ := strconv.Atoi(s)
		return 2000 + y, true
	case 4:
		y, _ := strconv.Atoi(s)
		return y, true
	default:
		return 0, false
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
