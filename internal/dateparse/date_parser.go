// Package dateparse turns free-form date expressions from standup answers
// ("tomorrow", "next tue", "15/02/2026") into calendar dates. Parsing never
// fails: unrecognized input is preserved verbatim with an empty ISO value.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParsedDate is the result of parsing a date expression. Raw always holds the
// original input untouched. ISO is the resolved date in YYYY-MM-DD form, or
// empty when the input was a nil sentinel or could not be parsed.
type ParsedDate struct {
	Raw string `json:"raw"`
	ISO string `json:"iso"`
}

// IsNil reports whether no concrete date was resolved.
func (p ParsedDate) IsNil() bool {
	return p.ISO == ""
}

// Display renders the date for reports: the raw input when no date was
// resolved, otherwise the resolved date spelled out in full.
func (p ParsedDate) Display() string {
	if p.ISO == "" {
		if p.Raw == "" {
			return "Nil"
		}
		return p.Raw
	}
	t, err := time.Parse("2006-01-02", p.ISO)
	if err != nil {
		return p.Raw
	}
	return t.Format("Monday, January 2, 2006")
}

var (
	relativeRe = regexp.MustCompile(`^(next|this)\s+(\w+)$`)
	isoRe      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dmyRe      = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
)

var weekdays = map[string]int{
	"monday": 1, "tuesday": 2, "wednesday": 3, "thursday": 4,
	"friday": 5, "saturday": 6, "sunday": 7,
	"mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6, "sun": 7,
}

// Parse resolves a date expression against the current time in the given
// IANA timezone. See ParseAt for the recognized forms.
func Parse(input, timezone string) ParsedDate {
	return ParseAt(input, timezone, time.Now())
}

// ParseAt resolves a date expression against a caller-supplied instant.
// Recognized forms, first match wins:
//
//	nil sentinels ("nil", "n/a", "")
//	"today", "tomorrow", "next week"
//	"next <weekday>" / "this <weekday>" (full or 3-letter English names)
//	YYYY-MM-DD
//	DD/MM/YYYY and DD-MM-YYYY (day-first; best-effort for ambiguous input)
func ParseAt(input, timezone string, at time.Time) ParsedDate {
	trimmed := strings.ToLower(strings.TrimSpace(input))

	if trimmed == "nil" || trimmed == "n/a" || trimmed == "" {
		return ParsedDate{Raw: input}
	}

	now := at.In(location(timezone))

	switch trimmed {
	case "today":
		return ParsedDate{Raw: input, ISO: isoDate(now)}
	case "tomorrow":
		return ParsedDate{Raw: input, ISO: isoDate(now.AddDate(0, 0, 1))}
	case "next week":
		return ParsedDate{Raw: input, ISO: isoDate(now.AddDate(0, 0, 7))}
	}

	if m := relativeRe.FindStringSubmatch(trimmed); m != nil {
		if target, ok := weekdays[m[2]]; ok {
			current := isoWeekday(now)
			var daysUntil int
			if m[1] == "next" {
				// "next X" always lands at least a full week out.
				daysUntil = (target-current+7)%7 + 7
			} else {
				// "this X" lands within the coming week and never today.
				daysUntil = (target - current + 7) % 7
				if daysUntil == 0 {
					daysUntil = 7
				}
			}
			return ParsedDate{Raw: input, ISO: isoDate(now.AddDate(0, 0, daysUntil))}
		}
	}

	if m := isoRe.FindStringSubmatch(trimmed); m != nil {
		if iso, ok := buildDate(m[1], m[2], m[3]); ok {
			return ParsedDate{Raw: input, ISO: iso}
		}
	}

	// Day-first for slash/dash dates. When both leading groups are <= 12 the
	// input is genuinely ambiguous and the day-first reading is best-effort.
	if m := dmyRe.FindStringSubmatch(trimmed); m != nil {
		if iso, ok := buildDate(m[3], m[2], m[1]); ok {
			return ParsedDate{Raw: input, ISO: iso}
		}
	}

	return ParsedDate{Raw: input}
}

func location(timezone string) *time.Location {
	if timezone == "" || strings.EqualFold(timezone, "utc") {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func isoDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// isoWeekday maps Go's Sunday-based weekday to ISO numbering (Mon=1..Sun=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// buildDate validates the components as a real calendar date.
func buildDate(year, month, day string) (string, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}
