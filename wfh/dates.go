package wfh

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day (the engine never needs finer granularity)
// =============================================================================

// Date is a calendar day, normalized to UTC midnight. Always construct
// through NewDate/DateOf/ParseDate so equality and map keys behave.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }
func (d Date) IsZero() bool           { return d.Time.IsZero() }

// Arithmetic. AddMonths uses calendar-month arithmetic (time.AddDate), not
// a fixed day count: two months before April 30 is February 28/29 territory
// per Go's normalization, which is the behavior the staleness rule wants.
func (d Date) AddDays(n int) Date   { return DateOf(d.Time.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.Time.AddDate(0, n, 0)) }

func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// DaysBetween returns to - from in whole days (negative if to is earlier).
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

// WithinDays reports whether d is within n days of ref, in either direction.
func (d Date) WithinDays(ref Date, n int) bool {
	diff := DaysBetween(d, ref)
	if diff < 0 {
		diff = -diff
	}
	return diff <= n
}

// =============================================================================
// RECURRENCE - Weekday selectors for recurring applies
// =============================================================================

// weekdayNames maps accepted tokens to weekdays. Full names and three-letter
// abbreviations are both accepted, case-insensitively.
var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// ParseRecurrenceDays parses a comma-separated weekday selector. Each token
// is either a weekday name ("monday", "Wed") or an integer with 0=Monday
// through 6=Sunday. Duplicates collapse. An empty selector is the caller's
// problem (MissingRecurrenceDays); a non-empty selector that fails to parse
// is an InvalidRecurrenceFormat.
func ParseRecurrenceDays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	seen := make(map[time.Weekday]bool)

	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		var wd time.Weekday
		if n, err := strconv.Atoi(token); err == nil {
			if n < 0 || n > 6 {
				return nil, &RecurrenceFormatError{Token: token}
			}
			// 0=Monday..6=Sunday, shifted from Go's 0=Sunday convention.
			wd = time.Weekday((n + 1) % 7)
		} else {
			var ok bool
			wd, ok = weekdayNames[strings.ToLower(token)]
			if !ok {
				return nil, &RecurrenceFormatError{Token: token}
			}
		}

		if !seen[wd] {
			seen[wd] = true
			days = append(days, wd)
		}
	}

	if len(days) == 0 {
		return nil, ErrMissingRecurrenceDays
	}
	return days, nil
}

// EnumerateWeekdays returns every date in [start, end] inclusive whose
// weekday is in days, in calendar order.
func EnumerateWeekdays(start, end Date, days []time.Weekday) []Date {
	match := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		match[d] = true
	}

	var dates []Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		if match[d.Weekday()] {
			dates = append(dates, d)
		}
	}
	return dates
}
