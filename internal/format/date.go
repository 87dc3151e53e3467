// Package format renders calendar dates as human-readable labels.
package format

import (
	"fmt"
	"time"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/models"
)

// ParseDate parses a strict YYYY-MM-DD key. Dates that do not exist
// on the calendar, such as 2026-02-30, are rejected.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("format: %q: %w", s, apperr.ErrInvalidDate)
	}
	return t, nil
}

// IsValidCalendarDate reports whether s names a real calendar date.
func IsValidCalendarDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// DateKey returns the plan key for t in t's own location.
func DateKey(t time.Time) string {
	return t.Format(models.DateLayout)
}

// DayDiff returns the whole number of calendar days from today to date.
// Both are reduced to their calendar day first, so clock time and
// daylight-saving shifts never affect the result.
func DayDiff(date, today time.Time) int {
	return int(midnight(date).Sub(midnight(today)).Hours() / 24)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RelativeLabel names date relative to today: "Today", "Tomorrow",
// "Yesterday", "N days ahead" or "N days ago".
func RelativeLabel(date, today time.Time, loc Locale) string {
	p := loc.phrases()
	switch diff := DayDiff(date, today); {
	case diff == 0:
		return p.today
	case diff == 1:
		return p.tomorrow
	case diff == -1:
		return p.yesterday
	case diff > 1:
		return fmt.Sprintf(p.ahead, diff)
	default:
		return fmt.Sprintf(p.ago, -diff)
	}
}

// LongDate renders the full calendar date, weekday included.
func LongDate(date time.Time, loc Locale) string {
	p := loc.phrases()
	return p.long(p, midnight(date))
}

// FormatRelativeDate renders the long date followed by the relative label,
// e.g. "Monday, October 19, 2026 (Today)".
func FormatRelativeDate(date, today time.Time, loc Locale) string {
	return fmt.Sprintf("%s (%s)", LongDate(date, loc), RelativeLabel(date, today, loc))
}

// FormatShortDate returns "Today" or "Tomorrow" when they apply and the
// long date otherwise.
func FormatShortDate(date, today time.Time, loc Locale) string {
	switch DayDiff(date, today) {
	case 0, 1:
		return RelativeLabel(date, today, loc)
	}
	return LongDate(date, loc)
}
