package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDateString parses a YYYY-MM-DD string as midnight in Zone.
func ParseDateString(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats the civil date of t in Zone as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.In(Zone).Format(DateLayout)
}

// DaysBetween returns the number of civil days from a to b in Zone. It is
// negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return LocalDayNumber(b) - LocalDayNumber(a)
}

// StartOfDay returns midnight of the civil day of t in Zone.
func StartOfDay(t time.Time) time.Time {
	return DateInZone(LocalDayNumber(t))
}
