package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lichviet/amlich-api/internal/calendar"
)

// Converter is the part of *calendar.Converter the expander needs.
type Converter interface {
	SolarToLunar(t time.Time) (calendar.LunarDate, error)
	LunarToSolar(day, month, year int, leap bool) (time.Time, error)
}

// Occurrences returns the Gregorian dates, at midnight in calendar.Zone, on
// which rule falls between from and to inclusive.
//
// The series starts at master: dates before it never occur, and Interval and
// Count are counted from it rather than from the start of the window. Lunar
// days that do not exist in a given month (day 30 of a 29-day month) are
// skipped, not moved. A yearly rule without a month takes the master's lunar
// month.
func Occurrences(conv Converter, rule Rule, master, from, to time.Time) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("window end %s is before start %s",
			calendar.FormatDate(to), calendar.FormatDate(from))
	}

	masterDay := calendar.LocalDayNumber(master)
	endDay := calendar.LocalDayNumber(to)
	if rule.Until != nil {
		endDay = min(endDay, calendar.LocalDayNumber(*rule.Until))
	}
	if endDay < masterDay {
		return []time.Time{}, nil
	}

	first, err := conv.SolarToLunar(master)
	if err != nil {
		return nil, fmt.Errorf("master date: %w", err)
	}
	last, err := conv.SolarToLunar(calendar.DateInZone(endDay))
	if err != nil {
		return nil, fmt.Errorf("window end: %w", err)
	}

	if rule.Frequency == Yearly && rule.Month == 0 {
		rule.Month = first.Month
	}

	seen := make(map[int]struct{})
	var days []int
	for y := first.Year; y <= last.Year; y++ {
		for _, m := range rule.months() {
			hasLeap, err := hasLeapMonth(conv, m, y)
			if err != nil {
				return nil, err
			}
			for _, leap := range rule.leapVariants(hasLeap) {
				t, err := conv.LunarToSolar(rule.Day, m, y, leap)
				if errors.Is(err, calendar.ErrInvalidLunarDate) {
					continue
				}
				if err != nil {
					return nil, err
				}
				day := calendar.LocalDayNumber(t)
				if day < masterDay || day > endDay {
					continue
				}
				if _, ok := seen[day]; ok {
					continue
				}
				seen[day] = struct{}{}
				days = append(days, day)
			}
		}
	}
	slices.Sort(days)

	fromDay := calendar.LocalDayNumber(from)
	out := []time.Time{}
	n := 0
	for i, day := range days {
		if i%rule.Interval != 0 {
			continue
		}
		n++
		if rule.Count > 0 && n > rule.Count {
			break
		}
		if day < fromDay {
			continue
		}
		out = append(out, calendar.DateInZone(day))
	}
	return out, nil
}

// hasLeapMonth reports whether lunar year has a leap month numbered month.
func hasLeapMonth(conv Converter, month, year int) (bool, error) {
	_, err := conv.LunarToSolar(1, month, year, true)
	if errors.Is(err, calendar.ErrInvalidLunarDate) {
		return false, nil
	}
	return err == nil, err
}

// Next returns the first occurrence of rule on or after after, searching at
// most the following horizon. ok is false when there is none.
func Next(conv Converter, rule Rule, master, after time.Time, horizon time.Duration) (t time.Time, ok bool, err error) {
	occ, err := Occurrences(conv, rule, master, after, after.Add(horizon))
	if err != nil || len(occ) == 0 {
		return time.Time{}, false, err
	}
	return occ[0], true, nil
}
