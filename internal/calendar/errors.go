package calendar

import (
	"errors"
	"fmt"
)

// Supported Gregorian year window. The truncated astronomical series lose
// accuracy outside it; results there are best-effort.
const (
	MinYear = 1800
	MaxYear = 2100
)

var (
	// ErrInvalidLunarDate is returned for a lunar date that does not exist.
	ErrInvalidLunarDate = errors.New("invalid lunar date")

	// ErrOutOfRange is returned by strict converters for years outside
	// MinYear..MaxYear.
	ErrOutOfRange = errors.New("year outside supported range")

	// ErrComputation signals an internal invariant violation in the year
	// builder. It indicates a coefficient bug and must not be ignored.
	ErrComputation = errors.New("lunar calendar computation error")
)

// LunarDateError describes a rejected lunar date.
type LunarDateError struct {
	Day, Month, Year int
	Leap             bool
	Reason           string
}

func (e *LunarDateError) Error() string {
	leap := ""
	if e.Leap {
		leap = " (leap)"
	}
	return fmt.Sprintf("lunar date %d/%d%s/%d: %s", e.Day, e.Month, leap, e.Year, e.Reason)
}

func (e *LunarDateError) Unwrap() error { return ErrInvalidLunarDate }

// RangeError reports a year outside MinYear..MaxYear.
type RangeError struct {
	Year int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("year %d outside supported range %d-%d", e.Year, MinYear, MaxYear)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// ComputationError reports a year whose months could not be partitioned.
type ComputationError struct {
	SolarYear int
	Reason    string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("solar year %d: %s", e.SolarYear, e.Reason)
}

func (e *ComputationError) Unwrap() error { return ErrComputation }

// InSupportedRange reports whether year lies in MinYear..MaxYear.
func InSupportedRange(year int) bool {
	return year >= MinYear && year <= MaxYear
}
