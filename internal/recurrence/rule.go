// Package recurrence expands events that repeat on a lunar date, such as
// death anniversaries (giỗ) or the first and fifteenth of each lunar month,
// into Gregorian dates.
package recurrence

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lichviet/amlich-api/internal/calendar"
)

// Frequency is how often a rule repeats.
type Frequency string

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// LeapPolicy says how a rule treats leap months.
type LeapPolicy string

const (
	// LeapInclude repeats in the leap month as well as the regular one.
	LeapInclude LeapPolicy = "include"
	// LeapSkip ignores leap months.
	LeapSkip LeapPolicy = "skip"
	// LeapOnly uses the leap month instead of the regular one in years
	// that have it, and the regular month otherwise.
	LeapOnly LeapPolicy = "only"
)

// ErrInvalidRule is wrapped by every Validate failure.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Rule describes a lunar recurrence. A yearly rule with no Month repeats in
// the lunar month of its master date; monthly rules ignore Month. Count and
// Until are optional limits; zero means unbounded. Until travels as a
// YYYY-MM-DD date in JSON.
type Rule struct {
	Frequency Frequency  `json:"frequency"`
	Day       int        `json:"day"`
	Month     int        `json:"month,omitempty"`
	Leap      LeapPolicy `json:"leap"`
	Interval  int        `json:"interval"`
	Count     int        `json:"count,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
}

// YearlyOn returns a rule repeating every lunar year on day/month, skipping
// leap months.
func YearlyOn(day, month int) Rule {
	return Rule{Frequency: Yearly, Day: day, Month: month, Leap: LeapSkip, Interval: 1}
}

// MonthlyOn returns a rule repeating on the given day of every lunar month,
// leap months included.
func MonthlyOn(day int) Rule {
	return Rule{Frequency: Monthly, Day: day, Leap: LeapInclude, Interval: 1}
}

// Validate checks the rule fields.
func (r Rule) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidRule, fmt.Sprintf(format, args...))
	}

	switch r.Frequency {
	case Monthly:
		if r.Month != 0 && (r.Month < 1 || r.Month > 12) {
			return invalid("month must be between 1 and 12, got %d", r.Month)
		}
	case Yearly:
		if r.Month < 0 || r.Month > 12 {
			return invalid("month must be between 1 and 12, got %d", r.Month)
		}
	default:
		return invalid("unknown frequency %q", r.Frequency)
	}

	if r.Day < 1 || r.Day > 30 {
		return invalid("day must be between 1 and 30, got %d", r.Day)
	}

	switch r.Leap {
	case LeapInclude, LeapSkip, LeapOnly:
	default:
		return invalid("unknown leap policy %q", r.Leap)
	}

	if r.Interval < 1 {
		return invalid("interval must be at least 1, got %d", r.Interval)
	}
	if r.Count < 0 {
		return invalid("count must not be negative, got %d", r.Count)
	}
	return nil
}

// months returns the month numbers the rule visits in a year.
func (r Rule) months() []int {
	if r.Frequency == Yearly {
		return []int{r.Month}
	}
	all := make([]int, 12)
	for i := range all {
		all[i] = i + 1
	}
	return all
}

// MarshalJSON writes Until as a YYYY-MM-DD date.
func (r Rule) MarshalJSON() ([]byte, error) {
	type plain Rule
	out := struct {
		plain
		Until string `json:"until,omitempty"`
	}{plain: plain(r)}
	if r.Until != nil {
		out.Until = calendar.FormatDate(*r.Until)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads Until as a YYYY-MM-DD date. An RFC 3339 timestamp is
// also accepted and truncated to its civil day in calendar.Zone.
func (r *Rule) UnmarshalJSON(b []byte) error {
	type plain Rule
	in := struct {
		*plain
		Until *string `json:"until"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	r.Until = nil
	if in.Until == nil || *in.Until == "" {
		return nil
	}
	t, err := calendar.ParseDateString(*in.Until)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, *in.Until)
		if tsErr != nil {
			return fmt.Errorf("%w: until %q is not a YYYY-MM-DD date", ErrInvalidRule, *in.Until)
		}
		t = calendar.StartOfDay(ts)
	}
	r.Until = &t
	return nil
}

// leapVariants returns which of the regular and leap instances of a month to
// try. hasLeap reports whether the month has a leap twin that year.
func (r Rule) leapVariants(hasLeap bool) []bool {
	switch {
	case !hasLeap || r.Leap == LeapSkip:
		return []bool{false}
	case r.Leap == LeapOnly:
		return []bool{true}
	default:
		return []bool{false, true}
	}
}
