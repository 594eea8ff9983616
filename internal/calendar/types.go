package calendar

import (
	"fmt"
	"time"
)

// LunarDate is a date in the Vietnamese lunar calendar. It is a plain value:
// two LunarDates are equal when all four fields are equal, and it can be used
// as a map key.
type LunarDate struct {
	Year  int  `json:"year"`
	Month int  `json:"month"`
	Day   int  `json:"day"`
	Leap  bool `json:"is_leap_month"`
}

// String formats the date as D/M/Y, with an "N" prefix on leap months
// ("nhuận").
func (d LunarDate) String() string {
	if d.Leap {
		return fmt.Sprintf("%d/N%d/%d", d.Day, d.Month, d.Year)
	}
	return fmt.Sprintf("%d/%d/%d", d.Day, d.Month, d.Year)
}

// Compare orders lunar dates by year, month, leap ordinal and day. It returns
// -1, 0 or +1.
func (d LunarDate) Compare(o LunarDate) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(d.Month, o.Month)
	case d.Leap != o.Leap:
		if d.Leap {
			return 1
		}
		return -1
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// LunarMonth is one month of a lunar year.
type LunarMonth struct {
	Start int  `json:"start_jdn"` // day number of the first day (new moon day)
	Year  int  `json:"year"`      // lunar year the month belongs to
	Month int  `json:"month"`     // 1..12
	Leap  bool `json:"is_leap_month"`
	Days  int  `json:"days"` // 29 or 30
}

// StartDate returns the first day of the month at midnight in Zone.
func (m LunarMonth) StartDate() time.Time {
	return DateInZone(m.Start)
}

// contains reports whether day number jdn falls inside the month.
func (m LunarMonth) contains(jdn int) bool {
	return jdn >= m.Start && jdn < m.Start+m.Days
}

// LunarYear is the sequence of lunar months between the month-11 start of
// the previous solar year (inclusive) and the month-11 start of SolarYear
// (exclusive). It holds 12 months, or 13 when one of them is a leap month.
type LunarYear struct {
	SolarYear int          `json:"solar_year"`
	Months    []LunarMonth `json:"months"`
	// LeapIndex is the position of the leap month in Months, or -1.
	LeapIndex int `json:"leap_index"`
	// End is the day number of the next month 11, the first day after the
	// last month.
	End int `json:"end_jdn"`
}

// HasLeapMonth reports whether the year contains a leap month.
func (y *LunarYear) HasLeapMonth() bool {
	return y.LeapIndex >= 0
}

// LeapMonth returns the leap month, if any.
func (y *LunarYear) LeapMonth() (LunarMonth, bool) {
	if y.LeapIndex < 0 {
		return LunarMonth{}, false
	}
	return y.Months[y.LeapIndex], true
}

// find returns the month containing day number jdn.
func (y *LunarYear) find(jdn int) (LunarMonth, bool) {
	for _, m := range y.Months {
		if m.contains(jdn) {
			return m, true
		}
	}
	return LunarMonth{}, false
}

// lookup returns the month labelled (lunarYear, month, leap).
func (y *LunarYear) lookup(lunarYear, month int, leap bool) (LunarMonth, bool) {
	for _, m := range y.Months {
		if m.Year == lunarYear && m.Month == month && m.Leap == leap {
			return m, true
		}
	}
	return LunarMonth{}, false
}
