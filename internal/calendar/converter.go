package calendar

import (
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of built lunar years kept by NewConverter
// unless WithCacheSize says otherwise.
const DefaultCacheSize = 256

// Converter converts between Gregorian and lunar dates. Its only state is an
// optional cache of built years, so a single Converter is safe for
// concurrent use and produces the same results with or without the cache.
type Converter struct {
	years  *lru.Cache[int, *LunarYear]
	strict bool
}

// Option configures a Converter.
type Option func(*converterOptions)

type converterOptions struct {
	cacheSize int
	strict    bool
}

// WithCacheSize sets how many built years are memoized. Zero disables the
// cache.
func WithCacheSize(n int) Option {
	return func(o *converterOptions) {
		o.cacheSize = n
	}
}

// WithStrictRange makes the converter reject years outside MinYear..MaxYear
// with a *RangeError instead of returning best-effort results.
func WithStrictRange() Option {
	return func(o *converterOptions) {
		o.strict = true
	}
}

// NewConverter creates a Converter.
func NewConverter(opts ...Option) *Converter {
	o := converterOptions{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Converter{strict: o.strict}
	if o.cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		c.years, _ = lru.New[int, *LunarYear](o.cacheSize)
	}
	return c
}

// Strict reports whether the converter rejects out-of-range years.
func (c *Converter) Strict() bool {
	return c.strict
}

// CacheLen returns the number of memoized years.
func (c *Converter) CacheLen() int {
	if c.years == nil {
		return 0
	}
	return c.years.Len()
}

func (c *Converter) checkRange(year int) error {
	if c.strict && !InSupportedRange(year) {
		return &RangeError{Year: year}
	}
	return nil
}

// MonthStarts returns the lunar months from the month 11 that starts in
// late solar year y-1 up to, but not including, the month 11 that starts in
// late solar year y.
func (c *Converter) MonthStarts(y int) (*LunarYear, error) {
	if err := c.checkRange(y); err != nil {
		return nil, err
	}
	ly, err := c.year(y)
	if err != nil {
		return nil, err
	}
	out := *ly
	out.Months = append([]LunarMonth(nil), ly.Months...)
	return &out, nil
}

// year returns the shared, possibly cached, table for solar year y. Callers
// must not modify it.
func (c *Converter) year(y int) (*LunarYear, error) {
	if c.years != nil {
		if ly, ok := c.years.Get(y); ok {
			return ly, nil
		}
	}
	ly, err := buildYear(y)
	if err != nil {
		return nil, err
	}
	if c.years != nil {
		c.years.Add(y, ly)
	}
	return ly, nil
}

// SolarToLunar converts the civil date of t (in Zone) to a lunar date.
func (c *Converter) SolarToLunar(t time.Time) (LunarDate, error) {
	y, m, d := t.In(Zone).Date()
	if err := c.checkRange(y); err != nil {
		return LunarDate{}, err
	}
	return c.dayToLunar(DayNumber(y, m, d), y)
}

// dayToLunar converts day number jdn, which falls in solar year y.
func (c *Converter) dayToLunar(jdn, y int) (LunarDate, error) {
	ly, err := c.year(y)
	if err != nil {
		return LunarDate{}, err
	}
	// Days from the new month 11 onward belong to next year's table; days
	// before this table's first month cannot happen for dates in year y but
	// are handled for safety.
	switch {
	case jdn >= ly.End:
		if ly, err = c.year(y + 1); err != nil {
			return LunarDate{}, err
		}
	case jdn < ly.Months[0].Start:
		if ly, err = c.year(y - 1); err != nil {
			return LunarDate{}, err
		}
	}
	month, ok := ly.find(jdn)
	if !ok {
		return LunarDate{}, &ComputationError{
			SolarYear: ly.SolarYear,
			Reason:    fmt.Sprintf("day %d not covered by any month", jdn),
		}
	}
	return LunarDate{
		Year:  month.Year,
		Month: month.Month,
		Day:   jdn - month.Start + 1,
		Leap:  month.Leap,
	}, nil
}

// LunarToSolar returns midnight, in Zone, of the Gregorian day matching the
// lunar date. It fails with a *LunarDateError if the date does not exist.
func (c *Converter) LunarToSolar(day, month, year int, leap bool) (time.Time, error) {
	jdn, err := c.lunarToDay(day, month, year, leap)
	if err != nil {
		return time.Time{}, err
	}
	return DateInZone(jdn), nil
}

func (c *Converter) lunarToDay(day, month, year int, leap bool) (int, error) {
	invalid := func(reason string) error {
		return &LunarDateError{Day: day, Month: month, Year: year, Leap: leap, Reason: reason}
	}
	if month < 1 || month > 12 {
		return 0, invalid("month must be between 1 and 12")
	}
	if day < 1 || day > 30 {
		return 0, invalid("day must be between 1 and 30")
	}
	if err := c.checkRange(year); err != nil {
		return 0, err
	}

	// Months 11 and 12 of lunar year Y start late in solar year Y and live in
	// the table of solar year Y+1.
	solarYear := year
	if month >= 11 {
		solarYear = year + 1
	}
	ly, err := c.year(solarYear)
	if err != nil {
		return 0, err
	}
	m, ok := ly.lookup(year, month, leap)
	if !ok {
		if leap {
			return 0, invalid("not the leap month of that year")
		}
		return 0, invalid("month does not exist")
	}
	if day > m.Days {
		return 0, invalid(fmt.Sprintf("month has only %d days", m.Days))
	}
	return m.Start + day - 1, nil
}

// month11 returns the start day and lunation index of the lunar month that
// contains the winter solstice of solar year y.
func month11(y int) (day, k int) {
	off := DayNumber(y, time.December, 31) - 2415021
	k = int(math.Floor(float64(off) / SynodicMonth))
	day = NewMoonDay(k)
	if sunIndexAtDay(day) >= 9 {
		k--
		day = NewMoonDay(k)
	}
	return day, k
}

// buildYear builds the month table for solar year y: the months between
// consecutive month-11 starts, with the leap month (if any) identified as
// the first month after month 11 that contains no major solar term.
func buildYear(y int) (*LunarYear, error) {
	fail := func(format string, args ...any) error {
		return &ComputationError{SolarYear: y, Reason: fmt.Sprintf(format, args...)}
	}

	_, kPrev := month11(y - 1)
	a11, kNext := month11(y)
	n := kNext - kPrev
	if n != 12 && n != 13 {
		return nil, fail("%d lunations between month-11 starts, want 12 or 13", n)
	}

	starts := make([]int, n+1)
	for i := 0; i <= n; i++ {
		starts[i] = NewMoonDay(kPrev + i)
	}

	leapIdx := -1
	if n == 13 {
		for i := 1; i < n; i++ {
			if sunIndexAtDay(starts[i]) == sunIndexAtDay(starts[i+1]) {
				leapIdx = i
				break
			}
		}
		if leapIdx < 0 {
			return nil, fail("13 months but none lacks a major solar term")
		}
	}

	months := make([]LunarMonth, n)
	for i := 0; i < n; i++ {
		days := starts[i+1] - starts[i]
		if days != 29 && days != 30 {
			return nil, fail("month at day %d has %d days", starts[i], days)
		}
		num := 11 + i
		if leapIdx >= 0 && i >= leapIdx {
			num--
		}
		label := mod(num-1, 12) + 1
		lunarYear := y
		if label >= 11 && i < 4 {
			lunarYear = y - 1
		}
		months[i] = LunarMonth{
			Start: starts[i],
			Year:  lunarYear,
			Month: label,
			Leap:  i == leapIdx,
			Days:  days,
		}
	}

	return &LunarYear{
		SolarYear: y,
		Months:    months,
		LeapIndex: leapIdx,
		End:       a11,
	}, nil
}

var defaultConverter = NewConverter()

// Default returns the package-level converter used by the top-level
// functions. It caches DefaultCacheSize years and is not strict.
func Default() *Converter {
	return defaultConverter
}

// SolarToLunar converts t with the default converter.
func SolarToLunar(t time.Time) (LunarDate, error) {
	return defaultConverter.SolarToLunar(t)
}

// LunarToSolar converts a lunar date with the default converter.
func LunarToSolar(day, month, year int, leap bool) (time.Time, error) {
	return defaultConverter.LunarToSolar(day, month, year, leap)
}

// MonthStarts builds the month table of solar year y with the default
// converter.
func MonthStarts(y int) (*LunarYear, error) {
	return defaultConverter.MonthStarts(y)
}
