package calendar

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, Zone)
}

func TestSolarToLunar_Known(t *testing.T) {
	tests := []struct {
		name  string
		solar time.Time
		want  LunarDate
	}{
		{"Tet 2024", date(2024, time.February, 10), LunarDate{Year: 2024, Month: 1, Day: 1}},
		{"Tet 2025", date(2025, time.January, 29), LunarDate{Year: 2025, Month: 1, Day: 1}},
		{"Tet 2026", date(2026, time.February, 17), LunarDate{Year: 2026, Month: 1, Day: 1}},
		{"Tet 2023", date(2023, time.January, 22), LunarDate{Year: 2023, Month: 1, Day: 1}},
		{"Tet 2000", date(2000, time.February, 5), LunarDate{Year: 2000, Month: 1, Day: 1}},
		{"Tet 1985 in UTC+7", date(1985, time.January, 21), LunarDate{Year: 1985, Month: 1, Day: 1}},
		{"Tet 2007 in UTC+7", date(2007, time.February, 17), LunarDate{Year: 2007, Month: 1, Day: 1}},
		{"Mid-autumn 2024", date(2024, time.September, 17), LunarDate{Year: 2024, Month: 8, Day: 15}},
		{"Eve of Tet 2025", date(2025, time.January, 28), LunarDate{Year: 2024, Month: 12, Day: 29}},
		{"Month 11 of 2024", date(2024, time.December, 1), LunarDate{Year: 2024, Month: 11, Day: 1}},
		{"Month 12 of 2024", date(2024, time.December, 31), LunarDate{Year: 2024, Month: 12, Day: 1}},
		{"Leap month 2 of 2023", date(2023, time.March, 22), LunarDate{Year: 2023, Month: 2, Day: 1, Leap: true}},
		{"Month 6 of 2025", date(2025, time.June, 25), LunarDate{Year: 2025, Month: 6, Day: 1}},
		{"Leap month 6 of 2025", date(2025, time.July, 25), LunarDate{Year: 2025, Month: 6, Day: 1, Leap: true}},
		{"Leap month 4 of 2020", date(2020, time.May, 23), LunarDate{Year: 2020, Month: 4, Day: 1, Leap: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SolarToLunar(tt.solar)
			if err != nil {
				t.Fatalf("SolarToLunar() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SolarToLunar(%s) = %v, want %v", FormatDate(tt.solar), got, tt.want)
			}
		})
	}
}

func TestSolarToLunar_NormalizesZone(t *testing.T) {
	// 2024-02-09 20:00 UTC is already 2024-02-10 03:00 in UTC+7.
	utc := time.Date(2024, time.February, 9, 20, 0, 0, 0, time.UTC)
	got, err := SolarToLunar(utc)
	if err != nil {
		t.Fatalf("SolarToLunar() error = %v", err)
	}
	want := LunarDate{Year: 2024, Month: 1, Day: 1}
	if got != want {
		t.Errorf("SolarToLunar(%v) = %v, want %v", utc, got, want)
	}
}

func TestSolarToLunar_Wednesday(t *testing.T) {
	d := date(2025, time.November, 26)
	if d.Weekday() != time.Wednesday {
		t.Fatalf("%s is a %s", FormatDate(d), d.Weekday())
	}
	got, err := SolarToLunar(d)
	if err != nil {
		t.Fatalf("SolarToLunar() error = %v", err)
	}
	if got.Year != 2025 || got.Month < 1 || got.Month > 12 || got.Day < 1 {
		t.Errorf("SolarToLunar(%s) = %+v", FormatDate(d), got)
	}
	yc, err := YearCanChi(d)
	if err != nil {
		t.Fatalf("YearCanChi() error = %v", err)
	}
	if yc.DisplayName() != "Ất Tỵ" {
		t.Errorf("YearCanChi(%s) = %q, want Ất Tỵ", FormatDate(d), yc)
	}
}

func TestLunarToSolar_FirstFullMoon2025(t *testing.T) {
	want := LunarDate{Year: 2025, Month: 1, Day: 15}
	solar, err := LunarToSolar(want.Day, want.Month, want.Year, want.Leap)
	if err != nil {
		t.Fatalf("LunarToSolar() error = %v", err)
	}
	if !solar.Equal(date(2025, time.February, 12)) {
		t.Errorf("LunarToSolar(15/1/2025) = %s, want 2025-02-12", FormatDate(solar))
	}
	back, err := SolarToLunar(solar)
	if err != nil {
		t.Fatalf("SolarToLunar() error = %v", err)
	}
	if back != want {
		t.Errorf("round trip = %v, want %v", back, want)
	}
}

func TestLunarToSolar_Known(t *testing.T) {
	tests := []struct {
		name             string
		day, month, year int
		leap             bool
		want             time.Time
	}{
		{"Tet 2024", 1, 1, 2024, false, date(2024, time.February, 10)},
		{"Mid-autumn 2024", 15, 8, 2024, false, date(2024, time.September, 17)},
		{"Leap 2 of 2023", 1, 2, 2023, true, date(2023, time.March, 22)},
		{"Regular 6 of 2025", 1, 6, 2025, false, date(2025, time.June, 25)},
		{"Leap 6 of 2025", 1, 6, 2025, true, date(2025, time.July, 25)},
		{"Month 11 of 2024", 1, 11, 2024, false, date(2024, time.December, 1)},
		{"Last day of 2024", 29, 12, 2024, false, date(2025, time.January, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LunarToSolar(tt.day, tt.month, tt.year, tt.leap)
			if err != nil {
				t.Fatalf("LunarToSolar() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("LunarToSolar(%d, %d, %d, %v) = %s, want %s",
					tt.day, tt.month, tt.year, tt.leap, FormatDate(got), FormatDate(tt.want))
			}
			if got.Location() != Zone {
				t.Errorf("LunarToSolar() location = %v, want %v", got.Location(), Zone)
			}
		})
	}
}

func TestLunarToSolar_Invalid(t *testing.T) {
	tests := []struct {
		name             string
		day, month, year int
		leap             bool
	}{
		{"leap month in a year without one", 1, 2, 2024, true},
		{"wrong leap month", 1, 5, 2025, true},
		{"day 30 of a 29-day month", 30, 12, 2024, false},
		{"month 13", 1, 13, 2024, false},
		{"month 0", 1, 0, 2024, false},
		{"day 0", 0, 1, 2024, false},
		{"day 31", 31, 1, 2024, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LunarToSolar(tt.day, tt.month, tt.year, tt.leap)
			if err == nil {
				t.Fatal("LunarToSolar() expected error")
			}
			if !errors.Is(err, ErrInvalidLunarDate) {
				t.Errorf("LunarToSolar() error = %v, want ErrInvalidLunarDate", err)
			}
			var lde *LunarDateError
			if !errors.As(err, &lde) {
				t.Fatalf("LunarToSolar() error type = %T, want *LunarDateError", err)
			}
			if lde.Day != tt.day || lde.Month != tt.month || lde.Year != tt.year || lde.Leap != tt.leap {
				t.Errorf("LunarDateError fields = %+v", lde)
			}
		})
	}
}

func TestMonthStarts_Structure(t *testing.T) {
	c := NewConverter(WithCacheSize(0))
	for y := 1900; y <= 2100; y++ {
		ly, err := c.MonthStarts(y)
		if err != nil {
			t.Fatalf("MonthStarts(%d) error = %v", y, err)
		}
		n := len(ly.Months)
		if n != 12 && n != 13 {
			t.Fatalf("MonthStarts(%d) has %d months", y, n)
		}
		if (n == 13) != ly.HasLeapMonth() {
			t.Errorf("MonthStarts(%d): %d months, HasLeapMonth = %v", y, n, ly.HasLeapMonth())
		}

		leaps := 0
		for i, m := range ly.Months {
			if m.Days != 29 && m.Days != 30 {
				t.Errorf("MonthStarts(%d)[%d] has %d days", y, i, m.Days)
			}
			if i+1 < n && ly.Months[i+1].Start != m.Start+m.Days {
				t.Errorf("MonthStarts(%d)[%d] is not contiguous with the next month", y, i)
			}
			if m.Leap {
				leaps++
				if i == 0 {
					t.Errorf("MonthStarts(%d): first month is leap", y)
				}
			}
		}
		if leaps > 1 {
			t.Errorf("MonthStarts(%d) has %d leap months", y, leaps)
		}
		last := ly.Months[n-1]
		if last.Start+last.Days != ly.End {
			t.Errorf("MonthStarts(%d): last month ends at %d, End = %d", y, last.Start+last.Days, ly.End)
		}
		if ly.Months[0].Month != 11 || ly.Months[0].Year != y-1 {
			t.Errorf("MonthStarts(%d) first month = %d/%d, want 11/%d", y, ly.Months[0].Month, ly.Months[0].Year, y-1)
		}
	}
}

func TestMonthStarts_ReturnsCopy(t *testing.T) {
	c := NewConverter()
	ly, err := c.MonthStarts(2024)
	if err != nil {
		t.Fatalf("MonthStarts() error = %v", err)
	}
	ly.Months[0].Days = 99

	again, err := c.MonthStarts(2024)
	if err != nil {
		t.Fatalf("MonthStarts() error = %v", err)
	}
	if again.Months[0].Days == 99 {
		t.Error("MonthStarts() returned the cached table, want a copy")
	}
}

func TestMonthStarts_LeapYears(t *testing.T) {
	tests := []struct {
		year      int
		leapMonth int
		leapStart time.Time
	}{
		{2020, 4, date(2020, time.May, 23)},
		{2023, 2, date(2023, time.March, 22)},
		{2025, 6, date(2025, time.July, 25)},
	}

	for _, tt := range tests {
		ly, err := MonthStarts(tt.year)
		if err != nil {
			t.Fatalf("MonthStarts(%d) error = %v", tt.year, err)
		}
		leap, ok := ly.LeapMonth()
		if !ok {
			t.Fatalf("MonthStarts(%d) has no leap month", tt.year)
		}
		if leap.Month != tt.leapMonth {
			t.Errorf("MonthStarts(%d) leap month = %d, want %d", tt.year, leap.Month, tt.leapMonth)
		}
		if !leap.StartDate().Equal(tt.leapStart) {
			t.Errorf("MonthStarts(%d) leap start = %s, want %s", tt.year, FormatDate(leap.StartDate()), FormatDate(tt.leapStart))
		}
	}

	ly, err := MonthStarts(2024)
	if err != nil {
		t.Fatalf("MonthStarts(2024) error = %v", err)
	}
	if ly.HasLeapMonth() {
		t.Error("MonthStarts(2024) has a leap month, want none")
	}
}

func TestRoundTrip(t *testing.T) {
	c := NewConverter()
	for y := 1900; y <= 2100; y++ {
		ly, err := c.MonthStarts(y)
		if err != nil {
			t.Fatalf("MonthStarts(%d) error = %v", y, err)
		}
		for _, m := range ly.Months {
			for d := 1; d <= m.Days; d++ {
				solar, err := c.LunarToSolar(d, m.Month, m.Year, m.Leap)
				if err != nil {
					t.Fatalf("LunarToSolar(%d, %d, %d, %v) error = %v", d, m.Month, m.Year, m.Leap, err)
				}
				if got := LocalDayNumber(solar); got != m.Start+d-1 {
					t.Fatalf("LunarToSolar(%d, %d, %d, %v) = day %d, want %d", d, m.Month, m.Year, m.Leap, got, m.Start+d-1)
				}
				back, err := c.SolarToLunar(solar)
				if err != nil {
					t.Fatalf("SolarToLunar(%s) error = %v", FormatDate(solar), err)
				}
				want := LunarDate{Year: m.Year, Month: m.Month, Day: d, Leap: m.Leap}
				if back != want {
					t.Fatalf("SolarToLunar(%s) = %v, want %v", FormatDate(solar), back, want)
				}
			}
		}
	}
}

func TestSolarToLunar_Monotonic(t *testing.T) {
	c := NewConverter()
	start := DayNumber(1990, time.January, 1)
	end := DayNumber(2030, time.December, 31)

	prev, err := c.SolarToLunar(DateInZone(start))
	if err != nil {
		t.Fatalf("SolarToLunar() error = %v", err)
	}
	for jdn := start + 1; jdn <= end; jdn++ {
		cur, err := c.SolarToLunar(DateInZone(jdn))
		if err != nil {
			t.Fatalf("SolarToLunar() error = %v", err)
		}
		if cur.Compare(prev) <= 0 {
			t.Fatalf("day %s: %v does not follow %v", FormatDate(DateInZone(jdn)), cur, prev)
		}
		if cur.Day == 1 {
			if prev.Day != 29 && prev.Day != 30 {
				t.Fatalf("day %s: month started after day %d", FormatDate(DateInZone(jdn)), prev.Day)
			}
		} else if cur.Day != prev.Day+1 {
			t.Fatalf("day %s: day %d follows day %d", FormatDate(DateInZone(jdn)), cur.Day, prev.Day)
		}
		prev = cur
	}
}

func TestConverter_StrictRange(t *testing.T) {
	strict := NewConverter(WithStrictRange())
	if !strict.Strict() {
		t.Fatal("Strict() = false, want true")
	}

	_, err := strict.SolarToLunar(date(1700, time.June, 1))
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SolarToLunar(1700) error = %v, want ErrOutOfRange", err)
	}
	var re *RangeError
	if !errors.As(err, &re) || re.Year != 1700 {
		t.Errorf("SolarToLunar(1700) error = %v, want *RangeError for 1700", err)
	}

	if _, err := strict.LunarToSolar(1, 1, 2200, false); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("LunarToSolar(2200) error = %v, want ErrOutOfRange", err)
	}
	if _, err := strict.MonthStarts(1799); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("MonthStarts(1799) error = %v, want ErrOutOfRange", err)
	}
	if _, err := strict.SolarToLunar(date(2024, time.June, 1)); err != nil {
		t.Errorf("SolarToLunar(2024) error = %v", err)
	}

	lenient := NewConverter()
	if _, err := lenient.SolarToLunar(date(1700, time.June, 1)); err != nil {
		t.Errorf("lenient SolarToLunar(1700) error = %v", err)
	}
}

func TestConverter_CacheIsTransparent(t *testing.T) {
	cached := NewConverter(WithCacheSize(4))
	uncached := NewConverter(WithCacheSize(0))

	start := DayNumber(2019, time.January, 1)
	for jdn := start; jdn < start+2000; jdn += 7 {
		day := DateInZone(jdn)
		a, errA := cached.SolarToLunar(day)
		b, errB := uncached.SolarToLunar(day)
		if errA != nil || errB != nil {
			t.Fatalf("SolarToLunar(%s) errors = %v, %v", FormatDate(day), errA, errB)
		}
		if a != b {
			t.Fatalf("SolarToLunar(%s): cached %v, uncached %v", FormatDate(day), a, b)
		}
	}

	if got := cached.CacheLen(); got == 0 || got > 4 {
		t.Errorf("CacheLen() = %d, want 1..4", got)
	}
	if got := uncached.CacheLen(); got != 0 {
		t.Errorf("uncached CacheLen() = %d, want 0", got)
	}
}

func TestConverter_Concurrent(t *testing.T) {
	c := NewConverter(WithCacheSize(8))
	start := DayNumber(2000, time.January, 1)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for jdn := start + offset; jdn < start+3650; jdn += 13 {
				day := DateInZone(jdn)
				ld, err := c.SolarToLunar(day)
				if err != nil {
					errs <- err
					return
				}
				back, err := c.LunarToSolar(ld.Day, ld.Month, ld.Year, ld.Leap)
				if err != nil {
					errs <- err
					return
				}
				if !back.Equal(day) {
					errs <- errors.New("round trip mismatch at " + FormatDate(day))
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestLunarDate_String(t *testing.T) {
	tests := []struct {
		d    LunarDate
		want string
	}{
		{LunarDate{Year: 2024, Month: 1, Day: 1}, "1/1/2024"},
		{LunarDate{Year: 2025, Month: 6, Day: 15, Leap: true}, "15/N6/2025"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestLunarDate_Compare(t *testing.T) {
	regular := LunarDate{Year: 2025, Month: 6, Day: 29}
	leap := LunarDate{Year: 2025, Month: 6, Day: 1, Leap: true}
	next := LunarDate{Year: 2025, Month: 7, Day: 1}

	if regular.Compare(leap) != -1 {
		t.Error("regular month 6 should sort before leap month 6")
	}
	if leap.Compare(next) != -1 {
		t.Error("leap month 6 should sort before month 7")
	}
	if next.Compare(next) != 0 {
		t.Error("Compare() of equal dates should be 0")
	}
}

func TestErrors_Messages(t *testing.T) {
	err := &LunarDateError{Day: 30, Month: 12, Year: 2024, Reason: "month has only 29 days"}
	if got, want := err.Error(), "lunar date 30/12/2024: month has only 29 days"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	ce := &ComputationError{SolarYear: 2024, Reason: "bad"}
	if !errors.Is(ce, ErrComputation) {
		t.Error("ComputationError should unwrap to ErrComputation")
	}
}
