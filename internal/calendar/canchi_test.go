package calendar

import (
	"testing"
	"time"
)

func TestDayCanChi(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want string
	}{
		{"2000-01-01", date(2000, time.January, 1), "Giáp Tý"},
		{"2000-01-02", date(2000, time.January, 2), "Ất Sửu"},
		{"2000-03-01", date(2000, time.March, 1), "Giáp Tý"},
		{"1999-12-31", date(1999, time.December, 31), "Quý Hợi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayCanChi(tt.day).DisplayName(); got != tt.want {
				t.Errorf("DayCanChi(%s) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestDayCanChi_Period(t *testing.T) {
	start := DayNumber(1900, time.January, 1)
	for jdn := start; jdn < start+3000; jdn++ {
		if DayCanChiOf(jdn) != DayCanChiOf(jdn+60) {
			t.Fatalf("DayCanChiOf(%d) != DayCanChiOf(%d)", jdn, jdn+60)
		}
	}

	seen := make(map[CanChi]bool)
	for jdn := start; jdn < start+60; jdn++ {
		seen[DayCanChiOf(jdn)] = true
	}
	if len(seen) != 60 {
		t.Errorf("60 consecutive days gave %d distinct pairs, want 60", len(seen))
	}
}

func TestDayCanChi_NormalizesZone(t *testing.T) {
	// 1999-12-31 20:00 UTC is 2000-01-01 03:00 in UTC+7.
	utc := time.Date(1999, time.December, 31, 20, 0, 0, 0, time.UTC)
	if got := DayCanChi(utc).DisplayName(); got != "Giáp Tý" {
		t.Errorf("DayCanChi(%v) = %q, want %q", utc, got, "Giáp Tý")
	}
}

func TestYearCanChiOf(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{1984, "Giáp Tý"},
		{2000, "Canh Thìn"},
		{2023, "Quý Mão"},
		{2024, "Giáp Thìn"},
		{2025, "Ất Tỵ"},
		{2026, "Bính Ngọ"},
	}

	for _, tt := range tests {
		if got := YearCanChiOf(tt.year).DisplayName(); got != tt.want {
			t.Errorf("YearCanChiOf(%d) = %q, want %q", tt.year, got, tt.want)
		}
	}
}

func TestYearCanChi_UsesLunarYear(t *testing.T) {
	// The day before Tết 2025 still belongs to the Giáp Thìn year.
	got, err := YearCanChi(date(2025, time.January, 28))
	if err != nil {
		t.Fatalf("YearCanChi() error = %v", err)
	}
	if got.DisplayName() != "Giáp Thìn" {
		t.Errorf("YearCanChi(2025-01-28) = %q, want %q", got, "Giáp Thìn")
	}

	got, err = YearCanChi(date(2025, time.January, 29))
	if err != nil {
		t.Fatalf("YearCanChi() error = %v", err)
	}
	if got.DisplayName() != "Ất Tỵ" {
		t.Errorf("YearCanChi(2025-01-29) = %q, want %q", got, "Ất Tỵ")
	}
}

func TestMonthCanChi(t *testing.T) {
	tests := []struct {
		year, month int
		want        string
	}{
		{2024, 1, "Bính Dần"},
		{2024, 2, "Đinh Mão"},
		{2024, 12, "Đinh Sửu"},
		{2025, 1, "Mậu Dần"},
		{2025, 11, "Mậu Tý"},
	}

	for _, tt := range tests {
		if got := MonthCanChi(tt.year, tt.month).DisplayName(); got != tt.want {
			t.Errorf("MonthCanChi(%d, %d) = %q, want %q", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestHourBranch(t *testing.T) {
	tests := []struct {
		hour int
		want int
	}{
		{23, 0}, {0, 0}, {1, 1}, {2, 1}, {3, 2}, {11, 6}, {12, 6}, {13, 7}, {22, 11},
	}
	for _, tt := range tests {
		if got := HourBranch(tt.hour); got != tt.want {
			t.Errorf("HourBranch(%d) = %d, want %d", tt.hour, got, tt.want)
		}
	}
}

func TestHourCanChi(t *testing.T) {
	tests := []struct {
		name string
		when time.Time
		want string
	}{
		{"early Tý watch", time.Date(2000, time.January, 1, 0, 30, 0, 0, Zone), "Giáp Tý"},
		{"Mùi watch", time.Date(2000, time.January, 1, 13, 30, 0, 0, Zone), "Tân Mùi"},
		{"late Tý watch uses next day", time.Date(2000, time.January, 1, 23, 30, 0, 0, Zone), "Bính Tý"},
		{"UTC input", time.Date(2000, time.January, 1, 6, 0, 0, 0, time.UTC), "Tân Mùi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HourCanChi(tt.when).DisplayName(); got != tt.want {
				t.Errorf("HourCanChi(%v) = %q, want %q", tt.when, got, tt.want)
			}
		})
	}
}

func TestASCII(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Giáp Tý", "Giap Ty"},
		{"Đinh Dậu", "Dinh Dau"},
		{"Ất Tỵ", "At Ty"},
		{"Kỷ Hợi", "Ky Hoi"},
		{"Hoàng Đạo", "Hoang Dao"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := ASCII(tt.in); got != tt.want {
			t.Errorf("ASCII(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanChi_String(t *testing.T) {
	c := CanChi{Can: "Mậu", Chi: "Ngọ"}
	if c.String() != "Mậu Ngọ" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestCanChi_NamesAcrossYears(t *testing.T) {
	for _, y := range []int{1990, 2000, 2010, 2020, 2030} {
		for m := time.January; m <= time.December; m++ {
			d := date(y, m, 15)
			if c := DayCanChi(d); c.Can == "" || c.Chi == "" {
				t.Errorf("DayCanChi(%s) = %+v, want both names", FormatDate(d), c)
			}
			c, err := YearCanChi(d)
			if err != nil {
				t.Fatalf("YearCanChi(%s) error = %v", FormatDate(d), err)
			}
			if c.Can == "" || c.Chi == "" {
				t.Errorf("YearCanChi(%s) = %+v, want both names", FormatDate(d), c)
			}
			if c := MonthCanChi(y, int(m)); c.Can == "" || c.Chi == "" {
				t.Errorf("MonthCanChi(%d, %d) = %+v, want both names", y, m, c)
			}
		}
	}
}
