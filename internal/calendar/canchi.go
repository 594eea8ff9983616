package calendar

import (
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Stems are the ten heavenly stems (Thiên Can).
var Stems = [10]string{
	"Giáp", "Ất", "Bính", "Đinh", "Mậu",
	"Kỷ", "Canh", "Tân", "Nhâm", "Quý",
}

// Branches are the twelve earthly branches (Địa Chi).
var Branches = [12]string{
	"Tý", "Sửu", "Dần", "Mão", "Thìn", "Tỵ",
	"Ngọ", "Mùi", "Thân", "Dậu", "Tuất", "Hợi",
}

// Cycle offsets. Day offsets put day number 2451545 (2000-01-01) at
// Giáp Tý; year offsets put 1984 at Giáp Tý.
const (
	dayStemOffset    = 5
	dayBranchOffset  = 7
	yearStemOffset   = 6
	yearBranchOffset = 8
)

// CanChi is a stem/branch pair of the sexagenary cycle.
type CanChi struct {
	Can string `json:"can"`
	Chi string `json:"chi"`
}

// DisplayName returns "Can Chi", e.g. "Giáp Tý".
func (c CanChi) DisplayName() string {
	return c.Can + " " + c.Chi
}

func (c CanChi) String() string { return c.DisplayName() }

func canChi(stem, branch int) CanChi {
	return CanChi{Can: Stems[mod(stem, 10)], Chi: Branches[mod(branch, 12)]}
}

// dayIndexes returns the stem and branch indexes of day number jdn.
func dayIndexes(jdn int) (stem, branch int) {
	return mod(jdn+dayStemOffset, 10), mod(jdn+dayBranchOffset, 12)
}

// DayCanChi returns the Can-Chi of the civil day of t in Zone. The cycle
// repeats every 60 days.
func DayCanChi(t time.Time) CanChi {
	return DayCanChiOf(LocalDayNumber(t))
}

// DayCanChiOf returns the Can-Chi of day number jdn.
func DayCanChiOf(jdn int) CanChi {
	return canChi(dayIndexes(jdn))
}

// YearCanChiOf returns the Can-Chi of lunar year y.
func YearCanChiOf(y int) CanChi {
	return canChi(y+yearStemOffset, y+yearBranchOffset)
}

// YearCanChi returns the Can-Chi of the lunar year containing t.
func (c *Converter) YearCanChi(t time.Time) (CanChi, error) {
	ld, err := c.SolarToLunar(t)
	if err != nil {
		return CanChi{}, err
	}
	return YearCanChiOf(ld.Year), nil
}

// YearCanChi uses the default converter.
func YearCanChi(t time.Time) (CanChi, error) {
	return defaultConverter.YearCanChi(t)
}

// MonthCanChi returns the Can-Chi of lunar month m of lunar year y. Month 1
// is always a Dần month. A leap month takes the Can-Chi of the month whose
// number it repeats.
func MonthCanChi(y, m int) CanChi {
	return canChi(y*12+m+3, m+1)
}

// HourBranch returns the branch index of the two-hour watch containing hour
// h (0..23): 23:00-00:59 is Tý, 01:00-02:59 is Sửu, and so on.
func HourBranch(h int) int {
	return mod((h+1)/2, 12)
}

// HourCanChi returns the Can-Chi of the two-hour watch containing t (in
// Zone). The Tý watch starting at 23:00 belongs to the following day.
func HourCanChi(t time.Time) CanChi {
	lt := t.In(Zone)
	jdn := LocalDayNumber(lt)
	if lt.Hour() == 23 {
		jdn++
	}
	dayStem, _ := dayIndexes(jdn)
	branch := HourBranch(lt.Hour())
	return canChi((dayStem%5)*2+branch, branch)
}

// foldDiacritics builds a fresh transformer per call; chained transformers
// keep internal buffers and are not safe to share between goroutines.
func foldDiacritics() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			switch r {
			case 'đ':
				return 'd'
			case 'Đ':
				return 'D'
			}
			return r
		}),
		norm.NFC,
	)
}

// ASCII strips Vietnamese diacritics, e.g. "Giáp Tý" becomes "Giap Ty".
func ASCII(s string) string {
	out, _, err := transform.String(foldDiacritics(), s)
	if err != nil {
		return s
	}
	return out
}
