package calendar

import "time"

// SolarTermNames are the 24 solar terms (tiết khí), index 0 at 0° of solar
// longitude.
var SolarTermNames = [24]string{
	"Xuân phân", "Thanh minh", "Cốc vũ", "Lập hạ", "Tiểu mãn", "Mang chủng",
	"Hạ chí", "Tiểu thử", "Đại thử", "Lập thu", "Xử thử", "Bạch lộ",
	"Thu phân", "Hàn lộ", "Sương giáng", "Lập đông", "Tiểu tuyết", "Đại tuyết",
	"Đông chí", "Tiểu hàn", "Đại hàn", "Lập xuân", "Vũ thủy", "Kinh trập",
}

// SolarTerm is one of the 24 fifteen-degree sectors of the ecliptic.
type SolarTerm struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// SolarTermAt returns the solar term in effect at the start of the civil
// day of t.
func SolarTermAt(t time.Time) SolarTerm {
	idx := int(SunLongitude(localMidnight(LocalDayNumber(t))) / 15)
	if idx > 23 {
		idx = 23
	}
	return SolarTerm{Index: idx, Name: SolarTermNames[idx]}
}

// Quality tiers of the twelve day officers.
type Quality string

const (
	QualityAuspicious     Quality = "Hoàng Đạo"
	QualityUsable         Quality = "Khả Dụng"
	QualityInauspicious   Quality = "Hắc Đạo"
	QualitySevereWarnings Quality = "Rất Hung"
)

// OfficerNames are the twelve day officers (12 Trực) in cycle order.
var OfficerNames = [12]string{
	"Kiến", "Trừ", "Mãn", "Bình", "Định", "Chấp",
	"Phá", "Nguy", "Thành", "Thu", "Khai", "Bế",
}

var officerQuality = [12]Quality{
	QualityInauspicious,   // Kiến
	QualityAuspicious,     // Trừ
	QualityInauspicious,   // Mãn
	QualityInauspicious,   // Bình
	QualityAuspicious,     // Định
	QualityAuspicious,     // Chấp
	QualitySevereWarnings, // Phá
	QualityAuspicious,     // Nguy
	QualityUsable,         // Thành
	QualityInauspicious,   // Thu
	QualityUsable,         // Khai
	QualitySevereWarnings, // Bế
}

// Officer is the day officer of a day.
type Officer struct {
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Quality Quality `json:"quality"`
}

// OfficerOf returns the officer of a day with branch dayBranch falling in a
// lunar month labelled month.
func OfficerOf(dayBranch, month int) Officer {
	idx := mod(dayBranch-(month+1), 12)
	return Officer{Index: idx, Name: OfficerNames[idx], Quality: officerQuality[idx]}
}

// luckyHourTable marks, per day branch mod 6, the auspicious watches in
// branch order starting at Tý.
var luckyHourTable = [6]string{
	"110100101100",
	"001101001011",
	"110011010010",
	"101100110100",
	"001011001101",
	"010010110011",
}

// Watch is a two-hour period named by its branch.
type Watch struct {
	Branch    string `json:"branch"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

// WatchOf returns the watch of branch index b.
func WatchOf(b int) Watch {
	b = mod(b, 12)
	return Watch{
		Branch:    Branches[b],
		StartHour: mod(2*b-1, 24),
		EndHour:   mod(2*b+1, 24),
	}
}

// LuckyHoursOf returns the six auspicious watches (giờ hoàng đạo) of day
// number jdn.
func LuckyHoursOf(jdn int) []Watch {
	_, branch := dayIndexes(jdn)
	row := luckyHourTable[branch%6]
	watches := make([]Watch, 0, 6)
	for i, c := range row {
		if c == '1' {
			watches = append(watches, WatchOf(i))
		}
	}
	return watches
}

// LuckyHours returns the auspicious watches of the civil day of t.
func LuckyHours(t time.Time) []Watch {
	return LuckyHoursOf(LocalDayNumber(t))
}

// UnluckyDay is one of the six black-path day types (Lục Hắc Đạo). Higher
// severity is worse.
type UnluckyDay struct {
	Name     string `json:"name"`
	Severity int    `json:"severity"`
}

var (
	chuTuoc   = UnluckyDay{Name: "Chu Tước Hắc Đạo", Severity: 5}
	bachHo    = UnluckyDay{Name: "Bạch Hổ Hắc Đạo", Severity: 3}
	cauTran   = UnluckyDay{Name: "Câu Trận Hắc Đạo", Severity: 3}
	thienLao  = UnluckyDay{Name: "Thiên Lao Hắc Đạo", Severity: 4}
	thienHinh = UnluckyDay{Name: "Thiên Hình", Severity: 4}
	nguyenVu  = UnluckyDay{Name: "Nguyên Vũ", Severity: 2}
)

// unluckyDays is keyed by lunar month and day branch index.
var unluckyDays = map[[2]int]UnluckyDay{
	{1, 0}: chuTuoc, {1, 1}: chuTuoc, {4, 9}: chuTuoc, {7, 4}: chuTuoc, {9, 7}: chuTuoc, {10, 9}: chuTuoc,

	{2, 2}: bachHo, {3, 10}: bachHo, {5, 4}: bachHo, {8, 1}: bachHo, {11, 10}: bachHo,

	{1, 11}: cauTran, {3, 2}: cauTran, {6, 3}: cauTran, {9, 9}: cauTran, {10, 5}: cauTran, {12, 11}: cauTran,

	{1, 3}: thienLao, {4, 6}: thienLao, {7, 9}: thienLao, {7, 8}: thienLao,
	{9, 0}: thienLao, {10, 1}: thienLao, {10, 0}: thienLao,

	{2, 0}: thienHinh, {5, 3}: thienHinh, {8, 6}: thienHinh, {10, 8}: thienHinh, {11, 9}: thienHinh,

	{3, 1}: nguyenVu, {6, 1}: nguyenVu, {9, 1}: nguyenVu, {12, 1}: nguyenVu,
}

// UnluckyDayOf returns the black-path type of a day with branch dayBranch in
// lunar month month, or nil if the day is not one.
func UnluckyDayOf(month, dayBranch int) *UnluckyDay {
	u, ok := unluckyDays[[2]int{month, mod(dayBranch, 12)}]
	if !ok {
		return nil
	}
	return &u
}

// Festival is a traditional holiday fixed to a lunar day.
type Festival struct {
	Month int    `json:"month"`
	Day   int    `json:"day"`
	Name  string `json:"name"`
}

// Festivals are the lunar holidays in calendar order.
var Festivals = []Festival{
	{1, 1, "Tết Nguyên Đán"},
	{1, 15, "Tết Nguyên Tiêu"},
	{3, 3, "Tết Hàn Thực"},
	{5, 5, "Tết Đoan Ngọ"},
	{7, 15, "Vu Lan"},
	{8, 15, "Tết Trung Thu"},
	{10, 10, "Tết Thường Tân"},
}

// FestivalOf returns the festival falling on ld. Leap months carry none.
func FestivalOf(ld LunarDate) (Festival, bool) {
	if ld.Leap {
		return Festival{}, false
	}
	for _, f := range Festivals {
		if f.Month == ld.Month && f.Day == ld.Day {
			return f, true
		}
	}
	return Festival{}, false
}

// Almanac collects everything the calendar shows for one day.
type Almanac struct {
	Date        time.Time   `json:"date"`
	Lunar       LunarDate   `json:"lunar"`
	DayCanChi   CanChi      `json:"day_can_chi"`
	MonthCanChi CanChi      `json:"month_can_chi"`
	YearCanChi  CanChi      `json:"year_can_chi"`
	SolarTerm   SolarTerm   `json:"solar_term"`
	Officer     Officer     `json:"officer"`
	LuckyHours  []Watch     `json:"lucky_hours"`
	UnluckyDay  *UnluckyDay `json:"unlucky_day,omitempty"`
	Festival    string      `json:"festival,omitempty"`
}

// DayInfo builds the almanac entry for the civil day of t.
func (c *Converter) DayInfo(t time.Time) (Almanac, error) {
	ld, err := c.SolarToLunar(t)
	if err != nil {
		return Almanac{}, err
	}
	jdn := LocalDayNumber(t)
	_, branch := dayIndexes(jdn)
	a := Almanac{
		Date:        DateInZone(jdn),
		Lunar:       ld,
		DayCanChi:   DayCanChiOf(jdn),
		MonthCanChi: MonthCanChi(ld.Year, ld.Month),
		YearCanChi:  YearCanChiOf(ld.Year),
		SolarTerm:   SolarTermAt(t),
		Officer:     OfficerOf(branch, ld.Month),
		LuckyHours:  LuckyHoursOf(jdn),
		UnluckyDay:  UnluckyDayOf(ld.Month, branch),
	}
	if f, ok := FestivalOf(ld); ok {
		a.Festival = f.Name
	}
	return a, nil
}

// DayOfficer returns the day officer of the civil day of t.
func (c *Converter) DayOfficer(t time.Time) (Officer, error) {
	ld, err := c.SolarToLunar(t)
	if err != nil {
		return Officer{}, err
	}
	_, branch := dayIndexes(LocalDayNumber(t))
	return OfficerOf(branch, ld.Month), nil
}

// DayInfo uses the default converter.
func DayInfo(t time.Time) (Almanac, error) {
	return defaultConverter.DayInfo(t)
}
