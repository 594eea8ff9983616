package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lichviet/amlich-api/internal/calendar"
	"github.com/lichviet/amlich-api/internal/config"
	"github.com/lichviet/amlich-api/internal/database"
	"github.com/lichviet/amlich-api/internal/logger"
	"github.com/lichviet/amlich-api/internal/metrics"
	"github.com/lichviet/amlich-api/internal/recurrence"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	db      *database.DB
	conv    *calendar.Converter
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandlers creates a new Handlers instance. m may be nil to run without
// Prometheus collectors.
func NewHandlers(db *database.DB, conv *calendar.Converter, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		db:      db,
		conv:    conv,
		metrics: m,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// =============================================================================
// Response types
// =============================================================================

// LunarDateResponse is one solar day and its lunar equivalent.
type LunarDateResponse struct {
	Solar      string             `json:"solar"`
	Weekday    string             `json:"weekday"`
	Lunar      calendar.LunarDate `json:"lunar"`
	Display    string             `json:"display"`
	DayCanChi  calendar.CanChi    `json:"day_can_chi"`
	YearCanChi calendar.CanChi    `json:"year_can_chi"`
}

// SolarDateResponse is the answer to a lunar to solar conversion.
type SolarDateResponse struct {
	Lunar   calendar.LunarDate `json:"lunar"`
	Solar   string             `json:"solar"`
	Weekday string             `json:"weekday"`
}

// CanChiResponse holds the sexagenary names of a day.
type CanChiResponse struct {
	Date  string           `json:"date"`
	Day   calendar.CanChi  `json:"day"`
	Month calendar.CanChi  `json:"month"`
	Year  calendar.CanChi  `json:"year"`
	Hour  *calendar.CanChi `json:"hour,omitempty"`
}

// MonthResponse is one row of a year's month table.
type MonthResponse struct {
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Leap   bool            `json:"is_leap_month"`
	Days   int             `json:"days"`
	CanChi calendar.CanChi `json:"can_chi"`
}

// YearMonthsResponse is the month table of a solar year.
type YearMonthsResponse struct {
	SolarYear int             `json:"solar_year"`
	LeapMonth int             `json:"leap_month"` // 0 when the year has none
	Months    []MonthResponse `json:"months"`
}

// =============================================================================
// Health
// =============================================================================

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.db.Health(ctx); err != nil {
		h.logger.Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", CodeUnhealthy)
		return
	}

	WriteSuccess(w, map[string]any{
		"status":       "healthy",
		"cached_years": h.conv.CacheLen(),
		"strict_range": h.conv.Strict(),
	})
}

// =============================================================================
// Conversion handlers
// =============================================================================

// GetToday handles GET /api/v1/lunar/today
func (h *Handlers) GetToday(w http.ResponseWriter, r *http.Request) {
	resp, err := h.lunarDate(calendar.StartOfDay(h.now()))
	if err != nil {
		h.writeCalendarError(w, r, err)
		return
	}
	WriteSuccess(w, resp)
}

// GetLunarDate handles GET /api/v1/lunar/date/{YYYY-MM-DD}
func (h *Handlers) GetLunarDate(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(w, chi.URLParam(r, "date"), "date")
	if !ok {
		return
	}

	resp, err := h.lunarDate(date)
	if err != nil {
		h.writeCalendarError(w, r, err)
		return
	}
	WriteSuccess(w, resp)
}

// GetLunarRange handles GET /api/v1/lunar/range?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handlers) GetLunarRange(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		WriteBadRequest(w, "Both start and end date parameters are required")
		return
	}

	start, ok := parseDateParam(w, startStr, "start date")
	if !ok {
		return
	}
	end, ok := parseDateParam(w, endStr, "end date")
	if !ok {
		return
	}
	if !h.checkSpan(w, start, end) {
		return
	}

	days := make([]LunarDateResponse, 0, calendar.DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		resp, err := h.lunarDate(d)
		if err != nil {
			h.writeCalendarError(w, r, err)
			return
		}
		days = append(days, resp)
	}

	WriteSuccess(w, map[string]any{
		"start": startStr,
		"end":   endStr,
		"days":  days,
	})
}

// GetSolarDate handles GET /api/v1/solar?year=Y&month=M&day=D&leap=true
func (h *Handlers) GetSolarDate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var year, month, day int
	for _, p := range []struct {
		name string
		dst  *int
	}{{"year", &year}, {"month", &month}, {"day", &day}} {
		v, err := strconv.Atoi(q.Get(p.name))
		if err != nil {
			WriteBadRequest(w, fmt.Sprintf("%s must be an integer", p.name))
			return
		}
		*p.dst = v
	}

	leap := false
	if s := q.Get("leap"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			WriteBadRequest(w, "leap must be true or false")
			return
		}
		leap = b
	}

	solar, err := h.conv.LunarToSolar(day, month, year, leap)
	h.observe("lunar_to_solar", err)
	if err != nil {
		h.writeCalendarError(w, r, err)
		return
	}

	WriteSuccess(w, SolarDateResponse{
		Lunar:   calendar.LunarDate{Year: year, Month: month, Day: day, Leap: leap},
		Solar:   calendar.FormatDate(solar),
		Weekday: solar.Weekday().String(),
	})
}

// GetCanChi handles GET /api/v1/canchi/{YYYY-MM-DD}?hour=H&ascii=1
func (h *Handlers) GetCanChi(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(w, chi.URLParam(r, "date"), "date")
	if !ok {
		return
	}

	ascii := false
	if s := r.URL.Query().Get("ascii"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			WriteBadRequest(w, "ascii must be a boolean")
			return
		}
		ascii = b
	}

	ld, err := h.conv.SolarToLunar(date)
	h.observe("solar_to_lunar", err)
	if err != nil {
		h.writeCalendarError(w, r, err)
		return
	}

	resp := CanChiResponse{
		Date:  calendar.FormatDate(date),
		Day:   calendar.DayCanChi(date),
		Month: calendar.MonthCanChi(ld.Year, ld.Month),
		Year:  calendar.YearCanChiOf(ld.Year),
	}

	if s := r.URL.Query().Get("hour"); s != "" {
		hour, err := strconv.Atoi(s)
		if err != nil || hour < 0 || hour > 23 {
			WriteBadRequest(w, "hour must be an integer between 0 and 23")
			return
		}
		hc := calendar.HourCanChi(date.Add(time.Duration(hour) * time.Hour))
		resp.Hour = &hc
	}

	if ascii {
		resp.Day = asciiCanChi(resp.Day)
		resp.Month = asciiCanChi(resp.Month)
		resp.Year = asciiCanChi(resp.Year)
		if resp.Hour != nil {
			hc := asciiCanChi(*resp.Hour)
			resp.Hour = &hc
		}
	}

	WriteSuccess(w, resp)
}

// GetAlmanac handles GET /api/v1/almanac/{YYYY-MM-DD}
func (h *Handlers) GetAlmanac(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(w, chi.URLParam(r, "date"), "date")
	if !ok {
		return
	}

	info, err := h.conv.DayInfo(date)
	h.observe("almanac", err)
	if err != nil {
		h.writeCalendarError(w, r, err)
		return
	}
	WriteSuccess(w, info)
}

// GetYearMonths handles GET /api/v1/years/{year}/months
func (h *Handlers) GetYearMonths(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		WriteBadRequest(w, "year must be an integer")
		return
	}

	ly, err := h.conv.MonthStarts(year)
	h.observe("month_starts", err)
	if err != nil {
		h.writeCalendarError(w, r, err)
		return
	}

	resp := YearMonthsResponse{
		SolarYear: ly.SolarYear,
		Months:    make([]MonthResponse, 0, len(ly.Months)),
	}
	if leap, ok := ly.LeapMonth(); ok {
		resp.LeapMonth = leap.Month
	}
	for _, m := range ly.Months {
		resp.Months = append(resp.Months, MonthResponse{
			Start:  calendar.FormatDate(m.StartDate()),
			End:    calendar.FormatDate(calendar.DateInZone(m.Start + m.Days - 1)),
			Year:   m.Year,
			Month:  m.Month,
			Leap:   m.Leap,
			Days:   m.Days,
			CanChi: calendar.MonthCanChi(m.Year, m.Month),
		})
	}

	WriteSuccess(w, resp)
}

// =============================================================================
// Helpers
// =============================================================================

// lunarDate converts one day and attaches its Can-Chi names.
func (h *Handlers) lunarDate(date time.Time) (LunarDateResponse, error) {
	ld, err := h.conv.SolarToLunar(date)
	h.observe("solar_to_lunar", err)
	if err != nil {
		return LunarDateResponse{}, err
	}
	return LunarDateResponse{
		Solar:      calendar.FormatDate(date),
		Weekday:    date.In(calendar.Zone).Weekday().String(),
		Lunar:      ld,
		Display:    ld.String(),
		DayCanChi:  calendar.DayCanChi(date),
		YearCanChi: calendar.YearCanChiOf(ld.Year),
	}, nil
}

func (h *Handlers) observe(operation string, err error) {
	if h.metrics != nil {
		h.metrics.ObserveConversion(operation, err)
	}
}

// checkSpan rejects windows that are reversed or longer than MaxRangeDays.
func (h *Handlers) checkSpan(w http.ResponseWriter, start, end time.Time) bool {
	if start.After(end) {
		WriteBadRequest(w, "Start date must be before or equal to end date")
		return false
	}
	if n := calendar.DaysBetween(start, end) + 1; n > h.cfg.MaxRangeDays {
		WriteBadRequest(w, fmt.Sprintf("Date range cannot exceed %d days", h.cfg.MaxRangeDays))
		return false
	}
	return true
}

// writeCalendarError maps engine errors to HTTP statuses. Anything that is
// not a caller error is logged and reported as a computation failure.
func (h *Handlers) writeCalendarError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidLunarDate):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidLunarDate)
	case errors.Is(err, recurrence.ErrInvalidRule):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidEvent)
	case errors.Is(err, calendar.ErrOutOfRange):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), CodeOutOfRange)
	default:
		logger.Error(r.Context(), "calendar computation failed", err,
			slog.String("path", r.URL.Path))
		WriteError(w, http.StatusInternalServerError, "Calendar computation failed", CodeComputation)
	}
}

func parseDateParam(w http.ResponseWriter, s, what string) (time.Time, bool) {
	if s == "" {
		WriteBadRequest(w, fmt.Sprintf("%s parameter is required", what))
		return time.Time{}, false
	}
	date, err := calendar.ParseDateString(s)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid %s format: %s. Use YYYY-MM-DD", what, s))
		return time.Time{}, false
	}
	return date, true
}

func asciiCanChi(c calendar.CanChi) calendar.CanChi {
	return calendar.CanChi{Can: calendar.ASCII(c.Can), Chi: calendar.ASCII(c.Chi)}
}

// decodeJSON decodes a JSON request body of at most 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
