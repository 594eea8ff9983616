package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lichviet/amlich-api/internal/calendar"
	"github.com/lichviet/amlich-api/internal/database"
	"github.com/lichviet/amlich-api/internal/logger"
	"github.com/lichviet/amlich-api/internal/recurrence"
)

const maxPageSize = 500

// EventRequest is the body of POST and PUT /api/v1/events.
type EventRequest struct {
	Name       string          `json:"name"`
	Notes      *string         `json:"notes"`
	Rule       recurrence.Rule `json:"rule"`
	MasterDate string          `json:"master_date"`
}

// event builds the stored form, filling rule defaults the client may omit.
func (req EventRequest) event() *database.Event {
	rule := req.Rule
	if rule.Interval == 0 {
		rule.Interval = 1
	}
	if rule.Leap == "" {
		if rule.Frequency == recurrence.Monthly {
			rule.Leap = recurrence.LeapInclude
		} else {
			rule.Leap = recurrence.LeapSkip
		}
	}
	return &database.Event{
		Name:       req.Name,
		Notes:      req.Notes,
		Rule:       rule,
		MasterDate: req.MasterDate,
	}
}

// Occurrence is one expanded date of an event.
type Occurrence struct {
	Date  string             `json:"date"`
	Lunar calendar.LunarDate `json:"lunar"`
}

// OccurrencesResponse is the expansion of an event over a window.
type OccurrencesResponse struct {
	EventID     int64        `json:"event_id"`
	Name        string       `json:"name"`
	Start       string       `json:"start"`
	End         string       `json:"end"`
	Occurrences []Occurrence `json:"occurrences"`
}

// ListEvents handles GET /api/v1/events?limit=&offset=
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 50)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	list, err := h.db.ListEvents(r.Context(), limit, offset)
	if err != nil {
		logger.Error(r.Context(), "failed to list events", err)
		WriteInternalError(w, "Failed to retrieve events")
		return
	}
	WriteSuccess(w, list)
}

// CreateEvent handles POST /api/v1/events
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	e := req.event()
	if err := h.db.CreateEvent(r.Context(), e); err != nil {
		h.writeEventError(w, r, err, "create")
		return
	}

	logger.Info(r.Context(), "event created",
		slog.Int64("id", e.ID),
		slog.String("name", e.Name))
	WriteCreated(w, e)
}

// GetEvent handles GET /api/v1/events/{id}
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	e, err := h.db.GetEvent(r.Context(), id)
	if err != nil {
		h.writeEventError(w, r, err, "get")
		return
	}
	WriteSuccess(w, e)
}

// UpdateEvent handles PUT /api/v1/events/{id}
func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	e := req.event()
	e.ID = id
	if err := h.db.UpdateEvent(r.Context(), e); err != nil {
		h.writeEventError(w, r, err, "update")
		return
	}
	WriteSuccess(w, e)
}

// DeleteEvent handles DELETE /api/v1/events/{id}
func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteEvent(r.Context(), id); err != nil {
		h.writeEventError(w, r, err, "delete")
		return
	}

	logger.Info(r.Context(), "event deleted", slog.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// GetEventOccurrences handles GET /api/v1/events/{id}/occurrences?start=&end=
//
// The window defaults to MaxRangeDays starting today.
func (h *Handlers) GetEventOccurrences(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	// A missing end defaults to MaxRangeDays from start, whichever way
	// start was chosen.
	start := calendar.StartOfDay(h.now())
	if s := r.URL.Query().Get("start"); s != "" {
		if start, ok = parseDateParam(w, s, "start date"); !ok {
			return
		}
	}
	end := start.AddDate(0, 0, h.cfg.MaxRangeDays-1)
	if s := r.URL.Query().Get("end"); s != "" {
		if end, ok = parseDateParam(w, s, "end date"); !ok {
			return
		}
	}
	if !h.checkSpan(w, start, end) {
		return
	}

	e, err := h.db.GetEvent(r.Context(), id)
	if err != nil {
		h.writeEventError(w, r, err, "get")
		return
	}
	master, err := e.Master()
	if err != nil {
		logger.Error(r.Context(), "stored event has bad master date", err, slog.Int64("id", id))
		WriteInternalError(w, "Stored event is corrupt")
		return
	}

	dates, err := recurrence.Occurrences(h.conv, e.Rule, master, start, end)
	h.observe("occurrences", err)
	if err != nil {
		h.writeCalendarError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveOccurrences(len(dates))
	}

	resp := OccurrencesResponse{
		EventID:     e.ID,
		Name:        e.Name,
		Start:       calendar.FormatDate(start),
		End:         calendar.FormatDate(end),
		Occurrences: make([]Occurrence, 0, len(dates)),
	}
	for _, d := range dates {
		ld, err := h.conv.SolarToLunar(d)
		h.observe("solar_to_lunar", err)
		if err != nil {
			h.writeCalendarError(w, r, err)
			return
		}
		resp.Occurrences = append(resp.Occurrences, Occurrence{Date: calendar.FormatDate(d), Lunar: ld})
	}

	WriteSuccess(w, resp)
}

func (h *Handlers) writeEventError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case database.IsNotFound(err):
		WriteNotFound(w, "Event not found")
	case errors.Is(err, database.ErrInvalidEvent):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidEvent)
	case database.IsDuplicate(err):
		WriteError(w, http.StatusConflict, "An event with this name and master date already exists", CodeDuplicate)
	default:
		logger.Error(r.Context(), "event "+op+" failed", err)
		WriteInternalError(w, "Failed to "+op+" event")
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Invalid event ID")
		return 0, false
	}
	return id, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		WriteBadRequest(w, fmt.Sprintf("%s must be a non-negative integer", name))
		return 0, false
	}
	return n, true
}
