package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/lichviet/amlich-api/internal/calendar"
	"github.com/lichviet/amlich-api/internal/recurrence"
)

// Event is a named lunar recurrence, such as a death anniversary or a
// monthly offering day.
type Event struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Notes      *string         `json:"notes"`       // nullable
	Rule       recurrence.Rule `json:"rule"`
	MasterDate string          `json:"master_date"` // YYYY-MM-DD, first occurrence
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ErrInvalidEvent is wrapped by Event.Validate failures.
var ErrInvalidEvent = errors.New("invalid event")

// Validate checks the event before it is written. It also normalizes the
// name to NFC so that precomposed and decomposed Vietnamese spellings of the
// same name compare equal.
func (e *Event) Validate() error {
	e.Name = norm.NFC.String(strings.TrimSpace(e.Name))
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEvent)
	}
	if err := e.Rule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if _, err := calendar.ParseDateString(e.MasterDate); err != nil {
		return fmt.Errorf("%w: master_date: %w", ErrInvalidEvent, err)
	}
	return nil
}

// Master returns the master date at midnight in calendar.Zone.
func (e *Event) Master() (time.Time, error) {
	return calendar.ParseDateString(e.MasterDate)
}

// EventList is one page of events.
type EventList struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
