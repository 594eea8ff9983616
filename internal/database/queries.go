package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lichviet/amlich-api/internal/calendar"
	"github.com/lichviet/amlich-api/internal/recurrence"
)

// querier is satisfied by both *DB and *Tx so each query is written once.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// Helper Functions
// =============================================================================

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns nil if parsing fails.
func parseTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}

	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999",
	} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func untilColumn(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: calendar.FormatDate(*t), Valid: true}
}

const eventColumns = `
	id, name, notes,
	frequency, lunar_day, lunar_month, leap_policy, interval, count, until,
	master_date, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var e Event
	var notes, until, createdAt, updatedAt sql.NullString
	var frequency, leap string

	err := row.Scan(
		&e.ID,
		&e.Name,
		&notes,
		&frequency,
		&e.Rule.Day,
		&e.Rule.Month,
		&leap,
		&e.Rule.Interval,
		&e.Rule.Count,
		&until,
		&e.MasterDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Rule.Frequency = recurrence.Frequency(frequency)
	e.Rule.Leap = recurrence.LeapPolicy(leap)
	if notes.Valid {
		e.Notes = &notes.String
	}
	if until.Valid {
		t, err := calendar.ParseDateString(until.String)
		if err != nil {
			return nil, fmt.Errorf("event %d until: %w", e.ID, err)
		}
		e.Rule.Until = &t
	}
	if t := parseTimestamp(createdAt); t != nil {
		e.CreatedAt = *t
	}
	if t := parseTimestamp(updatedAt); t != nil {
		e.UpdatedAt = *t
	}
	return &e, nil
}

// =============================================================================
// Event Queries
// =============================================================================

// CreateEvent inserts an event and sets its ID and timestamps.
// Returns ErrDuplicate if an event with the same name and master date exists.
func (db *DB) CreateEvent(ctx context.Context, e *Event) error {
	return createEvent(ctx, db, e)
}

// CreateEvent inserts an event inside the transaction.
func (tx *Tx) CreateEvent(ctx context.Context, e *Event) error {
	return createEvent(ctx, tx, e)
}

func createEvent(ctx context.Context, q querier, e *Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO lunar_events (
			name, notes,
			frequency, lunar_day, lunar_month, leap_policy, interval, count, until,
			master_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at
	`

	var createdAt, updatedAt sql.NullString
	err := q.QueryRowContext(ctx, query,
		e.Name,
		nullString(e.Notes),
		string(e.Rule.Frequency),
		e.Rule.Day,
		e.Rule.Month,
		string(e.Rule.Leap),
		e.Rule.Interval,
		e.Rule.Count,
		untilColumn(e.Rule.Until),
		e.MasterDate,
	).Scan(&e.ID, &createdAt, &updatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", mapConstraintError(err))
	}

	if t := parseTimestamp(createdAt); t != nil {
		e.CreatedAt = *t
	}
	if t := parseTimestamp(updatedAt); t != nil {
		e.UpdatedAt = *t
	}
	return nil
}

// GetEvent retrieves an event by ID.
// Returns ErrNotFound if it doesn't exist.
func (db *DB) GetEvent(ctx context.Context, id int64) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM lunar_events WHERE id = ?`

	e, err := scanEvent(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query event %d: %w", id, err)
	}
	return e, nil
}

// ListEvents returns one page of events ordered by ID, with the total count.
func (db *DB) ListEvents(ctx context.Context, limit, offset int) (*EventList, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	list := &EventList{Events: []Event{}, Limit: limit, Offset: offset}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lunar_events`).Scan(&list.Total); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM lunar_events ORDER BY id LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		list.Events = append(list.Events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return list, nil
}

// UpdateEvent replaces every mutable field of the event with the given ID.
// Returns ErrNotFound if it doesn't exist.
func (db *DB) UpdateEvent(ctx context.Context, e *Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE lunar_events SET
			name = ?, notes = ?,
			frequency = ?, lunar_day = ?, lunar_month = ?, leap_policy = ?,
			interval = ?, count = ?, until = ?,
			master_date = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?
		RETURNING created_at, updated_at
	`

	var createdAt, updatedAt sql.NullString
	err := db.QueryRowContext(ctx, query,
		e.Name,
		nullString(e.Notes),
		string(e.Rule.Frequency),
		e.Rule.Day,
		e.Rule.Month,
		string(e.Rule.Leap),
		e.Rule.Interval,
		e.Rule.Count,
		untilColumn(e.Rule.Until),
		e.MasterDate,
		e.ID,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update event %d: %w", e.ID, mapConstraintError(err))
	}

	if t := parseTimestamp(createdAt); t != nil {
		e.CreatedAt = *t
	}
	if t := parseTimestamp(updatedAt); t != nil {
		e.UpdatedAt = *t
	}
	return nil
}

// DeleteEvent removes an event.
// Returns ErrNotFound if it doesn't exist.
func (db *DB) DeleteEvent(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM lunar_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CountEvents returns the number of stored events.
func (db *DB) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lunar_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
