package database

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/lichviet/amlich-api/internal/calendar"
	"github.com/lichviet/amlich-api/internal/recurrence"
)

// testDB creates a temporary in-memory database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()

	cfg := Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}

	// Quiet logger for tests
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	db, err := Open(cfg, logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func strPtr(s string) *string {
	return &s
}

func anniversary(name string) *Event {
	return &Event{
		Name:       name,
		Notes:      strPtr("giỗ"),
		Rule:       recurrence.YearlyOn(15, 8),
		MasterDate: "2024-09-17",
	}
}

// -----------------------------------------------------------------
// DB tests
// -----------------------------------------------------------------

func TestOpen(t *testing.T) {
	db := testDB(t)

	if err := db.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestMigrate(t *testing.T) {
	db := testDB(t)

	// Running again should be a no-op
	count, err := db.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Migrate() count = %d, want 0 (already applied)", count)
	}

	var version int
	var name string
	err = db.QueryRowContext(context.Background(),
		"SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&version, &name)
	if err != nil {
		t.Fatalf("read schema_migrations: %v", err)
	}
	if latest := migrations[len(migrations)-1]; version != latest.version || name != latest.name {
		t.Errorf("latest migration = %d %q, want %d %q", version, name, latest.version, latest.name)
	}
}

func TestConfigDSN(t *testing.T) {
	if got := DefaultConfig(":memory:").dsn(); got != ":memory:?_foreign_keys=ON&_busy_timeout=5000" {
		t.Errorf("memory dsn = %q", got)
	}
	if got := DefaultConfig("data/amlich.db").dsn(); got != "data/amlich.db?_foreign_keys=ON&_busy_timeout=5000&_journal_mode=WAL" {
		t.Errorf("file dsn = %q", got)
	}
}

// SQLite's julianday() is an independent implementation of the same Julian
// date; the engine must agree with it to well under a second.
func TestJulianDayMatchesSQLite(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	tests := []time.Time{
		time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC),
		time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 10, 5, 59, 0, 0, time.UTC),
		time.Date(2100, time.December, 31, 23, 0, 0, 0, time.UTC),
	}

	for _, tt := range tests {
		var want float64
		err := db.QueryRowContext(ctx, "SELECT julianday(?)", tt.Format("2006-01-02 15:04:05")).Scan(&want)
		if err != nil {
			t.Fatalf("julianday(%v): %v", tt, err)
		}
		got := calendar.ToJulianDay(tt, 0)
		if math.Abs(got-want) > 1e-5 {
			t.Errorf("ToJulianDay(%v) = %.6f, SQLite julianday = %.6f", tt, got, want)
		}
	}
}

// -----------------------------------------------------------------
// Event tests
// -----------------------------------------------------------------

func TestCreateEvent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	e := anniversary("Giỗ ông nội")
	if err := db.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if e.ID == 0 {
		t.Error("CreateEvent() did not set ID")
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreateEvent() did not set CreatedAt")
	}

	got, err := db.GetEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Name != e.Name || got.MasterDate != e.MasterDate {
		t.Errorf("GetEvent() = %+v, want %+v", got, e)
	}
	if got.Rule.Frequency != recurrence.Yearly || got.Rule.Day != 15 || got.Rule.Month != 8 {
		t.Errorf("GetEvent() rule = %+v", got.Rule)
	}
	if got.Notes == nil || *got.Notes != "giỗ" {
		t.Errorf("GetEvent() notes = %v, want giỗ", got.Notes)
	}
}

func TestCreateEvent_NormalizesName(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	// "Giỗ" spelled with combining marks.
	decomposed := "Gio\u0302\u0303 ba"
	e := anniversary(decomposed)
	if err := db.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	got, err := db.GetEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Name != "Gi\u1ed7 ba" {
		t.Errorf("stored name = %q, want NFC %q", got.Name, "Gi\u1ed7 ba")
	}

	// The precomposed spelling collides with the decomposed one.
	dup := anniversary("Gi\u1ed7 ba")
	if err := db.CreateEvent(ctx, dup); !IsDuplicate(err) {
		t.Errorf("CreateEvent() duplicate error = %v, want ErrDuplicate", err)
	}
}

func TestCreateEvent_Invalid(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		event *Event
	}{
		{"empty name", &Event{Name: "  ", Rule: recurrence.YearlyOn(1, 1), MasterDate: "2024-01-01"}},
		{"bad rule", &Event{Name: "x", Rule: recurrence.Rule{Frequency: "weekly"}, MasterDate: "2024-01-01"}},
		{"bad master date", &Event{Name: "x", Rule: recurrence.YearlyOn(1, 1), MasterDate: "01/01/2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.CreateEvent(ctx, tt.event)
			if !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("CreateEvent() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestCreateEvent_Until(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	until := time.Date(2030, time.December, 31, 0, 0, 0, 0, calendar.Zone)
	e := &Event{
		Name:       "Rằm",
		Rule:       recurrence.Rule{Frequency: recurrence.Monthly, Day: 15, Leap: recurrence.LeapInclude, Interval: 1, Until: &until},
		MasterDate: "2025-02-12",
	}
	if err := db.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	got, err := db.GetEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Rule.Until == nil || !got.Rule.Until.Equal(until) {
		t.Errorf("GetEvent() until = %v, want %v", got.Rule.Until, until)
	}
	if got.Notes != nil {
		t.Errorf("GetEvent() notes = %v, want nil", got.Notes)
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.GetEvent(context.Background(), 999)
	if !IsNotFound(err) {
		t.Errorf("GetEvent() error = %v, want ErrNotFound", err)
	}
}

func TestListEvents(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, name := range []string{"Giỗ ông", "Giỗ bà", "Giỗ cụ"} {
		if err := db.CreateEvent(ctx, anniversary(name)); err != nil {
			t.Fatalf("CreateEvent(%q) error = %v", name, err)
		}
	}

	list, err := db.ListEvents(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if list.Total != 3 {
		t.Errorf("Total = %d, want 3", list.Total)
	}
	if len(list.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(list.Events))
	}
	if list.Events[0].Name != "Giỗ ông" {
		t.Errorf("first event = %q, want %q", list.Events[0].Name, "Giỗ ông")
	}

	list, err = db.ListEvents(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(list.Events) != 1 || list.Events[0].Name != "Giỗ cụ" {
		t.Errorf("second page = %+v", list.Events)
	}

	n, err := db.CountEvents(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountEvents() = %d, %v, want 3", n, err)
	}
}

func TestListEvents_Empty(t *testing.T) {
	db := testDB(t)

	list, err := db.ListEvents(context.Background(), 0, -5)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if list.Events == nil || len(list.Events) != 0 {
		t.Errorf("Events = %v, want empty slice", list.Events)
	}
	if list.Limit != 50 || list.Offset != 0 {
		t.Errorf("Limit/Offset = %d/%d, want 50/0", list.Limit, list.Offset)
	}
}

func TestUpdateEvent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	e := anniversary("Giỗ ông")
	if err := db.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	e.Name = "Giỗ ông ngoại"
	e.Rule = recurrence.YearlyOn(10, 3)
	e.Notes = nil
	if err := db.UpdateEvent(ctx, e); err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}

	got, err := db.GetEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Name != "Giỗ ông ngoại" || got.Rule.Day != 10 || got.Rule.Month != 3 || got.Notes != nil {
		t.Errorf("GetEvent() after update = %+v", got)
	}

	missing := anniversary("nobody")
	missing.ID = 999
	if err := db.UpdateEvent(ctx, missing); !IsNotFound(err) {
		t.Errorf("UpdateEvent() missing error = %v, want ErrNotFound", err)
	}
}

func TestDeleteEvent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	e := anniversary("Giỗ ông")
	if err := db.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	if err := db.DeleteEvent(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	if _, err := db.GetEvent(ctx, e.ID); !IsNotFound(err) {
		t.Errorf("GetEvent() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteEvent(ctx, e.ID); !IsNotFound(err) {
		t.Errorf("DeleteEvent() twice error = %v, want ErrNotFound", err)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.CreateEvent(ctx, anniversary("Giỗ ông")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	n, err := db.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountEvents() after rollback = %d, want 0", n)
	}
}

func TestWithTx_Commit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		for _, name := range []string{"a", "b"} {
			if err := tx.CreateEvent(ctx, anniversary(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	n, err := db.CountEvents(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountEvents() = %d, %v, want 2", n, err)
	}
}

func TestWithTx_Panic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("WithTx() swallowed the panic")
			}
		}()
		_ = db.WithTx(ctx, func(tx *Tx) error {
			if err := tx.CreateEvent(ctx, anniversary("Giỗ bà")); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	n, err := db.CountEvents(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountEvents() after panic = %d, %v, want 0", n, err)
	}
}
