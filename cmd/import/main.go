// Command import loads lunar events from a JSON file into the SQLite database.
//
// Usage:
//
//	go run ./cmd/import -json data/events.json -db data/amlich.db
//
// The file looks like:
//
//	{
//	  "source": "family register",
//	  "events": [
//	    {"name": "Giỗ ông nội", "master_date": "2019-04-14",
//	     "rule": {"frequency": "yearly", "day": 10, "month": 3}}
//	  ]
//	}
//
// All events are written in a single transaction. A name and master date
// that already exist fail the import unless -skip-existing is set.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lichviet/amlich-api/internal/database"
	"github.com/lichviet/amlich-api/internal/logger"
	"github.com/lichviet/amlich-api/internal/recurrence"
)

// ImportFile is the layout of the input JSON.
type ImportFile struct {
	Source string        `json:"source"`
	Events []ImportEvent `json:"events"`
}

// ImportEvent is one event in the input file.
type ImportEvent struct {
	Name       string          `json:"name"`
	Notes      *string         `json:"notes"`
	Rule       recurrence.Rule `json:"rule"`
	MasterDate string          `json:"master_date"`
}

// ImportStats tracks import statistics.
type ImportStats struct {
	Created int
	Skipped int
}

func main() {
	jsonPath := flag.String("json", "data/events.json", "Path to events JSON file")
	dbPath := flag.String("db", "data/amlich.db", "Path to SQLite database")
	skipExisting := flag.Bool("skip-existing", false, "Skip events whose name and master date already exist")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	log := logger.New(level, "text", os.Stdout)

	if err := run(*jsonPath, *dbPath, *skipExisting, log); err != nil {
		log.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("import complete")
}

func run(jsonPath, dbPath string, skipExisting bool, log *slog.Logger) error {
	ctx := context.Background()
	startTime := time.Now()

	log.Info("reading JSON file", slog.String("path", jsonPath))
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("read JSON file: %w", err)
	}

	var file ImportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	log.Info("parsed JSON",
		slog.Int("events", len(file.Events)),
		slog.String("source", file.Source),
	)

	db, err := database.Open(database.DefaultConfig(dbPath), log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	migrated, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations complete", slog.Int("applied", migrated))

	var stats ImportStats
	err = db.WithTx(ctx, func(tx *database.Tx) error {
		return importEvents(ctx, tx, file.Events, skipExisting, log, &stats)
	})
	if err != nil {
		return fmt.Errorf("import data: %w", err)
	}

	total, err := db.CountEvents(ctx)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}

	elapsed := time.Since(startTime)
	log.Info("import verified",
		slog.Int("events_in_db", total),
		slog.Duration("elapsed", elapsed),
	)

	fmt.Println()
	fmt.Println("=== Import Summary ===")
	fmt.Printf("Events created:  %d\n", stats.Created)
	fmt.Printf("Events skipped:  %d\n", stats.Skipped)
	fmt.Printf("Events in DB:    %d\n", total)
	fmt.Printf("Time elapsed:    %v\n", elapsed.Round(time.Millisecond))

	return nil
}

// importEvents inserts every event. Missing interval and leap policy take
// the same defaults as the HTTP API.
func importEvents(ctx context.Context, tx *database.Tx, events []ImportEvent, skipExisting bool, log *slog.Logger, stats *ImportStats) error {
	for i, in := range events {
		rule := in.Rule
		if rule.Interval == 0 {
			rule.Interval = 1
		}
		if rule.Leap == "" {
			rule.Leap = recurrence.LeapSkip
			if rule.Frequency == recurrence.Monthly {
				rule.Leap = recurrence.LeapInclude
			}
		}

		e := &database.Event{
			Name:       in.Name,
			Notes:      in.Notes,
			Rule:       rule,
			MasterDate: in.MasterDate,
		}
		if err := tx.CreateEvent(ctx, e); err != nil {
			if skipExisting && database.IsDuplicate(err) {
				log.Debug("skipping existing event", slog.String("name", e.Name))
				stats.Skipped++
				continue
			}
			return fmt.Errorf("create event %d (%s): %w", i+1, in.Name, err)
		}
		stats.Created++

		if (i+1)%100 == 0 {
			log.Debug("import progress",
				slog.Int("event", i+1),
				slog.Int("total", len(events)),
			)
		}
	}
	return nil
}
