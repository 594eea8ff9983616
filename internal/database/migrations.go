package database

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	sql     string
}

// migrations must stay sorted by version; versions are never reused.
var migrations = []migration{
	{1, "lunar events", migrationV1LunarEvents},
	{2, "event indexes", migrationV2EventIndexes},
}

// migrationV1LunarEvents creates the events table.
//
// An event is stored as its recurrence rule, not as dates: occurrences are
// expanded at request time, so a fix to the calendar engine never leaves
// stale rows behind.
const migrationV1LunarEvents = `
-- Migration 001: lunar events

CREATE TABLE IF NOT EXISTS lunar_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    name TEXT NOT NULL,
    notes TEXT,

    -- Recurrence rule
    frequency TEXT NOT NULL CHECK (frequency IN ('monthly', 'yearly')),
    lunar_day INTEGER NOT NULL CHECK (lunar_day BETWEEN 1 AND 30),
    lunar_month INTEGER NOT NULL DEFAULT 0 CHECK (lunar_month BETWEEN 0 AND 12),
    leap_policy TEXT NOT NULL DEFAULT 'skip' CHECK (leap_policy IN ('include', 'skip', 'only')),
    interval INTEGER NOT NULL DEFAULT 1 CHECK (interval >= 1),
    count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
    until TEXT,

    -- First occurrence, YYYY-MM-DD in UTC+7
    master_date TEXT NOT NULL,

    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),

    UNIQUE (name, master_date)
);
`

const migrationV2EventIndexes = `
-- Migration 002: lookup indexes

CREATE INDEX IF NOT EXISTS idx_lunar_events_month_day
    ON lunar_events (lunar_month, lunar_day);

CREATE INDEX IF NOT EXISTS idx_lunar_events_master_date
    ON lunar_events (master_date);
`
