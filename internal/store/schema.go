package store

import (
	"database/sql"
	"fmt"
)

// Table and column names shared by the repositories.
const (
	tableStates  = "scheduling_states"
	tableDays    = "learning_days"
	tableHistory = "review_log"

	colItemID          = "item_id"
	colEaseFactor      = "ease_factor"
	colIntervalDays    = "interval_days"
	colRepetitionCount = "repetition_count"
	colLapseCount      = "lapse_count"
	colLastReviewedAt  = "last_reviewed_at"
	colNextDueAt       = "next_due_at"
	colState           = "state"

	colDay        = "day"
	colReviewed   = "reviewed"
	colIntroduced = "introduced"
	colLapsed     = "lapsed"
	colMatured    = "matured"

	colSequence   = "sequence"
	colSignal     = "signal"
	colGrade      = "grade"
	colOccurredAt = "occurred_at"
)

// Timestamps are stored as Unix nanoseconds so a round trip is lossless.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS scheduling_states (
		item_id          TEXT PRIMARY KEY NOT NULL CHECK (item_id <> ''),
		ease_factor      REAL NOT NULL CHECK (ease_factor > 0),
		interval_days    INTEGER NOT NULL CHECK (interval_days >= 0),
		repetition_count INTEGER NOT NULL CHECK (repetition_count >= 0),
		lapse_count      INTEGER NOT NULL CHECK (lapse_count >= 0),
		last_reviewed_at INTEGER,
		next_due_at      INTEGER NOT NULL,
		state            INTEGER NOT NULL CHECK (state BETWEEN 0 AND 3)
	)`,
	`CREATE INDEX IF NOT EXISTS scheduling_states_next_due_at ON scheduling_states (next_due_at)`,
	`CREATE TABLE IF NOT EXISTS learning_days (
		day        TEXT PRIMARY KEY NOT NULL,
		reviewed   INTEGER NOT NULL DEFAULT 0,
		introduced INTEGER NOT NULL DEFAULT 0,
		lapsed     INTEGER NOT NULL DEFAULT 0,
		matured    INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS review_log (
		sequence      INTEGER PRIMARY KEY,
		item_id       TEXT NOT NULL,
		signal        INTEGER NOT NULL,
		grade         INTEGER NOT NULL,
		occurred_at   INTEGER NOT NULL,
		ease_factor   REAL NOT NULL,
		interval_days INTEGER NOT NULL,
		state         INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS review_log_item_id ON review_log (item_id, sequence)`,
}

// migrate creates missing tables and indexes.
func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
