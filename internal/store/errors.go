package store

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/abhisek/vocab/internal/review"
)

// classify wraps SQLite errors that no retry can fix with review.ErrRejected.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_MISMATCH:
			return fmt.Errorf("%s: %w: %w", op, review.ErrRejected, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
