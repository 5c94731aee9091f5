package review

import (
	"errors"
	"fmt"

	"github.com/abhisek/vocab/internal/spacedrep"
)

var (
	// ErrNotSaved is wrapped by every PersistenceError. A review that fails
	// with it was not applied.
	ErrNotSaved = errors.New("review not saved")

	// ErrRejected marks a store error as permanent. Stores wrap it when the
	// write can never succeed, so the controller does not retry.
	ErrRejected = errors.New("store rejected state")

	ErrUnknownItem   = errors.New("unknown item")
	ErrAlreadyExists = errors.New("item already enrolled")
	ErrSessionDone   = errors.New("session has no more items")
)

// PersistenceError reports that an advanced state could not be written.
type PersistenceError struct {
	ItemID   spacedrep.ItemID
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("review of %s not saved after %d attempt(s): %v", e.ItemID, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrNotSaved, e.Err} }
