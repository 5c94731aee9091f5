package spacedrep

import (
	"fmt"
	"math"
	"time"
)

// ItemID identifies a learning item (a saved vocabulary entry).
type ItemID string

// Phase is the derived classification of an item used for grouping.
// The numeric values are part of the persisted format.
type Phase int

const (
	PhaseNew      Phase = 0
	PhaseLearning Phase = 1
	PhaseReview   Phase = 2
	PhaseLapsed   Phase = 3
)

var phaseNames = [...]string{
	PhaseNew:      "new",
	PhaseLearning: "learning",
	PhaseReview:   "review",
	PhaseLapsed:   "lapsed",
}

// IsValid reports whether p is one of the four defined phases.
func (p Phase) IsValid() bool {
	return p >= PhaseNew && p <= PhaseLapsed
}

func (p Phase) String() string {
	if p.IsValid() {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: unknown phase %d", ErrInvariant, int(p))
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown phase %q", ErrInvariant, text)
}

// State is the per-item scheduling record. It has no wire form of its own;
// stores and exports persist it as a Record.
type State struct {
	EaseFactor      float64
	IntervalDays    int
	RepetitionCount int
	LapseCount      int
	LastReviewedAt  *time.Time // nil before first review.
	NextDueAt       time.Time
	Phase           Phase
}

// NewState creates the state for an item entering the learning set at now.
// It is due immediately.
func NewState(cfg Config, now time.Time) State {
	return State{
		EaseFactor: cfg.DefaultEase,
		NextDueAt:  now.UTC(),
		Phase:      PhaseNew,
	}
}

// clone returns a copy that shares no pointers with s.
func (s State) clone() State {
	out := s
	if s.LastReviewedAt != nil {
		t := *s.LastReviewedAt
		out.LastReviewedAt = &t
	}
	return out
}

// Reviewed reports whether the item has been reviewed at least once.
func (s *State) Reviewed() bool {
	return s.LastReviewedAt != nil
}

// IsDue returns true if the item is due at now (at or past NextDueAt).
func (s *State) IsDue(now time.Time) bool {
	return !now.Before(s.NextDueAt)
}

// OverdueDays returns how many days past due the item is. Returns 0 if not yet due.
func (s *State) OverdueDays(now time.Time) float64 {
	if now.Before(s.NextDueAt) {
		return 0
	}
	return now.Sub(s.NextDueAt).Hours() / 24.0
}

// DaysUntilDue returns the number of whole days until the item is due,
// rounded up. Returns 0 if already due.
func (s *State) DaysUntilDue(now time.Time) int {
	if s.IsDue(now) {
		return 0
	}
	return int(math.Ceil(s.NextDueAt.Sub(now).Hours() / 24.0))
}

// Validate checks the structural invariants of a state against the
// ease floor. It is used when loading states from outside the scheduler.
func (s *State) Validate(minEase float64) error {
	switch {
	case !s.Phase.IsValid():
		return fmt.Errorf("%w: unknown phase %d", ErrInvariant, int(s.Phase))
	case s.IntervalDays < 0 || s.RepetitionCount < 0 || s.LapseCount < 0:
		return fmt.Errorf("%w: negative counter", ErrInvariant)
	case math.IsNaN(s.EaseFactor) || s.EaseFactor < minEase:
		return fmt.Errorf("%w: ease factor %v below floor %v", ErrInvariant, s.EaseFactor, minEase)
	case s.IntervalDays == 0 && s.Phase != PhaseNew && s.Phase != PhaseLapsed:
		return fmt.Errorf("%w: zero interval in phase %s", ErrInvariant, s.Phase)
	case s.RepetitionCount > 0 && s.Phase != PhaseLearning && s.Phase != PhaseReview:
		return fmt.Errorf("%w: %d repetitions in phase %s", ErrInvariant, s.RepetitionCount, s.Phase)
	case s.Phase == PhaseNew && s.Reviewed():
		return fmt.Errorf("%w: new item has a review time", ErrInvariant)
	case s.Phase != PhaseNew && !s.Reviewed():
		return fmt.Errorf("%w: phase %s without a review time", ErrInvariant, s.Phase)
	}
	if s.Reviewed() {
		want := s.LastReviewedAt.AddDate(0, 0, s.IntervalDays)
		if !want.Equal(s.NextDueAt) {
			return fmt.Errorf("%w: next due %s, want %s", ErrInvariant,
				s.NextDueAt.Format(time.RFC3339), want.Format(time.RFC3339))
		}
	}
	return nil
}

// CheckTemporal returns ErrTemporalInversion when now precedes the last
// review. The scheduler computes forward from now regardless; callers use
// this to report the contract violation.
func CheckTemporal(s State, now time.Time) error {
	if s.LastReviewedAt != nil && now.Before(*s.LastReviewedAt) {
		return fmt.Errorf("%w: now %s, last reviewed %s", ErrTemporalInversion,
			now.Format(time.RFC3339), s.LastReviewedAt.Format(time.RFC3339))
	}
	return nil
}

// ReviewEvent is a single graded review of an item. It is not persisted.
type ReviewEvent struct {
	ItemID     ItemID
	Signal     Signal
	OccurredAt time.Time
}
