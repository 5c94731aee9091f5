package review

import (
	"context"
	"time"

	"github.com/abhisek/vocab/internal/spacedrep"
)

// StateStore persists scheduling states. Load returns (nil, nil) when the
// item has no state.
type StateStore interface {
	Save(ctx context.Context, id spacedrep.ItemID, st spacedrep.State) error
	Load(ctx context.Context, id spacedrep.ItemID) (*spacedrep.State, error)
	Delete(ctx context.Context, id spacedrep.ItemID) error
	All(ctx context.Context) (map[spacedrep.ItemID]spacedrep.State, error)
}

// DueLoader is implemented by stores that can select due states themselves.
// The controller uses it instead of StateStore.All when building queues.
type DueLoader interface {
	DueBefore(ctx context.Context, now time.Time) (map[spacedrep.ItemID]spacedrep.State, error)
}

// Day is a calendar date key formatted as YYYY-MM-DD.
type Day string

// DayLayout is the time layout of a Day.
const DayLayout = "2006-01-02"

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc).Format(DayLayout))
}

// DayDelta is the increment a single committed review contributes to the
// learning day aggregate.
type DayDelta struct {
	Reviewed   int `json:"reviewed"`
	Introduced int `json:"introduced"` // First review of a new item.
	Lapsed     int `json:"lapsed"`
	Matured    int `json:"matured"` // Entered the review phase.
}

// Add returns the element-wise sum of d and o.
func (d DayDelta) Add(o DayDelta) DayDelta {
	return DayDelta{
		Reviewed:   d.Reviewed + o.Reviewed,
		Introduced: d.Introduced + o.Introduced,
		Lapsed:     d.Lapsed + o.Lapsed,
		Matured:    d.Matured + o.Matured,
	}
}

// DeltaFor derives the day counters for a transition from prev to next.
func DeltaFor(prev, next spacedrep.State) DayDelta {
	d := DayDelta{Reviewed: 1}
	if prev.Phase == spacedrep.PhaseNew {
		d.Introduced = 1
	}
	if next.Phase == spacedrep.PhaseLapsed {
		d.Lapsed = 1
	}
	if next.Phase == spacedrep.PhaseReview && prev.Phase != spacedrep.PhaseReview {
		d.Matured = 1
	}
	return d
}

// DayRecorder receives per-day review counters.
type DayRecorder interface {
	RecordDay(ctx context.Context, day Day, delta DayDelta) error
}

// LearningDay is a stored day aggregate.
type LearningDay struct {
	Day Day
	DayDelta
}

// DayReader lists stored day aggregates, newest first. Implemented by the
// stores; used by reporting commands.
type DayReader interface {
	Days(ctx context.Context, limit int) ([]LearningDay, error)
}

// LogEntry is one applied review as kept in the review log.
type LogEntry struct {
	Sequence     int64 // Assigned by the log.
	ItemID       spacedrep.ItemID
	Signal       spacedrep.Signal
	Grade        spacedrep.Grade
	OccurredAt   time.Time
	EaseFactor   float64 // After the review.
	IntervalDays int
	Phase        spacedrep.Phase
}

// EntryFor builds the log entry of an applied review.
func EntryFor(out Outcome) LogEntry {
	return LogEntry{
		ItemID:       out.ItemID,
		Signal:       out.Signal,
		Grade:        out.Grade,
		OccurredAt:   *out.After.LastReviewedAt,
		EaseFactor:   out.After.EaseFactor,
		IntervalDays: out.After.IntervalDays,
		Phase:        out.After.Phase,
	}
}

// HistoryRecorder appends applied reviews to a log.
type HistoryRecorder interface {
	AppendReview(ctx context.Context, e LogEntry) error
}

// HistoryReader returns an item's logged reviews, oldest first. A limit
// <= 0 returns all of them; otherwise the most recent limit entries.
type HistoryReader interface {
	History(ctx context.Context, id spacedrep.ItemID, limit int) ([]LogEntry, error)
}
