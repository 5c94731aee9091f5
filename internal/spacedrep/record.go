package spacedrep

import (
	"fmt"
	"time"
)

// Record is the flat persisted form of a State. Timestamps are RFC 3339
// strings with nanosecond precision and the phase uses its numeric code,
// so a State survives ToRecord/FromRecord unchanged.
type Record struct {
	ItemID          string  `json:"item_id"`
	EaseFactor      float64 `json:"ease_factor"`
	IntervalDays    int     `json:"interval_days"`
	RepetitionCount int     `json:"repetition_count"`
	LapseCount      int     `json:"lapse_count"`
	LastReviewedAt  *string `json:"last_reviewed_at"`
	NextDueAt       string  `json:"next_due_at"`
	State           int     `json:"state"`
}

// ToRecord exports a state for persistence.
func ToRecord(id ItemID, st State) Record {
	rec := Record{
		ItemID:          string(id),
		EaseFactor:      st.EaseFactor,
		IntervalDays:    st.IntervalDays,
		RepetitionCount: st.RepetitionCount,
		LapseCount:      st.LapseCount,
		NextDueAt:       st.NextDueAt.UTC().Format(time.RFC3339Nano),
		State:           int(st.Phase),
	}
	if st.LastReviewedAt != nil {
		s := st.LastReviewedAt.UTC().Format(time.RFC3339Nano)
		rec.LastReviewedAt = &s
	}
	return rec
}

// FromRecord parses a persisted record and validates the resulting state
// against the ease floor.
func FromRecord(rec Record, minEase float64) (ItemID, State, error) {
	if rec.ItemID == "" {
		return "", State{}, fmt.Errorf("%w: empty item id", ErrInvariant)
	}
	next, err := time.Parse(time.RFC3339Nano, rec.NextDueAt)
	if err != nil {
		return "", State{}, fmt.Errorf("parse next_due_at for %s: %w", rec.ItemID, err)
	}
	st := State{
		EaseFactor:      rec.EaseFactor,
		IntervalDays:    rec.IntervalDays,
		RepetitionCount: rec.RepetitionCount,
		LapseCount:      rec.LapseCount,
		NextDueAt:       next.UTC(),
		Phase:           Phase(rec.State),
	}
	if rec.LastReviewedAt != nil {
		last, err := time.Parse(time.RFC3339Nano, *rec.LastReviewedAt)
		if err != nil {
			return "", State{}, fmt.Errorf("parse last_reviewed_at for %s: %w", rec.ItemID, err)
		}
		last = last.UTC()
		st.LastReviewedAt = &last
	}
	if err := st.Validate(minEase); err != nil {
		return "", State{}, fmt.Errorf("record %s: %w", rec.ItemID, err)
	}
	return ItemID(rec.ItemID), st, nil
}

// Records exports a set of states sorted by item ID.
func Records(states map[ItemID]State) []Record {
	ids := make([]ItemID, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sortIDs(ids)
	out := make([]Record, len(ids))
	for i, id := range ids {
		out[i] = ToRecord(id, states[id])
	}
	return out
}
