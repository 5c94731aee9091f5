package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/vocab/internal/spacedrep"
)

// StateRepo persists scheduling states in SQLite. It implements
// review.StateStore.
type StateRepo struct {
	drv     *entsql.Driver
	minEase float64
}

// WithMinEase returns a repository that validates loaded states against
// minEase.
func (r *StateRepo) WithMinEase(minEase float64) *StateRepo {
	return &StateRepo{drv: r.drv, minEase: minEase}
}

var stateColumns = []string{
	colItemID, colEaseFactor, colIntervalDays, colRepetitionCount,
	colLapseCount, colLastReviewedAt, colNextDueAt, colState,
}

// Save inserts or replaces the state of id.
func (r *StateRepo) Save(ctx context.Context, id spacedrep.ItemID, st spacedrep.State) error {
	var last any
	if st.LastReviewedAt != nil {
		last = st.LastReviewedAt.UnixNano()
	}

	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(tableStates).
		Columns(stateColumns...).
		Values(string(id), st.EaseFactor, st.IntervalDays, st.RepetitionCount,
			st.LapseCount, last, st.NextDueAt.UnixNano(), int(st.Phase)).
		OnConflict(entsql.ConflictColumns(colItemID), entsql.ResolveWithNewValues()).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return classify("save state "+string(id), err)
	}
	return nil
}

// Load returns the state of id, or nil if the item is unknown.
func (r *StateRepo) Load(ctx context.Context, id spacedrep.ItemID) (*spacedrep.State, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(stateColumns...).
		From(entsql.Table(tableStates)).
		Where(entsql.EQ(colItemID, string(id))).
		Query()

	states, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	st, ok := states[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// Delete removes the state of id. Deleting an unknown item is not an error.
func (r *StateRepo) Delete(ctx context.Context, id spacedrep.ItemID) error {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Delete(tableStates).
		Where(entsql.EQ(colItemID, string(id))).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return classify("delete state "+string(id), err)
	}
	return nil
}

// All returns every stored state.
func (r *StateRepo) All(ctx context.Context) (map[spacedrep.ItemID]spacedrep.State, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(stateColumns...).
		From(entsql.Table(tableStates)).
		Query()
	return r.query(ctx, query, args)
}

// DueBefore returns the states due at or before now. The filter runs in
// SQL on the next_due_at index.
func (r *StateRepo) DueBefore(ctx context.Context, now time.Time) (map[spacedrep.ItemID]spacedrep.State, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(stateColumns...).
		From(entsql.Table(tableStates)).
		Where(entsql.LTE(colNextDueAt, now.UnixNano())).
		Query()
	return r.query(ctx, query, args)
}

func (r *StateRepo) query(ctx context.Context, query string, args []any) (map[spacedrep.ItemID]spacedrep.State, error) {
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	out := make(map[spacedrep.ItemID]spacedrep.State)
	for rows.Next() {
		var (
			id    string
			st    spacedrep.State
			last  sql.NullInt64
			due   int64
			phase int
		)
		if err := rows.Scan(&id, &st.EaseFactor, &st.IntervalDays, &st.RepetitionCount,
			&st.LapseCount, &last, &due, &phase); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		if last.Valid {
			t := time.Unix(0, last.Int64).UTC()
			st.LastReviewedAt = &t
		}
		st.NextDueAt = time.Unix(0, due).UTC()
		st.Phase = spacedrep.Phase(phase)
		if err := st.Validate(r.minEase); err != nil {
			return nil, fmt.Errorf("decode state %s: %w", id, err)
		}
		out[spacedrep.ItemID(id)] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate states: %w", err)
	}
	return out, nil
}
