package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/vocab/internal/review"
	"github.com/abhisek/vocab/internal/spacedrep"
)

// HistoryRepo is the append-only review log. It implements
// review.HistoryRecorder and review.HistoryReader.
type HistoryRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

// AppendReview stores e under the next global sequence number.
func (r *HistoryRepo) AppendReview(ctx context.Context, e review.LogEntry) error {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}

	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(tableHistory).
		Columns(colSequence, colItemID, colSignal, colGrade, colOccurredAt,
			colEaseFactor, colIntervalDays, colState).
		Values(seq, string(e.ItemID), int(e.Signal), int(e.Grade), e.OccurredAt.UnixNano(),
			e.EaseFactor, e.IntervalDays, int(e.Phase)).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return classify("append review log", err)
	}
	return nil
}

// History returns the logged reviews of id, oldest first.
func (r *HistoryRepo) History(ctx context.Context, id spacedrep.ItemID, limit int) ([]review.LogEntry, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select(colSequence, colItemID, colSignal, colGrade, colOccurredAt,
			colEaseFactor, colIntervalDays, colState).
		From(entsql.Table(tableHistory)).
		Where(entsql.EQ(colItemID, string(id))).
		OrderBy(entsql.Desc(colSequence))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query review log: %w", err)
	}
	defer rows.Close()

	var entries []review.LogEntry
	for rows.Next() {
		var (
			e                    review.LogEntry
			item                 string
			signal, grade, phase int
			occurred             int64
		)
		if err := rows.Scan(&e.Sequence, &item, &signal, &grade, &occurred,
			&e.EaseFactor, &e.IntervalDays, &phase); err != nil {
			return nil, fmt.Errorf("scan review log: %w", err)
		}
		e.ItemID = spacedrep.ItemID(item)
		e.Signal = spacedrep.Signal(signal)
		e.Grade = spacedrep.Grade(grade)
		e.OccurredAt = time.Unix(0, occurred).UTC()
		e.Phase = spacedrep.Phase(phase)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review log: %w", err)
	}
	slices.Reverse(entries)
	return entries, nil
}

// Prune deletes log entries of items that no longer have a scheduling
// state.
func (r *HistoryRepo) Prune(ctx context.Context) error {
	states := entsql.Dialect(r.drv.Dialect()).Select(colItemID).From(entsql.Table(tableStates))
	query, args := entsql.Dialect(r.drv.Dialect()).
		Delete(tableHistory).
		Where(entsql.NotIn(colItemID, states)).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return classify("prune review log", err)
	}
	return nil
}
