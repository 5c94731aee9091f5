package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/vocab/internal/review"
)

// DayRepo accumulates per-day review counters. It implements
// review.DayRecorder and review.DayReader.
type DayRepo struct {
	drv *entsql.Driver
}

// RecordDay adds delta to the counters of day, creating the row if needed.
func (r *DayRepo) RecordDay(ctx context.Context, day review.Day, delta review.DayDelta) error {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(tableDays).
		Columns(colDay, colReviewed, colIntroduced, colLapsed, colMatured).
		Values(string(day), delta.Reviewed, delta.Introduced, delta.Lapsed, delta.Matured).
		OnConflict(
			entsql.ConflictColumns(colDay),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Add(colReviewed, delta.Reviewed)
				u.Add(colIntroduced, delta.Introduced)
				u.Add(colLapsed, delta.Lapsed)
				u.Add(colMatured, delta.Matured)
			}),
		).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return classify("record day "+string(day), err)
	}
	return nil
}

// Days returns stored day aggregates, newest first. limit <= 0 returns all.
func (r *DayRepo) Days(ctx context.Context, limit int) ([]review.LearningDay, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select(colDay, colReviewed, colIntroduced, colLapsed, colMatured).
		From(entsql.Table(tableDays)).
		OrderBy(entsql.Desc(colDay))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	defer rows.Close()

	var days []review.LearningDay
	for rows.Next() {
		var (
			d   review.LearningDay
			day string
		)
		if err := rows.Scan(&day, &d.Reviewed, &d.Introduced, &d.Lapsed, &d.Matured); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		d.Day = review.Day(day)
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate days: %w", err)
	}
	return days, nil
}
