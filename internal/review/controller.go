package review

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/vocab/internal/logger"
	"github.com/abhisek/vocab/internal/spacedrep"
)

// DefaultBatchConcurrency bounds how many items GradeBatch processes at once.
const DefaultBatchConcurrency = 8

// Options configures a Controller.
type Options struct {
	Scheduler *spacedrep.Scheduler
	States    StateStore
	Days      DayRecorder     // Optional.
	History   HistoryRecorder // Optional.
	Retry     RetryConfig
	Location  *time.Location // Calendar for day buckets. Default: UTC.
	Logger    *logger.Logger

	BatchConcurrency int
}

// Controller sequences review application: it loads an item's state,
// advances it with the scheduler, persists it and emits day counters.
// Reviews of the same item are serialized; different items run in parallel.
type Controller struct {
	sched  *spacedrep.Scheduler
	states StateStore
	days   DayRecorder
	hist   HistoryRecorder
	retry  RetryConfig
	loc    *time.Location
	log    *logger.Logger
	conc   int
	locks  *itemLocks
}

// NewController builds a controller. Scheduler and States are required.
func NewController(opts Options) (*Controller, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("review: scheduler is required")
	}
	if opts.States == nil {
		return nil, fmt.Errorf("review: state store is required")
	}
	c := &Controller{
		sched:  opts.Scheduler,
		states: opts.States,
		days:   opts.Days,
		hist:   opts.History,
		retry:  opts.Retry,
		loc:    opts.Location,
		log:    opts.Logger,
		conc:   opts.BatchConcurrency,
		locks:  newItemLocks(),
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = DefaultRetryConfig()
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.conc <= 0 {
		c.conc = DefaultBatchConcurrency
	}
	c.log = c.log.With("component", "review")
	return c, nil
}

// Scheduler returns the scheduler the controller applies.
func (c *Controller) Scheduler() *spacedrep.Scheduler {
	return c.sched
}

// Outcome describes one applied review.
type Outcome struct {
	ItemID   spacedrep.ItemID
	Signal   spacedrep.Signal
	Grade    spacedrep.Grade
	Before   spacedrep.State
	After    spacedrep.State
	Day      Day
	Delta    DayDelta
	Attempts int

	// Duplicate is set when the stored state already reflects a review at
	// the same instant. Nothing was written.
	Duplicate bool
}

// Enroll creates the initial state for an item entering the learning set.
func (c *Controller) Enroll(ctx context.Context, id spacedrep.ItemID, now time.Time) (spacedrep.State, error) {
	if id == "" {
		return spacedrep.State{}, fmt.Errorf("enroll: empty item id")
	}
	unlock := c.locks.lock(id)
	defer unlock()

	existing, err := c.states.Load(ctx, id)
	if err != nil {
		return spacedrep.State{}, fmt.Errorf("load %s: %w", id, err)
	}
	if existing != nil {
		return *existing, fmt.Errorf("enroll %s: %w", id, ErrAlreadyExists)
	}

	st := c.sched.NewState(now)
	if err := c.save(ctx, id, st); err != nil {
		return spacedrep.State{}, err
	}
	c.log.Debug("item enrolled", "item_id", id)
	return st, nil
}

// Remove deletes an item's state.
func (c *Controller) Remove(ctx context.Context, id spacedrep.ItemID) error {
	unlock := c.locks.lock(id)
	defer unlock()

	existing, err := c.states.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}
	if existing == nil {
		return fmt.Errorf("remove %s: %w", id, ErrUnknownItem)
	}
	if err := c.states.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Restore writes an externally supplied state, replacing any stored one.
// The state is validated against the scheduler's ease floor first.
func (c *Controller) Restore(ctx context.Context, id spacedrep.ItemID, st spacedrep.State) error {
	if id == "" {
		return fmt.Errorf("restore: empty item id")
	}
	if err := st.Validate(c.sched.Config().MinEase); err != nil {
		return fmt.Errorf("restore %s: %w", id, err)
	}
	unlock := c.locks.lock(id)
	defer unlock()
	return c.save(ctx, id, st)
}

// State returns the stored state of an item.
func (c *Controller) State(ctx context.Context, id spacedrep.ItemID) (spacedrep.State, error) {
	st, err := c.states.Load(ctx, id)
	if err != nil {
		return spacedrep.State{}, fmt.Errorf("load %s: %w", id, err)
	}
	if st == nil {
		return spacedrep.State{}, fmt.Errorf("%s: %w", id, ErrUnknownItem)
	}
	return *st, nil
}

// Snapshot loads every stored state.
func (c *Controller) Snapshot(ctx context.Context) (map[spacedrep.ItemID]spacedrep.State, error) {
	all, err := c.states.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}
	return all, nil
}

// DueQueue returns the items due at now, most overdue first.
func (c *Controller) DueQueue(ctx context.Context, now time.Time, limit int) ([]spacedrep.ItemID, error) {
	due, err := c.dueStates(ctx, now)
	if err != nil {
		return nil, err
	}
	return spacedrep.DueItems(due, now, limit), nil
}

// dueStates loads at least the states due at now.
func (c *Controller) dueStates(ctx context.Context, now time.Time) (map[spacedrep.ItemID]spacedrep.State, error) {
	dl, ok := c.states.(DueLoader)
	if !ok {
		return c.Snapshot(ctx)
	}
	due, err := dl.DueBefore(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("load due states: %w", err)
	}
	return due, nil
}

// Grade applies one review. The new state is committed only once the store
// accepts it; on failure the stored state is unchanged and the error wraps
// ErrNotSaved. Every retry writes the state computed once from the
// pre-review snapshot, so a review is never applied twice.
func (c *Controller) Grade(ctx context.Context, ev spacedrep.ReviewEvent) (Outcome, error) {
	unlock := c.locks.lock(ev.ItemID)
	defer unlock()

	log := c.log.With("item_id", ev.ItemID)

	stored, err := c.states.Load(ctx, ev.ItemID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load %s: %w", ev.ItemID, err)
	}
	if stored == nil {
		return Outcome{}, fmt.Errorf("grade %s: %w", ev.ItemID, ErrUnknownItem)
	}
	prev := *stored

	out := Outcome{
		ItemID: ev.ItemID,
		Signal: ev.Signal,
		Grade:  spacedrep.Classify(ev.Signal),
		Before: prev,
		Day:    DayOf(ev.OccurredAt, c.loc),
	}

	if prev.LastReviewedAt != nil && prev.LastReviewedAt.Equal(ev.OccurredAt) {
		log.Info("review already applied", "occurred_at", ev.OccurredAt)
		out.After = prev
		out.Duplicate = true
		return out, nil
	}
	if err := spacedrep.CheckTemporal(prev, ev.OccurredAt); err != nil {
		log.Warn("review time precedes last review", "error", err)
	}

	next := c.sched.Advance(prev, out.Grade, ev.OccurredAt)

	attempts, err := retry(ctx, c.retry, func(attempt int, err error) {
		log.Warn("saving state failed, retrying", "attempt", attempt, "error", err)
	}, func(ctx context.Context) error {
		return c.states.Save(ctx, ev.ItemID, next)
	})
	out.Attempts = attempts
	if err != nil {
		log.Error("review not saved", "attempts", attempts, "error", err)
		return Outcome{}, &PersistenceError{ItemID: ev.ItemID, Attempts: attempts, Err: err}
	}
	out.After = next
	out.Delta = DeltaFor(prev, next)

	if c.days != nil {
		if err := c.days.RecordDay(ctx, out.Day, out.Delta); err != nil {
			log.Warn("recording learning day failed", "day", out.Day, "error", err)
		}
	}
	if c.hist != nil {
		if err := c.hist.AppendReview(ctx, EntryFor(out)); err != nil {
			log.Warn("appending review log failed", "error", err)
		}
	}

	log.Debug("review applied",
		"grade", out.Grade.String(),
		"interval_days", next.IntervalDays,
		"ease_factor", next.EaseFactor,
		"phase", next.Phase.String(),
	)
	return out, nil
}

// GradeBatch applies reviews for many items. Events for the same item are
// applied in their original order; distinct items are processed in
// parallel. Outcomes are returned in event order; entries for events that
// did not run are zero.
func (c *Controller) GradeBatch(ctx context.Context, events []spacedrep.ReviewEvent) ([]Outcome, error) {
	outcomes := make([]Outcome, len(events))

	var order []spacedrep.ItemID
	groups := make(map[spacedrep.ItemID][]int)
	for i, ev := range events {
		if _, ok := groups[ev.ItemID]; !ok {
			order = append(order, ev.ItemID)
		}
		groups[ev.ItemID] = append(groups[ev.ItemID], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.conc)

	for _, id := range order {
		idx := groups[id]
		g.Go(func() error {
			for _, i := range idx {
				out, err := c.Grade(gctx, events[i])
				if err != nil {
					return err
				}
				outcomes[i] = out
			}
			return nil
		})
	}

	err := g.Wait()
	return outcomes, err
}

// save writes a state with retries.
func (c *Controller) save(ctx context.Context, id spacedrep.ItemID, st spacedrep.State) error {
	attempts, err := retry(ctx, c.retry, func(attempt int, err error) {
		c.log.Warn("saving state failed, retrying", "item_id", id, "attempt", attempt, "error", err)
	}, func(ctx context.Context) error {
		return c.states.Save(ctx, id, st)
	})
	if err != nil {
		return &PersistenceError{ItemID: id, Attempts: attempts, Err: err}
	}
	return nil
}
