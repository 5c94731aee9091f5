package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vocab/internal/spacedrep"
)

func TestNewController_RequiresDeps(t *testing.T) {
	sched, err := spacedrep.NewScheduler(spacedrep.DefaultConfig())
	require.NoError(t, err)

	_, err = NewController(Options{States: newMemStore()})
	assert.Error(t, err)

	_, err = NewController(Options{Scheduler: sched})
	assert.Error(t, err)
}

func TestEnroll(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)
	ctx := context.Background()

	st, err := c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)
	assert.Equal(t, spacedrep.PhaseNew, st.Phase)
	assert.Equal(t, t0, st.NextDueAt)
	assert.Equal(t, st, store.get("apple"))

	_, err = c.Enroll(ctx, "apple", t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, st, store.get("apple"), "existing state is kept")

	_, err = c.Enroll(ctx, "", t0)
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)

	require.NoError(t, c.Remove(ctx, "apple"))
	_, err = c.State(ctx, "apple")
	assert.ErrorIs(t, err, ErrUnknownItem)

	assert.ErrorIs(t, c.Remove(ctx, "apple"), ErrUnknownItem)
}

func TestGrade_AppliesAndRecordsDay(t *testing.T) {
	store := newMemStore()
	days := newMemDays()
	c := newTestController(t, store, days)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)

	out, err := c.Grade(ctx, spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Good, OccurredAt: t0})
	require.NoError(t, err)

	assert.Equal(t, spacedrep.GradeGood, out.Grade)
	assert.Equal(t, 1, out.After.IntervalDays)
	assert.Equal(t, 1, out.After.RepetitionCount)
	assert.Equal(t, spacedrep.PhaseLearning, out.After.Phase)
	assert.Equal(t, t0.AddDate(0, 0, 1), out.After.NextDueAt)
	assert.Equal(t, 1, out.Attempts)
	assert.False(t, out.Duplicate)
	assert.Equal(t, out.After, store.get("apple"))

	assert.Equal(t, Day("2025-04-01"), out.Day)
	assert.Equal(t, DayDelta{Reviewed: 1, Introduced: 1}, days.get("2025-04-01"))
}

func TestGrade_UnknownItem(t *testing.T) {
	c := newTestController(t, newMemStore(), nil)
	_, err := c.Grade(context.Background(), spacedrep.ReviewEvent{ItemID: "ghost", Signal: spacedrep.Good, OccurredAt: t0})
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestGrade_PersistenceFailureLeavesStateUnchanged(t *testing.T) {
	store := newMemStore()
	days := newMemDays()
	c := newTestController(t, store, days)
	ctx := context.Background()

	before, err := c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)

	store.failNext = 10
	store.failErr = errors.New("disk full")

	_, err = c.Grade(ctx, spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Good, OccurredAt: t0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSaved)
	assert.ErrorContains(t, err, "disk full")

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, spacedrep.ItemID("apple"), perr.ItemID)
	assert.Equal(t, 3, perr.Attempts)

	assert.Equal(t, before, store.get("apple"))
	assert.Equal(t, DayDelta{}, days.get("2025-04-01"), "no counters for an unsaved review")

	// The same review succeeds once the store recovers, and is applied once.
	store.failNext = 0
	out, err := c.Grade(ctx, spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Good, OccurredAt: t0})
	require.NoError(t, err)
	assert.Equal(t, 1, out.After.RepetitionCount)
}

func TestGrade_RetryWritesSameState(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)
	store.saved = nil
	store.saveCalls = 0

	store.failNext = 2
	store.failErr = errors.New("database is locked")

	out, err := c.Grade(ctx, spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Easy, OccurredAt: t0})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, store.saveCalls)
	require.Len(t, store.saved, 1)
	assert.Equal(t, out.After, store.saved[0])
	assert.Equal(t, 1, out.After.RepetitionCount, "review applied exactly once")
}

func TestGrade_RejectedIsNotRetried(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)
	store.saveCalls = 0

	store.failNext = 1
	store.failErr = fmt.Errorf("constraint failed: %w", ErrRejected)

	_, err = c.Grade(ctx, spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Good, OccurredAt: t0})
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, ErrNotSaved)
	assert.Equal(t, 1, store.saveCalls)
}

func TestGrade_CancelledContext(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)

	before, err := c.Enroll(context.Background(), "apple", t0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	store.onSave = func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	}

	_, err = c.Grade(ctx, spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Good, OccurredAt: t0})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrNotSaved)
	assert.Equal(t, before, store.get("apple"))
}

func TestGrade_DuplicateInstantIsIgnored(t *testing.T) {
	store := newMemStore()
	days := newMemDays()
	c := newTestController(t, store, days)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)

	ev := spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Good, OccurredAt: t0}
	first, err := c.Grade(ctx, ev)
	require.NoError(t, err)

	second, err := c.Grade(ctx, ev)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.After, second.After)
	assert.Equal(t, first.After, store.get("apple"))
	assert.Equal(t, 1, days.get("2025-04-01").Reviewed)
}

func TestGrade_DayRecorderFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	days := newMemDays()
	days.err = errors.New("redis down")
	c := newTestController(t, store, days)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)

	out, err := c.Grade(ctx, spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Good, OccurredAt: t0})
	require.NoError(t, err)
	assert.Equal(t, out.After, store.get("apple"))
}

func TestGrade_DayUsesLocation(t *testing.T) {
	sched, err := spacedrep.NewScheduler(spacedrep.DefaultConfig())
	require.NoError(t, err)
	loc := time.FixedZone("UTC+10", 10*3600)

	store := newMemStore()
	c, err := NewController(Options{Scheduler: sched, States: store, Location: loc, Retry: fastRetry()})
	require.NoError(t, err)
	ctx := context.Background()

	late := time.Date(2025, 4, 1, 20, 0, 0, 0, time.UTC)
	_, err = c.Enroll(ctx, "apple", late)
	require.NoError(t, err)

	out, err := c.Grade(ctx, spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Good, OccurredAt: late})
	require.NoError(t, err)
	assert.Equal(t, Day("2025-04-02"), out.Day)
}

func TestGrade_SameItemIsSerialized(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)

	var inFlight, maxInFlight atomic.Int32
	store.onSave = func(context.Context) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Grade(ctx, spacedrep.ReviewEvent{
				ItemID:     "apple",
				Signal:     spacedrep.Good,
				OccurredAt: t0.Add(time.Duration(i+1) * time.Minute),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, n, store.get("apple").RepetitionCount, "no review was lost")
	assert.Equal(t, 0, c.locks.size())
}

func TestGradeBatch(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)
	ctx := context.Background()

	for _, id := range []spacedrep.ItemID{"a", "b", "c"} {
		_, err := c.Enroll(ctx, id, t0)
		require.NoError(t, err)
	}

	events := []spacedrep.ReviewEvent{
		{ItemID: "a", Signal: spacedrep.Good, OccurredAt: t0},
		{ItemID: "b", Signal: spacedrep.Again, OccurredAt: t0},
		{ItemID: "a", Signal: spacedrep.Good, OccurredAt: t0.AddDate(0, 0, 1)},
		{ItemID: "c", Signal: spacedrep.Easy, OccurredAt: t0},
		{ItemID: "a", Signal: spacedrep.Good, OccurredAt: t0.AddDate(0, 0, 7)},
	}

	outs, err := c.GradeBatch(ctx, events)
	require.NoError(t, err)
	require.Len(t, outs, len(events))

	for i, ev := range events {
		assert.Equal(t, ev.ItemID, outs[i].ItemID)
	}
	assert.Equal(t, 1, outs[0].After.RepetitionCount)
	assert.Equal(t, 2, outs[2].After.RepetitionCount)
	assert.Equal(t, 3, outs[4].After.RepetitionCount)
	assert.Equal(t, 6, outs[2].After.IntervalDays)

	assert.Equal(t, spacedrep.PhaseLapsed, store.get("b").Phase)
	assert.Equal(t, 3, store.get("a").RepetitionCount)
}

func TestGradeBatch_StopsItemOnError(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "a", t0)
	require.NoError(t, err)

	events := []spacedrep.ReviewEvent{
		{ItemID: "ghost", Signal: spacedrep.Good, OccurredAt: t0},
	}
	_, err = c.GradeBatch(ctx, events)
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestDueQueue(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "b", t0)
	require.NoError(t, err)
	_, err = c.Enroll(ctx, "a", t0)
	require.NoError(t, err)
	_, err = c.Enroll(ctx, "later", t0.Add(48*time.Hour))
	require.NoError(t, err)

	due, err := c.DueQueue(ctx, t0.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, []spacedrep.ItemID{"a", "b"}, due)

	due, err = c.DueQueue(ctx, t0.Add(time.Hour), 1)
	require.NoError(t, err)
	assert.Equal(t, []spacedrep.ItemID{"a"}, due)
}

// dueStore filters due states itself.
type dueStore struct {
	*memStore
	calls int
}

func (d *dueStore) DueBefore(_ context.Context, now time.Time) (map[spacedrep.ItemID]spacedrep.State, error) {
	d.calls++
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[spacedrep.ItemID]spacedrep.State)
	for id, st := range d.states {
		if st.IsDue(now) {
			out[id] = st
		}
	}
	return out, nil
}

func TestDueQueue_UsesDueLoader(t *testing.T) {
	store := &dueStore{memStore: newMemStore()}
	c := newTestController(t, store, nil)
	ctx := context.Background()

	_, err := c.Enroll(ctx, "now", t0)
	require.NoError(t, err)
	_, err = c.Enroll(ctx, "later", t0.Add(48*time.Hour))
	require.NoError(t, err)

	due, err := c.DueQueue(ctx, t0.Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, []spacedrep.ItemID{"now"}, due)

	s, err := c.Begin(ctx, t0.Add(time.Hour), SessionOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Remaining())
	assert.Equal(t, 2, store.calls)
}

func TestGrade_AppendsHistory(t *testing.T) {
	sched, err := spacedrep.NewScheduler(spacedrep.DefaultConfig())
	require.NoError(t, err)
	store := newMemStore()
	hist := &memHistory{}
	c, err := NewController(Options{Scheduler: sched, States: store, History: hist, Retry: fastRetry()})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Enroll(ctx, "apple", t0)
	require.NoError(t, err)

	ev := spacedrep.ReviewEvent{ItemID: "apple", Signal: spacedrep.Hard, OccurredAt: t0}
	_, err = c.Grade(ctx, ev)
	require.NoError(t, err)
	_, err = c.Grade(ctx, ev)
	require.NoError(t, err)

	require.Len(t, hist.entries, 1, "duplicates are not logged")
	e := hist.entries[0]
	assert.Equal(t, spacedrep.ItemID("apple"), e.ItemID)
	assert.Equal(t, spacedrep.Hard, e.Signal)
	assert.Equal(t, spacedrep.GradeHard, e.Grade)
	assert.Equal(t, t0, e.OccurredAt)
	assert.Equal(t, 1, e.IntervalDays)
	assert.Equal(t, spacedrep.PhaseLearning, e.Phase)
}

func TestRestore(t *testing.T) {
	store := newMemStore()
	c := newTestController(t, store, nil)
	ctx := context.Background()

	sched := c.Scheduler()
	st := sched.Advance(sched.NewState(t0), spacedrep.GradeGood, t0)
	require.NoError(t, c.Restore(ctx, "apple", st))
	assert.Equal(t, st, store.get("apple"))

	bad := st
	bad.EaseFactor = 0.5
	assert.ErrorIs(t, c.Restore(ctx, "apple", bad), spacedrep.ErrInvariant)
	assert.Equal(t, st, store.get("apple"))

	assert.Error(t, c.Restore(ctx, "", st))
}
