package review

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abhisek/vocab/internal/spacedrep"
)

// memStore is an in-memory StateStore with injectable save failures.
type memStore struct {
	mu     sync.Mutex
	states map[spacedrep.ItemID]spacedrep.State

	saveCalls int
	saved     []spacedrep.State
	failNext  int   // number of upcoming saves to fail
	failErr   error // error returned by failing saves
	onSave    func(ctx context.Context) error
}

func newMemStore() *memStore {
	return &memStore{states: make(map[spacedrep.ItemID]spacedrep.State)}
}

func (m *memStore) Save(ctx context.Context, id spacedrep.ItemID, st spacedrep.State) error {
	m.mu.Lock()
	hook := m.onSave
	m.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.failNext > 0 {
		m.failNext--
		return m.failErr
	}
	m.states[id] = st
	m.saved = append(m.saved, st)
	return nil
}

func (m *memStore) Load(_ context.Context, id spacedrep.ItemID) (*spacedrep.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *memStore) Delete(_ context.Context, id spacedrep.ItemID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

func (m *memStore) All(_ context.Context) (map[spacedrep.ItemID]spacedrep.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[spacedrep.ItemID]spacedrep.State, len(m.states))
	for id, st := range m.states {
		out[id] = st
	}
	return out, nil
}

func (m *memStore) get(id spacedrep.ItemID) spacedrep.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id]
}

// memDays records day deltas.
type memDays struct {
	mu   sync.Mutex
	days map[Day]DayDelta
	err  error
}

func newMemDays() *memDays {
	return &memDays{days: make(map[Day]DayDelta)}
}

func (m *memDays) RecordDay(_ context.Context, day Day, delta DayDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.days[day] = m.days[day].Add(delta)
	return nil
}

func (m *memDays) get(day Day) DayDelta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.days[day]
}

var t0 = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func newTestController(t *testing.T, states StateStore, days DayRecorder) *Controller {
	t.Helper()
	sched, err := spacedrep.NewScheduler(spacedrep.DefaultConfig())
	require.NoError(t, err)
	c, err := NewController(Options{
		Scheduler: sched,
		States:    states,
		Days:      days,
		Retry:     fastRetry(),
	})
	require.NoError(t, err)
	return c
}

// memHistory collects appended log entries.
type memHistory struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (m *memHistory) AppendReview(_ context.Context, e LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Sequence = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}
