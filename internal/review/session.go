package review

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/vocab/internal/spacedrep"
)

// Session is one review pass over the due queue. It keeps the states it
// loaded at Begin and updates an item only after its review is saved, so a
// failed or cancelled review leaves the session's view at the pre-review
// value.
type Session struct {
	ID      string
	Started time.Time

	ctrl    *Controller
	requeue bool

	mu       sync.Mutex
	queue    []spacedrep.ItemID
	pos      int
	states   map[spacedrep.ItemID]spacedrep.State
	outcomes []Outcome
	skipped  int
}

// SessionOptions configures Begin.
type SessionOptions struct {
	// Limit caps the number of due items pulled into the queue. 0 = unlimited.
	Limit int

	// RequeueLapsed puts items graded Again back at the end of the queue so
	// they are shown again before the session ends.
	RequeueLapsed bool
}

// Begin loads the due states and builds the queue of items due at now.
func (c *Controller) Begin(ctx context.Context, now time.Time, opts SessionOptions) (*Session, error) {
	states, err := c.dueStates(ctx, now)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:      uuid.New().String(),
		Started: now,
		ctrl:    c,
		requeue: opts.RequeueLapsed,
		queue:   spacedrep.DueItems(states, now, opts.Limit),
		states:  states,
	}
	c.log.Info("review session started", "session_id", s.ID, "due", len(s.queue))
	return s, nil
}

// Next returns the current item and its state without advancing.
// ok is false once the queue is exhausted.
func (s *Session) Next() (id spacedrep.ItemID, st spacedrep.State, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.queue) {
		return "", spacedrep.State{}, false
	}
	id = s.queue[s.pos]
	return id, s.states[id], true
}

// Submit grades the current item. On error the session does not move on and
// the item can be submitted again.
func (s *Session) Submit(ctx context.Context, sig spacedrep.Signal, now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.queue) {
		return Outcome{}, ErrSessionDone
	}
	id := s.queue[s.pos]

	out, err := s.ctrl.Grade(ctx, spacedrep.ReviewEvent{ItemID: id, Signal: sig, OccurredAt: now})
	if err != nil {
		return Outcome{}, err
	}

	s.states[id] = out.After
	s.outcomes = append(s.outcomes, out)
	s.pos++
	if s.requeue && out.After.Phase == spacedrep.PhaseLapsed {
		s.queue = append(s.queue, id)
	}
	return out, nil
}

// Skip moves past the current item without grading it.
func (s *Session) Skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < len(s.queue) {
		s.pos++
		s.skipped++
	}
}

// Remaining returns how many items are left in the queue.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) - s.pos
}

// State returns the session's view of an item.
func (s *Session) State(id spacedrep.ItemID) (spacedrep.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok
}

// Summary aggregates a session's results.
type Summary struct {
	SessionID string
	Started   time.Time
	Reviewed  int
	Skipped   int
	Remaining int
	Totals    DayDelta
	BySignal  map[spacedrep.Signal]int
}

// Summary returns the results so far.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		SessionID: s.ID,
		Started:   s.Started,
		Skipped:   s.skipped,
		Remaining: len(s.queue) - s.pos,
		BySignal:  make(map[spacedrep.Signal]int),
	}
	for _, o := range s.outcomes {
		if o.Duplicate {
			continue
		}
		sum.Reviewed++
		sum.Totals = sum.Totals.Add(o.Delta)
		sum.BySignal[o.Signal]++
	}
	return sum
}
