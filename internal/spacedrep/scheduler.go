package spacedrep

import (
	"math"
	"time"
)

// Scheduler computes the next scheduling state after a review. It holds
// only immutable configuration and is safe for concurrent use.
type Scheduler struct {
	cfg Config
}

// NewScheduler validates cfg and returns a scheduler using it.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{cfg: cfg}, nil
}

// Config returns the scheduler's configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// NewState creates the state for an item entering the learning set at now.
func (s *Scheduler) NewState(now time.Time) State {
	return NewState(s.cfg, now)
}

// Advance applies a graded review at now and returns the resulting state.
// The input is not modified. A now earlier than the last review is still
// scheduled forward from now; use CheckTemporal to detect it.
func (s *Scheduler) Advance(st State, g Grade, now time.Time) State {
	now = now.UTC()
	next := st.clone()

	if !g.Passed() {
		next.LapseCount++
		next.RepetitionCount = 0
		next.IntervalDays = 0
		next.EaseFactor = math.Max(s.cfg.MinEase, st.EaseFactor-s.cfg.LapsePenalty)
		next.Phase = PhaseLapsed
	} else {
		next.RepetitionCount++
		next.EaseFactor = s.adjustEase(st.EaseFactor, g)
		next.IntervalDays = s.nextInterval(st.IntervalDays, next.RepetitionCount, next.EaseFactor, g)
		if next.IntervalDays > s.cfg.MatureDays {
			next.Phase = PhaseReview
		} else {
			next.Phase = PhaseLearning
		}
	}

	next.LastReviewedAt = &now
	next.NextDueAt = now.AddDate(0, 0, next.IntervalDays)
	return next
}

// Preview returns the interval in days each signal would produce if the
// item were reviewed at now.
func (s *Scheduler) Preview(st State, now time.Time) map[Signal]int {
	out := make(map[Signal]int, len(Signals))
	for _, sig := range Signals {
		out[sig] = s.Advance(st, Classify(sig), now).IntervalDays
	}
	return out
}

// adjustEase applies the SM-2 ease update on the 0-3 grade scale and
// clamps the result to the configured floor.
func (s *Scheduler) adjustEase(ease float64, g Grade) float64 {
	d := float64(MaxGrade - g)
	ease += 0.1 - d*(0.08+d*0.02)
	return math.Max(s.cfg.MinEase, ease)
}

func (s *Scheduler) nextInterval(prev, repetitions int, ease float64, g Grade) int {
	var days int
	switch repetitions {
	case 1:
		days = FirstIntervalDays
	case 2:
		days = SecondIntervalDays
	default:
		days = int(math.Round(float64(prev) * ease * s.multiplier(g)))
	}
	if days < 1 {
		days = 1
	}
	if days > s.cfg.MaxIntervalDays {
		days = s.cfg.MaxIntervalDays
	}
	return days
}

func (s *Scheduler) multiplier(g Grade) float64 {
	switch g {
	case GradeHard:
		return s.cfg.HardMultiplier
	case GradeEasy:
		return s.cfg.EasyMultiplier
	default:
		return 1
	}
}
