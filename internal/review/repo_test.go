package review

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/vocab/internal/spacedrep"
)

func TestDayOf(t *testing.T) {
	ts := time.Date(2025, 4, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, Day("2025-04-01"), DayOf(ts, nil))
	assert.Equal(t, Day("2025-04-01"), DayOf(ts, time.UTC))
	assert.Equal(t, Day("2025-04-02"), DayOf(ts, time.FixedZone("CET", 3600)))
	assert.Equal(t, Day("2025-04-01"), DayOf(ts, time.FixedZone("PST", -8*3600)))
}

func TestDeltaFor(t *testing.T) {
	tests := []struct {
		name       string
		prev, next spacedrep.Phase
		want       DayDelta
	}{
		{"first review", spacedrep.PhaseNew, spacedrep.PhaseLearning, DayDelta{Reviewed: 1, Introduced: 1}},
		{"first review fails", spacedrep.PhaseNew, spacedrep.PhaseLapsed, DayDelta{Reviewed: 1, Introduced: 1, Lapsed: 1}},
		{"learning step", spacedrep.PhaseLearning, spacedrep.PhaseLearning, DayDelta{Reviewed: 1}},
		{"matures", spacedrep.PhaseLearning, spacedrep.PhaseReview, DayDelta{Reviewed: 1, Matured: 1}},
		{"stays mature", spacedrep.PhaseReview, spacedrep.PhaseReview, DayDelta{Reviewed: 1}},
		{"lapse", spacedrep.PhaseReview, spacedrep.PhaseLapsed, DayDelta{Reviewed: 1, Lapsed: 1}},
		{"relearn", spacedrep.PhaseLapsed, spacedrep.PhaseLearning, DayDelta{Reviewed: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeltaFor(spacedrep.State{Phase: tt.prev}, spacedrep.State{Phase: tt.next})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDayDeltaAdd(t *testing.T) {
	a := DayDelta{Reviewed: 2, Introduced: 1}
	b := DayDelta{Reviewed: 3, Lapsed: 1, Matured: 2}
	assert.Equal(t, DayDelta{Reviewed: 5, Introduced: 1, Lapsed: 1, Matured: 2}, a.Add(b))
}

func TestItemLocks_ReleaseEntries(t *testing.T) {
	l := newItemLocks()

	var wg sync.WaitGroup
	counter := 0
	for j := 0; j < 20; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("apple")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, counter)
	assert.Equal(t, 0, l.size())

	unlockA := l.lock("a")
	unlockB := l.lock("b")
	assert.Equal(t, 2, l.size())
	unlockA()
	unlockB()
	assert.Equal(t, 0, l.size())
}
