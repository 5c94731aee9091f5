package spacedrep

import (
	"sort"
	"time"
)

// DueItems returns the items due at now, most overdue first. Items with the
// same due time are ordered by ID. A limit <= 0 returns every due item.
// The input map is only read.
func DueItems(states map[ItemID]State, now time.Time, limit int) []ItemID {
	type dueItem struct {
		id  ItemID
		due time.Time
	}
	var due []dueItem

	for id, st := range states {
		if st.IsDue(now) {
			due = append(due, dueItem{id: id, due: st.NextDueAt})
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].due.Equal(due[j].due) {
			return due[i].due.Before(due[j].due)
		}
		return due[i].id < due[j].id
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	ids := make([]ItemID, len(due))
	for i, d := range due {
		ids[i] = d.id
	}
	return ids
}

// CountDue returns how many items are due at now.
func CountDue(states map[ItemID]State, now time.Time) int {
	n := 0
	for _, st := range states {
		if st.IsDue(now) {
			n++
		}
	}
	return n
}

// PhaseCounts tallies items by phase.
func PhaseCounts(states map[ItemID]State) map[Phase]int {
	counts := make(map[Phase]int, len(phaseNames))
	for _, st := range states {
		counts[st.Phase]++
	}
	return counts
}

func sortIDs(ids []ItemID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
