package review

import (
	"sync"

	"github.com/abhisek/vocab/internal/spacedrep"
)

// itemLocks hands out one mutex per item. Entries are reference counted and
// dropped once no goroutine holds or waits on them.
type itemLocks struct {
	mu    sync.Mutex
	locks map[spacedrep.ItemID]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

func newItemLocks() *itemLocks {
	return &itemLocks{locks: make(map[spacedrep.ItemID]*itemLock)}
}

// lock blocks until the caller holds id's mutex and returns its release func.
func (l *itemLocks) lock(id spacedrep.ItemID) func() {
	l.mu.Lock()
	il := l.locks[id]
	if il == nil {
		il = &itemLock{}
		l.locks[id] = il
	}
	il.refs++
	l.mu.Unlock()

	il.mu.Lock()
	return func() {
		il.mu.Unlock()
		l.mu.Lock()
		il.refs--
		if il.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// size returns the number of live entries.
func (l *itemLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
