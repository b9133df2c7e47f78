package application

import "sync"

// escrowLocks serializes mutations per escrow id. Operations on distinct
// escrows proceed concurrently; two operations on the same escrow never
// interleave, so concurrent releases cannot exceed the committed total.
type escrowLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newEscrowLocks() *escrowLocks {
	return &escrowLocks{locks: map[int64]*sync.Mutex{}}
}

// acquire blocks until the escrow's lock is held and returns the release fn.
func (l *escrowLocks) acquire(escrowID int64) func() {
	l.mu.Lock()
	m, ok := l.locks[escrowID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[escrowID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
