package broker

import "sync"

// userLocks serializes operations per user id. Every read-modify-write of an
// account (placeOrder, reset, create-on-first-touch) runs inside its user's
// critical section; operations on distinct users proceed independently.
//
// Locks are never released from the map — the set is bounded by the number
// of distinct users, which is fine for a paper trading service.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for userID and returns it; the caller unlocks.
func (l *userLocks) acquire(userID string) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m
}
