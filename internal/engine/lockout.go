package engine

import (
	"sync"
	"time"
)

// failedAttemptRecord counts authentication failures for one identifier
// (submitted credential id or network address).
type failedAttemptRecord struct {
	count       int
	lastFailure time.Time
}

// lockoutStore tracks failed authentication attempts. An identifier is
// locked once its count reaches the threshold, for the lockout duration
// measured from the last failure rather than the first.
type lockoutStore struct {
	mu       sync.Mutex
	attempts map[string]*failedAttemptRecord
}

func newLockoutStore() *lockoutStore {
	return &lockoutStore{
		attempts: make(map[string]*failedAttemptRecord),
	}
}

// recordFailure increments the failure count and returns it.
func (ls *lockoutStore) recordFailure(id string, now time.Time) int {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	rec, ok := ls.attempts[id]
	if !ok {
		rec = &failedAttemptRecord{}
		ls.attempts[id] = rec
	}
	rec.count++
	rec.lastFailure = now
	return rec.count
}

// clear wipes the record on successful authentication.
func (ls *lockoutStore) clear(id string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.attempts, id)
}

// isLocked reports lock state and, when locked, how long until it lifts.
func (ls *lockoutStore) isLocked(id string, now time.Time, threshold int, duration time.Duration) (bool, time.Duration) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	rec, ok := ls.attempts[id]
	if !ok || rec.count < threshold {
		return false, 0
	}
	until := rec.lastFailure.Add(duration)
	if now.Before(until) {
		return true, until.Sub(now)
	}
	return false, 0
}

// sweep drops records idle beyond staleAfter.
func (ls *lockoutStore) sweep(now time.Time, staleAfter time.Duration) int {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	cutoff := now.Add(-staleAfter)
	evicted := 0
	for id, rec := range ls.attempts {
		if rec.lastFailure.Before(cutoff) {
			delete(ls.attempts, id)
			evicted++
		}
	}
	return evicted
}
