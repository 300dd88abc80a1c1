package engine

import (
	"sync"
	"time"
)

// clientRecord tracks one client's recent request history. Timestamps are
// appended in order and pruned against the window on every check, so the
// sequence stays monotonically non-decreasing and never holds entries older
// than the window in use.
type clientRecord struct {
	timestamps []time.Time
	firstSeen  time.Time
	lastSeen   time.Time
	violations int
}

// windowStore is the sliding-window counter: a per-key map of client records
// guarded by a single mutex so the prune-test-append sequence is atomic.
type windowStore struct {
	mu      sync.Mutex
	clients map[string]*clientRecord
}

func newWindowStore() *windowStore {
	return &windowStore{
		clients: make(map[string]*clientRecord),
	}
}

type windowResult struct {
	allowed   bool
	remaining int
	resetAt   time.Time
}

// check prunes the client's history to the window ending at now, then admits
// and records the event if the in-window count is below maxEvents.
//
// This is a side-effecting operation, not a pure query: even a denied check
// mutates the record (pruning and lastSeen), so a throttled client stays
// visible to the violation tracker instead of aging out between denials.
func (ws *windowStore) check(key string, now time.Time, window time.Duration, maxEvents int) windowResult {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	rec, ok := ws.clients[key]
	if !ok {
		rec = &clientRecord{firstSeen: now}
		ws.clients[key] = rec
	}
	rec.lastSeen = now

	rec.prune(now.Add(-window))

	// resetAt is a tumbling hint for client-facing headers; enforcement
	// itself is continuous sliding.
	res := windowResult{resetAt: now.Add(window)}

	if len(rec.timestamps) < maxEvents {
		rec.timestamps = append(rec.timestamps, now)
		res.allowed = true
		res.remaining = maxEvents - len(rec.timestamps)
		if res.remaining < 0 {
			res.remaining = 0
		}
	}
	return res
}

// addViolation bumps the client's violation counter and returns the new
// count. Violations never decrement; they persist until the record is swept.
func (ws *windowStore) addViolation(key string, now time.Time) int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	rec, ok := ws.clients[key]
	if !ok {
		rec = &clientRecord{firstSeen: now}
		ws.clients[key] = rec
	}
	rec.lastSeen = now
	rec.violations++
	return rec.violations
}

func (ws *windowStore) violations(key string) int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if rec, ok := ws.clients[key]; ok {
		return rec.violations
	}
	return 0
}

// sweep drops records idle beyond staleAfter and returns the eviction count.
func (ws *windowStore) sweep(now time.Time, staleAfter time.Duration) int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	cutoff := now.Add(-staleAfter)
	evicted := 0
	for key, rec := range ws.clients {
		if rec.lastSeen.Before(cutoff) {
			delete(ws.clients, key)
			evicted++
		}
	}
	return evicted
}

func (ws *windowStore) size() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.clients)
}

// prune discards timestamps at or before cutoff. Entries are ordered, so
// scan from the front and reslice once.
func (rec *clientRecord) prune(cutoff time.Time) {
	keep := 0
	for keep < len(rec.timestamps) && !rec.timestamps[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		rec.timestamps = append(rec.timestamps[:0], rec.timestamps[keep:]...)
	}
}
