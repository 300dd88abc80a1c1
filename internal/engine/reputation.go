package engine

import (
	"sync"
	"time"
)

// suspiciousRecord is the running mark count plus the instant of the most
// recent mark, so stale entries can be swept.
type suspiciousRecord struct {
	count    int
	lastMark time.Time
}

// reputationStore keeps the suspicious multiset, the blocked set with
// expiries, and the permanent allow-list.
type reputationStore struct {
	mu         sync.Mutex
	suspicious map[string]*suspiciousRecord
	blocked    map[string]time.Time
	allowlist  map[string]struct{}
}

func newReputationStore() *reputationStore {
	return &reputationStore{
		suspicious: make(map[string]*suspiciousRecord),
		blocked:    make(map[string]time.Time),
		allowlist:  make(map[string]struct{}),
	}
}

// markSuspicious adds one suspicious mark and returns the running count.
func (rs *reputationStore) markSuspicious(key string, now time.Time) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rec, ok := rs.suspicious[key]
	if !ok {
		rec = &suspiciousRecord{}
		rs.suspicious[key] = rec
	}
	rec.count++
	rec.lastMark = now
	return rec.count
}

func (rs *reputationStore) suspiciousCount(key string) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rec, ok := rs.suspicious[key]; ok {
		return rec.count
	}
	return 0
}

// block records expiry = now + duration for the key. An unexpired block is
// never extended by further calls; a client that keeps violating while
// blocked serves out the original sentence.
func (rs *reputationStore) block(key string, now time.Time, duration time.Duration) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.allowlist[key]; ok {
		return false
	}
	if expiry, ok := rs.blocked[key]; ok && now.Before(expiry) {
		return false
	}
	rs.blocked[key] = now.Add(duration)
	return true
}

// isBlocked is a pure expiry comparison. Expired entries are left for the
// sweeper; correctness depends only on the comparison, not on sweep timing.
func (rs *reputationStore) isBlocked(key string, now time.Time) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.allowlist[key]; ok {
		return false
	}
	expiry, ok := rs.blocked[key]
	return ok && now.Before(expiry)
}

// blockedUntil returns the expiry instant for a blocked key, or zero time.
func (rs *reputationStore) blockedUntil(key string) time.Time {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.blocked[key]
}

func (rs *reputationStore) allow(key string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.allowlist[key] = struct{}{}
	delete(rs.blocked, key)
	delete(rs.suspicious, key)
}

func (rs *reputationStore) isAllowlisted(key string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	_, ok := rs.allowlist[key]
	return ok
}

// setAllowlist replaces the allow-list wholesale. Used by reload paths.
func (rs *reputationStore) setAllowlist(keys []string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.allowlist = make(map[string]struct{}, len(keys))
	for _, key := range keys {
		rs.allowlist[key] = struct{}{}
		delete(rs.blocked, key)
	}
}

// sweep removes blocks that have expired and suspicious entries whose last
// mark is older than staleAfter. A key still serving an unexpired block keeps
// its suspicious record regardless of age; sweeps never forgive active state.
func (rs *reputationStore) sweep(now time.Time, staleAfter time.Duration) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	evicted := 0
	for key, expiry := range rs.blocked {
		if !now.Before(expiry) {
			delete(rs.blocked, key)
			evicted++
		}
	}

	cutoff := now.Add(-staleAfter)
	for key, rec := range rs.suspicious {
		if expiry, ok := rs.blocked[key]; ok && now.Before(expiry) {
			continue
		}
		if rec.lastMark.Before(cutoff) {
			delete(rs.suspicious, key)
			evicted++
		}
	}
	return evicted
}
