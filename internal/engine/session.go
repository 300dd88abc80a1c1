package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionRecord is one live session for an authenticated identity. The
// fingerprint is a one-way hash of the credential; the raw token never
// enters the registry.
type SessionRecord struct {
	SessionID    string    `json:"session_id"`
	Fingerprint  string    `json:"fingerprint"`
	LoginAt      time.Time `json:"login_at"`
	LastActivity time.Time `json:"last_activity"`
}

// sessionStore tracks concurrently valid sessions per identity and enforces
// the session cap by evicting the least-recently-active record.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string][]*SessionRecord
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string][]*SessionRecord),
	}
}

// upsert refreshes the record matching fingerprint or appends a new one,
// then retains only the cap most-recently-active records for the identity.
func (ss *sessionStore) upsert(identity, fingerprint string, now time.Time, maxSessions int) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	records := ss.sessions[identity]
	for _, rec := range records {
		if rec.Fingerprint == fingerprint {
			rec.LastActivity = now
			return
		}
	}

	records = append(records, &SessionRecord{
		SessionID:    uuid.New().String(),
		Fingerprint:  fingerprint,
		LoginAt:      now,
		LastActivity: now,
	})

	if len(records) > maxSessions {
		sort.Slice(records, func(i, j int) bool {
			return records[i].LastActivity.After(records[j].LastActivity)
		})
		records = records[:maxSessions]
	}
	ss.sessions[identity] = records
}

// capExceeded reports whether a session with this fingerprint would push the
// identity past its limit. A fingerprint already among the live set is never
// rejected; it resumes its own session.
func (ss *sessionStore) capExceeded(identity, fingerprint string, maxSessions int) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	records := ss.sessions[identity]
	if len(records) < maxSessions {
		return false
	}
	for _, rec := range records {
		if rec.Fingerprint == fingerprint {
			return false
		}
	}
	return true
}

// touch updates last-activity for a live session and reports whether the
// fingerprint is still among the identity's live set.
func (ss *sessionStore) touch(identity, fingerprint string, now time.Time) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	for _, rec := range ss.sessions[identity] {
		if rec.Fingerprint == fingerprint {
			rec.LastActivity = now
			return true
		}
	}
	return false
}

// list returns copies of the identity's records, most recently active first.
func (ss *sessionStore) list(identity string) []SessionRecord {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	records := ss.sessions[identity]
	out := make([]SessionRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

func (ss *sessionStore) invalidateAll(identity string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, identity)
}

// invalidateOne removes a single record; emptying the set removes the
// identity entry itself.
func (ss *sessionStore) invalidateOne(identity, fingerprint string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	records := ss.sessions[identity]
	for i, rec := range records {
		if rec.Fingerprint == fingerprint {
			records = append(records[:i], records[i+1:]...)
			if len(records) == 0 {
				delete(ss.sessions, identity)
			} else {
				ss.sessions[identity] = records
			}
			return true
		}
	}
	return false
}

// sweep evicts sessions idle beyond the timeout.
func (ss *sessionStore) sweep(now time.Time, idleTimeout time.Duration) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	cutoff := now.Add(-idleTimeout)
	evicted := 0
	for identity, records := range ss.sessions {
		kept := records[:0]
		for _, rec := range records {
			if rec.LastActivity.Before(cutoff) {
				evicted++
			} else {
				kept = append(kept, rec)
			}
		}
		if len(kept) == 0 {
			delete(ss.sessions, identity)
		} else {
			ss.sessions[identity] = kept
		}
	}
	return evicted
}
