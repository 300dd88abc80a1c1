package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowStoreCheck_AdmitsUpToLimit(t *testing.T) {
	ws := newWindowStore()
	now := time.Now()

	for i := 0; i < 5; i++ {
		res := ws.check("client-1", now.Add(time.Duration(i)*time.Second), time.Minute, 5)
		assert.True(t, res.allowed, "request %d should be admitted", i+1)
		assert.Equal(t, 5-(i+1), res.remaining)
	}

	res := ws.check("client-1", now.Add(6*time.Second), time.Minute, 5)
	assert.False(t, res.allowed)
	assert.Equal(t, 0, res.remaining)
}

func TestWindowStoreCheck_ResetAtIsTumblingHint(t *testing.T) {
	ws := newWindowStore()
	now := time.Now()

	res := ws.check("client-1", now, time.Minute, 5)
	assert.Equal(t, now.Add(time.Minute), res.resetAt)

	// resetAt stays now+window even when the check is denied.
	for i := 0; i < 5; i++ {
		ws.check("client-1", now, time.Minute, 5)
	}
	later := now.Add(10 * time.Second)
	res = ws.check("client-1", later, time.Minute, 5)
	assert.False(t, res.allowed)
	assert.Equal(t, later.Add(time.Minute), res.resetAt)
}

func TestWindowStoreCheck_RecoversAsEventsAge(t *testing.T) {
	ws := newWindowStore()
	base := time.Now()

	// Fill the window at t0..t4.
	for i := 0; i < 5; i++ {
		res := ws.check("client-1", base.Add(time.Duration(i)*time.Second), time.Minute, 5)
		assert.True(t, res.allowed)
	}

	// Still inside the window: denied.
	res := ws.check("client-1", base.Add(30*time.Second), time.Minute, 5)
	assert.False(t, res.allowed)

	// Once the first event ages past the window the client is admittable
	// again.
	res = ws.check("client-1", base.Add(61*time.Second), time.Minute, 5)
	assert.True(t, res.allowed)
}

func TestWindowStoreCheck_IndependentKeys(t *testing.T) {
	ws := newWindowStore()
	now := time.Now()

	for i := 0; i < 5; i++ {
		ws.check("client-a", now, time.Minute, 5)
	}
	assert.False(t, ws.check("client-a", now, time.Minute, 5).allowed)
	assert.True(t, ws.check("client-b", now, time.Minute, 5).allowed)
}

func TestWindowStoreCheck_DeniedCheckStillMutates(t *testing.T) {
	ws := newWindowStore()
	now := time.Now()

	for i := 0; i < 3; i++ {
		ws.check("client-1", now, time.Minute, 3)
	}
	denied := ws.check("client-1", now.Add(time.Second), time.Minute, 3)
	assert.False(t, denied.allowed)

	// The denied check refreshed lastSeen, so the record survives a sweep
	// measured from the original burst.
	evicted := ws.sweep(now.Add(time.Second).Add(24*time.Hour), 24*time.Hour)
	if evicted != 0 {
		t.Errorf("expected denied check to refresh the record, %d evicted", evicted)
	}
}

func TestWindowStoreViolations_NeverDecrement(t *testing.T) {
	ws := newWindowStore()
	now := time.Now()

	for i := 0; i < 4; i++ {
		ws.addViolation("client-1", now)
	}
	assert.Equal(t, 4, ws.violations("client-1"))

	// A successful check later does not reset the counter.
	ws.check("client-1", now.Add(2*time.Minute), time.Minute, 5)
	assert.Equal(t, 4, ws.violations("client-1"))
}

func TestWindowStoreSweep_EvictsStaleOnly(t *testing.T) {
	ws := newWindowStore()
	now := time.Now()

	ws.check("stale", now.Add(-25*time.Hour), time.Minute, 5)
	ws.check("fresh", now.Add(-time.Minute), time.Minute, 5)

	evicted := ws.sweep(now, 24*time.Hour)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, ws.size())
	assert.Equal(t, 0, ws.violations("stale"))
}

func TestClientRecordPrune_KeepsOrderedTail(t *testing.T) {
	rec := &clientRecord{}
	base := time.Now()
	for i := 0; i < 5; i++ {
		rec.timestamps = append(rec.timestamps, base.Add(time.Duration(i)*time.Second))
	}

	rec.prune(base.Add(2 * time.Second))

	assert.Len(t, rec.timestamps, 2)
	assert.Equal(t, base.Add(3*time.Second), rec.timestamps[0])
}
