package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReputationStore_SuspiciousCountAccumulates(t *testing.T) {
	rs := newReputationStore()
	now := time.Now()

	assert.Equal(t, 0, rs.suspiciousCount("client-1"))
	assert.Equal(t, 1, rs.markSuspicious("client-1", now))
	assert.Equal(t, 2, rs.markSuspicious("client-1", now))
	assert.Equal(t, 0, rs.suspiciousCount("client-2"))
}

func TestReputationStore_BlockExpiry(t *testing.T) {
	rs := newReputationStore()
	now := time.Now()

	rs.block("client-1", now, 24*time.Hour)

	assert.True(t, rs.isBlocked("client-1", now))
	assert.True(t, rs.isBlocked("client-1", now.Add(23*time.Hour+59*time.Minute)))
	assert.False(t, rs.isBlocked("client-1", now.Add(24*time.Hour)))
	assert.False(t, rs.isBlocked("client-1", now.Add(24*time.Hour+time.Minute)))
}

func TestReputationStore_BlockIsNotRenewedWhileActive(t *testing.T) {
	rs := newReputationStore()
	now := time.Now()

	assert.True(t, rs.block("client-1", now, time.Hour))

	// A second block attempt mid-sentence does not extend the expiry.
	assert.False(t, rs.block("client-1", now.Add(30*time.Minute), time.Hour))
	assert.False(t, rs.isBlocked("client-1", now.Add(time.Hour+time.Second)))

	// After expiry the client can be blocked again.
	assert.True(t, rs.block("client-1", now.Add(2*time.Hour), time.Hour))
	assert.True(t, rs.isBlocked("client-1", now.Add(2*time.Hour+time.Minute)))
}

func TestReputationStore_IsBlockedDoesNotEvict(t *testing.T) {
	rs := newReputationStore()
	now := time.Now()

	rs.block("client-1", now, time.Hour)

	// Expired but not swept: the check must report unblocked without
	// removing the entry; that is the sweeper's job.
	assert.False(t, rs.isBlocked("client-1", now.Add(2*time.Hour)))
	assert.Equal(t, 1, len(rs.blocked))

	evicted := rs.sweep(now.Add(2*time.Hour), 24*time.Hour)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, len(rs.blocked))
}

func TestReputationStore_SweepLeavesActiveBlocks(t *testing.T) {
	rs := newReputationStore()
	now := time.Now()

	rs.block("expired", now.Add(-2*time.Hour), time.Hour)
	rs.block("active", now, time.Hour)

	evicted := rs.sweep(now, 24*time.Hour)
	assert.Equal(t, 1, evicted)
	assert.True(t, rs.isBlocked("active", now))
}

func TestReputationStore_SweepEvictsStaleSuspiciousEntries(t *testing.T) {
	rs := newReputationStore()
	now := time.Now()

	rs.markSuspicious("stale", now.Add(-48*time.Hour))
	rs.markSuspicious("fresh", now)

	evicted := rs.sweep(now, 24*time.Hour)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, rs.suspiciousCount("stale"))
	assert.Equal(t, 1, rs.suspiciousCount("fresh"))
}

func TestReputationStore_SweepKeepsSuspiciousWhileBlocked(t *testing.T) {
	rs := newReputationStore()
	now := time.Now()

	// Marks are old, but the client is still serving a block: the record
	// survives so the escalation history is intact when the block lifts.
	rs.markSuspicious("client-1", now.Add(-48*time.Hour))
	rs.block("client-1", now.Add(-time.Hour), 72*time.Hour)

	rs.sweep(now, 24*time.Hour)
	assert.Equal(t, 1, rs.suspiciousCount("client-1"))
}

func TestReputationStore_AllowlistBypassesBlocks(t *testing.T) {
	rs := newReputationStore()
	now := time.Now()

	rs.allow("trusted")
	assert.False(t, rs.block("trusted", now, time.Hour))
	assert.False(t, rs.isBlocked("trusted", now))

	// Allow-listing an already blocked client lifts the block.
	rs.block("client-1", now, time.Hour)
	rs.allow("client-1")
	assert.False(t, rs.isBlocked("client-1", now))
}

func TestReputationStore_SetAllowlistReplaces(t *testing.T) {
	rs := newReputationStore()

	rs.allow("old")
	rs.setAllowlist([]string{"new-a", "new-b"})

	assert.False(t, rs.isAllowlisted("old"))
	assert.True(t, rs.isAllowlisted("new-a"))
	assert.True(t, rs.isAllowlisted("new-b"))
}
