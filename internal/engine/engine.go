// Package engine implements the adaptive request admission-control and
// session-reputation engine: a process-local, self-cleaning set of stores
// that decides, per request, whether to admit, delay or reject based on the
// client's recent behavior.
//
// All state is in memory and approximate by design. A restart clears every
// reputation and session record, and limits are enforced per process, not
// across instances.
package engine

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Reason     string // empty when allowed; otherwise ReasonRateLimited or ReasonBlocked
	RetryAfter time.Duration
	Limit      int
	Remaining  int
	ResetAt    time.Time
}

// Decision reasons surfaced to callers so the edge can tell "slow down"
// apart from "temporarily denied".
const (
	ReasonRateLimited = "rate_limit_exceeded"
	ReasonBlocked     = "blocked"
)

// Err maps a denial to its sentinel error for errors.Is handling; nil when
// the request was allowed.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonBlocked:
		return ErrBlocked
	default:
		return ErrRateLimited
	}
}

// Auditor receives security escalation events (suspicious marks, blocks,
// lockouts). The engine itself never retries or buffers; reporting is
// fire-and-forget.
type Auditor interface {
	LogSecurityEvent(eventType, clientKey string, metadata map[string]string)
}

// Engine owns the four record stores, the adaptive controller and the
// background sweeper. Construct one per process (or per test) with NewEngine
// and release it with Shutdown.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	auditor  Auditor
	windows  *windowStore
	rep      *reputationStore
	sessions *sessionStore
	lockouts *lockoutStore
	adaptive *adaptiveController
	metrics  *metrics
	sweeper  *sweeper
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithAuditor wires the audit collaborator for escalation events.
func WithAuditor(a Auditor) Option {
	return func(e *Engine) { e.auditor = a }
}

// WithLoadSampler wires the load signal for the adaptive controller.
// Without one the engine always uses the full base limit.
func WithLoadSampler(f LoadFunc) Option {
	return func(e *Engine) { e.adaptive.load = f }
}

// WithRegisterer registers the engine's metrics on reg. The default is no
// registration, which keeps test engines independent.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics = newMetrics(reg) }
}

// NewEngine validates cfg, builds the stores and starts the sweeper.
func NewEngine(cfg Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		windows:  newWindowStore(),
		rep:      newReputationStore(),
		sessions: newSessionStore(),
		lockouts: newLockoutStore(),
		adaptive: &adaptiveController{lowWater: cfg.LoadLowWater, highWater: cfg.LoadHighWater},
		metrics:  newMetrics(nil),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, key := range cfg.Allowlist {
		e.rep.allow(key)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.sweeper = newSweeper(e, logger, cfg.CounterSweepInterval, cfg.StateSweepInterval)
	go e.sweeper.start(ctx)

	return e, nil
}

// Shutdown stops the background sweeper. Idempotent; the stores stay
// readable, which lets callers drain in-flight requests during process
// shutdown.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		e.cancel()
		e.sweeper.stop()
	})
}

// Admit decides whether to admit one request from clientKey observed at now.
// Blocked clients are denied before any window logic runs; a window denial
// feeds the violation tracker and may escalate the client's reputation.
//
// The check mutates the client's record (prune, append, violation count) and
// must be treated as a side-effecting operation, not a query.
func (e *Engine) Admit(clientKey string, now time.Time) (decision Decision) {
	// The engine is protective: if its own state is unreadable, deny the
	// request rather than admit it.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("admission check panicked, failing closed",
				slog.String("client_key", clientKey),
				slog.Any("panic", r),
			)
			decision = Decision{Reason: ReasonRateLimited, RetryAfter: e.cfg.Window}
		}
	}()

	if e.rep.isAllowlisted(clientKey) {
		e.metrics.decisions.WithLabelValues("allowed").Inc()
		return Decision{
			Allowed:   true,
			Limit:     e.cfg.MaxEvents,
			Remaining: e.cfg.MaxEvents,
			ResetAt:   now.Add(e.cfg.Window),
		}
	}

	if e.rep.isBlocked(clientKey, now) {
		e.metrics.decisions.WithLabelValues("blocked").Inc()
		return Decision{
			Reason:     ReasonBlocked,
			RetryAfter: e.rep.blockedUntil(clientKey).Sub(now),
			ResetAt:    e.rep.blockedUntil(clientKey),
		}
	}

	limit := e.adaptive.effectiveLimit(e.cfg.MaxEvents)
	res := e.windows.check(clientKey, now, e.cfg.Window, limit)
	if res.allowed {
		e.metrics.decisions.WithLabelValues("allowed").Inc()
		return Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: res.remaining,
			ResetAt:   res.resetAt,
		}
	}

	e.metrics.decisions.WithLabelValues("limited").Inc()
	e.RecordViolation(clientKey, now, true)

	return Decision{
		Reason:     ReasonRateLimited,
		RetryAfter: e.cfg.Window,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    res.resetAt,
	}
}

// IsBlocked reports whether clientKey is currently on the blocked list.
// Pure check; nothing is evicted or mutated.
func (e *Engine) IsBlocked(clientKey string, now time.Time) bool {
	return e.rep.isBlocked(clientKey, now)
}

// RecordViolation counts one limit exceedance for clientKey. Past the
// violation threshold every further violation adds a suspicious mark; with
// escalate set, reaching the escalation threshold blocks immediately instead
// of waiting for the suspicious-accumulation path. Violations never
// decrement; a repeatedly throttled client gets progressively easier to
// escalate until its record is swept for staleness.
func (e *Engine) RecordViolation(clientKey string, now time.Time, escalate bool) {
	violations := e.windows.addViolation(clientKey, now)

	if violations > e.cfg.ViolationThreshold {
		e.MarkSuspicious(clientKey, now)
	}

	if escalate && violations >= e.cfg.EscalateThreshold {
		if e.rep.block(clientKey, now, e.cfg.BlockDuration) {
			e.metrics.escalations.WithLabelValues("escalate_block").Inc()
			e.audit("client_blocked", clientKey, map[string]string{
				"trigger":    "repeated_violations",
				"violations": strconv.Itoa(violations),
				"duration":   e.cfg.BlockDuration.String(),
			})
		}
	}
}

// MarkSuspicious adds one suspicious mark for clientKey. Exceeding the
// suspicious threshold triggers an automatic block for the configured
// duration.
func (e *Engine) MarkSuspicious(clientKey string, now time.Time) {
	count := e.rep.markSuspicious(clientKey, now)
	e.metrics.escalations.WithLabelValues("suspicious").Inc()

	if count > e.cfg.SuspiciousThreshold {
		if e.rep.block(clientKey, now, e.cfg.BlockDuration) {
			e.metrics.escalations.WithLabelValues("auto_block").Inc()
			e.audit("client_blocked", clientKey, map[string]string{
				"trigger":          "suspicious_activity",
				"suspicious_count": strconv.Itoa(count),
				"duration":         e.cfg.BlockDuration.String(),
			})
		}
	}
}

// SuspiciousCount returns the running suspicious-mark count for clientKey.
func (e *Engine) SuspiciousCount(clientKey string) int {
	return e.rep.suspiciousCount(clientKey)
}

// Violations returns the violation count for clientKey.
func (e *Engine) Violations(clientKey string) int {
	return e.windows.violations(clientKey)
}

// Block denies all requests from clientKey until now + duration. An
// unexpired block is never extended.
func (e *Engine) Block(clientKey string, now time.Time, duration time.Duration) {
	if e.rep.block(clientKey, now, duration) {
		e.metrics.escalations.WithLabelValues("manual_block").Inc()
		e.audit("client_blocked", clientKey, map[string]string{
			"trigger":  "manual",
			"duration": duration.String(),
		})
	}
}

// Allowlist permanently exempts clientKey from every check.
func (e *Engine) Allowlist(clientKey string) {
	e.rep.allow(clientKey)
}

// SetAllowlist replaces the allow-list wholesale, for reload paths.
func (e *Engine) SetAllowlist(keys []string) {
	e.rep.setAllowlist(keys)
	e.logger.Info("allowlist replaced", slog.Int("entries", len(keys)))
}

// RegisterSession records or refreshes a session for identity, evicting the
// least-recently-active record past the session cap.
func (e *Engine) RegisterSession(identity, fingerprint string, now time.Time) {
	e.sessions.upsert(identity, fingerprint, now, e.cfg.SessionCap)
}

// SessionCapExceeded reports whether admitting fingerprint as a new session
// would exceed identity's cap. Callers reject the authentication with
// ErrSessionLimitExceeded rather than silently evicting an active session.
func (e *Engine) SessionCapExceeded(identity, fingerprint string) bool {
	return e.sessions.capExceeded(identity, fingerprint, e.cfg.SessionCap)
}

// TouchSession refreshes last-activity for a live session and reports
// whether the fingerprint is still valid for identity.
func (e *Engine) TouchSession(identity, fingerprint string, now time.Time) bool {
	return e.sessions.touch(identity, fingerprint, now)
}

// ListSessions returns identity's live sessions, most recently active first.
func (e *Engine) ListSessions(identity string) []SessionRecord {
	return e.sessions.list(identity)
}

// InvalidateSession removes a single session for identity.
func (e *Engine) InvalidateSession(identity, fingerprint string) bool {
	return e.sessions.invalidateOne(identity, fingerprint)
}

// InvalidateAllSessions removes every session for identity.
func (e *Engine) InvalidateAllSessions(identity string) {
	e.sessions.invalidateAll(identity)
	e.audit("sessions_invalidated", identity, nil)
}

// RecordAuthFailure counts one failed authentication for id and reports
// whether the failure tipped the identifier into lockout.
func (e *Engine) RecordAuthFailure(id string, now time.Time) bool {
	count := e.lockouts.recordFailure(id, now)
	locked, _ := e.lockouts.isLocked(id, now, e.cfg.LockoutThreshold, e.cfg.LockoutDuration)
	if locked && count == e.cfg.LockoutThreshold {
		e.metrics.escalations.WithLabelValues("lockout").Inc()
		e.audit("account_locked", id, map[string]string{
			"failed_attempts": strconv.Itoa(count),
			"duration":        e.cfg.LockoutDuration.String(),
		})
	}
	return locked
}

// ClearAuthFailures wipes the failure record on successful authentication.
func (e *Engine) ClearAuthFailures(id string) {
	e.lockouts.clear(id)
}

// IsLocked reports whether id is locked out and how long until the lock
// lifts, measured from the last failure.
func (e *Engine) IsLocked(id string, now time.Time) (bool, time.Duration) {
	return e.lockouts.isLocked(id, now, e.cfg.LockoutThreshold, e.cfg.LockoutDuration)
}

// SweepNow runs one synchronous sweep pass. Exposed for operational
// endpoints and tests; the background sweeper normally handles this.
func (e *Engine) SweepNow(now time.Time) {
	e.sweeper.sweepCounters(now)
	e.sweeper.sweepState(now)
}

// TrackedClients returns the number of client records currently held.
func (e *Engine) TrackedClients() int {
	return e.windows.size()
}

func (e *Engine) audit(eventType, key string, metadata map[string]string) {
	if e.auditor != nil {
		e.auditor.LogSecurityEvent(eventType, key, metadata)
	}
	e.logger.Warn("security event",
		slog.String("event_type", eventType),
		slog.String("client_key", key),
		slog.Any("metadata", metadata),
	)
}
