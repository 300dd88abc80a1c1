package engine

import "errors"

// Sentinel errors for the engine's decision taxonomy
var (
	// ErrRateLimited is a retryable capacity condition; callers should
	// surface the Decision's RetryAfter hint alongside it.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBlocked means the client is on the blocked list and is denied
	// regardless of window state until the block expires.
	ErrBlocked = errors.New("client is blocked")

	// ErrSessionLimitExceeded means the credential was valid but the
	// concurrent-session policy rejected the new session.
	ErrSessionLimitExceeded = errors.New("concurrent session limit exceeded")

	// ErrAccountLocked means repeated authentication failures locked the
	// identifier for the lockout duration.
	ErrAccountLocked = errors.New("account is temporarily locked")
)
