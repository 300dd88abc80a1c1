package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// ErrorResponse is the standard API error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`             // machine-readable error code
	Message string `json:"message"`           // human-readable message
	Details string `json:"details,omitempty"` // optional additional context
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}

	// Encoding errors are not surfaced to the client
	_ = json.NewEncoder(w).Encode(resp)
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// WriteRateLimited writes a 429 for a plain capacity denial, with a
// Retry-After hint so clients know this is a "slow down", not a rejection.
func WriteRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests")
}

// WriteBlocked writes a 403 with a distinct code for reputation blocks so
// caller-side UX can tell "temporarily denied" apart from a capacity limit.
func WriteBlocked(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, "blocked", "Access temporarily denied")
}

// WriteSessionLimitExceeded writes a 403 for the concurrent-session cap: the
// credential was valid but the concurrency policy rejected the session.
func WriteSessionLimitExceeded(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, "session_limit_exceeded", "Concurrent session limit reached")
}

// WriteAccountLocked writes a 429 for failed-attempt lockout, with the time
// until the lock lifts.
func WriteAccountLocked(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
	WriteError(w, http.StatusTooManyRequests, "account_locked", "Account temporarily locked")
}

// retryAfterSeconds rounds up so a client never retries early.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
