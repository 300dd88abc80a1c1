package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/wardenlabs/warden/internal/engine"
	pkghttp "github.com/wardenlabs/warden/pkg/http"
)

// Admitter is the slice of the admission engine the edge middleware needs.
type Admitter interface {
	Admit(clientKey string, now time.Time) engine.Decision
}

// RateLimitConfig holds the coarse pre-engine guard configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultGlobalRateLimit returns the default coarse guard (300 requests per minute)
func DefaultGlobalRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 300,
	}
}

// GlobalRateLimit is a fixed per-IP ceiling in front of the engine. It sheds
// floods cheaply so the engine's per-client stores only see plausible traffic.
func GlobalRateLimit(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteRateLimited(w, time.Minute)
		}),
	)
}

// Admission consults the engine for every request. Denials map to 429 for
// rate-limit exhaustion and 403 for reputation blocks; allowed responses
// carry the X-RateLimit-* headers so well-behaved clients can pace themselves.
func Admission(adm Admitter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			decision := adm.Admit(ClientKey(r), now)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.ResetAt.IsZero() {
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if err := decision.Err(); err != nil {
				if errors.Is(err, engine.ErrBlocked) {
					pkghttp.WriteBlocked(w)
					return
				}
				pkghttp.WriteRateLimited(w, decision.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey derives the engine's client key from the request: the remote IP,
// after chi's RealIP middleware has resolved forwarding headers.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
