package middleware

import (
	"net/http"
	"sync/atomic"
)

// LoadTracker derives a normalized load signal from the number of in-flight
// requests, for the engine's adaptive controller.
type LoadTracker struct {
	inflight atomic.Int64
	capacity float64
}

// NewLoadTracker creates a tracker that reports 1.0 at capacity concurrent
// requests.
func NewLoadTracker(capacity int) *LoadTracker {
	if capacity <= 0 {
		capacity = 256
	}
	return &LoadTracker{capacity: float64(capacity)}
}

// Track counts the request as in-flight for its duration
func (lt *LoadTracker) Track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lt.inflight.Add(1)
		defer lt.inflight.Add(-1)
		next.ServeHTTP(w, r)
	})
}

// Sample reports current load normalized to 0..1
func (lt *LoadTracker) Sample() float64 {
	load := float64(lt.inflight.Load()) / lt.capacity
	if load > 1 {
		return 1
	}
	return load
}
