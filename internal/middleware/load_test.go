package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadTracker_Sample(t *testing.T) {
	lt := NewLoadTracker(4)
	assert.Equal(t, 0.0, lt.Sample())

	release := make(chan struct{})
	entered := make(chan struct{})
	handler := lt.Track(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
	}))

	for i := 0; i < 2; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}()
		<-entered
	}

	assert.Equal(t, 0.5, lt.Sample())
	close(release)
}

func TestLoadTracker_ClampsToOne(t *testing.T) {
	lt := NewLoadTracker(1)
	lt.inflight.Store(10)
	assert.Equal(t, 1.0, lt.Sample())
}
