package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusTeapot, "some_code", "some message")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeError(t, rec)
	assert.Equal(t, "some_code", resp.Error)
	assert.Equal(t, "some message", resp.Message)
}

func TestWriteRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRateLimited(rec, 42*time.Second)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeError(t, rec).Error)
}

func TestWriteRateLimited_RoundsUp(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRateLimited(rec, 1500*time.Millisecond)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	WriteRateLimited(rec, 0)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestWriteBlocked(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBlocked(rec)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "blocked", decodeError(t, rec).Error)
}

func TestWriteSessionLimitExceeded(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSessionLimitExceeded(rec)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "session_limit_exceeded", decodeError(t, rec).Error)
}

func TestWriteAccountLocked(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAccountLocked(rec, 10*time.Minute)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Retry-After"))
	assert.Equal(t, "account_locked", decodeError(t, rec).Error)
}
