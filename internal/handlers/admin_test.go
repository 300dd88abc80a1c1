package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdminEngine struct {
	blockedKey      string
	blockedDuration time.Duration
	allowlisted     string
	blocked         bool
	violations      int
	suspicious      int
	tracked         int
}

func (s *stubAdminEngine) Block(clientKey string, now time.Time, duration time.Duration) {
	s.blockedKey = clientKey
	s.blockedDuration = duration
}

func (s *stubAdminEngine) Allowlist(clientKey string) { s.allowlisted = clientKey }

func (s *stubAdminEngine) IsBlocked(clientKey string, now time.Time) bool { return s.blocked }
func (s *stubAdminEngine) Violations(clientKey string) int                { return s.violations }
func (s *stubAdminEngine) SuspiciousCount(clientKey string) int           { return s.suspicious }
func (s *stubAdminEngine) TrackedClients() int                            { return s.tracked }

func TestAdminBlock(t *testing.T) {
	eng := &stubAdminEngine{}
	handler := NewAdminHandler(eng, nil)

	payload, err := json.Marshal(BlockRequest{ClientKey: "203.0.113.9", Duration: "24h"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin/block", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.Block(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "203.0.113.9", eng.blockedKey)
	assert.Equal(t, 24*time.Hour, eng.blockedDuration)
}

func TestAdminBlock_BadDuration(t *testing.T) {
	handler := NewAdminHandler(&stubAdminEngine{}, nil)

	for _, duration := range []string{"yesterday", "-5m", "0s"} {
		payload, err := json.Marshal(BlockRequest{ClientKey: "203.0.113.9", Duration: duration})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/admin/block", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.Block(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "duration %q", duration)
	}
}

func TestAdminAllowlist(t *testing.T) {
	eng := &stubAdminEngine{}
	handler := NewAdminHandler(eng, nil)

	payload, err := json.Marshal(AllowlistRequest{ClientKey: "10.0.0.1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin/allowlist", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.Allowlist(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.0.0.1", eng.allowlisted)
}

func TestAdminClientStatus(t *testing.T) {
	eng := &stubAdminEngine{blocked: true, violations: 7, suspicious: 6}
	handler := NewAdminHandler(eng, nil)

	router := chi.NewRouter()
	router.Get("/admin/clients/{clientKey}", handler.ClientStatus)

	req := httptest.NewRequest(http.MethodGet, "/admin/clients/203.0.113.9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ClientStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "203.0.113.9", resp.ClientKey)
	assert.True(t, resp.Blocked)
	assert.Equal(t, 7, resp.Violations)
	assert.Equal(t, 6, resp.SuspiciousCount)
}

func TestAdminClientEvents_NotConfigured(t *testing.T) {
	handler := NewAdminHandler(&stubAdminEngine{}, nil)

	router := chi.NewRouter()
	router.Get("/admin/clients/{clientKey}/events", handler.ClientEvents)

	req := httptest.NewRequest(http.MethodGet, "/admin/clients/203.0.113.9/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
