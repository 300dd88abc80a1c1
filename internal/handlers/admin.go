package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wardenlabs/warden/internal/audit"
	pkghttp "github.com/wardenlabs/warden/pkg/http"
)

// AdminEngine is the slice of the admission engine exposed to operators.
type AdminEngine interface {
	Block(clientKey string, now time.Time, duration time.Duration)
	Allowlist(clientKey string)
	IsBlocked(clientKey string, now time.Time) bool
	Violations(clientKey string) int
	SuspiciousCount(clientKey string) int
	TrackedClients() int
}

// EventReader answers the operational "why is this client blocked" question
// from the durable audit trail.
type EventReader interface {
	RecentByClient(ctx context.Context, clientKey string, limit int) ([]*audit.SecurityEvent, error)
}

// AdminHandler exposes manual reputation controls. Routes using it must sit
// behind the admin role.
type AdminHandler struct {
	engine AdminEngine
	events EventReader
}

// NewAdminHandler creates a new AdminHandler. events may be nil when no audit
// database is configured.
func NewAdminHandler(engine AdminEngine, events EventReader) *AdminHandler {
	return &AdminHandler{engine: engine, events: events}
}

// BlockRequest represents the request body for a manual block
type BlockRequest struct {
	ClientKey string `json:"client_key" validate:"required"`
	Duration  string `json:"duration" validate:"required"`
}

// AllowlistRequest represents the request body for an allowlist addition
type AllowlistRequest struct {
	ClientKey string `json:"client_key" validate:"required"`
}

// ClientStatusResponse reports the engine's view of one client
type ClientStatusResponse struct {
	ClientKey       string `json:"client_key"`
	Blocked         bool   `json:"blocked"`
	Violations      int    `json:"violations"`
	SuspiciousCount int    `json:"suspicious_count"`
}

// Block applies a manual temporary block to a client key
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	duration, err := time.ParseDuration(req.Duration)
	if err != nil || duration <= 0 {
		pkghttp.WriteBadRequest(w, "duration must be a positive Go duration, e.g. 24h")
		return
	}

	h.engine.Block(req.ClientKey, time.Now(), duration)
	writeJSON(w, http.StatusOK, map[string]string{"message": "client blocked"})
}

// Allowlist permanently exempts a client key from admission control
func (h *AdminHandler) Allowlist(w http.ResponseWriter, r *http.Request) {
	var req AllowlistRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	h.engine.Allowlist(req.ClientKey)
	writeJSON(w, http.StatusOK, map[string]string{"message": "client allowlisted"})
}

// ClientStatus reports the engine's current view of a client key
func (h *AdminHandler) ClientStatus(w http.ResponseWriter, r *http.Request) {
	clientKey := chi.URLParam(r, "clientKey")
	if clientKey == "" {
		pkghttp.WriteBadRequest(w, "missing client key")
		return
	}

	writeJSON(w, http.StatusOK, ClientStatusResponse{
		ClientKey:       clientKey,
		Blocked:         h.engine.IsBlocked(clientKey, time.Now()),
		Violations:      h.engine.Violations(clientKey),
		SuspiciousCount: h.engine.SuspiciousCount(clientKey),
	})
}

// ClientEvents returns the recent audit trail for a client key
func (h *AdminHandler) ClientEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		pkghttp.WriteError(w, http.StatusNotImplemented, "not_configured", "no audit database configured")
		return
	}

	clientKey := chi.URLParam(r, "clientKey")
	if clientKey == "" {
		pkghttp.WriteBadRequest(w, "missing client key")
		return
	}

	events, err := h.events.RecentByClient(r.Context(), clientKey, 50)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to query audit events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// Stats reports engine-wide counters
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"tracked_clients": h.engine.TrackedClients(),
	})
}
