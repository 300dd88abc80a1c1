package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wardenlabs/warden/internal/auth"
	"github.com/wardenlabs/warden/internal/engine"
	"github.com/wardenlabs/warden/internal/middleware"
	"github.com/wardenlabs/warden/internal/models"
	"github.com/wardenlabs/warden/internal/services"
	pkghttp "github.com/wardenlabs/warden/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID string) error
	Sessions(ctx context.Context, userID string) ([]engine.SessionRecord, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionsResponse represents the response for the session list
type SessionsResponse struct {
	Sessions []engine.SessionRecord `json:"sessions"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	resp, err := h.service.Login(r.Context(), req.Email, req.Password, middleware.ClientKey(r))
	if err != nil {
		var locked *services.AccountLockedError
		switch {
		case errors.As(err, &locked):
			pkghttp.WriteAccountLocked(w, locked.RetryAfter)
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "invalid credentials")
		case errors.Is(err, engine.ErrSessionLimitExceeded):
			pkghttp.WriteSessionLimitExceeded(w)
		default:
			pkghttp.WriteInternalError(w, "login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout invalidates the session behind the presented token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.GetTokenFromContext(r)
	if token == "" {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUnauthorized(w, "session not found")
			return
		}
		pkghttp.WriteInternalError(w, "logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAll invalidates every session for the authenticated user
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.service.LogoutAll(r.Context(), claims.UserID); err != nil {
		pkghttp.WriteInternalError(w, "logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "all sessions logged out"})
}

// Sessions lists the authenticated user's active sessions
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	sessions, err := h.service.Sessions(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}
