package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wardenlabs/warden/internal/auth"
	"github.com/wardenlabs/warden/internal/engine"
	"github.com/wardenlabs/warden/internal/models"
	"github.com/wardenlabs/warden/internal/repositories"
	pkgauth "github.com/wardenlabs/warden/pkg/auth"
	pkglogger "github.com/wardenlabs/warden/pkg/logger"
)

// AccountLockedError carries the remaining lockout duration so the edge can
// emit a Retry-After hint.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *AccountLockedError) Unwrap() error {
	return engine.ErrAccountLocked
}

// AuthResponse is returned on successful login
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService implements the login flow against the admission engine: lockout
// check, credential verification, session cap, registration, token issue.
type AuthService struct {
	users       repositories.UserRepository
	tokens      *auth.TokenManager
	engine      *engine.Engine
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users repositories.UserRepository,
	tokens *auth.TokenManager,
	eng *engine.Engine,
	auditLogger *pkglogger.AuditLogger,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		engine:      eng,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Login authenticates a user and registers the resulting session.
//
// Failed attempts feed the lockout tracker under the submitted identity and
// the violation tracker under the caller's network address, so repeated
// guessing degrades both the credential and the source.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResponse, error) {
	now := time.Now()

	if locked, remaining := s.engine.IsLocked(email, now); locked {
		s.auditLogger.LogAuthAttempt(email, ipAddress, false, "account_locked")
		return nil, &AccountLockedError{RetryAfter: remaining}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.recordFailure(email, ipAddress, now, "unknown_identity")
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordFailure(email, ipAddress, now, "bad_password")
		return nil, models.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	fingerprint := auth.Fingerprint(token)
	if s.engine.SessionCapExceeded(user.ID, fingerprint) {
		s.auditLogger.LogAuthAttempt(email, ipAddress, false, "session_limit")
		return nil, engine.ErrSessionLimitExceeded
	}

	s.engine.RegisterSession(user.ID, fingerprint, now)
	s.engine.ClearAuthFailures(email)
	s.auditLogger.LogAuthAttempt(email, ipAddress, true, "")

	return &AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *AuthService) recordFailure(email, ipAddress string, now time.Time, reason string) {
	s.auditLogger.LogAuthAttempt(email, ipAddress, false, reason)
	s.engine.RecordAuthFailure(email, now)
	if ipAddress != "" {
		s.engine.RecordViolation(ipAddress, now, false)
	}
}

// Logout invalidates the session identified by the presented token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}

	if !s.engine.InvalidateSession(claims.UserID, auth.Fingerprint(token)) {
		return models.ErrNotFound
	}

	s.logger.Info("session invalidated",
		slog.String("user_id", claims.UserID),
	)
	return nil
}

// LogoutAll invalidates every session for the user
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	s.engine.InvalidateAllSessions(userID)
	s.logger.Info("all sessions invalidated",
		slog.String("user_id", userID),
	)
	return nil
}

// Sessions lists the user's active sessions, most recently active first
func (s *AuthService) Sessions(ctx context.Context, userID string) ([]engine.SessionRecord, error) {
	return s.engine.ListSessions(userID), nil
}
