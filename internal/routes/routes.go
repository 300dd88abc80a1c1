package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/wardenlabs/warden/internal/auth"
	"github.com/wardenlabs/warden/internal/handlers"
	"github.com/wardenlabs/warden/internal/middleware"
	"github.com/wardenlabs/warden/internal/models"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	sessions auth.SessionValidator,
	admission middleware.Admitter,
) {
	// Login is the hot path for credential guessing: engine admission plus a
	// fixed coarse ceiling in front of it.
	router.Group(func(r chi.Router) {
		r.Use(middleware.GlobalRateLimit(middleware.DefaultGlobalRateLimit()))
		r.Use(middleware.Admission(admission))

		r.Post("/auth/login", authHandler.Login)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(middleware.Admission(admission))
		r.Use(auth.Middleware(tokenManager, sessions))

		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/logout-all", authHandler.LogoutAll)
		r.Get("/auth/sessions", authHandler.Sessions)

		// Admin-only reputation controls
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Post("/admin/block", adminHandler.Block)
			r.Post("/admin/allowlist", adminHandler.Allowlist)
			r.Get("/admin/clients/{clientKey}", adminHandler.ClientStatus)
			r.Get("/admin/clients/{clientKey}/events", adminHandler.ClientEvents)
			r.Get("/admin/stats", adminHandler.Stats)
		})
	})
}
