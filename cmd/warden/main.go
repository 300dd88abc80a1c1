package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenlabs/warden/internal/allowlist"
	"github.com/wardenlabs/warden/internal/audit"
	"github.com/wardenlabs/warden/internal/auth"
	"github.com/wardenlabs/warden/internal/config"
	"github.com/wardenlabs/warden/internal/engine"
	"github.com/wardenlabs/warden/internal/handlers"
	middlewareCustom "github.com/wardenlabs/warden/internal/middleware"
	"github.com/wardenlabs/warden/internal/models"
	"github.com/wardenlabs/warden/internal/repositories"
	"github.com/wardenlabs/warden/internal/routes"
	"github.com/wardenlabs/warden/internal/services"
	pkgauth "github.com/wardenlabs/warden/pkg/auth"
	pkglogger "github.com/wardenlabs/warden/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Optional durable audit sink
	var auditRepo *audit.PostgresEventRepository
	if cfg.Audit.DatabaseURL != "" {
		auditRepo, err = audit.NewPostgresEventRepository(context.Background(), cfg.Audit.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to audit database", slog.Any("error", err))
			os.Exit(1)
		}
		defer auditRepo.Close()
	}

	var auditSink audit.EventRepository
	if auditRepo != nil {
		auditSink = auditRepo
	}
	auditService := audit.NewService(auditSink, auditLogger, logger)

	registry := prometheus.NewRegistry()
	loadTracker := middlewareCustom.NewLoadTracker(getLoadCapacity())

	// Admission engine
	eng, err := engine.NewEngine(cfg.Engine, logger,
		engine.WithAuditor(auditService),
		engine.WithRegisterer(registry),
		engine.WithLoadSampler(loadTracker.Sample),
	)
	if err != nil {
		logger.Error("failed to start admission engine", slog.Any("error", err))
		os.Exit(1)
	}
	defer eng.Shutdown()

	// Allow-list file watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Server.AllowlistFile != "" {
		watcher, err := allowlist.NewWatcher(cfg.Server.AllowlistFile, eng, logger)
		if err != nil {
			logger.Error("failed to load allowlist", slog.Any("error", err))
			os.Exit(1)
		}
		go func() {
			if err := watcher.Run(watchCtx); err != nil {
				logger.Error("allowlist watcher stopped", slog.Any("error", err))
			}
		}()
	}

	// Principals, tokens, services, handlers
	userRepo := repositories.NewInMemoryUserRepository()
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	if err := ensureAdminUser(cfg, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
		os.Exit(1)
	}

	authService := services.NewAuthService(userRepo, tokenManager, eng, auditLogger, logger)
	authHandler := handlers.NewAuthHandler(authService)

	var eventReader handlers.EventReader
	if auditRepo != nil {
		eventReader = auditRepo
	}
	adminHandler := handlers.NewAdminHandler(eng, eventReader)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(loadTracker.Track)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, adminHandler, tokenManager, eng, eng)

	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if auditRepo != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := auditRepo.HealthCheck(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy","audit_database":"down"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	watchCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getLoadCapacity() int {
	if v := os.Getenv("LOAD_CAPACITY"); v != "" {
		var capacity int
		if _, err := fmt.Sscanf(v, "%d", &capacity); err == nil && capacity > 0 {
			return capacity
		}
	}
	return 256
}

// ensureAdminUser seeds the first admin principal if ADMIN_EMAIL and
// ADMIN_PASSWORD are configured
func ensureAdminUser(cfg *config.Config, userRepo repositories.UserRepository, logger *slog.Logger) error {
	if cfg.Auth.AdminEmail == "" || cfg.Auth.AdminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	if err := pkgauth.ValidatePassword(cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("weak admin password: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	err = userRepo.Create(context.Background(), &models.User{
		Email:        cfg.Auth.AdminEmail,
		Name:         "Admin",
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
	})
	if err != nil && !errors.Is(err, models.ErrDuplicateEmail) {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user ready", slog.String("email", pkglogger.SanitizedIdentity(cfg.Auth.AdminEmail)))
	return nil
}
