package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wardenlabs/warden/internal/engine"
)

type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Audit  AuditConfig
	Engine engine.Config
}

type ServerConfig struct {
	Port          string
	Env           string
	LogLevel      string
	AllowlistFile string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

type AuthConfig struct {
	JWTSecret     string
	TokenExpiry   time.Duration
	AdminEmail    string
	AdminPassword string
}

type AuditConfig struct {
	// DatabaseURL enables the durable audit sink; empty means log-only
	DatabaseURL string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	engineCfg := engine.DefaultConfig()
	engineCfg.Window = getEnvAsDuration("ADMIT_WINDOW", engineCfg.Window)
	engineCfg.MaxEvents = getEnvAsInt("ADMIT_MAX_EVENTS", engineCfg.MaxEvents)
	engineCfg.ViolationThreshold = getEnvAsInt("VIOLATION_THRESHOLD", engineCfg.ViolationThreshold)
	engineCfg.EscalateThreshold = getEnvAsInt("ESCALATE_THRESHOLD", engineCfg.EscalateThreshold)
	engineCfg.SuspiciousThreshold = getEnvAsInt("SUSPICIOUS_THRESHOLD", engineCfg.SuspiciousThreshold)
	engineCfg.BlockDuration = getEnvAsDuration("BLOCK_DURATION", engineCfg.BlockDuration)
	engineCfg.SessionCap = getEnvAsInt("SESSION_CAP", engineCfg.SessionCap)
	engineCfg.SessionIdleTimeout = getEnvAsDuration("SESSION_IDLE_TIMEOUT", engineCfg.SessionIdleTimeout)
	engineCfg.LockoutThreshold = getEnvAsInt("LOCKOUT_THRESHOLD", engineCfg.LockoutThreshold)
	engineCfg.LockoutDuration = getEnvAsDuration("LOCKOUT_DURATION", engineCfg.LockoutDuration)
	engineCfg.ClientStaleAfter = getEnvAsDuration("CLIENT_STALE_AFTER", engineCfg.ClientStaleAfter)
	engineCfg.CounterSweepInterval = getEnvAsDuration("COUNTER_SWEEP_INTERVAL", engineCfg.CounterSweepInterval)
	engineCfg.StateSweepInterval = getEnvAsDuration("STATE_SWEEP_INTERVAL", engineCfg.StateSweepInterval)
	engineCfg.LoadLowWater = getEnvAsFloat("LOAD_LOW_WATER", engineCfg.LoadLowWater)
	engineCfg.LoadHighWater = getEnvAsFloat("LOAD_HIGH_WATER", engineCfg.LoadHighWater)

	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			Env:           env,
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			AllowlistFile: getEnv("ALLOWLIST_FILE", ""),
			ReadTimeout:   getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:  getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:   getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:     jwtSecret,
			TokenExpiry:   getEnvAsDuration("TOKEN_EXPIRY", 8*time.Hour),
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		Audit: AuditConfig{
			DatabaseURL: getEnv("AUDIT_DATABASE_URL", ""),
		},
		Engine: engineCfg,
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for the JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
