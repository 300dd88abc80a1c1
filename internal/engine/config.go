package engine

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all tuning knobs for the admission engine. Every field is a
// plain numeric, duration or string value; nothing executable is accepted.
type Config struct {
	// Sliding-window limiter
	Window    time.Duration `validate:"required,gt=0"`
	MaxEvents int           `validate:"required,gt=0"`

	// Escalation thresholds
	ViolationThreshold  int `validate:"required,gt=0"` // violations before a suspicious mark
	EscalateThreshold   int `validate:"required,gt=0"` // violations before an immediate block (opt-in)
	SuspiciousThreshold int `validate:"required,gt=0"` // suspicious marks before an automatic block

	BlockDuration time.Duration `validate:"required,gt=0"`

	// Session registry
	SessionCap         int           `validate:"required,gt=0"`
	SessionIdleTimeout time.Duration `validate:"required,gt=0"`

	// Failed-attempt lockout
	LockoutThreshold int           `validate:"required,gt=0"`
	LockoutDuration  time.Duration `validate:"required,gt=0"`

	// Staleness horizons and sweep cadence
	ClientStaleAfter     time.Duration `validate:"required,gt=0"`
	CounterSweepInterval time.Duration `validate:"required,gt=0"`
	StateSweepInterval   time.Duration `validate:"required,gt=0"`

	// Adaptive controller load watermarks (normalized 0..1)
	LoadLowWater  float64 `validate:"gte=0,lte=1"`
	LoadHighWater float64 `validate:"gte=0,lte=1"`

	// Clients that bypass every check unconditionally
	Allowlist []string
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		Window:               time.Minute,
		MaxEvents:            60,
		ViolationThreshold:   3,
		EscalateThreshold:    5,
		SuspiciousThreshold:  5,
		BlockDuration:        24 * time.Hour,
		SessionCap:           3,
		SessionIdleTimeout:   8 * time.Hour,
		LockoutThreshold:     5,
		LockoutDuration:      15 * time.Minute,
		ClientStaleAfter:     24 * time.Hour,
		CounterSweepInterval: 5 * time.Minute,
		StateSweepInterval:   time.Hour,
		LoadLowWater:         0.5,
		LoadHighWater:        0.8,
	}
}

var validate = validator.New()

// Validate checks the configuration for values the engine cannot operate with.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	if c.LoadLowWater > c.LoadHighWater {
		return fmt.Errorf("invalid engine config: LoadLowWater %.2f exceeds LoadHighWater %.2f", c.LoadLowWater, c.LoadHighWater)
	}
	if c.ClientStaleAfter < c.Window {
		return fmt.Errorf("invalid engine config: ClientStaleAfter must not be shorter than Window")
	}
	return nil
}
