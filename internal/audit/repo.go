package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository is the persistence interface for security events.
type EventRepository interface {
	Create(ctx context.Context, event *SecurityEvent) error
}

// PostgresEventRepository stores security events in Postgres via pgx.
type PostgresEventRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresEventRepository opens a connection pool against databaseURL
// and makes sure the events table exists.
func NewPostgresEventRepository(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresEventRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	repo := &PostgresEventRepository{pool: pool, logger: logger}
	if err := repo.ensureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("audit database connection established")
	return repo, nil
}

func (r *PostgresEventRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS security_events (
			id         UUID PRIMARY KEY,
			event_type TEXT NOT NULL,
			client_key TEXT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure security_events schema: %w", err)
	}
	return nil
}

// Create inserts one security event.
func (r *PostgresEventRepository) Create(ctx context.Context, event *SecurityEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode event metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO security_events (id, event_type, client_key, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.EventType, event.ClientKey, metadata, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}

// RecentByClient returns the newest events for a client key, for the
// operational "why is this client blocked" question.
func (r *PostgresEventRepository) RecentByClient(ctx context.Context, clientKey string, limit int) ([]*SecurityEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, event_type, client_key, metadata, created_at
		 FROM security_events
		 WHERE client_key = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		clientKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}
	defer rows.Close()

	var events []*SecurityEvent
	for rows.Next() {
		var (
			event    SecurityEvent
			metadata []byte
		)
		if err := rows.Scan(&event.ID, &event.EventType, &event.ClientKey, &metadata, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode event metadata: %w", err)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Close releases the connection pool.
func (r *PostgresEventRepository) Close() {
	r.logger.Info("closing audit database connection pool")
	r.pool.Close()
}

// HealthCheck pings the database with a short deadline.
func (r *PostgresEventRepository) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("audit database health check failed: %w", err)
	}
	return nil
}
