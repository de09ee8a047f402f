// Package database opens the optional journal database.
package database

import (
	"context"
	"fmt"
	"time"

	"canteen-tracker/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Msg("creating journal connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("journal connection pool created successfully")

	return pool, nil
}

// Schema is the journal schema. Every statement is idempotent.
const Schema = `
	CREATE TABLE IF NOT EXISTS coupons (
		order_id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		code TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		amount DECIMAL(10,2) NOT NULL DEFAULT 0 CHECK (amount >= 0),
		method TEXT NOT NULL,
		issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_coupons_user_id ON coupons(user_id, issued_at DESC);

	CREATE TABLE IF NOT EXISTS order_transitions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		order_id BIGINT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		notified BOOLEAN NOT NULL DEFAULT FALSE,
		observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_order_transitions_order_id ON order_transitions(order_id, observed_at);
`

// Migrate creates the journal tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		logger.Error().Err(err).Msg("failed to migrate journal schema")
		return fmt.Errorf("failed to migrate journal schema: %w", err)
	}
	logger.Info().Msg("journal schema ready")
	return nil
}
