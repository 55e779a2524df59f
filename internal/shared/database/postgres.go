package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/krishbavarva/freshcart/internal/shared/config"
)

// DB wraps the pgx pool with helper methods
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	applyPoolSettings(poolConfig, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// applyPoolSettings maps the pool knobs from config onto the pgx pool,
// falling back to modest sizes when a knob is unset.
func applyPoolSettings(poolConfig *pgxpool.Config, cfg config.DatabaseConfig) {
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 20
	}
	minConns := cfg.MinConns
	if minConns <= 0 {
		minConns = 4
	}
	if minConns > maxConns {
		minConns = maxConns
	}
	lifeMins := cfg.ConnMaxLifeMins
	if lifeMins <= 0 {
		lifeMins = 60
	}
	idleMins := cfg.ConnMaxIdleMins
	if idleMins <= 0 {
		idleMins = 30
	}

	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = int32(minConns)
	poolConfig.MaxConnLifetime = time.Duration(lifeMins) * time.Minute
	poolConfig.MaxConnIdleTime = time.Duration(idleMins) * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health checks the database connection
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
