package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyzr/diagflow/common/config"
	"github.com/lyzr/diagflow/common/logger"
)

// DB wraps pgxpool with the connection lifecycle the registry snapshot
// store needs.
type DB struct {
	*pgxpool.Pool
	log *logger.Logger
}

// New creates a new database connection pool for the optional registry
// snapshot store. Only called when cfg.Database.Enabled is set.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connected", "host", cfg.Database.Host, "db", cfg.Database.Database)

	return &DB{
		Pool: pool,
		log:  log,
	}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.log.Info("closing database connection pool")
	db.Pool.Close()
}

// Health checks database connectivity.
func (db *DB) Health(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return db.Pool.Ping(healthCtx)
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS registry_snapshots (
	workflow_id TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	version     INT NOT NULL,
	definition  JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the registry_snapshots table used by
// engine/registry's optional durability layer if it does not already
// exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, schemaDDL)
	return err
}

// SaveSnapshot upserts one workflow's current definition and lifecycle
// metadata, called after every successful Register/SetStatus/ApplyPatch so
// a restarted flowd instance can reload its registry from durable storage.
func (db *DB) SaveSnapshot(ctx context.Context, workflowID, status string, version int, definitionJSON []byte) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO registry_snapshots (workflow_id, status, version, definition, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (workflow_id) DO UPDATE
		SET status = $2, version = $3, definition = $4, updated_at = now()
	`, workflowID, status, version, definitionJSON)
	return err
}

// LoadSnapshots returns every persisted workflow definition, keyed by id,
// for populating a fresh registry.Registry at startup.
func (db *DB) LoadSnapshots(ctx context.Context) (map[string][]byte, error) {
	rows, err := db.Pool.Query(ctx, `SELECT workflow_id, definition FROM registry_snapshots`)
	if err != nil {
		return nil, fmt.Errorf("load registry snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var id string
		var def []byte
		if err := rows.Scan(&id, &def); err != nil {
			return nil, fmt.Errorf("scan registry snapshot row: %w", err)
		}
		out[id] = def
	}
	return out, rows.Err()
}
