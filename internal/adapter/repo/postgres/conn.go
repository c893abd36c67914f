package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a pgx connection pool from the provided DSN and returns it.
// Queries are traced with otelpgx so SQL spans nest under the repo spans.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
// Idempotent; called once at startup.
func EnsureSchema(ctx context.Context, pool PgxPool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS resumes (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	text TEXT NOT NULL,
	summary JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	resume_id TEXT NOT NULL REFERENCES resumes(id),
	job_role TEXT NOT NULL,
	round TEXT NOT NULL,
	status TEXT NOT NULL,
	state BYTEA,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_status_updated_at_idx ON sessions (status, updated_at);
CREATE TABLE IF NOT EXISTS reports (
	session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
	report JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("op=postgres.ensure_schema: %w", err)
	}
	return nil
}
