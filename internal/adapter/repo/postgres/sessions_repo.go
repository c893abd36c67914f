package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// SessionRepo persists and loads interview sessions from PostgreSQL.
// The engine state blob is written and read verbatim.
type SessionRepo struct{ Pool PgxPool }

// NewSessionRepo constructs a SessionRepo with the given pool.
func NewSessionRepo(p PgxPool) *SessionRepo { return &SessionRepo{Pool: p} }

// Create inserts a new session and returns its id (generates one if empty).
func (r *SessionRepo) Create(ctx domain.Context, s domain.Session) (string, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "sessions"),
	)
	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO sessions (id, resume_id, job_role, round, status, state, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.Pool.Exec(ctx, q, id, s.ResumeID, s.JobRole, s.Round, s.Status, s.State, now, now)
	if err != nil {
		return "", fmt.Errorf("op=session.create: %w", err)
	}
	return id, nil
}

// Get loads a session by id.
func (r *SessionRepo) Get(ctx domain.Context, id string) (domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "sessions"),
	)
	q := `SELECT id, resume_id, job_role, round, status, COALESCE(state, ''::bytea), created_at, updated_at FROM sessions WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var s domain.Session
	if err := row.Scan(&s.ID, &s.ResumeID, &s.JobRole, &s.Round, &s.Status, &s.State, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, fmt.Errorf("op=session.get: %w", domain.ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("op=session.get: %w", err)
	}
	return s, nil
}

// UpdateState replaces a session's round, status and state blob in one write.
func (r *SessionRepo) UpdateState(ctx domain.Context, id string, round domain.SessionRound, status domain.SessionStatus, state []byte) error {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.UpdateState")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "sessions"),
	)
	q := `UPDATE sessions SET round=$2, status=$3, state=$4, updated_at=$5 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, round, status, state, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=session.update_state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=session.update_state: %w", domain.ErrNotFound)
	}
	return nil
}

// ListStaleActive returns active sessions whose last update is older than
// cutoff, oldest first. Used by the abandoned-session sweeper.
func (r *SessionRepo) ListStaleActive(ctx domain.Context, cutoff time.Time, limit int) ([]domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.ListStaleActive")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "sessions"),
	)
	q := `SELECT id, resume_id, job_role, round, status, COALESCE(state, ''::bytea), created_at, updated_at FROM sessions WHERE status=$1 AND updated_at < $2 ORDER BY updated_at ASC LIMIT $3`
	rows, err := r.Pool.Query(ctx, q, domain.StatusActive, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("op=session.list_stale: %w", err)
	}
	defer rows.Close()
	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.ResumeID, &s.JobRole, &s.Round, &s.Status, &s.State, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=session.list_stale_scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=session.list_stale_rows: %w", err)
	}
	return out, nil
}
