// Package postgres provides PostgreSQL database adapters.
//
// It implements the repository ports for resumes, sessions and reports.
// Rows are plain columns; the engine state blob and the synthesized report
// are stored opaquely and never inspected here.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// ResumeRepo persists and loads resumes using a minimal pgx pool.
type ResumeRepo struct{ Pool PgxPool }

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewResumeRepo constructs a ResumeRepo with the given pool.
func NewResumeRepo(p PgxPool) *ResumeRepo { return &ResumeRepo{Pool: p} }

// Create stores a new resume and returns its id (generates one if empty).
// The cached summary is stored as JSONB next to the raw text.
func (r *ResumeRepo) Create(ctx domain.Context, res domain.Resume) (string, error) {
	tracer := otel.Tracer("repo.resumes")
	ctx, span := tracer.Start(ctx, "resumes.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "resumes"),
	)
	id := res.ID
	if id == "" {
		id = uuid.New().String()
	}
	var summaryJSON []byte
	if res.Summary != nil {
		b, err := json.Marshal(res.Summary)
		if err != nil {
			return "", fmt.Errorf("op=resume.create_summary: %w", err)
		}
		summaryJSON = b
	}
	q := `INSERT INTO resumes (id, filename, text, summary, created_at) VALUES ($1,$2,$3,$4,$5)`
	_, err := r.Pool.Exec(ctx, q, id, res.Filename, res.Text, summaryJSON, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=resume.create: %w", err)
	}
	return id, nil
}

// Get loads a resume by id.
func (r *ResumeRepo) Get(ctx domain.Context, id string) (domain.Resume, error) {
	tracer := otel.Tracer("repo.resumes")
	ctx, span := tracer.Start(ctx, "resumes.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "resumes"),
	)
	q := `SELECT id, filename, text, summary, created_at FROM resumes WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var res domain.Resume
	var summaryJSON []byte
	if err := row.Scan(&res.ID, &res.Filename, &res.Text, &summaryJSON, &res.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Resume{}, fmt.Errorf("op=resume.get: %w", domain.ErrNotFound)
		}
		return domain.Resume{}, fmt.Errorf("op=resume.get: %w", err)
	}
	if len(summaryJSON) > 0 {
		var s domain.ResumeSummary
		if err := json.Unmarshal(summaryJSON, &s); err != nil {
			return domain.Resume{}, fmt.Errorf("op=resume.get_summary: %w", err)
		}
		res.Summary = &s
	}
	return res, nil
}
