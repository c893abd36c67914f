package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// ReportRepo persists synthesized interview reports from PostgreSQL.
// The report document is stored as JSONB keyed by session id.
type ReportRepo struct{ Pool PgxPool }

// NewReportRepo constructs a ReportRepo with the given pool.
func NewReportRepo(p PgxPool) *ReportRepo { return &ReportRepo{Pool: p} }

// Upsert inserts or replaces the report for a session. The worker may
// redeliver a task, so the last write wins.
func (r *ReportRepo) Upsert(ctx domain.Context, sessionID string, report domain.InterviewReport) error {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "reports"),
	)
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("op=report.upsert_marshal: %w", err)
	}
	q := `INSERT INTO reports (session_id, report, created_at, updated_at)
	VALUES ($1,$2,$3,$3)
	ON CONFLICT (session_id)
	DO UPDATE SET report=EXCLUDED.report, updated_at=EXCLUDED.updated_at`
	_, err = r.Pool.Exec(ctx, q, sessionID, doc, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=report.upsert: %w", err)
	}
	return nil
}

// GetBySessionID loads the report for a session.
func (r *ReportRepo) GetBySessionID(ctx domain.Context, sessionID string) (domain.InterviewReport, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.GetBySessionID")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "reports"),
	)
	q := `SELECT report FROM reports WHERE session_id=$1`
	row := r.Pool.QueryRow(ctx, q, sessionID)
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InterviewReport{}, fmt.Errorf("op=report.get: %w", domain.ErrNotFound)
		}
		return domain.InterviewReport{}, fmt.Errorf("op=report.get: %w", err)
	}
	var rep domain.InterviewReport
	if err := json.Unmarshal(doc, &rep); err != nil {
		return domain.InterviewReport{}, fmt.Errorf("op=report.get_unmarshal: %w", err)
	}
	return rep, nil
}
