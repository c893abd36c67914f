package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Tx is the transaction subset used by the retention service.
type Tx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner starts transactions. *pgxpool.Pool is adapted to it in cmd/server.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// RetentionService deletes interview data older than the retention window:
// finished sessions with their reports, and resumes no session references.
type RetentionService struct {
	DB            Beginner
	RetentionDays int
}

// NewRetentionService creates a retention service; days <= 0 defaults to 90.
func NewRetentionService(db Beginner, retentionDays int) *RetentionService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &RetentionService{DB: db, RetentionDays: retentionDays}
}

// PurgeExpired removes data older than the retention period in one
// transaction. Per-table failures are logged and skipped so one bad table
// does not block the rest of the sweep.
func (s *RetentionService) PurgeExpired(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.RetentionDays)

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("retention begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deletedReports int64
	err = tx.QueryRow(ctx, `
		WITH deleted AS (
			DELETE FROM reports
			WHERE session_id IN (SELECT id FROM sessions WHERE created_at < $1)
			RETURNING 1
		)
		SELECT count(*) FROM deleted
	`, cutoff).Scan(&deletedReports)
	if err != nil {
		slog.Debug("retention: reports delete skipped", slog.Any("error", err))
	}

	var deletedSessions int64
	err = tx.QueryRow(ctx, `
		WITH deleted AS (
			DELETE FROM sessions WHERE created_at < $1 RETURNING 1
		)
		SELECT count(*) FROM deleted
	`, cutoff).Scan(&deletedSessions)
	if err != nil {
		slog.Debug("retention: sessions delete skipped", slog.Any("error", err))
	}

	var deletedResumes int64
	err = tx.QueryRow(ctx, `
		WITH deleted AS (
			DELETE FROM resumes
			WHERE created_at < $1
			AND id NOT IN (SELECT resume_id FROM sessions)
			RETURNING 1
		)
		SELECT count(*) FROM deleted
	`, cutoff).Scan(&deletedResumes)
	if err != nil {
		slog.Debug("retention: resumes delete skipped", slog.Any("error", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("retention commit: %w", err)
	}

	slog.Info("retention sweep completed",
		slog.Int64("deleted_sessions", deletedSessions),
		slog.Int64("deleted_reports", deletedReports),
		slog.Int64("deleted_resumes", deletedResumes),
		slog.Time("cutoff", cutoff),
	)

	return nil
}

// RunPeriodic sweeps immediately and then on every tick until ctx is done.
func (s *RetentionService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.PurgeExpired(ctx); err != nil {
		slog.Error("initial retention sweep failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention service stopping")
			return
		case <-ticker.C:
			if err := s.PurgeExpired(ctx); err != nil {
				slog.Error("periodic retention sweep failed", slog.Any("error", err))
			}
		}
	}
}
