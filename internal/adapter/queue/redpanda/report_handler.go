package redpanda

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/internal/usecase"
)

// ReportHandler consumes report tasks: it loads the finished session,
// synthesizes the interview report and stores it.
type ReportHandler struct {
	sessions domain.SessionRepository
	reports  domain.ReportRepository
	svc      usecase.ReportService
}

// NewReportHandler wires the handler's dependencies.
func NewReportHandler(sessions domain.SessionRepository, reports domain.ReportRepository, svc usecase.ReportService) *ReportHandler {
	return &ReportHandler{sessions: sessions, reports: reports, svc: svc}
}

// Handle processes one report task record.
//
// A nil return marks the record consumed. Tasks that redelivery cannot
// fix (malformed payload, unknown session, unreadable state) are logged
// and dropped; transient storage failures are returned so the batch
// aborts and the record is redelivered.
func (h *ReportHandler) Handle(ctx domain.Context, record *kgo.Record) error {
	tracer := otel.Tracer("queue.report")
	ctx, span := tracer.Start(ctx, "ProcessReportTask")
	defer span.End()

	var payload domain.ReportTaskPayload
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		slog.Error("dropping malformed report task",
			slog.String("topic", record.Topic),
			slog.Int64("offset", record.Offset),
			slog.Any("error", err))
		return nil
	}
	span.SetAttributes(attribute.String("session.id", payload.SessionID))

	observability.StartReport()
	start := time.Now()

	sess, err := h.sessions.Get(ctx, payload.SessionID)
	if err != nil {
		observability.FailReport()
		if errors.Is(err, domain.ErrNotFound) {
			slog.Error("dropping report task for unknown session",
				slog.String("session_id", payload.SessionID))
			return nil
		}
		return fmt.Errorf("op=report.load_session: %w", err)
	}

	state, err := domain.UnmarshalState(sess.State)
	if err != nil {
		observability.FailReport()
		slog.Error("dropping report task with unreadable session state",
			slog.String("session_id", payload.SessionID),
			slog.Any("error", err))
		return nil
	}

	jobRole := payload.JobRole
	if jobRole == "" {
		jobRole = sess.JobRole
	}

	rep := h.svc.Synthesize(ctx, payload.SessionID, jobRole,
		state.PreviousQuestions, state.UserAnswers, state.EvaluationHistory)

	if err := h.reports.Upsert(ctx, payload.SessionID, rep); err != nil {
		observability.FailReport()
		return fmt.Errorf("op=report.store: %w", err)
	}

	observability.CompleteReport()
	slog.Info("report synthesized",
		slog.String("session_id", payload.SessionID),
		slog.String("job_role", jobRole),
		slog.Float64("overall_score", rep.ExecutiveSummary.OverallScore),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
