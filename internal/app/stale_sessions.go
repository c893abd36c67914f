package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// StaleSessionStore is the slice of the session repository the sweeper
// needs.
type StaleSessionStore interface {
	ListStaleActive(ctx domain.Context, cutoff time.Time, limit int) ([]domain.Session, error)
	UpdateState(ctx domain.Context, id string, round domain.SessionRound, status domain.SessionStatus, state []byte) error
}

// StaleSessionSweeper marks abandoned interviews as errored. A session
// whose candidate walked away would otherwise stay active forever and
// hold its slot in every per-status count.
type StaleSessionSweeper struct {
	sessions StaleSessionStore
	maxIdle  time.Duration
	interval time.Duration
}

// NewStaleSessionSweeper builds a sweeper; nil store disables it.
func NewStaleSessionSweeper(sessions StaleSessionStore, maxIdle, interval time.Duration) *StaleSessionSweeper {
	if sessions == nil {
		return nil
	}
	if maxIdle <= 0 {
		maxIdle = 30 * time.Minute
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StaleSessionSweeper{sessions: sessions, maxIdle: maxIdle, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *StaleSessionSweeper) Run(ctx context.Context) {
	if s == nil || s.sessions == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("stale session sweeper stopping")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *StaleSessionSweeper) sweepOnce(ctx context.Context) {
	tracer := otel.Tracer("sessions.sweeper")
	ctx, span := tracer.Start(ctx, "StaleSessionSweeper.sweepOnce")
	defer span.End()

	cutoff := time.Now().Add(-s.maxIdle)
	const pageSize = 100
	span.SetAttributes(
		attribute.Int("sessions.page_size", pageSize),
		attribute.Float64("sessions.max_idle_seconds", s.maxIdle.Seconds()),
	)

	checked := 0
	abandoned := 0
	for {
		// Each pass flips its page to error, so the next query returns
		// the following stale sessions without an offset.
		stale, err := s.sessions.ListStaleActive(ctx, cutoff, pageSize)
		if err != nil {
			span.RecordError(err)
			slog.Error("stale session sweep failed to list", slog.Any("error", err))
			return
		}
		checked += len(stale)
		if len(stale) == 0 {
			break
		}
		progressed := false
		for _, sess := range stale {
			if s.abandon(ctx, sess) {
				abandoned++
				progressed = true
			}
		}
		if !progressed || len(stale) < pageSize {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("sessions.checked", checked),
		attribute.Int("sessions.abandoned", abandoned),
	)
	if abandoned > 0 {
		slog.Info("abandoned sessions swept",
			slog.Int("abandoned", abandoned),
			slog.Duration("max_idle", s.maxIdle))
	}
}

// abandon flips one session to the error status, recording the reason in
// the engine state when the blob is readable.
func (s *StaleSessionSweeper) abandon(ctx context.Context, sess domain.Session) bool {
	blob := sess.State
	if state, err := domain.UnmarshalState(sess.State); err == nil {
		state.Status = domain.StatusError
		state.LastError = "session abandoned: no activity before timeout"
		state.NextAction = domain.ActionComplete
		if b, merr := domain.MarshalState(state); merr == nil {
			blob = b
		}
	}
	if err := s.sessions.UpdateState(ctx, sess.ID, sess.Round, domain.StatusError, blob); err != nil {
		slog.Error("abandoned session update failed",
			slog.String("session_id", sess.ID),
			slog.Any("error", err))
		return false
	}
	observability.FinishSession(string(domain.StatusError))
	slog.Info("session abandoned",
		slog.String("session_id", sess.ID),
		slog.Time("last_update", sess.UpdatedAt))
	return true
}
