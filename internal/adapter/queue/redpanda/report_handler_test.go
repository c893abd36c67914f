package redpanda_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/Raghav-madderla/AIMI/internal/adapter/queue/redpanda"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/internal/usecase"
)

// stubGateway keeps report synthesis on its deterministic fallback path.
type stubGateway struct{}

func (stubGateway) Generate(domain.Context, domain.GenerateRequest) (string, error) {
	return "", fmt.Errorf("%w: no generation in tests", domain.ErrGeneration)
}

func (stubGateway) GenerateJSON(domain.Context, domain.GenerateRequest) (map[string]any, error) {
	return map[string]any{}, nil
}

func (stubGateway) Embed(_ domain.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

// stubSessions serves one canned session and records lookups.
type stubSessions struct {
	mu   sync.Mutex
	sess domain.Session
	err  error
	gets []string
}

func (s *stubSessions) Create(domain.Context, domain.Session) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubSessions) Get(_ domain.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, id)
	if s.err != nil {
		return domain.Session{}, s.err
	}
	return s.sess, nil
}

func (s *stubSessions) UpdateState(domain.Context, string, domain.SessionRound, domain.SessionStatus, []byte) error {
	return errors.New("not implemented")
}

// stubReports stores reports in memory; done closes on the first upsert
// so the container test can wait for the worker.
type stubReports struct {
	mu     sync.Mutex
	err    error
	stored map[string]domain.InterviewReport
	done   chan struct{}
}

func newStubReports() *stubReports {
	return &stubReports{stored: map[string]domain.InterviewReport{}, done: make(chan struct{})}
}

func (r *stubReports) Upsert(_ domain.Context, sessionID string, rep domain.InterviewReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.stored[sessionID] = rep
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	return nil
}

func (r *stubReports) GetBySessionID(_ domain.Context, sessionID string) (domain.InterviewReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.stored[sessionID]
	if !ok {
		return domain.InterviewReport{}, fmt.Errorf("%w: report %s", domain.ErrNotFound, sessionID)
	}
	return rep, nil
}

func (r *stubReports) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stored)
}

// completedSession builds a finished two-question session with its state
// blob marshaled the way the engine persists it.
func completedSession(t *testing.T, sessionID, jobRole string) domain.Session {
	t.Helper()
	state := domain.NewInterviewState(sessionID, "res-1", jobRole, nil, 7)
	state.Phase = domain.PhaseClosing
	state.Status = domain.StatusCompleted
	state.NextAction = domain.ActionComplete
	state.PreviousQuestions = []domain.QuestionRecord{
		{Text: "Tell me about yourself.", Domain: domain.IntroductionDomain, Difficulty: domain.DifficultyEasy, Round: 1},
		{Text: "How does a hash map resolve collisions?", Domain: "data_structures", Difficulty: domain.DifficultyMedium, Round: 2},
	}
	state.QuestionCount = len(state.PreviousQuestions)
	state.UserAnswers = []domain.AnswerRecord{
		{Question: state.PreviousQuestions[0].Text, Answer: "Five years building backend services in Go."},
		{Question: state.PreviousQuestions[1].Text, Answer: "Separate chaining or open addressing with probing."},
	}
	state.EvaluationHistory = []domain.EvaluationRecord{
		{
			Question:   state.PreviousQuestions[0].Text,
			Domain:     domain.IntroductionDomain,
			Difficulty: domain.DifficultyEasy,
			Score:      0.8,
			Feedback:   domain.EvaluationFeedback{TechnicalAccuracy: 0.8, Completeness: 0.8, Clarity: 0.8, Feedback: "Clear introduction."},
		},
		{
			Question:   state.PreviousQuestions[1].Text,
			Domain:     "data_structures",
			Difficulty: domain.DifficultyMedium,
			Score:      0.6,
			Feedback:   domain.EvaluationFeedback{TechnicalAccuracy: 0.6, Completeness: 0.5, Clarity: 0.7, Feedback: "Covered the main strategies."},
		},
	}
	b, err := domain.MarshalState(state)
	require.NoError(t, err)

	now := time.Now().UTC()
	return domain.Session{
		ID:        sessionID,
		ResumeID:  "res-1",
		JobRole:   jobRole,
		Round:     domain.RoundInterview,
		Status:    domain.StatusCompleted,
		State:     b,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func taskRecord(t *testing.T, payload domain.ReportTaskPayload) *kgo.Record {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return &kgo.Record{Topic: redpanda.DefaultReportTopic, Key: []byte(payload.SessionID), Value: b}
}

func TestReportHandler_SynthesizesAndStoresReport(t *testing.T) {
	sessions := &stubSessions{sess: completedSession(t, "sess-1", "Backend Engineer")}
	reports := newStubReports()
	h := redpanda.NewReportHandler(sessions, reports, usecase.NewReportService(stubGateway{}))

	err := h.Handle(context.Background(), taskRecord(t, domain.ReportTaskPayload{SessionID: "sess-1", JobRole: "Backend Engineer"}))
	require.NoError(t, err)

	rep, err := reports.GetBySessionID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", rep.SessionID)
	assert.Equal(t, "Backend Engineer", rep.JobRole)
	assert.Equal(t, 2, rep.ExecutiveSummary.TotalQuestions)
	assert.InDelta(t, 0.7, rep.ExecutiveSummary.OverallScore, 0.001)
	assert.False(t, rep.GeneratedAt.IsZero())
	assert.Equal(t, []string{"sess-1"}, sessions.gets)
}

func TestReportHandler_JobRoleFallsBackToSession(t *testing.T) {
	sessions := &stubSessions{sess: completedSession(t, "sess-2", "Platform Engineer")}
	reports := newStubReports()
	h := redpanda.NewReportHandler(sessions, reports, usecase.NewReportService(stubGateway{}))

	err := h.Handle(context.Background(), taskRecord(t, domain.ReportTaskPayload{SessionID: "sess-2"}))
	require.NoError(t, err)

	rep, err := reports.GetBySessionID(context.Background(), "sess-2")
	require.NoError(t, err)
	assert.Equal(t, "Platform Engineer", rep.JobRole)
}

func TestReportHandler_TooShortSessionStoresPlaceholder(t *testing.T) {
	state := domain.NewInterviewState("sess-3", "res-1", "Data Engineer", nil, 7)
	b, err := domain.MarshalState(state)
	require.NoError(t, err)
	sessions := &stubSessions{sess: domain.Session{
		ID: "sess-3", ResumeID: "res-1", JobRole: "Data Engineer",
		Round: domain.RoundInterview, Status: domain.StatusCompleted, State: b,
	}}
	reports := newStubReports()
	h := redpanda.NewReportHandler(sessions, reports, usecase.NewReportService(stubGateway{}))

	err = h.Handle(context.Background(), taskRecord(t, domain.ReportTaskPayload{SessionID: "sess-3", JobRole: "Data Engineer"}))
	require.NoError(t, err)

	rep, err := reports.GetBySessionID(context.Background(), "sess-3")
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Error)
	assert.Contains(t, rep.Message, "too short")
	assert.Zero(t, rep.ExecutiveSummary.TotalQuestions)
}

func TestReportHandler_DropsMalformedPayload(t *testing.T) {
	sessions := &stubSessions{}
	reports := newStubReports()
	h := redpanda.NewReportHandler(sessions, reports, usecase.NewReportService(stubGateway{}))

	err := h.Handle(context.Background(), &kgo.Record{Topic: redpanda.DefaultReportTopic, Value: []byte("{not json")})
	require.NoError(t, err)
	assert.Empty(t, sessions.gets)
	assert.Zero(t, reports.count())
}

func TestReportHandler_DropsUnknownSession(t *testing.T) {
	sessions := &stubSessions{err: fmt.Errorf("%w: session sess-9", domain.ErrNotFound)}
	reports := newStubReports()
	h := redpanda.NewReportHandler(sessions, reports, usecase.NewReportService(stubGateway{}))

	err := h.Handle(context.Background(), taskRecord(t, domain.ReportTaskPayload{SessionID: "sess-9", JobRole: "Backend Engineer"}))
	require.NoError(t, err)
	assert.Zero(t, reports.count())
}

func TestReportHandler_DropsUnreadableState(t *testing.T) {
	sess := completedSession(t, "sess-4", "Backend Engineer")
	sess.State = []byte("not-a-state")
	sessions := &stubSessions{sess: sess}
	reports := newStubReports()
	h := redpanda.NewReportHandler(sessions, reports, usecase.NewReportService(stubGateway{}))

	err := h.Handle(context.Background(), taskRecord(t, domain.ReportTaskPayload{SessionID: "sess-4", JobRole: "Backend Engineer"}))
	require.NoError(t, err)
	assert.Zero(t, reports.count())
}

func TestReportHandler_TransientLoadErrorIsReturned(t *testing.T) {
	sessions := &stubSessions{err: errors.New("connection refused")}
	reports := newStubReports()
	h := redpanda.NewReportHandler(sessions, reports, usecase.NewReportService(stubGateway{}))

	err := h.Handle(context.Background(), taskRecord(t, domain.ReportTaskPayload{SessionID: "sess-5", JobRole: "Backend Engineer"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=report.load_session")
	assert.Zero(t, reports.count())
}

func TestReportHandler_StoreErrorIsReturned(t *testing.T) {
	sessions := &stubSessions{sess: completedSession(t, "sess-6", "Backend Engineer")}
	reports := newStubReports()
	reports.err = errors.New("pool closed")
	h := redpanda.NewReportHandler(sessions, reports, usecase.NewReportService(stubGateway{}))

	err := h.Handle(context.Background(), taskRecord(t, domain.ReportTaskPayload{SessionID: "sess-6", JobRole: "Backend Engineer"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=report.store")
}
