package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// SessionService hosts the interview engine: it owns session persistence,
// the per-session lock, the pre-interview welcome gate, and report
// enqueueing on completion. Handlers talk to this service; the engine
// itself never touches storage.
type SessionService struct {
	Sessions domain.SessionRepository
	Resumes  domain.ResumeRepository
	Reports  domain.ReportRepository
	Queue    domain.ReportQueue
	Locker   domain.SessionLocker
	Engine   Orchestrator

	LockTTL          time.Duration
	DefaultQuestions int
}

// NewSessionService constructs a SessionService with its dependencies.
func NewSessionService(sessions domain.SessionRepository, resumes domain.ResumeRepository, reports domain.ReportRepository, queue domain.ReportQueue, locker domain.SessionLocker, engine Orchestrator, lockTTL time.Duration, defaultQuestions int) SessionService {
	return SessionService{
		Sessions:         sessions,
		Resumes:          resumes,
		Reports:          reports,
		Queue:            queue,
		Locker:           locker,
		Engine:           engine,
		LockTTL:          lockTTL,
		DefaultQuestions: defaultQuestions,
	}
}

// StartResult is the response to starting an interview: the session and
// its welcome message. No question is asked until the candidate confirms.
type StartResult struct {
	SessionID string
	Message   string
	Status    domain.SessionStatus
}

// AnswerResult is the outcome of one answer submission.
type AnswerResult struct {
	SessionID  string
	Message    string
	Question   string
	Evaluation *domain.EvaluationRecord
	Status     domain.SessionStatus
	Completed  bool
}

var confirmWords = []string{"yes", "yeah", "yep", "sure", "okay", "ok", "start", "begin", "ready"}
var declineWords = []string{"no", "nope", "not", "wait", "later", "cancel"}

const declineMessage = "No problem at all! Take your time. Just let me know when you're ready - I'll be here whenever you want to start."

const ambiguousMessage = "Hmm, I wasn't quite sure what you meant. Could you let me know if you'd like to start now? A simple 'yes' or 'no' would be perfect!"

func welcomeMessage(jobRole string) string {
	return fmt.Sprintf(`Hello! I'm AIMI - your AI interview companion.

It's great to meet you! I've had a chance to look through your resume, and I'm really excited to chat with you about your journey and experiences for this %s role.

Think of this as a friendly conversation where we'll explore your background, skills, and what makes you a great fit. I'm here to help you showcase your strengths!

Would you like to get started? Just say "yes" when you're ready, or "no" if you need a moment.`, jobRole)
}

// StartInterview creates a session against an ingested resume and returns
// the welcome message. The engine state is initialized but no question is
// generated until the welcome gate passes.
func (s SessionService) StartInterview(ctx domain.Context, resumeID, jobRole string, totalQuestions int) (StartResult, error) {
	if resumeID == "" || strings.TrimSpace(jobRole) == "" {
		return StartResult{}, fmt.Errorf("%w: resume id and job role required", domain.ErrInvalidArgument)
	}
	if totalQuestions <= 0 {
		totalQuestions = s.DefaultQuestions
	}

	resume, err := s.Resumes.Get(ctx, resumeID)
	if err != nil {
		return StartResult{}, fmt.Errorf("op=session.StartInterview: %w", err)
	}

	sessionID, err := s.Sessions.Create(ctx, domain.Session{
		ResumeID: resumeID,
		JobRole:  jobRole,
		Round:    domain.RoundWelcome,
		Status:   domain.StatusActive,
	})
	if err != nil {
		return StartResult{}, fmt.Errorf("op=session.StartInterview: %w", err)
	}

	state := s.Engine.InitializeSession(sessionID, resumeID, jobRole, resume.Summary, totalQuestions)
	blob, err := domain.MarshalState(state)
	if err != nil {
		return StartResult{}, fmt.Errorf("op=session.StartInterview: %w", err)
	}
	if err := s.Sessions.UpdateState(ctx, sessionID, domain.RoundWelcome, domain.StatusActive, blob); err != nil {
		return StartResult{}, fmt.Errorf("op=session.StartInterview: %w", err)
	}

	observability.StartSession()
	slog.Info("interview session started",
		slog.String("session_id", sessionID),
		slog.String("resume_id", resumeID),
		slog.String("job_role", jobRole),
		slog.Int("total_questions", totalQuestions))
	return StartResult{SessionID: sessionID, Message: welcomeMessage(jobRole), Status: domain.StatusActive}, nil
}

// SubmitAnswer feeds one candidate message to the session: the welcome
// confirmation while the session is gated, interview answers afterwards.
// The load→step→store critical section runs under the per-session lock.
func (s SessionService) SubmitAnswer(ctx domain.Context, sessionID, answer string) (AnswerResult, error) {
	if sessionID == "" {
		return AnswerResult{}, fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(answer) == "" {
		return AnswerResult{}, fmt.Errorf("%w: answer required", domain.ErrInvalidArgument)
	}

	unlock, err := s.Locker.Acquire(ctx, sessionID, s.LockTTL)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("op=session.SubmitAnswer: %w", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			slog.Warn("session unlock failed", slog.String("session_id", sessionID), slog.Any("error", err))
		}
	}()

	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("op=session.SubmitAnswer: %w", err)
	}

	if sess.Round == domain.RoundWelcome {
		return s.welcomeGate(ctx, sess, answer)
	}
	return s.step(ctx, sess, answer)
}

// welcomeGate matches the candidate's first message against confirm and
// decline words. Only a confirmation starts the interview; everything
// else leaves the session untouched.
func (s SessionService) welcomeGate(ctx domain.Context, sess domain.Session, answer string) (AnswerResult, error) {
	lower := strings.ToLower(strings.TrimSpace(answer))
	if containsAny(lower, confirmWords) {
		slog.Info("candidate confirmed, starting interview", slog.String("session_id", sess.ID))
		sess.Round = domain.RoundInterview
		return s.step(ctx, sess, "")
	}
	if containsAny(lower, declineWords) {
		return AnswerResult{SessionID: sess.ID, Message: declineMessage, Status: sess.Status}, nil
	}
	return AnswerResult{SessionID: sess.ID, Message: ambiguousMessage, Status: sess.Status}, nil
}

// step runs the engine once and persists the successor state.
func (s SessionService) step(ctx domain.Context, sess domain.Session, answer string) (AnswerResult, error) {
	state, err := domain.UnmarshalState(sess.State)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("op=session.step: %w", err)
	}

	result := s.Engine.Step(ctx, state, answer)

	blob, err := domain.MarshalState(result.State)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("op=session.step: %w", err)
	}
	if err := s.Sessions.UpdateState(ctx, sess.ID, sess.Round, result.State.Status, blob); err != nil {
		return AnswerResult{}, fmt.Errorf("op=session.step: %w", err)
	}

	if result.Completed {
		s.enqueueReport(ctx, sess.ID, sess.JobRole)
	}

	out := AnswerResult{
		SessionID:  sess.ID,
		Question:   result.Question,
		Evaluation: result.Evaluation,
		Status:     result.State.Status,
		Completed:  result.Completed,
	}
	if result.Completed {
		out.Message = "Interview session completed. Thank you for your time!"
	}
	return out, nil
}

// enqueueReport hands the finished session to the report worker. Failure
// is logged, not returned: the answer was already processed and the
// report can be re-enqueued out of band.
func (s SessionService) enqueueReport(ctx domain.Context, sessionID, jobRole string) {
	if _, err := s.Queue.EnqueueReport(ctx, domain.ReportTaskPayload{SessionID: sessionID, JobRole: jobRole}); err != nil {
		slog.Error("report enqueue failed", slog.String("session_id", sessionID), slog.Any("error", err))
		return
	}
	observability.EnqueueReport()
	slog.Info("report task enqueued", slog.String("session_id", sessionID))
}

// GetSession returns the stored session row.
func (s SessionService) GetSession(ctx domain.Context, sessionID string) (domain.Session, error) {
	if sessionID == "" {
		return domain.Session{}, fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=session.GetSession: %w", err)
	}
	return sess, nil
}

// GetReport returns the synthesized report for a finished session. ready
// is false when the session finished but the worker has not stored the
// report yet; still-active sessions are a conflict.
func (s SessionService) GetReport(ctx domain.Context, sessionID string) (domain.InterviewReport, bool, error) {
	if sessionID == "" {
		return domain.InterviewReport{}, false, fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.InterviewReport{}, false, fmt.Errorf("op=session.GetReport: %w", err)
	}
	if sess.Status == domain.StatusActive {
		return domain.InterviewReport{}, false, fmt.Errorf("%w: interview still in progress", domain.ErrConflict)
	}

	rep, err := s.Reports.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.InterviewReport{SessionID: sessionID, JobRole: sess.JobRole, Message: "Report is being generated"}, false, nil
		}
		return domain.InterviewReport{}, false, fmt.Errorf("op=session.GetReport: %w", err)
	}
	return rep, true, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
