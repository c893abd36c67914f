package domain

import (
	"encoding/json"
	"fmt"
)

// Phase is the conversation stage of an interview session.
type Phase string

const (
	PhaseGreeting          Phase = "greeting"
	PhaseIntroQuestion     Phase = "intro_question"
	PhaseTechnicalQuestion Phase = "technical_question"
	PhaseClosing           Phase = "closing"
)

// NextAction is the orchestrator's pending decision.
type NextAction string

const (
	ActionGenerateQuestion NextAction = "generate_question"
	ActionEvaluate         NextAction = "evaluate"
	ActionWait             NextAction = "wait"
	ActionComplete         NextAction = "complete"
)

// SessionStatus is the session lifecycle state.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusError     SessionStatus = "error"
)

// InterviewState is the single mutable record threaded through every
// orchestrator tick. It is owned exclusively by the engine during a tick
// and persisted as one opaque JSON blob between ticks.
//
// Invariants: QuestionCount == len(PreviousQuestions);
// len(EvaluationHistory) <= len(PreviousQuestions) <= len(UserAnswers)+1.
type InterviewState struct {
	SessionID          string             `json:"session_id"`
	ResumeID           string             `json:"resume_id"`
	JobRole            string             `json:"job_role"`
	Phase              Phase              `json:"conversation_phase"`
	QuestionCount      int                `json:"question_count"`
	Difficulty         Difficulty         `json:"difficulty"`
	TotalQuestions     int                `json:"total_questions"`
	PlannedDomains     []string           `json:"planned_domains,omitempty"`
	DifficultySequence []Difficulty       `json:"difficulty_sequence,omitempty"`
	DomainCoverage     map[string]int     `json:"domain_coverage,omitempty"`
	ResumeSummary      *ResumeSummary     `json:"resume_summary,omitempty"`
	PreviousQuestions  []QuestionRecord   `json:"previous_questions"`
	UserAnswers        []AnswerRecord     `json:"user_answers"`
	EvaluationHistory  []EvaluationRecord `json:"evaluation_history"`
	PendingQuestion    *QuestionRecord    `json:"pending_question,omitempty"`
	NextAction         NextAction         `json:"next_action"`
	Status             SessionStatus      `json:"status"`
	LastError          string             `json:"last_error,omitempty"`
}

// NewInterviewState returns the initial state for a fresh session.
func NewInterviewState(sessionID, resumeID, jobRole string, summary *ResumeSummary, totalQuestions int) InterviewState {
	return InterviewState{
		SessionID:      sessionID,
		ResumeID:       resumeID,
		JobRole:        jobRole,
		Phase:          PhaseGreeting,
		Difficulty:     DifficultyEasy,
		TotalQuestions: totalQuestions,
		DomainCoverage: map[string]int{},
		ResumeSummary:  summary,
		NextAction:     ActionGenerateQuestion,
		Status:         StatusActive,
	}
}

// Clone deep-copies the state. Ticks compute into a clone and swap the
// result in only on success, so cancellation mid-tick leaves no partial
// mutation visible.
func (s InterviewState) Clone() InterviewState {
	out := s
	out.PlannedDomains = append([]string(nil), s.PlannedDomains...)
	out.DifficultySequence = append([]Difficulty(nil), s.DifficultySequence...)
	out.PreviousQuestions = append([]QuestionRecord(nil), s.PreviousQuestions...)
	out.UserAnswers = append([]AnswerRecord(nil), s.UserAnswers...)
	out.EvaluationHistory = append([]EvaluationRecord(nil), s.EvaluationHistory...)
	if s.DomainCoverage != nil {
		out.DomainCoverage = make(map[string]int, len(s.DomainCoverage))
		for k, v := range s.DomainCoverage {
			out.DomainCoverage[k] = v
		}
	}
	if s.ResumeSummary != nil {
		sum := *s.ResumeSummary
		sum.TechnicalSkills = append([]string(nil), s.ResumeSummary.TechnicalSkills...)
		sum.RecommendedDomains = append([]string(nil), s.ResumeSummary.RecommendedDomains...)
		out.ResumeSummary = &sum
	}
	if s.PendingQuestion != nil {
		q := *s.PendingQuestion
		q.KeyPoints = append([]string(nil), s.PendingQuestion.KeyPoints...)
		out.PendingQuestion = &q
	}
	return out
}

// Validate checks the state invariants. A violation means the blob was
// corrupted or mutated outside the engine.
func (s InterviewState) Validate() error {
	if s.QuestionCount != len(s.PreviousQuestions) {
		return fmt.Errorf("op=state.Validate: question count %d != questions %d: %w",
			s.QuestionCount, len(s.PreviousQuestions), ErrSession)
	}
	if len(s.EvaluationHistory) > len(s.PreviousQuestions) {
		return fmt.Errorf("op=state.Validate: evaluations %d > questions %d: %w",
			len(s.EvaluationHistory), len(s.PreviousQuestions), ErrSession)
	}
	if len(s.PreviousQuestions) > len(s.UserAnswers)+1 {
		return fmt.Errorf("op=state.Validate: questions %d > answers %d+1: %w",
			len(s.PreviousQuestions), len(s.UserAnswers), ErrSession)
	}
	if s.TotalQuestions <= 0 {
		return fmt.Errorf("op=state.Validate: total questions %d: %w", s.TotalQuestions, ErrSession)
	}
	switch s.Phase {
	case PhaseGreeting, PhaseIntroQuestion, PhaseTechnicalQuestion, PhaseClosing:
	default:
		return fmt.Errorf("op=state.Validate: phase %q: %w", s.Phase, ErrSession)
	}
	switch s.Status {
	case StatusActive, StatusCompleted, StatusError:
	default:
		return fmt.Errorf("op=state.Validate: status %q: %w", s.Status, ErrSession)
	}
	return nil
}

// MarshalState serializes the state to its opaque persisted form.
func MarshalState(s InterviewState) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("op=state.Marshal: %w", err)
	}
	return b, nil
}

// UnmarshalState restores a state blob and validates its invariants.
func UnmarshalState(b []byte) (InterviewState, error) {
	var s InterviewState
	if err := json.Unmarshal(b, &s); err != nil {
		return InterviewState{}, fmt.Errorf("op=state.Unmarshal: %w: %w", ErrSession, err)
	}
	if s.DomainCoverage == nil {
		s.DomainCoverage = map[string]int{}
	}
	if err := s.Validate(); err != nil {
		return InterviewState{}, err
	}
	return s, nil
}

// Routing is the pure decision function: what the engine should do next
// given only status and pending action.
func Routing(status SessionStatus, action NextAction) NextAction {
	if status == StatusCompleted || status == StatusError {
		return ActionComplete
	}
	switch action {
	case ActionComplete, ActionWait:
		return ActionComplete
	case ActionEvaluate:
		return ActionEvaluate
	default:
		return ActionGenerateQuestion
	}
}
