package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrConfiguration     = errors.New("configuration invalid")
	ErrGeneration        = errors.New("generation failed")
	ErrParse             = errors.New("parse failed")
	ErrValidation        = errors.New("validation failed")
	ErrSession           = errors.New("session state invalid")
	ErrInternal          = errors.New("internal error")
)

// Difficulty levels for interview questions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IntroductionDomain labels the opening self-introduction question. It is
// excluded from per-domain report statistics.
const IntroductionDomain = "Introduction"

// ResumeSummary is the condensed view of a candidate's resume, built once
// at ingest time and immutable after.
type ResumeSummary struct {
	CandidateOverview  string   `json:"candidate_overview"`
	TechnicalSkills    []string `json:"technical_skills"`
	RecommendedDomains []string `json:"recommended_domains"`
	ExperienceLevel    string   `json:"experience_level"`
}

// QuestionRecord is one delivered question. Appended once, never mutated.
type QuestionRecord struct {
	Text       string     `json:"text"`
	Domain     string     `json:"domain"`
	Difficulty Difficulty `json:"difficulty"`
	Round      int        `json:"round"`
	KeyPoints  []string   `json:"key_points,omitempty"`
}

// AnswerRecord pairs a candidate answer with the question it responds to.
type AnswerRecord struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// EvaluationFeedback carries the three scoring pillars plus narrative text.
type EvaluationFeedback struct {
	TechnicalAccuracy float64 `json:"technical_accuracy"`
	Completeness      float64 `json:"completeness"`
	Clarity           float64 `json:"clarity"`
	Analysis          string  `json:"analysis,omitempty"`
	Feedback          string  `json:"feedback"`
}

// EvaluationRecord is the scored outcome of one answer.
// Invariant: Score in [0,1].
type EvaluationRecord struct {
	Question        string             `json:"question"`
	Domain          string             `json:"domain"`
	Difficulty      Difficulty         `json:"difficulty"`
	Score           float64            `json:"score"`
	Feedback        EvaluationFeedback `json:"feedback"`
	ReferenceAnswer string             `json:"reference_answer,omitempty"`
	KeyPoints       []string           `json:"key_points,omitempty"`
	Err             string             `json:"error,omitempty"`
}

// Resume is the stored resume row with its cached summary.
type Resume struct {
	ID        string
	Filename  string
	Text      string
	Summary   *ResumeSummary
	CreatedAt time.Time
}

// SessionRound tracks the pre-interview confirmation exchange. The welcome
// round ends when the candidate confirms they are ready; only then does the
// engine ask its first question.
type SessionRound string

const (
	RoundWelcome   SessionRound = "welcome"
	RoundInterview SessionRound = "interview"
)

// Session is the stored session row. State is the engine's serialized
// InterviewState, opaque to the persistence layer.
type Session struct {
	ID        string
	ResumeID  string
	JobRole   string
	Round     SessionRound
	Status    SessionStatus
	State     []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReportTaskPayload is the queue message produced when a session completes.
type ReportTaskPayload struct {
	SessionID string `json:"session_id"`
	JobRole   string `json:"job_role"`
}

// ExecutiveSummary heads the interview report.
type ExecutiveSummary struct {
	OverallScore      float64 `json:"overall_score"`
	OverallPercentage float64 `json:"overall_percentage"`
	PerformanceLevel  string  `json:"performance_level"`
	PerformanceColor  string  `json:"performance_color"`
	TotalQuestions    int     `json:"total_questions"`
}

// MetricScore is one scoring pillar averaged across the session.
type MetricScore struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
	Percentage  float64 `json:"percentage"`
}

// DomainStat aggregates evaluations for one domain.
type DomainStat struct {
	Score float64 `json:"score"`
	Count int     `json:"count"`
}

// DomainAnalysis summarizes per-domain performance. Strongest/Weakest are
// empty when too few domains were covered to rank.
type DomainAnalysis struct {
	Scores    map[string]DomainStat `json:"scores"`
	Strongest string                `json:"strongest,omitempty"`
	Weakest   string                `json:"weakest,omitempty"`
	Domains   []string              `json:"domains_list"`
	ScoreList []float64             `json:"scores_list"`
}

// QuestionResult is one row of the question-by-question breakdown.
type QuestionResult struct {
	Number     int        `json:"question_number"`
	Question   string     `json:"question"`
	Domain     string     `json:"domain"`
	Difficulty Difficulty `json:"difficulty"`
	Answer     string     `json:"answer"`
	Score      float64    `json:"score"`
	Feedback   string     `json:"feedback"`
}

// HiringRecommendation is the report's final verdict.
type HiringRecommendation struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ReportInsights is the narrative section, LLM-written with a
// deterministic fallback.
type ReportInsights struct {
	OverallSummary      string               `json:"overall_summary"`
	Strengths           []string             `json:"strengths"`
	AreasForImprovement []string             `json:"areas_for_improvement"`
	Recommendations     []string             `json:"recommendations"`
	Hiring              HiringRecommendation `json:"hiring_recommendation"`
}

// ProgressionPoint is one question's score in delivery order.
type ProgressionPoint struct {
	QuestionNumber int        `json:"question_number"`
	Score          float64    `json:"score"`
	Domain         string     `json:"domain"`
	Difficulty     Difficulty `json:"difficulty"`
}

// Trend labels for ScoreProgression.
const (
	TrendImproving  = "improving"
	TrendDeclining  = "declining"
	TrendConsistent = "consistent"
	TrendTooFew     = "too_few_questions"
)

// ScoreProgression tracks score movement across the session.
type ScoreProgression struct {
	Scores  []ProgressionPoint `json:"scores"`
	Trend   string             `json:"trend"`
	Highest float64            `json:"highest_score"`
	Lowest  float64            `json:"lowest_score"`
}

// InterviewReport is derived from the session's history lists. It is never
// authoritative state: recomputing from the same history yields the same
// report apart from GeneratedAt.
type InterviewReport struct {
	SessionID             string                `json:"session_id"`
	JobRole               string                `json:"job_role"`
	Error                 string                `json:"error,omitempty"`
	Message               string                `json:"message,omitempty"`
	ExecutiveSummary      ExecutiveSummary      `json:"executive_summary"`
	MetricBreakdown       []MetricScore         `json:"metric_breakdown"`
	DomainAnalysis        DomainAnalysis        `json:"domain_analysis"`
	DifficultyPerformance map[string]DomainStat `json:"difficulty_performance"`
	Questions             []QuestionResult      `json:"questions_breakdown"`
	Insights              ReportInsights        `json:"insights"`
	ScoreProgression      ScoreProgression      `json:"score_progression"`
	GeneratedAt           time.Time             `json:"generated_at"`
}

// Context is an alias to context.Context so the domain package stays free
// of adapter imports while usecases pass standard contexts through.
type Context = context.Context
