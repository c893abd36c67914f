package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/pkg/jsonx"
)

// EvaluatorService scores candidate answers with reference-answer judging:
// generate an expert answer first, then judge the candidate against it.
// It never returns an error — any failure degrades to a length heuristic
// so the interview always advances.
type EvaluatorService struct {
	AI domain.LanguageModelGateway
}

// NewEvaluatorService constructs an EvaluatorService with its dependencies.
func NewEvaluatorService(ai domain.LanguageModelGateway) EvaluatorService {
	return EvaluatorService{AI: ai}
}

const (
	referenceMaxTokens    = 256
	referenceTemperature  = 0.2
	judgeMaxTokens        = 512
	judgeTemperature      = 0.1
	fallbackFeedbackLine  = "Your answer has been recorded. Please ensure you provide detailed technical explanations with specific examples."
	fallbackAnalysisLabel = "Automatic evaluation based on response structure"
)

// Evaluate scores one answer against the question it responds to. The
// returned record always carries a score in [0,1].
func (s EvaluatorService) Evaluate(ctx domain.Context, q domain.QuestionRecord, answer string) domain.EvaluationRecord {
	rec := domain.EvaluationRecord{
		Question:   q.Text,
		Domain:     q.Domain,
		Difficulty: q.Difficulty,
		KeyPoints:  append([]string(nil), q.KeyPoints...),
	}

	reference := s.referenceAnswer(ctx, q.Domain, q.Text)
	if reference == "" {
		slog.Warn("reference answer unavailable, using heuristic evaluation", slog.String("domain", q.Domain))
		observability.AgentFallback("evaluator")
		return s.heuristic(rec, answer)
	}
	rec.ReferenceAnswer = reference

	obj := s.judge(ctx, q.Text, reference, answer)
	if obj == nil {
		observability.AgentFallback("evaluator")
		return s.heuristic(rec, answer)
	}

	overall := jsonx.Float(obj["overall_score"], -1)
	if overall < 0 {
		slog.Warn("judge response missing overall score", slog.String("domain", q.Domain))
		observability.AgentFallback("evaluator")
		return s.heuristic(rec, answer)
	}
	rec.Score = jsonx.Clamp01(overall)
	rec.Feedback = domain.EvaluationFeedback{
		TechnicalAccuracy: jsonx.Clamp01(jsonx.Float(obj["technical_accuracy"], overall)),
		Completeness:      jsonx.Clamp01(jsonx.Float(obj["completeness"], overall)),
		Clarity:           jsonx.Clamp01(jsonx.Float(obj["clarity"], overall)),
		Analysis:          jsonx.String(obj["analysis"], ""),
		Feedback:          jsonx.String(obj["feedback"], fallbackFeedbackLine),
	}
	slog.Info("answer evaluated",
		slog.String("domain", q.Domain),
		slog.String("difficulty", string(q.Difficulty)),
		slog.Float64("score", rec.Score))
	observability.ObserveAnswerScore(rec.Score)
	observability.RecordScoreDrift(rec.Domain, rec.Score)
	return rec
}

// referenceAnswer generates the expert answer the candidate is judged
// against. An empty string signals failure.
func (s EvaluatorService) referenceAnswer(ctx domain.Context, dom, question string) string {
	prompt := fmt.Sprintf(`You are an expert in %s.
Write a concise, technically perfect answer to the following interview question.
Focus on the definition and the 'why'. Do NOT use code examples unless absolutely necessary.

Question: %s

Answer:`, dom, question)

	answer, err := s.AI.Generate(ctx, domain.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   referenceMaxTokens,
		Temperature: referenceTemperature,
	})
	if err != nil {
		slog.Warn("reference answer generation failed", slog.String("domain", dom), slog.Any("error", err))
		return ""
	}
	return strings.TrimSpace(answer)
}

// judge runs the strict JSON scoring prompt. A nil return means the call
// or the parse failed.
func (s EvaluatorService) judge(ctx domain.Context, question, reference, answer string) map[string]any {
	prompt := fmt.Sprintf(`You are a strict technical interviewer.

### Question:
%s

### Reference Answer (Truth):
%s

### Candidate's Answer:
%s

### Evaluation Protocol:
1. *Analyze:* Compare the Candidate's answer to the Reference. Note matches and misses.
2. *Score Technical Accuracy (0.0-1.0):* Is the information factually correct? (No lies/hallucinations).
3. *Score Completeness (0.0-1.0):* Did they cover the main points? (e.g. missed "test data" in overfitting).
4. *Score Clarity (0.0-1.0):* Is the answer easy to understand?
5. *Overall Score (0.0-1.0):* A weighted average of the above.

### Instructions:
- Be objective.
- *CRITICAL:* Respond using ONLY valid JSON. Do not write anything else.

### Output Format (JSON):
{
    "analysis": "<Short comparison of Reference vs Candidate>",
    "technical_accuracy": <float>,
    "completeness": <float>,
    "clarity": <float>,
    "overall_score": <float>,
    "feedback": "<Constructive feedback for the student>"
}

### Response:
`, question, reference, answer)

	obj, err := s.AI.GenerateJSON(ctx, domain.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   judgeMaxTokens,
		Temperature: judgeTemperature,
	})
	if err != nil {
		slog.Warn("judge evaluation failed", slog.Any("error", err))
		return nil
	}
	if len(obj) == 0 {
		return nil
	}
	return obj
}

// heuristic is the no-model fallback: score by answer length alone.
func (s EvaluatorService) heuristic(rec domain.EvaluationRecord, answer string) domain.EvaluationRecord {
	length := utf8.RuneCountInString(strings.TrimSpace(answer))
	base := 0.75
	switch {
	case length < 20:
		base = 0.3
	case length < 50:
		base = 0.5
	case length < 150:
		base = 0.65
	}
	rec.Score = base
	rec.ReferenceAnswer = ""
	rec.Feedback = domain.EvaluationFeedback{
		TechnicalAccuracy: base,
		Completeness:      jsonx.Clamp01(base - 0.1),
		Clarity:           base,
		Analysis:          fallbackAnalysisLabel,
		Feedback:          fallbackFeedbackLine,
	}
	observability.ObserveAnswerScore(rec.Score)
	return rec
}
