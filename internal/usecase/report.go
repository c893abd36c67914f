package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/pkg/jsonx"
	"github.com/Raghav-madderla/AIMI/pkg/textx"
)

// ReportService turns a finished session's history lists into the final
// interview report. Every section except the narrative insights is pure
// aggregation; the insights are one gateway call with a deterministic
// fallback built from the same statistics.
type ReportService struct {
	AI domain.LanguageModelGateway
}

// NewReportService constructs a ReportService with its dependencies.
func NewReportService(ai domain.LanguageModelGateway) ReportService {
	return ReportService{AI: ai}
}

const (
	insightsMaxTokens   = 1000
	insightsTemperature = 0.5
	reportAnswerChars   = 500

	tooShortError   = "No evaluations available"
	tooShortMessage = "Interview was too short to generate a report"
)

// Synthesize builds the report. Identical histories produce identical
// reports apart from GeneratedAt; an empty evaluation history produces
// the fixed too-short report rather than an error.
func (s ReportService) Synthesize(ctx domain.Context, sessionID, jobRole string, questions []domain.QuestionRecord, answers []domain.AnswerRecord, evals []domain.EvaluationRecord) domain.InterviewReport {
	if len(evals) == 0 {
		return domain.InterviewReport{
			SessionID:   sessionID,
			JobRole:     jobRole,
			Error:       tooShortError,
			Message:     tooShortMessage,
			GeneratedAt: time.Now().UTC(),
		}
	}

	overall := 0.0
	for _, e := range evals {
		overall += e.Score
	}
	overall /= float64(len(evals))
	level, color := performanceLevel(overall)

	metrics := metricBreakdown(evals)
	domains := domainAnalysis(evals)
	difficulty := difficultyPerformance(evals, questions)

	report := domain.InterviewReport{
		SessionID: sessionID,
		JobRole:   jobRole,
		ExecutiveSummary: domain.ExecutiveSummary{
			OverallScore:      round2(overall),
			OverallPercentage: round1(overall * 100),
			PerformanceLevel:  level,
			PerformanceColor:  color,
			TotalQuestions:    len(evals),
		},
		MetricBreakdown:       metrics,
		DomainAnalysis:        domains,
		DifficultyPerformance: difficulty,
		Questions:             questionBreakdown(questions, answers, evals),
		ScoreProgression:      scoreProgression(evals, questions),
		GeneratedAt:           time.Now().UTC(),
	}
	report.Insights = s.insights(ctx, jobRole, overall, domains, difficulty, metrics)

	slog.Info("interview report synthesized",
		slog.String("session_id", sessionID),
		slog.Float64("overall_score", report.ExecutiveSummary.OverallScore),
		slog.String("level", level),
		slog.Int("questions", len(evals)))
	return report
}

// performanceLevel maps an overall score to its dashboard tier and color.
func performanceLevel(score float64) (string, string) {
	switch {
	case score >= 0.9:
		return "Outstanding", "#10b981"
	case score >= 0.8:
		return "Excellent", "#22c55e"
	case score >= 0.7:
		return "Strong", "#84cc16"
	case score >= 0.6:
		return "Good", "#eab308"
	case score >= 0.5:
		return "Developing", "#f97316"
	default:
		return "Needs Improvement", "#ef4444"
	}
}

// pillarScores returns an evaluation's three sub-scores, substituting the
// overall score when no structured feedback was stored.
func pillarScores(e domain.EvaluationRecord) (float64, float64, float64) {
	if e.Feedback == (domain.EvaluationFeedback{}) {
		return e.Score, e.Score, e.Score
	}
	return e.Feedback.TechnicalAccuracy, e.Feedback.Completeness, e.Feedback.Clarity
}

func metricBreakdown(evals []domain.EvaluationRecord) []domain.MetricScore {
	var ta, comp, cl float64
	for _, e := range evals {
		t, c, l := pillarScores(e)
		ta += t
		comp += c
		cl += l
	}
	n := float64(len(evals))
	build := func(name, label, desc string, sum float64) domain.MetricScore {
		avg := sum / n
		return domain.MetricScore{
			Name:        name,
			Label:       label,
			Description: desc,
			Score:       round2(avg),
			Percentage:  round1(avg * 100),
		}
	}
	return []domain.MetricScore{
		build("technical_accuracy", "Technical Accuracy", "Factual correctness of answers", ta),
		build("completeness", "Completeness", "Coverage of key points", comp),
		build("clarity", "Clarity", "Clear communication", cl),
	}
}

// domainAnalysis aggregates per-domain averages, excluding the intro
// pseudo-domain. Strongest and weakest are picked by descending average;
// ties keep first-seen order, and weakest is only named when more than
// one domain was covered.
func domainAnalysis(evals []domain.EvaluationRecord) domain.DomainAnalysis {
	sums := map[string]*domain.DomainStat{}
	var order []string
	for _, e := range evals {
		dom := e.Domain
		if dom == "" {
			dom = "Unknown"
		}
		if dom == domain.IntroductionDomain {
			continue
		}
		st, ok := sums[dom]
		if !ok {
			st = &domain.DomainStat{}
			sums[dom] = st
			order = append(order, dom)
		}
		st.Score += e.Score
		st.Count++
	}

	out := domain.DomainAnalysis{Scores: make(map[string]domain.DomainStat, len(order))}
	for _, dom := range order {
		st := sums[dom]
		out.Scores[dom] = domain.DomainStat{Score: round2(st.Score / float64(st.Count)), Count: st.Count}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return out.Scores[order[i]].Score > out.Scores[order[j]].Score
	})
	for _, dom := range order {
		out.Domains = append(out.Domains, dom)
		out.ScoreList = append(out.ScoreList, out.Scores[dom].Score)
	}
	if len(order) > 0 {
		out.Strongest = order[0]
	}
	if len(order) > 1 {
		out.Weakest = order[len(order)-1]
	}
	return out
}

func difficultyPerformance(evals []domain.EvaluationRecord, questions []domain.QuestionRecord) map[string]domain.DomainStat {
	sums := map[string]*domain.DomainStat{
		string(domain.DifficultyEasy):   {},
		string(domain.DifficultyMedium): {},
		string(domain.DifficultyHard):   {},
	}
	for i, e := range evals {
		diff := string(questionDifficulty(e, questions, i))
		st, ok := sums[diff]
		if !ok {
			continue
		}
		st.Score += e.Score
		st.Count++
	}
	out := make(map[string]domain.DomainStat, len(sums))
	for diff, st := range sums {
		avg := 0.0
		if st.Count > 0 {
			avg = round2(st.Score / float64(st.Count))
		}
		out[diff] = domain.DomainStat{Score: avg, Count: st.Count}
	}
	return out
}

// questionDifficulty resolves an evaluation's difficulty, preferring the
// record itself and joining through the question list by position when
// the record predates difficulty tracking.
func questionDifficulty(e domain.EvaluationRecord, questions []domain.QuestionRecord, i int) domain.Difficulty {
	if e.Difficulty != "" {
		return e.Difficulty
	}
	if i < len(questions) && questions[i].Difficulty != "" {
		return questions[i].Difficulty
	}
	return domain.DifficultyMedium
}

func questionBreakdown(questions []domain.QuestionRecord, answers []domain.AnswerRecord, evals []domain.EvaluationRecord) []domain.QuestionResult {
	n := len(questions)
	if len(answers) < n {
		n = len(answers)
	}
	if len(evals) < n {
		n = len(evals)
	}
	out := make([]domain.QuestionResult, 0, n)
	for i := 0; i < n; i++ {
		e := evals[i]
		dom := e.Domain
		if dom == "" {
			dom = questions[i].Domain
		}
		out = append(out, domain.QuestionResult{
			Number:     i + 1,
			Question:   questions[i].Text,
			Domain:     dom,
			Difficulty: questionDifficulty(e, questions, i),
			Answer:     textx.TruncateRunes(answers[i].Answer, reportAnswerChars),
			Score:      round2(e.Score),
			Feedback:   e.Feedback.Feedback,
		})
	}
	return out
}

func scoreProgression(evals []domain.EvaluationRecord, questions []domain.QuestionRecord) domain.ScoreProgression {
	out := domain.ScoreProgression{Trend: domain.TrendTooFew}
	for i, e := range evals {
		dom := e.Domain
		if dom == "" {
			dom = "Unknown"
		}
		out.Scores = append(out.Scores, domain.ProgressionPoint{
			QuestionNumber: i + 1,
			Score:          round2(e.Score),
			Domain:         dom,
			Difficulty:     questionDifficulty(e, questions, i),
		})
	}
	if len(out.Scores) == 0 {
		return out
	}
	out.Highest = out.Scores[0].Score
	out.Lowest = out.Scores[0].Score
	for _, p := range out.Scores[1:] {
		if p.Score > out.Highest {
			out.Highest = p.Score
		}
		if p.Score < out.Lowest {
			out.Lowest = p.Score
		}
	}
	if len(out.Scores) >= 3 {
		half := len(out.Scores) / 2
		firstAvg := meanPoints(out.Scores[:half])
		secondAvg := meanPoints(out.Scores[half:])
		switch {
		case secondAvg > firstAvg+0.1:
			out.Trend = domain.TrendImproving
		case secondAvg < firstAvg-0.1:
			out.Trend = domain.TrendDeclining
		default:
			out.Trend = domain.TrendConsistent
		}
	}
	return out
}

func meanPoints(pts []domain.ProgressionPoint) float64 {
	sum := 0.0
	for _, p := range pts {
		sum += p.Score
	}
	return sum / float64(len(pts))
}

// insights asks the model for the narrative section and overlays whatever
// it returns on the deterministic fallback, so partial JSON still yields
// a complete section.
func (s ReportService) insights(ctx domain.Context, jobRole string, overall float64, domains domain.DomainAnalysis, difficulty map[string]domain.DomainStat, metrics []domain.MetricScore) domain.ReportInsights {
	fallback := fallbackInsights(overall, domains, difficulty, metrics)

	var domainLines []string
	for _, dom := range domains.Domains {
		domainLines = append(domainLines, fmt.Sprintf("- %s: %.0f%%", dom, domains.Scores[dom].Score*100))
	}

	context := fmt.Sprintf(`Interview Performance Data for %s position:

Overall Score: %.1f%%

Domain Scores:
%s

Difficulty Performance:
- Easy: %.0f%%
- Medium: %.0f%%
- Hard: %.0f%%

Metrics:
- Technical Accuracy: %.0f%%
- Completeness: %.0f%%
- Clarity: %.0f%%`,
		jobRole,
		overall*100,
		strings.Join(domainLines, "\n"),
		difficulty[string(domain.DifficultyEasy)].Score*100,
		difficulty[string(domain.DifficultyMedium)].Score*100,
		difficulty[string(domain.DifficultyHard)].Score*100,
		metrics[0].Score*100,
		metrics[1].Score*100,
		metrics[2].Score*100,
	)

	prompt := fmt.Sprintf(`Based on this interview performance data, generate insights for the candidate.

%s

Provide your response as JSON with these exact keys:
{
    "overall_summary": "2-3 sentence summary of performance",
    "strengths": ["strength1", "strength2", "strength3"],
    "areas_for_improvement": ["area1", "area2", "area3"],
    "recommendations": ["recommendation1", "recommendation2", "recommendation3"],
    "hiring_recommendation": {
        "decision": "Strongly Recommend / Recommend / Consider / Not Recommended",
        "confidence": 0.0-1.0,
        "reasoning": "Brief reasoning"
    }
}

Be specific and actionable. Use the actual data provided.`, context)

	obj, err := s.AI.GenerateJSON(ctx, domain.GenerateRequest{
		System:      "You are an expert technical interviewer providing actionable feedback. Output valid JSON only.",
		Prompt:      prompt,
		MaxTokens:   insightsMaxTokens,
		Temperature: insightsTemperature,
	})
	if err != nil || len(obj) == 0 {
		slog.Warn("report insights degrading to statistics", slog.Any("error", err))
		observability.AgentFallback("report")
		return fallback
	}

	ins := fallback
	if v := jsonx.String(obj["overall_summary"], ""); v != "" {
		ins.OverallSummary = v
	}
	if v := jsonx.StringSlice(obj["strengths"]); len(v) > 0 {
		ins.Strengths = v
	}
	if v := jsonx.StringSlice(obj["areas_for_improvement"]); len(v) > 0 {
		ins.AreasForImprovement = v
	}
	if v := jsonx.StringSlice(obj["recommendations"]); len(v) > 0 {
		ins.Recommendations = v
	}
	if h, ok := obj["hiring_recommendation"].(map[string]any); ok {
		if v := jsonx.String(h["decision"], ""); v != "" {
			ins.Hiring.Decision = v
		}
		ins.Hiring.Confidence = jsonx.Clamp01(jsonx.Float(h["confidence"], ins.Hiring.Confidence))
		if v := jsonx.String(h["reasoning"], ""); v != "" {
			ins.Hiring.Reasoning = v
		}
	}
	return ins
}

// fallbackInsights reconstructs the narrative section from the computed
// statistics alone.
func fallbackInsights(overall float64, domains domain.DomainAnalysis, difficulty map[string]domain.DomainStat, metrics []domain.MetricScore) domain.ReportInsights {
	strongestName, weakestName := "N/A", "N/A"
	var strongestScore, weakestScore float64
	if domains.Strongest != "" {
		strongestName = domains.Strongest
		strongestScore = domains.Scores[domains.Strongest].Score
	}
	if domains.Weakest != "" {
		weakestName = domains.Weakest
		weakestScore = domains.Scores[domains.Weakest].Score
	}

	accuracy, completeness, clarity := metrics[0].Score, metrics[1].Score, metrics[2].Score

	var strengths []string
	if strongestScore >= 0.7 {
		strengths = append(strengths, fmt.Sprintf("Strong performance in %s (%.0f%%)", strongestName, strongestScore*100))
	}
	if clarity >= 0.7 {
		strengths = append(strengths, "Clear and articulate communication")
	}
	if accuracy >= 0.7 {
		strengths = append(strengths, "Technically accurate responses")
	}
	if len(strengths) == 0 {
		strengths = []string{"Completed all questions", "Showed effort throughout interview"}
	}

	var improvements []string
	if weakestScore < 0.6 {
		improvements = append(improvements, fmt.Sprintf("Deepen knowledge in %s", weakestName))
	}
	if completeness < 0.6 {
		improvements = append(improvements, "Provide more comprehensive answers covering all key points")
	}
	if difficulty[string(domain.DifficultyHard)].Score < 0.5 {
		improvements = append(improvements, "Practice with more challenging technical problems")
	}
	if len(improvements) == 0 {
		improvements = []string{"Continue exploring advanced topics", "Gain more hands-on experience"}
	}

	recommendations := []string{
		fmt.Sprintf("Focus on improving %s skills with practical projects", weakestName),
		"Practice explaining complex concepts with real-world examples",
		"Review technical fundamentals in weaker areas",
	}

	var decision string
	var confidence float64
	switch {
	case overall >= 0.8:
		decision, confidence = "Strongly Recommend", 0.9
	case overall >= 0.7:
		decision, confidence = "Recommend", 0.75
	case overall >= 0.6:
		decision, confidence = "Consider", 0.6
	default:
		decision, confidence = "Not Recommended", 0.7
	}

	level, _ := performanceLevel(overall)
	return domain.ReportInsights{
		OverallSummary: fmt.Sprintf("The candidate scored %.0f%% overall, showing %s performance. Strongest in %s, with room to improve in %s.",
			overall*100, strings.ToLower(level), strongestName, weakestName),
		Strengths:           capList(strengths, 3),
		AreasForImprovement: capList(improvements, 3),
		Recommendations:     capList(recommendations, 3),
		Hiring: domain.HiringRecommendation{
			Decision:   decision,
			Confidence: confidence,
			Reasoning:  fmt.Sprintf("Based on %.0f%% overall score with notable strength in %s.", overall*100, strongestName),
		},
	}
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round1(f float64) float64 { return math.Round(f*10) / 10 }
