// Package usecase contains the interview engine and its agent services.
package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/pkg/jsonx"
	"github.com/Raghav-madderla/AIMI/pkg/textx"
)

// SummarizerService condenses raw resume text into the structured summary
// that seeds every session. It never fails: a gateway or parse failure
// degrades to a deterministic keyword scan over the resume head.
type SummarizerService struct {
	AI    domain.LanguageModelGateway
	Vocab domain.DomainVocabulary
}

// NewSummarizerService constructs a SummarizerService with its dependencies.
func NewSummarizerService(ai domain.LanguageModelGateway, vocab domain.DomainVocabulary) SummarizerService {
	return SummarizerService{AI: ai, Vocab: vocab}
}

const (
	summaryPromptChars  = 6000
	summaryMaxTokens    = 400
	summaryTemperature  = 0.3
	keywordScanChars    = 2000
	maxSummarySkills    = 10
	maxSummaryDomains   = 6
	fallbackOverviewFmt = "Candidate with background relevant to %s"
)

// Summarize builds a ResumeSummary for the given resume text and target
// role. The result is cached on the resume row and immutable afterwards.
func (s SummarizerService) Summarize(ctx domain.Context, resumeText, jobRole string) domain.ResumeSummary {
	prompt := fmt.Sprintf(`Analyze the following resume for a %s position and produce a structured summary.

Resume:
%s

Return a JSON object with exactly these keys:
{
  "candidate_overview": "2-3 sentence professional summary",
  "technical_skills": ["skill1", "skill2"],
  "recommended_domains": ["domain1", "domain2"],
  "experience_level": "entry|mid|senior"
}

Guidelines:
- recommended_domains must come from this list: %s
- List at most %d domains, ordered by how prominent they are in the resume.
- Keep the overview factual; do not invent experience.
- Return ONLY the JSON object, no other text.`,
		jobRole,
		textx.TruncateRunes(resumeText, summaryPromptChars),
		strings.Join(s.Vocab.Labels(), ", "),
		maxSummaryDomains,
	)

	obj, err := s.AI.GenerateJSON(ctx, domain.GenerateRequest{
		System:      "You are a resume analysis expert. Return only valid JSON objects.",
		Prompt:      prompt,
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil || len(obj) == 0 {
		slog.Warn("resume summarizer degrading to keyword scan", slog.String("job_role", jobRole), slog.Any("error", err))
		observability.AgentFallback("summarizer")
		return s.keywordSummary(resumeText, jobRole)
	}

	sum := domain.ResumeSummary{
		CandidateOverview: jsonx.String(obj["candidate_overview"], fmt.Sprintf(fallbackOverviewFmt, jobRole)),
		ExperienceLevel:   normalizeExperienceLevel(jsonx.String(obj["experience_level"], "")),
	}
	for _, skill := range jsonx.StringSlice(obj["technical_skills"]) {
		if skill = strings.TrimSpace(skill); skill != "" && len(sum.TechnicalSkills) < maxSummarySkills {
			sum.TechnicalSkills = append(sum.TechnicalSkills, skill)
		}
	}
	// Domains outside the vocabulary are discarded, never renamed into it.
	for _, d := range jsonx.StringSlice(obj["recommended_domains"]) {
		canon, ok := s.Vocab.Canonical(d)
		if !ok || containsFold(sum.RecommendedDomains, canon) {
			continue
		}
		if len(sum.RecommendedDomains) < maxSummaryDomains {
			sum.RecommendedDomains = append(sum.RecommendedDomains, canon)
		}
	}
	if len(sum.TechnicalSkills) == 0 && len(sum.RecommendedDomains) == 0 {
		// The model answered but said nothing usable.
		observability.AgentFallback("summarizer")
		return s.keywordSummary(resumeText, jobRole)
	}
	slog.Info("resume summarized",
		slog.String("job_role", jobRole),
		slog.Int("skills", len(sum.TechnicalSkills)),
		slog.Int("domains", len(sum.RecommendedDomains)),
		slog.String("level", sum.ExperienceLevel))
	return sum
}

// keywordSummary is the deterministic fallback: scan the head of the
// resume for vocabulary labels and well-known seniority markers.
func (s SummarizerService) keywordSummary(resumeText, jobRole string) domain.ResumeSummary {
	head := strings.ToLower(textx.TruncateRunes(resumeText, keywordScanChars))

	var found []string
	for _, label := range s.Vocab.Labels() {
		if strings.Contains(head, strings.ToLower(label)) {
			found = append(found, label)
		}
	}

	sum := domain.ResumeSummary{
		CandidateOverview: fmt.Sprintf(fallbackOverviewFmt, jobRole),
		ExperienceLevel:   scanExperienceLevel(head),
	}
	if len(found) > 0 {
		if len(found) > maxSummaryDomains {
			sum.RecommendedDomains = found[:maxSummaryDomains]
		} else {
			sum.RecommendedDomains = found
		}
		if len(found) > maxSummarySkills {
			sum.TechnicalSkills = found[:maxSummarySkills]
		} else {
			sum.TechnicalSkills = found
		}
	} else {
		sum.TechnicalSkills = []string{"Technical skills", "Problem solving"}
	}
	return sum
}

func normalizeExperienceLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "entry", "junior", "intern", "graduate":
		return "entry"
	case "senior", "lead", "principal", "staff":
		return "senior"
	default:
		return "mid"
	}
}

func scanExperienceLevel(lowerText string) string {
	for _, marker := range []string{"senior", "lead ", "principal", "staff engineer", "architect"} {
		if strings.Contains(lowerText, marker) {
			return "senior"
		}
	}
	for _, marker := range []string{"intern", "student", "fresher", "graduate"} {
		if strings.Contains(lowerText, marker) {
			return "entry"
		}
	}
	return "mid"
}

func containsFold(list []string, s string) bool {
	for _, e := range list {
		if strings.EqualFold(e, s) {
			return true
		}
	}
	return false
}
