package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/pkg/jsonx"
)

// PlannerService decides, once per session, which domains the technical
// rounds cover and in what difficulty order. The plan is frozen in session
// state after the first call; the engine never replans mid-interview.
type PlannerService struct {
	AI    domain.LanguageModelGateway
	Vocab domain.DomainVocabulary
}

// NewPlannerService constructs a PlannerService with its dependencies.
func NewPlannerService(ai domain.LanguageModelGateway, vocab domain.DomainVocabulary) PlannerService {
	return PlannerService{AI: ai, Vocab: vocab}
}

const (
	minPlannedDomains = 4
	maxPlannedDomains = 6
	planMaxTokens     = 200
	planTemperature   = 0.3
	planOverviewChars = 600
)

// Plan returns the ordered domain list and the difficulty sequence for n
// technical questions. It never fails: gateway trouble degrades to the
// summary's recommended domains, then the vocabulary defaults.
func (s PlannerService) Plan(ctx domain.Context, summary *domain.ResumeSummary, jobRole string, n int) ([]string, []domain.Difficulty) {
	domains := s.proposeDomains(ctx, summary, jobRole)

	// Top up from the resume summary, then the defaults, preserving order
	// and uniqueness, until the floor is met.
	if summary != nil {
		domains = topUp(domains, summary.RecommendedDomains, s.Vocab, minPlannedDomains)
	}
	domains = topUp(domains, s.Vocab.Defaults(), s.Vocab, minPlannedDomains)
	if len(domains) > maxPlannedDomains {
		domains = domains[:maxPlannedDomains]
	}

	slog.Info("interview plan fixed",
		slog.String("job_role", jobRole),
		slog.Int("total_questions", n),
		slog.Any("domains", domains))
	return domains, domain.DifficultySequenceFor(n)
}

// proposeDomains asks the model to rank domains for the role. Labels
// outside the vocabulary are discarded, not substituted.
func (s PlannerService) proposeDomains(ctx domain.Context, summary *domain.ResumeSummary, jobRole string) []string {
	var background string
	if summary != nil {
		parts := make([]string, 0, 2)
		if summary.CandidateOverview != "" {
			parts = append(parts, summary.CandidateOverview)
		}
		if len(summary.TechnicalSkills) > 0 {
			parts = append(parts, "Skills: "+strings.Join(summary.TechnicalSkills, ", "))
		}
		background = strings.Join(parts, "\n")
		if len(background) > planOverviewChars {
			background = background[:planOverviewChars]
		}
	}
	if background == "" {
		background = "No resume summary available."
	}

	prompt := fmt.Sprintf(`Select the interview domains for a %s candidate.

Candidate Background:
%s

Available Domains:
%s

Return a JSON object with a "domains" key listing %d to %d domains from the available list, ordered by priority for this role.

Example: {"domains": ["Python", "System Design", "SQL", "Machine Learning"]}

Guidelines:
- Choose only from the available domains, with exact spelling.
- Prioritize domains backed by the candidate's background.
- Return ONLY the JSON object.`,
		jobRole, background, strings.Join(s.Vocab.Labels(), ", "), minPlannedDomains, maxPlannedDomains)

	obj, err := s.AI.GenerateJSON(ctx, domain.GenerateRequest{
		System:      "You are an interview planning expert. Return only valid JSON objects with a 'domains' key.",
		Prompt:      prompt,
		MaxTokens:   planMaxTokens,
		Temperature: planTemperature,
	})
	if err != nil || len(obj) == 0 {
		slog.Warn("domain planner degrading to defaults", slog.String("job_role", jobRole), slog.Any("error", err))
		observability.AgentFallback("planner")
		return nil
	}

	var domains []string
	for _, d := range jsonx.StringSlice(obj["domains"]) {
		canon, ok := s.Vocab.Canonical(d)
		if !ok {
			slog.Debug("planner discarded unknown domain", slog.String("domain", d))
			continue
		}
		if !containsFold(domains, canon) && len(domains) < maxPlannedDomains {
			domains = append(domains, canon)
		}
	}
	if len(domains) == 0 {
		observability.AgentFallback("planner")
	}
	return domains
}

// topUp appends vocabulary-valid candidates to list, skipping duplicates,
// until it reaches floor.
func topUp(list, candidates []string, vocab domain.DomainVocabulary, floor int) []string {
	for _, c := range candidates {
		if len(list) >= floor {
			break
		}
		canon, ok := vocab.Canonical(c)
		if !ok || containsFold(list, canon) {
			continue
		}
		list = append(list, canon)
	}
	return list
}
