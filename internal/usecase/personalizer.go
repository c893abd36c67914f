package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/pkg/textx"
)

// PersonalizerService rewrites a raw technical question around the
// candidate's own resume. It never fails: blending degrades to a
// standalone rewrite, and the standalone rewrite degrades to the raw
// question, so a question is always produced.
type PersonalizerService struct {
	AI     domain.LanguageModelGateway
	Resume domain.ResumeContextProvider
}

// NewPersonalizerService constructs a PersonalizerService with its dependencies.
func NewPersonalizerService(ai domain.LanguageModelGateway, resume domain.ResumeContextProvider) PersonalizerService {
	return PersonalizerService{AI: ai, Resume: resume}
}

const (
	contextTopK          = 3
	minContextChars      = 20
	minPersonalizedChars = 20
	blendMaxTokens       = 200
	standaloneMaxTokens  = 150
	rewriteTemperature   = 0.7
)

// Personalize turns rawQuestion into a conversational question that
// references the candidate's experience in the given domain. The intent
// string states what the interviewer wants to assess.
func (s PersonalizerService) Personalize(ctx domain.Context, rawQuestion, dom, resumeID, intent string) string {
	resumeContext := s.retrieveContext(ctx, resumeID, dom, rawQuestion)
	if len(strings.TrimSpace(resumeContext)) < minContextChars {
		return s.standalone(ctx, rawQuestion, dom, intent)
	}
	return s.blend(ctx, rawQuestion, resumeContext, dom, intent)
}

// retrieveContext pulls the most relevant resume snippets for the
// question, preferring chunks labeled with the target domain and widening
// to the whole resume when the domain filter comes back empty. Retrieval
// trouble degrades to no context; it never blocks the question.
func (s PersonalizerService) retrieveContext(ctx domain.Context, resumeID, dom, query string) string {
	if resumeID == "" {
		return ""
	}
	chunks, err := s.Resume.QueryByDomain(ctx, resumeID, dom, query, contextTopK)
	if err != nil {
		slog.Warn("resume context query failed", slog.String("resume_id", resumeID), slog.String("domain", dom), slog.Any("error", err))
		return ""
	}
	if len(chunks) == 0 {
		slog.Debug("no chunks for domain, widening search", slog.String("domain", dom))
		if chunks, err = s.Resume.Query(ctx, resumeID, query, contextTopK); err != nil {
			return ""
		}
	}
	lines := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		lines = append(lines, fmt.Sprintf("[Experience %d]: %s", i+1, chunk))
	}
	return strings.Join(lines, "\n")
}

func (s PersonalizerService) blend(ctx domain.Context, rawQuestion, resumeContext, dom, intent string) string {
	prompt := fmt.Sprintf(`You are a Senior Technical Interviewer conducting an interview. Your task is to transform a raw technical question into a natural, personalized question that references the candidate's experience.

RAW TECHNICAL QUESTION:
%s

CANDIDATE'S RELEVANT EXPERIENCE (from their resume):
%s

DOMAIN: %s
ASSESSMENT GOAL: %s

INSTRUCTIONS:
Create a single, complete interview question that:
1. References a specific aspect of the candidate's experience
2. Tests their knowledge of %s concepts
3. Feels natural and conversational (like a real interviewer)
4. Is complete and grammatically correct
5. Does NOT start with "I see you..." or similar robotic phrases

STRATEGIES TO USE:
- DEEP DIVE: Connect their specific project/experience to the technical concept
  Example: "In your [specific project], how did you handle [technical concept]? What trade-offs did you consider?"

- EXPERIENCE-BASED: Ask them to explain their approach using their real work
  Example: "Walk me through how you implemented [concept] in your [specific experience]. What challenges did you face?"

- COMPARATIVE: Ask them to compare approaches based on their experience
  Example: "You mentioned using [approach A] in [project]. Have you considered [approach B]? When would you choose one over the other?"

OUTPUT:
Write ONLY the final question. Make sure it is:
- A complete sentence ending with a question mark
- Between 20-80 words
- Natural sounding
- Specific to their experience

FINAL QUESTION:`, rawQuestion, resumeContext, dom, intent, dom)

	raw, err := s.AI.Generate(ctx, domain.GenerateRequest{
		System:      "You are an expert interviewer. Output ONLY the final interview question. The question must be complete and end with a question mark.",
		Prompt:      prompt,
		MaxTokens:   blendMaxTokens,
		Temperature: rewriteTemperature,
	})
	if err != nil {
		slog.Warn("question blending failed", slog.String("domain", dom), slog.Any("error", err))
		observability.AgentFallback("personalizer")
		return s.standalone(ctx, rawQuestion, dom, intent)
	}
	if cleaned := cleanPersonalizedOutput(textx.StripModelTokens(raw)); len(cleaned) > minPersonalizedChars {
		return cleaned
	}
	observability.AgentFallback("personalizer")
	return s.standalone(ctx, rawQuestion, dom, intent)
}

func (s PersonalizerService) standalone(ctx domain.Context, rawQuestion, dom, intent string) string {
	prompt := fmt.Sprintf(`You are a Senior Technical Interviewer. Transform this raw question into a natural, conversational interview question.

RAW QUESTION: %s
DOMAIN: %s
GOAL: %s

Make the question sound natural and professional. Output ONLY the final question:`, rawQuestion, dom, intent)

	raw, err := s.AI.Generate(ctx, domain.GenerateRequest{
		System:      "Output only the final interview question.",
		Prompt:      prompt,
		MaxTokens:   standaloneMaxTokens,
		Temperature: rewriteTemperature,
	})
	if err != nil {
		slog.Warn("standalone rewrite failed, keeping raw question", slog.String("domain", dom), slog.Any("error", err))
		observability.AgentFallback("personalizer")
		return rawQuestion
	}
	if cleaned := cleanPersonalizedOutput(textx.StripModelTokens(raw)); cleaned != "" {
		return cleaned
	}
	observability.AgentFallback("personalizer")
	return rawQuestion
}

var rewritePrefixes = []string{
	"Here is the rewritten question:",
	"Rewritten Question:",
	"Final Question:",
	"Question:",
	"Answer:",
	"Output:",
	"Here's the question:",
	"The question is:",
}

// cleanPersonalizedOutput reduces model output to one complete question.
// It strips boilerplate prefixes and quotes, then scans lines for the
// first plausible question, cutting at the last question mark. Results
// under 20 characters are rejected.
func cleanPersonalizedOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	for _, prefix := range rewritePrefixes {
		if len(cleaned) >= len(prefix) && strings.EqualFold(cleaned[:len(prefix)], prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
		}
	}
	cleaned = strings.Trim(cleaned, `"'`)

	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= minPersonalizedChars {
			continue
		}
		if idx := strings.LastIndex(line, "?"); idx >= 0 {
			cleaned = strings.TrimSpace(line[:idx+1])
			break
		}
		if len(line) > 30 {
			cleaned = line + "?"
			break
		}
	}

	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) < minPersonalizedChars {
		return ""
	}
	return cleaned
}
