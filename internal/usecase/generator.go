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

// GeneratedQuestion is a raw question before personalization.
type GeneratedQuestion struct {
	Text      string
	KeyPoints []string
}

// GeneratorService produces raw interview questions. The completion model
// behind it was tuned on Alpaca-style prompts and echoes them back, so
// generation runs the full cleanup chain before anything is trusted.
type GeneratorService struct {
	AI domain.LanguageModelGateway
}

// NewGeneratorService constructs a GeneratorService with its dependencies.
func NewGeneratorService(ai domain.LanguageModelGateway) GeneratorService {
	return GeneratorService{AI: ai}
}

const (
	questionMaxTokens   = 150
	questionTemperature = 0.7
	introMaxTokens      = 100
	introTemperature    = 0.7
	keyPointsMaxTokens  = 150
	minQuestionChars    = 10
	backgroundChars     = 500
	maxKeyPoints        = 5

	introShortFallback = "To get started, could you tell me a bit about yourself and what excites you about this role?"
	introErrorFallback = "Thank you for joining! To get started, could you tell me a bit about yourself and what excites you about this role?"
)

// Generate asks for one technical question in the given domain at the
// given difficulty. Results under 10 characters are rejected rather than
// papered over; only the intro step has a canned fallback.
func (s GeneratorService) Generate(ctx domain.Context, dom string, diff domain.Difficulty, jobRole, resumeSnippet string) (GeneratedQuestion, error) {
	input := fmt.Sprintf("Domain: %s\nDifficulty: %s\nJob Role: %s", dom, diff, jobRole)
	if resumeSnippet != "" {
		input += "\nCandidate Background: " + textx.TruncateRunes(resumeSnippet, backgroundChars)
	}

	prompt := fmt.Sprintf(`Below is an instruction that describes a task, paired with an input that provides further context. Write a response that appropriately completes the request.

### Instruction:

You are an expert interview question generator. Generate an interview question based on the parameters provided in the input.

### Input:

%s

### Response:

`, input)

	raw, err := s.AI.Generate(ctx, domain.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   questionMaxTokens,
		Temperature: questionTemperature,
	})
	if err != nil {
		return GeneratedQuestion{}, fmt.Errorf("op=generator.Generate: domain=%s: %w", dom, err)
	}

	cleaned := textx.StripModelTokens(textx.AfterResponseMarker(raw))

	// Some models answer the structured variant of the prompt with JSON;
	// take the question and key points straight from it when they do.
	if obj, ok := jsonx.Extract(cleaned); ok {
		if q := questionFromJSON(obj); q != "" {
			text := textx.StripSurroundingQuotes(textx.CleanQuestionText(q))
			if len(text) < minQuestionChars {
				return GeneratedQuestion{}, fmt.Errorf("op=generator.Generate: question too short (%d chars): %w", len(text), domain.ErrValidation)
			}
			return GeneratedQuestion{Text: text, KeyPoints: keyPointsFromJSON(obj)}, nil
		}
	}

	text := textx.StripSurroundingQuotes(textx.CleanQuestionText(cleaned))
	if len(text) < minQuestionChars {
		return GeneratedQuestion{}, fmt.Errorf("op=generator.Generate: question too short (%d chars): %w", len(text), domain.ErrValidation)
	}
	return GeneratedQuestion{Text: text, KeyPoints: s.keyPoints(ctx, dom, text)}, nil
}

// Intro asks for the opening self-introduction question. It cannot fail:
// both the gateway-error and too-short paths fall back to fixed greetings
// so the session always opens.
func (s GeneratorService) Intro(ctx domain.Context, jobRole string) string {
	prompt := fmt.Sprintf(`Generate ONE interview question for a %s position asking the candidate to introduce themselves.

Requirements:
- Be warm and conversational
- Ask about their journey and what excites them about the role
- Return ONLY the question text
- No explanations, no additional text

Question:`, jobRole)

	raw, err := s.AI.Generate(ctx, domain.GenerateRequest{
		System:      "You are a professional interview question generator. Return only the question, nothing else.",
		Prompt:      prompt,
		MaxTokens:   introMaxTokens,
		Temperature: introTemperature,
	})
	if err != nil {
		slog.Warn("intro generation failed, using fixed greeting", slog.Any("error", err))
		observability.AgentFallback("intro")
		return introErrorFallback
	}
	q := textx.StripSurroundingQuotes(textx.FirstLine(textx.StripModelTokens(raw)))
	if len(q) < minQuestionChars {
		observability.AgentFallback("intro")
		return introShortFallback
	}
	return q
}

// keyPoints asks, best effort, what an ideal answer should cover. An
// empty result is acceptable; the evaluator judges against a generated
// reference answer either way.
func (s GeneratorService) keyPoints(ctx domain.Context, dom, question string) []string {
	prompt := fmt.Sprintf(`For the following %s interview question, list the key points an ideal answer should cover.

Question: %s

Return a JSON object: {"key_points": ["point 1", "point 2", "point 3"]}

Return ONLY the JSON object.`, dom, question)

	obj, err := s.AI.GenerateJSON(ctx, domain.GenerateRequest{
		System:      "You are a technical interviewer. Return only valid JSON objects with a 'key_points' key.",
		Prompt:      prompt,
		MaxTokens:   keyPointsMaxTokens,
		Temperature: 0.3,
	})
	if err != nil || len(obj) == 0 {
		slog.Debug("key point extraction skipped", slog.String("domain", dom), slog.Any("error", err))
		return nil
	}
	points := jsonx.StringSlice(obj["key_points"])
	out := points[:0]
	for _, p := range points {
		if p = strings.TrimSpace(p); p != "" && len(out) < maxKeyPoints {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func questionFromJSON(obj map[string]any) string {
	for _, key := range []string{"questionText", "question_text", "question"} {
		if q := jsonx.String(obj[key], ""); q != "" {
			return q
		}
	}
	return ""
}

func keyPointsFromJSON(obj map[string]any) []string {
	for _, key := range []string{"keyPoints", "key_points"} {
		if pts := jsonx.StringSlice(obj[key]); len(pts) > 0 {
			if len(pts) > maxKeyPoints {
				return pts[:maxKeyPoints]
			}
			return pts
		}
	}
	return nil
}
