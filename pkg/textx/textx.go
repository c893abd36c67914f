// Package textx provides small text utilities used across the project.
package textx

import (
	"regexp"
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// sentinelTokens are end-of-sequence and chat-template markers that
// fine-tuned completion models leak into their output.
var sentinelTokens = []string{
	"<|end_of_text|>",
	"<|endoftext|>",
	"</s>",
	"<eos>",
	"[END]",
	"<|im_end|>",
	"<|end|>",
	"<|system|>",
	"<|user|>",
	"<|assistant|>",
	"<s>",
	"[INST]",
	"[/INST]",
}

// StripModelTokens removes sentinel tokens from generated text.
func StripModelTokens(s string) string {
	for _, tok := range sentinelTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	return strings.TrimSpace(s)
}

// AfterResponseMarker returns the text after the last "### Response:"
// marker. Models served with Alpaca-style prompts sometimes echo the
// whole prompt back; only the tail is the actual completion.
func AfterResponseMarker(s string) string {
	const marker = "### Response:"
	if !strings.Contains(s, marker) {
		return strings.TrimSpace(s)
	}
	parts := strings.Split(s, marker)
	return strings.TrimSpace(parts[len(parts)-1])
}

var questionPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^Got it\.?\s*Here is your interview question:\s*`),
	regexp.MustCompile(`(?im)^Here is your interview question:\s*`),
	regexp.MustCompile(`(?im)^Your interview question:\s*`),
	regexp.MustCompile(`(?im)^Question:\s*`),
	regexp.MustCompile(`(?im)^Interview Question:\s*`),
	regexp.MustCompile(`(?im)^Technical Question:\s*`),
	regexp.MustCompile(`(?im)^\d+\.\s*`),
	regexp.MustCompile(`(?im)^###\s*`),
	regexp.MustCompile(`(?im)^##\s*`),
	regexp.MustCompile(`(?im)^#\s*`),
}

// genericFiller are acknowledgement-style responses a model returns when
// it ignored the task. A question starting with one of these is useless.
var genericFiller = []string{
	"Your request has been processed",
	"I understand",
	"Got it",
	"Understood",
	"Request processed",
	"Task completed",
}

var (
	multiNewline = regexp.MustCompile(`\n\s*\n`)
	anySpaceRun  = regexp.MustCompile(`\s+`)
)

// CleanQuestionText strips boilerplate prefixes and markdown headers from
// a generated question and normalizes whitespace. Returns "" when the
// model produced generic filler instead of a question.
func CleanQuestionText(s string) string {
	cleaned := strings.TrimSpace(s)
	for _, re := range questionPrefixes {
		cleaned = strings.TrimSpace(re.ReplaceAllString(cleaned, ""))
	}
	lower := strings.ToLower(cleaned)
	for _, g := range genericFiller {
		if strings.HasPrefix(lower, strings.ToLower(g)) {
			return ""
		}
	}
	cleaned = multiNewline.ReplaceAllString(cleaned, "\n")
	cleaned = anySpaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// StripSurroundingQuotes trims matching quote characters wrapping the text.
func StripSurroundingQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, `'`)
	return strings.TrimSpace(s)
}

// FirstLine returns the first non-empty line of s.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// TruncateRunes caps s at n runes. Used to bound resume context and
// report transcripts fed back into prompts.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
