// Package tokencount counts and budgets prompt tokens.
//
// It uses tiktoken-go, a Go port of OpenAI's official tiktoken library.
// Prompt builders use it to keep resume context and interview transcripts
// inside each agent's token budget instead of truncating blindly by bytes.
package tokencount

import (
	"strings"
	"sync"

	"log/slog"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting for LLM models.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodingCache: make(map[string]*tiktoken.Tiktoken),
	}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

// getEncodingForModel returns the appropriate tiktoken encoding for a model.
// It caches encodings for performance.
func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	normalizedModel := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalizedModel]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if enc, ok := c.encodingCache[normalizedModel]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(normalizedModel)
	if err != nil {
		// cl100k_base covers GPT-4, GPT-3.5-turbo and most modern models
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model),
			slog.String("normalized", normalizedModel),
			slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	c.encodingCache[normalizedModel] = enc
	return enc, nil
}

// normalizeModelName converts OpenRouter model IDs to tiktoken-compatible
// names. Llama, Mistral and the other open families tokenize closely enough
// to GPT-4 for budgeting purposes.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)

	// OpenRouter model IDs carry provider prefixes,
	// e.g. "meta-llama/llama-3.3-70b-instruct:free"
	if strings.Contains(model, "/") {
		parts := strings.Split(model, "/")
		model = parts[len(parts)-1]
	}
	model = strings.TrimSuffix(model, ":free")

	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// CountTokens counts the number of tokens in a text string for a given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// TrimToTokens returns text cut to at most maxTokens tokens for the given
// model. Text already inside the budget is returned unchanged. When no
// encoding is available it falls back to a rough ~4 chars per token cut.
func (c *Counter) TrimToTokens(text, model string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return ""
	}
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		slog.Warn("trimming by character estimate",
			slog.String("model", model),
			slog.Any("error", err))
		runes := []rune(text)
		if len(runes) <= maxTokens*4 {
			return text
		}
		return string(runes[:maxTokens*4])
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

// EstimateTokens is a cheap ~4 chars per token estimate for log fields and
// pre-checks where an encoding round trip is not worth it.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// CountTokensDefault uses the default counter to count tokens.
func CountTokensDefault(text, model string) (int, error) {
	return DefaultCounter.CountTokens(text, model)
}

// TrimToTokensDefault uses the default counter to budget text.
func TrimToTokensDefault(text, model string, maxTokens int) string {
	return DefaultCounter.TrimToTokens(text, model, maxTokens)
}
