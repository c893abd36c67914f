// Package openrouter implements the language-model gateway backed by
// OpenRouter (chat) and an OpenAI-compatible embeddings endpoint.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"log/slog"

	"github.com/Raghav-madderla/AIMI/internal/adapter/ai/tokencount"
	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/config"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/pkg/jsonx"
)

// Client implements domain.LanguageModelGateway.
type Client struct {
	cfg     config.Config
	chatHC  *http.Client
	embedHC *http.Client
	breaker *circuitBreaker
}

// New constructs the gateway with traced transports and per-call timeouts.
func New(cfg config.Config) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "ai " + r.Method + " " + r.URL.Path
		}))
	return &Client{
		cfg:     cfg,
		chatHC:  &http.Client{Timeout: cfg.AIRequestTimeout, Transport: transport},
		embedHC: &http.Client{Timeout: cfg.AIRequestTimeout, Transport: transport},
		breaker: newCircuitBreaker("openrouter"),
	}
}

// getBackoffConfig returns a configured ExponentialBackOff based on the current environment.
func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()

	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier

	return expo
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate calls OpenRouter chat completions and returns the raw message
// content. Content is returned uncleaned: each agent owns its own parse
// and cleanup policy.
func (c *Client) Generate(ctx domain.Context, req domain.GenerateRequest) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", fmt.Errorf("op=ai.Generate: %w: OPENROUTER_API_KEY missing", domain.ErrConfiguration)
	}
	if !c.breaker.ShouldAttempt() {
		return "", fmt.Errorf("op=ai.Generate: circuit open: %w", domain.ErrGeneration)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	model := c.cfg.ChatModel
	prompt := req.Prompt
	if c.cfg.AIMaxPromptTokens > 0 {
		trimmed := tokencount.TrimToTokensDefault(prompt, model, c.cfg.AIMaxPromptTokens)
		if len(trimmed) < len(prompt) {
			slog.Warn("prompt trimmed to token budget",
				slog.String("model", model),
				slog.Int("budget", c.cfg.AIMaxPromptTokens),
				slog.Int("original_chars", len(prompt)),
				slog.Int("trimmed_chars", len(trimmed)))
			prompt = trimmed
		}
	}
	body := map[string]any{
		"model":       model,
		"temperature": req.Temperature,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": prompt},
		},
	}
	b, _ := json.Marshal(body)

	var out chatResponse
	var lastStatus int
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
		r.Header.Set("Content-Type", "application/json")
		if c.cfg.OpenRouterReferer != "" {
			r.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
		}
		if c.cfg.OpenRouterTitle != "" {
			r.Header.Set("X-Title", c.cfg.OpenRouterTitle)
		}
		resp, err := c.chatHC.Do(r)
		observability.AIRequestsTotal.WithLabelValues("openrouter", "chat").Inc()
		observability.AIRequestDuration.WithLabelValues("openrouter", "chat").Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			slog.Error("failed to read response body", slog.String("provider", "openrouter"), slog.Any("error", err))
			return err
		}
		lastStatus = resp.StatusCode

		if resp.StatusCode == 429 {
			// Retryable: let backoff handle retries
			slog.Warn("ai provider rate limited", slog.String("provider", "openrouter"), slog.String("op", "chat"),
				slog.Int("status", resp.StatusCode), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client error: non-retryable
			slog.Warn("ai provider 4xx", slog.String("provider", "openrouter"), slog.String("op", "chat"),
				slog.Int("status", resp.StatusCode), slog.String("model", model),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
				slog.String("body", snippet(bodyBytes, 512)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// 5xx and others: retryable
			slog.Error("ai provider non-2xx", slog.String("provider", "openrouter"), slog.String("op", "chat"),
				slog.Int("status", resp.StatusCode), slog.String("model", model),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
				slog.String("body", snippet(bodyBytes, 512)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			slog.Error("ai provider decode error", slog.String("provider", "openrouter"), slog.String("op", "chat"),
				slog.String("model", model), slog.Any("error", err))
			return err
		}
		return nil
	}

	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		c.breaker.RecordFailure()
		return "", classify(ctx, "ai.Generate", lastStatus, err)
	}
	if len(out.Choices) == 0 {
		c.breaker.RecordFailure()
		slog.Error("ai provider returned empty choices", slog.String("provider", "openrouter"))
		return "", fmt.Errorf("op=ai.Generate: empty choices: %w", domain.ErrGeneration)
	}
	c.breaker.RecordSuccess()

	if out.Model != "" && out.Model != model {
		slog.Warn("model substitution detected",
			slog.String("requested_model", model),
			slog.String("actual_model", out.Model),
			slog.String("provider", "openrouter"))
	}
	return out.Choices[0].Message.Content, nil
}

// GenerateJSON generates and leniently decodes one JSON object. When no
// object can be recovered from the output, it returns an empty map and no
// error: the caller's fallback policy decides what a missing key means.
func (c *Client) GenerateJSON(ctx domain.Context, req domain.GenerateRequest) (map[string]any, error) {
	raw, err := c.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("op=ai.GenerateJSON: %w", err)
	}
	obj, ok := jsonx.Extract(raw)
	if !ok {
		slog.Warn("model output had no recoverable JSON",
			slog.String("provider", "openrouter"), slog.Int("raw_len", len(raw)))
	}
	return obj, nil
}

// Embed calls the embeddings endpoint and returns vectors.
func (c *Client) Embed(ctx domain.Context, texts []string) ([][]float32, error) {
	if c.cfg.EmbeddingsAPIKey == "" || c.cfg.EmbeddingsModel == "" {
		// Do not log secrets; only indicate presence
		slog.Error("embeddings key or model missing", slog.String("provider", "embeddings"),
			slog.Bool("has_api_key", c.cfg.EmbeddingsAPIKey != ""), slog.String("model", c.cfg.EmbeddingsModel))
		return nil, fmt.Errorf("op=ai.Embed: %w: EMBEDDINGS_API_KEY or EMBEDDINGS_MODEL missing", domain.ErrConfiguration)
	}
	body := map[string]any{
		"model": c.cfg.EmbeddingsModel,
		"input": texts,
	}
	b, _ := json.Marshal(body)
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	var lastStatus int
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.EmbeddingsBaseURL+"/embeddings", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.EmbeddingsAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.embedHC.Do(r)
		observability.AIRequestsTotal.WithLabelValues("embeddings", "embed").Inc()
		observability.AIRequestDuration.WithLabelValues("embeddings", "embed").Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		lastStatus = resp.StatusCode
		if resp.StatusCode == 429 {
			slog.Warn("ai provider rate limited", slog.String("provider", "embeddings"), slog.String("op", "embed"),
				slog.Int("status", resp.StatusCode))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			slog.Warn("ai provider 4xx", slog.String("provider", "embeddings"), slog.String("op", "embed"),
				slog.Int("status", resp.StatusCode), slog.String("model", c.cfg.EmbeddingsModel),
				slog.String("body", snippet(bodyBytes, 512)))
			return backoff.Permanent(fmt.Errorf("embed status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			slog.Error("ai provider non-2xx", slog.String("provider", "embeddings"), slog.String("op", "embed"),
				slog.Int("status", resp.StatusCode), slog.String("model", c.cfg.EmbeddingsModel),
				slog.String("body", snippet(bodyBytes, 512)))
			return fmt.Errorf("embed status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			slog.Error("ai provider decode error", slog.String("provider", "embeddings"), slog.String("op", "embed"), slog.Any("error", err))
			return err
		}
		return nil
	}

	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, classify(ctx, "ai.Embed", lastStatus, err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("op=ai.Embed: empty data: %w", domain.ErrGeneration)
	}
	res := make([][]float32, len(out.Data))
	for i := range out.Data {
		v := make([]float32, len(out.Data[i].Embedding))
		for j := range out.Data[i].Embedding {
			v[j] = float32(out.Data[i].Embedding[j])
		}
		res[i] = v
	}
	return res, nil
}

// classify maps an exhausted retry to the domain error taxonomy.
func classify(ctx domain.Context, op string, lastStatus int, err error) error {
	switch {
	case lastStatus == 429:
		return fmt.Errorf("op=%s: %w: %w", op, domain.ErrUpstreamRateLimit, err)
	case ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("op=%s: %w: %w", op, domain.ErrUpstreamTimeout, err)
	default:
		return fmt.Errorf("op=%s: %w: %w", op, domain.ErrGeneration, err)
	}
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
