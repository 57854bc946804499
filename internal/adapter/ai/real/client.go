// Package real implements domain.AIClient against an OpenAI-compatible chat completions API.
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-screening-interview/internal/config"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	"github.com/fairyhunter13/ai-screening-interview/pkg/textx"
)

const provider = "openai_compatible"

// Client sends one chat completion per call. It never retries: a failed
// verdict becomes the fallback score upstream.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
	counter *tokencount.Counter
}

// New constructs a client from configuration.
func New(cfg config.Config) *Client {
	timeout := cfg.OracleTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		apiKey:  cfg.OracleAPIKey,
		baseURL: strings.TrimRight(cfg.OracleBaseURL, "/"),
		model:   cfg.OracleModel,
		hc:      &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		counter: tokencount.DefaultCounter,
	}
}

// Model returns the configured model id.
func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ChatJSON calls /chat/completions and returns the assistant message content.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("op=ai.ChatJSON: %w: ORACLE_API_KEY missing", domain.ErrInvalidArgument)
	}
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: 0.2,
		MaxTokens:   maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("op=ai.ChatJSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=ai.ChatJSON: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	observability.AIRequestsTotal.WithLabelValues(provider, "chat").Inc()
	observability.AIRequestDuration.WithLabelValues(provider, "chat").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("op=ai.ChatJSON: %w: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("op=ai.ChatJSON: %w: %v", domain.ErrOracle, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("op=ai.ChatJSON: %w: read body: %v", domain.ErrOracle, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("ai provider rate limited",
			slog.String("provider", provider),
			slog.String("retry_after", resp.Header.Get("Retry-After")))
		return "", fmt.Errorf("op=ai.ChatJSON: %w: status 429", domain.ErrRateLimited)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		slog.Error("ai provider non-2xx",
			slog.String("provider", provider),
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.model),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", textx.Truncate(string(respBody), 512)))
		return "", fmt.Errorf("op=ai.ChatJSON: %w: status %d", domain.ErrOracle, resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("op=ai.ChatJSON: %w: decode: %v", domain.ErrSchemaInvalid, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("op=ai.ChatJSON: %w: empty choices", domain.ErrSchemaInvalid)
	}
	content := out.Choices[0].Message.Content

	var prompt int
	if out.Usage != nil {
		prompt = out.Usage.PromptTokens
	} else {
		prompt = c.counter.CalculateUsage(systemPrompt, userPrompt, content, c.model).PromptTokens
	}
	observability.AITokensTotal.WithLabelValues(c.model).Add(float64(prompt))

	if out.Model != "" && out.Model != c.model {
		slog.Debug("model substitution detected",
			slog.String("requested_model", c.model),
			slog.String("actual_model", out.Model))
	}
	return content, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
