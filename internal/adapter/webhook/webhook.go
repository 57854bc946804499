// Package webhook delivers interview outcomes to outside HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// EventCompleted is sent in the X-Event header of result deliveries.
const EventCompleted = "interview.completed"

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// post sends body as JSON and treats any non-2xx as a failure.
func post(ctx context.Context, hc *http.Client, op, url string, body any, headers map[string]string) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("op=%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("op=%s: %w: %v", op, domain.ErrInvalidArgument, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("op=%s: %w: %v", op, domain.ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("op=%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("op=%s: %w: status 429", op, domain.ErrRateLimited)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		slog.Warn("webhook non-2xx",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)))
		return fmt.Errorf("op=%s: status %d", op, resp.StatusCode)
	}
	return nil
}

// Publisher posts the full SessionResult to a results webhook.
type Publisher struct {
	url string
	hc  *http.Client
}

// NewPublisher returns a Publisher, or nil when url is empty.
func NewPublisher(url string, timeout time.Duration) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url, hc: newHTTPClient(timeout)}
}

// Publish implements domain.ResultPublisher. The result id doubles as the idempotency key.
func (p *Publisher) Publish(ctx context.Context, r domain.SessionResult) error {
	return post(ctx, p.hc, "webhook.Publish", p.url, r, map[string]string{
		"X-Event":         EventCompleted,
		"Idempotency-Key": r.ID,
	})
}

// StatusClient calls the external update-by-key API with the assessment status.
type StatusClient struct {
	url string
	hc  *http.Client
}

// NewStatusClient returns a StatusClient, or nil when url is empty.
func NewStatusClient(url string, timeout time.Duration) *StatusClient {
	if url == "" {
		return nil
	}
	return &StatusClient{url: url, hc: newHTTPClient(timeout)}
}

type statusUpdate struct {
	ZohoID string                  `json:"zoho_id"`
	Result domain.AssessmentStatus `json:"ai_interview_result"`
}

// NotifyStatus implements domain.StatusNotifier.
func (c *StatusClient) NotifyStatus(ctx context.Context, candidateKey string, status domain.AssessmentStatus) error {
	return post(ctx, c.hc, "status.Notify", c.url, statusUpdate{ZohoID: candidateKey, Result: status}, nil)
}
