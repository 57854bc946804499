// Package stub provides an offline chat client for local development.
package stub

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// Client is a fast, deterministic domain.AIClient. It grades by answer
// length and structure so the interview flow can be exercised without a
// provider key.
type Client struct {
	// Latency simulates a round trip.
	Latency time.Duration
}

func New() *Client { return &Client{Latency: 50 * time.Millisecond} }

// ChatJSON returns a verdict in the oracle's JSON shape.
func (c *Client) ChatJSON(ctx domain.Context, _ string, userPrompt string, _ int) (string, error) {
	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.Latency):
		}
	}
	answer := userPrompt
	if i := strings.Index(userPrompt, "Candidate answer:\n"); i >= 0 {
		answer = userPrompt[i+len("Candidate answer:\n"):]
		if j := strings.Index(answer, "\nPaste telemetry:"); j >= 0 {
			answer = answer[:j]
		}
	}
	answer = strings.TrimSpace(answer)
	words := len(strings.Fields(answer))
	base := 30 + words
	if base > 90 {
		base = 90
	}
	structure := 0
	if strings.Contains(answer, "\n") {
		structure = 5
	}
	payload := map[string]any{
		"technicalAccuracy": base,
		"problemSolving":    base - 5 + structure,
		"communication":     base + structure,
		"documentation":     base - 10,
		"aiDetected":        false,
		"feedback":          "Offline grading based on answer length; configure ORACLE_API_KEY for real scoring.",
	}
	b, _ := json.Marshal(payload)
	return string(b), nil
}
