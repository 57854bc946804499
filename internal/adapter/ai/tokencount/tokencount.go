// Package tokencount estimates prompt and completion sizes for chat calls.
//
// It uses tiktoken-go and falls back to a four-characters-per-token
// estimate when no encoding can be loaded.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenUsage represents token counts for one chat completion.
type TokenUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Estimated        bool   `json:"estimated"`
}

// Counter caches encodings per model family.
type Counter struct {
	mu    sync.RWMutex
	cache map[string]*tiktoken.Tiktoken
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{cache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is shared by clients that do not bring their own.
var DefaultCounter = NewCounter()

func (c *Counter) encoding(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.RLock()
	enc, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding", slog.String("model", model), slog.Any("error", err))
		if enc, err = tiktoken.GetEncoding("cl100k_base"); err != nil {
			return nil, err
		}
	}
	c.cache[name] = enc
	return enc, nil
}

// normalizeModelName maps provider model ids onto names tiktoken knows.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	switch {
	case strings.HasPrefix(model, "gpt-4o"):
		return "gpt-4o"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		// llama, mistral, qwen and friends are close enough to cl100k
		return "gpt-4"
	}
}

// CountChatTokens counts a system/user prompt pair including per-message overhead.
func (c *Counter) CountChatTokens(systemPrompt, userPrompt, model string) (int, error) {
	enc, err := c.encoding(model)
	if err != nil {
		return 0, err
	}
	const perMessage, replyPriming = 4, 3
	n := replyPriming
	for _, m := range [][2]string{{"system", systemPrompt}, {"user", userPrompt}} {
		n += perMessage + len(enc.Encode(m[0], nil, nil)) + len(enc.Encode(m[1], nil, nil))
	}
	return n, nil
}

// CountTokens counts the tokens of a single text.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CalculateUsage never fails; counts that cannot be computed are estimated.
func (c *Counter) CalculateUsage(systemPrompt, userPrompt, completion, model string) TokenUsage {
	u := TokenUsage{Model: model}
	var err error
	if u.PromptTokens, err = c.CountChatTokens(systemPrompt, userPrompt, model); err != nil {
		u.PromptTokens = (len(systemPrompt) + len(userPrompt)) / 4
		u.Estimated = true
	}
	if u.CompletionTokens, err = c.CountTokens(completion, model); err != nil {
		u.CompletionTokens = len(completion) / 4
		u.Estimated = true
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}
