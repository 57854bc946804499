// Package ai turns chat-model output into scoring verdicts.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

var (
	fencedBlock   = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	bareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	smartQuotes   = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// ResponseCleaner extracts a JSON object from model output that may be wrapped
// in markdown fences or surrounded by prose.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

// CleanJSONResponse returns the first JSON object in response. Repairs run
// only when the extracted object does not already parse, so valid content
// (apostrophes, backticks, asterisks inside strings) is never rewritten.
func (rc *ResponseCleaner) CleanJSONResponse(response string) (string, error) {
	s := strings.TrimSpace(response)
	if m := fencedBlock.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	obj := extractObject(s)
	if obj == "" {
		return "", &JSONValidationError{Original: response, Message: "no JSON object in response"}
	}
	if json.Valid([]byte(obj)) {
		return obj, nil
	}

	fixed := repairJSON(obj)
	if !json.Valid([]byte(fixed)) {
		return "", &JSONValidationError{
			Original: response,
			Cleaned:  fixed,
			Message:  "cleaned response is still not valid JSON",
		}
	}
	return fixed, nil
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	return json.Valid([]byte(response))
}

// extractObject returns the first balanced {...} in s, skipping braces inside
// string literals. An unbalanced tail is returned as-is for repair to reject.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

func repairJSON(s string) string {
	s = smartQuotes.Replace(s)
	// single-quoted or backticked objects only; a double quote means apostrophes are text
	if !strings.Contains(s, `"`) {
		s = strings.NewReplacer("'", `"`, "`", `"`).Replace(s)
	}
	s = trailingComma.ReplaceAllString(s, "$1")
	s = bareKey.ReplaceAllString(s, `$1"$2":`)
	return s
}

// JSONValidationError is returned when no usable JSON object can be recovered.
type JSONValidationError struct {
	Original string
	Cleaned  string
	Message  string
}

func (e *JSONValidationError) Error() string {
	return e.Message
}

// Unwrap lets callers match the failure as domain.ErrSchemaInvalid.
func (e *JSONValidationError) Unwrap() error { return domain.ErrSchemaInvalid }
