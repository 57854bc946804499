package ai

import "strings"

var refusalPhrases = []string{
	"i cannot",
	"i can't",
	"i can not",
	"i'm unable",
	"i am unable",
	"i won't",
	"i'm sorry, but",
	"as an ai",
	"against my guidelines",
	"i must decline",
}

// IsRefusal reports whether a model reply is a refusal rather than a verdict.
// Replies that contain a JSON object are never treated as refusals, since
// feedback text may legitimately quote these phrases.
func IsRefusal(reply string) bool {
	if strings.Contains(reply, "{") {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(reply))
	if lower == "" {
		return false
	}
	for _, p := range refusalPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
