package util

import (
	"encoding/json"
	"strings"
)

// LoadJSON decodes model output into v. A reply wrapped in a ```json fence is
// unwrapped first.
func LoadJSON(text string, v any) error {
	return json.Unmarshal([]byte(StripJSONFence(text)), v)
}

// StripJSONFence removes a surrounding ```json ... ``` fence.
func StripJSONFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") && strings.HasSuffix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	}

	return strings.TrimSpace(text)
}

// Truncate cuts s to at most limit characters and appends suffix when it
// was shortened.
func Truncate(s string, limit int, suffix string) string {
	if limit <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + suffix
}
