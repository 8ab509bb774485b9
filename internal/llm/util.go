package llm

import (
	"encoding/json"
	"strings"
)

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// Models sometimes wrap JSON in ```json ... ``` even in structured mode.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Skip a language identifier on the opening fence line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// DecodeJSONObject cleans text and returns it as a raw JSON object.
// Anything that is not a single JSON object is reported as a NoResultError.
func DecodeJSONObject(provider Provider, text string) (json.RawMessage, error) {
	cleaned := CleanJSONBlock(text)
	if cleaned == "" {
		return nil, &NoResultError{Provider: provider, Reason: "empty content"}
	}
	if cleaned == "null" {
		return nil, &NoResultError{Provider: provider, Reason: "null content"}
	}
	if !strings.HasPrefix(cleaned, "{") || !json.Valid([]byte(cleaned)) {
		return nil, &NoResultError{Provider: provider, Reason: "content is not a JSON object"}
	}
	return json.RawMessage(cleaned), nil
}
