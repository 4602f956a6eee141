package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON parses a collaborator response into v. Models wrap JSON in
// markdown fences or prose often enough that we extract the outermost JSON
// value before unmarshalling. Failures wrap ErrSchemaViolation.
func DecodeJSON(raw string, v any) error {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return fmt.Errorf("%w: no JSON value in response", ErrSchemaViolation)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

// extractJSON strips code fences and surrounding prose, returning the
// outermost {...} or [...] span, or "" when none exists.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	closing := byte('}')
	if s[start] == '[' {
		closing = ']'
	}

	end := strings.LastIndexByte(s, closing)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
