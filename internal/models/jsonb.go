package models

import (
	"encoding/json"
	"strings"
)

// JSONB is a loosely-typed JSON object read from a text column.
type JSONB map[string]any

// ParseJSONB parses an optional JSON object column. Empty, null and
// malformed input all yield an empty map.
func ParseJSONB(raw *string) JSONB {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return JSONB{}
	}

	var out JSONB
	if err := json.Unmarshal([]byte(*raw), &out); err != nil || out == nil {
		return JSONB{}
	}
	return out
}

// String returns the string value stored under key, if any.
func (j JSONB) String(key string) string {
	if s, ok := j[key].(string); ok {
		return s
	}
	return ""
}
