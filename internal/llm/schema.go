package llm

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// truncate cuts s to the per-task character budget. Inputs are rendered page
// text, so a mid-rune cut at worst mangles the final character.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON value. Models in JSON mode still occasionally wrap output in fences.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	var end int
	if text[start] == '{' {
		end = strings.LastIndex(text, "}")
	} else {
		end = strings.LastIndex(text, "]")
	}
	if end <= start {
		return text
	}
	return text[start : end+1]
}

// validateObject parses raw as a JSON object and checks the required fields
// are present. Returns the parsed map for further shaping.
func validateObject(raw string, required ...string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, eris.Wrap(err, "malformed json")
	}
	for _, field := range required {
		if _, ok := obj[field]; !ok {
			return nil, eris.Errorf("missing required field %q", field)
		}
	}
	return obj, nil
}

// stringSlice coerces a decoded JSON value into a string slice, dropping
// non-string members.
func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// capList truncates a decoded JSON array field in place.
func capList(obj map[string]any, field string, limit int) {
	arr, ok := obj[field].([]any)
	if ok && len(arr) > limit {
		obj[field] = arr[:limit]
	}
}
