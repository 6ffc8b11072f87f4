// Package extract recovers JSON objects from free-form model output, which
// may wrap the payload in prose or markdown code fences.
package extract

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no JSON object could be recovered from the
// text. Callers branch on it with errors.Is and must leave any previously
// stored state untouched.
var ErrNoJSON = errors.New("no JSON object found in text")

// JSONObject extracts the first JSON object from raw text. It tries the
// substring between the first '{' and the last '}' before falling back to
// parsing the whole text.
func JSONObject(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Unmarshal decodes the first JSON object found in raw text into v.
func Unmarshal(raw string, v any) error {
	for _, candidate := range candidates(raw) {
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return nil
		}
	}
	return ErrNoJSON
}

func candidates(raw string) []string {
	var out []string
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		out = append(out, raw[start:end+1])
	}
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		out = append(out, trimmed)
	}
	return out
}
