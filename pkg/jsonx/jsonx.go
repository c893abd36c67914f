// Package jsonx recovers structured data from messy model output.
//
// Models asked for strict JSON still wrap it in markdown fences, prepend
// prose, or truncate the tail. Every caller that expects JSON goes through
// Extract so the recovery policy lives in exactly one place.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	arrayPattern  = regexp.MustCompile(`(?s)\[.*?\]`)
)

// StripFences removes a surrounding markdown code fence, if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

// Extract pulls the first JSON object out of s. A bare JSON array is
// wrapped as {"data": [...]}. The second return reports whether anything
// was recovered; callers receive an empty map otherwise.
func Extract(s string) (map[string]any, bool) {
	s = StripFences(s)
	if s == "" {
		return map[string]any{}, false
	}

	if obj, ok := tryObject(s); ok {
		return obj, true
	}
	if span := firstObject(s); span != "" && span != s {
		if obj, ok := tryObject(span); ok {
			return obj, true
		}
	}
	if m := arrayPattern.FindString(s); m != "" {
		var arr []any
		if err := json.Unmarshal([]byte(m), &arr); err == nil {
			return map[string]any{"data": arr}, true
		}
	}
	return map[string]any{}, false
}

// tryObject parses s as a JSON object, retrying once with trailing
// commas stripped.
func tryObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj, true
	}
	if fixed := trailingComma.ReplaceAllString(s, "$1"); fixed != s {
		if err := json.Unmarshal([]byte(fixed), &obj); err == nil {
			return obj, true
		}
	}
	return nil, false
}

// firstObject returns the first balanced {...} span in s. Braces inside
// string values are not tracked; unbalanced input returns "".
func firstObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// StringSlice coerces a decoded JSON value into a []string, skipping
// non-string elements.
func StringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// String returns v as a string, or def when v is absent or not a string.
func String(v any, def string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

// Float returns v as a float64, tolerating json.Number-style strings.
func Float(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		var f float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(n)), &f); err == nil {
			return f
		}
	}
	return def
}

// Clamp01 bounds a score to the [0,1] interval.
func Clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
