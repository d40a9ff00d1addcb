package matching

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DisplayValue renders any field value into the normalized string form used
// for reporting and for non-numeric equality checks.
//
// Booleans render as "true"/"false", nil as the empty string, and composite
// values as compact JSON with object keys sorted. Mismatch text must be
// byte-identical across runs, so every rendering path here is deterministic.
func DisplayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return string(v)
	case map[string]any, []any:
		return canonicalJSON(v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// canonicalJSON serializes composite values as compact JSON with sorted
// object keys and without HTML escaping.
func canonicalJSON(value any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sortKeys(value)); err != nil {
		return fmt.Sprintf("%v", value)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// sortKeys rewrites maps into a key-ordered form that encoding/json
// serializes deterministically. encoding/json already sorts map keys, but
// nested []byte values and nested maps inside slices still need the walk.
func sortKeys(value any) any {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(v))
		for _, k := range keys {
			out[k] = sortKeys(v[k])
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sortKeys(item)
		}
		return out
	case []byte:
		return string(v)
	default:
		return v
	}
}

// normalizeSender canonicalizes a sender display string for grouping:
// surrounding whitespace is stripped and case is folded.
func normalizeSender(value any) string {
	return strings.ToLower(strings.TrimSpace(DisplayValue(value)))
}

// normalizeSubject strips surrounding whitespace but keeps case. Subjects
// disambiguate within a sender group and stay case-sensitive.
func normalizeSubject(value any) string {
	return strings.TrimSpace(DisplayValue(value))
}

// isEmptyValue reports whether a value satisfies a must-be-empty rule:
// nil, or a string that is empty after trimming.
func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
