// Package jsonpath pulls values out of loosely shaped JSON replies: a
// dot/bracket path lookup for transcription servers and object recovery for
// language-model output that wraps JSON in prose or code fences.
package jsonpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtractText extracts text from a JSON body using path, falling back to a
// top-level "text" field.
func ExtractText(body []byte, path string) string {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return ""
	}
	if path != "" {
		if v, ok := ExtractByPath(root, path); ok {
			return v
		}
	}
	if m, ok := root.(map[string]any); ok {
		if v, ok := scalar(m["text"]); ok {
			return v
		}
	}
	return ""
}

// ExtractByPath extracts a scalar from a decoded JSON value using a path such
// as "results[0].alternatives[0].transcript".
func ExtractByPath(root any, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	cur := root
	for _, part := range strings.Split(path, ".") {
		key, idxs, err := ParseKeyAndIndexes(part)
		if err != nil {
			return "", false
		}
		if key != "" {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			next, exists := m[key]
			if !exists {
				return "", false
			}
			cur = next
		}
		for _, idx := range idxs {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return "", false
			}
			cur = arr[idx]
		}
	}
	return scalar(cur)
}

// ParseKeyAndIndexes parses a token like "foo[0][1]" or "[0]" or "bar" into base key and indexes.
func ParseKeyAndIndexes(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty token")
	}
	br := strings.Index(token, "[")
	if br == -1 {
		return token, nil, nil
	}
	key, rest := token[:br], token[br:]
	var idxs []int
	for len(rest) > 0 {
		if !strings.HasPrefix(rest, "[") {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		closePos := strings.Index(rest, "]")
		if closePos == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		numStr := rest[1:closePos]
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return "", nil, fmt.Errorf("invalid index '%s' in %s", numStr, token)
		}
		idxs = append(idxs, n)
		rest = rest[closePos+1:]
	}
	return key, idxs, nil
}

// ExtractObject recovers the outermost JSON object from s. Markdown code
// fences (``` or ```json) and any text around the object are ignored.
func ExtractObject(s string) ([]byte, bool) {
	s = stripFence(strings.TrimSpace(s))
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return nil, false
	}
	candidate := []byte(s[start : end+1])
	if !json.Valid(candidate) {
		return nil, false
	}
	return candidate, true
}

func stripFence(s string) string {
	open := strings.Index(s, "```")
	if open == -1 {
		return s
	}
	body := s[open+3:]
	// drop the info string ("json") up to the first newline
	if nl := strings.IndexByte(body, '\n'); nl != -1 && !strings.Contains(body[:nl], "{") {
		body = body[nl+1:]
	}
	if closePos := strings.Index(body, "```"); closePos != -1 {
		body = body[:closePos]
	}
	return strings.TrimSpace(body)
}

func scalar(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}
