package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when a model response contains no JSON value.
var ErrNoJSON = errors.New("no JSON payload in model response")

// ExtractJSON pulls the JSON payload out of a free-form model response. A fenced code block
// is preferred; otherwise the first balanced object or array that parses is taken.
func ExtractJSON(text string) ([]byte, error) {
	s := strings.TrimSpace(stripCodeFence(text))
	if s == "" {
		return nil, ErrNoJSON
	}
	if out := balanced(s); out != "" {
		return []byte(out), nil
	}
	return nil, ErrNoJSON
}

func stripCodeFence(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	body := s[start+3:]
	// drop the info string ("json") up to the end of the opening line
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return s
	}
	if end := strings.Index(body, "```"); end >= 0 {
		return body[:end]
	}
	return body
}

// maxJSONStarts bounds how many opening brackets are tried before giving up.
const maxJSONStarts = 64

// balanced returns the first {...} or [...] span with matching brackets that is valid JSON.
// Bracketed prose such as "[2 total]" ahead of the payload is skipped.
func balanced(s string) string {
	offset := 0
	for tries := 0; tries < maxJSONStarts; tries++ {
		i := strings.IndexAny(s[offset:], "{[")
		if i == -1 {
			return ""
		}
		start := offset + i
		if end := closing(s, start); end > 0 && json.Valid([]byte(s[start:end])) {
			return s[start:end]
		}
		offset = start + 1
	}
	return ""
}

// closing returns the index just past the bracket that closes the one at start, honoring
// strings, or -1 when the span never closes.
func closing(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
