package pipeline

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when a reply holds no JSON object
var ErrNoJSONObject = errors.New("no JSON object in reply")

// ExtractJSONObject finds the first complete JSON object in a model reply.
// Markdown code fences and prose around the object are tolerated.
func ExtractJSONObject(reply string) ([]byte, error) {
	text := strings.TrimSpace(reply)

	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > 0 {
			candidate := text[start:end]
			if json.Valid([]byte(candidate)) {
				return []byte(candidate), nil
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil, ErrNoJSONObject
}

// matchBrace returns the index just past the brace closing the one at start,
// or -1. Braces inside JSON strings are ignored.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}

	return -1
}
