// internal/llm/coerce.go
package llm

import (
	"encoding/json"
	"strings"
	"unicode"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
)

// CoerceJSON extracts the JSON value from raw model output and unmarshals it
// into out. Models routinely wrap JSON in Markdown fences or prepend prose;
// the coercion contract is: fenced input and raw input produce the same
// result. Unparseable input returns a ParseFailure, never an upstream error,
// so callers can distinguish "retry the call" from "regenerate the prompt".
func CoerceJSON(raw string, out interface{}) error {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return apperrors.NewParseFailure("Failed to parse AI response", nil)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return apperrors.NewParseFailure("Failed to parse AI response", err)
	}
	return nil
}

var jsonNoiseReplacer = strings.NewReplacer(
	"\uFEFF", "",
	"\u00A0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

// stripFences removes a leading ```lang line and a trailing ``` marker.
// Fences are only recognized at the edges of the text; backticks inside JSON
// string values are left intact.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		rest := s[3:]
		if nl := strings.IndexByte(rest, '\n'); nl != -1 && isFenceTag(rest[:nl]) {
			rest = rest[nl+1:]
		}
		s = strings.TrimSpace(rest)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(s[:len(s)-3])
	}
	return s
}

func isFenceTag(tag string) bool {
	for _, r := range strings.TrimSpace(tag) {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ExtractJSON strips edge fences and surrounding prose from raw text and
// returns the first balanced JSON object or array, or "" when none is found.
func ExtractJSON(raw string) string {
	s := jsonNoiseReplacer.Replace(raw)
	s = stripFences(s)

	// Drop zero-width and control characters other than whitespace.
	s = strings.Map(func(r rune) rune {
		switch r {
		case '​', '‌', '‍', '⁠':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return ""
	}
	s = strings.TrimSpace(s[start:])
	if s == "" {
		return ""
	}

	isArray := s[0] == '['

	// Bracket-count to the matching close, skipping string contents.
	balance := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if isArray {
			if char == '[' {
				balance++
			} else if char == ']' {
				balance--
			}
		} else {
			if char == '{' {
				balance++
			} else if char == '}' {
				balance--
			}
		}

		if balance == 0 {
			return strings.TrimSpace(s[:i+1])
		}
	}

	// No matching close found; fall back to the last closing bracket.
	end := strings.LastIndex(s, "}")
	if isArray {
		end = strings.LastIndex(s, "]")
	}
	if end != -1 {
		return strings.TrimSpace(s[:end+1])
	}
	return strings.TrimSpace(s)
}
