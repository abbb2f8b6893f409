package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> blocks some models emit before their answer.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// StripThinking removes a leading <think> block from a response.
func StripThinking(response string) string {
	return thinkTagPattern.ReplaceAllString(response, "")
}

// ExtractObject returns the first balanced, valid JSON object in s.
func ExtractObject(s string) (string, error) {
	cleaned := StripThinking(s)

	for offset := 0; offset < len(cleaned); {
		obj, start, ok := extractBalanced(cleaned[offset:], '{', '}')
		if !ok {
			break
		}
		if json.Valid([]byte(obj)) {
			return obj, nil
		}
		offset += start + 1
	}

	return "", fmt.Errorf("no valid JSON object found")
}

// FirstObject returns the first balanced {...} span in s without checking
// that it is valid JSON.
func FirstObject(s string) (string, bool) {
	obj, _, ok := extractBalanced(s, '{', '}')
	return obj, ok
}

// extractBalanced finds the first balanced structure opened by openChar and
// returns it with its start offset. Brackets inside JSON strings are ignored.
func extractBalanced(s string, openChar, closeChar byte) (string, int, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", -1, false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return s[start : i+1], start, true
			}
		}
	}

	return "", start, false
}
