package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a response carries no parseable JSON value.
var ErrNoJSON = errors.New("no valid JSON found in response")

// thinkTagPattern matches a leading <think>...</think> block emitted by reasoning models.
var thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// fencePattern captures the body of the first ``` or ```json fenced block.
var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

// StripCodeFence returns the contents of the first fenced code block,
// or the trimmed response when there is none.
func StripCodeFence(response string) string {
	if m := fencePattern.FindStringSubmatch(response); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

// ExtractJSON returns the first valid JSON object or array in an LLM response.
// A leading think block and a surrounding code fence are removed first. Every
// '{' or '[' is tried as a start in order, so braces in prose before the
// payload ("use {name} here") do not hide it.
func ExtractJSON(response string) (string, error) {
	cleaned := StripCodeFence(thinkTagPattern.ReplaceAllString(response, ""))

	for start := 0; start < len(cleaned); start++ {
		if cleaned[start] != '{' && cleaned[start] != '[' {
			continue
		}
		end, ok := balancedEnd(cleaned, start)
		if !ok {
			continue
		}
		if candidate := cleaned[start:end]; json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if cleaned != "" && json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}
	return "", ErrNoJSON
}

// balancedEnd returns the index just past the bracket that closes s[start].
// Brackets inside JSON strings are ignored.
func balancedEnd(s string, start int) (int, bool) {
	open := s[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case inString && c == '\\':
			i++ // skip the escaped byte
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// ParseJSONResponse extracts the first JSON value from a response and unmarshals it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	payload, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return result, nil
}
