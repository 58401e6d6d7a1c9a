package biz

import (
	"errors"
	"strings"

	jsonutil "github.com/kart-io/papergen/pkg/utils/json"
)

// ErrNoJSON means no decodable JSON payload was found in model output.
var ErrNoJSON = errors.New("no JSON payload in model output")

// DecodeModelJSON decodes JSON out of raw model output into v. Models
// frequently wrap payloads in prose or fenced code blocks, so decoding is
// attempted in order: the raw text as-is, the first fenced code block,
// then the first bracket-balanced object or array substring.
func DecodeModelJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrNoJSON
	}

	if err := jsonutil.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	if fenced, ok := extractFenced(raw); ok {
		if err := jsonutil.Unmarshal([]byte(fenced), v); err == nil {
			return nil
		}
	}

	if balanced, ok := extractBalanced(raw); ok {
		if err := jsonutil.Unmarshal([]byte(balanced), v); err == nil {
			return nil
		}
	}

	return ErrNoJSON
}

// extractFenced returns the body of the first ``` fenced block, tolerating
// a language tag after the opening fence.
func extractFenced(raw string) (string, bool) {
	start := strings.Index(raw, "```")
	if start < 0 {
		return "", false
	}
	body := raw[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(body[:nl])
		if firstLine == "json" || firstLine == "JSON" || firstLine == "" {
			body = body[nl+1:]
		}
	}
	end := strings.Index(body, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:end]), true
}

// extractBalanced returns the first brace- or bracket-balanced substring,
// skipping brackets inside JSON strings.
func extractBalanced(raw string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if raw[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
