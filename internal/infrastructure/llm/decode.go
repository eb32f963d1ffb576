package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNoJSON reports that a reply carried no JSON value of the requested shape.
var ErrNoJSON = errors.New("no json payload")

// DecodeArray strictly decodes the first JSON array embedded in content into target.
func DecodeArray(content string, target any) error {
	return decodeEmbedded(content, '[', target)
}

// DecodeObject strictly decodes the first JSON object embedded in content into target.
func DecodeObject(content string, target any) error {
	return decodeEmbedded(content, '{', target)
}

// decodeEmbedded accepts the first value starting at an open delimiter that decodes
// into target. Anything after that value is ignored.
func decodeEmbedded(content string, open byte, target any) error {
	trimmed := StripCodeFences(content)
	if trimmed == "" {
		return fmt.Errorf("%w: empty payload", ErrNoJSON)
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode payload: target must be a non-nil pointer, got %T", target)
	}

	var firstErr error
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != open {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(trimmed[i:])).Decode(&raw); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		candidate := reflect.New(rv.Elem().Type())
		if err := json.Unmarshal(raw, candidate.Interface()); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		rv.Elem().Set(candidate.Elem())
		return nil
	}
	if firstErr == nil {
		return fmt.Errorf("%w (payload snippet: %s)", ErrNoJSON, Snippet(trimmed))
	}
	return fmt.Errorf("decode payload: %w (payload snippet: %s)", firstErr, Snippet(trimmed))
}

// StripCodeFences removes a surrounding markdown code fence, with or without a language tag.
func StripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// Snippet collapses whitespace and truncates content for log and error messages.
func Snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
