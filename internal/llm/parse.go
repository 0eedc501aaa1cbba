package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/polzovatel/web-agent-ai/internal/action"
)

// ErrInvalidFormat is wrapped by every FormatError.
var ErrInvalidFormat = errors.New("invalid generation format")

// FormatError reports model output that is not a JSON array of objects.
type FormatError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidFormat, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidFormat, e.Reason)
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidFormat, e.Err}
	}
	return []error{ErrInvalidFormat}
}

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// Sanitize strips an optional Markdown code fence around text.
func Sanitize(text string) string {
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ParseActions sanitizes text and decodes it as a JSON array of action
// objects. It returns the sanitized text alongside the actions.
func ParseActions(text string) ([]action.Action, string, error) {
	clean := Sanitize(text)

	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, "", &FormatError{Reason: "not valid JSON", Raw: text, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, "", &FormatError{Reason: "trailing data after JSON value", Raw: text}
	}

	items, ok := parsed.([]any)
	if !ok {
		return nil, "", &FormatError{Reason: fmt.Sprintf("top level is %s, want array", jsonKind(parsed)), Raw: text}
	}

	actions := make([]action.Action, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, "", &FormatError{Reason: fmt.Sprintf("member %d is %s, want object", i, jsonKind(item)), Raw: text}
		}
		actions = append(actions, action.FromMap(obj))
	}
	return actions, clean, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
