package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of browser operations a model may request.
type Kind string

const (
	Click      Kind = "CLICK"
	Type       Kind = "TYPE"
	Navigate   Kind = "NAVIGATE"
	Screenshot Kind = "SCREENSHOT"
)

// DefaultScreenshotPath is used when a SCREENSHOT action carries no value.
const DefaultScreenshotPath = "screenshot.png"

// Kinds lists the accepted kinds in prompt order.
var Kinds = []Kind{Click, Type, Navigate, Screenshot}

// ErrUnrecognized marks an action that is not one of Kinds or lacks a
// required field.
var ErrUnrecognized = errors.New("unrecognized action")

// Action is one browser operation. Kind is kept verbatim from the model so
// unknown kinds survive until execution reports them.
type Action struct {
	Kind     Kind   `json:"action"`
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

// MarshalJSON writes empty fields as null, matching the wire schema.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Action   Kind    `json:"action"`
		Selector *string `json:"selector"`
		Value    *string `json:"value"`
	}{a.Kind, nullable(a.Selector), nullable(a.Value)})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FromMap builds an Action from a decoded JSON object. Non-string field
// values are ignored rather than rejected.
func FromMap(input map[string]any) Action {
	return Action{
		Kind:     Kind(strings.TrimSpace(optionalString(input, "action"))),
		Selector: strings.TrimSpace(optionalString(input, "selector")),
		Value:    optionalString(input, "value"),
	}
}

// Validate checks the shape required by the action's kind.
func (a Action) Validate() error {
	switch a.Kind {
	case Click:
		return requireField(a, "selector", a.Selector)
	case Type:
		if err := requireField(a, "selector", a.Selector); err != nil {
			return err
		}
		return requireField(a, "value", a.Value)
	case Navigate:
		return requireField(a, "value", a.Value)
	case Screenshot:
		return nil
	default:
		return fmt.Errorf("%w: kind %q", ErrUnrecognized, a.Kind)
	}
}

func requireField(a Action, name, val string) error {
	if strings.TrimSpace(val) == "" {
		return fmt.Errorf("%w: %s requires %s", ErrUnrecognized, a.Kind, name)
	}
	return nil
}

// ScreenshotPath returns the capture target for a SCREENSHOT action.
func (a Action) ScreenshotPath() string {
	if strings.TrimSpace(a.Value) == "" {
		return DefaultScreenshotPath
	}
	return a.Value
}

// Operation renders the concrete driver call this action performs.
func (a Action) Operation() string {
	switch a.Kind {
	case Navigate:
		return fmt.Sprintf("page.Goto(%q)", a.Value)
	case Click:
		return fmt.Sprintf("page.Click(%q)", a.Selector)
	case Type:
		return fmt.Sprintf("page.Fill(%q, %q)", a.Selector, a.Value)
	case Screenshot:
		return fmt.Sprintf("page.Screenshot(path=%q)", a.ScreenshotPath())
	default:
		return fmt.Sprintf("unknown(%q)", a.Kind)
	}
}

// Describe renders the planned-action line shown before execution.
func (a Action) Describe(index int) string {
	return fmt.Sprintf("%d. %s - Selector: %s, Value: %s", index, a.Kind, orNone(a.Selector), orNone(a.Value))
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func optionalString(input map[string]any, key string) string {
	val, ok := input[key]
	if !ok {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
