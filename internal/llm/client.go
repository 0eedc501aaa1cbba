package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polzovatel/web-agent-ai/internal/action"
	"github.com/polzovatel/web-agent-ai/internal/snapshot"
)

// Model identifies a generation backend.
type Model string

const (
	ModelClaude Model = "claude"
	ModelGPT4o  Model = "gpt4o"
)

// Models lists the supported identifiers.
var Models = []Model{ModelClaude, ModelGPT4o}

var (
	ErrUnsupportedModel = errors.New("unsupported model")
	ErrEmptyResponse    = errors.New("empty response")
)

// Backend is a text-generation service.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Result is the outcome of one generation call. Raw holds the sanitized
// model text and is only set on success.
type Result struct {
	Actions []action.Action
	Raw     string
}

// Generator turns an instruction plus page elements into actions using the
// backend selected by model identifier.
type Generator struct {
	backends map[Model]Backend
	logger   zerolog.Logger
}

func NewGenerator(backends map[Model]Backend, logger zerolog.Logger) *Generator {
	copied := make(map[Model]Backend, len(backends))
	for m, b := range backends {
		copied[m] = b
	}
	return &Generator{backends: copied, logger: logger}
}

// ParseModel maps a user-supplied identifier onto a supported Model.
func ParseModel(s string) (Model, error) {
	m := Model(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Models {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q (use 'claude' or 'gpt4o')", ErrUnsupportedModel, s)
}

// GenerateActions asks the model's backend for actions. On any failure it
// returns an empty Result; the error describes what went wrong.
func (g *Generator) GenerateActions(ctx context.Context, model Model, instruction string, elems []snapshot.Element) (Result, error) {
	backend, ok := g.backends[model]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnsupportedModel, model)
		g.logger.Error().Err(err).Msg("no backend for model")
		return Result{}, err
	}

	prompt, err := BuildPrompt(instruction, elems)
	if err != nil {
		return Result{}, fmt.Errorf("build prompt: %w", err)
	}

	g.logger.Debug().
		Str("backend", backend.Name()).
		Int("elements", len(elems)).
		Int("prompt_size", len(prompt)).
		Msg("generation request")

	text, err := backend.Complete(ctx, Request{
		System: systemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		g.logger.Error().Err(err).Str("backend", backend.Name()).Msg("generation failed")
		return Result{}, fmt.Errorf("%s: %w", backend.Name(), err)
	}
	if strings.TrimSpace(text) == "" {
		g.logger.Error().Str("backend", backend.Name()).Msg("generation returned empty text")
		return Result{}, fmt.Errorf("%s: %w", backend.Name(), ErrEmptyResponse)
	}

	g.logger.Debug().Str("raw", text).Msg("generation raw text")

	actions, sanitized, err := ParseActions(text)
	if err != nil {
		g.logger.Error().Err(err).Str("raw", text).Msg("generation output rejected")
		return Result{}, err
	}

	g.logger.Debug().Int("actions", len(actions)).Msg("generation parsed")
	return Result{Actions: actions, Raw: sanitized}, nil
}
