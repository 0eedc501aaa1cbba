// Package agent wires the instruction pipeline together: fetch, extract,
// chunk, generate, execute.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polzovatel/web-agent-ai/internal/action"
	"github.com/polzovatel/web-agent-ai/internal/executor"
	"github.com/polzovatel/web-agent-ai/internal/llm"
	"github.com/polzovatel/web-agent-ai/internal/progress"
	"github.com/polzovatel/web-agent-ai/internal/snapshot"
)

// ErrNoActions means no generation call succeeded for the instruction.
var ErrNoActions = errors.New("no actions generated")

type Generator interface {
	GenerateActions(ctx context.Context, model llm.Model, instruction string, elems []snapshot.Element) (llm.Result, error)
}

type Fetcher interface {
	HTML(ctx context.Context, url string) (string, error)
}

type Executor interface {
	Execute(ctx context.Context, actions []action.Action, initialURL string, onStep func(executor.Result)) error
}

type Config struct {
	Chunking     bool
	MaxChunkSize int
}

// Plan is the merged output of every generation call for one task. Raw is
// only set when the plan came from a single call.
type Plan struct {
	RunID    string
	Task     Task
	Actions  []action.Action
	Raw      string
	Chunks   int
	Failures int
}

type Runner struct {
	cfg    Config
	gen    Generator
	fetch  Fetcher
	exec   Executor
	logger zerolog.Logger
}

func NewRunner(cfg Config, gen Generator, fetch Fetcher, exec Executor, logger zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, gen: gen, fetch: fetch, exec: exec, logger: logger}
}

// Plan turns instruction into actions without touching a browser. The
// returned Plan is usable even with an error; its Actions are then empty.
func (r *Runner) Plan(ctx context.Context, model llm.Model, instruction string) (Plan, error) {
	plan := Plan{RunID: uuid.NewString()}
	log := r.logger.With().Str("run", plan.RunID).Str("model", string(model)).Logger()

	task, err := ParseTask(instruction)
	if err != nil {
		return plan, err
	}
	plan.Task = task
	log.Info().Str("url", task.URL).Str("task", task.Text).Msg("planning")

	chunks := [][]snapshot.Element{nil}
	if task.URL != "" {
		src, err := r.fetch.HTML(ctx, task.URL)
		if err != nil {
			log.Error().Err(err).Str("url", task.URL).Msg("fetch failed")
			return plan, fmt.Errorf("fetch %s: %w", task.URL, err)
		}
		summary := snapshot.Extract(src, log)
		chunks = r.split(summary.Elements)
		log.Info().Int("chunks", len(chunks)).Msg("chunking done")
	}
	plan.Chunks = len(chunks)

	var lastErr error
	var raw string
	succeeded := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return plan, err
		}
		res, err := r.gen.GenerateActions(ctx, model, task.Text, chunk)
		if err != nil {
			plan.Failures++
			lastErr = err
			log.Warn().Err(err).Int("chunk", i+1).Int("of", len(chunks)).Msg("chunk produced no actions")
			continue
		}
		succeeded++
		raw = res.Raw
		plan.Actions = append(plan.Actions, res.Actions...)
		log.Debug().Int("chunk", i+1).Int("actions", len(res.Actions)).Msg("chunk planned")
	}

	if succeeded == 0 {
		return plan, fmt.Errorf("%w: %w", ErrNoActions, lastErr)
	}
	if len(chunks) == 1 {
		plan.Raw = raw
	}
	log.Info().Int("actions", len(plan.Actions)).Int("failed_chunks", plan.Failures).Msg("plan ready")
	return plan, nil
}

func (r *Runner) split(elems []snapshot.Element) [][]snapshot.Element {
	if len(elems) == 0 {
		return [][]snapshot.Element{nil}
	}
	if !r.cfg.Chunking {
		return [][]snapshot.Element{elems}
	}
	return snapshot.Chunk(elems, r.cfg.MaxChunkSize)
}

// Run plans instruction and executes the result, reporting every event on
// ch. The caller owns ch and closes it after Run returns.
func (r *Runner) Run(ctx context.Context, model llm.Model, instruction string, ch *progress.Channel) error {
	plan, err := r.Plan(ctx, model, instruction)
	log := r.logger.With().Str("run", plan.RunID).Logger()
	if err != nil {
		r.emit(log, ch, progress.Message{Kind: progress.KindFailed, Err: err})
		return err
	}

	// actions list, one message per step, done
	ch.Reserve(len(plan.Actions) + 2)
	r.emit(log, ch, progress.Message{Kind: progress.KindActions, Actions: plan.Actions})

	if len(plan.Actions) == 0 {
		log.Info().Msg("empty plan, nothing to execute")
		r.emit(log, ch, progress.Message{Kind: progress.KindDone})
		return nil
	}

	err = r.exec.Execute(ctx, plan.Actions, plan.Task.URL, func(res executor.Result) {
		r.emit(log, ch, progress.Message{Kind: progress.KindStep, Result: res})
	})
	if err != nil {
		log.Error().Err(err).Msg("run aborted")
	}
	r.emit(log, ch, progress.Message{Kind: progress.KindDone, Err: err})
	return err
}

func (r *Runner) emit(log zerolog.Logger, ch *progress.Channel, m progress.Message) {
	if err := ch.Send(m); err != nil {
		log.Warn().Err(err).Str("kind", m.Kind.String()).Msg("progress message dropped")
	}
}
