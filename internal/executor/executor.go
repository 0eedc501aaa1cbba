package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/web-agent-ai/internal/action"
	"github.com/polzovatel/web-agent-ai/internal/browser"
)

var (
	ErrStepTimeout = errors.New("step timed out")
	ErrStepFailed  = errors.New("step failed")
)

// NavigationError aborts a run whose initial page never settled.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("initial navigation to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// StepError describes why a single action failed.
type StepError struct {
	Step     int
	Kind     action.Kind
	Selector string
	Err      error
}

func (e *StepError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("step %d %s %q: %v", e.Step, e.Kind, e.Selector, e.Err)
	}
	return fmt.Sprintf("step %d %s: %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type Status string

const (
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Result reports the outcome of one attempted action.
type Result struct {
	Step      int
	Action    action.Action
	Status    Status
	Operation string
	Err       error
}

// ErrorInfo is the failure text, empty on success.
func (r Result) ErrorInfo() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Line renders the result the way the action log stores it.
func (r Result) Line() string {
	if r.Status == StatusSucceeded {
		return fmt.Sprintf("%d. %s: %s", r.Step, r.Status, r.Operation)
	}
	return fmt.Sprintf("%d. %s: %s", r.Step, r.Status, r.ErrorInfo())
}

type Config struct {
	Timeout        time.Duration
	NavigateSettle time.Duration
	ActionSettle   time.Duration
	// ScreenshotPath replaces the built-in default for SCREENSHOT actions
	// without a value.
	ScreenshotPath string
}

// DefaultConfig returns the stock timeouts and settle delays.
func DefaultConfig() Config {
	return Config{
		Timeout:        60 * time.Second,
		NavigateSettle: 2 * time.Second,
		ActionSettle:   time.Second,
		ScreenshotPath: action.DefaultScreenshotPath,
	}
}

// Engine drives a browser page through a list of actions, one at a time.
type Engine struct {
	opener browser.Opener
	cfg    Config
	logger zerolog.Logger
	sleep  func(context.Context, time.Duration) error
}

func New(opener browser.Opener, cfg Config, logger zerolog.Logger) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Engine{opener: opener, cfg: cfg, logger: logger, sleep: sleepCtx}
}

// Execute opens a page, optionally navigates to initialURL, then applies
// actions in order. onStep is called exactly once per action. Only opening
// the page and the initial navigation can fail the run; per-action failures
// are reported through onStep and execution continues.
func (e *Engine) Execute(ctx context.Context, actions []action.Action, initialURL string, onStep func(Result)) (err error) {
	ctrl, err := e.opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if cerr := ctrl.Close(context.WithoutCancel(ctx)); cerr != nil {
			e.logger.Warn().Err(cerr).Msg("browser close")
		}
	}()

	if initialURL != "" {
		e.logger.Info().Str("url", initialURL).Msg("initial navigation")
		if err := ctrl.Navigate(ctx, initialURL, e.cfg.Timeout); err != nil {
			e.logger.Error().Err(err).Str("url", initialURL).Msg("initial navigation failed")
			return &NavigationError{URL: initialURL, Err: err}
		}
	}

	for i, act := range actions {
		res := e.step(ctx, ctrl, i+1, act)
		if onStep != nil {
			onStep(res)
		}
	}
	e.logger.Info().Int("steps", len(actions)).Msg("run finished")
	return nil
}

func (e *Engine) step(ctx context.Context, ctrl browser.Controller, index int, act action.Action) Result {
	if act.Kind == action.Screenshot && act.Value == "" && e.cfg.ScreenshotPath != "" {
		act.Value = e.cfg.ScreenshotPath
	}
	res := Result{Step: index, Action: act, Operation: act.Operation()}
	log := e.logger.With().
		Int("step", index).
		Str("kind", string(act.Kind)).
		Str("selector", act.Selector).
		Logger()

	if err := act.Validate(); err != nil {
		log.Warn().Err(err).Msg("unrecognized action")
		res.Status = StatusFailed
		res.Err = &StepError{Step: index, Kind: act.Kind, Selector: act.Selector, Err: err}
		return res
	}

	if err := e.apply(ctx, ctrl, act); err != nil {
		cause := ErrStepFailed
		if browser.IsTimeout(err) {
			cause = ErrStepTimeout
			log.Error().Err(err).Msg("step timed out")
		} else {
			log.Error().Err(err).Msg("step failed")
		}
		res.Status = StatusFailed
		res.Err = &StepError{Step: index, Kind: act.Kind, Selector: act.Selector, Err: fmt.Errorf("%w: %w", cause, err)}
		return res
	}

	log.Info().Str("op", res.Operation).Msg("step done")
	res.Status = StatusSucceeded
	return res
}

func (e *Engine) apply(ctx context.Context, ctrl browser.Controller, act action.Action) error {
	timeout := e.cfg.Timeout
	switch act.Kind {
	case action.Navigate:
		if err := ctrl.Navigate(ctx, act.Value, timeout); err != nil {
			return err
		}
		e.settle(ctx, e.cfg.NavigateSettle)
		return nil
	case action.Click:
		if err := ctrl.WaitFor(ctx, act.Selector, timeout); err != nil {
			return err
		}
		if err := ctrl.Click(ctx, act.Selector, timeout); err != nil {
			return err
		}
		e.settle(ctx, e.cfg.ActionSettle)
		return nil
	case action.Type:
		if err := ctrl.WaitFor(ctx, act.Selector, timeout); err != nil {
			return err
		}
		if err := ctrl.Fill(ctx, act.Selector, act.Value, timeout); err != nil {
			return err
		}
		e.settle(ctx, e.cfg.ActionSettle)
		return nil
	case action.Screenshot:
		return ctrl.Screenshot(ctx, act.ScreenshotPath())
	default:
		return fmt.Errorf("%w: kind %q", action.ErrUnrecognized, act.Kind)
	}
}

// settle waits after a primitive that already succeeded. An interrupted
// wait does not undo the step; the next primitive sees the cancelled ctx.
func (e *Engine) settle(ctx context.Context, d time.Duration) {
	if err := e.sleep(ctx, d); err != nil {
		e.logger.Debug().Err(err).Dur("delay", d).Msg("settle interrupted")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
