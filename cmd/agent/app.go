package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/polzovatel/web-agent-ai/internal/agent"
	"github.com/polzovatel/web-agent-ai/internal/browser"
	"github.com/polzovatel/web-agent-ai/internal/config"
	"github.com/polzovatel/web-agent-ai/internal/console"
	"github.com/polzovatel/web-agent-ai/internal/executor"
	"github.com/polzovatel/web-agent-ai/internal/fetch"
	"github.com/polzovatel/web-agent-ai/internal/llm"
	"github.com/polzovatel/web-agent-ai/internal/logging"
	"github.com/polzovatel/web-agent-ai/internal/progress"
)

type app struct {
	cfg    *config.Config
	model  llm.Model
	runner *agent.Runner
	logger zerolog.Logger
}

func newApp(v *viper.Viper) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.Log, nil)

	model, err := llm.ParseModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	claude, err := llm.NewAnthropic(llm.AnthropicConfig{
		APIKey:    cfg.Secrets.AnthropicKey,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
	}, logging.Component("anthropic"))
	if err != nil {
		return nil, fmt.Errorf("llm init: %w", err)
	}
	gpt, err := llm.NewAzureOpenAI(llm.AzureConfig{
		APIKey:     cfg.Secrets.AzureKey,
		BaseURL:    cfg.Secrets.AzureBase,
		APIVersion: cfg.Secrets.AzureAPIVersion,
		Deployment: cfg.Secrets.AzureDeployment,
	}, logging.Component("azure"), nil)
	if err != nil {
		return nil, fmt.Errorf("llm init: %w", err)
	}
	gen := llm.NewGenerator(map[llm.Model]llm.Backend{
		llm.ModelClaude: claude,
		llm.ModelGPT4o:  gpt,
	}, logging.Component("llm"))

	launcher := browser.NewLauncher(browser.Options{
		Headless: cfg.Browser.Headless,
		Install:  cfg.Browser.Install,
		Timeout:  cfg.Browser.Timeout,
	}, logging.Component("browser"))
	engine := executor.New(launcher, executor.Config{
		Timeout:        cfg.Browser.Timeout,
		NavigateSettle: cfg.Browser.NavigateSettle,
		ActionSettle:   cfg.Browser.ActionSettle,
		ScreenshotPath: cfg.Browser.Screenshot,
	}, logging.Component("executor"))

	runner := agent.NewRunner(agent.Config{
		Chunking:     cfg.Chunking.Enabled,
		MaxChunkSize: cfg.Chunking.MaxSize,
	}, gen, fetch.New(cfg.Fetch.Timeout, logging.Component("fetch")), engine, logging.Component("agent"))

	return &app{cfg: cfg, model: model, runner: runner, logger: logger}, nil
}

func (a *app) close() {
	if err := logging.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close log file")
	}
}

// run executes the pipeline on a worker goroutine while the view polls
// the progress channel.
func (a *app) run(ctx context.Context, instruction string, out io.Writer, saveLog bool) error {
	ch := progress.New(a.cfg.Progress.Capacity)
	view := console.NewView(out)

	var runErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer ch.Close()
		runErr = a.runner.Run(gctx, a.model, instruction, ch)
		return nil
	})
	g.Go(func() error {
		return ch.Poll(ctx, a.cfg.Progress.PollInterval, view.Handle)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if saveLog {
		path := a.cfg.ActionLog.Path
		switch err := console.SaveLog(path, view.Entries()); {
		case errors.Is(err, console.ErrNoEntries):
			a.logger.Warn().Msg("no actions to save")
		case err != nil:
			a.logger.Error().Err(err).Str("path", path).Msg("save action log")
		default:
			a.logger.Info().Str("path", path).Msg("action log saved")
		}
	}
	return runErr
}

func (a *app) plan(ctx context.Context, instruction string, out io.Writer) error {
	plan, err := a.runner.Plan(ctx, a.model, instruction)
	if err != nil {
		return err
	}
	view := console.NewView(out)
	view.Handle(progress.Message{Kind: progress.KindActions, Actions: plan.Actions})
	if plan.Raw != "" {
		fmt.Fprintln(out, "Raw response:")
		fmt.Fprintln(out, plan.Raw)
	}
	return nil
}
