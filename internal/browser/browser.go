package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

const defaultTimeout = 60 * time.Second

// ErrTimeout marks a browser operation that did not finish in time.
var ErrTimeout = errors.New("browser timeout")

// Controller exposes the page primitives the executor drives.
type Controller interface {
	// Navigate opens url and waits for network quiescence.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, text string, timeout time.Duration) error
	Screenshot(ctx context.Context, path string) error
	Close(ctx context.Context) error
}

// Opener starts a browser page scoped to one run.
type Opener interface {
	Open(ctx context.Context) (Controller, error)
}

type Options struct {
	Headless bool
	// Install downloads the driver and chromium before the first launch.
	Install bool
	Timeout time.Duration
}

// Launcher owns playwright lifecycle. Each Open starts a fresh driver and
// browser that the returned Controller releases on Close.
type Launcher struct {
	opts   Options
	logger zerolog.Logger
}

func NewLauncher(opts Options, logger zerolog.Logger) *Launcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Launcher{opts: opts, logger: logger}
}

func (l *Launcher) Open(ctx context.Context) (Controller, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.ensureDeps(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(l.opts.Timeout.Milliseconds()))

	l.logger.Info().Bool("headless", l.opts.Headless).Msg("browser launched")
	return &controller{pw: pw, browser: browser, page: page, logger: l.logger}, nil
}

func (l *Launcher) ensureDeps() error {
	if !l.opts.Install {
		return nil
	}
	l.logger.Info().Msg("installing playwright browsers")
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return fmt.Errorf("install playwright: %w", err)
	}
	return nil
}

type controller struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  zerolog.Logger
}

func (c *controller) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ms := millis(timeout)
	if _, err := c.page.Goto(url, playwright.PageGotoOptions{Timeout: ms}); err != nil {
		return wrap(err)
	}
	return wrap(c.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: ms,
	}))
}

func (c *controller) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: millis(timeout),
	})
	return wrap(err)
}

func (c *controller) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(c.page.Click(selector, playwright.PageClickOptions{Timeout: millis(timeout)}))
}

func (c *controller) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(c.page.Fill(selector, text, playwright.PageFillOptions{Timeout: millis(timeout)}))
}

func (c *controller) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(path)})
	return wrap(err)
}

// Close releases page, browser and driver. It is safe to call once per Open.
func (c *controller) Close(ctx context.Context) error {
	_ = ctx
	var errs []error
	if c.page != nil {
		errs = append(errs, c.page.Close())
	}
	if c.browser != nil {
		errs = append(errs, c.browser.Close())
	}
	if c.pw != nil {
		errs = append(errs, c.pw.Stop())
	}
	c.logger.Info().Msg("browser closed")
	return errors.Join(errs...)
}

func millis(d time.Duration) *float64 {
	if d <= 0 {
		d = defaultTimeout
	}
	return playwright.Float(float64(d.Milliseconds()))
}

// wrap prefixes driver errors and tags timeouts with ErrTimeout.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) {
		return fmt.Errorf("playwright: %w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("playwright: %w", err)
}

// IsTimeout reports whether err is a driver or context timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, playwright.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
