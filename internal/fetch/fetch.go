package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout = 60 * time.Second
	maxBodySize    = 20 << 20
	userAgent      = "Mozilla/5.0 (compatible; web-agent-ai/1.0)"
)

// Error reports a failed page retrieval.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the retrieval ran out of time.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}

// Client retrieves page HTML over HTTP.
type Client struct {
	http   *http.Client
	logger zerolog.Logger
}

func New(timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// HTML downloads url and returns its body decoded to UTF-8. Non-2xx
// responses are errors.
func (c *Client) HTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	c.logger.Info().Str("url", url).Msg("fetching html")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &Error{URL: url, Status: resp.StatusCode}
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &Error{URL: url, Err: fmt.Errorf("decode charset: %w", err)}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", &Error{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Info().Str("url", url).Int("bytes", len(data)).Msg("html fetched")
	return string(data), nil
}
