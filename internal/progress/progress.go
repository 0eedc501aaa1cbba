// Package progress hands run events from the worker to a polling consumer.
package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/polzovatel/web-agent-ai/internal/action"
	"github.com/polzovatel/web-agent-ai/internal/executor"
)

const (
	DefaultCapacity     = 256
	DefaultPollInterval = 100 * time.Millisecond
)

var (
	ErrFull   = errors.New("progress channel full")
	ErrClosed = errors.New("progress channel closed")
)

type Kind int

const (
	// KindActions carries the full planned action list, once per run.
	KindActions Kind = iota
	// KindStep carries one step outcome.
	KindStep
	// KindFailed reports that planning produced no actions.
	KindFailed
	// KindDone closes a run; Err holds a fatal execution error if any.
	KindDone
)

func (k Kind) String() string {
	switch k {
	case KindActions:
		return "actions"
	case KindStep:
		return "step"
	case KindFailed:
		return "failed"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

type Message struct {
	Kind    Kind
	Actions []action.Action
	Result  executor.Result
	Err     error
}

// Channel is a bounded FIFO. Send never blocks; the consumer drains it on
// a fixed interval.
type Channel struct {
	mu     sync.RWMutex
	ch     chan Message
	closed bool
}

func New(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{ch: make(chan Message, capacity)}
}

// Send enqueues m or fails immediately with ErrFull or ErrClosed.
func (c *Channel) Send(m Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	if m.Kind == KindActions {
		m.Actions = append([]action.Action(nil), m.Actions...)
	}
	select {
	case c.ch <- m:
		return nil
	default:
		return ErrFull
	}
}

// Reserve grows the buffer so that at least n messages fit without a
// drain, keeping queued messages in order. It never shrinks.
func (c *Channel) Reserve(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || n <= cap(c.ch) {
		return
	}
	grown := make(chan Message, n)
	for len(c.ch) > 0 {
		grown <- <-c.ch
	}
	c.ch = grown
}

// Close stops further sends. Messages already queued stay receivable.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// Drain returns every queued message without blocking. The bool is false
// once the channel is closed and empty.
func (c *Channel) Drain() ([]Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Message
	for {
		select {
		case m, ok := <-c.ch:
			if !ok {
				return out, false
			}
			out = append(out, m)
		default:
			return out, true
		}
	}
}

// Poll drains the channel every interval and hands each message to handle
// in order. It returns nil after the channel is closed and emptied, or the
// context error.
func (c *Channel) Poll(ctx context.Context, interval time.Duration, handle func(Message)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		msgs, open := c.Drain()
		for _, m := range msgs {
			handle(m)
		}
		if !open {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
