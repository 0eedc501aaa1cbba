// Package logging owns the process-wide zerolog setup.
package logging

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/polzovatel/web-agent-ai/internal/config"
)

var (
	global atomic.Pointer[zerolog.Logger]
	once   sync.Once
	closer io.Closer
)

// Setup installs the global logger on first call: a console writer on
// console (stderr when nil) teed with a rotating JSON file. Later calls
// return the logger built by the first one.
func Setup(cfg config.LogConfig, console io.Writer) zerolog.Logger {
	once.Do(func() {
		if console == nil {
			console = os.Stderr
		}
		level, err := zerolog.ParseLevel(cfg.Level)
		if err != nil || cfg.Level == "" {
			level = zerolog.InfoLevel
		}

		writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}}
		if cfg.File != "" {
			lj := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
			}
			closer = lj
			writers = append(writers, lj)
		}

		zerolog.TimeFieldFormat = time.RFC3339
		logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
			Level(level).
			With().Timestamp().
			Logger()
		log.Logger = logger
		global.Store(&logger)
	})
	return L()
}

// L returns the installed logger, or a no-op logger before Setup.
func L() zerolog.Logger {
	if l := global.Load(); l != nil {
		return *l
	}
	return zerolog.Nop()
}

// Component returns a child logger tagged with comp.
func Component(name string) zerolog.Logger {
	return L().With().Str("comp", name).Logger()
}

// Close flushes and closes the file sink, if any.
func Close() error {
	if closer == nil {
		return nil
	}
	return closer.Close()
}

// ResetForTest clears the global state. Tests only.
func ResetForTest() {
	_ = Close()
	closer = nil
	global.Store(nil)
	once = sync.Once{}
}
