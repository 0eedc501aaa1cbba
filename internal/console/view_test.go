package console

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/web-agent-ai/internal/action"
	"github.com/polzovatel/web-agent-ai/internal/executor"
	"github.com/polzovatel/web-agent-ai/internal/progress"
)

func TestView_RendersRun(t *testing.T) {
	var out bytes.Buffer
	v := NewView(&out)

	v.Handle(progress.Message{Kind: progress.KindActions, Actions: []action.Action{
		{Kind: action.Navigate, Value: "https://example.com"},
		{Kind: action.Click, Selector: "#gone"},
	}})
	v.Handle(progress.Message{Kind: progress.KindStep, Result: executor.Result{
		Step: 1, Status: executor.StatusSucceeded, Operation: `page.Goto("https://example.com")`,
	}})
	v.Handle(progress.Message{Kind: progress.KindStep, Result: executor.Result{
		Step: 2, Status: executor.StatusFailed, Err: errors.New("step timed out"),
	}})
	v.Handle(progress.Message{Kind: progress.KindDone})

	text := out.String()
	assert.Contains(t, text, "Planned actions:")
	assert.Contains(t, text, "1. NAVIGATE - Selector: None, Value: https://example.com")
	assert.Contains(t, text, "2. CLICK - Selector: #gone, Value: None")
	assert.Contains(t, text, `1. SUCCEEDED: page.Goto("https://example.com")`)
	assert.Contains(t, text, "2. FAILED: step timed out")
	assert.Contains(t, text, "Done: 1 succeeded, 1 failed")

	assert.Equal(t, []string{
		`1. SUCCEEDED: page.Goto("https://example.com")`,
		"2. FAILED: step timed out",
	}, v.Entries())
}

func TestView_TerminalMessages(t *testing.T) {
	var out bytes.Buffer
	v := NewView(&out)

	v.Handle(progress.Message{Kind: progress.KindActions})
	v.Handle(progress.Message{Kind: progress.KindFailed, Err: errors.New("no actions generated")})
	v.Handle(progress.Message{Kind: progress.KindDone, Err: errors.New("initial navigation failed")})

	text := out.String()
	assert.Contains(t, text, "No actions to execute.")
	assert.Contains(t, text, "Failed to generate actions: no actions generated")
	assert.Contains(t, text, "Run aborted: initial navigation failed")
	assert.Empty(t, v.Entries())
}

func TestSaveLog_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions_log.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale\nstale\nstale\n"), 0o644))

	require.NoError(t, SaveLog(path, []string{"1. SUCCEEDED: page.Click(\"#a\")"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1. SUCCEEDED: page.Click(\"#a\")\n", string(data))
}

func TestSaveLog_NothingToWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions_log.txt")
	assert.ErrorIs(t, SaveLog(path, nil), ErrNoEntries)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
