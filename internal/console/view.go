// Package console is the terminal consumer of run progress.
package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/polzovatel/web-agent-ai/internal/executor"
	"github.com/polzovatel/web-agent-ai/internal/progress"
)

// ErrNoEntries is returned by SaveLog when there is nothing to write.
var ErrNoEntries = errors.New("no actions to save")

type styles struct {
	title lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	muted lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("203")),
		muted: r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// View prints progress messages as they arrive and remembers every
// reported step line.
type View struct {
	out   io.Writer
	st    styles
	mu    sync.Mutex
	lines []string
	ok    int
	fail  int
}

func NewView(out io.Writer) *View {
	return &View{out: out, st: newStyles(lipgloss.NewRenderer(out))}
}

// Handle renders one message.
func (v *View) Handle(m progress.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch m.Kind {
	case progress.KindActions:
		if len(m.Actions) == 0 {
			fmt.Fprintln(v.out, v.st.muted.Render("No actions to execute."))
			return
		}
		fmt.Fprintln(v.out, v.st.title.Render("Planned actions:"))
		for i, a := range m.Actions {
			fmt.Fprintln(v.out, a.Describe(i+1))
		}
		fmt.Fprintln(v.out)
	case progress.KindStep:
		line := m.Result.Line()
		v.lines = append(v.lines, line)
		if m.Result.Status == executor.StatusSucceeded {
			v.ok++
			fmt.Fprintln(v.out, v.st.ok.Render(line))
		} else {
			v.fail++
			fmt.Fprintln(v.out, v.st.fail.Render(line))
		}
	case progress.KindFailed:
		fmt.Fprintln(v.out, v.st.fail.Render("Failed to generate actions: "+errText(m.Err)))
	case progress.KindDone:
		if m.Err != nil {
			fmt.Fprintln(v.out, v.st.fail.Render("Run aborted: "+m.Err.Error()))
			return
		}
		fmt.Fprintln(v.out, v.st.title.Render(fmt.Sprintf("Done: %d succeeded, %d failed", v.ok, v.fail)))
	}
}

// Entries returns a copy of the reported step lines.
func (v *View) Entries() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.lines...)
}

// SaveLog writes lines to path, one per line, replacing the file.
func SaveLog(path string, lines []string) error {
	if len(lines) == 0 {
		return ErrNoEntries
	}
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("save action log: %w", err)
	}
	return nil
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
