package ui

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tphakala/pcmplay/internal/errors"
)

// ErrQuit is returned by Run when the user closes the monitor
var ErrQuit = errors.New(errors.NewStd("monitor closed by user")).
	Component("ui").
	Category(errors.CategoryCancellation).
	Build()

// Monitor runs the terminal UI for one engine
type Monitor struct {
	program *tea.Program
}

// Options customise the terminal the monitor draws on
type Options struct {
	Input     io.Reader // nil uses stdin
	Output    io.Writer // nil uses stdout
	Interval  time.Duration
	AltScreen bool
}

// NewMonitor creates a monitor bound to ctx; cancelling ctx closes it
func NewMonitor(ctx context.Context, title string, snapshot SnapshotFunc, opts Options) *Monitor {
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	return &Monitor{program: tea.NewProgram(NewModel(title, snapshot, opts.Interval), progOpts...)}
}

// Done tells the monitor playback finished; it renders a final frame and exits
func (m *Monitor) Done(err error) {
	m.program.Send(DoneMsg{Err: err})
}

// Run blocks until playback is done, the user quits or the context ends.
// A user quit returns ErrQuit; a cancelled context returns nil.
func (m *Monitor) Run() error {
	final, err := m.program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return errors.New(err).
			Component("ui").
			Category(errors.CategorySystem).
			Context("operation", "run_monitor").
			Build()
	}
	if model, ok := final.(Model); ok && model.Quit() {
		return ErrQuit
	}
	return nil
}
