// Package ui renders a terminal monitor for a running playback engine.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tphakala/pcmplay/internal/playback"
)

const boxWidth = 54

// SnapshotFunc returns the current engine diagnostics
type SnapshotFunc func() playback.Snapshot

// tickMsg triggers a snapshot poll
type tickMsg time.Time

// DoneMsg tells the monitor that playback finished
type DoneMsg struct {
	Err error
}

// Model is the monitor state
type Model struct {
	snapshot SnapshotFunc
	interval time.Duration
	title    string

	snap      playback.Snapshot
	started   time.Time
	elapsed   time.Duration
	showDebug bool
	done      bool
	doneErr   error
	quit      bool // user asked to quit

	width int
}

// NewModel creates a monitor polling snapshot every interval
func NewModel(title string, snapshot SnapshotFunc, interval time.Duration) Model {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return Model{
		snapshot: snapshot,
		interval: interval,
		title:    title,
		snap:     snapshot(),
		started:  time.Now(),
	}
}

// Init starts the poll loop
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.snap = m.snapshot()
		m.elapsed = time.Time(msg).Sub(m.started)
		if m.done {
			return m, nil
		}
		return m, m.tick()
	case DoneMsg:
		m.snap = m.snapshot()
		m.done = true
		m.doneErr = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quit = true
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}
	return m, nil
}

// Quit reports whether the user closed the monitor
func (m Model) Quit() bool { return m.quit }

// View renders the monitor
func (m Model) View() string {
	var b strings.Builder
	s := m.snap

	b.WriteString("┌─ pcmplay " + strings.Repeat("─", boxWidth-10) + "┐\n")
	line(&b, "File:    %s", truncate(m.title, boxWidth-11))
	line(&b, "Engine:  %s (%s)", truncate(s.ID, 36), s.Backend)
	line(&b, "State:   %s%s", s.State, haltedSuffix(s.Halted))
	line(&b, "Format:  %d Hz, %s, %d frames/buffer", s.SampleRate, channelName(s.Channels), s.FramesPerBuffer)
	line(&b, "Policy:  %s", s.Policy)
	b.WriteString("├" + strings.Repeat("─", boxWidth) + "┤\n")
	line(&b, "Pool:    [%s] %d/%d", renderBar(s.ReadyCount, s.PoolSize, 20), s.ReadyCount, s.PoolSize)
	line(&b, "Underruns: %-8d Overruns: %d", s.Underruns, s.Overruns)
	line(&b, "Driver:  underflow %d  overflow %d  errors %d", s.DriverUnderflows, s.DriverOverflows, s.DriverErrors)
	line(&b, "Elapsed: %s", m.elapsed.Truncate(time.Second))

	if m.showDebug {
		b.WriteString("├" + strings.Repeat("─", boxWidth) + "┤\n")
		line(&b, "Slots:   read %d  write %d", s.ReadSlot, s.WriteSlot)
		line(&b, "Callbacks: %d  faults %d  mismatches %d", s.Callbacks, s.CallbackFaults, s.FormatMismatches)
		line(&b, "Pre-roll starts: %d", s.PrerollStarts)
	}

	if m.done {
		status := "Playback finished"
		if m.doneErr != nil {
			status = "Playback failed: " + m.doneErr.Error()
		}
		line(&b, "%s", truncate(status, boxWidth-2))
	}

	line(&b, "d:Debug  q:Quit")
	b.WriteString("└" + strings.Repeat("─", boxWidth) + "┘\n")
	return b.String()
}

// line writes one padded row of the box
func line(b *strings.Builder, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	pad := boxWidth - 2 - len([]rune(text))
	if pad < 0 {
		pad = 0
	}
	b.WriteString("│ " + text + strings.Repeat(" ", pad) + " │\n")
}

func haltedSuffix(halted bool) string {
	if halted {
		return " (halted by driver)"
	}
	return ""
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

// renderBar draws value out of limit as a bar of width cells
func renderBar(value, limit, width int) string {
	filled := 0
	if limit > 0 {
		filled = min(width, max(0, value*width/limit))
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
