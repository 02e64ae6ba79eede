// Package progress renders a live progress bar for the scan pipeline.
// Pipeline events arrive over a channel and are delivered to the
// program as messages, keeping the single-writer discipline: the
// pipeline owns its state, the UI only observes.
package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailsweep/internal/scan"
)

// Model is the bubbletea model for scan progress.
type Model struct {
	bar    progress.Model
	events <-chan scan.Event

	total     int
	done      int
	processed int
	skipped   int
	failed    int
	finished  bool
}

// New creates a progress model reading from the given event channel.
// The channel must be closed when the scan completes.
func New(events <-chan scan.Event) Model {
	return Model{
		bar:    progress.New(progress.WithDefaultGradient()),
		events: events,
	}
}

type eventMsg scan.Event

type doneMsg struct{}

func waitForEvent(events <-chan scan.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(e)
	}
}

// Init starts listening for pipeline events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// Update handles pipeline events, progress animation frames, and
// interrupt keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.total = msg.Total
		m.done = msg.Index
		switch {
		case msg.Skipped:
			m.skipped++
		case msg.Failed:
			m.failed++
		default:
			m.processed++
		}

		var barCmd tea.Cmd
		if m.total > 0 {
			barCmd = m.bar.SetPercent(float64(m.done) / float64(m.total))
		}
		return m, tea.Batch(waitForEvent(m.events), barCmd)

	case doneMsg:
		m.finished = true
		return m, tea.Quit

	case progress.FrameMsg:
		mdl, cmd := m.bar.Update(msg)
		if bar, ok := mdl.(progress.Model); ok {
			m.bar = bar
		}
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the bar and counters.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Scanning inbox: %d/%d messages", m.done, m.total))
	b.WriteString("\n")
	b.WriteString(m.bar.View())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("processed %d · skipped %d · failed %d",
		m.processed, m.skipped, m.failed))
	b.WriteString("\n")

	if !m.finished {
		b.WriteString("press q to hide the progress display\n")
	}

	return b.String()
}
