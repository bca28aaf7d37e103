// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds plumbing shared by the pak command-line tools:
// the interactive bake progress display and the configuration error
// printer.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pak-forge/pak/lib/writer"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	keyStyle   = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// bakeFinished signals the end of the bake run to the model.
type bakeFinished struct{ err error }

// ProgressModel is the bubbletea model for the interactive bake view:
// an overall progress bar plus the most recent per-asset lines.
type ProgressModel struct {
	events <-chan writer.Event

	bar      progress.Model
	total    int
	done     int
	failed   int
	current  string
	recent   []string
	finished bool
	err      error
}

// NewProgressModel builds the bake progress model over a channel of
// writer events. The caller closes the channel when the bake ends;
// the model then finishes and the display exits.
func NewProgressModel(events <-chan writer.Event) *ProgressModel {
	return &ProgressModel{
		events: events,
		bar:    progress.New(progress.WithDefaultGradient()),
	}
}

func (m *ProgressModel) nextEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return bakeFinished{}
		}
		return event
	}
}

func (m *ProgressModel) Init() tea.Cmd {
	return m.nextEvent()
}

func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = minInt(msg.Width-4, 60)
		return m, nil

	case writer.Event:
		m.total = msg.Total
		if msg.Done {
			m.done++
			line := fmt.Sprintf("%s %s", kindStyle.Render(msg.Kind.String()), keyStyle.Render(string(msg.Key)))
			if msg.Err != nil {
				m.failed++
				line = errStyle.Render("✗ ") + line
			} else {
				line = doneStyle.Render("✓ ") + line
			}
			m.recent = append(m.recent, line)
			if len(m.recent) > 8 {
				m.recent = m.recent[1:]
			}
		} else {
			m.current = string(msg.Key)
		}
		return m, m.nextEvent()

	case bakeFinished:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("pak bake"))
	b.WriteString("\n\n")
	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.done) / float64(m.total)
	}
	b.WriteString(m.bar.ViewAs(ratio))
	fmt.Fprintf(&b, "  %d/%d", m.done, m.total)
	if m.failed > 0 {
		b.WriteString(errStyle.Render(fmt.Sprintf("  %d failed", m.failed)))
	}
	b.WriteString("\n\n")
	for _, line := range m.recent {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if !m.finished && m.current != "" {
		fmt.Fprintf(&b, "  baking %s\n", keyStyle.Render(m.current))
	}
	return b.String()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// RunProgress drives the interactive progress display until the event
// channel closes.
func RunProgress(events <-chan writer.Event) error {
	program := tea.NewProgram(NewProgressModel(events))
	_, err := program.Run()
	return err
}
