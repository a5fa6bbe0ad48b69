package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/moldtrack/internal/events"
	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/tui/components/joblist"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// Tabs, status line and help take six rows.
		m.jobs.SetSize(msg.Width-4, msg.Height-8)
		m.ops.SetSize(msg.Width-4, msg.Height-9)
		return m, nil

	case snapshotMsg:
		return m, m.applySnapshot(Snapshot(msg))

	case errMsg:
		m.err = msg.err
		logger.Warn("Board refresh failed", "error", msg.err)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadCmd(), m.tickCmd())

	case eventMsg:
		e := events.Event(msg)
		m.lastEvent = &e
		return m, tea.Batch(m.loadCmd(), m.waitForEvent())

	case joblist.OpenJobMsg:
		if job, ok := m.findJob(msg.ID); ok {
			m.ops.SetJob(job)
			m.state = StateOperations
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.loadCmd()
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.tab() + 1) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.tab() - 1 + SessionState(len(tabTitles))) % SessionState(len(tabTitles))
			return m, nil
		case m.state == StateOperations && key.Matches(msg, m.keys.Back):
			m.state = StateJobs
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateJobs:
		m.jobs, cmd = m.jobs.Update(msg)
	case StateOperations:
		m.ops, cmd = m.ops.Update(msg)
	}
	return m, cmd
}

// tab maps the operations drill-down onto the Jobs tab.
func (m Model) tab() SessionState {
	if m.state == StateOperations {
		return StateJobs
	}
	return m.state
}
