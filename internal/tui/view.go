package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/moldtrack/internal/constants"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch {
	case !m.loaded && m.err == nil:
		content = docStyle.Render("Loading…")
	case m.state == StateJobs:
		content = docStyle.Render(m.jobs.View())
	case m.state == StateOperations:
		content = docStyle.Render(m.viewOperations())
	case m.state == StateMachines:
		content = docStyle.Render(m.viewMachines())
	case m.state == StateWarnings:
		content = docStyle.Render(m.viewWarnings())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range tabTitles {
		if i == int(StateWarnings) && len(m.conflicts) > 0 {
			title = fmt.Sprintf("%s (%d)", title, len(m.conflicts))
		}
		if m.tab() == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewOperations() string {
	job := m.ops.Job()
	header := titleStyle.Render(fmt.Sprintf("%s · %s · %d%%", job.Name, job.Status, job.Progress()))
	return lipgloss.JoinVertical(lipgloss.Left, header, "", m.ops.View())
}

func (m Model) viewMachines() string {
	if len(m.snapshot.Machines) == 0 {
		return "No machines registered."
	}

	guard := lifecycle.GraphGuard{Jobs: m.snapshot.Jobs}
	var b strings.Builder
	for _, machine := range m.snapshot.Machines {
		name := machine.Name
		if machine.Kind != "" {
			name += " (" + machine.Kind + ")"
		}
		conflict, _ := guard.IsMachineBusy(machine.Name, "")
		if conflict == nil {
			fmt.Fprintf(&b, "%-28s %s\n", name, freeStyle.Render("free"))
			continue
		}
		fmt.Fprintf(&b, "%-28s %s %s / %s (%s)\n", name, dangerStyle.Render("busy"),
			conflict.JobName, conflict.TaskName, conflict.OperationID)
	}
	return b.String()
}

func (m Model) viewWarnings() string {
	if len(m.conflicts) == 0 {
		return freeStyle.Render("No conflicts detected.")
	}
	var b strings.Builder
	for _, c := range m.conflicts {
		b.WriteString(warningStyle.Render("⚠ "+c.Description) + "\n")
	}
	return b.String()
}

func (m Model) viewStatus() string {
	var parts []string
	if m.loaded {
		parts = append(parts, "updated "+m.snapshot.LoadedAt.Local().Format(constants.DateTimeFormat))
	}
	if m.lastEvent != nil {
		e := m.lastEvent
		parts = append(parts, fmt.Sprintf("last: %s %s by %s", e.Type, e.OperationID, e.Actor))
	}
	if m.refresh > 0 {
		parts = append(parts, fmt.Sprintf("polling every %s", m.refresh))
	}
	if m.updates != nil {
		parts = append(parts, "live")
	}
	line := statusBarStyle.Render(strings.Join(parts, " · "))
	if m.err != nil {
		line = lipgloss.JoinVertical(lipgloss.Left, line, dangerStyle.Render("Error: "+m.err.Error()))
	}
	return line
}
