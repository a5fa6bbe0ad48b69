package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/moldtrack/internal/models"
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 1)

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	dangerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	freeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// statusStyle colors an operation status.
func statusStyle(s models.OperationStatus) lipgloss.Style {
	switch s {
	case models.StatusInProgress:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	case models.StatusPaused:
		return warningStyle
	case models.StatusWaitingSupervisorReview:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("171"))
	case models.StatusCompleted:
		return freeStyle
	}
	return statusBarStyle
}
