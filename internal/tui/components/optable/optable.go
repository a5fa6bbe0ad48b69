package optable

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/moldtrack/internal/models"
)

var columns = []table.Column{
	{Title: "#", Width: 3},
	{Title: "Task", Width: 18},
	{Title: "Status", Width: 26},
	{Title: "Type", Width: 12},
	{Title: "Op status", Width: 26},
	{Title: "%", Width: 4},
	{Title: "Machine", Width: 10},
	{Title: "Operator", Width: 12},
	{Title: "Machinist", Width: 12},
	{Title: "Rework", Width: 6},
}

// Model lists every operation of one job, one row per operation, grouped by task.
type Model struct {
	table table.Model
	job   models.Job
}

func New(width, height int) Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
		table.WithWidth(width),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(s)
	return Model{table: t}
}

// Rows builds the table rows for job. Tasks without operations still get a row.
func Rows(job models.Job) []table.Row {
	var rows []table.Row
	for _, task := range job.Tasks {
		name := task.Name
		if task.IsCritical {
			name = "! " + name
		}
		taskStatus := fmt.Sprintf("%s %d%%", task.Status(), task.Progress())
		if len(task.Operations) == 0 {
			rows = append(rows, table.Row{fmt.Sprint(task.Seq), name, taskStatus, "-", "-", "-", "-", "-", "-", "-"})
			continue
		}
		for _, op := range task.Operations {
			rows = append(rows, table.Row{
				fmt.Sprint(task.Seq),
				name,
				taskStatus,
				string(op.Type),
				string(op.Status),
				fmt.Sprint(op.ProgressPercentage),
				dash(op.MachineName),
				dash(op.AssignedOperator),
				dash(op.MachineOperatorName),
				fmt.Sprint(len(op.ReworkHistory)),
			})
		}
	}
	return rows
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (m *Model) SetJob(job models.Job) {
	m.job = job
	m.table.SetRows(Rows(job))
}

func (m Model) Job() models.Job {
	return m.job
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.table.View()
}

func (m *Model) SetSize(width, height int) {
	m.table.SetWidth(width)
	m.table.SetHeight(height)
}
