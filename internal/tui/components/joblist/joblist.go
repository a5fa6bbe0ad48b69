package joblist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/moldtrack/internal/constants"
	"github.com/julianstephens/moldtrack/internal/models"
)

// OpenJobMsg asks the board to show the operations of a job.
type OpenJobMsg struct {
	ID string
}

type Item struct {
	Job models.Job
}

func (i Item) Title() string {
	title := i.Job.Name
	if i.Job.Customer != "" {
		title += " · " + i.Job.Customer
	}
	return title
}

func (i Item) Description() string {
	parts := []string{
		string(i.Job.Status),
		fmt.Sprintf("%d%%", i.Job.Progress()),
		fmt.Sprintf("%d tasks", len(i.Job.Tasks)),
		fmt.Sprintf("priority %d", i.Job.Priority),
	}
	if i.Job.Deadline != nil {
		parts = append(parts, "due "+i.Job.Deadline.Format(constants.DateFormat))
	}
	return strings.Join(parts, " | ")
}

func (i Item) FilterValue() string { return i.Job.Name + " " + i.Job.Customer }

type KeyMap struct {
	Open key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "operations"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(jobs []models.Job, width, height int) Model {
	l := list.New(items(jobs), list.NewDefaultDelegate(), width, height)
	l.Title = "Jobs"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Open}
	}
	return Model{list: l, keys: keys}
}

func items(jobs []models.Job) []list.Item {
	out := make([]list.Item, len(jobs))
	for i, j := range jobs {
		out[i] = Item{Job: j}
	}
	return out
}

// SetJobs replaces the items, keeping the cursor on the same index when possible.
func (m *Model) SetJobs(jobs []models.Job) tea.Cmd {
	return m.list.SetItems(items(jobs))
}

// Selected returns the highlighted job.
func (m Model) Selected() (models.Job, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i.Job, ok
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		if key.Matches(msg, m.keys.Open) {
			if job, ok := m.Selected(); ok {
				return m, func() tea.Msg { return OpenJobMsg{ID: job.ID} }
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No jobs yet.\n  Create one with 'moldtrack job add'."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
