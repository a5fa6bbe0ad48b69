// Package tui is the read-only live board: jobs, their operations, machine occupancy and
// graph warnings. It refreshes on bus events and on a polling interval.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/moldtrack/internal/events"
	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/models"
	"github.com/julianstephens/moldtrack/internal/tui/components/joblist"
	"github.com/julianstephens/moldtrack/internal/tui/components/optable"
	"github.com/julianstephens/moldtrack/internal/validation"
)

type SessionState int

const (
	StateJobs SessionState = iota
	StateMachines
	StateWarnings
	StateOperations
)

var tabTitles = []string{"Jobs", "Machines", "Warnings"}

// Snapshot is everything the board renders.
type Snapshot struct {
	Jobs     []models.Job
	Machines []models.Machine
	People   []models.Personnel
	LoadedAt time.Time
}

// Loader reads a fresh snapshot from storage.
type Loader func(ctx context.Context) (Snapshot, error)

type Options struct {
	// Refresh is the polling interval; zero disables polling.
	Refresh time.Duration
	// Events, when set, triggers a reload on every published change.
	Events events.Subscriber
}

type (
	snapshotMsg Snapshot
	errMsg      struct{ err error }
	tickMsg     time.Time
	eventMsg    events.Event
)

type Model struct {
	load      Loader
	refresh   time.Duration
	updates   chan events.Event
	cancelSub func()

	state     SessionState
	keys      KeyMap
	help      help.Model
	jobs      joblist.Model
	ops       optable.Model
	snapshot  Snapshot
	conflicts []validation.Conflict
	lastEvent *events.Event
	err       error
	loaded    bool
	quitting  bool
	width     int
	height    int
}

func NewModel(load Loader, opts Options) Model {
	m := Model{
		load:    load,
		refresh: opts.Refresh,
		state:   StateJobs,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		jobs:    joblist.New(nil, 0, 0),
		ops:     optable.New(0, 10),
	}

	if opts.Events != nil {
		updates := make(chan events.Event, 16)
		cancel, err := opts.Events.Subscribe(func(e events.Event) {
			select {
			case updates <- e:
			default:
				// A reload is already pending.
			}
		})
		if err != nil {
			logger.Warn("Board falls back to polling", "error", err)
		} else {
			m.updates = updates
			m.cancelSub = cancel
		}
	}
	return m
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Refresh, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateJobs:
		keys = append(keys, m.keys.Enter)
	case StateOperations:
		keys = append(keys, m.keys.Back)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.tickCmd(), m.waitForEvent())
}

func (m Model) loadCmd() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		snap, err := load(ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) tickCmd() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitForEvent() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		e, ok := <-updates
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

// applySnapshot stores snap and re-derives every view of it.
func (m *Model) applySnapshot(snap Snapshot) tea.Cmd {
	m.snapshot = snap
	m.loaded = true
	m.err = nil

	// Empty registries skip reference checks.
	var machines []models.Machine
	var people []models.Personnel
	if len(snap.Machines) > 0 {
		machines = snap.Machines
	}
	if len(snap.People) > 0 {
		people = snap.People
	}
	m.conflicts = validation.New().ValidateJobs(snap.Jobs, machines, people).Conflicts

	if m.state == StateOperations {
		id := m.ops.Job().ID
		found := false
		for _, j := range snap.Jobs {
			if j.ID == id {
				m.ops.SetJob(j)
				found = true
				break
			}
		}
		if !found {
			m.state = StateJobs
		}
	}
	return m.jobs.SetJobs(snap.Jobs)
}

func (m Model) findJob(id string) (models.Job, bool) {
	for _, j := range m.snapshot.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return models.Job{}, false
}

func (m Model) close() {
	if m.cancelSub != nil {
		m.cancelSub()
	}
}
