package lifecycle

import (
	"sync"

	"github.com/julianstephens/moldtrack/internal/models"
)

// MachineGuard reports whether a machine is held by an in-progress operation other than
// excludingOperationID. A nil conflict means the machine is free.
type MachineGuard interface {
	IsMachineBusy(machine, excludingOperationID string) (*models.MachineConflict, error)
}

// GraphGuard checks exclusivity against an in-memory job graph.
type GraphGuard struct {
	Jobs []models.Job
}

func (g GraphGuard) IsMachineBusy(machine, excludingOperationID string) (*models.MachineConflict, error) {
	for _, job := range g.Jobs {
		for _, task := range job.Tasks {
			for _, op := range task.Operations {
				if op.ID == excludingOperationID || op.MachineName != machine || !op.HoldsMachine() {
					continue
				}
				return &models.MachineConflict{
					Machine:     machine,
					OperationID: op.ID,
					JobID:       job.ID,
					JobName:     job.Name,
					TaskID:      task.ID,
					TaskName:    task.Name,
				}, nil
			}
		}
	}
	return nil, nil
}

// MachineLocks serializes assignments per machine within a process. Storage row locks
// extend the same exclusion across processes.
type MachineLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMachineLocks() *MachineLocks {
	return &MachineLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for machine and returns its release function.
func (l *MachineLocks) Lock(machine string) func() {
	l.mu.Lock()
	m, ok := l.locks[machine]
	if !ok {
		m = &sync.Mutex{}
		l.locks[machine] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
