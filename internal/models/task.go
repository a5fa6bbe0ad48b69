package models

import (
	"math"
	"strings"

	apperr "github.com/julianstephens/moldtrack/internal/errors"
)

// TaskStatus is derived from a task's operations and never stored.
type TaskStatus string

const (
	TaskWaiting                 TaskStatus = "WAITING"
	TaskInProgress              TaskStatus = "IN_PROGRESS"
	TaskPaused                  TaskStatus = "PAUSED"
	TaskWaitingSupervisorReview TaskStatus = "WAITING_SUPERVISOR_REVIEW"
	TaskCompleted               TaskStatus = "COMPLETED"
)

// Task is a sub-part of a job requiring one or more operations.
type Task struct {
	ID           string      `json:"id"`
	JobID        string      `json:"job_id"`
	Seq          int         `json:"seq"`
	Name         string      `json:"name"`
	IsCritical   bool        `json:"is_critical"`
	CriticalNote string      `json:"critical_note,omitempty"`
	Operations   []Operation `json:"operations"`
}

// Progress returns the rounded average progress of the task's operations.
func (t *Task) Progress() int {
	return DeriveTaskProgress(t.Operations)
}

// Status returns the derived status of the task.
func (t *Task) Status() TaskStatus {
	return DeriveTaskStatus(t.Operations)
}

// Operation returns the operation with the given id.
func (t *Task) Operation(id string) (*Operation, bool) {
	for i := range t.Operations {
		if t.Operations[i].ID == id {
			return &t.Operations[i], true
		}
	}
	return nil, false
}

// Validate checks the task's own invariants and those of its operations.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return apperr.Invalid("name", "task name cannot be empty")
	}
	if t.IsCritical && strings.TrimSpace(t.CriticalNote) == "" {
		return apperr.Invalid("critical_note", "a critical task must carry a note")
	}
	for i := range t.Operations {
		if err := t.Operations[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DeriveTaskProgress averages the progress of ops, rounded to a whole percentage.
func DeriveTaskProgress(ops []Operation) int {
	if len(ops) == 0 {
		return 0
	}
	total := 0
	for _, op := range ops {
		total += op.ProgressPercentage
	}
	return int(math.Round(float64(total) / float64(len(ops))))
}

// DeriveTaskStatus computes a task's status from its operations.
// Precedence: full progress, then IN_PROGRESS > PAUSED > WAITING_SUPERVISOR_REVIEW >
// all completed > waiting.
func DeriveTaskStatus(ops []Operation) TaskStatus {
	if len(ops) == 0 {
		return TaskWaiting
	}
	if DeriveTaskProgress(ops) == 100 {
		return TaskCompleted
	}

	var inProgress, paused, review bool
	allCompleted := true
	for _, op := range ops {
		switch op.Status {
		case StatusInProgress:
			inProgress = true
		case StatusPaused:
			paused = true
		case StatusWaitingSupervisorReview:
			review = true
		}
		if op.Status != StatusCompleted {
			allCompleted = false
		}
	}

	switch {
	case inProgress:
		return TaskInProgress
	case paused:
		return TaskPaused
	case review:
		return TaskWaitingSupervisorReview
	case allCompleted:
		return TaskCompleted
	default:
		return TaskWaiting
	}
}
