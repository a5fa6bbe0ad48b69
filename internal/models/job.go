package models

import (
	"strings"
	"time"

	apperr "github.com/julianstephens/moldtrack/internal/errors"
)

// JobStatus is the lifecycle of a job, independent of its operations' states.
type JobStatus string

const (
	JobOpen         JobStatus = "OPEN"
	JobInProduction JobStatus = "IN_PRODUCTION"
	JobOnHold       JobStatus = "ON_HOLD"
	JobCompleted    JobStatus = "COMPLETED"
)

// ParseJobStatus accepts the status name case-insensitively.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	switch st {
	case JobOpen, JobInProduction, JobOnHold, JobCompleted:
		return st, nil
	}
	return "", apperr.Invalid("status", "unknown job status %q", s)
}

// JobEvaluation is the per-contributor summary recorded when a job is completed.
// The general comment lives only here and is never copied onto operations.
type JobEvaluation struct {
	OperatorName   string    `json:"operator_name"`
	GeneralScore   int       `json:"general_score"`
	GeneralComment string    `json:"general_comment,omitempty"`
	Date           time.Time `json:"date"`
}

// Job (a mold) is the aggregate root: a customer order made of tasks.
type Job struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Customer    string          `json:"customer"`
	Status      JobStatus       `json:"status"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	Priority    int             `json:"priority"`
	Tasks       []Task          `json:"tasks"`
	Evaluations []JobEvaluation `json:"evaluations,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Validate checks the job and everything beneath it.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return apperr.Invalid("name", "job name cannot be empty")
	}
	if _, err := ParseJobStatus(string(j.Status)); err != nil {
		return err
	}
	for i := range j.Tasks {
		if err := j.Tasks[i].Validate(); err != nil {
			return err
		}
	}
	for _, ev := range j.Evaluations {
		if !ValidRating(ev.GeneralScore) {
			return apperr.Invalid("general_score", "evaluation for %s is out of range", ev.OperatorName)
		}
	}
	return nil
}

// Progress averages the derived progress of all tasks.
func (j *Job) Progress() int {
	var ops []Operation
	for _, t := range j.Tasks {
		ops = append(ops, t.Operations...)
	}
	return DeriveTaskProgress(ops)
}

// Locate finds an operation anywhere in the job and returns it with its owning task.
func (j *Job) Locate(operationID string) (*Task, *Operation, bool) {
	for i := range j.Tasks {
		if op, ok := j.Tasks[i].Operation(operationID); ok {
			return &j.Tasks[i], op, true
		}
	}
	return nil, nil, false
}

// MachineConflict describes the operation currently holding a machine.
type MachineConflict struct {
	Machine     string
	OperationID string
	JobID       string
	JobName     string
	TaskID      string
	TaskName    string
}
