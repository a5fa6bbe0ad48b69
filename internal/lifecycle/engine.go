// Package lifecycle implements the operation state machine: the transitions an operation
// may take, who may take them, and what each one records.
//
//	NOT_STARTED -> IN_PROGRESS <-> PAUSED
//	IN_PROGRESS -> WAITING_SUPERVISOR_REVIEW -> COMPLETED
//	{IN_PROGRESS, PAUSED, WAITING_SUPERVISOR_REVIEW} -> NOT_STARTED (issue report)
//
// Every Engine method takes the operation by value and returns the updated copy, so a
// rejected call leaves the caller's operation untouched.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/moldtrack/internal/constants"
	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/models"
)

type AssignInput struct {
	Machine         string
	MachineOperator string
	DueDate         *time.Time
	// CriticalAck must be set when the owning task is critical.
	CriticalAck bool
}

type ProgressInput struct {
	Percentage int
}

// ProgressResult carries the updated operation. ReviewRequired is set when the reported
// progress reached 100; the operation is then unchanged and the caller must run
// ReviewMachineOperator to close the work.
type ProgressResult struct {
	Operation      models.Operation
	ReviewRequired bool
}

type PauseInput struct {
	// Progress, when set, is recorded as the progress at the time of the pause.
	Progress *int
}

type ReviewInput struct {
	Rating  int
	Comment string
}

type IssueInput struct {
	Reason      string
	Description string
}

// Engine applies transitions to operations.
type Engine struct {
	now    func() time.Time
	newID  func() string
	ledger Ledger
}

type Option func(*Engine)

// WithClock sets the time source used for every timestamp the engine writes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the generator for rework entry ids.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

func requireStatus(op models.Operation, action string, allowed ...models.OperationStatus) error {
	for _, s := range allowed {
		if op.Status == s {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return apperr.Invalid("status", "cannot %s an operation in %s (allowed: %s)",
		action, op.Status, strings.Join(names, ", "))
}

func validateRating(field string, rating int) error {
	if !models.ValidRating(rating) {
		return apperr.Invalid(field, "rating must be between %d and %d, got %d",
			constants.MinRating, constants.MaxRating, rating)
	}
	return nil
}

func validateProgress(p int) error {
	if !models.ValidProgress(p) {
		return apperr.Invalid("progress", "must be between %d and %d, got %d",
			constants.MinProgress, constants.MaxProgress, p)
	}
	return nil
}

// Assign starts or resumes an operation on a machine.
func (e *Engine) Assign(op models.Operation, task models.Task, actor Actor, in AssignInput, guard MachineGuard) (models.Operation, error) {
	if err := actor.Require(CapAssign); err != nil {
		return op, err
	}
	if err := requireStatus(op, "assign", models.StatusNotStarted, models.StatusPaused); err != nil {
		return op, err
	}

	machine := strings.TrimSpace(in.Machine)
	operator := strings.TrimSpace(in.MachineOperator)
	if machine == "" {
		return op, apperr.Invalid("machine", "a machine must be selected")
	}
	if operator == "" {
		return op, apperr.Invalid("machine_operator", "a machine operator must be selected")
	}
	if task.IsCritical && !in.CriticalAck {
		return op, &apperr.CriticalAckError{TaskName: task.Name, Note: task.CriticalNote}
	}

	if guard != nil {
		conflict, err := guard.IsMachineBusy(machine, op.ID)
		if err != nil {
			return op, fmt.Errorf("failed to check machine availability: %w", err)
		}
		if conflict != nil {
			return op, &apperr.ConflictError{
				Machine:     machine,
				OperationID: conflict.OperationID,
				JobName:     conflict.JobName,
				TaskName:    conflict.TaskName,
			}
		}
	}

	now := e.now()
	resuming := op.Status == models.StatusPaused && op.StartDate != nil

	op.Status = models.StatusInProgress
	op.AssignedOperator = actor.Name
	op.MachineName = machine
	op.MachineOperatorName = operator
	op.EstimatedDueDate = in.DueDate
	if !resuming {
		op.StartDate = &now
		op.FinishDate = nil
		op.DurationInHours = 0
	}
	return op, nil
}

// UpdateProgress records progress on an in-progress operation.
func (e *Engine) UpdateProgress(op models.Operation, actor Actor, in ProgressInput) (ProgressResult, error) {
	if err := actor.Require(CapProgress); err != nil {
		return ProgressResult{Operation: op}, err
	}
	if err := requireStatus(op, "update progress of", models.StatusInProgress); err != nil {
		return ProgressResult{Operation: op}, err
	}
	if err := validateProgress(in.Percentage); err != nil {
		return ProgressResult{Operation: op}, err
	}
	if in.Percentage == constants.MaxProgress {
		return ProgressResult{Operation: op, ReviewRequired: true}, nil
	}

	op.ProgressPercentage = in.Percentage
	return ProgressResult{Operation: op}, nil
}

// Pause suspends an in-progress operation. Machine and operator stay recorded, but a paused
// operation no longer holds the machine.
func (e *Engine) Pause(op models.Operation, actor Actor, in PauseInput) (models.Operation, error) {
	if err := actor.Require(CapPause); err != nil {
		return op, err
	}
	if err := requireStatus(op, "pause", models.StatusInProgress); err != nil {
		return op, err
	}
	if in.Progress != nil {
		if err := validateProgress(*in.Progress); err != nil {
			return op, err
		}
		if *in.Progress == constants.MaxProgress {
			return op, apperr.Invalid("progress", "finished work must go through machine operator review, not pause")
		}
		op.ProgressPercentage = *in.Progress
	}

	op.Status = models.StatusPaused
	return op, nil
}

// ReviewMachineOperator closes the physical work: the programming operator scores the
// machine operator and the operation waits for the supervisor.
func (e *Engine) ReviewMachineOperator(op models.Operation, actor Actor, in ReviewInput) (models.Operation, error) {
	if err := actor.Require(CapReviewMachineOperator); err != nil {
		return op, err
	}
	if err := requireStatus(op, "review", models.StatusInProgress); err != nil {
		return op, err
	}
	if err := validateRating("machine_operator_rating", in.Rating); err != nil {
		return op, err
	}

	now := e.now()
	rating := in.Rating
	op.ProgressPercentage = constants.MaxProgress
	op.FinishDate = &now
	if op.StartDate != nil {
		op.DurationInHours = models.ElapsedHours(*op.StartDate, now)
	}
	op.MachineOperatorRating = &rating
	op.MachineOperatorComment = strings.TrimSpace(in.Comment)
	op.MachineOperatorReviewDate = &now
	op.Status = models.StatusWaitingSupervisorReview
	return op, nil
}

// ReviewSupervisor gives the final approval. COMPLETED is terminal.
func (e *Engine) ReviewSupervisor(op models.Operation, actor Actor, in ReviewInput) (models.Operation, error) {
	if err := actor.Require(CapReviewSupervisor); err != nil {
		return op, err
	}
	if err := requireStatus(op, "approve", models.StatusWaitingSupervisorReview); err != nil {
		return op, err
	}
	if err := validateRating("supervisor_rating", in.Rating); err != nil {
		return op, err
	}

	now := e.now()
	rating := in.Rating
	op.SupervisorRating = &rating
	op.SupervisorComment = strings.TrimSpace(in.Comment)
	op.SupervisorReviewDate = &now
	op.Status = models.StatusCompleted
	return op, nil
}

// ReportIssue sends the operation back to NOT_STARTED and records a rework entry holding
// the progress it had before the reset. Machine and operator assignments are kept.
func (e *Engine) ReportIssue(op models.Operation, actor Actor, in IssueInput) (models.Operation, models.Rework, error) {
	if err := actor.Require(CapReportIssue); err != nil {
		return op, models.Rework{}, err
	}
	if err := requireStatus(op, "report an issue on", models.StatusInProgress, models.StatusPaused, models.StatusWaitingSupervisorReview); err != nil {
		return op, models.Rework{}, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return op, models.Rework{}, apperr.Invalid("reason", "a reason is required")
	}

	entry := models.Rework{
		ID:               e.newID(),
		Date:             e.now(),
		Reason:           reason,
		Description:      strings.TrimSpace(in.Description),
		ReportedBy:       actor.Name,
		PreviousProgress: op.ProgressPercentage,
		OpType:           op.Type,
	}

	op = e.ledger.Append(op, entry)
	op.ProgressPercentage = 0
	op.Status = models.StatusNotStarted
	return op, entry, nil
}
