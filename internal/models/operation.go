package models

import (
	"math"
	"strings"
	"time"

	"github.com/julianstephens/moldtrack/internal/constants"
	apperr "github.com/julianstephens/moldtrack/internal/errors"
)

type OperationStatus string

const (
	StatusNotStarted              OperationStatus = "NOT_STARTED"
	StatusInProgress              OperationStatus = "IN_PROGRESS"
	StatusPaused                  OperationStatus = "PAUSED"
	StatusWaitingSupervisorReview OperationStatus = "WAITING_SUPERVISOR_REVIEW"
	StatusCompleted               OperationStatus = "COMPLETED"
)

// IsTerminal returns true if no further transitions are possible.
func (s OperationStatus) IsTerminal() bool {
	return s == StatusCompleted
}

func (s OperationStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusPaused, StatusWaitingSupervisorReview, StatusCompleted:
		return true
	}
	return false
}

// OperationType is the kind of work performed on a task.
type OperationType string

const (
	OpCNC         OperationType = "CNC"
	OpErosion     OperationType = "EROSION"
	OpWireErosion OperationType = "WIRE_EROSION"
	OpGrinding    OperationType = "GRINDING"
	OpTurning     OperationType = "TURNING"
	OpDrilling    OperationType = "DRILLING"
	OpPolishing   OperationType = "POLISHING"
	OpWelding     OperationType = "WELDING"
	OpBench       OperationType = "BENCH"
	OpMeasurement OperationType = "MEASUREMENT"
)

// OperationTypes lists every supported operation type in display order.
var OperationTypes = []OperationType{
	OpCNC, OpErosion, OpWireErosion, OpGrinding, OpTurning,
	OpDrilling, OpPolishing, OpWelding, OpBench, OpMeasurement,
}

// ParseOperationType accepts the type name case-insensitively, with '-' or '_' separators.
func ParseOperationType(s string) (OperationType, error) {
	norm := OperationType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, t := range OperationTypes {
		if t == norm {
			return t, nil
		}
	}
	return "", apperr.Invalid("type", "unknown operation type %q", s)
}

// Rework is an audit record created when an operation is reset after a reported problem.
// Entries are immutable once appended.
type Rework struct {
	ID               string        `json:"id"`
	Date             time.Time     `json:"date"`
	Reason           string        `json:"reason"`
	Description      string        `json:"description,omitempty"`
	ReportedBy       string        `json:"reported_by"`
	PreviousProgress int           `json:"previous_progress"`
	OpType           OperationType `json:"op_type"`
}

// Operation is a single trackable unit of work with its own lifecycle.
type Operation struct {
	ID                        string          `json:"id"`
	TaskID                    string          `json:"task_id"`
	Type                      OperationType   `json:"type"`
	Status                    OperationStatus `json:"status"`
	ProgressPercentage        int             `json:"progress_percentage"`
	AssignedOperator          string          `json:"assigned_operator,omitempty"`
	MachineName               string          `json:"machine_name,omitempty"`
	MachineOperatorName       string          `json:"machine_operator_name,omitempty"`
	StartDate                 *time.Time      `json:"start_date,omitempty"`
	EstimatedDueDate          *time.Time      `json:"estimated_due_date,omitempty"`
	FinishDate                *time.Time      `json:"finish_date,omitempty"`
	DurationInHours           float64         `json:"duration_in_hours"`
	SupervisorRating          *int            `json:"supervisor_rating,omitempty"`
	SupervisorComment         string          `json:"supervisor_comment,omitempty"`
	MachineOperatorRating     *int            `json:"machine_operator_rating,omitempty"`
	MachineOperatorComment    string          `json:"machine_operator_comment,omitempty"`
	MachineOperatorReviewDate *time.Time      `json:"machine_operator_review_date,omitempty"`
	SupervisorReviewDate      *time.Time      `json:"supervisor_review_date,omitempty"`
	ReworkHistory             []Rework        `json:"rework_history,omitempty"`
}

// ElapsedHours returns the time between start and finish in hours, rounded to one decimal.
// A finish before the start yields zero.
func ElapsedHours(start, finish time.Time) float64 {
	hours := finish.Sub(start).Hours()
	if hours < 0 {
		return 0
	}
	return math.Round(hours*10) / 10
}

// ValidRating reports whether r is inside the rating scale.
func ValidRating(r int) bool {
	return r >= constants.MinRating && r <= constants.MaxRating
}

// ValidProgress reports whether p is a legal progress percentage.
func ValidProgress(p int) bool {
	return p >= constants.MinProgress && p <= constants.MaxProgress
}

// Validate checks the stored-state invariants of an operation.
func (o *Operation) Validate() error {
	if o.ID == "" {
		return apperr.Invalid("id", "operation id cannot be empty")
	}
	if !o.Status.Valid() {
		return apperr.Invalid("status", "unknown status %q", o.Status)
	}
	if !ValidProgress(o.ProgressPercentage) {
		return apperr.Invalid("progress", "must be between %d and %d, got %d",
			constants.MinProgress, constants.MaxProgress, o.ProgressPercentage)
	}
	if o.SupervisorRating != nil && !ValidRating(*o.SupervisorRating) {
		return apperr.Invalid("supervisor_rating", "must be between %d and %d", constants.MinRating, constants.MaxRating)
	}
	if o.MachineOperatorRating != nil && !ValidRating(*o.MachineOperatorRating) {
		return apperr.Invalid("machine_operator_rating", "must be between %d and %d", constants.MinRating, constants.MaxRating)
	}
	if o.StartDate != nil && o.FinishDate != nil && o.FinishDate.Before(*o.StartDate) {
		return apperr.Invalid("finish_date", "finish date is before start date")
	}
	return nil
}

// HoldsMachine reports whether the operation currently occupies its machine.
// Paused operations release the machine.
func (o *Operation) HoldsMachine() bool {
	return o.Status == StatusInProgress && o.MachineName != ""
}
