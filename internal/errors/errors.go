package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/moldtrack/internal/logger"
)

// Sentinel errors for the failure taxonomy. Typed errors below match them with errors.Is.
var (
	ErrValidation          = stderrors.New("validation failed")
	ErrResourceConflict    = stderrors.New("resource conflict")
	ErrCriticalAckRequired = stderrors.New("critical task acknowledgement required")
	ErrMissingGeneralScore = stderrors.New("missing general score")
	ErrNotFound            = stderrors.New("not found")
	ErrForbidden           = stderrors.New("forbidden")
)

// ValidationError reports a missing or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for the given field.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError is returned when a machine is already held by another in-progress operation.
type ConflictError struct {
	Machine     string
	OperationID string
	JobName     string
	TaskName    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("machine %q is busy: in use by job %q, task %q (operation %s)",
		e.Machine, e.JobName, e.TaskName, e.OperationID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrResourceConflict }

// CriticalAckError is returned when work on a critical task starts without acknowledgement.
type CriticalAckError struct {
	TaskName string
	Note     string
}

func (e *CriticalAckError) Error() string {
	return fmt.Sprintf("task %q is marked critical (%s); acknowledgement required", e.TaskName, e.Note)
}

func (e *CriticalAckError) Is(target error) bool { return target == ErrCriticalAckRequired }

// MissingScoreError lists the contributors that did not receive a general score.
type MissingScoreError struct {
	Contributors []string
}

func (e *MissingScoreError) Error() string {
	return fmt.Sprintf("general score required for: %s", strings.Join(e.Contributors, ", "))
}

func (e *MissingScoreError) Is(target error) bool { return target == ErrMissingGeneralScore }

// NotFoundError reports a stale or unknown id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ForbiddenError is returned when the actor's role lacks the capability for an action.
type ForbiddenError struct {
	Actor  string
	Role   string
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s (%s) is not allowed to %s", e.Actor, e.Role, e.Action)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
