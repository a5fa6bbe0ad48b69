package service

import (
	"context"
	"strings"

	"github.com/julianstephens/moldtrack/internal/events"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/models"
	"github.com/julianstephens/moldtrack/internal/storage"
)

type transitionFunc func(tx storage.Tx, op models.Operation, task models.Task) (models.Operation, error)

// transition loads the operation and its task, applies fn and writes the result, all in one
// write transaction. The event is published only after commit.
func (s *Service) transition(ctx context.Context, actor lifecycle.Actor, action string, evType events.Type, operationID string, fn transitionFunc) (models.Operation, error) {
	var (
		before, after models.Operation
		task          models.Task
	)
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		op, err := tx.GetOperation(operationID)
		if err != nil {
			return err
		}
		t, err := tx.GetTask(op.TaskID)
		if err != nil {
			return err
		}
		updated, err := fn(tx, op, t)
		if err != nil {
			return err
		}
		if err := tx.UpdateOperation(updated); err != nil {
			return err
		}
		before, after, task = op, updated, t
		return nil
	})
	if err != nil {
		logger.Warn("Transition rejected", "action", action, "operation", operationID, "actor", actor.Name, "error", err)
		return models.Operation{}, err
	}

	logger.Info("Transition applied", "action", action, "operation", operationID, "actor", actor.Name,
		"from", before.Status, "to", after.Status)
	if evType != "" {
		s.publish(ctx, operationEvent(evType, task, after, actor))
	}
	return after, nil
}

// Assign starts or resumes an operation. Assignments to the same machine are serialized by
// an in-process lock and by a row lock on the machine held for the whole transaction.
func (s *Service) Assign(ctx context.Context, actor lifecycle.Actor, operationID string, in lifecycle.AssignInput) (models.Operation, error) {
	machine := strings.TrimSpace(in.Machine)
	if machine != "" {
		unlock := s.locks.Lock(machine)
		defer unlock()
	}

	return s.transition(ctx, actor, "assign", events.OperationAssigned, operationID,
		func(tx storage.Tx, op models.Operation, task models.Task) (models.Operation, error) {
			if actor.Can(lifecycle.CapAssign) {
				if machine != "" {
					if err := tx.LockMachine(machine); err != nil {
						return op, err
					}
				}
				if operator := strings.TrimSpace(in.MachineOperator); operator != "" {
					if _, err := tx.GetPersonnelByName(operator); err != nil {
						return op, err
					}
				}
			}
			return s.engine.Assign(op, task, actor, in, tx)
		})
}

// UpdateProgress records progress. A value of 100 is not stored; the result then has
// ReviewRequired set and the operation is returned unchanged.
func (s *Service) UpdateProgress(ctx context.Context, actor lifecycle.Actor, operationID string, in lifecycle.ProgressInput) (lifecycle.ProgressResult, error) {
	var reviewRequired bool
	op, err := s.transition(ctx, actor, "progress", events.OperationProgressed, operationID,
		func(_ storage.Tx, op models.Operation, _ models.Task) (models.Operation, error) {
			res, err := s.engine.UpdateProgress(op, actor, in)
			reviewRequired = res.ReviewRequired
			return res.Operation, err
		})
	if err != nil {
		return lifecycle.ProgressResult{}, err
	}
	if reviewRequired {
		logger.Info("Operation ready for machine operator review", "operation", operationID)
	}
	return lifecycle.ProgressResult{Operation: op, ReviewRequired: reviewRequired}, nil
}

func (s *Service) Pause(ctx context.Context, actor lifecycle.Actor, operationID string, in lifecycle.PauseInput) (models.Operation, error) {
	return s.transition(ctx, actor, "pause", events.OperationPaused, operationID,
		func(_ storage.Tx, op models.Operation, _ models.Task) (models.Operation, error) {
			return s.engine.Pause(op, actor, in)
		})
}

func (s *Service) ReviewMachineOperator(ctx context.Context, actor lifecycle.Actor, operationID string, in lifecycle.ReviewInput) (models.Operation, error) {
	return s.transition(ctx, actor, "review machine operator", events.OperationReviewed, operationID,
		func(_ storage.Tx, op models.Operation, _ models.Task) (models.Operation, error) {
			return s.engine.ReviewMachineOperator(op, actor, in)
		})
}

func (s *Service) ReviewSupervisor(ctx context.Context, actor lifecycle.Actor, operationID string, in lifecycle.ReviewInput) (models.Operation, error) {
	return s.transition(ctx, actor, "review supervisor", events.OperationApproved, operationID,
		func(_ storage.Tx, op models.Operation, _ models.Task) (models.Operation, error) {
			return s.engine.ReviewSupervisor(op, actor, in)
		})
}

// ReportIssue resets the operation and appends a rework entry in the same transaction.
func (s *Service) ReportIssue(ctx context.Context, actor lifecycle.Actor, operationID string, in lifecycle.IssueInput) (models.Operation, error) {
	return s.transition(ctx, actor, "report issue", events.OperationReworked, operationID,
		func(tx storage.Tx, op models.Operation, _ models.Task) (models.Operation, error) {
			updated, entry, err := s.engine.ReportIssue(op, actor, in)
			if err != nil {
				return op, err
			}
			if err := tx.AppendRework(op.ID, entry); err != nil {
				return op, err
			}
			return updated, nil
		})
}
