package service

import (
	"context"
	"strings"
	"time"

	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/evaluation"
	"github.com/julianstephens/moldtrack/internal/events"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/models"
	"github.com/julianstephens/moldtrack/internal/performance"
	"github.com/julianstephens/moldtrack/internal/storage"
)

type JobInput struct {
	Name     string
	Customer string
	Deadline *time.Time
	Priority int
}

// Contributors lists everyone assigned to an operation of the job, for the completion form.
func (s *Service) Contributors(ctx context.Context, jobID string) ([]evaluation.Contributor, error) {
	var out []evaluation.Contributor
	err := s.store.View(ctx, func(tx storage.Tx) error {
		job, err := tx.GetJob(jobID)
		if err != nil {
			return err
		}
		out = s.aggregator.Collect(job)
		return nil
	})
	return out, err
}

// EvaluateJob scores every contributor and completes the job. Operation ratings, evaluations
// and the job status are written in one transaction.
func (s *Service) EvaluateJob(ctx context.Context, actor lifecycle.Actor, jobID string, in evaluation.Input) (evaluation.Result, error) {
	var res evaluation.Result
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		job, err := tx.GetJob(jobID)
		if err != nil {
			return err
		}
		res, err = s.aggregator.Evaluate(job, actor, in)
		if err != nil {
			return err
		}
		for _, op := range res.Updated {
			if err := tx.UpdateOperation(op); err != nil {
				return err
			}
		}
		for _, ev := range res.Evaluations {
			if err := tx.AddEvaluation(jobID, ev); err != nil {
				return err
			}
		}
		return tx.UpdateJob(res.Job)
	})
	if err != nil {
		logger.Warn("Job evaluation rejected", "job", jobID, "actor", actor.Name, "error", err)
		return evaluation.Result{}, err
	}

	logger.Info("Job completed", "job", jobID, "actor", actor.Name,
		"contributors", len(res.Evaluations), "operations", len(res.Updated))
	s.publish(ctx, events.Event{
		Type:   events.JobCompleted,
		JobID:  jobID,
		Actor:  actor.Name,
		Status: string(res.Job.Status),
	})
	return res, nil
}

// QueryPerformance builds the report for the named contributor across every stored job.
func (s *Service) QueryPerformance(ctx context.Context, contributor, filter string) (performance.Report, error) {
	var report performance.Report
	err := s.store.View(ctx, func(tx storage.Tx) error {
		p, err := tx.GetPersonnelByName(strings.TrimSpace(contributor))
		if err != nil {
			return err
		}
		jobs, err := tx.ListJobs()
		if err != nil {
			return err
		}
		report = performance.Query(p, jobs, filter)
		return nil
	})
	return report, err
}

func (s *Service) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		jobs, err = tx.ListJobs()
		return err
	})
	return jobs, err
}

func (s *Service) GetJob(ctx context.Context, id string) (models.Job, error) {
	var job models.Job
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		job, err = tx.GetJob(id)
		return err
	})
	return job, err
}

func (s *Service) GetOperation(ctx context.Context, id string) (models.Operation, error) {
	var op models.Operation
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		op, err = tx.GetOperation(id)
		return err
	})
	return op, err
}

func (s *Service) CreateJob(ctx context.Context, actor lifecycle.Actor, in JobInput) (models.Job, error) {
	if err := actor.Require(lifecycle.CapManageGraph); err != nil {
		return models.Job{}, err
	}
	job := models.Job{
		ID:        s.newID(),
		Name:      strings.TrimSpace(in.Name),
		Customer:  strings.TrimSpace(in.Customer),
		Status:    models.JobOpen,
		Deadline:  in.Deadline,
		Priority:  in.Priority,
		CreatedAt: s.now(),
	}
	if err := job.Validate(); err != nil {
		return models.Job{}, err
	}
	if err := s.store.Update(ctx, func(tx storage.Tx) error { return tx.AddJob(job) }); err != nil {
		return models.Job{}, err
	}

	logger.Info("Job created", "job", job.ID, "name", job.Name, "actor", actor.Name)
	s.publish(ctx, events.Event{Type: events.GraphChanged, JobID: job.ID, Actor: actor.Name, Status: string(job.Status)})
	return job, nil
}

// SetJobStatus moves a job between OPEN, IN_PRODUCTION and ON_HOLD. Completion only happens
// through EvaluateJob.
func (s *Service) SetJobStatus(ctx context.Context, actor lifecycle.Actor, jobID string, status models.JobStatus) (models.Job, error) {
	if err := actor.Require(lifecycle.CapManageGraph); err != nil {
		return models.Job{}, err
	}
	if status == models.JobCompleted {
		return models.Job{}, apperr.Invalid("status", "jobs are completed by evaluation")
	}
	if _, err := models.ParseJobStatus(string(status)); err != nil {
		return models.Job{}, err
	}

	var job models.Job
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		job, err = tx.GetJob(jobID)
		if err != nil {
			return err
		}
		if job.Status == models.JobCompleted {
			return apperr.Invalid("status", "job %q is already completed", job.Name)
		}
		job.Status = status
		return tx.UpdateJob(job)
	})
	if err != nil {
		return models.Job{}, err
	}

	logger.Info("Job status changed", "job", jobID, "status", status, "actor", actor.Name)
	s.publish(ctx, events.Event{Type: events.GraphChanged, JobID: jobID, Actor: actor.Name, Status: string(status)})
	return job, nil
}

func (s *Service) AddTask(ctx context.Context, actor lifecycle.Actor, jobID, name string) (models.Task, error) {
	if err := actor.Require(lifecycle.CapManageGraph); err != nil {
		return models.Task{}, err
	}
	task := models.Task{ID: s.newID(), JobID: jobID, Name: strings.TrimSpace(name)}
	if err := task.Validate(); err != nil {
		return models.Task{}, err
	}

	err := s.store.Update(ctx, func(tx storage.Tx) error {
		job, err := tx.GetJob(jobID)
		if err != nil {
			return err
		}
		if job.Status == models.JobCompleted {
			return apperr.Invalid("job", "job %q is already completed", job.Name)
		}
		if task.Seq, err = tx.NextTaskSeq(jobID); err != nil {
			return err
		}
		return tx.AddTask(task)
	})
	if err != nil {
		return models.Task{}, err
	}

	logger.Info("Task added", "job", jobID, "task", task.ID, "seq", task.Seq, "actor", actor.Name)
	s.publish(ctx, events.Event{Type: events.GraphChanged, JobID: jobID, TaskID: task.ID, Actor: actor.Name})
	return task, nil
}

// MarkTaskCritical flags a task so every later assignment needs an explicit acknowledgment
// of note.
func (s *Service) MarkTaskCritical(ctx context.Context, actor lifecycle.Actor, taskID, note string) (models.Task, error) {
	if err := actor.Require(lifecycle.CapMarkCritical); err != nil {
		return models.Task{}, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return models.Task{}, apperr.Invalid("critical_note", "a critical task must carry a note")
	}

	var task models.Task
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		task, err = tx.GetTask(taskID)
		if err != nil {
			return err
		}
		task.IsCritical = true
		task.CriticalNote = note
		return tx.UpdateTask(task)
	})
	if err != nil {
		return models.Task{}, err
	}

	logger.Info("Task marked critical", "task", taskID, "actor", actor.Name)
	s.publish(ctx, events.Event{Type: events.GraphChanged, JobID: task.JobID, TaskID: taskID, Actor: actor.Name})
	return task, nil
}

func (s *Service) AddOperation(ctx context.Context, actor lifecycle.Actor, taskID string, opType models.OperationType) (models.Operation, error) {
	if err := actor.Require(lifecycle.CapManageGraph); err != nil {
		return models.Operation{}, err
	}
	if _, err := models.ParseOperationType(string(opType)); err != nil {
		return models.Operation{}, err
	}
	op := models.Operation{ID: s.newID(), TaskID: taskID, Type: opType, Status: models.StatusNotStarted}

	var task models.Task
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if task, err = tx.GetTask(taskID); err != nil {
			return err
		}
		return tx.AddOperation(op)
	})
	if err != nil {
		return models.Operation{}, err
	}

	logger.Info("Operation added", "task", taskID, "operation", op.ID, "type", opType, "actor", actor.Name)
	s.publish(ctx, operationEvent(events.GraphChanged, task, op, actor))
	return op, nil
}
