// Package evaluation completes a job by scoring every contributor who worked on it.
package evaluation

import (
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/moldtrack/internal/constants"
	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
	"github.com/julianstephens/moldtrack/internal/models"
)

// OperationSummary is one operation listed under a contributor on the completion screen.
type OperationSummary struct {
	OperationID       string
	TaskID            string
	TaskName          string
	Type              models.OperationType
	Status            models.OperationStatus
	SupervisorRating  *int
	SupervisorComment string
}

// Contributor groups the operations assigned to one person.
type Contributor struct {
	Name       string
	Operations []OperationSummary
}

// Score is the general score for one contributor.
type Score struct {
	Score   int
	Comment string
}

// Override replaces the propagated score or comment of a single operation.
type Override struct {
	Score   *int
	Comment *string
}

// Input carries the manager's scores. Scores is keyed by contributor name and Overrides by
// operation id.
type Input struct {
	Scores    map[string]Score
	Overrides map[string]Override
}

// Result is the completed job plus the operations the evaluation rewrote.
type Result struct {
	Job         models.Job
	Updated     []models.Operation
	Evaluations []models.JobEvaluation
}

type Aggregator struct {
	now func() time.Time
}

func New(now func() time.Time) *Aggregator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Aggregator{now: now}
}

// Collect groups every operation of the job by its assigned operator, sorted by name.
// Operations that were never assigned are skipped.
func (a *Aggregator) Collect(job models.Job) []Contributor {
	byName := make(map[string]*Contributor)
	for _, task := range job.Tasks {
		for _, op := range task.Operations {
			if op.AssignedOperator == "" {
				continue
			}
			c, ok := byName[op.AssignedOperator]
			if !ok {
				c = &Contributor{Name: op.AssignedOperator}
				byName[op.AssignedOperator] = c
			}
			c.Operations = append(c.Operations, OperationSummary{
				OperationID:       op.ID,
				TaskID:            task.ID,
				TaskName:          task.Name,
				Type:              op.Type,
				Status:            op.Status,
				SupervisorRating:  op.SupervisorRating,
				SupervisorComment: op.SupervisorComment,
			})
		}
	}

	contributors := make([]Contributor, 0, len(byName))
	for _, c := range byName {
		contributors = append(contributors, *c)
	}
	sort.Slice(contributors, func(i, j int) bool {
		return contributors[i].Name < contributors[j].Name
	})
	return contributors
}

func (a *Aggregator) validate(job models.Job, contributors []Contributor, in Input) error {
	if job.Status == models.JobCompleted {
		return apperr.Invalid("status", "job %q is already completed", job.Name)
	}

	var missing []string
	for _, c := range contributors {
		s, ok := in.Scores[c.Name]
		if !ok {
			missing = append(missing, c.Name)
			continue
		}
		if !models.ValidRating(s.Score) {
			return apperr.Invalid("general_score", "score for %s must be between %d and %d, got %d",
				c.Name, constants.MinRating, constants.MaxRating, s.Score)
		}
	}
	if len(missing) > 0 {
		return &apperr.MissingScoreError{Contributors: missing}
	}

	ids := make([]string, 0, len(in.Overrides))
	for id := range in.Overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, op, ok := job.Locate(id); !ok || op.AssignedOperator == "" {
			return apperr.NotFound("operation", id)
		}
		o := in.Overrides[id]
		if o.Score != nil && !models.ValidRating(*o.Score) {
			return apperr.Invalid("score", "override for operation %s must be between %d and %d, got %d",
				id, constants.MinRating, constants.MaxRating, *o.Score)
		}
	}
	return nil
}

// Evaluate scores every contributor and completes the job. Each contributor's general score
// propagates onto their operations as the supervisor rating unless an override is given for
// that operation; the general comment is never copied onto operations. Nothing is changed
// unless every input is valid.
func (a *Aggregator) Evaluate(job models.Job, actor lifecycle.Actor, in Input) (Result, error) {
	if err := actor.Require(lifecycle.CapEvaluateJob); err != nil {
		return Result{Job: job}, err
	}

	contributors := a.Collect(job)
	if err := a.validate(job, contributors, in); err != nil {
		return Result{Job: job}, err
	}

	now := a.now()
	tasks := make([]models.Task, len(job.Tasks))
	var updated []models.Operation
	for i, task := range job.Tasks {
		ops := make([]models.Operation, len(task.Operations))
		copy(ops, task.Operations)
		for k := range ops {
			op := &ops[k]
			general, ok := in.Scores[op.AssignedOperator]
			if op.AssignedOperator == "" || !ok {
				continue
			}

			score := general.Score
			comment := ""
			if o, has := in.Overrides[op.ID]; has {
				if o.Score != nil {
					score = *o.Score
				}
				if o.Comment != nil {
					comment = strings.TrimSpace(*o.Comment)
				}
			}

			reviewed := now
			op.SupervisorRating = &score
			op.SupervisorComment = comment
			op.SupervisorReviewDate = &reviewed
			updated = append(updated, *op)
		}
		task.Operations = ops
		tasks[i] = task
	}

	evaluations := make([]models.JobEvaluation, 0, len(contributors))
	for _, c := range contributors {
		s := in.Scores[c.Name]
		evaluations = append(evaluations, models.JobEvaluation{
			OperatorName:   c.Name,
			GeneralScore:   s.Score,
			GeneralComment: strings.TrimSpace(s.Comment),
			Date:           now,
		})
	}

	completed := now
	job.Tasks = tasks
	job.Evaluations = append(append([]models.JobEvaluation(nil), job.Evaluations...), evaluations...)
	job.Status = models.JobCompleted
	job.CompletedAt = &completed

	return Result{Job: job, Updated: updated, Evaluations: evaluations}, nil
}
