// Package performance builds the history and average rating of a single contributor.
package performance

import (
	"math"
	"sort"
	"strings"

	"github.com/julianstephens/moldtrack/internal/models"
)

type OperationRecord struct {
	JobID     string
	JobName   string
	TaskID    string
	TaskName  string
	Operation models.Operation
}

type EvaluationRecord struct {
	JobID      string
	JobName    string
	Evaluation models.JobEvaluation
}

type ReworkRecord struct {
	JobID       string
	JobName     string
	TaskName    string
	OperationID string
	Rework      models.Rework
}

// Report is the performance view of one contributor. Every list is newest first.
type Report struct {
	Contributor models.Personnel
	Operations  []OperationRecord
	Evaluations []EvaluationRecord
	Reworks     []ReworkRecord
	// Average is the mean role-appropriate rating over Operations, one decimal.
	Average float64
	// Count is the number of Operations that carry that rating.
	Count int
}

// ratedBy returns the field naming who an operation's rating is about, for the given role.
func ratedBy(role models.Role, op models.Operation) string {
	if role == models.RoleMachineOperator {
		return op.MachineOperatorName
	}
	return op.AssignedOperator
}

// roleRating returns the rating that measures a contributor of the given role.
func roleRating(role models.Role, op models.Operation) *int {
	if role == models.RoleMachineOperator {
		return op.MachineOperatorRating
	}
	return op.SupervisorRating
}

// AverageRating returns the one-decimal mean of the role-appropriate rating over ops and the
// number of ratings averaged. Operations without a rating are ignored.
func AverageRating(ops []models.Operation, role models.Role) (float64, int) {
	sum, n := 0, 0
	for _, op := range ops {
		if r := roleRating(role, op); r != nil {
			sum += *r
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return math.Round(float64(sum)/float64(n)*10) / 10, n
}

type matcher struct {
	needle string
}

func newMatcher(filter string) matcher {
	return matcher{needle: strings.ToLower(strings.TrimSpace(filter))}
}

func (m matcher) match(fields ...string) bool {
	if m.needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), m.needle) {
			return true
		}
	}
	return false
}

// Query collects a contributor's completed operations, job evaluations and rework entries
// across jobs. The filter, when non-empty, matches case-insensitively against job name, task
// name and comments. The result does not depend on the order of jobs.
func Query(contributor models.Personnel, jobs []models.Job, filter string) Report {
	m := newMatcher(filter)
	name := contributor.Name
	report := Report{Contributor: contributor}

	for _, job := range jobs {
		for _, task := range job.Tasks {
			for _, op := range task.Operations {
				if op.Status == models.StatusCompleted &&
					(op.AssignedOperator == name || op.MachineOperatorName == name) &&
					m.match(job.Name, task.Name, op.SupervisorComment, op.MachineOperatorComment) {
					report.Operations = append(report.Operations, OperationRecord{
						JobID:     job.ID,
						JobName:   job.Name,
						TaskID:    task.ID,
						TaskName:  task.Name,
						Operation: op,
					})
				}

				if ratedBy(contributor.Role, op) != name {
					continue
				}
				for _, rw := range op.ReworkHistory {
					if !m.match(job.Name, task.Name, rw.Reason, rw.Description) {
						continue
					}
					report.Reworks = append(report.Reworks, ReworkRecord{
						JobID:       job.ID,
						JobName:     job.Name,
						TaskName:    task.Name,
						OperationID: op.ID,
						Rework:      rw,
					})
				}
			}
		}

		for _, ev := range job.Evaluations {
			if ev.OperatorName != name || !m.match(job.Name, ev.GeneralComment) {
				continue
			}
			report.Evaluations = append(report.Evaluations, EvaluationRecord{
				JobID:      job.ID,
				JobName:    job.Name,
				Evaluation: ev,
			})
		}
	}

	sort.Slice(report.Operations, func(i, j int) bool {
		a, b := report.Operations[i].Operation, report.Operations[j].Operation
		if fa, fb := finishUnix(a), finishUnix(b); fa != fb {
			return fa > fb
		}
		return a.ID < b.ID
	})
	sort.Slice(report.Evaluations, func(i, j int) bool {
		a, b := report.Evaluations[i], report.Evaluations[j]
		if !a.Evaluation.Date.Equal(b.Evaluation.Date) {
			return a.Evaluation.Date.After(b.Evaluation.Date)
		}
		return a.JobID < b.JobID
	})
	sort.Slice(report.Reworks, func(i, j int) bool {
		a, b := report.Reworks[i].Rework, report.Reworks[j].Rework
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID < b.ID
	})

	ops := make([]models.Operation, len(report.Operations))
	for i, rec := range report.Operations {
		ops[i] = rec.Operation
	}
	report.Average, report.Count = AverageRating(ops, contributor.Role)
	return report
}

func finishUnix(op models.Operation) int64 {
	if op.FinishDate == nil {
		return 0
	}
	return op.FinishDate.UnixNano()
}
