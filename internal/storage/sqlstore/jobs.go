package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/moldtrack/internal/models"
)

const jobColumns = `id, name, customer, status, deadline, priority, created_at, completed_at`

func scanJob(row scanner) (models.Job, error) {
	var (
		j                     models.Job
		status, createdAt     string
		deadline, completedAt sql.NullString
	)
	if err := row.Scan(&j.ID, &j.Name, &j.Customer, &status, &deadline, &j.Priority, &createdAt, &completedAt); err != nil {
		return models.Job{}, err
	}
	j.Status = models.JobStatus(status)

	var err error
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Job{}, err
	}
	if j.Deadline, err = parseNullTime(deadline); err != nil {
		return models.Job{}, err
	}
	if j.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return models.Job{}, err
	}
	return j, nil
}

// AddJob stores the job together with any tasks, operations and evaluations it carries.
func (t *tx) AddJob(j models.Job) error {
	_, err := t.exec(`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Name, j.Customer, string(j.Status), nullTime(j.Deadline), j.Priority,
		formatTime(j.CreatedAt), nullTime(j.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}
	for _, task := range j.Tasks {
		task.JobID = j.ID
		if err := t.AddTask(task); err != nil {
			return err
		}
	}
	for _, ev := range j.Evaluations {
		if err := t.AddEvaluation(j.ID, ev); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) GetJob(id string) (models.Job, error) {
	j, err := scanJob(t.queryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err != nil {
		return models.Job{}, notFound(err, "job", id)
	}
	if err := t.loadJobGraph(&j); err != nil {
		return models.Job{}, err
	}
	return j, nil
}

// ListJobs returns every job, highest priority first, then oldest first.
func (t *tx) ListJobs() ([]models.Job, error) {
	rows, err := t.query(`SELECT ` + jobColumns + ` FROM jobs ORDER BY priority DESC, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range jobs {
		if err := t.loadJobGraph(&jobs[i]); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

func (t *tx) UpdateJob(j models.Job) error {
	return t.execOne("job", j.ID, `
		UPDATE jobs SET name = ?, customer = ?, status = ?, deadline = ?, priority = ?, completed_at = ?
		WHERE id = ?`,
		j.Name, j.Customer, string(j.Status), nullTime(j.Deadline), j.Priority, nullTime(j.CompletedAt), j.ID)
}

func (t *tx) AddEvaluation(jobID string, ev models.JobEvaluation) error {
	_, err := t.exec(`
		INSERT INTO job_evaluations (job_id, operator_name, general_score, general_comment, date)
		VALUES (?, ?, ?, ?, ?)`,
		jobID, ev.OperatorName, ev.GeneralScore, ev.GeneralComment, formatTime(ev.Date))
	if err != nil {
		return fmt.Errorf("failed to add evaluation for %s: %w", ev.OperatorName, err)
	}
	return nil
}

// loadJobGraph fills in tasks, operations, rework history and evaluations. Each query is
// fully read before the next one starts, since a transaction has a single connection.
func (t *tx) loadJobGraph(j *models.Job) error {
	tasks, err := t.tasksWhere(`job_id = ?`, j.ID)
	if err != nil {
		return err
	}
	ops, err := t.operationsWhere(`o.task_id IN (SELECT id FROM tasks WHERE job_id = ?)`, j.ID)
	if err != nil {
		return err
	}
	for i := range tasks {
		tasks[i].Operations = ops[tasks[i].ID]
	}
	j.Tasks = tasks

	rows, err := t.query(`
		SELECT operator_name, general_score, general_comment, date
		FROM job_evaluations WHERE job_id = ? ORDER BY operator_name`, j.ID)
	if err != nil {
		return fmt.Errorf("failed to load evaluations: %w", err)
	}
	defer rows.Close()

	j.Evaluations = nil
	for rows.Next() {
		var (
			ev   models.JobEvaluation
			date string
		)
		if err := rows.Scan(&ev.OperatorName, &ev.GeneralScore, &ev.GeneralComment, &date); err != nil {
			return fmt.Errorf("failed to scan evaluation: %w", err)
		}
		if ev.Date, err = parseTime(date); err != nil {
			return err
		}
		j.Evaluations = append(j.Evaluations, ev)
	}
	return rows.Err()
}
