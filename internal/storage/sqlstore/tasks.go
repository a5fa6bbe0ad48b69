package sqlstore

import (
	"fmt"

	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/models"
)

// AddTask stores the task and any operations it carries, in order.
func (t *tx) AddTask(task models.Task) error {
	_, err := t.exec(`
		INSERT INTO tasks (id, job_id, seq, name, is_critical, critical_note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.JobID, task.Seq, task.Name, task.IsCritical, task.CriticalNote)
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	for _, op := range task.Operations {
		op.TaskID = task.ID
		if err := t.AddOperation(op); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) GetTask(id string) (models.Task, error) {
	tasks, err := t.tasksWhere(`id = ?`, id)
	if err != nil {
		return models.Task{}, err
	}
	if len(tasks) == 0 {
		return models.Task{}, apperr.NotFound("task", id)
	}
	task := tasks[0]

	ops, err := t.operationsWhere(`o.task_id = ?`, id)
	if err != nil {
		return models.Task{}, err
	}
	task.Operations = ops[id]
	return task, nil
}

// UpdateTask writes the task's own fields. Operations are updated individually.
func (t *tx) UpdateTask(task models.Task) error {
	return t.execOne("task", task.ID, `
		UPDATE tasks SET name = ?, is_critical = ?, critical_note = ? WHERE id = ?`,
		task.Name, task.IsCritical, task.CriticalNote, task.ID)
}

// NextTaskSeq returns the sequence number for a new task of the job.
func (t *tx) NextTaskSeq(jobID string) (int, error) {
	var seq int
	if err := t.queryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM tasks WHERE job_id = ?`, jobID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to compute task sequence: %w", err)
	}
	return seq, nil
}

func (t *tx) tasksWhere(cond string, args ...interface{}) ([]models.Task, error) {
	rows, err := t.query(`
		SELECT id, job_id, seq, name, is_critical, critical_note
		FROM tasks WHERE `+cond+` ORDER BY seq, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(&task.ID, &task.JobID, &task.Seq, &task.Name, &task.IsCritical, &task.CriticalNote); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
