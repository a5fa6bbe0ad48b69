package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/moldtrack/internal/models"
)

var operationColumns = []string{
	"id", "task_id", "type", "status", "progress",
	"assigned_operator", "machine_name", "machine_operator_name",
	"start_date", "estimated_due_date", "finish_date", "duration_hours",
	"supervisor_rating", "supervisor_comment",
	"machine_operator_rating", "machine_operator_comment",
	"machine_operator_review_date", "supervisor_review_date",
}

func columns(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}

func scanOperation(row scanner) (models.Operation, error) {
	var (
		op                                     models.Operation
		opType, status                         string
		start, due, finish, moReview, svReview sql.NullString
		svRating, moRating                     sql.NullInt64
	)
	err := row.Scan(
		&op.ID, &op.TaskID, &opType, &status, &op.ProgressPercentage,
		&op.AssignedOperator, &op.MachineName, &op.MachineOperatorName,
		&start, &due, &finish, &op.DurationInHours,
		&svRating, &op.SupervisorComment,
		&moRating, &op.MachineOperatorComment,
		&moReview, &svReview,
	)
	if err != nil {
		return models.Operation{}, err
	}
	op.Type = models.OperationType(opType)
	op.Status = models.OperationStatus(status)
	op.SupervisorRating = intPtr(svRating)
	op.MachineOperatorRating = intPtr(moRating)

	if op.StartDate, err = parseNullTime(start); err != nil {
		return models.Operation{}, err
	}
	if op.EstimatedDueDate, err = parseNullTime(due); err != nil {
		return models.Operation{}, err
	}
	if op.FinishDate, err = parseNullTime(finish); err != nil {
		return models.Operation{}, err
	}
	if op.MachineOperatorReviewDate, err = parseNullTime(moReview); err != nil {
		return models.Operation{}, err
	}
	if op.SupervisorReviewDate, err = parseNullTime(svReview); err != nil {
		return models.Operation{}, err
	}
	return op, nil
}

// AddOperation appends the operation to the end of its task. Rework history carried on the
// operation is stored as well.
func (t *tx) AddOperation(op models.Operation) error {
	var position int
	if err := t.queryRow(`SELECT COALESCE(MAX(position), 0) + 1 FROM operations WHERE task_id = ?`, op.TaskID).Scan(&position); err != nil {
		return fmt.Errorf("failed to compute operation position: %w", err)
	}

	_, err := t.exec(`
		INSERT INTO operations (position, `+columns("", operationColumns)+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		position,
		op.ID, op.TaskID, string(op.Type), string(op.Status), op.ProgressPercentage,
		op.AssignedOperator, op.MachineName, op.MachineOperatorName,
		nullTime(op.StartDate), nullTime(op.EstimatedDueDate), nullTime(op.FinishDate), op.DurationInHours,
		nullInt(op.SupervisorRating), op.SupervisorComment,
		nullInt(op.MachineOperatorRating), op.MachineOperatorComment,
		nullTime(op.MachineOperatorReviewDate), nullTime(op.SupervisorReviewDate),
	)
	if err != nil {
		return fmt.Errorf("failed to add operation: %w", err)
	}
	for _, rw := range op.ReworkHistory {
		if err := t.AppendRework(op.ID, rw); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) GetOperation(id string) (models.Operation, error) {
	op, err := scanOperation(t.queryRow(`SELECT `+columns("", operationColumns)+` FROM operations WHERE id = ?`, id))
	if err != nil {
		return models.Operation{}, notFound(err, "operation", id)
	}
	history, err := t.reworkWhere(`operation_id = ?`, id)
	if err != nil {
		return models.Operation{}, err
	}
	op.ReworkHistory = history[id]
	return op, nil
}

// UpdateOperation writes every lifecycle field of the operation. The task it belongs to and
// its rework history are left as stored.
func (t *tx) UpdateOperation(op models.Operation) error {
	return t.execOne("operation", op.ID, `
		UPDATE operations SET
			type = ?, status = ?, progress = ?,
			assigned_operator = ?, machine_name = ?, machine_operator_name = ?,
			start_date = ?, estimated_due_date = ?, finish_date = ?, duration_hours = ?,
			supervisor_rating = ?, supervisor_comment = ?,
			machine_operator_rating = ?, machine_operator_comment = ?,
			machine_operator_review_date = ?, supervisor_review_date = ?
		WHERE id = ?`,
		string(op.Type), string(op.Status), op.ProgressPercentage,
		op.AssignedOperator, op.MachineName, op.MachineOperatorName,
		nullTime(op.StartDate), nullTime(op.EstimatedDueDate), nullTime(op.FinishDate), op.DurationInHours,
		nullInt(op.SupervisorRating), op.SupervisorComment,
		nullInt(op.MachineOperatorRating), op.MachineOperatorComment,
		nullTime(op.MachineOperatorReviewDate), nullTime(op.SupervisorReviewDate),
		op.ID,
	)
}

// AppendRework inserts entry after the operation's existing entries. Rework rows are never
// updated or deleted.
func (t *tx) AppendRework(operationID string, entry models.Rework) error {
	var seq int
	if err := t.queryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM rework_entries WHERE operation_id = ?`, operationID).Scan(&seq); err != nil {
		return fmt.Errorf("failed to compute rework sequence: %w", err)
	}
	_, err := t.exec(`
		INSERT INTO rework_entries (id, operation_id, seq, date, reason, description, reported_by, previous_progress, op_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, operationID, seq, formatTime(entry.Date), entry.Reason, entry.Description,
		entry.ReportedBy, entry.PreviousProgress, string(entry.OpType))
	if err != nil {
		return fmt.Errorf("failed to append rework entry: %w", err)
	}
	return nil
}

// IsMachineBusy returns the in-progress operation holding machine, ignoring
// excludingOperationID.
func (t *tx) IsMachineBusy(machine, excludingOperationID string) (*models.MachineConflict, error) {
	c := models.MachineConflict{Machine: machine}
	err := t.queryRow(`
		SELECT o.id, t.id, t.name, j.id, j.name
		FROM operations o
		JOIN tasks t ON t.id = o.task_id
		JOIN jobs j ON j.id = t.job_id
		WHERE o.machine_name = ? AND o.status = ? AND o.id <> ?
		ORDER BY o.start_date, o.id
		LIMIT 1`,
		machine, string(models.StatusInProgress), excludingOperationID,
	).Scan(&c.OperationID, &c.TaskID, &c.TaskName, &c.JobID, &c.JobName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check machine %s: %w", machine, err)
	}
	return &c, nil
}

// operationsWhere loads operations matching cond, keyed by task id in position order, with
// their rework history. cond refers to the operations table as "o".
func (t *tx) operationsWhere(cond string, args ...interface{}) (map[string][]models.Operation, error) {
	rows, err := t.query(`
		SELECT `+columns("o.", operationColumns)+`
		FROM operations o WHERE `+cond+` ORDER BY o.task_id, o.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load operations: %w", err)
	}

	var (
		ops []models.Operation
		ids []string
	)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
		ids = append(ids, op.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	history := map[string][]models.Rework{}
	if len(ids) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
		idArgs := make([]interface{}, len(ids))
		for i, id := range ids {
			idArgs[i] = id
		}
		if history, err = t.reworkWhere(`operation_id IN (`+placeholders+`)`, idArgs...); err != nil {
			return nil, err
		}
	}

	byTask := make(map[string][]models.Operation)
	for _, op := range ops {
		op.ReworkHistory = history[op.ID]
		byTask[op.TaskID] = append(byTask[op.TaskID], op)
	}
	return byTask, nil
}

func (t *tx) reworkWhere(cond string, args ...interface{}) (map[string][]models.Rework, error) {
	rows, err := t.query(`
		SELECT operation_id, id, date, reason, description, reported_by, previous_progress, op_type
		FROM rework_entries WHERE `+cond+` ORDER BY operation_id, seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load rework history: %w", err)
	}
	defer rows.Close()

	history := make(map[string][]models.Rework)
	for rows.Next() {
		var (
			opID, date, opType string
			rw                 models.Rework
		)
		if err := rows.Scan(&opID, &rw.ID, &date, &rw.Reason, &rw.Description, &rw.ReportedBy, &rw.PreviousProgress, &opType); err != nil {
			return nil, fmt.Errorf("failed to scan rework entry: %w", err)
		}
		if rw.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		rw.OpType = models.OperationType(opType)
		history[opID] = append(history[opID], rw)
	}
	return history, rows.Err()
}

// LockMachine takes a row lock on the machine for the rest of the transaction.
func (t *tx) LockMachine(name string) error {
	var locked string
	err := t.queryRow(`SELECT name FROM machines WHERE name = ?`+t.dialect.forUpdate(), name).Scan(&locked)
	if err != nil {
		return notFound(err, "machine", name)
	}
	return nil
}
