package storage

import (
	"context"

	"github.com/julianstephens/moldtrack/internal/models"
)

// Provider is a job graph store. All reads and writes go through a transaction so a
// transition and the data it depends on are committed together.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Update runs fn in a write transaction. The transaction commits when fn returns nil
	// and rolls back otherwise.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error

	// SchemaStatus reports the applied and the latest known schema versions.
	SchemaStatus() (current, latest int, err error)

	// Utils
	GetConfigPath() string
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	// Jobs. GetJob and ListJobs return the full graph: tasks, operations, rework history
	// and evaluations.
	AddJob(models.Job) error
	GetJob(id string) (models.Job, error)
	ListJobs() ([]models.Job, error)
	UpdateJob(models.Job) error
	AddEvaluation(jobID string, ev models.JobEvaluation) error

	// Tasks
	AddTask(models.Task) error
	GetTask(id string) (models.Task, error)
	UpdateTask(models.Task) error
	NextTaskSeq(jobID string) (int, error)

	// Operations. UpdateOperation never touches rework history; entries are only ever
	// added through AppendRework.
	AddOperation(models.Operation) error
	GetOperation(id string) (models.Operation, error)
	UpdateOperation(models.Operation) error
	AppendRework(operationID string, entry models.Rework) error

	// Machines. LockMachine holds the machine row until the transaction ends.
	// IsMachineBusy makes Tx usable as a lifecycle.MachineGuard.
	AddMachine(models.Machine) error
	GetMachine(name string) (models.Machine, error)
	ListMachines() ([]models.Machine, error)
	LockMachine(name string) error
	IsMachineBusy(machine, excludingOperationID string) (*models.MachineConflict, error)

	// Personnel
	AddPersonnel(models.Personnel) error
	GetPersonnelByName(name string) (models.Personnel, error)
	ListPersonnel() ([]models.Personnel, error)
}
