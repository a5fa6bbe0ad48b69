// Package clitest builds command contexts backed by a temporary SQLite database.
package clitest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/config"
	"github.com/julianstephens/moldtrack/internal/events"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
	"github.com/julianstephens/moldtrack/internal/models"
	"github.com/julianstephens/moldtrack/internal/service"
	"github.com/julianstephens/moldtrack/internal/storage/sqlite"
)

// Clock advances by Step on every reading.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Env is a context plus the pieces tests inspect directly.
type Env struct {
	Ctx    *cli.Context
	Store  *sqlite.Store
	Broker *events.Broker
	Clock  *Clock
	DBPath string
}

// New initializes a store in t.TempDir() and registers an admin named "Root" who acts by
// default. Prompts are disabled.
func New(t *testing.T) *Env {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "moldtrack.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := &Clock{now: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), Step: time.Minute}
	broker := events.NewBroker()
	t.Cleanup(broker.Close)

	cfg := config.Default()
	cfg.Database = dbPath

	env := &Env{
		Ctx: &cli.Context{
			Store:       store,
			Service:     service.New(store, service.WithClock(clock.Now), service.WithPublisher(broker)),
			Config:      cfg,
			ActorName:   "Root",
			Events:      broker,
			Interactive: func() bool { return false },
		},
		Store:  store,
		Broker: broker,
		Clock:  clock,
		DBPath: dbPath,
	}
	env.AddPerson(t, "Root", models.RoleAdmin)
	return env
}

// As switches the acting person.
func (e *Env) As(name string) *cli.Context {
	e.Ctx.ActorName = name
	return e.Ctx
}

func (e *Env) admin(t *testing.T) lifecycle.Actor {
	t.Helper()
	return lifecycle.NewActor(models.Personnel{Name: "Root", Role: models.RoleAdmin})
}

func (e *Env) AddPerson(t *testing.T, name string, role models.Role) {
	t.Helper()
	if _, err := e.Ctx.Service.AddPersonnel(context.Background(), e.admin(t), name, role); err != nil {
		t.Fatalf("failed to add %s: %v", name, err)
	}
}

func (e *Env) AddMachine(t *testing.T, name string) {
	t.Helper()
	if _, err := e.Ctx.Service.AddMachine(context.Background(), e.admin(t), name, ""); err != nil {
		t.Fatalf("failed to add machine %s: %v", name, err)
	}
}

// Graph is a job with one task and one operation.
type Graph struct {
	Job       models.Job
	Task      models.Task
	Operation models.Operation
}

func (e *Env) AddGraph(t *testing.T, jobName string, opType models.OperationType) Graph {
	t.Helper()
	ctx := context.Background()
	svc := e.Ctx.Service
	job, err := svc.CreateJob(ctx, e.admin(t), service.JobInput{Name: jobName, Customer: "Acme"})
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	task, err := svc.AddTask(ctx, e.admin(t), job.ID, "Cavity")
	if err != nil {
		t.Fatalf("failed to add task: %v", err)
	}
	op, err := svc.AddOperation(ctx, e.admin(t), task.ID, opType)
	if err != nil {
		t.Fatalf("failed to add operation: %v", err)
	}
	return Graph{Job: job, Task: task, Operation: op}
}

// Operation reloads an operation from the store.
func (e *Env) Operation(t *testing.T, id string) models.Operation {
	t.Helper()
	op, err := e.Ctx.Service.GetOperation(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load operation %s: %v", id, err)
	}
	return op
}

func (e *Env) Job(t *testing.T, id string) models.Job {
	t.Helper()
	job, err := e.Ctx.Service.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load job %s: %v", id, err)
	}
	return job
}
