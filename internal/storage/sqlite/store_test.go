package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/models"
	"github.com/julianstephens/moldtrack/internal/storage"
)

var created = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "moldtrack.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *Store) {
	t.Helper()
	started := created.Add(time.Hour)
	rating := 7
	job := models.Job{
		ID:        "job-1",
		Name:      "Bottle cap mold",
		Customer:  "Acme",
		Status:    models.JobInProduction,
		Priority:  2,
		CreatedAt: created,
		Tasks: []models.Task{
			{
				ID: "task-1", Seq: 1, Name: "Cavity",
				Operations: []models.Operation{
					{ID: "op-1", Type: models.OpCNC, Status: models.StatusInProgress, ProgressPercentage: 40,
						AssignedOperator: "Ayse", MachineName: "M-1", MachineOperatorName: "Ali", StartDate: &started},
					{ID: "op-2", Type: models.OpPolishing, Status: models.StatusNotStarted,
						MachineOperatorRating: &rating},
				},
			},
			{ID: "task-2", Seq: 2, Name: "Core", IsCritical: true, CriticalNote: "hardened insert"},
		},
	}

	err := store.Update(context.Background(), func(tx storage.Tx) error {
		if err := tx.AddMachine(models.Machine{Name: "M-1", Kind: "5-axis", CreatedAt: created}); err != nil {
			return err
		}
		if err := tx.AddMachine(models.Machine{Name: "M-2", CreatedAt: created}); err != nil {
			return err
		}
		if err := tx.AddPersonnel(models.Personnel{ID: "p-1", Name: "Ayse", Role: models.RoleProgrammer, CreatedAt: created}); err != nil {
			return err
		}
		return tx.AddJob(job)
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func TestInitAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moldtrack.db")

	if err := NewStore(path).Load(); err == nil {
		t.Fatal("Load should fail before Init")
	}

	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	current, latest, err := store.SchemaStatus()
	if err != nil {
		t.Fatalf("SchemaStatus failed: %v", err)
	}
	if current != latest || current < 1 {
		t.Errorf("expected schema at latest version, got %d/%d", current, latest)
	}
	store.Close()

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer reopened.Close()
	if reopened.GetConfigPath() != path {
		t.Errorf("expected config path %s, got %s", path, reopened.GetConfigPath())
	}
}

func TestUpdateBeforeLoad(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "x.db"))
	err := store.Update(context.Background(), func(storage.Tx) error { return nil })
	if err == nil {
		t.Fatal("expected an error using an unopened store")
	}
}

func TestJobGraphRoundTrip(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	var job models.Job
	err := store.View(context.Background(), func(tx storage.Tx) error {
		var err error
		job, err = tx.GetJob("job-1")
		return err
	})
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}

	if job.Name != "Bottle cap mold" || job.Status != models.JobInProduction || !job.CreatedAt.Equal(created) {
		t.Errorf("unexpected job fields: %+v", job)
	}
	if len(job.Tasks) != 2 || job.Tasks[0].Name != "Cavity" || job.Tasks[1].Name != "Core" {
		t.Fatalf("expected tasks Cavity, Core in order, got %+v", job.Tasks)
	}
	if !job.Tasks[1].IsCritical || job.Tasks[1].CriticalNote != "hardened insert" {
		t.Errorf("critical flag not round-tripped: %+v", job.Tasks[1])
	}

	ops := job.Tasks[0].Operations
	if len(ops) != 2 || ops[0].ID != "op-1" || ops[1].ID != "op-2" {
		t.Fatalf("expected op-1, op-2 in order, got %+v", ops)
	}
	if ops[0].StartDate == nil || !ops[0].StartDate.Equal(created.Add(time.Hour)) {
		t.Errorf("start date not round-tripped: %v", ops[0].StartDate)
	}
	if ops[0].FinishDate != nil || ops[0].SupervisorRating != nil {
		t.Error("unset optional fields must stay nil")
	}
	if ops[1].MachineOperatorRating == nil || *ops[1].MachineOperatorRating != 7 {
		t.Errorf("rating not round-tripped: %v", ops[1].MachineOperatorRating)
	}
	if job.Progress() != 20 {
		t.Errorf("expected job progress 20, got %d", job.Progress())
	}
}

func TestNotFound(t *testing.T) {
	store := setupStore(t)

	err := store.View(context.Background(), func(tx storage.Tx) error {
		checks := []error{}
		_, err := tx.GetJob("missing")
		checks = append(checks, err)
		_, err = tx.GetTask("missing")
		checks = append(checks, err)
		_, err = tx.GetOperation("missing")
		checks = append(checks, err)
		_, err = tx.GetMachine("missing")
		checks = append(checks, err)
		_, err = tx.GetPersonnelByName("missing")
		checks = append(checks, err)
		checks = append(checks, tx.LockMachine("missing"))
		checks = append(checks, tx.UpdateOperation(models.Operation{ID: "missing", Status: models.StatusPaused}))

		for i, err := range checks {
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("check %d: expected not found, got %v", i, err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestReworkIsAppendOnly(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.Tx) error {
		for i, reason := range []string{"tool breakage", "wrong datum"} {
			entry := models.Rework{
				ID:               reason,
				Date:             created.Add(time.Duration(i+1) * time.Hour),
				Reason:           reason,
				ReportedBy:       "Ayse",
				PreviousProgress: 60 - i*10,
				OpType:           models.OpCNC,
			}
			if err := tx.AppendRework("op-1", entry); err != nil {
				return err
			}
		}

		// An update carrying no history must not remove stored entries.
		op, err := tx.GetOperation("op-1")
		if err != nil {
			return err
		}
		op.ReworkHistory = nil
		op.Status = models.StatusNotStarted
		op.ProgressPercentage = 0
		return tx.UpdateOperation(op)
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	var op models.Operation
	_ = store.View(ctx, func(tx storage.Tx) error {
		op, err = tx.GetOperation("op-1")
		return err
	})
	if len(op.ReworkHistory) != 2 {
		t.Fatalf("expected 2 rework entries, got %d", len(op.ReworkHistory))
	}
	if op.ReworkHistory[0].Reason != "tool breakage" || op.ReworkHistory[1].Reason != "wrong datum" {
		t.Errorf("entries out of order: %+v", op.ReworkHistory)
	}
	if op.ReworkHistory[0].PreviousProgress != 60 {
		t.Errorf("expected previous progress 60, got %d", op.ReworkHistory[0].PreviousProgress)
	}
	if op.Status != models.StatusNotStarted {
		t.Errorf("expected NOT_STARTED, got %s", op.Status)
	}
}

func TestIsMachineBusy(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	err := store.View(context.Background(), func(tx storage.Tx) error {
		conflict, err := tx.IsMachineBusy("M-1", "op-2")
		if err != nil {
			return err
		}
		if conflict == nil {
			t.Fatal("expected M-1 to be busy")
		}
		if conflict.OperationID != "op-1" || conflict.JobName != "Bottle cap mold" || conflict.TaskName != "Cavity" {
			t.Errorf("unexpected conflict: %+v", conflict)
		}

		if conflict, _ := tx.IsMachineBusy("M-1", "op-1"); conflict != nil {
			t.Error("the holder itself must be excluded")
		}
		if conflict, _ := tx.IsMachineBusy("M-2", "op-2"); conflict != nil {
			t.Error("expected M-2 to be free")
		}
		return tx.LockMachine("M-1")
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Update(ctx, func(tx storage.Tx) error {
		op, err := tx.GetOperation("op-2")
		if err != nil {
			return err
		}
		op.Status = models.StatusInProgress
		if err := tx.UpdateOperation(op); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	_ = store.View(ctx, func(tx storage.Tx) error {
		op, err := tx.GetOperation("op-2")
		if err != nil {
			t.Fatalf("GetOperation failed: %v", err)
		}
		if op.Status != models.StatusNotStarted {
			t.Errorf("expected rollback to keep NOT_STARTED, got %s", op.Status)
		}
		return nil
	})
}

func TestTasksAndEvaluations(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.Tx) error {
		seq, err := tx.NextTaskSeq("job-1")
		if err != nil {
			return err
		}
		if seq != 3 {
			t.Errorf("expected next seq 3, got %d", seq)
		}
		if err := tx.AddTask(models.Task{ID: "task-3", JobID: "job-1", Seq: seq, Name: "Ejector plate"}); err != nil {
			return err
		}
		if err := tx.AddOperation(models.Operation{ID: "op-3", TaskID: "task-3", Type: models.OpDrilling, Status: models.StatusNotStarted}); err != nil {
			return err
		}

		task, err := tx.GetTask("task-3")
		if err != nil {
			return err
		}
		task.IsCritical = true
		task.CriticalNote = "thin wall"
		if err := tx.UpdateTask(task); err != nil {
			return err
		}

		job, err := tx.GetJob("job-1")
		if err != nil {
			return err
		}
		done := created.Add(48 * time.Hour)
		job.Status = models.JobCompleted
		job.CompletedAt = &done
		if err := tx.UpdateJob(job); err != nil {
			return err
		}
		return tx.AddEvaluation("job-1", models.JobEvaluation{OperatorName: "Ayse", GeneralScore: 8, GeneralComment: "solid", Date: done})
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	var jobs []models.Job
	_ = store.View(ctx, func(tx storage.Tx) error {
		jobs, err = tx.ListJobs()
		return err
	})
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.Status != models.JobCompleted || job.CompletedAt == nil {
		t.Errorf("expected completed job, got %s / %v", job.Status, job.CompletedAt)
	}
	if len(job.Tasks) != 3 || len(job.Tasks[2].Operations) != 1 || !job.Tasks[2].IsCritical {
		t.Errorf("unexpected third task: %+v", job.Tasks)
	}
	if len(job.Evaluations) != 1 || job.Evaluations[0].GeneralScore != 8 {
		t.Errorf("unexpected evaluations: %+v", job.Evaluations)
	}
}

func TestDuplicateResources(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	err := store.Update(context.Background(), func(tx storage.Tx) error {
		return tx.AddMachine(models.Machine{Name: "M-1", CreatedAt: created})
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected duplicate machine to be rejected, got %v", err)
	}

	err = store.Update(context.Background(), func(tx storage.Tx) error {
		return tx.AddPersonnel(models.Personnel{ID: "p-2", Name: "Ayse", Role: models.RoleSupervisor, CreatedAt: created})
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected duplicate personnel to be rejected, got %v", err)
	}

	var people []models.Personnel
	var machines []models.Machine
	_ = store.View(context.Background(), func(tx storage.Tx) error {
		people, _ = tx.ListPersonnel()
		machines, _ = tx.ListMachines()
		return nil
	})
	if len(people) != 1 || len(machines) != 2 || machines[0].Kind != "5-axis" {
		t.Errorf("unexpected resources: %+v / %+v", people, machines)
	}
}
