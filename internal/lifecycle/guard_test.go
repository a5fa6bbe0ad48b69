package lifecycle

import (
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/moldtrack/internal/models"
)

func TestGraphGuard(t *testing.T) {
	running := models.Operation{ID: "op-1", Status: models.StatusInProgress, MachineName: "M-1"}
	paused := models.Operation{ID: "op-2", Status: models.StatusPaused, MachineName: "M-2"}
	jobs := []models.Job{{
		ID:   "job-1",
		Name: "Mold 17",
		Tasks: []models.Task{{
			ID:         "task-1",
			Name:       "Slider",
			Operations: []models.Operation{running, paused},
		}},
	}}
	guard := GraphGuard{Jobs: jobs}

	tests := []struct {
		name      string
		machine   string
		excluding string
		busy      bool
	}{
		{"held by in-progress operation", "M-1", "op-9", true},
		{"holder itself is excluded", "M-1", "op-1", false},
		{"paused operation releases machine", "M-2", "op-9", false},
		{"unused machine", "M-3", "op-9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflict, err := guard.IsMachineBusy(tt.machine, tt.excluding)
			if err != nil {
				t.Fatalf("IsMachineBusy failed: %v", err)
			}
			if (conflict != nil) != tt.busy {
				t.Fatalf("Expected busy=%v, got %+v", tt.busy, conflict)
			}
			if conflict != nil && (conflict.JobName != "Mold 17" || conflict.TaskName != "Slider") {
				t.Errorf("Conflict should name the holding job and task, got %+v", conflict)
			}
		})
	}
}

func TestMachineLocks_SerializesPerMachine(t *testing.T) {
	locks := NewMachineLocks()

	release := locks.Lock("M-1")
	acquired := make(chan struct{})
	go func() {
		unlock := locks.Lock("M-1")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("Second lock on the same machine must wait")
	case <-time.After(50 * time.Millisecond):
	}

	// A different machine is independent.
	other := locks.Lock("M-2")
	other()

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Second lock was never granted")
	}
}

func TestMachineLocks_OneWinner(t *testing.T) {
	engine := newTestEngine(baseClock())
	locks := NewMachineLocks()

	var mu sync.Mutex
	graph := []models.Job{{ID: "job-1", Name: "Mold", Tasks: []models.Task{{ID: "task-1", Name: "Core"}}}}
	winners := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := locks.Lock("M-1")
			defer unlock()

			mu.Lock()
			guard := GraphGuard{Jobs: graph}
			mu.Unlock()

			op := newOp(string(rune('a' + i)))
			got, err := engine.Assign(op, cavity(), programmer, assignInput(), guard)
			if err != nil {
				return
			}

			mu.Lock()
			graph[0].Tasks[0].Operations = append(graph[0].Tasks[0].Operations, got)
			winners++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("Expected exactly one assignment to win machine M-1, got %d", winners)
	}
}

func TestLedger_AppendOnly(t *testing.T) {
	op := models.Operation{ID: "op-1", Type: models.OpGrinding}
	first := Ledger{}.Append(op, models.Rework{ID: "rw-1", Reason: "burn marks"})
	second := Ledger{}.Append(first, models.Rework{ID: "rw-2", Reason: "out of flatness"})

	if len(first.ReworkHistory) != 1 || len(second.ReworkHistory) != 2 {
		t.Fatalf("Expected 1 then 2 entries, got %d and %d", len(first.ReworkHistory), len(second.ReworkHistory))
	}
	if second.ReworkHistory[0].ID != "rw-1" || second.ReworkHistory[1].ID != "rw-2" {
		t.Errorf("Entries must keep insertion order, got %+v", second.ReworkHistory)
	}
	if second.ReworkHistory[1].OpType != models.OpGrinding {
		t.Errorf("Expected op type defaulted from operation, got %q", second.ReworkHistory[1].OpType)
	}
	if len(op.ReworkHistory) != 0 {
		t.Error("Append must not modify the original operation")
	}
}
