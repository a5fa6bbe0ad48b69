package jobs

import (
	"errors"
	"reflect"
	"testing"

	"github.com/julianstephens/moldtrack/internal/cli/clitest"
	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/evaluation"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
	"github.com/julianstephens/moldtrack/internal/models"
)

func TestJobAndTaskCommands(t *testing.T) {
	env := clitest.New(t)

	if err := (&JobAddCmd{Name: "Bottle cap mold", Customer: "Acme", Deadline: "2025-04-01", Priority: 2}).Run(env.Ctx); err != nil {
		t.Fatalf("job add: %v", err)
	}
	jobs, err := env.Ctx.Service.ListJobs(env.Ctx.Ctx())
	if err != nil || len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d (%v)", len(jobs), err)
	}
	job := jobs[0]
	if job.Deadline == nil || job.Priority != 2 || job.Status != models.JobOpen {
		t.Errorf("unexpected job %+v", job)
	}

	for _, name := range []string{"Cavity", "Core"} {
		if err := (&TaskAddCmd{JobID: job.ID, Name: name}).Run(env.Ctx); err != nil {
			t.Fatalf("task add %s: %v", name, err)
		}
	}
	job = env.Job(t, job.ID)
	if len(job.Tasks) != 2 || job.Tasks[0].Seq != 1 || job.Tasks[1].Seq != 2 {
		t.Fatalf("expected tasks numbered 1 and 2, got %+v", job.Tasks)
	}

	if err := (&TaskCriticalCmd{ID: job.Tasks[0].ID, Note: "tight tolerance"}).Run(env.Ctx); err != nil {
		t.Fatalf("task critical: %v", err)
	}
	if err := (&TaskCriticalCmd{ID: job.Tasks[1].ID, Note: "  "}).Run(env.Ctx); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for blank note, got %v", err)
	}

	if err := (&JobStatusCmd{ID: job.ID, Status: "on_hold"}).Run(env.Ctx); err != nil {
		t.Fatalf("job status: %v", err)
	}
	if got := env.Job(t, job.ID).Status; got != models.JobOnHold {
		t.Errorf("status = %s, want ON_HOLD", got)
	}
	if err := (&JobStatusCmd{ID: job.ID, Status: "COMPLETED"}).Run(env.Ctx); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected completion through status to be rejected, got %v", err)
	}

	if err := (&JobListCmd{}).Run(env.Ctx); err != nil {
		t.Errorf("job list: %v", err)
	}
	if err := (&JobListCmd{Status: "nope"}).Run(env.Ctx); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected bad status filter to fail, got %v", err)
	}
	if err := (&JobShowCmd{ID: job.ID}).Run(env.Ctx); err != nil {
		t.Errorf("job show: %v", err)
	}
	if err := (&JobShowCmd{ID: "missing"}).Run(env.Ctx); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestJobAddRequiresManageCapability(t *testing.T) {
	env := clitest.New(t)
	env.AddPerson(t, "Ali", models.RoleMachineOperator)

	err := (&JobAddCmd{Name: "Lid mold"}).Run(env.As("Ali"))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestEvaluateInput(t *testing.T) {
	nine := 9
	note := "re-measured, fine"

	tests := []struct {
		name    string
		cmd     JobEvaluateCmd
		want    evaluation.Input
		wantErr bool
	}{
		{
			name: "scores with comments and overrides",
			cmd: JobEvaluateCmd{
				Score:           []string{"Ayse=8", " Ali = 7 "},
				Comment:         []string{"Ali=solid, careful work"},
				Override:        []string{"op-1=9"},
				OverrideComment: []string{"op-1=re-measured, fine"},
			},
			want: evaluation.Input{
				Scores: map[string]evaluation.Score{
					"Ayse": {Score: 8},
					"Ali":  {Score: 7, Comment: "solid, careful work"},
				},
				Overrides: map[string]evaluation.Override{
					"op-1": {Score: &nine, Comment: &note},
				},
			},
		},
		{
			name: "empty",
			cmd:  JobEvaluateCmd{},
			want: evaluation.Input{
				Scores:    map[string]evaluation.Score{},
				Overrides: map[string]evaluation.Override{},
			},
		},
		{name: "missing separator", cmd: JobEvaluateCmd{Score: []string{"Ayse 8"}}, wantErr: true},
		{name: "non-numeric score", cmd: JobEvaluateCmd{Score: []string{"Ayse=eight"}}, wantErr: true},
		{name: "comment without score", cmd: JobEvaluateCmd{Comment: []string{"Ali=ok"}}, wantErr: true},
		{name: "non-numeric override", cmd: JobEvaluateCmd{Override: []string{"op-1=x"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.input()
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("input: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("input() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEvaluateCompletesJob(t *testing.T) {
	env := clitest.New(t)
	env.AddPerson(t, "Ayse", models.RoleProgrammer)
	env.AddPerson(t, "Ali", models.RoleMachineOperator)
	env.AddPerson(t, "Zeynep", models.RoleManager)
	env.AddMachine(t, "M-1")
	g := env.AddGraph(t, "Bottle cap mold", models.OpCNC)

	ayse, err := env.As("Ayse").Actor()
	if err != nil {
		t.Fatalf("Actor: %v", err)
	}
	_, err = env.Ctx.Service.Assign(env.Ctx.Ctx(), ayse, g.Operation.ID, lifecycle.AssignInput{Machine: "M-1", MachineOperator: "Ali"})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	env.As("Zeynep")
	err = (&JobEvaluateCmd{ID: g.Job.ID}).Run(env.Ctx)
	var missing *apperr.MissingScoreError
	if !errors.As(err, &missing) || !reflect.DeepEqual(missing.Contributors, []string{"Ayse"}) {
		t.Fatalf("expected missing score for Ayse, got %v", err)
	}

	cmd := &JobEvaluateCmd{ID: g.Job.ID, Score: []string{"Ayse=8"}, Comment: []string{"Ayse=good setup"}}
	if err := cmd.Run(env.Ctx); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	job := env.Job(t, g.Job.ID)
	if job.Status != models.JobCompleted {
		t.Errorf("status = %s, want COMPLETED", job.Status)
	}
	if len(job.Evaluations) != 1 || job.Evaluations[0].GeneralScore != 8 || job.Evaluations[0].GeneralComment != "good setup" {
		t.Errorf("unexpected evaluations %+v", job.Evaluations)
	}
	op := job.Tasks[0].Operations[0]
	if op.SupervisorRating == nil || *op.SupervisorRating != 8 || op.SupervisorComment != "" {
		t.Errorf("expected propagated rating 8 with empty comment, got %v %q", op.SupervisorRating, op.SupervisorComment)
	}

	if err := cmd.Run(env.Ctx); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected re-evaluation to be rejected, got %v", err)
	}
}
