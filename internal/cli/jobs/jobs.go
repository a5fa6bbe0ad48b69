package jobs

import (
	"fmt"
	"strings"

	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/constants"
	"github.com/julianstephens/moldtrack/internal/models"
	"github.com/julianstephens/moldtrack/internal/service"
)

type JobAddCmd struct {
	Name     string `arg:"" help:"Job (mold) name."`
	Customer string `help:"Customer the mold is built for." short:"c"`
	Deadline string `help:"Deadline (YYYY-MM-DD)."`
	Priority int    `help:"Priority, higher is more urgent." default:"0"`
}

func (c *JobAddCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	deadline, err := cli.ParseDate(c.Deadline)
	if err != nil {
		return err
	}
	job, err := ctx.Service.CreateJob(ctx.Ctx(), actor, service.JobInput{
		Name:     c.Name,
		Customer: c.Customer,
		Deadline: deadline,
		Priority: c.Priority,
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added job %q (ID: %s)\n", job.Name, job.ID)
	return nil
}

type JobListCmd struct {
	Status string `help:"Only show jobs with this status."`
}

func (c *JobListCmd) Run(ctx *cli.Context) error {
	var want models.JobStatus
	if c.Status != "" {
		s, err := models.ParseJobStatus(c.Status)
		if err != nil {
			return err
		}
		want = s
	}

	jobs, err := ctx.Service.ListJobs(ctx.Ctx())
	if err != nil {
		return err
	}

	shown := 0
	for _, job := range jobs {
		if want != "" && job.Status != want {
			continue
		}
		due := "-"
		if job.Deadline != nil {
			due = job.Deadline.Local().Format(constants.DateFormat)
		}
		fmt.Printf("%-36s  %-24s  %-14s  %3d%%  p%d  due %s\n",
			job.ID, job.Name, job.Status, job.Progress(), job.Priority, due)
		shown++
	}
	if shown == 0 {
		fmt.Println("No jobs found.")
	}
	return nil
}

type JobShowCmd struct {
	ID string `arg:"" help:"Job ID."`
}

func (c *JobShowCmd) Run(ctx *cli.Context) error {
	job, err := ctx.Service.GetJob(ctx.Ctx(), c.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", job.Name, job.ID)
	if job.Customer != "" {
		fmt.Printf("  Customer: %s\n", job.Customer)
	}
	fmt.Printf("  Status:   %s, %d%%\n", job.Status, job.Progress())
	if job.Deadline != nil {
		fmt.Printf("  Deadline: %s\n", job.Deadline.Local().Format(constants.DateFormat))
	}

	for _, task := range job.Tasks {
		marker := ""
		if task.IsCritical {
			marker = " [critical]"
		}
		fmt.Printf("\n  %d. %s%s  %s %d%%  (ID: %s)\n", task.Seq, task.Name, marker, task.Status(), task.Progress(), task.ID)
		if task.IsCritical {
			fmt.Printf("     ! %s\n", task.CriticalNote)
		}
		for _, op := range task.Operations {
			fmt.Printf("     - %-12s %-26s %3d%%  %s  (ID: %s)\n",
				op.Type, op.Status, op.ProgressPercentage, assignment(op), op.ID)
		}
	}

	if len(job.Evaluations) > 0 {
		fmt.Println("\n  Evaluations:")
		for _, ev := range job.Evaluations {
			line := fmt.Sprintf("    %s: %d/%d", ev.OperatorName, ev.GeneralScore, constants.MaxRating)
			if ev.GeneralComment != "" {
				line += "  " + ev.GeneralComment
			}
			fmt.Println(line)
		}
	}
	return nil
}

func assignment(op models.Operation) string {
	var parts []string
	if op.MachineName != "" {
		parts = append(parts, "@"+op.MachineName)
	}
	if op.MachineOperatorName != "" {
		parts = append(parts, op.MachineOperatorName)
	}
	if op.AssignedOperator != "" {
		parts = append(parts, "by "+op.AssignedOperator)
	}
	if len(parts) == 0 {
		return "unassigned"
	}
	return strings.Join(parts, " ")
}

type JobStatusCmd struct {
	ID     string `arg:"" help:"Job ID."`
	Status string `arg:"" help:"New status: OPEN, IN_PRODUCTION or ON_HOLD."`
}

func (c *JobStatusCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	status, err := models.ParseJobStatus(c.Status)
	if err != nil {
		return err
	}
	job, err := ctx.Service.SetJobStatus(ctx.Ctx(), actor, c.ID, status)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Job %q is now %s\n", job.Name, job.Status)
	return nil
}

type TaskAddCmd struct {
	JobID string `arg:"" help:"Job ID."`
	Name  string `arg:"" help:"Task name."`
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	task, err := ctx.Service.AddTask(ctx.Ctx(), actor, c.JobID, c.Name)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added task %d. %s (ID: %s)\n", task.Seq, task.Name, task.ID)
	return nil
}

type TaskCriticalCmd struct {
	ID   string `arg:"" help:"Task ID."`
	Note string `arg:"" help:"Note every assigner must acknowledge."`
}

func (c *TaskCriticalCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	task, err := ctx.Service.MarkTaskCritical(ctx.Ctx(), actor, c.ID, c.Note)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Task %q marked critical\n", task.Name)
	return nil
}
