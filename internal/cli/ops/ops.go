package ops

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/cli/forms"
	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
	"github.com/julianstephens/moldtrack/internal/models"
)

type OpAddCmd struct {
	TaskID string `arg:"" help:"Task ID."`
	Type   string `arg:"" help:"Operation type, e.g. CNC, EROSION, GRINDING."`
}

func (c *OpAddCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	opType, err := models.ParseOperationType(c.Type)
	if err != nil {
		return err
	}
	op, err := ctx.Service.AddOperation(ctx.Ctx(), actor, c.TaskID, opType)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added %s operation (ID: %s)\n", op.Type, op.ID)
	return nil
}

type OpAssignCmd struct {
	ID       string `arg:"" help:"Operation ID."`
	Machine  string `help:"Machine to run the operation on." short:"m" required:""`
	Operator string `help:"Machine operator who runs it." short:"o" required:""`
	Due      string `help:"Estimated due date (YYYY-MM-DD)."`
	Ack      bool   `help:"Acknowledge the critical note of the task."`
}

func (c *OpAssignCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	due, err := cli.ParseDate(c.Due)
	if err != nil {
		return err
	}
	in := lifecycle.AssignInput{
		Machine:         c.Machine,
		MachineOperator: c.Operator,
		DueDate:         due,
		CriticalAck:     c.Ack,
	}

	op, err := ctx.Service.Assign(ctx.Ctx(), actor, c.ID, in)
	var ackErr *apperr.CriticalAckError
	if errors.As(err, &ackErr) && ctx.IsInteractive() {
		ok, ferr := forms.ConfirmCritical(ackErr.TaskName, ackErr.Note)
		if ferr != nil {
			return ferr
		}
		if !ok {
			fmt.Println("Assignment cancelled.")
			return nil
		}
		in.CriticalAck = true
		op, err = ctx.Service.Assign(ctx.Ctx(), actor, c.ID, in)
	}
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s operation started on %s by %s\n", op.Type, op.MachineName, op.MachineOperatorName)
	return nil
}

type OpProgressCmd struct {
	ID      string `arg:"" help:"Operation ID."`
	Percent int    `arg:"" help:"Progress percentage (0-100)."`
}

func (c *OpProgressCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	res, err := ctx.Service.UpdateProgress(ctx.Ctx(), actor, c.ID, lifecycle.ProgressInput{Percentage: c.Percent})
	if err != nil {
		return err
	}
	if !res.ReviewRequired {
		fmt.Printf("✓ Progress set to %d%%\n", res.Operation.ProgressPercentage)
		return nil
	}

	if !ctx.IsInteractive() {
		fmt.Printf("Operation is done. Close it with 'moldtrack op review %s --rating N'.\n", c.ID)
		return nil
	}
	var f forms.ReviewFields
	if err := forms.NewReviewForm("Rate the machinist's work", &f).Run(); err != nil {
		return err
	}
	review := &OpReviewCmd{ID: c.ID, Comment: f.Comment}
	if review.Rating, err = strconv.Atoi(strings.TrimSpace(f.Rating)); err != nil {
		return err
	}
	return review.Run(ctx)
}

type OpPauseCmd struct {
	ID       string `arg:"" help:"Operation ID."`
	Progress *int   `help:"Progress to record at the pause."`
}

func (c *OpPauseCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	op, err := ctx.Service.Pause(ctx.Ctx(), actor, c.ID, lifecycle.PauseInput{Progress: c.Progress})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Operation paused at %d%%; machine %s released\n", op.ProgressPercentage, op.MachineName)
	return nil
}

// OpReviewCmd is the machine operator's review that closes the work.
type OpReviewCmd struct {
	ID      string `arg:"" help:"Operation ID."`
	Rating  int    `help:"Rating of the machinist's work (1-10)." required:""`
	Comment string `help:"Review comment."`
}

func (c *OpReviewCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	op, err := ctx.Service.ReviewMachineOperator(ctx.Ctx(), actor, c.ID, lifecycle.ReviewInput{Rating: c.Rating, Comment: c.Comment})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Operation finished after %.1fh, waiting for supervisor review\n", op.DurationInHours)
	return nil
}

// OpApproveCmd is the supervisor's review that completes the operation.
type OpApproveCmd struct {
	ID      string `arg:"" help:"Operation ID."`
	Rating  int    `help:"Rating of the machine operator (1-10)." required:""`
	Comment string `help:"Review comment."`
}

func (c *OpApproveCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	if _, err := ctx.Service.ReviewSupervisor(ctx.Ctx(), actor, c.ID, lifecycle.ReviewInput{Rating: c.Rating, Comment: c.Comment}); err != nil {
		return err
	}
	fmt.Println("✓ Operation completed")
	return nil
}

type OpIssueCmd struct {
	ID          string `arg:"" help:"Operation ID."`
	Reason      string `arg:"" help:"Short reason, e.g. 'tool breakage'."`
	Description string `help:"Details of the problem." short:"d"`
}

func (c *OpIssueCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	op, err := ctx.Service.ReportIssue(ctx.Ctx(), actor, c.ID, lifecycle.IssueInput{Reason: c.Reason, Description: c.Description})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Issue recorded; operation reset (rework #%d)\n", len(op.ReworkHistory))
	return nil
}

type OpHistoryCmd struct {
	ID string `arg:"" help:"Operation ID."`
}

func (c *OpHistoryCmd) Run(ctx *cli.Context) error {
	op, err := ctx.Service.GetOperation(ctx.Ctx(), c.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s operation %s\n", op.Type, op.ID)
	fmt.Printf("  Status:     %s, %d%%\n", op.Status, op.ProgressPercentage)
	fmt.Printf("  Machine:    %s\n", orDash(op.MachineName))
	fmt.Printf("  Operator:   %s\n", orDash(op.MachineOperatorName))
	fmt.Printf("  Assigned:   %s\n", orDash(op.AssignedOperator))
	fmt.Printf("  Started:    %s\n", cli.FormatTime(op.StartDate))
	fmt.Printf("  Due:        %s\n", cli.FormatTime(op.EstimatedDueDate))
	fmt.Printf("  Finished:   %s (%.1fh)\n", cli.FormatTime(op.FinishDate), op.DurationInHours)
	fmt.Printf("  Machinist:  %s %s\n", cli.FormatRating(op.MachineOperatorRating), op.MachineOperatorComment)
	fmt.Printf("  Supervisor: %s %s\n", cli.FormatRating(op.SupervisorRating), op.SupervisorComment)

	if len(op.ReworkHistory) == 0 {
		return nil
	}
	fmt.Println("\n  Rework history:")
	for _, r := range op.ReworkHistory {
		fmt.Printf("    %s  %s at %d%% by %s\n", cli.FormatTime(&r.Date), r.Reason, r.PreviousProgress, r.ReportedBy)
		if r.Description != "" {
			fmt.Printf("      %s\n", r.Description)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
