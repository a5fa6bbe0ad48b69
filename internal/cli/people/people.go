package people

import (
	"errors"
	"fmt"

	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/constants"
	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/models"
)

type PersonAddCmd struct {
	Name string `arg:"" help:"Full name, used as the person's identifier."`
	Role string `arg:"" help:"Role: programmer, machine_operator, supervisor, manager or admin."`
}

// Run registers a person. The first entry may be added without --as.
func (c *PersonAddCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil && !errors.Is(err, cli.ErrNoActor) && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	role, err := models.ParseRole(c.Role)
	if err != nil {
		return err
	}
	p, err := ctx.Service.AddPersonnel(ctx.Ctx(), actor, c.Name, role)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added %s (%s)\n", p.Name, p.Role)
	return nil
}

type PersonListCmd struct{}

func (c *PersonListCmd) Run(ctx *cli.Context) error {
	people, err := ctx.Service.ListPersonnel(ctx.Ctx())
	if err != nil {
		return err
	}
	if len(people) == 0 {
		fmt.Println("No personnel registered. Add the first person with 'moldtrack person add NAME admin'.")
		return nil
	}
	for _, p := range people {
		fmt.Printf("%-28s %s\n", p.Name, p.Role)
	}
	return nil
}

type PersonPerfCmd struct {
	Name   string `arg:"" help:"Contributor name."`
	Filter string `help:"Only include records whose job, task or comments contain this text." short:"f"`
}

func (c *PersonPerfCmd) Run(ctx *cli.Context) error {
	report, err := ctx.Service.QueryPerformance(ctx.Ctx(), c.Name, c.Filter)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", report.Contributor.Name, report.Contributor.Role)
	if report.Count > 0 {
		fmt.Printf("  Average rating: %.1f/%d over %d operations\n", report.Average, constants.MaxRating, report.Count)
	} else {
		fmt.Println("  Average rating: no ratings yet")
	}

	fmt.Printf("\n  Completed operations (%d):\n", len(report.Operations))
	for _, r := range report.Operations {
		op := r.Operation
		fmt.Printf("    %s  %s / %s  %s  machinist %s  supervisor %s\n",
			cli.FormatTime(op.FinishDate), r.JobName, r.TaskName, op.Type,
			cli.FormatRating(op.MachineOperatorRating), cli.FormatRating(op.SupervisorRating))
	}

	if len(report.Evaluations) > 0 {
		fmt.Printf("\n  Job evaluations (%d):\n", len(report.Evaluations))
		for _, r := range report.Evaluations {
			fmt.Printf("    %s  %s  %d/%d  %s\n", r.Evaluation.Date.Local().Format(constants.DateFormat),
				r.JobName, r.Evaluation.GeneralScore, constants.MaxRating, r.Evaluation.GeneralComment)
		}
	}

	if len(report.Reworks) > 0 {
		fmt.Printf("\n  Reworks (%d):\n", len(report.Reworks))
		for _, r := range report.Reworks {
			fmt.Printf("    %s  %s / %s  %s at %d%%\n", cli.FormatTime(&r.Rework.Date),
				r.JobName, r.TaskName, r.Rework.Reason, r.Rework.PreviousProgress)
		}
	}
	return nil
}

type MachineAddCmd struct {
	Name string `arg:"" help:"Machine name, e.g. 'CNC-1'."`
	Kind string `help:"Machine kind, e.g. 'CNC mill'."`
}

func (c *MachineAddCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}
	m, err := ctx.Service.AddMachine(ctx.Ctx(), actor, c.Name, c.Kind)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added machine %s\n", m.Name)
	return nil
}

type MachineListCmd struct{}

func (c *MachineListCmd) Run(ctx *cli.Context) error {
	machines, err := ctx.Service.ListMachines(ctx.Ctx())
	if err != nil {
		return err
	}
	if len(machines) == 0 {
		fmt.Println("No machines registered.")
		return nil
	}
	for _, m := range machines {
		fmt.Printf("%-20s %s\n", m.Name, m.Kind)
	}
	return nil
}
