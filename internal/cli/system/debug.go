package system

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/moldtrack/internal/cli"
)

type DebugCmd struct {
	DBPath  DebugDBPathCmd  `cmd:"" help:"Show database location."`
	DumpJob DebugDumpJobCmd `cmd:"" help:"Dump a job graph as JSON."`
	DumpOp  DebugDumpOpCmd  `cmd:"" help:"Dump an operation as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(map[string]string{"path": ctx.Store.GetConfigPath()})
}

type DebugDumpJobCmd struct {
	ID string `arg:"" help:"Job ID."`
}

func (cmd *DebugDumpJobCmd) Run(ctx *cli.Context) error {
	job, err := ctx.Service.GetJob(ctx.Ctx(), cmd.ID)
	if err != nil {
		return err
	}
	return printJSON(job)
}

type DebugDumpOpCmd struct {
	ID string `arg:"" help:"Operation ID."`
}

func (cmd *DebugDumpOpCmd) Run(ctx *cli.Context) error {
	op, err := ctx.Service.GetOperation(ctx.Ctx(), cmd.ID)
	if err != nil {
		return err
	}
	return printJSON(op)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(b))
	return nil
}
