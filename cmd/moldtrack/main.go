package main

import (
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/cli/backups"
	"github.com/julianstephens/moldtrack/internal/cli/jobs"
	"github.com/julianstephens/moldtrack/internal/cli/ops"
	"github.com/julianstephens/moldtrack/internal/cli/people"
	"github.com/julianstephens/moldtrack/internal/cli/system"
	"github.com/julianstephens/moldtrack/internal/config"
	"github.com/julianstephens/moldtrack/internal/constants"
	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/service"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Config file path." default:"${config_path}"`
	Database string `help:"SQLite path, postgres:// URL or mysql:// DSN. Overrides config. Credentials must NOT be embedded; use the OS keyring."`
	As       string `help:"Name of the person acting. Overrides config."`
	Debug    bool   `help:"Log debug output to stderr."`

	Init     system.InitCmd     `cmd:"" help:"Initialize moldtrack storage."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Validate system.ValidateCmd `cmd:"" help:"Validate the job graph for conflicts."`
	Board    system.BoardCmd    `cmd:"" help:"Launch the live job board." default:"1"`
	Debugs   system.DebugCmd    `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
	Job      struct {
		Add      jobs.JobAddCmd      `cmd:"" help:"Create a job (mold)."`
		List     jobs.JobListCmd     `cmd:"" help:"List jobs."`
		Show     jobs.JobShowCmd     `cmd:"" help:"Show a job with its tasks and operations."`
		Status   jobs.JobStatusCmd   `cmd:"" help:"Change a job's status."`
		Evaluate jobs.JobEvaluateCmd `cmd:"" help:"Score every contributor and complete the job."`
	} `cmd:"" help:"Manage jobs."`
	Task struct {
		Add      jobs.TaskAddCmd      `cmd:"" help:"Add a task to a job."`
		Critical jobs.TaskCriticalCmd `cmd:"" help:"Mark a task critical with a note."`
	} `cmd:"" help:"Manage tasks."`
	Op struct {
		Add      ops.OpAddCmd      `cmd:"" help:"Add an operation to a task."`
		Assign   ops.OpAssignCmd   `cmd:"" help:"Start or resume an operation on a machine."`
		Progress ops.OpProgressCmd `cmd:"" help:"Report progress."`
		Pause    ops.OpPauseCmd    `cmd:"" help:"Pause an operation and release its machine."`
		Review   ops.OpReviewCmd   `cmd:"" help:"Machine operator review; finishes the work."`
		Approve  ops.OpApproveCmd  `cmd:"" help:"Supervisor review; completes the operation."`
		Issue    ops.OpIssueCmd    `cmd:"" help:"Report a problem and send the operation back for rework."`
		History  ops.OpHistoryCmd  `cmd:"" help:"Show an operation with its rework history."`
	} `cmd:"" help:"Work on operations."`
	Person struct {
		Add  people.PersonAddCmd  `cmd:"" help:"Register a person."`
		List people.PersonListCmd `cmd:"" help:"List personnel."`
		Perf people.PersonPerfCmd `cmd:"" help:"Show a contributor's performance."`
	} `cmd:"" help:"Manage personnel."`
	Machine struct {
		Add  people.MachineAddCmd  `cmd:"" help:"Register a machine."`
		List people.MachineListCmd `cmd:"" help:"List machines."`
	} `cmd:"" help:"Manage machines."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store the connection string or password in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string (masked)."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove a stored credential."`
	} `cmd:"" help:"Manage database credentials in the OS keyring."`
}

// Commands that open the store themselves, or never touch it.
var skipLoad = []string{"init", "doctor", "board", "keyring"}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Mold job, task and operation tracking for the shop floor"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
		},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		apperr.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: CLI.Debug || cfg.Log.Debug, ConfigDir: cfg.Dir()}); err != nil {
		apperr.Fatalf("failed to initialize logger: %v", err)
	}

	if CLI.Database != "" {
		cfg.Database = CLI.Database
	}
	if CLI.As != "" {
		cfg.Actor = CLI.As
	}

	store, err := cli.OpenStore(cfg.Database)
	if err != nil {
		apperr.Fatal(err)
	}

	publisher, subscriber, err := cli.OpenEvents(cfg)
	if err != nil {
		// Work continues without the bus; the board falls back to polling.
		logger.Warn("Event bus unavailable", "error", err)
		publisher, subscriber = nil, nil
	}
	if publisher != nil {
		defer publisher.Close()
	}

	appCtx := &cli.Context{
		Store:     store,
		Service:   service.New(store, service.WithPublisher(publisher)),
		Config:    cfg,
		ActorName: cfg.Actor,
		Events:    subscriber,
	}

	if needsLoad(ctx.Command()) {
		if err := store.Load(); err != nil {
			apperr.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	_ = store.Close()
	if err != nil {
		if publisher != nil {
			publisher.Close()
		}
		apperr.Fatal(err)
	}
}

func needsLoad(command string) bool {
	for _, name := range skipLoad {
		if command == name || strings.HasPrefix(command, name+" ") {
			return false
		}
	}
	return true
}
