package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/moldtrack/internal/backup"
	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/keyring"
	"github.com/julianstephens/moldtrack/internal/storage/sqlite"
	"github.com/julianstephens/moldtrack/internal/validation"
)

type DoctorCmd struct{}

type check struct {
	name string
	// needsDB checks are skipped when the database cannot be reached.
	needsDB bool
	// warnOnly failures do not fail the command.
	warnOnly bool
	run      func(*cli.Context) error
}

var checks = []check{
	{name: "Schema version", needsDB: true, run: checkSchemaVersion},
	{name: "Data validation", needsDB: true, run: checkValidation},
	{name: "Personnel registry", needsDB: true, warnOnly: true, run: checkPersonnel},
	{name: "Backups present", warnOnly: true, run: checkBackupsPresent},
	{name: "OS keyring", warnOnly: true, run: checkKeyring},
	{name: "Clock/timezone", run: checkClockTimezone},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := true
	if err := checkDBReachable(ctx); err != nil {
		fmt.Printf("❌ Database reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		fmt.Printf("✓ Database reachable: OK\n")
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		return errors.New("diagnostics found problems")
	}
	fmt.Println("All checks passed.")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Service.ListMachines(ctx.Ctx()); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaStatus()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than this binary supports (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("database schema version (%d) is behind (%d); run 'moldtrack init' to migrate", current, latest)
	}
	return nil
}

func checkValidation(ctx *cli.Context) error {
	result, err := validate(ctx)
	if err != nil {
		return err
	}
	if result.HasConflicts() {
		return fmt.Errorf("%d conflicts found; run 'moldtrack validate' for details", len(result.Conflicts))
	}
	return nil
}

func checkPersonnel(ctx *cli.Context) error {
	people, err := ctx.Service.ListPersonnel(ctx.Ctx())
	if err != nil {
		return err
	}
	if len(people) == 0 {
		return errors.New("no personnel registered; add the first admin with 'moldtrack person add NAME admin'")
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'moldtrack backup create'")
	}
	return nil
}

func checkKeyring(*cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}

func checkClockTimezone(*cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

// validate runs the graph validator over everything in the store.
func validate(ctx *cli.Context) (validation.ValidationResult, error) {
	jobs, err := ctx.Service.ListJobs(ctx.Ctx())
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to load jobs: %w", err)
	}
	machines, err := ctx.Service.ListMachines(ctx.Ctx())
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to load machines: %w", err)
	}
	people, err := ctx.Service.ListPersonnel(ctx.Ctx())
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to load personnel: %w", err)
	}
	// Empty registries skip reference checks.
	if len(machines) == 0 {
		machines = nil
	}
	if len(people) == 0 {
		people = nil
	}
	return validation.New().ValidateJobs(jobs, machines, people), nil
}
