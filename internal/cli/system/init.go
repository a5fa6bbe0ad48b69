package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/storage/sqlite"
)

type InitCmd struct {
	Force       bool `help:"Force reset by deleting an existing SQLite database before initialization."`
	WriteConfig bool `help:"Write the effective settings to config.yaml if it does not exist." name:"write-config"`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if _, ok := ctx.Store.(*sqlite.Store); !ok {
			return fmt.Errorf("--force is only supported for SQLite databases")
		}
		dbPath := ctx.Store.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			// Close first to release the file
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized moldtrack storage at: %s\n", ctx.Store.GetConfigPath())

	if c.WriteConfig && ctx.Config != nil {
		if _, err := os.Stat(ctx.Config.Path()); os.IsNotExist(err) {
			if err := ctx.Config.Save(); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("Wrote config to: %s\n", ctx.Config.Path())
		}
	}
	return nil
}
