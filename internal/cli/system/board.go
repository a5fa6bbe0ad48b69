package system

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/service"
	"github.com/julianstephens/moldtrack/internal/tui"
)

type BoardCmd struct {
	Refresh time.Duration `help:"Polling interval; defaults to board.refresh_seconds from config."`
}

func (c *BoardCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()

	refresh := c.Refresh
	if refresh == 0 && ctx.Config != nil {
		refresh = ctx.Config.BoardRefresh()
	}

	model := tui.NewModel(BoardLoader(ctx.Service), tui.Options{Refresh: refresh, Events: ctx.Events})
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("board exited: %w", err)
	}
	return nil
}

// BoardLoader reads the jobs and registries the board renders.
func BoardLoader(svc *service.Service) tui.Loader {
	return func(ctx context.Context) (tui.Snapshot, error) {
		jobs, err := svc.ListJobs(ctx)
		if err != nil {
			return tui.Snapshot{}, err
		}
		machines, err := svc.ListMachines(ctx)
		if err != nil {
			return tui.Snapshot{}, err
		}
		people, err := svc.ListPersonnel(ctx)
		if err != nil {
			return tui.Snapshot{}, err
		}
		return tui.Snapshot{Jobs: jobs, Machines: machines, People: people, LoadedAt: time.Now()}, nil
	}
}
