package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/julianstephens/moldtrack/internal/backup"
	"github.com/julianstephens/moldtrack/internal/config"
	"github.com/julianstephens/moldtrack/internal/constants"
	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/events"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/service"
	"github.com/julianstephens/moldtrack/internal/storage"
	"github.com/julianstephens/moldtrack/internal/storage/sqlite"
)

// ErrNoActor is returned when a command needs an actor and none was configured.
var ErrNoActor = errors.New("no acting person set; pass --as NAME, set MOLDTRACK_ACTOR or 'actor' in config.yaml")

type Context struct {
	Store     storage.Provider
	Service   *service.Service
	Config    *config.Config
	ActorName string
	// Events is set when the bus can be subscribed to; the board uses it for live refresh.
	Events events.Subscriber
	// Interactive reports whether prompts may be shown. Defaults to a TTY check on stdin.
	Interactive func() bool
}

// Ctx returns the context every command runs its storage calls under.
func (c *Context) Ctx() context.Context {
	return context.Background()
}

// Actor resolves the acting person from the personnel registry.
func (c *Context) Actor() (lifecycle.Actor, error) {
	name := strings.TrimSpace(c.ActorName)
	if name == "" {
		return lifecycle.Actor{}, ErrNoActor
	}
	return c.Service.ResolveActor(c.Ctx(), name)
}

// IsInteractive reports whether stdin is a terminal.
func (c *Context) IsInteractive() bool {
	if c.Interactive != nil {
		return c.Interactive()
	}
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ParseDate parses a YYYY-MM-DD date in local time. An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(constants.DateFormat, s, time.Local)
	if err != nil {
		return nil, apperr.Invalid("date", "expected YYYY-MM-DD, got %q", s)
	}
	return &t, nil
}

// FormatTime renders an optional timestamp for tables.
func FormatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(constants.DateTimeFormat)
}

// FormatRating renders an optional rating.
func FormatRating(r *int) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d", *r, constants.MaxRating)
}
