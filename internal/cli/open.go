package cli

import (
	"errors"
	"fmt"

	"github.com/julianstephens/moldtrack/internal/config"
	"github.com/julianstephens/moldtrack/internal/constants"
	"github.com/julianstephens/moldtrack/internal/events"
	"github.com/julianstephens/moldtrack/internal/keyring"
	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/storage"
	"github.com/julianstephens/moldtrack/internal/storage/mysql"
	"github.com/julianstephens/moldtrack/internal/storage/postgres"
	"github.com/julianstephens/moldtrack/internal/storage/sqlite"
)

// ErrEmbeddedCredentials is returned when a server connection string given in flags,
// config or environment carries a password.
var ErrEmbeddedCredentials = errors.New("connection strings with embedded credentials are not allowed; " +
	"store the password with 'moldtrack keyring set password' or use .pgpass")

// OpenStore picks the backend for database: a postgres:// URL, a mysql:// DSN, or a SQLite
// path. An empty database falls back to the connection string in the OS keyring, then to
// the default SQLite file.
func OpenStore(database string) (storage.Provider, error) {
	fromKeyring := false
	if database == "" {
		connStr, err := keyring.GetConnectionString()
		switch {
		case err == nil:
			database = connStr
			fromKeyring = true
		case errors.Is(err, keyring.ErrNotFound), errors.Is(err, keyring.ErrKeyringUnavailable):
			database = constants.DefaultDatabase
		default:
			return nil, err
		}
	}

	switch {
	case postgres.IsConnString(database):
		if !fromKeyring && postgres.HasEmbeddedCredentials(database) {
			return nil, ErrEmbeddedCredentials
		}
		return postgres.New(database), nil

	case mysql.IsDSN(database):
		if !fromKeyring {
			if err := mysql.ValidateDSN(database); err != nil {
				if errors.Is(err, mysql.ErrEmbeddedCredentials) {
					return nil, ErrEmbeddedCredentials
				}
				return nil, err
			}
		}
		password, err := keyring.Password()
		if err != nil {
			logger.Warn("Could not read database password from keyring", "error", err)
		}
		return mysql.New(database, password)

	default:
		path, err := config.ExpandPath(database)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		return sqlite.NewStore(path), nil
	}
}

// OpenEvents connects the event bus when a NATS URL is configured. Without one, changes
// are not published and the board polls.
func OpenEvents(cfg *config.Config) (events.Publisher, events.Subscriber, error) {
	if cfg == nil || cfg.Events.NATSURL == "" {
		return events.Nop{}, nil, nil
	}
	bus, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject)
	if err != nil {
		return nil, nil, err
	}
	return bus, bus, nil
}
