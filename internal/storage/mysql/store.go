package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/migration"
	"github.com/julianstephens/moldtrack/internal/storage/sqlstore"
	"github.com/julianstephens/moldtrack/migrations"
)

// Scheme prefixes a MySQL DSN given on the command line, e.g.
// mysql://shop@tcp(db.local:3306)/moldtrack.
const Scheme = "mysql://"

var (
	ErrInvalidDSN          = errors.New("invalid MySQL DSN")
	ErrEmbeddedCredentials = errors.New("DSN must not contain a password")
)

type Store struct {
	*sqlstore.DB

	cfg *driver.Config
	db  *sql.DB
}

// IsDSN reports whether s selects the MySQL backend.
func IsDSN(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseDSN validates a MySQL DSN (with or without the mysql:// prefix) and returns the
// driver config moldtrack connects with.
func ParseDSN(dsn string) (*driver.Config, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(dsn), Scheme)
	if raw == "" {
		return nil, fmt.Errorf("%w: DSN cannot be empty", ErrInvalidDSN)
	}
	cfg, err := driver.ParseDSN(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("%w: database name is required", ErrInvalidDSN)
	}
	// UPDATE must report matched rows so unchanged writes are not mistaken for missing ids.
	cfg.ClientFoundRows = true
	cfg.ParseTime = false
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg, nil
}

// ValidateDSN rejects malformed DSNs and DSNs carrying a password.
func ValidateDSN(dsn string) error {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return err
	}
	if cfg.Passwd != "" {
		return ErrEmbeddedCredentials
	}
	return nil
}

// New builds a store for dsn. A password, if any, is supplied separately so it never has
// to appear on the command line.
func New(dsn, password string) (*Store, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if password != "" {
		cfg.Passwd = password
	}
	return &Store{cfg: cfg}, nil
}

func (s *Store) open() error {
	connector, err := driver.NewConnector(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	s.DB = sqlstore.New(db, sqlstore.MySQL)
	return nil
}

func (s *Store) Init() error {
	if s.db == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if _, err := s.runner().ApplyMigrations(func(msg string) { logger.Debug(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}
	if err := s.open(); err != nil {
		return err
	}
	return s.runner().ValidateVersion()
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.DB = nil
		return err
	}
	return nil
}

func (s *Store) runner() *migration.Runner {
	subFS, err := fs.Sub(migrations.FS, "mysql")
	if err != nil {
		panic(fmt.Sprintf("mysql migrations missing: %v", err))
	}
	return migration.NewRunner(s.db, subFS, nil)
}

func (s *Store) SchemaStatus() (int, int, error) {
	if s.db == nil {
		return 0, 0, sqlstore.ErrNotLoaded
	}
	r := s.runner()
	current, err := r.GetCurrentVersion()
	if err != nil {
		return 0, 0, err
	}
	latest, err := r.GetLatestVersion()
	if err != nil {
		return 0, 0, err
	}
	return current, latest, nil
}

func (s *Store) GetConfigPath() string {
	return "mysql"
}
