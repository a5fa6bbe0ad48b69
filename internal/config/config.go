// Package config loads moldtrack settings from config.yaml, an optional .env
// file and MOLDTRACK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/moldtrack/internal/constants"
)

type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

type BoardConfig struct {
	RefreshSeconds int `yaml:"refresh_seconds,omitempty"`
}

type LogConfig struct {
	Debug bool `yaml:"debug,omitempty"`
}

type Config struct {
	// Database is a SQLite path, a postgres:// URL or a mysql:// DSN.
	Database string       `yaml:"database,omitempty"`
	Actor    string       `yaml:"actor,omitempty"`
	Events   EventsConfig `yaml:"events,omitempty"`
	Board    BoardConfig  `yaml:"board,omitempty"`
	Log      LogConfig    `yaml:"log,omitempty"`

	path string
}

func Default() *Config {
	return &Config{
		Database: constants.DefaultDatabase,
		Events:   EventsConfig{Subject: constants.DefaultEventSubject},
		Board:    BoardConfig{RefreshSeconds: int(constants.DefaultBoardRefresh / time.Second)},
	}
}

// Load reads path (missing is fine), then .env files from the working directory and the
// config directory, then environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = constants.DefaultConfigPath
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.path = expanded

	data, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", expanded, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", expanded, err)
	}

	loadDotEnv(".env", filepath.Join(filepath.Dir(expanded), ".env"))
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv never overrides variables already set in the environment.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(constants.EnvDatabase)); v != "" {
		c.Database = v
	}
	if v := strings.TrimSpace(os.Getenv(constants.EnvNATSURL)); v != "" {
		c.Events.NATSURL = v
	}
	if v := strings.TrimSpace(os.Getenv(constants.EnvActor)); v != "" {
		c.Actor = v
	}
}

func (c *Config) applyDefaults() {
	c.Database = strings.TrimSpace(c.Database)
	if strings.TrimSpace(c.Events.Subject) == "" {
		c.Events.Subject = constants.DefaultEventSubject
	}
	if c.Board.RefreshSeconds == 0 {
		c.Board.RefreshSeconds = int(constants.DefaultBoardRefresh / time.Second)
	}
}

func (c *Config) validate() error {
	if c.Board.RefreshSeconds < int(constants.MinBoardRefreshPeriod/time.Second) {
		return fmt.Errorf("board.refresh_seconds must be at least %d", int(constants.MinBoardRefreshPeriod/time.Second))
	}
	if strings.ContainsAny(c.Events.Subject, " *>") {
		return fmt.Errorf("events.subject %q must not contain spaces or wildcards", c.Events.Subject)
	}
	return nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Dir is the directory holding config.yaml, logs and the default database.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

func (c *Config) BoardRefresh() time.Duration {
	return time.Duration(c.Board.RefreshSeconds) * time.Second
}

// Save writes the config back to its path.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", c.path, err)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: resolve home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
