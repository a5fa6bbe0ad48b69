package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/keyring"
	"github.com/julianstephens/moldtrack/internal/storage/mysql"
	"github.com/julianstephens/moldtrack/internal/storage/postgres"
)

// KeyringSetCmd stores a connection string or database password in the OS keyring
type KeyringSetCmd struct {
	Item  string `arg:"" enum:"connection,password" help:"What to store: connection or password."`
	Value string `arg:"" optional:"" help:"Value to store. Prompted for when omitted."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	value := cmd.Value
	if value == "" {
		if !ctx.IsInteractive() {
			return errors.New("value is required when not running on a terminal")
		}
		input := huh.NewInput().Title(fmt.Sprintf("Enter the %s", cmd.Item)).Value(&value)
		if cmd.Item == "password" {
			input = input.EchoMode(huh.EchoModePassword)
		}
		if err := huh.NewForm(huh.NewGroup(input)).WithTheme(huh.ThemeDracula()).Run(); err != nil {
			return err
		}
	}

	item := keyring.DatabasePassword
	if cmd.Item == "connection" {
		item = keyring.ConnectionString
		if err := checkConnectionString(value); err != nil {
			return err
		}
	}

	if err := keyring.Set(item, value); err != nil {
		return err
	}
	fmt.Printf("✓ %s stored in OS keyring\n", item)
	return nil
}

// checkConnectionString accepts postgres URLs and mysql:// DSNs. Embedded credentials are
// allowed here since the keyring itself is encrypted.
func checkConnectionString(s string) error {
	switch {
	case postgres.IsConnString(s):
		if _, err := postgres.ValidateConnString(s); err != nil && !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
	case mysql.IsDSN(s):
		if _, err := mysql.ParseDSN(s); err != nil {
			return fmt.Errorf("invalid connection string: %w", err)
		}
	default:
		return errors.New("connection string must start with postgres://, postgresql:// or mysql://")
	}
	return nil
}

// KeyringGetCmd prints the stored connection string with its password masked
type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'moldtrack keyring set connection' to store one")
		}
		return err
	}
	fmt.Println(maskPassword(connStr))

	if pw, err := keyring.Password(); err == nil && pw != "" {
		fmt.Println("A database password is also stored.")
	}
	return nil
}

type KeyringDeleteCmd struct {
	Item string `arg:"" enum:"connection,password" help:"What to delete: connection or password."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	item := keyring.DatabasePassword
	if cmd.Item == "connection" {
		item = keyring.ConnectionString
	}
	if err := keyring.Delete(item); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", item)
		}
		return err
	}
	fmt.Printf("✓ %s deleted from OS keyring\n", item)
	return nil
}

// maskPassword masks the password of a URL-style connection string
func maskPassword(connStr string) string {
	idx := strings.Index(connStr, "://")
	if idx == -1 {
		return connStr
	}
	rest := connStr[idx+3:]
	at := strings.LastIndex(rest, "@")
	if at == -1 {
		return connStr
	}
	userInfo := rest[:at]
	colon := strings.Index(userInfo, ":")
	if colon == -1 {
		return connStr
	}
	return connStr[:idx+3] + userInfo[:colon] + ":****" + rest[at:]
}
