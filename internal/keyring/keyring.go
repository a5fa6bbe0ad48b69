package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/moldtrack/internal/constants"
)

var (
	// ErrNotFound is returned when no connection string is stored
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be reached
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Item names a value moldtrack keeps in the OS keyring.
type Item string

const (
	// ConnectionString is a Postgres or MySQL connection string without a password.
	ConnectionString Item = constants.DefaultKeyringUser
	// DatabasePassword is the password used alongside ConnectionString.
	DatabasePassword Item = "database-password"
)

func Get(item Item) (string, error) {
	v, err := keyring.Get(constants.AppName, string(item))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

func Set(item Item, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}
	if err := keyring.Set(constants.AppName, string(item), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", item, err)
	}
	return nil
}

func Delete(item Item) error {
	if err := keyring.Delete(constants.AppName, string(item)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", item, err)
	}
	return nil
}

// GetConnectionString retrieves the stored database connection string.
func GetConnectionString() (string, error) {
	return Get(ConnectionString)
}

// Password returns the stored database password, or "" when none is stored.
func Password() (string, error) {
	pw, err := Get(DatabasePassword)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return pw, err
}

// IsAvailable checks if the OS keyring is usable. Best effort.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
