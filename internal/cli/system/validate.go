package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/moldtrack/internal/cli"
)

type ValidateCmd struct{}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	result, err := validate(ctx)
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimRight(result.FormatReport(), "\n"))
	if result.HasConflicts() {
		return errors.New("validation failed")
	}
	return nil
}
