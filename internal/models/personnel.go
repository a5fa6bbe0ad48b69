package models

import (
	"strings"
	"time"

	apperr "github.com/julianstephens/moldtrack/internal/errors"
)

type Role string

const (
	RoleProgrammer      Role = "programmer"
	RoleMachineOperator Role = "machine_operator"
	RoleSupervisor      Role = "supervisor"
	RoleManager         Role = "manager"
	RoleAdmin           Role = "admin"
)

// Roles lists every known role.
var Roles = []Role{RoleProgrammer, RoleMachineOperator, RoleSupervisor, RoleManager, RoleAdmin}

// ParseRole accepts the role name case-insensitively, with '-' or '_' separators.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", apperr.Invalid("role", "unknown role %q", s)
}

// Personnel is a person who acts on operations. The core only reads it.
type Personnel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Machine is a shared physical resource identified by name.
type Machine struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
