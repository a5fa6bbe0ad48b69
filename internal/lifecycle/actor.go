package lifecycle

import (
	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/models"
)

// Capability names an action an actor may perform.
type Capability string

const (
	CapAssign                Capability = "assign"
	CapProgress              Capability = "update progress"
	CapPause                 Capability = "pause"
	CapReviewMachineOperator Capability = "review machine operator"
	CapReviewSupervisor      Capability = "give supervisor review"
	CapReportIssue           Capability = "report issue"
	CapEvaluateJob           Capability = "evaluate job"
	CapMarkCritical          Capability = "mark task critical"
	CapManageGraph           Capability = "manage jobs"
)

var roleCapabilities = map[models.Role][]Capability{
	models.RoleProgrammer: {
		CapAssign, CapProgress, CapPause, CapReviewMachineOperator, CapReportIssue,
		CapMarkCritical, CapManageGraph,
	},
	models.RoleMachineOperator: {},
	models.RoleSupervisor:      {CapReviewSupervisor, CapMarkCritical},
	models.RoleManager:         {CapEvaluateJob, CapMarkCritical, CapManageGraph},
	models.RoleAdmin: {
		CapAssign, CapProgress, CapPause, CapReviewMachineOperator, CapReviewSupervisor,
		CapReportIssue, CapEvaluateJob, CapMarkCritical, CapManageGraph,
	},
}

// Actor is the authenticated person invoking a transition.
type Actor struct {
	Name string
	Role models.Role
}

// NewActor builds an actor from a personnel record.
func NewActor(p models.Personnel) Actor {
	return Actor{Name: p.Name, Role: p.Role}
}

// Can reports whether the actor's role grants c.
func (a Actor) Can(c Capability) bool {
	for _, granted := range roleCapabilities[a.Role] {
		if granted == c {
			return true
		}
	}
	return false
}

// Require returns a ForbiddenError unless the actor holds c.
func (a Actor) Require(c Capability) error {
	if a.Name == "" {
		return apperr.Invalid("actor", "an acting person is required")
	}
	if !a.Can(c) {
		return &apperr.ForbiddenError{Actor: a.Name, Role: string(a.Role), Action: string(c)}
	}
	return nil
}
