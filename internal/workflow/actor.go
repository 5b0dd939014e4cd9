package workflow

import (
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
)

// Actor is the caller of an operation, resolved by the identity layer and
// passed in explicitly. Nothing in this package reads ambient user state.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

func (a Actor) check(op string) error {
	if a.ID == uuid.Nil {
		return forbidden(op, "missing actor")
	}
	switch a.Role {
	case models.RoleClient, models.RoleStudent, models.RoleAdmin:
		return nil
	}
	return forbidden(op, "unknown role "+string(a.Role))
}

func (a Actor) isAdmin() bool { return a.Role == models.RoleAdmin }

// requireStudent: the actor must be the project's assigned student.
func requireStudent(op string, a Actor, p *models.Project) error {
	if a.Role != models.RoleStudent || p.AssignedTo != a.ID {
		return forbidden(op, "only the assigned student can do this")
	}
	return nil
}

// requireClient: the actor must be the client who assigned the project.
func requireClient(op string, a Actor, p *models.Project) error {
	if a.Role != models.RoleClient || p.AssignedBy != a.ID {
		return forbidden(op, "only the project's client can do this")
	}
	return nil
}

func requireParticipant(op string, a Actor, p *models.Project) error {
	if a.isAdmin() || p.IsParticipant(a.ID) {
		return nil
	}
	return forbidden(op, "not a participant of this project")
}
