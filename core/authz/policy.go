// Package authz holds the authorization policy: which roles may perform which actions,
// and how a caller's identity narrows the records they can see.
package authz

import (
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

type Action string

const (
	ReviewPlan          Action = "plan:review"
	ValidateEvidence    Action = "evidence:validate"
	RemindProgress      Action = "progress:remind"
	GeneralReport       Action = "report:general"
	InstitutionalReport Action = "report:institutional"
	ManageUsers         Action = "user:manage"
	ListProfessors      Action = "professor:list"
	RegisterStaff       Action = "user:register-staff"
	SubmitRecords       Action = "record:submit"
)

var (
	ErrForbidden    = core.NewPermissionError("no tienes permiso para realizar esta acción")
	ErrNotOwner     = core.NewPermissionError("no tienes permiso para acceder a este registro")
	ErrUnknownRole  = core.NewPermissionError("rol desconocido")
	staff           = []string{user.RoleCoordinator, user.RoleAdmin}
	defaultPolicies = Policy{
		ReviewPlan:          staff,
		ValidateEvidence:    staff,
		RemindProgress:      staff,
		GeneralReport:       staff,
		InstitutionalReport: staff,
		ListProfessors:      staff,
		ManageUsers:         {user.RoleAdmin},
		RegisterStaff:       {user.RoleAdmin},
		SubmitRecords:       {user.RoleProfessor},
	}
)

// Policy maps every restricted action to the roles allowed to perform it.
type Policy map[Action][]string

// DefaultPolicy returns the policy of the application.
func DefaultPolicy() Policy {
	p := make(Policy, len(defaultPolicies))
	for action, roles := range defaultPolicies {
		p[action] = append([]string(nil), roles...)
	}
	return p
}

// Allows reports whether `role` may perform `action`. Unknown actions are denied.
func (p Policy) Allows(role string, action Action) bool {
	for _, r := range p[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Check returns ErrForbidden unless `usr` may perform `action`.
func (p Policy) Check(usr user.User, action Action) error {
	if !p.Allows(usr.Role, action) {
		return ErrForbidden
	}
	return nil
}

// CanAccess allows staff on every record and professors on the records they own.
func CanAccess(usr user.User, ownerID string) error {
	switch {
	case usr.IsStaff():
		return nil
	case usr.IsProfessor():
		if usr.ID == ownerID {
			return nil
		}
		return ErrNotOwner
	default:
		return ErrUnknownRole
	}
}

// CanModify allows only the owning professor to change a record's content.
func CanModify(usr user.User, ownerID string) error {
	if usr.IsProfessor() && usr.ID == ownerID {
		return nil
	}
	return ErrNotOwner
}

// CanDelete allows the owning professor and admins.
func CanDelete(usr user.User, ownerID string) error {
	if usr.IsAdmin() || (usr.IsProfessor() && usr.ID == ownerID) {
		return nil
	}
	return ErrNotOwner
}

// Scope narrows a list query to the records a caller may see.
type Scope struct {
	ProfessorID   string
	ProfessorName string
}

// ScopeFor forces professors onto their own records; staff may narrow by professor name.
func ScopeFor(usr user.User, professorName string) Scope {
	if usr.IsProfessor() {
		return Scope{ProfessorID: usr.ID}
	}
	return Scope{ProfessorName: core.CleanString(professorName)}
}
