package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

var (
	prof  = user.User{ID: "p1", Name: "Ana", Role: user.RoleProfessor}
	prof2 = user.User{ID: "p2", Name: "Beto", Role: user.RoleProfessor}
	coord = user.User{ID: "c1", Name: "Carla", Role: user.RoleCoordinator}
	admin = user.User{ID: "a1", Name: "Dani", Role: user.RoleAdmin}
)

func TestPolicy_Allows(t *testing.T) {
	p := DefaultPolicy()
	staffOnly := []Action{ReviewPlan, ValidateEvidence, RemindProgress, GeneralReport, InstitutionalReport, ListProfessors}
	for _, action := range staffOnly {
		assert.False(t, p.Allows(user.RoleProfessor, action), "profesor %s", action)
		assert.True(t, p.Allows(user.RoleCoordinator, action), "coordinador %s", action)
		assert.True(t, p.Allows(user.RoleAdmin, action), "admin %s", action)
	}
	assert.False(t, p.Allows(user.RoleCoordinator, ManageUsers))
	assert.True(t, p.Allows(user.RoleAdmin, ManageUsers))
	assert.False(t, p.Allows(user.RoleAdmin, Action("unknown")))
	assert.True(t, p.Allows(user.RoleProfessor, SubmitRecords))
	assert.False(t, p.Allows(user.RoleCoordinator, SubmitRecords))

	assert.Equal(t, ErrForbidden, p.Check(prof, GeneralReport))
	assert.NoError(t, p.Check(coord, GeneralReport))

	// DefaultPolicy hands out copies
	p[ReviewPlan] = nil
	assert.True(t, DefaultPolicy().Allows(user.RoleCoordinator, ReviewPlan))
}

func TestOwnership(t *testing.T) {
	tests := []struct {
		name       string
		usr        user.User
		wantAccess error
		wantModify error
		wantDelete error
	}{
		{name: "owner", usr: prof},
		{name: "other professor", usr: prof2, wantAccess: ErrNotOwner, wantModify: ErrNotOwner, wantDelete: ErrNotOwner},
		{name: "coordinator", usr: coord, wantModify: ErrNotOwner, wantDelete: ErrNotOwner},
		{name: "admin", usr: admin, wantModify: ErrNotOwner},
		{name: "no role", usr: user.User{ID: "x"}, wantAccess: ErrUnknownRole, wantModify: ErrNotOwner, wantDelete: ErrNotOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantAccess, CanAccess(tt.usr, prof.ID))
			assert.Equal(t, tt.wantModify, CanModify(tt.usr, prof.ID))
			assert.Equal(t, tt.wantDelete, CanDelete(tt.usr, prof.ID))
		})
	}
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, Scope{ProfessorID: prof.ID}, ScopeFor(prof, "Beto"))
	assert.Equal(t, Scope{ProfessorName: "Beto"}, ScopeFor(coord, " Beto "))
	assert.Equal(t, Scope{}, ScopeFor(admin, ""))
}
