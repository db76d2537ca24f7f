package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
	inmemdb "github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database/inmem"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/testutil"
)

type failingProfileRepo struct {
	user.Repository
}

func (failingProfileRepo) CreateProfessor(context.Context, user.Professor) (user.Professor, error) {
	return user.Professor{}, errors.New("db down")
}

func newService(t *testing.T) (*user.Service, user.Repository, *validator.Validate) {
	t.Helper()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	validate, _ := testutil.NewValidator()
	return user.NewService(repo, core.NewTestConfig()), repo, validate
}

func validNewUser() user.NewUser {
	return user.NewUser{
		Email:          " Ana@Escuela.MX ",
		Password:       "Pizarra-2024",
		Name:           "Ana López",
		EmployeeNumber: "E-001",
		Department:     "Matemáticas",
		Subjects:       []string{"Álgebra", " ", "Cálculo"},
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var names []string
	switch e := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			names = append(names, fe.Field())
		}
	case *core.ValidationError:
		for _, fe := range e.Fields {
			names = append(names, fe.Field)
		}
	default:
		t.Fatalf("unexpected error type %T: %v", err, err)
	}
	return names
}

func TestNewUser_Validate(t *testing.T) {
	svc, repo, validate := newService(t)
	testutil.CreateUser(t, repo, "Luis", "luis@escuela.mx", "", user.RoleCoordinator, true)

	tests := []struct {
		name   string
		modify func(nu *user.NewUser)
		fields []string
	}{
		{"valid", func(*user.NewUser) {}, nil},
		{"missing professor profile", func(nu *user.NewUser) { nu.EmployeeNumber, nu.Department = "", "" }, []string{"numeroEmpleado", "departamento"}},
		{"coordinator needs no profile", func(nu *user.NewUser) { nu.Role, nu.EmployeeNumber, nu.Department = "coordinador", "", "" }, nil},
		{"bad email", func(nu *user.NewUser) { nu.Email = "no-es-correo" }, []string{"email"}},
		{"unknown role", func(nu *user.NewUser) { nu.Role = "rector" }, []string{"rol"}},
		{"short password", func(nu *user.NewUser) { nu.Password = "abc12" }, []string{"password"}},
		{"numeric password", func(nu *user.NewUser) { nu.Password = "1234567890" }, []string{"password"}},
		{"password with spaces", func(nu *user.NewUser) { nu.Password = "mi clave segura" }, []string{"password"}},
		{"password like name", func(nu *user.NewUser) { nu.Password = "analopez1" }, []string{"password"}},
		{"duplicate email", func(nu *user.NewUser) { nu.Email = "LUIS@escuela.mx" }, []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := validNewUser()
			tt.modify(&nu)
			err := nu.Validate(validate, svc)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ElementsMatch(t, tt.fields, fieldNames(t, err))
		})
	}
}

func TestService_Register(t *testing.T) {
	svc, _, validate := newService(t)
	ctx := context.Background()

	nu := validNewUser()
	require.NoError(t, nu.Validate(validate, svc))
	usr, prof, err := svc.Register(ctx, nu)
	require.NoError(t, err)

	assert.Equal(t, "ana@escuela.mx", usr.Email)
	assert.Equal(t, user.RoleProfessor, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("Pizarra-2024"))
	require.NotNil(t, prof)
	assert.Equal(t, usr.ID, prof.UserID)
	assert.Equal(t, []string{"Álgebra", "Cálculo"}, prof.Subjects)

	got, err := svc.GetProfessor(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, "E-001", got.EmployeeNumber)

	// employee number is unique
	nu2 := validNewUser()
	nu2.Email = "otra@escuela.mx"
	err = nu2.Validate(validate, svc)
	assert.Equal(t, []string{"numeroEmpleado"}, fieldNames(t, err))

	admin := user.NewUser{Email: "admin@escuela.mx", Password: "Directiva-77", Name: "Admin", Role: user.RoleAdmin}
	require.NoError(t, admin.Validate(validate, svc))
	adm, prof, err := svc.Register(ctx, admin)
	require.NoError(t, err)
	assert.Nil(t, prof)
	assert.True(t, adm.IsAdmin())
}

func TestService_RegisterRollsBack(t *testing.T) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	svc := user.NewService(failingProfileRepo{repo}, core.NewTestConfig())
	ctx := context.Background()

	_, _, err := svc.Register(ctx, validNewUser())
	require.Error(t, err)

	users, err := repo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestService_Authenticate(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	active := testutil.CreateUser(t, repo, "Ana", "ana@escuela.mx", "Pizarra-2024", user.RoleProfessor, true)
	testutil.CreateUser(t, repo, "Beto", "beto@escuela.mx", "Pizarra-2024", user.RoleProfessor, false)

	usr, err := svc.Authenticate(ctx, " ANA@escuela.mx", "Pizarra-2024")
	require.NoError(t, err)
	assert.Equal(t, active.ID, usr.ID)
	require.NotNil(t, usr.LastLogin)

	_, err = svc.Authenticate(ctx, "ana@escuela.mx", "otra-clave")
	assert.Equal(t, user.ErrInvalidCredentials, err)

	_, err = svc.Authenticate(ctx, "nadie@escuela.mx", "Pizarra-2024")
	assert.Equal(t, user.ErrInvalidCredentials, err)

	_, err = svc.Authenticate(ctx, "beto@escuela.mx", "Pizarra-2024")
	assert.Equal(t, user.ErrAccountDeactivated, err)
}

func TestService_PasswordReset(t *testing.T) {
	svc, repo, validate := newService(t)
	ctx := context.Background()
	testutil.CreateUser(t, repo, "Ana", "ana@escuela.mx", "Pizarra-2024", user.RoleProfessor, true)

	usr, uid, token, err := svc.RequestPasswordReset(ctx, "ana@escuela.mx")
	require.NoError(t, err)
	assert.Equal(t, "ana@escuela.mx", usr.Email)

	_, _, _, err = svc.RequestPasswordReset(ctx, "nadie@escuela.mx")
	assert.True(t, core.IsNotFound(err))

	bad := user.ResetUserPassword{UID: uid, Token: "nope", Password: "Cuaderno-99", PasswordConfirm: "Cuaderno-99"}
	require.NoError(t, bad.Validate(validate))
	err = svc.ResetPassword(ctx, bad)
	assert.Equal(t, []string{"token"}, fieldNames(t, err))

	mismatch := user.ResetUserPassword{UID: uid, Token: token, Password: "Cuaderno-99", PasswordConfirm: "Cuaderno-98"}
	assert.Error(t, mismatch.Validate(validate))

	data := user.ResetUserPassword{UID: uid, Token: token, Password: "Cuaderno-99", PasswordConfirm: "Cuaderno-99"}
	require.NoError(t, svc.ResetPassword(ctx, data))
	_, err = svc.Authenticate(ctx, "ana@escuela.mx", "Cuaderno-99")
	assert.NoError(t, err)

	// the token is single use: the password hash changed
	assert.Error(t, svc.ResetPassword(ctx, data))
}

func TestService_Update(t *testing.T) {
	svc, repo, validate := newService(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Carmen", "carmen@escuela.mx", "", user.RoleCoordinator, true)

	inactive := false
	uu := user.UpdateUser{Role: " Admin ", IsActive: &inactive}
	require.NoError(t, uu.Validate(validate))
	updated, err := svc.Update(ctx, usr, uu)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, updated.Role)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Carmen", updated.Name)

	bad := user.UpdateUser{Role: "rector"}
	assert.Error(t, bad.Validate(validate))
}

func TestService_UpdateProfessorRole(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	coord := testutil.CreateUser(t, repo, "Carmen", "carmen@escuela.mx", "", user.RoleCoordinator, true)
	prof := testutil.CreateUser(t, repo, "Ana", "ana@escuela.mx", "", user.RoleProfessor, true)

	tests := []struct {
		name string
		usr  user.User
		role string
	}{
		{name: "promote to profesor", usr: coord, role: user.RoleProfessor},
		{name: "demote a profesor", usr: prof, role: user.RoleCoordinator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.usr, user.UpdateUser{Role: tt.role})
			require.Error(t, err)
			assert.Equal(t, []string{"rol"}, fieldNames(t, err))

			stored, err := repo.GetUser(ctx, user.GetFilter{ID: tt.usr.ID})
			require.NoError(t, err)
			assert.Equal(t, tt.usr.Role, stored.Role)
		})
	}

	// the profile stays attached to the professor
	_, err := svc.GetProfessor(ctx, prof)
	assert.NoError(t, err)
	_, err = svc.GetProfessor(ctx, coord)
	assert.Equal(t, user.ErrProfessorNotFound, err)

	// same role is not a change
	_, err = svc.Update(ctx, prof, user.UpdateUser{Role: user.RoleProfessor, Name: "Ana María"})
	assert.NoError(t, err)
}
