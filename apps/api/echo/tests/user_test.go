package tests

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/PalomaresAndrea/gestion-planeacion-sub000/apps/api/echo"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/testutil"
)

func TestLogin(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.users, "Ana López", "ana@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)
	testutil.CreateUser(t, env.users, "Inactivo", "inactivo@escuela.mx", "s3cr3tPwd", user.RoleProfessor, false)

	t.Run("valid credentials", func(t *testing.T) {
		body := `{"email": " ANA@escuela.mx ", "password": "s3cr3tPwd"}`
		rec := env.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(body)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, usr.ID, resp.User.ID)
		assert.NotContains(t, rec.Body.String(), "password")

		// the token opens the authed endpoints
		rec = env.serve(newAuthRequest(http.MethodGet, "/api/auth/perfil", resp.Token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var profile echoapi.ProfileResponse
		decode(t, rec, &profile)
		assert.Equal(t, usr.Email, profile.User.Email)
		require.NotNil(t, profile.Professor)
		assert.Equal(t, usr.ID, profile.Professor.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := `{"email": "ana@escuela.mx", "password": "nope"}`
		rec := env.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(body)))
		checkErr(t, rec, http.StatusUnauthorized, httpErr{Message: "credenciales inválidas"})
	})

	t.Run("unknown email", func(t *testing.T) {
		body := `{"email": "nadie@escuela.mx", "password": "s3cr3tPwd"}`
		rec := env.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(body)))
		checkErr(t, rec, http.StatusUnauthorized, httpErr{Message: "credenciales inválidas"})
	})

	t.Run("deactivated account", func(t *testing.T) {
		body := `{"email": "inactivo@escuela.mx", "password": "s3cr3tPwd"}`
		rec := env.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(body)))
		checkErr(t, rec, http.StatusForbidden, httpErr{Message: "cuenta desactivada"})
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(`{}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var got httpErr
		decode(t, rec, &got)
		assert.Equal(t, "Error de validación", got.Message)
		assert.Len(t, got.Errors, 2)
	})
}

func TestRegister(t *testing.T) {
	env := setup(t)
	admin := testutil.CreateUser(t, env.users, "Admin", "admin@escuela.mx", "s3cr3tPwd", user.RoleAdmin, true)
	prof := testutil.CreateUser(t, env.users, "Beto", "beto@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)

	t.Run("professor self registration", func(t *testing.T) {
		body := `{
			"email": "carla@escuela.mx", "password": "s3cr3tPwd", "nombre": "  Carla Ruiz ",
			"numeroEmpleado": "E-100", "departamento": "Matemáticas", "materias": ["Álgebra", " "]
		}`
		rec := env.serve(newRequest(http.MethodPost, "/api/auth/registrar", []byte(body)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp echoapi.RegisterResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "Carla Ruiz", resp.User.Name)
		assert.Equal(t, user.RoleProfessor, resp.User.Role)
		assert.True(t, resp.User.IsActive)
		require.NotNil(t, resp.Professor)
		assert.Equal(t, "E-100", resp.Professor.EmployeeNumber)
		assert.Equal(t, []string{"Álgebra"}, resp.Professor.Subjects)
	})

	t.Run("duplicated email", func(t *testing.T) {
		body := `{"email": "BETO@escuela.mx", "password": "s3cr3tPwd", "nombre": "Otro Beto"}`
		rec := env.serve(newRequest(http.MethodPost, "/api/auth/registrar", []byte(body)))
		checkErr(t, rec, http.StatusBadRequest, httpErr{
			Message: "Error de validación",
			Errors:  []string{"email: " + user.ErrEmailExists.Error()},
		})
	})

	t.Run("staff without token", func(t *testing.T) {
		body := `{"email": "coord@escuela.mx", "password": "s3cr3tPwd", "nombre": "Coord", "rol": "coordinador"}`
		rec := env.serve(newRequest(http.MethodPost, "/api/auth/registrar", []byte(body)))
		checkErr(t, rec, http.StatusUnauthorized, httpErr{Message: "usuario no autenticado"})
	})

	t.Run("staff by a professor", func(t *testing.T) {
		body := `{"email": "coord@escuela.mx", "password": "s3cr3tPwd", "nombre": "Coord", "rol": "coordinador"}`
		rec := env.serve(newAuthRequest(http.MethodPost, "/api/auth/registrar", env.token(t, prof), []byte(body)))
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("staff by an admin", func(t *testing.T) {
		body := `{"email": "coord@escuela.mx", "password": "s3cr3tPwd", "nombre": "Coord", "rol": "coordinador"}`
		rec := env.serve(newAuthRequest(http.MethodPost, "/api/auth/registrar", env.token(t, admin), []byte(body)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp echoapi.RegisterResponse
		decode(t, rec, &resp)
		assert.Equal(t, user.RoleCoordinator, resp.User.Role)
		assert.Nil(t, resp.Professor)
	})
}

func TestAuthRequired(t *testing.T) {
	env := setup(t)

	paths := []string{"/api/auth/perfil", "/api/planeaciones", "/api/avances", "/api/evidencias", "/api/reportes/institucional"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := env.serve(newRequest(http.MethodGet, path))
			checkErr(t, rec, http.StatusUnauthorized, errMissingToken)

			rec = env.serve(newAuthRequest(http.MethodGet, path, "not-a-jwt"))
			checkErr(t, rec, http.StatusUnauthorized, httpErr{Message: "token inválido o expirado"})
		})
	}

	t.Run("token of a deleted user", func(t *testing.T) {
		usr := testutil.CreateUser(t, env.users, "Gone", "gone@escuela.mx", "s3cr3tPwd", user.RoleAdmin, true)
		token := env.token(t, usr)
		require.NoError(t, env.users.DeleteUser(context.Background(), usr.ID))

		rec := env.serve(newAuthRequest(http.MethodGet, "/api/auth/perfil", token))
		checkErr(t, rec, http.StatusUnauthorized, httpErr{Message: "usuario no autenticado"})
	})

	t.Run("token of a deactivated user", func(t *testing.T) {
		usr := testutil.CreateUser(t, env.users, "Off", "off@escuela.mx", "s3cr3tPwd", user.RoleAdmin, false)
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/auth/perfil", env.token(t, usr)))
		checkErr(t, rec, http.StatusForbidden, httpErr{Message: "cuenta desactivada"})
	})
}

func TestRefreshToken(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.users, "Ana", "ana@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)

	rec := env.serve(newAuthRequest(http.MethodPost, "/api/auth/refresh", env.token(t, usr)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.TokenResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	expired := echoapi.GetUserClaims(env.conf, usr, 1 /* orig issued at, long ago */)
	token, err := echoapi.GenerateToken(env.conf, expired)
	require.NoError(t, err)
	rec = env.serve(newAuthRequest(http.MethodPost, "/api/auth/refresh", token))
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func TestPasswordReset(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.users, "Ana", "ana@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)

	t.Run("unknown email answers the same", func(t *testing.T) {
		env.mail.Reset()
		rec := env.serve(newRequest(http.MethodPost, "/api/auth/recuperar-password", []byte(`{"email": "x@escuela.mx"}`)))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Empty(t, env.mail.SentMessages())
	})

	env.mail.Reset()
	rec := env.serve(newRequest(http.MethodPost, "/api/auth/recuperar-password", []byte(`{"email": "ana@escuela.mx"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := env.mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, usr.Email, sent[0].To[0].Address)

	uid, token := resetParams(t, sent[0].TextContent)
	body := marshalObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: "n3wPassword", PasswordConfirm: "n3wPassword"})
	rec = env.serve(newRequest(http.MethodPost, "/api/auth/restablecer-password", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(`{"email": "ana@escuela.mx", "password": "n3wPassword"}`)))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// the token cannot be used twice
	rec = env.serve(newRequest(http.MethodPost, "/api/auth/restablecer-password", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

// resetParams extracts uid and token from the reset link of an email body.
func resetParams(t *testing.T, content string) (string, string) {
	t.Helper()
	for _, field := range strings.Fields(content) {
		if !strings.Contains(field, "uid=") {
			continue
		}
		u, err := url.Parse(strings.Trim(field, "<>\"'"))
		require.NoError(t, err)
		return u.Query().Get("uid"), u.Query().Get("token")
	}
	t.Fatalf("no reset link in %q", content)
	return "", ""
}

func TestManageUsers(t *testing.T) {
	env := setup(t)
	admin := testutil.CreateUser(t, env.users, "Admin", "admin@escuela.mx", "s3cr3tPwd", user.RoleAdmin, true)
	coord := testutil.CreateUser(t, env.users, "Coord", "coord@escuela.mx", "s3cr3tPwd", user.RoleCoordinator, true)
	prof := testutil.CreateUser(t, env.users, "Prof", "prof@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)

	t.Run("list is admin only", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/usuarios", env.token(t, coord)))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.serve(newAuthRequest(http.MethodGet, "/api/usuarios", env.token(t, admin)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var users []user.User
		decode(t, rec, &users)
		assert.Len(t, users, 3)
	})

	t.Run("roles", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/usuarios/roles", env.token(t, admin)))
		require.Equal(t, http.StatusOK, rec.Code)
		var roles []user.Role
		decode(t, rec, &roles)
		assert.Equal(t, user.Roles, roles)
	})

	t.Run("deactivate a professor", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodPut, "/api/usuarios/"+prof.ID, env.token(t, admin), []byte(`{"activo": false}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		decode(t, rec, &got)
		assert.False(t, got.IsActive)

		rec = env.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(`{"email": "prof@escuela.mx", "password": "s3cr3tPwd"}`)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin cannot demote themselves", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodPut, "/api/usuarios/"+admin.ID, env.token(t, admin), []byte(`{"rol": "profesor"}`)))
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("profesor role cannot be granted or removed", func(t *testing.T) {
		want := httpErr{Message: "Error de validación", Errors: []string{"rol: " + user.ErrProfessorRoleChange.Error()}}

		rec := env.serve(newAuthRequest(http.MethodPut, "/api/usuarios/"+coord.ID, env.token(t, admin), []byte(`{"rol": "profesor"}`)))
		checkErr(t, rec, http.StatusBadRequest, want)
		rec = env.serve(newAuthRequest(http.MethodPut, "/api/usuarios/"+prof.ID, env.token(t, admin), []byte(`{"rol": "coordinador"}`)))
		checkErr(t, rec, http.StatusBadRequest, want)

		stored, err := env.users.GetUser(context.Background(), user.GetFilter{ID: coord.ID})
		require.NoError(t, err)
		assert.Equal(t, user.RoleCoordinator, stored.Role)
		_, err = env.users.GetProfessorByUserID(context.Background(), prof.ID)
		assert.NoError(t, err)

		rec = env.serve(newAuthRequest(http.MethodPut, "/api/usuarios/"+coord.ID, env.token(t, admin), []byte(`{"rol": "admin"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodPut, "/api/usuarios/nope", env.token(t, admin), []byte(`{"nombre": "X"}`)))
		checkErr(t, rec, http.StatusNotFound, httpErr{Message: "usuario no encontrado"})
	})

	t.Run("professors list", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/profesores", env.token(t, coord)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var profs []user.ProfessorDetail
		decode(t, rec, &profs)
		require.Len(t, profs, 1)
		assert.Equal(t, prof.Email, profs[0].Email)
	})

	t.Run("professors list with malformed filter", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/profesores", env.token(t, coord), []byte(`{"departamento":`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})
}
