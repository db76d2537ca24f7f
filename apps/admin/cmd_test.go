package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database"
	inmemdb "github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database/inmem"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/testutil"
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	return &commandLine{
		conf:    core.NewTestConfig(),
		usrRepo: inmemdb.NewUserRepository(inmemdb.Open()),
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
	wantAnyErr bool
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	case tt.wantAnyErr:
		assert.Error(t, err)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)
	cli.db = &sql.DB{}

	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func() { migrateFunc = database.Migrate }()

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "evidence_index", "sql"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("needs postgres", func(t *testing.T) {
		noSQL := setup(t)
		assert.Equal(t, errNoSQL, noSQL.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_createDB(t *testing.T) {
	cli := setup(t)
	assert.Equal(t, errNoSQL, cli.run([]string{"admin", "createdb"}))

	var called bool
	createDBFunc = func(ctx context.Context, conf *core.Config) error {
		called = true
		return nil
	}
	defer func() { createDBFunc = database.CreateIfNotExist }()

	cli.conf.Database.Engine = database.EnginePostgres
	require.NoError(t, cli.run([]string{"admin", "createdb"}))
	assert.True(t, called)
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	existing := testutil.CreateUser(t, cli.usrRepo, "Coord", "coord@escuela.mx", "s3cr3tPwd", user.RoleCoordinator, false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no name", args: []string{"adduser", "-email", "a@b.mx"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Admin", "-email", "admin@escuela.mx"}, wantErr: errEmptyPwd},
		{name: "unknown role", args: []string{"adduser", "-name", "X", "-email", "x@escuela.mx", "-role", "rector"}, pwd: "s3cr3tPwd", wantAnyErr: true},
		{name: "professor without employee number", args: []string{"adduser", "-name", "P", "-email", "p@escuela.mx", "-role", "profesor"}, pwd: "s3cr3tPwd", wantAnyErr: true},
		{name: "admin", args: []string{"adduser", "-name", "Admin", "-email", " Admin@Escuela.mx ", "-role", "admin"}, pwd: "s3cr3tPwd"},
		{name: "professor", args: []string{"adduser", "-name", "Ana", "-email", "ana@escuela.mx", "-role", "profesor", "-employee", "EMP-1", "-department", "Ciencias"}, pwd: "s3cr3tPwd"},
		{name: "existing user cannot become profesor", args: []string{"adduser", "-name", "Coord", "-email", existing.Email, "-role", "profesor", "-employee", "EMP-9"}, pwd: "s3cr3tPwd", wantAnyErr: true},
		{name: "existing user is reactivated", args: []string{"adduser", "-name", "Coordinación", "-email", existing.Email, "-role", "coordinador"}, pwd: "n3wPassw0rd"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	admin, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "admin@escuela.mx"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.NoError(t, admin.CheckPassword("s3cr3tPwd"))

	ana, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "ana@escuela.mx"})
	require.NoError(t, err)
	prof, err := cli.usrRepo.GetProfessorByUserID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "EMP-1", prof.EmployeeNumber)

	coord, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.True(t, coord.IsActive)
	assert.Equal(t, "Coordinación", coord.Name)
	assert.NoError(t, coord.CheckPassword("n3wPassw0rd"))

	_, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "p@escuela.mx"})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "Ana", "ana@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "ana@escuela.mx"}, wantErr: errEmptyPwd},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@escuela.mx"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "ANA@escuela.mx"}, pwd: "n3wPassw0rd"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	refreshed, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("n3wPassw0rd"))
}
