package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errNoSQL    = errors.New("migrations only apply to the postgres engine")
	errEmptyPwd = errors.New("password cannot be empty")
)

type commandLine struct {
	conf    *core.Config
	db      *sql.DB // nil unless the engine is postgres
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -email EMAIL [-role ROLE] [-employee NUMBER] [-department DEPT] - create or update a user")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
	fmt.Println("  createdb - create the postgres role and database when missing")
	fmt.Println("  migrate COMMAND [ARGS...] - run goose migrations (up, down, status, version, ...)")
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errEmptyPwd
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "One of profesor, coordinador or admin.")
	addUserEmployee := addUserCmd.String("employee", "", "Employee number (profesor only).")
	addUserDept := addUserCmd.String("department", "", "Department (profesor only).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.addUser(newUserArgs{
			name:       *addUserName,
			email:      *addUserEmail,
			role:       *addUserRole,
			employee:   *addUserEmployee,
			department: *addUserDept,
			password:   pwd,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "createdb":
		return cli.createDB()

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}
