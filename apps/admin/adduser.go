package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

type newUserArgs struct {
	name       string
	email      string
	role       string
	employee   string
	department string
	password   string
}

func validRole(role string) vala.Checker {
	return func() (bool, string) {
		for _, r := range user.AllRoles {
			if r == role {
				return true, ""
			}
		}
		return false, fmt.Sprintf("role: %q is not one of %v", role, user.AllRoles)
	}
}

func professorProfile(args newUserArgs) vala.Checker {
	return func() (bool, string) {
		if args.role == user.RoleProfessor && args.employee == "" {
			return false, "employee: required for role " + user.RoleProfessor
		}
		return true, ""
	}
}

// addUser updates or creates a user.User, activating it.
func (cli *commandLine) addUser(args newUserArgs) error {
	args.name = core.CleanString(args.name)
	args.email = core.CleanString(args.email, true /* lower */)

	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(args.name, "name"),
		vala.StringNotEmpty(args.email, "email"),
		validRole(args.role),
		professorProfile(args),
	).Check(); err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: args.email})
	switch {
	case err == nil:
		if err = user.CheckRoleChange(usr, args.role); err != nil {
			return err
		}
		usr.Name = args.name
		usr.Role = args.role
		usr.IsActive = true
		usr.UpdatedAt = now
		if err = usr.SetPassword(args.password); err != nil {
			return err
		}
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return err

	case errors.Cause(err) != user.ErrNotFound:
		return err
	}

	usr = user.User{
		ID:        uuid.New().String(),
		Name:      args.name,
		Email:     args.email,
		Role:      args.role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = usr.SetPassword(args.password); err != nil {
		return err
	}
	if usr, err = cli.usrRepo.CreateUser(ctx, usr); err != nil {
		return err
	}
	if !usr.IsProfessor() {
		return nil
	}
	if err = cli.usrRepo.CheckEmployeeNumberUniqueness(ctx, args.employee); err != nil {
		_ = cli.usrRepo.DeleteUser(ctx, usr.ID)
		return err
	}
	_, err = cli.usrRepo.CreateProfessor(ctx, user.Professor{
		ID:             uuid.New().String(),
		UserID:         usr.ID,
		EmployeeNumber: args.employee,
		Department:     core.CleanString(args.department),
		Subjects:       []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		_ = cli.usrRepo.DeleteUser(ctx, usr.ID)
	}
	return err
}
