// Package testutil holds helpers shared by the tests of several packages.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

// Logger records entries instead of printing them.
type Logger struct {
	mu      sync.Mutex
	entries []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := level + ": " + msg
	for _, a := range args {
		entry += fmt.Sprintf(" | %v", a)
	}
	l.entries = append(l.entries, entry)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// Entries returns the recorded entries starting with `level`, or all of them.
func (l *Logger) Entries(level ...string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if len(level) == 0 || strings.HasPrefix(e, level[0]+":") {
			out = append(out, e)
		}
	}
	return out
}

// NewValidator returns a validator with every custom rule of the application registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	return validate, translator
}

// CreateUser stores a user (and a professor profile when role is profesor) straight through the repository.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}

	ctx := context.Background()
	usr, err := repo.CreateUser(ctx, usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if usr.IsProfessor() {
		_, err = repo.CreateProfessor(ctx, user.Professor{
			ID:             uuid.New().String(),
			UserID:         usr.ID,
			EmployeeNumber: "EMP-" + usr.ID[:8],
			Department:     "Ciencias",
			Subjects:       []string{},
			CreatedAt:      tstamp,
			UpdatedAt:      tstamp,
		})
		if err != nil {
			t.Fatalf("CreateUser() profile failed: %v", err)
		}
	}
	return usr
}
