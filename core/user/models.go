package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

// Roles
const (
	RoleProfessor   = "profesor"
	RoleCoordinator = "coordinador"
	RoleAdmin       = "admin"
)

var (
	AllRoles = []string{RoleProfessor, RoleCoordinator, RoleAdmin}

	Roles = []Role{
		{Name: "Profesor", Value: RoleProfessor},
		{Name: "Coordinador", Value: RoleCoordinator},
		{Name: "Administrador", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"nombre"`
	Role         string     `json:"rol"`
	IsActive     bool       `json:"activo"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"` // UTC
	UpdatedAt    time.Time  `json:"updatedAt"` // UTC
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsProfessor() bool   { return u.Role == RoleProfessor }
func (u User) IsCoordinator() bool { return u.Role == RoleCoordinator }
func (u User) IsAdmin() bool       { return u.Role == RoleAdmin }

// IsStaff reports whether the user reviews other people's records.
func (u User) IsStaff() bool { return u.IsCoordinator() || u.IsAdmin() }

// Professor is the profile of a user with the professor role.
type Professor struct {
	ID             string    `json:"id"`
	UserID         string    `json:"usuario"`
	EmployeeNumber string    `json:"numeroEmpleado"`
	Department     string    `json:"departamento"`
	Phone          string    `json:"telefono,omitempty"`
	Specialty      string    `json:"especialidad,omitempty"`
	Subjects       []string  `json:"materias"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProfessorDetail is a professor profile along with its user.
type ProfessorDetail struct {
	Professor
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	IsActive bool   `json:"activo"`
}

// NewUser contains information needed to register a new User (and its Professor profile).
type NewUser struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"nombre" validate:"required,notblank,max=150"`
	Role     string `json:"rol" validate:"omitempty,oneof=profesor coordinador admin"`

	// professor profile
	EmployeeNumber string   `json:"numeroEmpleado" validate:"max=50"`
	Department     string   `json:"departamento" validate:"max=150"`
	Phone          string   `json:"telefono" validate:"max=30"`
	Specialty      string   `json:"especialidad" validate:"max=150"`
	Subjects       []string `json:"materias"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleProfessor
	}
	nu.EmployeeNumber = core.CleanString(nu.EmployeeNumber)
	nu.Department = core.CleanString(nu.Department)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Specialty = core.CleanString(nu.Specialty)
	nu.Subjects = core.CleanStrings(nu.Subjects)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu)
}

// UpdateUser defines what an admin may change on an existing User.
type UpdateUser struct {
	Name     string `json:"nombre" validate:"max=150"`
	Role     string `json:"rol" validate:"omitempty,oneof=profesor coordinador admin"`
	IsActive *bool  `json:"activo"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	uu.Name = core.CleanString(uu.Name)
	uu.Role = core.CleanString(uu.Role, true /* lower */)
	return validate.Struct(uu)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"rol"`
	IsActive *bool  `query:"activo"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

type ProfessorFilter struct {
	Department string `query:"departamento"`
	Search     string `query:"search"` // name, email or employee number
}

func (pf *ProfessorFilter) Clean() {
	pf.Department = core.CleanString(pf.Department)
	pf.Search = core.CleanString(pf.Search)
}
