package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("usuario no encontrado")
	ErrProfessorNotFound    = core.NewNotFoundError("profesor no encontrado")
	ErrEmailExists          = errors.New("ya existe un usuario con este correo")
	ErrEmployeeNumberExists = errors.New("ya existe un profesor con este número de empleado")
	ErrInvalidCredentials   = errors.New("credenciales inválidas")
	ErrAccountDeactivated   = errors.New("cuenta desactivada")
	ErrProfessorRoleChange  = errors.New("el rol profesor no puede asignarse ni retirarse")
)

type (
	GetFilter struct {
		ID    string
		Email string
	}

	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...User) error
		CheckEmployeeNumberUniqueness(ctx context.Context, number string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id string) error

		CreateProfessor(ctx context.Context, prof Professor) (Professor, error)
		GetProfessorByUserID(ctx context.Context, userID string) (Professor, error)
		QueryProfessors(ctx context.Context, filter *ProfessorFilter) ([]ProfessorDetail, error)
	}

	Service struct {
		repo   Repository
		tokens *tokenGenerator
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{
		repo:   repo,
		tokens: newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

func (svc *Service) checkUniqueness(nu *NewUser) error {
	ctx := context.Background()
	if err := svc.repo.CheckEmailUniqueness(ctx, nu.Email); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	if nu.Role == RoleProfessor && nu.EmployeeNumber != "" {
		if err := svc.repo.CheckEmployeeNumberUniqueness(ctx, nu.EmployeeNumber); err != nil {
			if err == ErrEmployeeNumberExists {
				return core.NewValidationError(err, core.FieldError{Field: "numeroEmpleado", Error: err.Error()})
			}
			return errors.Wrap(err, "checking employee number uniqueness")
		}
	}
	return nil
}

// Register creates the user and, for professors, its profile.
// If the profile cannot be created the user is removed again.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, *Professor, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Email:     nu.Email,
		Name:      nu.Name,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Role == "" {
		usr.Role = RoleProfessor
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, nil, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, nil, errors.Wrap(err, "creating user")
	}
	if !usr.IsProfessor() {
		return usr, nil, nil
	}

	subjects := nu.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	prof, err := svc.repo.CreateProfessor(ctx, Professor{
		ID:             uuid.New().String(),
		UserID:         usr.ID,
		EmployeeNumber: nu.EmployeeNumber,
		Department:     nu.Department,
		Phone:          nu.Phone,
		Specialty:      nu.Specialty,
		Subjects:       subjects,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if delErr := svc.repo.DeleteUser(ctx, usr.ID); delErr != nil {
			return User{}, nil, errors.Wrapf(err, "creating professor (rollback failed: %v)", delErr)
		}
		return User{}, nil, errors.Wrap(err, "creating professor")
	}
	return usr, &prof, nil
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	now := time.Now().UTC()
	usr.LastLogin = &now
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// CheckRoleChange refuses moving a user into or out of the profesor role:
// profesor users own exactly one Professor profile for their whole life.
func CheckRoleChange(usr User, role string) error {
	if role == "" || role == usr.Role {
		return nil
	}
	if role == RoleProfessor || usr.IsProfessor() {
		return core.NewValidationError(ErrProfessorRoleChange, core.FieldError{Field: "rol", Error: ErrProfessorRoleChange.Error()})
	}
	return nil
}

func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	if err := CheckRoleChange(usr, uu.Role); err != nil {
		return User{}, err
	}
	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetProfessor(ctx context.Context, usr User) (Professor, error) {
	return svc.repo.GetProfessorByUserID(ctx, usr.ID)
}

func (svc *Service) QueryProfessors(ctx context.Context, filter *ProfessorFilter) ([]ProfessorDetail, error) {
	return svc.repo.QueryProfessors(ctx, filter)
}

// RequestPasswordReset returns the user along with the uid and token to put in the reset link.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) (usr User, uid, token string, err error) {
	usr, err = svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, "", "", err
	}
	if !usr.IsActive {
		return User{}, "", "", ErrAccountDeactivated
	}
	token, err = svc.tokens.makeToken(usr)
	if err != nil {
		return User{}, "", "", errors.Wrap(err, "making token")
	}
	return usr, EncodeUID(usr), token, nil
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalid := func() error {
		return core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: "enlace inválido o expirado"})
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalid()
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid()
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return invalid()
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating password")
}
