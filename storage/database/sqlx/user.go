package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

var userColumns = map[string]string{
	"nombre":    "name",
	"email":     "email",
	"rol":       "role",
	"createdAt": "created_at",
}

type (
	userRow struct {
		ID           string    `db:"id"`
		Email        string    `db:"email"`
		Name         string    `db:"name"`
		Role         string    `db:"role"`
		IsActive     bool      `db:"is_active"`
		PasswordHash []byte    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
		LastLogin    null.Time `db:"last_login"`
	}

	professorRow struct {
		ID             string         `db:"id"`
		UserID         string         `db:"user_id"`
		EmployeeNumber string         `db:"employee_number"`
		Department     string         `db:"department"`
		Phone          string         `db:"phone"`
		Specialty      string         `db:"specialty"`
		Subjects       pq.StringArray `db:"subjects"`
		CreatedAt      time.Time      `db:"created_at"`
		UpdatedAt      time.Time      `db:"updated_at"`
	}

	professorDetailRow struct {
		professorRow
		Name     string `db:"name"`
		Email    string `db:"email"`
		IsActive bool   `db:"is_active"`
	}
)

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Ptr(),
	}
}

func (r professorRow) professor() user.Professor {
	return user.Professor{
		ID:             r.ID,
		UserID:         r.UserID,
		EmployeeNumber: r.EmployeeNumber,
		Department:     r.Department,
		Phone:          r.Phone,
		Specialty:      r.Specialty,
		Subjects:       toStrings(r.Subjects),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...user.User) error {
	w := new(where)
	w.add("email = ?", email)
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, u := range excluded {
			ids = append(ids, u.ID)
		}
		w.add("NOT (id = ANY(?))", pq.Array(ids))
	}

	var exists bool
	q := repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM users" + w.String() + ")")
	if err := repo.db.GetContext(ctx, &exists, q, w.args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CheckEmployeeNumberUniqueness(ctx context.Context, number string) error {
	var exists bool
	q := repo.db.Rebind("SELECT EXISTS (SELECT 1 FROM professors WHERE employee_number = ?)")
	if err := repo.db.GetContext(ctx, &exists, q, number); err != nil {
		return errors.Wrap(err, "checking employee number uniqueness")
	}
	if exists {
		return user.ErrEmployeeNumberExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, name, role, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :email, :name, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`,
		userRow{
			ID:           usr.ID,
			Email:        usr.Email,
			Name:         usr.Name,
			Role:         usr.Role,
			IsActive:     usr.IsActive,
			PasswordHash: usr.PasswordHash,
			CreatedAt:    usr.CreatedAt,
			UpdatedAt:    usr.UpdatedAt,
			LastLogin:    null.TimeFromPtr(usr.LastLogin),
		})
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	w := new(where)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT * FROM users"+w.String()), w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	w := new(where)
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(name ILIKE ? OR email ILIKE ?)", val, val)
		}
		if filter.Role != "" {
			w.add("role = ?", filter.Role)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []userRow
	q := "SELECT * FROM users" + w.String() + orderBy(ordering, userColumns, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE users SET email = :email, name = :name, role = :role, is_active = :is_active,
			password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		userRow{
			ID:           usr.ID,
			Email:        usr.Email,
			Name:         usr.Name,
			Role:         usr.Role,
			IsActive:     usr.IsActive,
			PasswordHash: usr.PasswordHash,
			UpdatedAt:    usr.UpdatedAt,
			LastLogin:    null.TimeFromPtr(usr.LastLogin),
		})
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

// DeleteUser cascades to the professor profile.
func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM users WHERE id = ?"), id)
	return errors.Wrap(err, "deleting user")
}

func (repo *userRepository) CreateProfessor(ctx context.Context, prof user.Professor) (user.Professor, error) {
	if prof.ID == "" {
		prof.ID = uuid.New().String()
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO professors (id, user_id, employee_number, department, phone, specialty, subjects, created_at, updated_at)
		VALUES (:id, :user_id, :employee_number, :department, :phone, :specialty, :subjects, :created_at, :updated_at)`,
		professorRow{
			ID:             prof.ID,
			UserID:         prof.UserID,
			EmployeeNumber: prof.EmployeeNumber,
			Department:     prof.Department,
			Phone:          prof.Phone,
			Specialty:      prof.Specialty,
			Subjects:       pq.StringArray(prof.Subjects),
			CreatedAt:      prof.CreatedAt,
			UpdatedAt:      prof.UpdatedAt,
		})
	if err != nil {
		if isUniqueViolation(err, "professors_employee_number_key") {
			return user.Professor{}, user.ErrEmployeeNumberExists
		}
		return user.Professor{}, errors.Wrap(err, "inserting professor")
	}
	return prof, nil
}

func (repo *userRepository) GetProfessorByUserID(ctx context.Context, userID string) (user.Professor, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return user.Professor{}, user.ErrProfessorNotFound
	}
	var row professorRow
	q := repo.db.Rebind("SELECT * FROM professors WHERE user_id = ?")
	if err := repo.db.GetContext(ctx, &row, q, userID); err != nil {
		return user.Professor{}, trapNoRowsErr(err, user.ErrProfessorNotFound, "getting professor")
	}
	return row.professor(), nil
}

func (repo *userRepository) QueryProfessors(ctx context.Context, filter *user.ProfessorFilter) ([]user.ProfessorDetail, error) {
	w := new(where)
	if filter != nil {
		if filter.Department != "" {
			w.add("p.department = ?", filter.Department)
		}
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(u.name ILIKE ? OR u.email ILIKE ? OR p.employee_number ILIKE ?)", val, val, val)
		}
	}

	q := `SELECT p.*, u.name, u.email, u.is_active
		FROM professors p JOIN users u ON u.id = p.user_id` + w.String() + " ORDER BY u.name ASC, p.employee_number ASC"
	var rows []professorDetailRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying professors")
	}
	details := make([]user.ProfessorDetail, 0, len(rows))
	for _, r := range rows {
		details = append(details, user.ProfessorDetail{
			Professor: r.professor(),
			Name:      r.Name,
			Email:     r.Email,
			IsActive:  r.IsActive,
		})
	}
	return details, nil
}
