package inmemdb

import (
	"context"
	"sort"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

var userOrderings = map[string]comparator[user.User]{
	"nombre":    func(a, b user.User) int { return cmpFold(a.Name, b.Name) },
	"email":     func(a, b user.User) int { return cmpFold(a.Email, b.Email) },
	"rol":       func(a, b user.User) int { return cmpFold(a.Role, b.Role) },
	"createdAt": func(a, b user.User) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

type userRepository struct {
	users      *table[user.User]
	professors *table[user.Professor]
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{users: db.users, professors: db.professors}
}

func copyUser(u user.User) user.User {
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	u.LastLogin = cloneTime(u.LastLogin)
	return u
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excluded ...user.User) error {
	repo.users.RLock()
	defer repo.users.RUnlock()

	skip := make(map[string]bool, len(excluded))
	for _, u := range excluded {
		skip[u.ID] = true
	}
	for _, u := range repo.users.rows {
		if u.Email == email && !skip[u.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CheckEmployeeNumberUniqueness(_ context.Context, number string) error {
	repo.professors.RLock()
	defer repo.professors.RUnlock()

	for _, p := range repo.professors.rows {
		if p.EmployeeNumber == number {
			return user.ErrEmployeeNumberExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.users.Lock()
	defer repo.users.Unlock()

	for _, u := range repo.users.rows {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.users.rows[usr.ID] = copyUser(usr)
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if filter.ID != "" {
		if u, ok := repo.users.rows[filter.ID]; ok {
			return copyUser(u), nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, u := range repo.users.rows {
			if u.Email == filter.Email {
				return copyUser(u), nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	keep := func(u user.User) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(u.Name, filter.Search) && !containsFold(u.Email, filter.Search) {
			return false
		}
		if filter.Role != "" && u.Role != filter.Role {
			return false
		}
		return filter.IsActive == nil || u.IsActive == *filter.IsActive
	}
	users := selectRows(repo.users, keep, ordering, userOrderings)
	for i := range users {
		users[i] = copyUser(users[i])
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.users.Lock()
	defer repo.users.Unlock()

	if _, ok := repo.users.rows[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.users.rows[usr.ID] = copyUser(usr)
	return usr, nil
}

// DeleteUser also removes the professor profile of the user.
func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.users.Lock()
	delete(repo.users.rows, id)
	repo.users.Unlock()

	repo.professors.Lock()
	defer repo.professors.Unlock()
	for pk, p := range repo.professors.rows {
		if p.UserID == id {
			delete(repo.professors.rows, pk)
		}
	}
	return nil
}

func (repo *userRepository) CreateProfessor(_ context.Context, prof user.Professor) (user.Professor, error) {
	repo.professors.Lock()
	defer repo.professors.Unlock()

	for _, p := range repo.professors.rows {
		if p.UserID == prof.UserID {
			return user.Professor{}, core.NewValidationError(nil, core.FieldError{Field: "usuario", Error: "el usuario ya tiene perfil de profesor"})
		}
		if p.EmployeeNumber == prof.EmployeeNumber {
			return user.Professor{}, user.ErrEmployeeNumberExists
		}
	}
	prof.Subjects = cloneStrings(prof.Subjects)
	repo.professors.rows[prof.ID] = prof
	return prof, nil
}

func (repo *userRepository) GetProfessorByUserID(_ context.Context, userID string) (user.Professor, error) {
	repo.professors.RLock()
	defer repo.professors.RUnlock()

	for _, p := range repo.professors.rows {
		if p.UserID == userID {
			p.Subjects = cloneStrings(p.Subjects)
			return p, nil
		}
	}
	return user.Professor{}, user.ErrProfessorNotFound
}

// QueryProfessors lists professor profiles joined with their user, by name.
func (repo *userRepository) QueryProfessors(_ context.Context, filter *user.ProfessorFilter) ([]user.ProfessorDetail, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()
	repo.professors.RLock()
	defer repo.professors.RUnlock()

	details := make([]user.ProfessorDetail, 0, len(repo.professors.rows))
	for _, p := range repo.professors.rows {
		u, ok := repo.users.rows[p.UserID]
		if !ok {
			continue
		}
		if filter != nil {
			if filter.Department != "" && p.Department != filter.Department {
				continue
			}
			if filter.Search != "" &&
				!containsFold(u.Name, filter.Search) &&
				!containsFold(u.Email, filter.Search) &&
				!containsFold(p.EmployeeNumber, filter.Search) {
				continue
			}
		}
		p.Subjects = cloneStrings(p.Subjects)
		details = append(details, user.ProfessorDetail{Professor: p, Name: u.Name, Email: u.Email, IsActive: u.IsActive})
	}
	sortDetails(details)
	return details, nil
}

func sortDetails(details []user.ProfessorDetail) {
	sort.SliceStable(details, func(i, j int) bool {
		if c := cmpFold(details[i].Name, details[j].Name); c != 0 {
			return c < 0
		}
		return details[i].EmployeeNumber < details[j].EmployeeNumber
	})
}
