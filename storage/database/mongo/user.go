package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

var userFields = map[string]string{
	"nombre":    "name",
	"email":     "email",
	"rol":       "role",
	"createdAt": "createdAt",
}

type (
	userDoc struct {
		ID           string     `bson:"_id"`
		Email        string     `bson:"email"`
		Name         string     `bson:"name"`
		Role         string     `bson:"role"`
		IsActive     bool       `bson:"isActive"`
		PasswordHash []byte     `bson:"passwordHash"`
		CreatedAt    time.Time  `bson:"createdAt"`
		UpdatedAt    time.Time  `bson:"updatedAt"`
		LastLogin    *time.Time `bson:"lastLogin,omitempty"`
	}

	professorDoc struct {
		ID             string    `bson:"_id"`
		UserID         string    `bson:"userId"`
		EmployeeNumber string    `bson:"employeeNumber"`
		Department     string    `bson:"department"`
		Phone          string    `bson:"phone"`
		Specialty      string    `bson:"specialty"`
		Subjects       []string  `bson:"subjects"`
		CreatedAt      time.Time `bson:"createdAt"`
		UpdatedAt      time.Time `bson:"updatedAt"`
	}
)

func toUserDoc(u user.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		IsActive:     u.IsActive,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}

func (d userDoc) user() user.User {
	return user.User{
		ID:           d.ID,
		Email:        d.Email,
		Name:         d.Name,
		Role:         d.Role,
		IsActive:     d.IsActive,
		PasswordHash: d.PasswordHash,
		CreatedAt:    utc(d.CreatedAt),
		UpdatedAt:    utc(d.UpdatedAt),
		LastLogin:    utcPtr(d.LastLogin),
	}
}

func (d professorDoc) professor() user.Professor {
	return user.Professor{
		ID:             d.ID,
		UserID:         d.UserID,
		EmployeeNumber: d.EmployeeNumber,
		Department:     d.Department,
		Phone:          d.Phone,
		Specialty:      d.Specialty,
		Subjects:       nonNil(d.Subjects),
		CreatedAt:      utc(d.CreatedAt),
		UpdatedAt:      utc(d.UpdatedAt),
	}
}

type userRepository struct {
	users      *mongo.Collection
	professors *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{
		users:      db.Collection(UsersCollection),
		professors: db.Collection(ProfessorsCollection),
	}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...user.User) error {
	filter := bson.M{"email": email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, u := range excluded {
			ids = append(ids, u.ID)
		}
		filter["_id"] = bson.M{"$nin": ids}
	}
	n, err := repo.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CheckEmployeeNumberUniqueness(ctx context.Context, number string) error {
	n, err := repo.professors.CountDocuments(ctx, bson.M{"employeeNumber": number}, options.Count().SetLimit(1))
	if err != nil {
		return errors.Wrap(err, "checking employee number uniqueness")
	}
	if n > 0 {
		return user.ErrEmployeeNumberExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, err := repo.users.InsertOne(ctx, toUserDoc(usr)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var q bson.M
	switch {
	case filter.ID != "":
		q = bson.M{"_id": filter.ID}
	case filter.Email != "":
		q = bson.M{"email": filter.Email}
	default:
		return user.User{}, user.ErrNotFound
	}
	doc, err := findOne[userDoc](ctx, repo.users, q, user.ErrNotFound)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return doc.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := bson.M{}
	if filter != nil {
		if filter.Search != "" {
			q["$or"] = bson.A{bson.M{"name": contains(filter.Search)}, bson.M{"email": contains(filter.Search)}}
		}
		if filter.Role != "" {
			q["role"] = filter.Role
		}
		if filter.IsActive != nil {
			q["isActive"] = *filter.IsActive
		}
	}
	docs, err := findAll[userDoc](ctx, repo.users, q, options.Find().SetSort(sortBy(ordering, userFields)))
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := replaceOne(ctx, repo.users, usr.ID, toUserDoc(usr), user.ErrNotFound); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

// DeleteUser also removes the professor profile of the user.
func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	if _, err := repo.users.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	_, err := repo.professors.DeleteMany(ctx, bson.M{"userId": id})
	return errors.Wrap(err, "deleting professor profile")
}

func (repo *userRepository) CreateProfessor(ctx context.Context, prof user.Professor) (user.Professor, error) {
	doc := professorDoc{
		ID:             prof.ID,
		UserID:         prof.UserID,
		EmployeeNumber: prof.EmployeeNumber,
		Department:     prof.Department,
		Phone:          prof.Phone,
		Specialty:      prof.Specialty,
		Subjects:       nonNil(prof.Subjects),
		CreatedAt:      prof.CreatedAt,
		UpdatedAt:      prof.UpdatedAt,
	}
	if _, err := repo.professors.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.Professor{}, user.ErrEmployeeNumberExists
		}
		return user.Professor{}, errors.Wrap(err, "inserting professor")
	}
	return prof, nil
}

func (repo *userRepository) GetProfessorByUserID(ctx context.Context, userID string) (user.Professor, error) {
	doc, err := findOne[professorDoc](ctx, repo.professors, bson.M{"userId": userID}, user.ErrProfessorNotFound)
	if err != nil {
		return user.Professor{}, errors.Wrap(err, "getting professor")
	}
	return doc.professor(), nil
}

// QueryProfessors joins the profiles with their users through $lookup.
func (repo *userRepository) QueryProfessors(ctx context.Context, filter *user.ProfessorFilter) ([]user.ProfessorDetail, error) {
	match := bson.M{}
	if filter != nil {
		if filter.Department != "" {
			match["department"] = filter.Department
		}
		if filter.Search != "" {
			match["$or"] = bson.A{
				bson.M{"user.name": contains(filter.Search)},
				bson.M{"user.email": contains(filter.Search)},
				bson.M{"employeeNumber": contains(filter.Search)},
			}
		}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{"from": UsersCollection, "localField": "userId", "foreignField": "_id", "as": "user"}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "user.name", Value: 1}, {Key: "employeeNumber", Value: 1}}}},
	}

	cur, err := repo.professors.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "querying professors")
	}
	var docs []struct {
		professorDoc `bson:",inline"`
		User         userDoc `bson:"user"`
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding professors")
	}

	details := make([]user.ProfessorDetail, 0, len(docs))
	for _, d := range docs {
		details = append(details, user.ProfessorDetail{
			Professor: d.professor(),
			Name:      d.User.Name,
			Email:     d.User.Email,
			IsActive:  d.User.IsActive,
		})
	}
	return details, nil
}
