// Package mongorepos implements the repositories on MongoDB.
package mongorepos

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

// Collections
const (
	UsersCollection      = "users"
	ProfessorsCollection = "professors"
	PlansCollection      = "planeaciones"
	ProgressCollection   = "avances"
	EvidenceCollection   = "evidencias"
)

// EnsureIndexes creates the unique and lookup indexes of every collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ProfessorsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "employeeNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		PlansCollection: {
			{Keys: bson.D{{Key: "professorId", Value: 1}}},
			{Keys: bson.D{{Key: "schoolCycle", Value: 1}}},
		},
		ProgressCollection: {
			{Keys: bson.D{{Key: "professorId", Value: 1}}},
			{Keys: bson.D{{Key: "schoolCycle", Value: 1}, {Key: "compliance", Value: 1}}},
		},
		EvidenceCollection: {
			{Keys: bson.D{{Key: "professorId", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

// sortBy maps API field names to document fields; unknown fields are dropped.
func sortBy(ordering []core.DBOrdering, fields map[string]string) bson.D {
	valid := core.FilterOrderings(ordering, fields)
	if len(valid) == 0 {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	sort := make(bson.D, 0, len(valid))
	for _, ord := range valid {
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: dir})
	}
	return sort
}

// contains is a case-insensitive substring match.
func contains(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []T
	if err = cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, notFound error) (T, error) {
	var doc T
	err := coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, notFound
	}
	return doc, err
}

func replaceOne(ctx context.Context, coll *mongo.Collection, id string, doc interface{}, notFound error) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return notFound
	}
	return nil
}

func deleteOne(ctx context.Context, coll *mongo.Collection, id string, notFound error) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notFound
	}
	return nil
}

func utc(t time.Time) time.Time { return t.UTC() }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
