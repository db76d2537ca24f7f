package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
)

var progressFields = map[string]string{
	"createdAt":        "createdAt",
	"updatedAt":        "updatedAt",
	"materia":          "subject",
	"parcial":          "period",
	"cicloEscolar":     "schoolCycle",
	"porcentajeAvance": "percentage",
	"cumplimiento":     "compliance",
	"nombreProfesor":   "professorName",
}

type progressDoc struct {
	ID            string    `bson:"_id"`
	ProfessorID   string    `bson:"professorId"`
	ProfessorName string    `bson:"professorName"`
	Subject       string    `bson:"subject"`
	Period        int       `bson:"period"`
	SchoolCycle   string    `bson:"schoolCycle"`
	PlannedTopics []string  `bson:"plannedTopics"`
	CoveredTopics []string  `bson:"coveredTopics"`
	Percentage    int       `bson:"percentage"`
	Compliance    string    `bson:"compliance"`
	Activities    string    `bson:"activities"`
	Difficulties  string    `bson:"difficulties"`
	Observations  string    `bson:"observations"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func (d progressDoc) progress() progress.Progress {
	p := progress.Progress(d)
	p.PlannedTopics = nonNil(d.PlannedTopics)
	p.CoveredTopics = nonNil(d.CoveredTopics)
	p.CreatedAt = utc(d.CreatedAt)
	p.UpdatedAt = utc(d.UpdatedAt)
	return p
}

type progressRepository struct {
	coll *mongo.Collection
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *mongo.Database) progress.Repository {
	return &progressRepository{coll: db.Collection(ProgressCollection)}
}

func (repo *progressRepository) CreateProgress(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	if _, err := repo.coll.InsertOne(ctx, progressDoc(p)); err != nil {
		return progress.Progress{}, errors.Wrap(err, "inserting progress")
	}
	return p, nil
}

func (repo *progressRepository) GetProgress(ctx context.Context, id string) (progress.Progress, error) {
	doc, err := findOne[progressDoc](ctx, repo.coll, bson.M{"_id": id}, progress.ErrNotFound)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "getting progress")
	}
	return doc.progress(), nil
}

func (repo *progressRepository) QueryProgress(ctx context.Context, filter *progress.QueryFilter, ordering []core.DBOrdering) ([]progress.Progress, error) {
	q := bson.M{}
	if filter != nil {
		if filter.ProfessorID != "" {
			q["professorId"] = filter.ProfessorID
		}
		if filter.ProfessorName != "" {
			q["professorName"] = filter.ProfessorName
		}
		if filter.Subject != "" {
			q["subject"] = filter.Subject
		}
		if filter.Period != 0 {
			q["period"] = filter.Period
		}
		if filter.SchoolCycle != "" {
			q["schoolCycle"] = filter.SchoolCycle
		}
		if len(filter.Compliance) > 0 {
			q["compliance"] = bson.M{"$in": filter.Compliance}
		}
	}
	docs, err := findAll[progressDoc](ctx, repo.coll, q, options.Find().SetSort(sortBy(ordering, progressFields)))
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	records := make([]progress.Progress, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.progress())
	}
	return records, nil
}

func (repo *progressRepository) UpdateProgress(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	if err := replaceOne(ctx, repo.coll, p.ID, progressDoc(p), progress.ErrNotFound); err != nil {
		return progress.Progress{}, errors.Wrap(err, "updating progress")
	}
	return p, nil
}

func (repo *progressRepository) DeleteProgress(ctx context.Context, id string) error {
	return errors.Wrap(deleteOne(ctx, repo.coll, id, progress.ErrNotFound), "deleting progress")
}
