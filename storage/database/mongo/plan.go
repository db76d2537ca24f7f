package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
)

var planFields = map[string]string{
	"createdAt":      "createdAt",
	"updatedAt":      "updatedAt",
	"materia":        "subject",
	"parcial":        "period",
	"cicloEscolar":   "schoolCycle",
	"estado":         "status",
	"nombreProfesor": "professorName",
}

type planDoc struct {
	ID            string     `bson:"_id"`
	ProfessorID   string     `bson:"professorId"`
	ProfessorName string     `bson:"professorName"`
	Subject       string     `bson:"subject"`
	Period        int        `bson:"period"`
	SchoolCycle   string     `bson:"schoolCycle"`
	FileKey       string     `bson:"fileKey"`
	OriginalName  string     `bson:"originalName"`
	FileSize      int64      `bson:"fileSize"`
	Status        string     `bson:"status"`
	Reviewer      string     `bson:"reviewer,omitempty"`
	Comments      string     `bson:"comments,omitempty"`
	ReviewedAt    *time.Time `bson:"reviewedAt,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt"`
}

func toPlanDoc(p plan.Plan) planDoc {
	return planDoc(p)
}

func (d planDoc) plan() plan.Plan {
	p := plan.Plan(d)
	p.CreatedAt = utc(d.CreatedAt)
	p.UpdatedAt = utc(d.UpdatedAt)
	p.ReviewedAt = utcPtr(d.ReviewedAt)
	return p
}

type planRepository struct {
	coll *mongo.Collection
}

var _ plan.Repository = (*planRepository)(nil)

func NewPlanRepository(db *mongo.Database) plan.Repository {
	return &planRepository{coll: db.Collection(PlansCollection)}
}

func (repo *planRepository) CreatePlan(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	if _, err := repo.coll.InsertOne(ctx, toPlanDoc(p)); err != nil {
		return plan.Plan{}, errors.Wrap(err, "inserting plan")
	}
	return p, nil
}

func (repo *planRepository) GetPlan(ctx context.Context, id string) (plan.Plan, error) {
	doc, err := findOne[planDoc](ctx, repo.coll, bson.M{"_id": id}, plan.ErrNotFound)
	if err != nil {
		return plan.Plan{}, errors.Wrap(err, "getting plan")
	}
	return doc.plan(), nil
}

func (repo *planRepository) QueryPlans(ctx context.Context, filter *plan.QueryFilter, ordering []core.DBOrdering) ([]plan.Plan, error) {
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
		if filter.Status != "" {
			q["status"] = filter.Status
		}
	}
	docs, err := findAll[planDoc](ctx, repo.coll, q, options.Find().SetSort(sortBy(ordering, planFields)))
	if err != nil {
		return nil, errors.Wrap(err, "querying plans")
	}
	plans := make([]plan.Plan, 0, len(docs))
	for _, d := range docs {
		plans = append(plans, d.plan())
	}
	return plans, nil
}

func (repo *planRepository) UpdatePlan(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	if err := replaceOne(ctx, repo.coll, p.ID, toPlanDoc(p), plan.ErrNotFound); err != nil {
		return plan.Plan{}, errors.Wrap(err, "updating plan")
	}
	return p, nil
}

func (repo *planRepository) DeletePlan(ctx context.Context, id string) error {
	return errors.Wrap(deleteOne(ctx, repo.coll, id, plan.ErrNotFound), "deleting plan")
}
