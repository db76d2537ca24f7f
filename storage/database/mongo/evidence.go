package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
)

var evidenceFields = map[string]string{
	"createdAt":        "createdAt",
	"updatedAt":        "updatedAt",
	"fechaInicio":      "startDate",
	"fechaFin":         "endDate",
	"horasAcreditadas": "hours",
	"nombreCurso":      "courseName",
	"institucion":      "institution",
	"estado":           "status",
	"nombreProfesor":   "professorName",
}

type evidenceDoc struct {
	ID            string     `bson:"_id"`
	ProfessorID   string     `bson:"professorId"`
	ProfessorName string     `bson:"professorName"`
	CourseName    string     `bson:"courseName"`
	Institution   string     `bson:"institution"`
	StartDate     time.Time  `bson:"startDate"`
	EndDate       time.Time  `bson:"endDate"`
	Hours         float64    `bson:"hours"`
	TrainingType  string     `bson:"trainingType"`
	FileKey       string     `bson:"fileKey,omitempty"`
	OriginalName  string     `bson:"originalName,omitempty"`
	Status        string     `bson:"status"`
	Validator     string     `bson:"validator,omitempty"`
	Observations  string     `bson:"observations,omitempty"`
	ValidatedAt   *time.Time `bson:"validatedAt,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt"`
}

func (d evidenceDoc) evidence() evidence.Evidence {
	e := evidence.Evidence(d)
	e.StartDate = utc(d.StartDate)
	e.EndDate = utc(d.EndDate)
	e.ValidatedAt = utcPtr(d.ValidatedAt)
	e.CreatedAt = utc(d.CreatedAt)
	e.UpdatedAt = utc(d.UpdatedAt)
	return e
}

type evidenceRepository struct {
	coll *mongo.Collection
}

var _ evidence.Repository = (*evidenceRepository)(nil)

func NewEvidenceRepository(db *mongo.Database) evidence.Repository {
	return &evidenceRepository{coll: db.Collection(EvidenceCollection)}
}

func (repo *evidenceRepository) CreateEvidence(ctx context.Context, e evidence.Evidence) (evidence.Evidence, error) {
	if _, err := repo.coll.InsertOne(ctx, evidenceDoc(e)); err != nil {
		return evidence.Evidence{}, errors.Wrap(err, "inserting evidence")
	}
	return e, nil
}

func (repo *evidenceRepository) GetEvidence(ctx context.Context, id string) (evidence.Evidence, error) {
	doc, err := findOne[evidenceDoc](ctx, repo.coll, bson.M{"_id": id}, evidence.ErrNotFound)
	if err != nil {
		return evidence.Evidence{}, errors.Wrap(err, "getting evidence")
	}
	return doc.evidence(), nil
}

func (repo *evidenceRepository) QueryEvidence(ctx context.Context, filter *evidence.QueryFilter, ordering []core.DBOrdering) ([]evidence.Evidence, error) {
	q := bson.M{}
	if filter != nil {
		if filter.ProfessorID != "" {
			q["professorId"] = filter.ProfessorID
		}
		if filter.ProfessorName != "" {
			q["professorName"] = filter.ProfessorName
		}
		if filter.Status != "" {
			q["status"] = filter.Status
		}
		if filter.TrainingType != "" {
			q["trainingType"] = filter.TrainingType
		}
		if filter.Institution != "" {
			q["institution"] = filter.Institution
		}
		if filter.Search != "" {
			q["$or"] = bson.A{
				bson.M{"courseName": contains(filter.Search)},
				bson.M{"institution": contains(filter.Search)},
				bson.M{"trainingType": contains(filter.Search)},
			}
		}
	}
	docs, err := findAll[evidenceDoc](ctx, repo.coll, q, options.Find().SetSort(sortBy(ordering, evidenceFields)))
	if err != nil {
		return nil, errors.Wrap(err, "querying evidence")
	}
	records := make([]evidence.Evidence, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.evidence())
	}
	return records, nil
}

func (repo *evidenceRepository) UpdateEvidence(ctx context.Context, e evidence.Evidence) (evidence.Evidence, error) {
	if err := replaceOne(ctx, repo.coll, e.ID, evidenceDoc(e), evidence.ErrNotFound); err != nil {
		return evidence.Evidence{}, errors.Wrap(err, "updating evidence")
	}
	return e, nil
}

func (repo *evidenceRepository) DeleteEvidence(ctx context.Context, id string) error {
	return errors.Wrap(deleteOne(ctx, repo.coll, id, evidence.ErrNotFound), "deleting evidence")
}
