package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
)

var evidenceColumns = map[string]string{
	"createdAt":        "created_at",
	"updatedAt":        "updated_at",
	"fechaInicio":      "start_date",
	"fechaFin":         "end_date",
	"horasAcreditadas": "hours",
	"nombreCurso":      "course_name",
	"institucion":      "institution",
	"estado":           "status",
	"nombreProfesor":   "professor_name",
}

type evidenceRow struct {
	ID            string      `db:"id"`
	ProfessorID   string      `db:"professor_id"`
	ProfessorName string      `db:"professor_name"`
	CourseName    string      `db:"course_name"`
	Institution   string      `db:"institution"`
	StartDate     time.Time   `db:"start_date"`
	EndDate       time.Time   `db:"end_date"`
	Hours         float64     `db:"hours"`
	TrainingType  string      `db:"training_type"`
	FileKey       null.String `db:"file_key"`
	OriginalName  null.String `db:"original_name"`
	Status        string      `db:"status"`
	Validator     null.String `db:"validator"`
	Observations  null.String `db:"observations"`
	ValidatedAt   null.Time   `db:"validated_at"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func toEvidenceRow(e evidence.Evidence) evidenceRow {
	return evidenceRow{
		ID:            e.ID,
		ProfessorID:   e.ProfessorID,
		ProfessorName: e.ProfessorName,
		CourseName:    e.CourseName,
		Institution:   e.Institution,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		Hours:         e.Hours,
		TrainingType:  e.TrainingType,
		FileKey:       null.NewString(e.FileKey, e.FileKey != ""),
		OriginalName:  null.NewString(e.OriginalName, e.OriginalName != ""),
		Status:        e.Status,
		Validator:     null.NewString(e.Validator, e.Validator != ""),
		Observations:  null.NewString(e.Observations, e.Observations != ""),
		ValidatedAt:   null.TimeFromPtr(e.ValidatedAt),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func (r evidenceRow) evidence() evidence.Evidence {
	return evidence.Evidence{
		ID:            r.ID,
		ProfessorID:   r.ProfessorID,
		ProfessorName: r.ProfessorName,
		CourseName:    r.CourseName,
		Institution:   r.Institution,
		StartDate:     r.StartDate.UTC(),
		EndDate:       r.EndDate.UTC(),
		Hours:         r.Hours,
		TrainingType:  r.TrainingType,
		FileKey:       r.FileKey.String,
		OriginalName:  r.OriginalName.String,
		Status:        r.Status,
		Validator:     r.Validator.String,
		Observations:  r.Observations.String,
		ValidatedAt:   r.ValidatedAt.Ptr(),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type evidenceRepository struct {
	db *sqlx.DB
}

var _ evidence.Repository = (*evidenceRepository)(nil)

func NewEvidenceRepository(db *sqlx.DB) evidence.Repository {
	return &evidenceRepository{db: db}
}

func (repo *evidenceRepository) CreateEvidence(ctx context.Context, e evidence.Evidence) (evidence.Evidence, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO evidence (id, professor_id, professor_name, course_name, institution, start_date, end_date,
			hours, training_type, file_key, original_name, status, validator, observations, validated_at,
			created_at, updated_at)
		VALUES (:id, :professor_id, :professor_name, :course_name, :institution, :start_date, :end_date,
			:hours, :training_type, :file_key, :original_name, :status, :validator, :observations, :validated_at,
			:created_at, :updated_at)`,
		toEvidenceRow(e))
	if err != nil {
		return evidence.Evidence{}, errors.Wrap(err, "inserting evidence")
	}
	return e, nil
}

func (repo *evidenceRepository) GetEvidence(ctx context.Context, id string) (evidence.Evidence, error) {
	if _, err := uuid.Parse(id); err != nil {
		return evidence.Evidence{}, evidence.ErrNotFound
	}
	var row evidenceRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT * FROM evidence WHERE id = ?"), id); err != nil {
		return evidence.Evidence{}, trapNoRowsErr(err, evidence.ErrNotFound, "getting evidence")
	}
	return row.evidence(), nil
}

func (repo *evidenceRepository) QueryEvidence(ctx context.Context, filter *evidence.QueryFilter, ordering []core.DBOrdering) ([]evidence.Evidence, error) {
	w := new(where)
	if filter != nil {
		if filter.ProfessorID != "" {
			w.add("professor_id = ?", filter.ProfessorID)
		}
		if filter.ProfessorName != "" {
			w.add("professor_name = ?", filter.ProfessorName)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.TrainingType != "" {
			w.add("training_type = ?", filter.TrainingType)
		}
		if filter.Institution != "" {
			w.add("institution = ?", filter.Institution)
		}
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(course_name ILIKE ? OR institution ILIKE ? OR training_type ILIKE ?)", val, val, val)
		}
	}

	var rows []evidenceRow
	q := "SELECT * FROM evidence" + w.String() + orderBy(ordering, evidenceColumns, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying evidence")
	}
	records := make([]evidence.Evidence, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.evidence())
	}
	return records, nil
}

func (repo *evidenceRepository) UpdateEvidence(ctx context.Context, e evidence.Evidence) (evidence.Evidence, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE evidence SET course_name = :course_name, institution = :institution, start_date = :start_date,
			end_date = :end_date, hours = :hours, training_type = :training_type, status = :status,
			validator = :validator, observations = :observations, validated_at = :validated_at,
			updated_at = :updated_at
		WHERE id = :id`,
		toEvidenceRow(e))
	if err != nil {
		return evidence.Evidence{}, errors.Wrap(err, "updating evidence")
	}
	if err = checkAffected(res, evidence.ErrNotFound); err != nil {
		return evidence.Evidence{}, err
	}
	return e, nil
}

func (repo *evidenceRepository) DeleteEvidence(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM evidence WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting evidence")
	}
	return checkAffected(res, evidence.ErrNotFound)
}
