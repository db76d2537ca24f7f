package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
)

var planColumns = map[string]string{
	"createdAt":      "created_at",
	"updatedAt":      "updated_at",
	"materia":        "subject",
	"parcial":        "period",
	"cicloEscolar":   "school_cycle",
	"estado":         "status",
	"nombreProfesor": "professor_name",
}

type planRow struct {
	ID            string      `db:"id"`
	ProfessorID   string      `db:"professor_id"`
	ProfessorName string      `db:"professor_name"`
	Subject       string      `db:"subject"`
	Period        int         `db:"period"`
	SchoolCycle   string      `db:"school_cycle"`
	FileKey       string      `db:"file_key"`
	OriginalName  string      `db:"original_name"`
	FileSize      int64       `db:"file_size"`
	Status        string      `db:"status"`
	Reviewer      null.String `db:"reviewer"`
	Comments      null.String `db:"comments"`
	ReviewedAt    null.Time   `db:"reviewed_at"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func toPlanRow(p plan.Plan) planRow {
	return planRow{
		ID:            p.ID,
		ProfessorID:   p.ProfessorID,
		ProfessorName: p.ProfessorName,
		Subject:       p.Subject,
		Period:        p.Period,
		SchoolCycle:   p.SchoolCycle,
		FileKey:       p.FileKey,
		OriginalName:  p.OriginalName,
		FileSize:      p.FileSize,
		Status:        p.Status,
		Reviewer:      null.NewString(p.Reviewer, p.Reviewer != ""),
		Comments:      null.NewString(p.Comments, p.Comments != ""),
		ReviewedAt:    null.TimeFromPtr(p.ReviewedAt),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r planRow) plan() plan.Plan {
	return plan.Plan{
		ID:            r.ID,
		ProfessorID:   r.ProfessorID,
		ProfessorName: r.ProfessorName,
		Subject:       r.Subject,
		Period:        r.Period,
		SchoolCycle:   r.SchoolCycle,
		FileKey:       r.FileKey,
		OriginalName:  r.OriginalName,
		FileSize:      r.FileSize,
		Status:        r.Status,
		Reviewer:      r.Reviewer.String,
		Comments:      r.Comments.String,
		ReviewedAt:    r.ReviewedAt.Ptr(),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type planRepository struct {
	db *sqlx.DB
}

var _ plan.Repository = (*planRepository)(nil)

func NewPlanRepository(db *sqlx.DB) plan.Repository {
	return &planRepository{db: db}
}

func (repo *planRepository) CreatePlan(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO plans (id, professor_id, professor_name, subject, period, school_cycle, file_key,
			original_name, file_size, status, reviewer, comments, reviewed_at, created_at, updated_at)
		VALUES (:id, :professor_id, :professor_name, :subject, :period, :school_cycle, :file_key,
			:original_name, :file_size, :status, :reviewer, :comments, :reviewed_at, :created_at, :updated_at)`,
		toPlanRow(p))
	if err != nil {
		return plan.Plan{}, errors.Wrap(err, "inserting plan")
	}
	return p, nil
}

func (repo *planRepository) GetPlan(ctx context.Context, id string) (plan.Plan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return plan.Plan{}, plan.ErrNotFound
	}
	var row planRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT * FROM plans WHERE id = ?"), id); err != nil {
		return plan.Plan{}, trapNoRowsErr(err, plan.ErrNotFound, "getting plan")
	}
	return row.plan(), nil
}

func (repo *planRepository) QueryPlans(ctx context.Context, filter *plan.QueryFilter, ordering []core.DBOrdering) ([]plan.Plan, error) {
	w := new(where)
	if filter != nil {
		if filter.ProfessorID != "" {
			w.add("professor_id = ?", filter.ProfessorID)
		}
		if filter.ProfessorName != "" {
			w.add("professor_name = ?", filter.ProfessorName)
		}
		if filter.Subject != "" {
			w.add("subject = ?", filter.Subject)
		}
		if filter.Period != 0 {
			w.add("period = ?", filter.Period)
		}
		if filter.SchoolCycle != "" {
			w.add("school_cycle = ?", filter.SchoolCycle)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}

	var rows []planRow
	q := "SELECT * FROM plans" + w.String() + orderBy(ordering, planColumns, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying plans")
	}
	plans := make([]plan.Plan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.plan())
	}
	return plans, nil
}

func (repo *planRepository) UpdatePlan(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE plans SET subject = :subject, period = :period, school_cycle = :school_cycle, status = :status,
			reviewer = :reviewer, comments = :comments, reviewed_at = :reviewed_at, updated_at = :updated_at
		WHERE id = :id`,
		toPlanRow(p))
	if err != nil {
		return plan.Plan{}, errors.Wrap(err, "updating plan")
	}
	if err = checkAffected(res, plan.ErrNotFound); err != nil {
		return plan.Plan{}, err
	}
	return p, nil
}

func (repo *planRepository) DeletePlan(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM plans WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting plan")
	}
	return checkAffected(res, plan.ErrNotFound)
}
