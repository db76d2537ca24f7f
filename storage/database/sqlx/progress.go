package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
)

var progressColumns = map[string]string{
	"createdAt":        "created_at",
	"updatedAt":        "updated_at",
	"materia":          "subject",
	"parcial":          "period",
	"cicloEscolar":     "school_cycle",
	"porcentajeAvance": "percentage",
	"cumplimiento":     "compliance",
	"nombreProfesor":   "professor_name",
}

type progressRow struct {
	ID            string         `db:"id"`
	ProfessorID   string         `db:"professor_id"`
	ProfessorName string         `db:"professor_name"`
	Subject       string         `db:"subject"`
	Period        int            `db:"period"`
	SchoolCycle   string         `db:"school_cycle"`
	PlannedTopics pq.StringArray `db:"planned_topics"`
	CoveredTopics pq.StringArray `db:"covered_topics"`
	Percentage    int            `db:"percentage"`
	Compliance    string         `db:"compliance"`
	Activities    string         `db:"activities"`
	Difficulties  string         `db:"difficulties"`
	Observations  string         `db:"observations"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func toProgressRow(p progress.Progress) progressRow {
	return progressRow{
		ID:            p.ID,
		ProfessorID:   p.ProfessorID,
		ProfessorName: p.ProfessorName,
		Subject:       p.Subject,
		Period:        p.Period,
		SchoolCycle:   p.SchoolCycle,
		PlannedTopics: pq.StringArray(toStrings(p.PlannedTopics)),
		CoveredTopics: pq.StringArray(toStrings(p.CoveredTopics)),
		Percentage:    p.Percentage,
		Compliance:    p.Compliance,
		Activities:    p.Activities,
		Difficulties:  p.Difficulties,
		Observations:  p.Observations,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r progressRow) progress() progress.Progress {
	return progress.Progress{
		ID:            r.ID,
		ProfessorID:   r.ProfessorID,
		ProfessorName: r.ProfessorName,
		Subject:       r.Subject,
		Period:        r.Period,
		SchoolCycle:   r.SchoolCycle,
		PlannedTopics: toStrings(r.PlannedTopics),
		CoveredTopics: toStrings(r.CoveredTopics),
		Percentage:    r.Percentage,
		Compliance:    r.Compliance,
		Activities:    r.Activities,
		Difficulties:  r.Difficulties,
		Observations:  r.Observations,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CreateProgress(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO progress (id, professor_id, professor_name, subject, period, school_cycle, planned_topics,
			covered_topics, percentage, compliance, activities, difficulties, observations, created_at, updated_at)
		VALUES (:id, :professor_id, :professor_name, :subject, :period, :school_cycle, :planned_topics,
			:covered_topics, :percentage, :compliance, :activities, :difficulties, :observations, :created_at, :updated_at)`,
		toProgressRow(p))
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "inserting progress")
	}
	return p, nil
}

func (repo *progressRepository) GetProgress(ctx context.Context, id string) (progress.Progress, error) {
	if _, err := uuid.Parse(id); err != nil {
		return progress.Progress{}, progress.ErrNotFound
	}
	var row progressRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT * FROM progress WHERE id = ?"), id); err != nil {
		return progress.Progress{}, trapNoRowsErr(err, progress.ErrNotFound, "getting progress")
	}
	return row.progress(), nil
}

func (repo *progressRepository) QueryProgress(ctx context.Context, filter *progress.QueryFilter, ordering []core.DBOrdering) ([]progress.Progress, error) {
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
		if len(filter.Compliance) > 0 {
			w.add("compliance = ANY(?)", pq.Array(filter.Compliance))
		}
	}

	var rows []progressRow
	q := "SELECT * FROM progress" + w.String() + orderBy(ordering, progressColumns, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	records := make([]progress.Progress, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.progress())
	}
	return records, nil
}

func (repo *progressRepository) UpdateProgress(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE progress SET subject = :subject, period = :period, school_cycle = :school_cycle,
			planned_topics = :planned_topics, covered_topics = :covered_topics, percentage = :percentage,
			compliance = :compliance, activities = :activities, difficulties = :difficulties,
			observations = :observations, updated_at = :updated_at
		WHERE id = :id`,
		toProgressRow(p))
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "updating progress")
	}
	if err = checkAffected(res, progress.ErrNotFound); err != nil {
		return progress.Progress{}, err
	}
	return p, nil
}

func (repo *progressRepository) DeleteProgress(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM progress WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting progress")
	}
	return checkAffected(res, progress.ErrNotFound)
}
