package inmemdb

import (
	"context"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
)

var progressOrderings = map[string]comparator[progress.Progress]{
	"createdAt":        func(a, b progress.Progress) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updatedAt":        func(a, b progress.Progress) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
	"materia":          func(a, b progress.Progress) int { return cmpFold(a.Subject, b.Subject) },
	"parcial":          func(a, b progress.Progress) int { return cmpInt(a.Period, b.Period) },
	"cicloEscolar":     func(a, b progress.Progress) int { return cmpFold(a.SchoolCycle, b.SchoolCycle) },
	"porcentajeAvance": func(a, b progress.Progress) int { return cmpInt(a.Percentage, b.Percentage) },
	"cumplimiento":     func(a, b progress.Progress) int { return cmpFold(a.Compliance, b.Compliance) },
	"nombreProfesor":   func(a, b progress.Progress) int { return cmpFold(a.ProfessorName, b.ProfessorName) },
}

type progressRepository struct {
	db *table[progress.Progress]
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db.progress}
}

func copyProgress(p progress.Progress) progress.Progress {
	p.PlannedTopics = cloneStrings(p.PlannedTopics)
	p.CoveredTopics = cloneStrings(p.CoveredTopics)
	return p
}

func (repo *progressRepository) CreateProgress(_ context.Context, p progress.Progress) (progress.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.rows[p.ID] = copyProgress(p)
	return p, nil
}

func (repo *progressRepository) GetProgress(_ context.Context, id string) (progress.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if p, ok := repo.db.rows[id]; ok {
		return copyProgress(p), nil
	}
	return progress.Progress{}, progress.ErrNotFound
}

func (repo *progressRepository) QueryProgress(_ context.Context, filter *progress.QueryFilter, ordering []core.DBOrdering) ([]progress.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	records := selectRows(repo.db, filter.Matches, ordering, progressOrderings)
	for i := range records {
		records[i] = copyProgress(records[i])
	}
	return records, nil
}

func (repo *progressRepository) UpdateProgress(_ context.Context, p progress.Progress) (progress.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rows[p.ID]; !ok {
		return progress.Progress{}, progress.ErrNotFound
	}
	repo.db.rows[p.ID] = copyProgress(p)
	return p, nil
}

func (repo *progressRepository) DeleteProgress(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rows[id]; !ok {
		return progress.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
