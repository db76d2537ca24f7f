package inmemdb

import (
	"context"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
)

var evidenceOrderings = map[string]comparator[evidence.Evidence]{
	"createdAt":        func(a, b evidence.Evidence) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updatedAt":        func(a, b evidence.Evidence) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
	"fechaInicio":      func(a, b evidence.Evidence) int { return cmpTime(a.StartDate, b.StartDate) },
	"fechaFin":         func(a, b evidence.Evidence) int { return cmpTime(a.EndDate, b.EndDate) },
	"horasAcreditadas": func(a, b evidence.Evidence) int { return cmpFloat(a.Hours, b.Hours) },
	"nombreCurso":      func(a, b evidence.Evidence) int { return cmpFold(a.CourseName, b.CourseName) },
	"institucion":      func(a, b evidence.Evidence) int { return cmpFold(a.Institution, b.Institution) },
	"estado":           func(a, b evidence.Evidence) int { return cmpFold(a.Status, b.Status) },
	"nombreProfesor":   func(a, b evidence.Evidence) int { return cmpFold(a.ProfessorName, b.ProfessorName) },
}

type evidenceRepository struct {
	db *table[evidence.Evidence]
}

var _ evidence.Repository = (*evidenceRepository)(nil)

func NewEvidenceRepository(db *DB) evidence.Repository {
	return &evidenceRepository{db: db.evidence}
}

func copyEvidence(e evidence.Evidence) evidence.Evidence {
	e.ValidatedAt = cloneTime(e.ValidatedAt)
	return e
}

func (repo *evidenceRepository) CreateEvidence(_ context.Context, e evidence.Evidence) (evidence.Evidence, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.rows[e.ID] = copyEvidence(e)
	return e, nil
}

func (repo *evidenceRepository) GetEvidence(_ context.Context, id string) (evidence.Evidence, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if e, ok := repo.db.rows[id]; ok {
		return copyEvidence(e), nil
	}
	return evidence.Evidence{}, evidence.ErrNotFound
}

func (repo *evidenceRepository) QueryEvidence(_ context.Context, filter *evidence.QueryFilter, ordering []core.DBOrdering) ([]evidence.Evidence, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	records := selectRows(repo.db, filter.Matches, ordering, evidenceOrderings)
	for i := range records {
		records[i] = copyEvidence(records[i])
	}
	return records, nil
}

func (repo *evidenceRepository) UpdateEvidence(_ context.Context, e evidence.Evidence) (evidence.Evidence, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rows[e.ID]; !ok {
		return evidence.Evidence{}, evidence.ErrNotFound
	}
	repo.db.rows[e.ID] = copyEvidence(e)
	return e, nil
}

func (repo *evidenceRepository) DeleteEvidence(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rows[id]; !ok {
		return evidence.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
