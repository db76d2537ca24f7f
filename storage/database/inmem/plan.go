package inmemdb

import (
	"context"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
)

var planOrderings = map[string]comparator[plan.Plan]{
	"createdAt":      func(a, b plan.Plan) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updatedAt":      func(a, b plan.Plan) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
	"materia":        func(a, b plan.Plan) int { return cmpFold(a.Subject, b.Subject) },
	"parcial":        func(a, b plan.Plan) int { return cmpInt(a.Period, b.Period) },
	"cicloEscolar":   func(a, b plan.Plan) int { return cmpFold(a.SchoolCycle, b.SchoolCycle) },
	"estado":         func(a, b plan.Plan) int { return cmpFold(a.Status, b.Status) },
	"nombreProfesor": func(a, b plan.Plan) int { return cmpFold(a.ProfessorName, b.ProfessorName) },
}

type planRepository struct {
	db *table[plan.Plan]
}

var _ plan.Repository = (*planRepository)(nil)

func NewPlanRepository(db *DB) plan.Repository {
	return &planRepository{db: db.plans}
}

func copyPlan(p plan.Plan) plan.Plan {
	p.ReviewedAt = cloneTime(p.ReviewedAt)
	return p
}

func (repo *planRepository) CreatePlan(_ context.Context, p plan.Plan) (plan.Plan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.rows[p.ID] = copyPlan(p)
	return p, nil
}

func (repo *planRepository) GetPlan(_ context.Context, id string) (plan.Plan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if p, ok := repo.db.rows[id]; ok {
		return copyPlan(p), nil
	}
	return plan.Plan{}, plan.ErrNotFound
}

func (repo *planRepository) QueryPlans(_ context.Context, filter *plan.QueryFilter, ordering []core.DBOrdering) ([]plan.Plan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	plans := selectRows(repo.db, filter.Matches, ordering, planOrderings)
	for i := range plans {
		plans[i] = copyPlan(plans[i])
	}
	return plans, nil
}

func (repo *planRepository) UpdatePlan(_ context.Context, p plan.Plan) (plan.Plan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rows[p.ID]; !ok {
		return plan.Plan{}, plan.ErrNotFound
	}
	repo.db.rows[p.ID] = copyPlan(p)
	return p, nil
}

func (repo *planRepository) DeletePlan(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.rows[id]; !ok {
		return plan.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
