package progress

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("avance no encontrado")
)

type Repository interface {
	CreateProgress(ctx context.Context, p Progress) (Progress, error)
	GetProgress(ctx context.Context, id string) (Progress, error)
	// QueryProgress applies AND operation on available QueryFilter fields; newest first by default.
	QueryProgress(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Progress, error)
	UpdateProgress(ctx context.Context, p Progress) (Progress, error)
	DeleteProgress(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, owner user.User, np NewProgress) (Progress, error) {
	now := time.Now().UTC()
	p := Progress{
		ID:            uuid.New().String(),
		ProfessorID:   owner.ID,
		ProfessorName: owner.Name,
		Subject:       np.Subject,
		Period:        np.Period,
		SchoolCycle:   np.SchoolCycle,
		PlannedTopics: nonNil(np.PlannedTopics),
		CoveredTopics: nonNil(np.CoveredTopics),
		Compliance:    np.Compliance,
		Activities:    np.Activities,
		Difficulties:  np.Difficulties,
		Observations:  np.Observations,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.Percentage = CompletionPercentage(p.PlannedTopics, p.CoveredTopics)
	return svc.repo.CreateProgress(ctx, p)
}

func (svc *Service) Get(ctx context.Context, id string) (Progress, error) {
	return svc.repo.GetProgress(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Progress, error) {
	return svc.repo.QueryProgress(ctx, filter, ordering)
}

// Update applies the allowed fields and recomputes the percentage.
func (svc *Service) Update(ctx context.Context, p Progress, up UpdateProgress) (Progress, error) {
	if up.Subject != nil {
		p.Subject = *up.Subject
	}
	if up.Period != nil {
		p.Period = *up.Period
	}
	if up.SchoolCycle != nil {
		p.SchoolCycle = *up.SchoolCycle
	}
	if up.PlannedTopics != nil {
		p.PlannedTopics = nonNil(*up.PlannedTopics)
	}
	if up.CoveredTopics != nil {
		p.CoveredTopics = nonNil(*up.CoveredTopics)
	}
	if up.Compliance != nil {
		p.Compliance = *up.Compliance
	}
	if up.Activities != nil {
		p.Activities = *up.Activities
	}
	if up.Difficulties != nil {
		p.Difficulties = *up.Difficulties
	}
	if up.Observations != nil {
		p.Observations = *up.Observations
	}
	p.Percentage = CompletionPercentage(p.PlannedTopics, p.CoveredTopics)
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProgress(ctx, p)
}

func (svc *Service) Delete(ctx context.Context, p Progress) error {
	return svc.repo.DeleteProgress(ctx, p.ID)
}

// Pending returns the records of a cycle whose compliance is partial or not met.
func (svc *Service) Pending(ctx context.Context, cycle string) ([]Progress, error) {
	return svc.repo.QueryProgress(ctx, &QueryFilter{
		SchoolCycle: cycle,
		Compliance:  []string{CompliancePartial, ComplianceNotMet},
	}, []core.DBOrdering{{Field: "createdAt", Ascending: true}})
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
