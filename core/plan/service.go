package plan

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

// FilesDir is the storage directory of the uploaded files.
const FilesDir = "planeaciones"

var (
	// errors
	ErrNotFound = core.NewNotFoundError("planeación no encontrada")

	// AllowedTypes are the content types accepted for a plan file.
	AllowedTypes = []string{core.MimePDF}
)

type Repository interface {
	CreatePlan(ctx context.Context, p Plan) (Plan, error)
	GetPlan(ctx context.Context, id string) (Plan, error)
	// QueryPlans applies AND operation on available QueryFilter fields; newest first by default.
	QueryPlans(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Plan, error)
	UpdatePlan(ctx context.Context, p Plan) (Plan, error)
	DeletePlan(ctx context.Context, id string) error
}

type Service struct {
	repo    Repository
	files   core.FileStore
	logger  core.Logger
	maxSize int64
}

func NewService(repo Repository, files core.FileStore, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		files:   files,
		logger:  logger,
		maxSize: conf.Storage.MaxUploadSize,
	}
}

// Create stores the file first and the record second.
// If the record cannot be saved the stored file is deleted again.
func (svc *Service) Create(ctx context.Context, owner user.User, np NewPlan, upload *core.Upload) (Plan, error) {
	if err := upload.Check(svc.maxSize, AllowedTypes...); err != nil {
		return Plan{}, err
	}

	key := upload.NewKey(FilesDir)
	if err := svc.files.Save(ctx, key, upload.Content); err != nil {
		return Plan{}, errors.Wrap(err, "saving plan file")
	}

	now := time.Now().UTC()
	p, err := svc.repo.CreatePlan(ctx, Plan{
		ID:            uuid.New().String(),
		ProfessorID:   owner.ID,
		ProfessorName: owner.Name,
		Subject:       np.Subject,
		Period:        np.Period,
		SchoolCycle:   np.SchoolCycle,
		FileKey:       key,
		OriginalName:  upload.OriginalName(),
		FileSize:      upload.Size,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		if delErr := svc.files.Delete(ctx, key); delErr != nil {
			svc.logger.Warn("deleting orphan plan file "+key, delErr)
		}
		return Plan{}, errors.Wrap(err, "creating plan")
	}
	return p, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Plan, error) {
	return svc.repo.GetPlan(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Plan, error) {
	return svc.repo.QueryPlans(ctx, filter, ordering)
}

// Update changes the content fields of a plan.
func (svc *Service) Update(ctx context.Context, p Plan, up UpdatePlan) (Plan, error) {
	if up.Subject != nil {
		p.Subject = *up.Subject
	}
	if up.Period != nil {
		p.Period = *up.Period
	}
	if up.SchoolCycle != nil {
		p.SchoolCycle = *up.SchoolCycle
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePlan(ctx, p)
}

// Review records the decision of `reviewer` on the plan.
func (svc *Service) Review(ctx context.Context, p Plan, reviewer user.User, rp ReviewPlan) (Plan, error) {
	now := time.Now().UTC()
	p.Status = rp.Status
	p.Comments = rp.Comments
	p.Reviewer = reviewer.Name
	p.ReviewedAt = &now
	p.UpdatedAt = now
	return svc.repo.UpdatePlan(ctx, p)
}

// Delete removes the record, then its file. A file that cannot be removed is only logged.
func (svc *Service) Delete(ctx context.Context, p Plan) error {
	if err := svc.repo.DeletePlan(ctx, p.ID); err != nil {
		return errors.Wrap(err, "deleting plan")
	}
	if err := svc.files.Delete(ctx, p.FileKey); err != nil && !core.IsNotFound(err) {
		svc.logger.Warn("deleting plan file "+p.FileKey, err)
	}
	return nil
}

// OpenFile returns the stored PDF of the plan. The caller closes it.
func (svc *Service) OpenFile(ctx context.Context, p Plan) (io.ReadCloser, error) {
	return svc.files.Open(ctx, p.FileKey)
}
