package evidence

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
const FilesDir = "evidencias"

var (
	// errors
	ErrNotFound = core.NewNotFoundError("evidencia no encontrada")

	// AllowedTypes are the content types accepted for an evidence file.
	AllowedTypes = []string{core.MimePDF, core.MimeJPEG, core.MimePNG}
)

type Repository interface {
	CreateEvidence(ctx context.Context, e Evidence) (Evidence, error)
	GetEvidence(ctx context.Context, id string) (Evidence, error)
	// QueryEvidence applies AND operation on available QueryFilter fields; newest first by default.
	QueryEvidence(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Evidence, error)
	UpdateEvidence(ctx context.Context, e Evidence) (Evidence, error)
	DeleteEvidence(ctx context.Context, id string) error
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

// Create stores the optional file, then the record; the file is removed again if the record fails.
func (svc *Service) Create(ctx context.Context, owner user.User, ne NewEvidence, upload *core.Upload) (Evidence, error) {
	now := time.Now().UTC()
	e := Evidence{
		ID:            uuid.New().String(),
		ProfessorID:   owner.ID,
		ProfessorName: owner.Name,
		CourseName:    ne.CourseName,
		Institution:   ne.Institution,
		StartDate:     ne.StartDate.Time,
		EndDate:       ne.EndDate.Time,
		Hours:         ne.Hours,
		TrainingType:  ne.TrainingType,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if upload != nil {
		if err := upload.Check(svc.maxSize, AllowedTypes...); err != nil {
			return Evidence{}, err
		}
		e.FileKey = upload.NewKey(FilesDir)
		e.OriginalName = upload.OriginalName()
		if err := svc.files.Save(ctx, e.FileKey, upload.Content); err != nil {
			return Evidence{}, errors.Wrap(err, "saving evidence file")
		}
	}

	created, err := svc.repo.CreateEvidence(ctx, e)
	if err != nil {
		if e.FileKey != "" {
			if delErr := svc.files.Delete(ctx, e.FileKey); delErr != nil {
				svc.logger.Warn("deleting orphan evidence file "+e.FileKey, delErr)
			}
		}
		return Evidence{}, errors.Wrap(err, "creating evidence")
	}
	return created, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Evidence, error) {
	return svc.repo.GetEvidence(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Evidence, error) {
	return svc.repo.QueryEvidence(ctx, filter, ordering)
}

// Update applies the owner's edits. Editing a decided record sends it back to pendiente
// and clears the previous decision.
func (svc *Service) Update(ctx context.Context, e Evidence, ue UpdateEvidence) (Evidence, error) {
	before := e
	if ue.CourseName != nil {
		e.CourseName = *ue.CourseName
	}
	if ue.Institution != nil {
		e.Institution = *ue.Institution
	}
	if ue.StartDate != nil {
		e.StartDate = ue.StartDate.Time
	}
	if ue.EndDate != nil {
		e.EndDate = ue.EndDate.Time
	}
	if ue.Hours != nil {
		e.Hours = *ue.Hours
	}
	if ue.TrainingType != nil {
		e.TrainingType = *ue.TrainingType
	}
	if e.Status != StatusPending && contentChanged(before, e) {
		e.Status = StatusPending
		e.Validator = ""
		e.Observations = ""
		e.ValidatedAt = nil
	}
	e.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEvidence(ctx, e)
}

func contentChanged(a, b Evidence) bool {
	return a.CourseName != b.CourseName ||
		a.Institution != b.Institution ||
		!a.StartDate.Equal(b.StartDate) ||
		!a.EndDate.Equal(b.EndDate) ||
		a.Hours != b.Hours ||
		a.TrainingType != b.TrainingType
}

// Validate records the decision of `validator` on the evidence.
func (svc *Service) Validate(ctx context.Context, e Evidence, validator user.User, ve ValidateEvidence) (Evidence, error) {
	now := time.Now().UTC()
	e.Status = ve.Status
	e.Observations = ve.Observations
	e.Validator = validator.Name
	e.ValidatedAt = &now
	e.UpdatedAt = now
	return svc.repo.UpdateEvidence(ctx, e)
}

func (svc *Service) Delete(ctx context.Context, e Evidence) error {
	if err := svc.repo.DeleteEvidence(ctx, e.ID); err != nil {
		return errors.Wrap(err, "deleting evidence")
	}
	if e.FileKey != "" {
		if err := svc.files.Delete(ctx, e.FileKey); err != nil && !core.IsNotFound(err) {
			svc.logger.Warn("deleting evidence file "+e.FileKey, err)
		}
	}
	return nil
}

func (svc *Service) OpenFile(ctx context.Context, e Evidence) (io.ReadCloser, error) {
	if e.FileKey == "" {
		return nil, core.ErrFileNotFound
	}
	return svc.files.Open(ctx, e.FileKey)
}
