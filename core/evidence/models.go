package evidence

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

// Validation states
const (
	StatusPending   = "pendiente"
	StatusValidated = "validada"
	StatusRejected  = "rechazada"
)

// Training types
const (
	TypeCourse        = "curso"
	TypeWorkshop      = "taller"
	TypeDiploma       = "diplomado"
	TypeSeminar       = "seminario"
	TypeConference    = "conferencia"
	TypeCertification = "certificacion"
	TypeOther         = "otro"
)

var (
	AllStatuses = []string{StatusPending, StatusValidated, StatusRejected}
	AllTypes    = []string{TypeCourse, TypeWorkshop, TypeDiploma, TypeSeminar, TypeConference, TypeCertification, TypeOther}

	statusLabels = map[string]string{
		StatusPending:   "Pendiente",
		StatusValidated: "Validada",
		StatusRejected:  "Rechazada",
	}
)

func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// Evidence is a professional-development credential submitted for hour accreditation.
type Evidence struct {
	ID            string     `json:"id"`
	ProfessorID   string     `json:"profesor"`
	ProfessorName string     `json:"nombreProfesor"`
	CourseName    string     `json:"nombreCurso"`
	Institution   string     `json:"institucion"`
	StartDate     time.Time  `json:"fechaInicio"`
	EndDate       time.Time  `json:"fechaFin"`
	Hours         float64    `json:"horasAcreditadas"`
	TrainingType  string     `json:"tipoCapacitacion"`
	FileKey       string     `json:"archivo,omitempty"`
	OriginalName  string     `json:"nombreOriginal,omitempty"`
	Status        string     `json:"estado"`
	Validator     string     `json:"coordinadorValidador,omitempty"`
	Observations  string     `json:"observaciones,omitempty"`
	ValidatedAt   *time.Time `json:"fechaValidacion,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewEvidence contains information needed to create an Evidence; the optional file comes aside.
type NewEvidence struct {
	CourseName   string    `json:"nombreCurso" validate:"required,notblank,max=200"`
	Institution  string    `json:"institucion" validate:"required,notblank,max=200"`
	StartDate    core.Date `json:"fechaInicio"`
	EndDate      core.Date `json:"fechaFin"`
	Hours        float64   `json:"horasAcreditadas" validate:"required,gt=0,max=10000"`
	TrainingType string    `json:"tipoCapacitacion" validate:"required,oneof=curso taller diplomado seminario conferencia certificacion otro"`
}

func (ne *NewEvidence) Validate(validate *validator.Validate) error {
	ne.CourseName = core.CleanString(ne.CourseName)
	ne.Institution = core.CleanString(ne.Institution)
	ne.TrainingType = core.CleanString(ne.TrainingType, true /* lower */)
	err := validate.Struct(ne)

	var flds []core.FieldError
	if ne.StartDate.IsZero() {
		flds = append(flds, core.FieldError{Field: "fechaInicio", Error: "fechaInicio es obligatorio"})
	}
	if ne.EndDate.IsZero() {
		flds = append(flds, core.FieldError{Field: "fechaFin", Error: "fechaFin es obligatorio"})
	}
	if len(flds) == 0 {
		flds = checkDates(ne.StartDate.Time, ne.EndDate.Time)
	}
	return core.MergeValidation(err, flds...)
}

// UpdateEvidence defines what the owning professor may change on an Evidence.
type UpdateEvidence struct {
	CourseName   *string    `json:"nombreCurso" validate:"omitempty,notblank,max=200"`
	Institution  *string    `json:"institucion" validate:"omitempty,notblank,max=200"`
	StartDate    *core.Date `json:"fechaInicio"`
	EndDate      *core.Date `json:"fechaFin"`
	Hours        *float64   `json:"horasAcreditadas" validate:"omitempty,gt=0,max=10000"`
	TrainingType *string    `json:"tipoCapacitacion" validate:"omitempty,oneof=curso taller diplomado seminario conferencia certificacion otro"`
}

func (ue *UpdateEvidence) Validate(validate *validator.Validate, orig Evidence) error {
	if ue.CourseName != nil {
		s := core.CleanString(*ue.CourseName)
		ue.CourseName = &s
	}
	if ue.Institution != nil {
		s := core.CleanString(*ue.Institution)
		ue.Institution = &s
	}
	if ue.TrainingType != nil {
		s := core.CleanString(*ue.TrainingType, true /* lower */)
		ue.TrainingType = &s
	}
	err := validate.Struct(ue)

	start, end := orig.StartDate, orig.EndDate
	if ue.StartDate != nil {
		start = ue.StartDate.Time
	}
	if ue.EndDate != nil {
		end = ue.EndDate.Time
	}
	return core.MergeValidation(err, checkDates(start, end)...)
}

func checkDates(start, end time.Time) []core.FieldError {
	if end.Before(start) {
		return []core.FieldError{{
			Field: "fechaFin",
			Error: "fechaFin debe ser igual o posterior a fechaInicio",
		}}
	}
	return nil
}

// ValidateEvidence is the decision of a coordinator or admin on an Evidence.
type ValidateEvidence struct {
	Status       string `json:"estado" validate:"required,oneof=pendiente validada rechazada"`
	Observations string `json:"observaciones" validate:"max=2000"`
}

func (ve *ValidateEvidence) Validate(validate *validator.Validate) error {
	ve.Status = core.CleanString(ve.Status, true /* lower */)
	ve.Observations = core.CleanString(ve.Observations)
	return validate.Struct(ve)
}

type QueryFilter struct {
	ProfessorID   string `query:"-"`
	ProfessorName string `query:"profesor"`
	Status        string `query:"estado"`
	TrainingType  string `query:"tipoCapacitacion"`
	Institution   string `query:"institucion"`
	// Search does a case-insensitive match on one of CourseName, Institution or TrainingType.
	Search string `query:"q"`
}

func (qf *QueryFilter) Clean() {
	qf.ProfessorName = core.CleanString(qf.ProfessorName)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.TrainingType = core.CleanString(qf.TrainingType, true /* lower */)
	qf.Institution = core.CleanString(qf.Institution)
	qf.Search = core.CleanString(qf.Search)
}

// Matches reports whether e satisfies every set field of the filter.
func (qf *QueryFilter) Matches(e Evidence) bool {
	if qf == nil {
		return true
	}
	if qf.Search != "" {
		q := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(e.CourseName), q) ||
			strings.Contains(strings.ToLower(e.Institution), q) ||
			strings.Contains(strings.ToLower(e.TrainingType), q)) {
			return false
		}
	}
	return (qf.ProfessorID == "" || e.ProfessorID == qf.ProfessorID) &&
		(qf.ProfessorName == "" || e.ProfessorName == qf.ProfessorName) &&
		(qf.Status == "" || e.Status == qf.Status) &&
		(qf.TrainingType == "" || e.TrainingType == qf.TrainingType) &&
		(qf.Institution == "" || e.Institution == qf.Institution)
}
