package plan

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

// Review states
const (
	StatusPending          = "pendiente"
	StatusApproved         = "aprobado"
	StatusRejected         = "rechazado"
	StatusChangesRequested = "cambios_solicitados"
)

var (
	AllStatuses = []string{StatusPending, StatusApproved, StatusRejected, StatusChangesRequested}

	statusLabels = map[string]string{
		StatusPending:          "Pendiente",
		StatusApproved:         "Aprobado",
		StatusRejected:         "Rechazado",
		StatusChangesRequested: "Cambios solicitados",
	}
)

func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// Plan is a lesson-plan PDF submitted by a professor for a subject, period and school cycle.
type Plan struct {
	ID            string     `json:"id"`
	ProfessorID   string     `json:"profesor"`
	ProfessorName string     `json:"nombreProfesor"`
	Subject       string     `json:"materia"`
	Period        int        `json:"parcial"`
	SchoolCycle   string     `json:"cicloEscolar"`
	FileKey       string     `json:"archivo"`
	OriginalName  string     `json:"nombreOriginal"`
	FileSize      int64      `json:"tamano"`
	Status        string     `json:"estado"`
	Reviewer      string     `json:"coordinadorRevisor,omitempty"`
	Comments      string     `json:"comentarios,omitempty"`
	ReviewedAt    *time.Time `json:"fechaRevision,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewPlan contains the form fields of a plan submission; the file comes aside.
type NewPlan struct {
	Subject     string `json:"materia" form:"materia" validate:"required,notblank,max=150"`
	Period      int    `json:"parcial" form:"parcial" validate:"required,min=1,max=3"`
	SchoolCycle string `json:"cicloEscolar" form:"cicloEscolar" validate:"required,ciclo"`
}

func (np *NewPlan) Validate(validate *validator.Validate) error {
	np.Subject = core.CleanString(np.Subject)
	np.SchoolCycle = core.CleanString(np.SchoolCycle)
	return validate.Struct(np)
}

// UpdatePlan defines what the owning professor may change on a plan.
type UpdatePlan struct {
	Subject     *string `json:"materia" validate:"omitempty,notblank,max=150"`
	Period      *int    `json:"parcial" validate:"omitempty,min=1,max=3"`
	SchoolCycle *string `json:"cicloEscolar" validate:"omitempty,ciclo"`
}

func (up *UpdatePlan) Validate(validate *validator.Validate) error {
	if up.Subject != nil {
		s := core.CleanString(*up.Subject)
		up.Subject = &s
	}
	if up.SchoolCycle != nil {
		s := core.CleanString(*up.SchoolCycle)
		up.SchoolCycle = &s
	}
	return validate.Struct(up)
}

// ReviewPlan is the decision of a coordinator or admin on a plan.
type ReviewPlan struct {
	Status   string `json:"estado" validate:"required,oneof=pendiente aprobado rechazado cambios_solicitados"`
	Comments string `json:"comentarios" validate:"max=2000"`
}

func (rp *ReviewPlan) Validate(validate *validator.Validate) error {
	rp.Status = core.CleanString(rp.Status, true /* lower */)
	rp.Comments = core.CleanString(rp.Comments)
	return validate.Struct(rp)
}

type QueryFilter struct {
	ProfessorID   string `query:"-"`
	ProfessorName string `query:"profesor"`
	Subject       string `query:"materia"`
	Period        int    `query:"parcial"`
	SchoolCycle   string `query:"cicloEscolar"`
	Status        string `query:"estado"`
}

func (qf *QueryFilter) Clean() {
	qf.ProfessorName = core.CleanString(qf.ProfessorName)
	qf.Subject = core.CleanString(qf.Subject)
	qf.SchoolCycle = core.CleanString(qf.SchoolCycle)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// Matches reports whether p satisfies every set field of the filter.
func (qf *QueryFilter) Matches(p Plan) bool {
	if qf == nil {
		return true
	}
	return (qf.ProfessorID == "" || p.ProfessorID == qf.ProfessorID) &&
		(qf.ProfessorName == "" || p.ProfessorName == qf.ProfessorName) &&
		(qf.Subject == "" || p.Subject == qf.Subject) &&
		(qf.Period == 0 || p.Period == qf.Period) &&
		(qf.SchoolCycle == "" || p.SchoolCycle == qf.SchoolCycle) &&
		(qf.Status == "" || p.Status == qf.Status)
}
