package progress

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

// Compliance classifications
const (
	ComplianceMet     = "cumplido"
	CompliancePartial = "parcial"
	ComplianceNotMet  = "no_cumplido"
)

var (
	AllCompliances = []string{ComplianceMet, CompliancePartial, ComplianceNotMet}

	complianceLabels = map[string]string{
		ComplianceMet:     "Cumplido",
		CompliancePartial: "Parcial",
		ComplianceNotMet:  "No cumplido",
	}
)

func ComplianceLabel(c string) string {
	if label, ok := complianceLabels[c]; ok {
		return label
	}
	return c
}

// Progress is a professor's report of the topics covered in a subject during a period.
type Progress struct {
	ID            string    `json:"id"`
	ProfessorID   string    `json:"profesor"`
	ProfessorName string    `json:"nombreProfesor"`
	Subject       string    `json:"materia"`
	Period        int       `json:"parcial"`
	SchoolCycle   string    `json:"cicloEscolar"`
	PlannedTopics []string  `json:"temasPlaneados"`
	CoveredTopics []string  `json:"temasCubiertos"`
	Percentage    int       `json:"porcentajeAvance"`
	Compliance    string    `json:"cumplimiento"`
	Activities    string    `json:"actividades"`
	Difficulties  string    `json:"dificultades"`
	Observations  string    `json:"observaciones"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CompletionPercentage is round(covered/planned*100), 0 when nothing was planned.
func CompletionPercentage(planned, covered []string) int {
	if len(planned) == 0 {
		return 0
	}
	return int(math.Round(float64(len(covered)) / float64(len(planned)) * 100))
}

// NewProgress contains information needed to create a Progress.
// Any percentage sent by the client is ignored; it is always computed.
type NewProgress struct {
	Subject       string   `json:"materia" validate:"required,notblank,max=150"`
	Period        int      `json:"parcial" validate:"required,min=1,max=3"`
	SchoolCycle   string   `json:"cicloEscolar" validate:"required,ciclo"`
	PlannedTopics []string `json:"temasPlaneados" validate:"dive,max=300"`
	CoveredTopics []string `json:"temasCubiertos" validate:"dive,max=300"`
	Compliance    string   `json:"cumplimiento" validate:"required,oneof=cumplido parcial no_cumplido"`
	Activities    string   `json:"actividades" validate:"max=5000"`
	Difficulties  string   `json:"dificultades" validate:"max=5000"`
	Observations  string   `json:"observaciones" validate:"max=5000"`
}

func (np *NewProgress) Validate(validate *validator.Validate) error {
	np.Subject = core.CleanString(np.Subject)
	np.SchoolCycle = core.CleanString(np.SchoolCycle)
	np.PlannedTopics = core.CleanStrings(np.PlannedTopics)
	np.CoveredTopics = core.CleanStrings(np.CoveredTopics)
	np.Compliance = core.CleanString(np.Compliance, true /* lower */)
	np.Activities = core.CleanString(np.Activities)
	np.Difficulties = core.CleanString(np.Difficulties)
	np.Observations = core.CleanString(np.Observations)

	err := validate.Struct(np)
	return core.MergeValidation(err, checkPercentage(np.PlannedTopics, np.CoveredTopics)...)
}

// UpdateProgress defines what the owning professor may change on a Progress.
type UpdateProgress struct {
	Subject       *string   `json:"materia" validate:"omitempty,notblank,max=150"`
	Period        *int      `json:"parcial" validate:"omitempty,min=1,max=3"`
	SchoolCycle   *string   `json:"cicloEscolar" validate:"omitempty,ciclo"`
	PlannedTopics *[]string `json:"temasPlaneados"`
	CoveredTopics *[]string `json:"temasCubiertos"`
	Compliance    *string   `json:"cumplimiento" validate:"omitempty,oneof=cumplido parcial no_cumplido"`
	Activities    *string   `json:"actividades" validate:"omitempty,max=5000"`
	Difficulties  *string   `json:"dificultades" validate:"omitempty,max=5000"`
	Observations  *string   `json:"observaciones" validate:"omitempty,max=5000"`
}

func (up *UpdateProgress) Validate(validate *validator.Validate, orig Progress) error {
	cleanPtr := func(s *string, lower ...bool) *string {
		if s == nil {
			return nil
		}
		c := core.CleanString(*s, lower...)
		return &c
	}
	up.Subject = cleanPtr(up.Subject)
	up.SchoolCycle = cleanPtr(up.SchoolCycle)
	up.Compliance = cleanPtr(up.Compliance, true /* lower */)
	up.Activities = cleanPtr(up.Activities)
	up.Difficulties = cleanPtr(up.Difficulties)
	up.Observations = cleanPtr(up.Observations)
	if up.PlannedTopics != nil {
		topics := core.CleanStrings(*up.PlannedTopics)
		up.PlannedTopics = &topics
	}
	if up.CoveredTopics != nil {
		topics := core.CleanStrings(*up.CoveredTopics)
		up.CoveredTopics = &topics
	}

	err := validate.Struct(up)

	planned, covered := orig.PlannedTopics, orig.CoveredTopics
	if up.PlannedTopics != nil {
		planned = *up.PlannedTopics
	}
	if up.CoveredTopics != nil {
		covered = *up.CoveredTopics
	}
	return core.MergeValidation(err, checkPercentage(planned, covered)...)
}

func checkPercentage(planned, covered []string) []core.FieldError {
	if CompletionPercentage(planned, covered) > 100 {
		return []core.FieldError{{
			Field: "temasCubiertos",
			Error: "temasCubiertos no puede tener más temas que temasPlaneados",
		}}
	}
	return nil
}

type QueryFilter struct {
	ProfessorID   string   `query:"-"`
	ProfessorName string   `query:"profesor"`
	Subject       string   `query:"materia"`
	Period        int      `query:"parcial"`
	SchoolCycle   string   `query:"cicloEscolar"`
	Compliance    []string `query:"cumplimiento"`
}

func (qf *QueryFilter) Clean() {
	qf.ProfessorName = core.CleanString(qf.ProfessorName)
	qf.Subject = core.CleanString(qf.Subject)
	qf.SchoolCycle = core.CleanString(qf.SchoolCycle)
	qf.Compliance = core.CleanStrings(qf.Compliance)
}

// Matches reports whether p satisfies every set field of the filter.
func (qf *QueryFilter) Matches(p Progress) bool {
	if qf == nil {
		return true
	}
	if len(qf.Compliance) > 0 {
		var found bool
		for _, c := range qf.Compliance {
			if p.Compliance == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return (qf.ProfessorID == "" || p.ProfessorID == qf.ProfessorID) &&
		(qf.ProfessorName == "" || p.ProfessorName == qf.ProfessorName) &&
		(qf.Subject == "" || p.Subject == qf.Subject) &&
		(qf.Period == 0 || p.Period == qf.Period) &&
		(qf.SchoolCycle == "" || p.SchoolCycle == qf.SchoolCycle)
}
