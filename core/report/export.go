package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
)

// Export kinds and formats
const (
	KindPlans    = "planeaciones"
	KindProgress = "avances"
	KindEvidence = "evidencias"

	FormatExcel = "excel"
	FormatPDF   = "pdf"

	contentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF   = "application/pdf"

	emptyMessage = "No hay registros para exportar"
)

var (
	ErrInvalidKind   = core.NewValidationError(nil, core.FieldError{Field: "tipo", Error: "tipo debe ser planeaciones, avances o evidencias"})
	ErrInvalidFormat = core.NewValidationError(nil, core.FieldError{Field: "formato", Error: "formato debe ser excel o pdf"})

	kindTitles = map[string]string{
		KindPlans:    "Reporte de Planeaciones",
		KindProgress: "Reporte de Avances",
		KindEvidence: "Reporte de Evidencias",
	}
)

type (
	Field struct {
		Name  string
		Value string
	}

	// Record is one exported row: ordered field name/value pairs.
	Record []Field

	// Document is a rendered export, ready to be sent.
	Document struct {
		Filename    string
		ContentType string
		Content     []byte
	}

	exportData struct {
		title       string
		subtitle    string
		generatedAt time.Time
		records     []Record
	}
)

// Export renders the records of `kind` matching `f` as `format`.
func (svc *Service) Export(ctx context.Context, kind, format string, f Filter) (*Document, error) {
	title, ok := kindTitles[kind]
	if !ok {
		return nil, ErrInvalidKind
	}
	if format != FormatExcel && format != FormatPDF {
		return nil, ErrInvalidFormat
	}

	records, err := svc.exportRecords(ctx, kind, f)
	if err != nil {
		return nil, err
	}
	data := exportData{
		title:       title,
		subtitle:    exportSubtitle(svc.appName, f),
		generatedAt: time.Now(),
		records:     records,
	}

	filename := fmt.Sprintf("%s_%s", kind, data.generatedAt.Format("20060102_150405"))
	if format == FormatExcel {
		content, err := renderExcel(data)
		if err != nil {
			return nil, errors.Wrap(err, "rendering excel")
		}
		return &Document{Filename: filename + ".xlsx", ContentType: contentTypeExcel, Content: content}, nil
	}
	content, err := renderPDF(data)
	if err != nil {
		return nil, errors.Wrap(err, "rendering pdf")
	}
	return &Document{Filename: filename + ".pdf", ContentType: contentTypePDF, Content: content}, nil
}

func (svc *Service) exportRecords(ctx context.Context, kind string, f Filter) ([]Record, error) {
	ordering := []core.DBOrdering{{Field: "createdAt", Ascending: true}}
	switch kind {
	case KindPlans:
		plans, err := svc.plans.Query(ctx, &plan.QueryFilter{
			ProfessorID: f.ProfessorID, ProfessorName: f.ProfessorName, SchoolCycle: f.SchoolCycle,
		}, ordering)
		if err != nil {
			return nil, errors.Wrap(err, "querying plans")
		}
		return PlanRecords(plans), nil
	case KindProgress:
		records, err := svc.progress.Query(ctx, &progress.QueryFilter{
			ProfessorID: f.ProfessorID, ProfessorName: f.ProfessorName, SchoolCycle: f.SchoolCycle,
		}, ordering)
		if err != nil {
			return nil, errors.Wrap(err, "querying progress")
		}
		return ProgressRecords(records), nil
	default:
		evidList, err := svc.evidence.Query(ctx, &evidence.QueryFilter{
			ProfessorID: f.ProfessorID, ProfessorName: f.ProfessorName,
		}, ordering)
		if err != nil {
			return nil, errors.Wrap(err, "querying evidence")
		}
		return EvidenceRecords(evidList), nil
	}
}

func exportSubtitle(appName string, f Filter) string {
	s := appName
	if f.SchoolCycle != "" {
		s += " | Ciclo escolar " + f.SchoolCycle
	}
	if f.ProfessorName != "" {
		s += " | Profesor: " + f.ProfessorName
	}
	return s
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(core.DateLayout)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func PlanRecords(plans []plan.Plan) []Record {
	records := make([]Record, 0, len(plans))
	for _, p := range plans {
		created := p.CreatedAt
		records = append(records, Record{
			{"nombreProfesor", p.ProfessorName},
			{"materia", p.Subject},
			{"parcial", strconv.Itoa(p.Period)},
			{"cicloEscolar", p.SchoolCycle},
			{"estado", plan.StatusLabel(p.Status)},
			{"nombreOriginal", p.OriginalName},
			{"coordinadorRevisor", p.Reviewer},
			{"comentarios", p.Comments},
			{"fechaRevision", formatDate(p.ReviewedAt)},
			{"fechaCreacion", formatDate(&created)},
		})
	}
	return records
}

func ProgressRecords(records []progress.Progress) []Record {
	out := make([]Record, 0, len(records))
	for _, p := range records {
		created := p.CreatedAt
		out = append(out, Record{
			{"nombreProfesor", p.ProfessorName},
			{"materia", p.Subject},
			{"parcial", strconv.Itoa(p.Period)},
			{"cicloEscolar", p.SchoolCycle},
			{"temasPlaneados", strconv.Itoa(len(p.PlannedTopics))},
			{"temasCubiertos", strconv.Itoa(len(p.CoveredTopics))},
			{"porcentajeAvance", strconv.Itoa(p.Percentage) + "%"},
			{"cumplimiento", progress.ComplianceLabel(p.Compliance)},
			{"actividades", p.Activities},
			{"dificultades", p.Difficulties},
			{"observaciones", p.Observations},
			{"fechaCreacion", formatDate(&created)},
		})
	}
	return out
}

func EvidenceRecords(evidList []evidence.Evidence) []Record {
	records := make([]Record, 0, len(evidList))
	for _, e := range evidList {
		start, end := e.StartDate, e.EndDate
		records = append(records, Record{
			{"nombreProfesor", e.ProfessorName},
			{"nombreCurso", e.CourseName},
			{"institucion", e.Institution},
			{"tipoCapacitacion", e.TrainingType},
			{"fechaInicio", formatDate(&start)},
			{"fechaFin", formatDate(&end)},
			{"horasAcreditadas", formatFloat(e.Hours)},
			{"estado", evidence.StatusLabel(e.Status)},
			{"coordinadorValidador", e.Validator},
			{"observaciones", e.Observations},
			{"fechaValidacion", formatDate(e.ValidatedAt)},
		})
	}
	return records
}
