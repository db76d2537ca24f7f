package report

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
)

type (
	PlanSource interface {
		Query(ctx context.Context, filter *plan.QueryFilter, ordering []core.DBOrdering) ([]plan.Plan, error)
	}

	ProgressSource interface {
		Query(ctx context.Context, filter *progress.QueryFilter, ordering []core.DBOrdering) ([]progress.Progress, error)
	}

	EvidenceSource interface {
		Query(ctx context.Context, filter *evidence.QueryFilter, ordering []core.DBOrdering) ([]evidence.Evidence, error)
	}

	// Filter scopes the records of a report. The school cycle does not apply to evidence.
	Filter struct {
		ProfessorID   string
		ProfessorName string
		SchoolCycle   string
	}

	Summary struct {
		Professors        int     `json:"totalProfesores"`
		Plans             int     `json:"totalPlaneaciones"`
		ApprovedPlans     int     `json:"planeacionesAprobadas"`
		ApprovalRate      float64 `json:"tasaAprobacion"`
		Progress          int     `json:"totalAvances"`
		MetProgress       int     `json:"avancesCumplidos"`
		ComplianceRate    float64 `json:"tasaCumplimiento"`
		AverageProgress   float64 `json:"promedioAvance"`
		Evidence          int     `json:"totalEvidencias"`
		ValidatedEvidence int     `json:"evidenciasValidadas"`
		AccreditedHours   float64 `json:"horasAcreditadas"`
	}

	PeriodCount struct {
		Plans    int `json:"planeaciones"`
		Progress int `json:"avances"`
	}

	Institutional struct {
		SchoolCycle          string                    `json:"cicloEscolar,omitempty"`
		GeneratedAt          time.Time                 `json:"fechaGeneracion"`
		Summary              Summary                   `json:"resumen"`
		Professors           []string                  `json:"profesores"`
		PlansByStatus        *counter                  `json:"planeacionesPorEstado"`
		ProgressByCompliance *counter                  `json:"avancesPorCumplimiento"`
		EvidenceByStatus     *counter                  `json:"evidenciasPorEstado"`
		ByPeriod             *OrderedMap[*PeriodCount] `json:"porParcial"`
	}

	ProfessorReport struct {
		Professor string `json:"profesor"`
		Institutional
		PlansBySubject    *OrderedMap[*counter] `json:"planeacionesPorMateria"`
		ProgressBySubject *OrderedMap[*counter] `json:"avancesPorMateria"`
	}

	Service struct {
		plans    PlanSource
		progress ProgressSource
		evidence EvidenceSource
		appName  string
	}
)

func NewService(plans PlanSource, prog ProgressSource, evid EvidenceSource, conf *core.Config) *Service {
	return &Service{
		plans:    plans,
		progress: prog,
		evidence: evid,
		appName:  conf.AppName,
	}
}

// fetch reads the three collections concurrently and returns once all of them are in.
func (svc *Service) fetch(ctx context.Context, f Filter) ([]plan.Plan, []progress.Progress, []evidence.Evidence, error) {
	var (
		plans    []plan.Plan
		records  []progress.Progress
		evidList []evidence.Evidence
	)
	ordering := []core.DBOrdering{{Field: "createdAt", Ascending: true}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		plans, err = svc.plans.Query(gctx, &plan.QueryFilter{
			ProfessorID:   f.ProfessorID,
			ProfessorName: f.ProfessorName,
			SchoolCycle:   f.SchoolCycle,
		}, ordering)
		return errors.Wrap(err, "querying plans")
	})
	g.Go(func() (err error) {
		records, err = svc.progress.Query(gctx, &progress.QueryFilter{
			ProfessorID:   f.ProfessorID,
			ProfessorName: f.ProfessorName,
			SchoolCycle:   f.SchoolCycle,
		}, ordering)
		return errors.Wrap(err, "querying progress")
	})
	g.Go(func() (err error) {
		evidList, err = svc.evidence.Query(gctx, &evidence.QueryFilter{
			ProfessorID:   f.ProfessorID,
			ProfessorName: f.ProfessorName,
		}, ordering)
		return errors.Wrap(err, "querying evidence")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return plans, records, evidList, nil
}

// Institutional builds the report of every professor for a cycle ("" means all cycles).
func (svc *Service) Institutional(ctx context.Context, cycle string) (Institutional, error) {
	plans, records, evidList, err := svc.fetch(ctx, Filter{SchoolCycle: cycle})
	if err != nil {
		return Institutional{}, err
	}
	return ComputeInstitutional(cycle, plans, records, evidList), nil
}

// Professor builds the report of one professor.
func (svc *Service) Professor(ctx context.Context, f Filter, displayName string) (ProfessorReport, error) {
	plans, records, evidList, err := svc.fetch(ctx, f)
	if err != nil {
		return ProfessorReport{}, err
	}
	return ComputeProfessorReport(displayName, f.SchoolCycle, plans, records, evidList), nil
}

// ComputeInstitutional derives the institutional report from already fetched records.
func ComputeInstitutional(cycle string, plans []plan.Plan, records []progress.Progress, evidList []evidence.Evidence) Institutional {
	professors := NewOrderedMap[struct{}]()
	byPeriod := NewOrderedMap[*PeriodCount]()
	for _, k := range periodKeys {
		byPeriod.Set(k, &PeriodCount{})
	}
	newPeriod := func() *PeriodCount { return &PeriodCount{} }

	for _, p := range plans {
		professors.Set(p.ProfessorName, struct{}{})
		byPeriod.GetOrInit(strconv.Itoa(p.Period), newPeriod).Plans++
	}

	progByCompliance := newCounter(progress.AllCompliances...)
	var pctSum float64
	for _, p := range records {
		professors.Set(p.ProfessorName, struct{}{})
		progByCompliance.incr(p.Compliance, inc)
		byPeriod.GetOrInit(strconv.Itoa(p.Period), newPeriod).Progress++
		pctSum += float64(p.Percentage)
	}

	evidByStatus := newCounter(evidence.AllStatuses...)
	var hours float64
	for _, e := range evidList {
		professors.Set(e.ProfessorName, struct{}{})
		evidByStatus.incr(e.Status, inc)
		if e.Status == evidence.StatusValidated {
			hours += e.Hours
		}
	}

	plansByStatus, approved := countPlans(plans)
	met, _ := progByCompliance.Get(progress.ComplianceMet)
	validated, _ := evidByStatus.Get(evidence.StatusValidated)

	return Institutional{
		SchoolCycle: cycle,
		GeneratedAt: time.Now().UTC(),
		Summary: Summary{
			Professors:        professors.Len(),
			Plans:             len(plans),
			ApprovedPlans:     approved,
			ApprovalRate:      core.Rate(approved, len(plans)),
			Progress:          len(records),
			MetProgress:       met,
			ComplianceRate:    core.Rate(met, len(records)),
			AverageProgress:   core.Average(pctSum, len(records)),
			Evidence:          len(evidList),
			ValidatedEvidence: validated,
			AccreditedHours:   core.Round2(hours),
		},
		Professors:           professors.Keys(),
		PlansByStatus:        plansByStatus,
		ProgressByCompliance: progByCompliance,
		EvidenceByStatus:     evidByStatus,
		ByPeriod:             byPeriod,
	}
}

// ComputeProfessorReport is ComputeInstitutional plus per-subject breakdowns.
func ComputeProfessorReport(name, cycle string, plans []plan.Plan, records []progress.Progress, evidList []evidence.Evidence) ProfessorReport {
	rep := ProfessorReport{
		Professor:         name,
		Institutional:     ComputeInstitutional(cycle, plans, records, evidList),
		PlansBySubject:    NewOrderedMap[*counter](),
		ProgressBySubject: NewOrderedMap[*counter](),
	}
	for _, p := range plans {
		rep.PlansBySubject.GetOrInit(p.Subject, func() *counter { return newCounter() }).incr(p.Status, inc)
	}
	for _, p := range records {
		rep.ProgressBySubject.GetOrInit(p.Subject, func() *counter { return newCounter() }).incr(p.Compliance, inc)
	}
	return rep
}
