package report

import (
	"strconv"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
)

var periodKeys = []string{"1", "2", "3"}

type (
	// AverageGroup counts records and averages their progress percentage.
	AverageGroup struct {
		Total           int     `json:"total"`
		AverageProgress float64 `json:"promedioAvance"`
		sum             float64
	}

	HoursGroup struct {
		Total int     `json:"total"`
		Hours float64 `json:"horas"`
	}

	ProfessorProgress struct {
		Total           int     `json:"total"`
		Met             int     `json:"cumplidos"`
		AverageProgress float64 `json:"promedioAvance"`
		sum             float64
	}

	ProfessorHours struct {
		Total          int     `json:"total"`
		Validated      int     `json:"validadas"`
		ValidatedHours float64 `json:"horasValidadas"`
	}

	// ProgressStats are the statistics of one professor's progress records.
	ProgressStats struct {
		Total           int                        `json:"total"`
		ByCompliance    *counter                   `json:"porCumplimiento"`
		AverageProgress float64                    `json:"promedioAvance"`
		BySubject       *OrderedMap[*AverageGroup] `json:"porMateria"`
		ByPeriod        *OrderedMap[*AverageGroup] `json:"porParcial"`
	}

	// EvidenceStats are the statistics of one professor's evidence.
	EvidenceStats struct {
		Total          int                      `json:"total"`
		ByStatus       *counter                 `json:"porEstado"`
		TotalHours     float64                  `json:"horasTotales"`
		ValidatedHours float64                  `json:"horasValidadas"`
		ByType         *OrderedMap[*HoursGroup] `json:"porTipo"`
		ByInstitution  *counter                 `json:"porInstitucion"`
	}

	// ProgressReport is the cross-professor progress report.
	ProgressReport struct {
		Total           int                             `json:"total"`
		ByCompliance    *counter                        `json:"porCumplimiento"`
		ComplianceRate  float64                         `json:"tasaCumplimiento"`
		AverageProgress float64                         `json:"promedioAvance"`
		ByProfessor     *OrderedMap[*ProfessorProgress] `json:"porProfesor"`
		BySubject       *OrderedMap[*AverageGroup]      `json:"porMateria"`
	}

	// EvidenceReport is the cross-professor evidence report.
	EvidenceReport struct {
		Total          int                          `json:"total"`
		ByStatus       *counter                     `json:"porEstado"`
		ValidationRate float64                      `json:"tasaValidacion"`
		ValidatedHours float64                      `json:"horasValidadas"`
		ByProfessor    *OrderedMap[*ProfessorHours] `json:"porProfesor"`
		ByType         *OrderedMap[*HoursGroup]     `json:"porTipo"`
	}

	Series struct {
		Labels []string  `json:"labels"`
		Values []float64 `json:"values"`
	}

	ProgressCharts struct {
		ByPeriod     Series `json:"avancePorParcial"`
		BySubject    Series `json:"avancePorMateria"`
		ByCompliance Series `json:"distribucionCumplimiento"`
	}
)

func (g *AverageGroup) add(pct int) {
	g.Total++
	g.sum += float64(pct)
	g.AverageProgress = core.Average(g.sum, g.Total)
}

func newAverageGroup() *AverageGroup { return &AverageGroup{} }

func newPeriodGroups() *OrderedMap[*AverageGroup] {
	m := NewOrderedMap[*AverageGroup]()
	for _, k := range periodKeys {
		m.Set(k, newAverageGroup())
	}
	return m
}

// ComputeProgressStats computes the statistics of a set of progress records.
func ComputeProgressStats(records []progress.Progress) ProgressStats {
	stats := ProgressStats{
		Total:        len(records),
		ByCompliance: newCounter(progress.AllCompliances...),
		BySubject:    NewOrderedMap[*AverageGroup](),
		ByPeriod:     newPeriodGroups(),
	}
	var sum float64
	for _, p := range records {
		sum += float64(p.Percentage)
		stats.ByCompliance.incr(p.Compliance, inc)
		stats.BySubject.GetOrInit(p.Subject, newAverageGroup).add(p.Percentage)
		stats.ByPeriod.GetOrInit(strconv.Itoa(p.Period), newAverageGroup).add(p.Percentage)
	}
	stats.AverageProgress = core.Average(sum, len(records))
	return stats
}

// ComputeEvidenceStats computes the statistics of a set of evidence.
func ComputeEvidenceStats(records []evidence.Evidence) EvidenceStats {
	stats := EvidenceStats{
		Total:         len(records),
		ByStatus:      newCounter(evidence.AllStatuses...),
		ByType:        NewOrderedMap[*HoursGroup](),
		ByInstitution: newCounter(),
	}
	for _, e := range records {
		stats.TotalHours += e.Hours
		if e.Status == evidence.StatusValidated {
			stats.ValidatedHours += e.Hours
		}
		stats.ByStatus.incr(e.Status, inc)
		grp := stats.ByType.GetOrInit(e.TrainingType, func() *HoursGroup { return &HoursGroup{} })
		grp.Total++
		grp.Hours = core.Round2(grp.Hours + e.Hours)
		stats.ByInstitution.incr(e.Institution, inc)
	}
	stats.TotalHours = core.Round2(stats.TotalHours)
	stats.ValidatedHours = core.Round2(stats.ValidatedHours)
	return stats
}

// ComputeProgressReport computes the cross-professor progress report.
func ComputeProgressReport(records []progress.Progress) ProgressReport {
	rep := ProgressReport{
		Total:        len(records),
		ByCompliance: newCounter(progress.AllCompliances...),
		ByProfessor:  NewOrderedMap[*ProfessorProgress](),
		BySubject:    NewOrderedMap[*AverageGroup](),
	}
	var sum float64
	for _, p := range records {
		sum += float64(p.Percentage)
		rep.ByCompliance.incr(p.Compliance, inc)

		prof := rep.ByProfessor.GetOrInit(p.ProfessorName, func() *ProfessorProgress { return &ProfessorProgress{} })
		prof.Total++
		prof.sum += float64(p.Percentage)
		prof.AverageProgress = core.Average(prof.sum, prof.Total)
		if p.Compliance == progress.ComplianceMet {
			prof.Met++
		}

		rep.BySubject.GetOrInit(p.Subject, newAverageGroup).add(p.Percentage)
	}
	met, _ := rep.ByCompliance.Get(progress.ComplianceMet)
	rep.ComplianceRate = core.Rate(met, len(records))
	rep.AverageProgress = core.Average(sum, len(records))
	return rep
}

// ComputeEvidenceReport computes the cross-professor evidence report.
func ComputeEvidenceReport(records []evidence.Evidence) EvidenceReport {
	rep := EvidenceReport{
		Total:       len(records),
		ByStatus:    newCounter(evidence.AllStatuses...),
		ByProfessor: NewOrderedMap[*ProfessorHours](),
		ByType:      NewOrderedMap[*HoursGroup](),
	}
	for _, e := range records {
		rep.ByStatus.incr(e.Status, inc)

		prof := rep.ByProfessor.GetOrInit(e.ProfessorName, func() *ProfessorHours { return &ProfessorHours{} })
		prof.Total++

		grp := rep.ByType.GetOrInit(e.TrainingType, func() *HoursGroup { return &HoursGroup{} })
		grp.Total++
		grp.Hours = core.Round2(grp.Hours + e.Hours)

		if e.Status == evidence.StatusValidated {
			prof.Validated++
			prof.ValidatedHours = core.Round2(prof.ValidatedHours + e.Hours)
			rep.ValidatedHours += e.Hours
		}
	}
	validated, _ := rep.ByStatus.Get(evidence.StatusValidated)
	rep.ValidationRate = core.Rate(validated, len(records))
	rep.ValidatedHours = core.Round2(rep.ValidatedHours)
	return rep
}

// ComputeProgressCharts shapes the progress records as chart series.
func ComputeProgressCharts(records []progress.Progress) ProgressCharts {
	stats := ComputeProgressStats(records)

	averages := func(m *OrderedMap[*AverageGroup], labelPrefix string) Series {
		s := Series{Labels: []string{}, Values: []float64{}}
		for _, k := range m.Keys() {
			grp, _ := m.Get(k)
			s.Labels = append(s.Labels, labelPrefix+k)
			s.Values = append(s.Values, grp.AverageProgress)
		}
		return s
	}

	compliance := Series{Labels: []string{}, Values: []float64{}}
	for _, k := range stats.ByCompliance.Keys() {
		n, _ := stats.ByCompliance.Get(k)
		compliance.Labels = append(compliance.Labels, progress.ComplianceLabel(k))
		compliance.Values = append(compliance.Values, float64(n))
	}

	return ProgressCharts{
		ByPeriod:     averages(stats.ByPeriod, "Parcial "),
		BySubject:    averages(stats.BySubject, ""),
		ByCompliance: compliance,
	}
}

// plan helpers shared by the institutional and professor reports

func countPlans(plans []plan.Plan) (byStatus *counter, approved int) {
	byStatus = newCounter(plan.AllStatuses...)
	for _, p := range plans {
		byStatus.incr(p.Status, inc)
	}
	approved, _ = byStatus.Get(plan.StatusApproved)
	return byStatus, approved
}
