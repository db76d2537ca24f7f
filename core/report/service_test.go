package report

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
)

type (
	planSourceMock struct {
		plans   []plan.Plan
		err     error
		filters []plan.QueryFilter
	}
	progressSourceMock struct {
		records []progress.Progress
		filters []progress.QueryFilter
	}
	evidenceSourceMock struct {
		evidence []evidence.Evidence
		filters  []evidence.QueryFilter
	}
)

func (m *planSourceMock) Query(_ context.Context, f *plan.QueryFilter, _ []core.DBOrdering) ([]plan.Plan, error) {
	m.filters = append(m.filters, *f)
	var out []plan.Plan
	for _, p := range m.plans {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out, m.err
}

func (m *progressSourceMock) Query(_ context.Context, f *progress.QueryFilter, _ []core.DBOrdering) ([]progress.Progress, error) {
	m.filters = append(m.filters, *f)
	var out []progress.Progress
	for _, p := range m.records {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *evidenceSourceMock) Query(_ context.Context, f *evidence.QueryFilter, _ []core.DBOrdering) ([]evidence.Evidence, error) {
	m.filters = append(m.filters, *f)
	var out []evidence.Evidence
	for _, e := range m.evidence {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestService(plans *planSourceMock, records *progressSourceMock, evidList *evidenceSourceMock) *Service {
	return NewService(plans, records, evidList, core.NewTestConfig())
}

func TestService_Institutional(t *testing.T) {
	plans := &planSourceMock{plans: []plan.Plan{
		{ProfessorName: "Ana", Period: 1, SchoolCycle: "2024-2025", Status: plan.StatusApproved},
		{ProfessorName: "Ana", Period: 1, SchoolCycle: "2023-2024", Status: plan.StatusPending},
	}}
	records := &progressSourceMock{records: []progress.Progress{
		{ProfessorName: "Beto", Period: 2, SchoolCycle: "2024-2025", Compliance: progress.ComplianceMet},
	}}
	evidList := &evidenceSourceMock{evidence: []evidence.Evidence{
		{ProfessorName: "Carla", Hours: 10, Status: evidence.StatusValidated},
	}}
	svc := newTestService(plans, records, evidList)

	rep, err := svc.Institutional(context.Background(), "2024-2025")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Summary.Plans)
	assert.Equal(t, float64(100), rep.Summary.ApprovalRate)
	assert.Equal(t, 1, rep.Summary.Progress)
	assert.Equal(t, 3, rep.Summary.Professors)
	assert.Equal(t, float64(10), rep.Summary.AccreditedHours)

	// evidence has no cycle
	require.Len(t, evidList.filters, 1)
	assert.Equal(t, evidence.QueryFilter{}, evidList.filters[0])
	assert.Equal(t, "2024-2025", plans.filters[0].SchoolCycle)
	assert.Equal(t, "2024-2025", records.filters[0].SchoolCycle)
}

func TestService_InstitutionalError(t *testing.T) {
	boom := errors.New("boom")
	svc := newTestService(&planSourceMock{err: boom}, &progressSourceMock{}, &evidenceSourceMock{})

	_, err := svc.Institutional(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestService_Professor(t *testing.T) {
	plans := &planSourceMock{plans: []plan.Plan{
		{ProfessorID: "p1", ProfessorName: "Ana", Subject: "Math", Status: plan.StatusApproved},
		{ProfessorID: "p2", ProfessorName: "Beto", Subject: "Math", Status: plan.StatusApproved},
	}}
	svc := newTestService(plans, &progressSourceMock{}, &evidenceSourceMock{})

	rep, err := svc.Professor(context.Background(), Filter{ProfessorID: "p1"}, "Ana")
	require.NoError(t, err)
	assert.Equal(t, "Ana", rep.Professor)
	assert.Equal(t, 1, rep.Summary.Plans)
	assert.Equal(t, []string{"Ana"}, rep.Professors)
}

func TestService_Export(t *testing.T) {
	plans := &planSourceMock{plans: []plan.Plan{
		{ProfessorName: "Ana", Subject: "Matemáticas", Period: 1, SchoolCycle: "2024-2025", Status: plan.StatusApproved},
		{ProfessorName: "Beto", Subject: "Física", Period: 2, SchoolCycle: "2024-2025", Status: plan.StatusPending},
	}}
	svc := newTestService(plans, &progressSourceMock{}, &evidenceSourceMock{})
	ctx := context.Background()

	t.Run("invalid", func(t *testing.T) {
		_, err := svc.Export(ctx, "usuarios", FormatPDF, Filter{})
		assert.Equal(t, ErrInvalidKind, err)
		_, err = svc.Export(ctx, KindPlans, "csv", Filter{})
		assert.Equal(t, ErrInvalidFormat, err)
	})

	t.Run("excel", func(t *testing.T) {
		doc, err := svc.Export(ctx, KindPlans, FormatExcel, Filter{})
		require.NoError(t, err)
		assert.Equal(t, contentTypeExcel, doc.ContentType)
		assert.Regexp(t, `^planeaciones_\d{8}_\d{6}\.xlsx$`, doc.Filename)

		f, err := excelize.OpenReader(bytes.NewReader(doc.Content))
		require.NoError(t, err)
		title, _ := f.GetCellValue(sheetName, "A1")
		assert.Equal(t, "Reporte de Planeaciones", title)
		header, _ := f.GetCellValue(sheetName, "B4")
		assert.Equal(t, "materia", header)
		first, _ := f.GetCellValue(sheetName, "B5")
		assert.Equal(t, "Matemáticas", first)
		status, _ := f.GetCellValue(sheetName, "E6")
		assert.Equal(t, "Pendiente", status)
	})

	t.Run("pdf", func(t *testing.T) {
		doc, err := svc.Export(ctx, KindPlans, FormatPDF, Filter{})
		require.NoError(t, err)
		assert.Equal(t, contentTypePDF, doc.ContentType)
		assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF-")))
	})

	for _, format := range []string{FormatExcel, FormatPDF} {
		t.Run("empty "+format, func(t *testing.T) {
			doc, err := svc.Export(ctx, KindEvidence, format, Filter{})
			require.NoError(t, err)
			assert.NotEmpty(t, doc.Content)
			if format == FormatExcel {
				f, err := excelize.OpenReader(bytes.NewReader(doc.Content))
				require.NoError(t, err)
				msg, _ := f.GetCellValue(sheetName, "A4")
				assert.Equal(t, emptyMessage, msg)
			} else {
				assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF-")))
			}
		})
	}
}
