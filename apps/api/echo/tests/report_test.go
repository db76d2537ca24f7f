package tests

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/report"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/testutil"
)

func TestInstitutionalReport(t *testing.T) {
	env := setup(t)
	ana := testutil.CreateUser(t, env.users, "Ana López", "ana@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)
	beto := testutil.CreateUser(t, env.users, "Beto Ruiz", "beto@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)
	coord := testutil.CreateUser(t, env.users, "Coord", "coord@escuela.mx", "s3cr3tPwd", user.RoleCoordinator, true)

	env.createPlan(t, ana, "Física", "2024-2025", plan.StatusApproved)
	env.createPlan(t, ana, "Química", "2024-2025", plan.StatusPending)
	env.createPlan(t, beto, "Historia", "2024-2025", plan.StatusApproved)
	env.createPlan(t, beto, "Arte", "2024-2025", plan.StatusRejected)
	env.createPlan(t, beto, "Arte", "2023-2024", plan.StatusApproved)
	env.createProgress(t, ana, "Física", "2024-2025", progress.ComplianceMet, 1)
	env.createEvidence(t, beto, "Didáctica", evidence.StatusValidated, 30)

	t.Run("professors are turned away", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/institucional", env.token(t, ana)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("approval rate of the cycle", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/institucional?cicloEscolar=2024-2025", env.token(t, coord)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got struct {
			SchoolCycle string         `json:"cicloEscolar"`
			Summary     report.Summary `json:"resumen"`
			Professors  []string       `json:"profesores"`
		}
		decode(t, rec, &got)
		assert.Equal(t, "2024-2025", got.SchoolCycle)
		assert.Equal(t, 4, got.Summary.Plans)
		assert.Equal(t, 2, got.Summary.ApprovedPlans)
		assert.Equal(t, 50.0, got.Summary.ApprovalRate)
		assert.Equal(t, 1, got.Summary.Progress)
		assert.Equal(t, 100.0, got.Summary.ComplianceRate)
		assert.Equal(t, 30.0, got.Summary.AccreditedHours)
		assert.Equal(t, 2, got.Summary.Professors)
		assert.ElementsMatch(t, []string{ana.Name, beto.Name}, got.Professors)
	})

	t.Run("empty cycle", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/institucional?cicloEscolar=2030-2031", env.token(t, coord)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got struct {
			Summary report.Summary `json:"resumen"`
		}
		decode(t, rec, &got)
		assert.Zero(t, got.Summary.Plans)
		assert.Zero(t, got.Summary.ApprovalRate)
	})
}

func TestProfessorReport(t *testing.T) {
	env := setup(t)
	ana := testutil.CreateUser(t, env.users, "Ana López", "ana@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)
	beto := testutil.CreateUser(t, env.users, "Beto Ruiz", "beto@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)
	coord := testutil.CreateUser(t, env.users, "Coord", "coord@escuela.mx", "s3cr3tPwd", user.RoleCoordinator, true)

	env.createPlan(t, ana, "Física", "2024-2025", plan.StatusApproved)
	env.createPlan(t, beto, "Historia", "2024-2025", plan.StatusApproved)
	env.createPlan(t, beto, "Arte", "2024-2025", plan.StatusPending)

	type professorReport struct {
		Professor string         `json:"profesor"`
		Summary   report.Summary `json:"resumen"`
	}

	t.Run("professors get their own", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/profesor?profesor=Beto%20Ruiz", env.token(t, ana)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got professorReport
		decode(t, rec, &got)
		assert.Equal(t, ana.Name, got.Professor)
		assert.Equal(t, 1, got.Summary.Plans)
	})

	t.Run("staff must name a professor", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/profesor", env.token(t, coord)))
		checkErr(t, rec, http.StatusBadRequest, httpErr{Message: "Error de validación", Errors: []string{"profesor: profesor es obligatorio"}})

		rec = env.serve(newAuthRequest(http.MethodGet, "/api/reportes/profesor?profesor=Beto%20Ruiz", env.token(t, coord)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got professorReport
		decode(t, rec, &got)
		assert.Equal(t, beto.Name, got.Professor)
		assert.Equal(t, 2, got.Summary.Plans)
		assert.Equal(t, 50.0, got.Summary.ApprovalRate)
	})
}

func TestExport(t *testing.T) {
	env := setup(t)
	ana := testutil.CreateUser(t, env.users, "Ana López", "ana@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)
	coord := testutil.CreateUser(t, env.users, "Coord", "coord@escuela.mx", "s3cr3tPwd", user.RoleCoordinator, true)
	env.createPlan(t, ana, "Física", "2024-2025", plan.StatusApproved)

	t.Run("excel", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/exportar?tipo=planeaciones&formato=excel", env.token(t, coord)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), `attachment; filename="planeaciones_`))

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		rows, err := f.GetRows(f.GetSheetName(0))
		require.NoError(t, err)
		assert.Contains(t, strings.Join(rows[len(rows)-1], " "), "Física")
	})

	t.Run("empty pdf still renders", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/exportar?tipo=evidencias&formato=PDF", env.token(t, coord)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("empty excel carries the notice", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/exportar?tipo=avances&formato=excel", env.token(t, ana)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		rows, err := f.GetRows(f.GetSheetName(0))
		require.NoError(t, err)
		assert.Contains(t, strings.Join(rows[len(rows)-1], " "), "No hay registros para exportar")
	})

	t.Run("professors only export their own", func(t *testing.T) {
		beto := testutil.CreateUser(t, env.users, "Beto Ruiz", "beto@escuela.mx", "s3cr3tPwd", user.RoleProfessor, true)
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/exportar?tipo=planeaciones&formato=excel&profesor=Ana%20L%C3%B3pez", env.token(t, beto)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		rows, err := f.GetRows(f.GetSheetName(0))
		require.NoError(t, err)
		assert.Contains(t, strings.Join(rows[len(rows)-1], " "), "No hay registros para exportar")
	})

	t.Run("bad kind or format", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/api/reportes/exportar?tipo=usuarios&formato=excel", env.token(t, coord)))
		checkErr(t, rec, http.StatusBadRequest, httpErr{
			Message: "Error de validación",
			Errors:  []string{"tipo: tipo debe ser planeaciones, avances o evidencias"},
		})
		rec = env.serve(newAuthRequest(http.MethodGet, "/api/reportes/exportar?tipo=avances&formato=csv", env.token(t, coord)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
