package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/authz"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/report"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

var errProfessorRequired = core.NewValidationError(nil, core.FieldError{Field: "profesor", Error: "profesor es obligatorio"})

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps *Deps) {
	api := reportApi{svc: deps.ReportSvc}

	rg := g.Group("/reportes", authed...)
	rg.GET("/institucional", api.institutional, requireAction(deps.Policy, authz.InstitutionalReport))
	rg.GET("/profesor", api.professor)
	rg.GET("/exportar", api.export)
}

// ReportQuery holds the query params shared by the report endpoints.
type ReportQuery struct {
	SchoolCycle string `query:"cicloEscolar"`
	Professor   string `query:"profesor"`
	Format      string `query:"formato"`
	Kind        string `query:"tipo"`
}

func (rq *ReportQuery) Clean() {
	rq.SchoolCycle = core.CleanString(rq.SchoolCycle)
	rq.Professor = core.CleanString(rq.Professor)
	rq.Format = core.CleanString(rq.Format, true /* lower */)
	rq.Kind = core.CleanString(rq.Kind, true /* lower */)
}

// filter scopes the report to the caller: professors always get their own records.
func (rq ReportQuery) filter(usr user.User) report.Filter {
	scope := authz.ScopeFor(usr, rq.Professor)
	return report.Filter{
		ProfessorID:   scope.ProfessorID,
		ProfessorName: scope.ProfessorName,
		SchoolCycle:   rq.SchoolCycle,
	}
}

func bindReportQuery(ctx echo.Context) (user.User, ReportQuery, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return user.User{}, ReportQuery{}, errors.Wrap(err, "getting context user")
	}
	var q ReportQuery
	if err = ctx.Bind(&q); err != nil {
		return user.User{}, ReportQuery{}, errors.Wrap(err, "binding to ReportQuery")
	}
	q.Clean()
	return usr, q, nil
}

// Handlers

func (api *reportApi) institutional(ctx echo.Context) error {
	_, q, err := bindReportQuery(ctx)
	if err != nil {
		return err
	}
	rep, err := api.svc.Institutional(ctx.Request().Context(), q.SchoolCycle)
	if err != nil {
		return errors.Wrap(err, "building institutional report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) professor(ctx echo.Context) error {
	usr, q, err := bindReportQuery(ctx)
	if err != nil {
		return err
	}
	name := usr.Name
	if !usr.IsProfessor() {
		if q.Professor == "" {
			return errProfessorRequired
		}
		name = q.Professor
	}
	rep, err := api.svc.Professor(ctx.Request().Context(), q.filter(usr), name)
	if err != nil {
		return errors.Wrap(err, "building professor report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) export(ctx echo.Context) error {
	usr, q, err := bindReportQuery(ctx)
	if err != nil {
		return err
	}
	doc, err := api.svc.Export(ctx.Request().Context(), q.Kind, q.Format, q.filter(usr))
	if err != nil {
		return errors.Wrap(err, "exporting records")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return ctx.Blob(http.StatusOK, doc.ContentType, doc.Content)
}
