package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/authz"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/notify"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/report"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

var errProgressNotFoundInCtx = errors.New("progress object not found in echo.Context")

type progressApi struct {
	svc      *progress.Service
	userSvc  *user.Service
	notifier *notify.Notifier
	validate *validator.Validate
}

func registerProgressAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps *Deps) {
	api := progressApi{
		svc:      deps.ProgressSvc,
		userSvc:  deps.UserSvc,
		notifier: deps.Notifier,
		validate: deps.Validate,
	}
	obj := progressMiddleware(api.svc)

	pg := g.Group("/avances", authed...)
	pg.GET("", api.query)
	pg.POST("", api.create, requireAction(deps.Policy, authz.SubmitRecords))
	pg.GET("/estadisticas-profesor", api.professorStats)
	pg.GET("/reporte-general", api.generalReport, requireAction(deps.Policy, authz.GeneralReport))
	pg.GET("/graficas", api.charts)
	pg.POST("/recordatorios", api.sendReminders, requireAction(deps.Policy, authz.RemindProgress))

	// detail endpoints
	pg.GET("/:id", api.retrieve, obj)
	pg.PUT("/:id", api.update, obj)
	pg.DELETE("/:id", api.destroy, obj)
}

func progressMiddleware(svc *progress.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			p, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding progress by ID")
			}
			if err = authz.CanAccess(usr, p.ProfessorID); err != nil {
				return err
			}
			ctx.Set(objectKey, p)
			return next(ctx)
		}
	}
}

func ctxProgress(ctx echo.Context) (progress.Progress, error) {
	p, ok := ctx.Get(objectKey).(progress.Progress)
	if !ok {
		return progress.Progress{}, errors.Wrap(errProgressNotFoundInCtx, "retrieving object from context")
	}
	return p, nil
}

// scopedQuery runs the list query of the request, narrowed to what the context user may see.
func (api *progressApi) scopedQuery(ctx echo.Context) ([]progress.Progress, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context user")
	}
	filter := new(progress.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return nil, errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	scope := authz.ScopeFor(usr, filter.ProfessorName)
	filter.ProfessorID, filter.ProfessorName = scope.ProfessorID, scope.ProfessorName

	ordering := new(Ordering)
	ordering.Bind(ctx)

	records, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	if records == nil {
		records = []progress.Progress{}
	}
	return records, nil
}

// Handlers

func (api *progressApi) query(ctx echo.Context) error {
	records, err := api.scopedQuery(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *progressApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data progress.NewProgress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgress")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating progress")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	p, err := ctxProgress(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	p, err := ctxProgress(ctx)
	if err != nil {
		return err
	}
	if err = authz.CanModify(usr, p.ProfessorID); err != nil {
		return err
	}

	var data progress.UpdateProgress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgress")
	}
	if err = data.Validate(api.validate, p); err != nil {
		return err
	}
	if p, err = api.svc.Update(ctx.Request().Context(), p, data); err != nil {
		return errors.Wrap(err, "updating progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *progressApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	p, err := ctxProgress(ctx)
	if err != nil {
		return err
	}
	if err = authz.CanDelete(usr, p.ProfessorID); err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), p); err != nil {
		return errors.Wrap(err, "deleting progress")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *progressApi) professorStats(ctx echo.Context) error {
	records, err := api.scopedQuery(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.ComputeProgressStats(records))
}

func (api *progressApi) generalReport(ctx echo.Context) error {
	records, err := api.scopedQuery(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.ComputeProgressReport(records))
}

func (api *progressApi) charts(ctx echo.Context) error {
	records, err := api.scopedQuery(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.ComputeProgressCharts(records))
}

func (api *progressApi) sendReminders(ctx echo.Context) error {
	var data ReminderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReminderRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	records, err := api.svc.Pending(rctx, data.SchoolCycle)
	if err != nil {
		return errors.Wrap(err, "querying pending progress")
	}
	return ctx.JSON(http.StatusOK, api.notifier.ProgressReminders(rctx, data.SchoolCycle, records, api.userSvc.GetByID))
}

type ReminderRequest struct {
	SchoolCycle string `json:"cicloEscolar" validate:"required,ciclo"`
}

func (rr *ReminderRequest) Validate(validate *validator.Validate) error {
	rr.SchoolCycle = core.CleanString(rr.SchoolCycle)
	return validate.Struct(rr)
}
