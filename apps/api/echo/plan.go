package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/authz"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/notify"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

const objectKey = "object"

var errPlanNotFoundInCtx = errors.New("plan object not found in echo.Context")

type planApi struct {
	svc      *plan.Service
	userSvc  *user.Service
	notifier *notify.Notifier
	validate *validator.Validate
	logger   core.Logger
	maxSize  int64
}

func registerPlanAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps *Deps) {
	api := planApi{
		svc:      deps.PlanSvc,
		userSvc:  deps.UserSvc,
		notifier: deps.Notifier,
		validate: deps.Validate,
		logger:   deps.Logger,
		maxSize:  deps.Conf.Storage.MaxUploadSize,
	}
	obj := planMiddleware(api.svc)

	pg := g.Group("/planeaciones", authed...)
	pg.GET("", api.query)
	pg.POST("", api.create, requireAction(deps.Policy, authz.SubmitRecords))

	// detail endpoints
	pg.GET("/:id", api.retrieve, obj)
	pg.PUT("/:id", api.update, obj)
	pg.DELETE("/:id", api.destroy, obj)
	pg.PUT("/:id/revisar", api.review, requireAction(deps.Policy, authz.ReviewPlan), obj)
	pg.GET("/:id/archivo", api.download, obj)
	pg.GET("/:id/ver", api.view, obj)
}

// planMiddleware loads the plan of the `:id` path param, if the context user may see it.
func planMiddleware(svc *plan.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			p, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding plan by ID")
			}
			if err = authz.CanAccess(usr, p.ProfessorID); err != nil {
				return err
			}
			ctx.Set(objectKey, p)
			return next(ctx)
		}
	}
}

func ctxPlan(ctx echo.Context) (plan.Plan, error) {
	p, ok := ctx.Get(objectKey).(plan.Plan)
	if !ok {
		return plan.Plan{}, errors.Wrap(errPlanNotFoundInCtx, "retrieving object from context")
	}
	return p, nil
}

// Handlers

func (api *planApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	filter := new(plan.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	scope := authz.ScopeFor(usr, filter.ProfessorName)
	filter.ProfessorID, filter.ProfessorName = scope.ProfessorID, scope.ProfessorName

	ordering := new(Ordering)
	ordering.Bind(ctx)

	plans, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying plans")
	}
	if plans == nil {
		plans = []plan.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *planApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	upload, closer, err := bindUpload(ctx, api.maxSize, false)
	if err != nil {
		return err
	}
	defer closer.Close()

	var data plan.NewPlan
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), usr, data, upload)
	if err != nil {
		return errors.Wrap(err, "creating plan")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *planApi) retrieve(ctx echo.Context) error {
	p, err := ctxPlan(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

// update lets the owner edit the content fields; coordinators and admins only edit the review fields.
func (api *planApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	p, err := ctxPlan(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	if usr.IsStaff() {
		var data plan.ReviewPlan
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to ReviewPlan")
		}
		if err = data.Validate(api.validate); err != nil {
			return err
		}
		if p, err = api.svc.Review(rctx, p, usr, data); err != nil {
			return errors.Wrap(err, "reviewing plan")
		}
		return ctx.JSON(http.StatusOK, p)
	}

	if err = authz.CanModify(usr, p.ProfessorID); err != nil {
		return err
	}
	var data plan.UpdatePlan
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePlan")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if p, err = api.svc.Update(rctx, p, data); err != nil {
		return errors.Wrap(err, "updating plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *planApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	p, err := ctxPlan(ctx)
	if err != nil {
		return err
	}
	if err = authz.CanDelete(usr, p.ProfessorID); err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), p); err != nil {
		return errors.Wrap(err, "deleting plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *planApi) review(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	p, err := ctxPlan(ctx)
	if err != nil {
		return err
	}

	var data plan.ReviewPlan
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewPlan")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	if p, err = api.svc.Review(rctx, p, usr, data); err != nil {
		return errors.Wrap(err, "reviewing plan")
	}

	var res notify.Result
	if owner, err := api.userSvc.GetByID(rctx, p.ProfessorID); err != nil {
		api.logger.Warn("finding owner of plan "+p.ID, err)
		res = notify.Result{Error: err.Error()}
	} else {
		res = api.notifier.PlanReviewed(rctx, owner, p)
	}
	return ctx.JSON(http.StatusOK, PlanReviewResponse{
		Message:      "Planeación revisada: " + plan.StatusLabel(p.Status),
		Plan:         p,
		Notification: res,
	})
}

func (api *planApi) download(ctx echo.Context) error {
	return api.sendFile(ctx, "attachment")
}

func (api *planApi) view(ctx echo.Context) error {
	return api.sendFile(ctx, "inline")
}

func (api *planApi) sendFile(ctx echo.Context, disposition string) error {
	p, err := ctxPlan(ctx)
	if err != nil {
		return err
	}
	rc, err := api.svc.OpenFile(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "opening plan file")
	}
	defer rc.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("%s; filename=%q", disposition, p.OriginalName))
	return ctx.Stream(http.StatusOK, core.MimePDF, rc)
}

type PlanReviewResponse struct {
	Message      string        `json:"message"`
	Plan         plan.Plan     `json:"planeacion"`
	Notification notify.Result `json:"notificacion"`
}
