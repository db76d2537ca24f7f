package echoapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/authz"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/notify"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/report"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

var (
	errEvidenceNotFoundInCtx = errors.New("evidence object not found in echo.Context")
	errSearchRequired        = core.NewValidationError(nil, core.FieldError{Field: "q", Error: "q es obligatorio"})
)

type evidenceApi struct {
	svc      *evidence.Service
	userSvc  *user.Service
	notifier *notify.Notifier
	validate *validator.Validate
	logger   core.Logger
	maxSize  int64
}

func registerEvidenceAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps *Deps) {
	api := evidenceApi{
		svc:      deps.EvidenceSvc,
		userSvc:  deps.UserSvc,
		notifier: deps.Notifier,
		validate: deps.Validate,
		logger:   deps.Logger,
		maxSize:  deps.Conf.Storage.MaxUploadSize,
	}
	obj := evidenceMiddleware(api.svc)

	eg := g.Group("/evidencias", authed...)
	eg.GET("", api.query)
	eg.POST("", api.create, requireAction(deps.Policy, authz.SubmitRecords))
	eg.GET("/buscar", api.search)
	eg.GET("/estadisticas-profesor", api.professorStats)
	eg.GET("/reporte-general", api.generalReport, requireAction(deps.Policy, authz.GeneralReport))

	// detail endpoints
	eg.GET("/:id", api.retrieve, obj)
	eg.PUT("/:id", api.update, obj)
	eg.DELETE("/:id", api.destroy, obj)
	eg.PUT("/:id/validar", api.validateEvidence, requireAction(deps.Policy, authz.ValidateEvidence), obj)
	eg.GET("/:id/archivo", api.download, obj)
}

func evidenceMiddleware(svc *evidence.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			e, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding evidence by ID")
			}
			if err = authz.CanAccess(usr, e.ProfessorID); err != nil {
				return err
			}
			ctx.Set(objectKey, e)
			return next(ctx)
		}
	}
}

func ctxEvidence(ctx echo.Context) (evidence.Evidence, error) {
	e, ok := ctx.Get(objectKey).(evidence.Evidence)
	if !ok {
		return evidence.Evidence{}, errors.Wrap(errEvidenceNotFoundInCtx, "retrieving object from context")
	}
	return e, nil
}

func (api *evidenceApi) scopedQuery(ctx echo.Context) ([]evidence.Evidence, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context user")
	}
	filter := new(evidence.QueryFilter)
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
		return nil, errors.Wrap(err, "querying evidence")
	}
	if records == nil {
		records = []evidence.Evidence{}
	}
	return records, nil
}

// Handlers

func (api *evidenceApi) query(ctx echo.Context) error {
	records, err := api.scopedQuery(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *evidenceApi) search(ctx echo.Context) error {
	if core.CleanString(ctx.QueryParam("q")) == "" {
		return errSearchRequired
	}
	records, err := api.scopedQuery(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

// create accepts a JSON body, or a multipart form when a file comes along.
func (api *evidenceApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var (
		data   evidence.NewEvidence
		upload *core.Upload
	)
	if isMultipart(ctx) {
		var closer io.Closer
		upload, closer, err = bindUpload(ctx, api.maxSize, true)
		if err != nil {
			return err
		}
		defer closer.Close()
		var parseErrs []core.FieldError
		if data, parseErrs, err = newEvidenceFromForm(ctx); err != nil {
			return err
		}
		if err = core.MergeValidation(data.Validate(api.validate), parseErrs...); err != nil {
			return err
		}
	} else {
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewEvidence")
		}
		if err = data.Validate(api.validate); err != nil {
			return err
		}
	}

	e, err := api.svc.Create(ctx.Request().Context(), usr, data, upload)
	if err != nil {
		return errors.Wrap(err, "creating evidence")
	}
	return ctx.JSON(http.StatusCreated, e)
}

// newEvidenceFromForm reads the multipart fields; values that do not parse come back as field errors.
func newEvidenceFromForm(ctx echo.Context) (evidence.NewEvidence, []core.FieldError, error) {
	values, err := formValues(ctx)
	if err != nil {
		return evidence.NewEvidence{}, nil, err
	}
	data := evidence.NewEvidence{
		CourseName:   values["nombreCurso"],
		Institution:  values["institucion"],
		TrainingType: values["tipoCapacitacion"],
	}

	var fldErrs []core.FieldError
	if v := core.CleanString(values["fechaInicio"]); v != "" {
		if data.StartDate, err = core.ParseDate(v); err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: "fechaInicio", Error: err.Error()})
		}
	}
	if v := core.CleanString(values["fechaFin"]); v != "" {
		if data.EndDate, err = core.ParseDate(v); err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: "fechaFin", Error: err.Error()})
		}
	}
	if h := core.CleanString(values["horasAcreditadas"]); h != "" {
		if data.Hours, err = strconv.ParseFloat(h, 64); err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: "horasAcreditadas", Error: "horasAcreditadas debe ser un número"})
		}
	}
	return data, fldErrs, nil
}

func (api *evidenceApi) retrieve(ctx echo.Context) error {
	e, err := ctxEvidence(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *evidenceApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	e, err := ctxEvidence(ctx)
	if err != nil {
		return err
	}
	if err = authz.CanModify(usr, e.ProfessorID); err != nil {
		return err
	}

	var data evidence.UpdateEvidence
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvidence")
	}
	if err = data.Validate(api.validate, e); err != nil {
		return err
	}
	if e, err = api.svc.Update(ctx.Request().Context(), e, data); err != nil {
		return errors.Wrap(err, "updating evidence")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *evidenceApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	e, err := ctxEvidence(ctx)
	if err != nil {
		return err
	}
	if err = authz.CanDelete(usr, e.ProfessorID); err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), e); err != nil {
		return errors.Wrap(err, "deleting evidence")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// validateEvidence records the decision, then tries to tell the owner. The decision stands whatever the email outcome.
func (api *evidenceApi) validateEvidence(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	e, err := ctxEvidence(ctx)
	if err != nil {
		return err
	}

	var data evidence.ValidateEvidence
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ValidateEvidence")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	if e, err = api.svc.Validate(rctx, e, usr, data); err != nil {
		return errors.Wrap(err, "validating evidence")
	}

	var res notify.Result
	if owner, err := api.userSvc.GetByID(rctx, e.ProfessorID); err != nil {
		api.logger.Warn("finding owner of evidence "+e.ID, err)
		res = notify.Result{Error: err.Error()}
	} else {
		res = api.notifier.EvidenceValidated(rctx, owner, e)
	}
	return ctx.JSON(http.StatusOK, EvidenceValidationResponse{
		Message:      "Evidencia " + evidence.StatusLabel(e.Status),
		Evidence:     e,
		Notification: res,
	})
}

func (api *evidenceApi) download(ctx echo.Context) error {
	e, err := ctxEvidence(ctx)
	if err != nil {
		return err
	}
	rc, err := api.svc.OpenFile(ctx.Request().Context(), e)
	if err != nil {
		return errors.Wrap(err, "opening evidence file")
	}
	defer rc.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", e.OriginalName))
	return ctx.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

func (api *evidenceApi) professorStats(ctx echo.Context) error {
	records, err := api.scopedQuery(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.ComputeEvidenceStats(records))
}

func (api *evidenceApi) generalReport(ctx echo.Context) error {
	records, err := api.scopedQuery(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.ComputeEvidenceReport(records))
}

type EvidenceValidationResponse struct {
	Message      string            `json:"message"`
	Evidence     evidence.Evidence `json:"evidencia"`
	Notification notify.Result     `json:"notificacion"`
}
