package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/authz"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/notify"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/report"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

type (
	// Deps are the collaborators of the HTTP API.
	Deps struct {
		Conf        *core.Config
		Logger      core.Logger
		Validate    *validator.Validate
		Translator  ut.Translator
		Policy      authz.Policy
		Notifier    *notify.Notifier
		UserSvc     *user.Service
		PlanSvc     *plan.Service
		ProgressSvc *progress.Service
		EvidenceSvc *evidence.Service
		ReportSvc   *report.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		deps           *Deps
		app            *echo.Echo
		auth           *jwtAuth
		signalShutdown func()
	}
)

var _ Server = (*server)(nil)

// NewServer builds the echo application. signalShutdown may be nil.
func NewServer(signalShutdown func(), deps *Deps) Server {
	if deps.Policy == nil {
		deps.Policy = authz.DefaultPolicy()
	}
	s := &server{
		deps:           deps,
		app:            echo.New(),
		auth:           newJWTAuth(deps.Conf),
		signalShutdown: signalShutdown,
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware())
	s.app.Use(middleware.CORS())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	g := s.app.Group("/api")
	authed := []echo.MiddlewareFunc{middleware.JWTWithConfig(s.auth.config()), userMiddleware(s.deps.UserSvc)}

	registerUserAPI(g, authed, s.auth, s.deps)
	registerPlanAPI(g, authed, s.deps)
	registerProgressAPI(g, authed, s.deps)
	registerEvidenceAPI(g, authed, s.deps)
	registerReportAPI(g, authed, s.deps)
}

func (s *server) Start() error {
	return s.app.Start(s.deps.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "API de " + s.deps.Conf.AppName,
		"version": s.deps.Conf.Build,
	})
}

// messageResponse is the body of answers that only carry a confirmation.
type messageResponse struct {
	Message string `json:"message"`
}
