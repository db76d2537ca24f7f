package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/PalomaresAndrea/gestion-planeacion-sub000/apps/api/echo"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/authz"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/evidence"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/notify"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/plan"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/progress"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/report"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
	appfs "github.com/PalomaresAndrea/gestion-planeacion-sub000/fs"
	emailsvc "github.com/PalomaresAndrea/gestion-planeacion-sub000/services/email"
	logsvc "github.com/PalomaresAndrea/gestion-planeacion-sub000/services/logger"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database"
	filestore "github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/files"
)

const connectTimeout = 30 * time.Second

// ShutdownChan receives OS signals and in-process shutdown requests.
type ShutdownChan chan os.Signal

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type depsParam struct {
	dig.In

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

func newShutdownChan() ShutdownChan {
	shutdown := make(ShutdownChan, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newRollbarLogger(conf *core.Config) *logsvc.RollbarLogger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newLogger(l *logsvc.RollbarLogger) core.Logger {
	return l
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) (*database.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	loggerParam.Logger.Info(fmt.Sprintf("opening %q store", conf.Database.Engine))
	store, err := database.NewStore(ctx, conf)
	if err != nil {
		return nil, errors.Wrap(err, "setting up database")
	}
	return store, nil
}

func newFileStore(conf *core.Config) (core.FileStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return filestore.New(ctx, conf)
}

func newEmailService(conf *core.Config) core.EmailService {
	if conf.Email.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(log.New(os.Stdout, "EMAIL : ", log.LstdFlags), conf)
	}
	return emailsvc.NewSendgridService(conf)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	return validate, translator
}

func newEmailTemplates(conf *core.Config) (*core.EmailTemplates, error) {
	return core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
}

func newUserService(store *database.Store, conf *core.Config) *user.Service {
	return user.NewService(store.Users, conf)
}

func newPlanService(store *database.Store, files core.FileStore, logger core.Logger, conf *core.Config) *plan.Service {
	return plan.NewService(store.Plans, files, logger, conf)
}

func newProgressService(store *database.Store) *progress.Service {
	return progress.NewService(store.Progress)
}

func newEvidenceService(store *database.Store, files core.FileStore, logger core.Logger, conf *core.Config) *evidence.Service {
	return evidence.NewService(store.Evidence, files, logger, conf)
}

func newReportService(p *plan.Service, pr *progress.Service, e *evidence.Service, conf *core.Config) *report.Service {
	return report.NewService(p, pr, e, conf)
}

func newDeps(p depsParam) *echoapi.Deps {
	return &echoapi.Deps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		Policy:      p.Policy,
		Notifier:    p.Notifier,
		UserSvc:     p.UserSvc,
		PlanSvc:     p.PlanSvc,
		ProgressSvc: p.ProgressSvc,
		EvidenceSvc: p.EvidenceSvc,
		ReportSvc:   p.ReportSvc,
	}
}

func newServer(shutdown ShutdownChan, deps *echoapi.Deps) echoapi.Server {
	return echoapi.NewServer(func() { shutdown <- syscall.SIGTERM }, deps)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newShutdownChan))
	must(c.Provide(newRollbarLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newFileStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(newEmailTemplates))
	must(c.Provide(notify.NewNotifier))
	must(c.Provide(authz.DefaultPolicy))
	must(c.Provide(newUserService))
	must(c.Provide(newPlanService))
	must(c.Provide(newProgressService))
	must(c.Provide(newEvidenceService))
	must(c.Provide(newReportService))
	must(c.Provide(newDeps))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
