package logsvc

import (
	"log"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core/user"
)

// RollbarLogger prints to a std logger and forwards every entry to rollbar.
// Args may hold an error, a map[string]interface{} of extras and the current user.User.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	host, _ := os.Hostname()
	if host == "" {
		host = conf.Server.Address
	}
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l *RollbarLogger) Close() {
	rollbar.Close()
}

func (l *RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			if !usrSet {
				rollbar.SetPerson(usr.ID, usr.Name, usr.Email)
				usrSet = true
			}
			continue
		}
		newArgs = append(newArgs, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l *RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			l.std.Printf("\tuser: %s <%s>", usr.ID, usr.Email)
			continue
		}
		l.std.Printf("\t%+v", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("FATAL", msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
