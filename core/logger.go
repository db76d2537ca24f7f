package core

// Logger is the logging contract of the application.
// `args` may carry errors, a user.User or extra data for the error tracker.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
