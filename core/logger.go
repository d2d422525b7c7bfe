package core

// Logger is the application logger.
// args may contain errors and map[string]interface{} extras; implementations decide how to report them.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies who triggered a logged event, when known.
type Actor struct {
	ID   string
	Name string
}
