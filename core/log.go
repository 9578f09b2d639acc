package core

// Logger is any service that can report application events and errors.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogUser identifies the acting user on a log entry, when known.
type LogUser struct {
	ID    string
	Name  string
	Email string
}
