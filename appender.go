package hlog

import "time"

// Record is one log event as seen by appenders. The Fields slice may be reused
// by the caller once Append returns, so appenders must copy anything they keep.
type Record struct {
	At      time.Time
	Level   Level
	Logger  string // dotted logger name; "" is the root logger
	Message string
	Fields  []Field
}

// Appender is an output destination (console, rolling file, zap core, ...).
// Append is called synchronously on the logging goroutine; a returned error is
// reported on the diagnostics channel and never reaches the log call site.
// Appenders that also implement io.Closer are closed when the configuration
// that created them is replaced.
type Appender interface {
	Append(r *Record) error
}

// AppenderFunc adapter.
type AppenderFunc func(r *Record) error

func (f AppenderFunc) Append(r *Record) error { return f(r) }

// NamedAppender is an entry of a configuration's appender table.
type NamedAppender struct {
	Name     string
	Appender Appender
}
