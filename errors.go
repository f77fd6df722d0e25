package hlog

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceRead marks a configuration source that could not be stat'ed or read.
	ErrSourceRead = errors.New("hlog: configuration source unreadable")
	// ErrParse marks a malformed configuration document.
	ErrParse = errors.New("hlog: malformed configuration")
	// ErrInvalidConfig marks a well-formed document with inconsistent content
	// (unknown appender references, duplicate loggers, ...).
	ErrInvalidConfig = errors.New("hlog: invalid configuration")
	// ErrAppenderBuild marks a named appender that could not be created.
	ErrAppenderBuild = errors.New("hlog: appender construction failed")
	// ErrAppend marks a failed Append for a single event.
	ErrAppend = errors.New("hlog: append failed")
	// ErrAlreadyInstalled is returned by Install after the first success.
	ErrAlreadyInstalled = errors.New("hlog: logger already installed")
	// ErrNotInstalled is returned by Get before Install.
	ErrNotInstalled = errors.New("hlog: no logger installed")
)

// AppendError is reported when an appender fails to record an event.
type AppendError struct {
	Appender string
	Logger   string
	Err      error
}

func (e *AppendError) Error() string {
	return fmt.Sprintf("hlog: appender %q failed for logger %q: %v", e.Appender, e.Logger, e.Err)
}

func (e *AppendError) Unwrap() []error { return []error{ErrAppend, e.Err} }

// ErrorKind classifies err by the sentinel it wraps. Used as a metrics label
// and as the diagnostics message.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceRead):
		return "source_read"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrAppenderBuild):
		return "appender_build"
	case errors.Is(err, ErrAppend):
		return "append"
	case errors.Is(err, ErrAlreadyInstalled), errors.Is(err, ErrNotInstalled):
		return "install"
	default:
		return "other"
	}
}
