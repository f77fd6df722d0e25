package hlog

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type options struct {
	diag      *zap.Logger
	handler   ErrorHandler
	limit     rate.Limit
	burst     int
	observers []Observer
}

// Option configures a Handle.
type Option func(*options)

func buildOptions(opts []Option) *options {
	o := &options{limit: rate.Inf}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDiagnostics routes reported errors to l instead of the default stderr
// logger.
func WithDiagnostics(l *zap.Logger) Option {
	return func(o *options) { o.diag = l }
}

// WithErrorHandler replaces the diagnostics logger with a plain callback.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) { o.handler = h }
}

// WithReportLimit caps diagnostics to r per second with the given burst.
// Dropped reports are counted and attached to the next one that passes: as a
// "suppressed" field on the zap channel, or in the message of the error given
// to an ErrorHandler.
// Observers still see every error.
func WithReportLimit(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.limit = r
		o.burst = burst
	}
}

// WithObservers registers observers before the first State is published.
func WithObservers(obs ...Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs...) }
}
