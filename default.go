package hlog

import (
	"io"
	"os"
)

// defaultAppenderFactory is set by an appender package (appender/writer) in
// its init() to avoid import cycles. Default() uses it to build a handle.
var defaultAppenderFactory func(w io.Writer) Appender

// RegisterDefaultAppenderFactory registers the constructor used by
// hlog.Default(). Appenders should call this from init().
func RegisterDefaultAppenderFactory(f func(io.Writer) Appender) {
	defaultAppenderFactory = f
}

// Default creates a handle whose root logger writes Info and above to
// os.Stdout through the registered appender factory. Side import
// github.com/trickstertwo/hlog/appender/writer to register the built-in one.
// Panics if no factory is registered.
func Default(opts ...Option) *Handle {
	if defaultAppenderFactory == nil {
		panic("hlog: no default appender registered. Import appender/writer or call hlog.RegisterDefaultAppenderFactory")
	}
	h, err := NewBuilder().
		WithAppender("stdout", defaultAppenderFactory(os.Stdout)).
		WithRoot(LevelInfo, "stdout").
		WithOptions(opts...).
		Build()
	if err != nil {
		panic(err)
	}
	return h
}

// InitWithConfig builds a handle from cfg and installs it process-wide.
func InitWithConfig(cfg Config, opts ...Option) (*Handle, error) {
	h, err := NewHandle(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := Install(h); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}
