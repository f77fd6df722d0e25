package hlog

import (
	"errors"
	"sync/atomic"
)

// Facade: global access (Singleton + Facade).
var global atomic.Pointer[Handle]

// Install registers h as the process-wide handle. Only the first call
// succeeds; later calls return ErrAlreadyInstalled and leave the installed
// handle untouched.
func Install(h *Handle) error {
	if h == nil {
		return errors.New("hlog: Install called with nil handle")
	}
	if !global.CompareAndSwap(nil, h) {
		return ErrAlreadyInstalled
	}
	return nil
}

// Installed returns the process-wide handle, or nil before Install.
func Installed() *Handle { return global.Load() }

// Get returns the installed handle or ErrNotInstalled.
func Get() (*Handle, error) {
	if h := global.Load(); h != nil {
		return h, nil
	}
	return nil, ErrNotInstalled
}

// L returns the global root Logger; panic if unset to surface misconfig early.
func L() *Logger {
	h := global.Load()
	if h == nil {
		panic("hlog: no handle installed. Build one and call hlog.Install(...)")
	}
	return h.root
}

// Named returns a logger of the installed handle.
func Named(name string) *Logger { return L().Named(name) }

// Enabled is the cheap global gate: false when no handle is installed or the
// level is below every configured threshold.
func Enabled(level Level) bool {
	h := global.Load()
	return h != nil && level >= h.MinLevel()
}

// Facade helpers on the root logger.
// Usage: hlog.Info().Str("k","v").Msg("hello")

func Trace() *Event { return L().Trace() }
func Debug() *Event { return L().Debug() }
func Info() *Event  { return L().Info() }
func Warn() *Event  { return L().Warn() }
func Error() *Event { return L().Error() }
func Fatal() *Event { return L().Fatal() }
