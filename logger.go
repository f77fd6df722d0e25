package hlog

import (
	"sync/atomic"

	"github.com/trickstertwo/xclock"
)

// Logger is a named entry point into a Handle. It is cheap to create and safe
// for concurrent use; the resolved tree node is cached per State so the
// enabled check stays O(1) until the next reload.
type Logger struct {
	h          *Handle
	name       string
	baseFields []Field
	cache      atomic.Pointer[binding]
}

type binding struct {
	state *State
	node  *node
}

// Name returns the dotted logger name.
func (l *Logger) Name() string { return l.name }

// Named returns a child logger; "db" under "app" becomes "app.db".
func (l *Logger) Named(name string) *Logger {
	full := name
	if l.name != "" && name != "" {
		full = l.name + Separator + name
	} else if name == "" {
		full = l.name
	}
	return &Logger{h: l.h, name: full, baseFields: l.baseFields}
}

// With returns a child logger with bound fields.
func (l *Logger) With(fs ...Field) *Logger {
	return &Logger{
		h:          l.h,
		name:       l.name,
		baseFields: append(copyFields(nil, l.baseFields), fs...),
	}
}

// Enabled reports whether logs at 'level' would be emitted by this logger.
// Use to avoid building fields in hot paths when disabled.
func (l *Logger) Enabled(level Level) bool {
	if level < l.h.MinLevel() {
		return false
	}
	return l.node(l.h.state.Load()).level.Enables(level)
}

func (l *Logger) node(s *State) *node {
	if b := l.cache.Load(); b != nil && b.state == s {
		return b.node
	}
	n := s.root.resolve(l.name)
	l.cache.Store(&binding{state: s, node: n})
	return n
}

// Level entry points returning fluent builders; nil when disabled.

func (l *Logger) Trace() *Event { return l.event(LevelTrace) }
func (l *Logger) Debug() *Event { return l.event(LevelDebug) }
func (l *Logger) Info() *Event  { return l.event(LevelInfo) }
func (l *Logger) Warn() *Event  { return l.event(LevelWarn) }
func (l *Logger) Error() *Event { return l.event(LevelError) }
func (l *Logger) Fatal() *Event { return l.event(LevelFatal) }

func (l *Logger) event(level Level) *Event {
	if !l.Enabled(level) {
		return nil
	}
	return getEvent(l, level)
}

// Log emits msg with fields at level without the fluent builder.
func (l *Logger) Log(level Level, msg string, fs ...Field) {
	if level < l.h.MinLevel() {
		return
	}
	l.emit(level, msg, fs)
}

func (l *Logger) emit(level Level, msg string, evFields []Field) {
	s := l.h.acquire()
	defer l.h.release(s)
	n := l.node(s)
	if !n.level.Enables(level) {
		return
	}

	fields := evFields
	if len(l.baseFields) > 0 {
		fields = make([]Field, 0, len(l.baseFields)+len(evFields))
		fields = append(fields, l.baseFields...)
		fields = append(fields, evFields...)
	}
	rec := Record{
		At:      xclock.Now(), // single authoritative timestamp
		Level:   level,
		Logger:  l.name,
		Message: msg,
		Fields:  fields,
	}
	l.h.dispatch(s, n, &rec)
}

func copyFields(dst, src []Field) []Field {
	if len(src) == 0 {
		return dst
	}
	return append(dst, src...)
}
