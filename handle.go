package hlog

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Handle is the concurrency-safe owner of the active State. Readers never
// block: they load the State pointer and pin it for the duration of a
// dispatch. Replace is the only mutation and publishes a State that was built
// entirely outside the Handle.
type Handle struct {
	state    atomic.Pointer[State]
	minLevel atomic.Int64
	mu       sync.Mutex // serialises Replace and Close
	closed   bool       // guarded by mu

	// Observers: lock-free reads via atomic.Value; synchronized updates via obsMu.
	// Stored value is []Observer and MUST be treated as immutable by readers.
	observers atomic.Value // holds []Observer
	obsMu     sync.Mutex

	rep  *reporter
	root *Logger
}

// NewHandle builds a State from cfg and returns a Handle serving it.
func NewHandle(cfg Config, opts ...Option) (*Handle, error) {
	s, err := NewState(cfg)
	if err != nil {
		return nil, err
	}
	return NewHandleWithState(s, opts...), nil
}

// NewHandleWithState returns a Handle serving s.
func NewHandleWithState(s *State, opts ...Option) *Handle {
	o := buildOptions(opts)
	h := &Handle{rep: newReporter(o)}
	if len(o.observers) > 0 {
		h.observers.Store(append([]Observer(nil), o.observers...))
	} else {
		h.observers.Store(([]Observer)(nil))
	}
	h.minLevel.Store(int64(s.minLevel))
	h.state.Store(s)
	h.root = h.Logger("")
	return h
}

// MinLevel is the least restrictive threshold of the active State. Events
// below it are disabled everywhere, so callers can skip building them.
// During Replace it may already reflect the incoming State for a moment.
func (h *Handle) MinLevel() Level { return Level(h.minLevel.Load()) }

// Enabled reports whether an event at level from logger name would be
// dispatched by the active State.
func (h *Handle) Enabled(level Level, name string) bool {
	if level < h.MinLevel() {
		return false
	}
	return h.state.Load().Enabled(level, name)
}

// Dispatch sends rec to every appender of the logger rec.Logger resolves to,
// if that logger enables rec.Level. Appender failures are reported, never
// returned.
func (h *Handle) Dispatch(rec *Record) {
	if rec.Level < h.MinLevel() {
		return
	}
	s := h.acquire()
	defer h.release(s)
	h.dispatch(s, s.root.resolve(rec.Logger), rec)
}

// Current returns the active State.
func (h *Handle) Current() *State { return h.state.Load() }

// Root returns the handle's root logger.
func (h *Handle) Root() *Logger { return h.root }

// Logger returns a logger for name bound to h.
func (h *Handle) Logger(name string) *Logger {
	return &Logger{h: h, name: name}
}

// Replace publishes s and retires the previous State. The previous State's
// closable appenders are closed once the last dispatch using them returns.
// s must not have been published before. After Close, Replace only closes s,
// so a reload loop that outlives the handle cannot re-enable logging.
func (h *Handle) Replace(s *State) {
	old, ok := h.swap(s, false)
	if !ok {
		if err := s.Close(); err != nil {
			h.Report(err)
		}
		return
	}
	if err := h.retire(old); err != nil {
		h.Report(err)
	}
	change := ConfigChange{OldMin: old.minLevel, NewMin: s.minLevel, Appenders: len(s.appenders)}
	for _, o := range h.loadObservers() {
		o.OnConfig(change)
	}
}

// Close disables all logging and closes the active appenders. If dispatches
// are still running, the last of them closes the appenders and any close error
// goes to the diagnostics channel instead.
func (h *Handle) Close() error {
	off, _ := NewState(OffConfig())
	old, ok := h.swap(off, true)
	if !ok {
		return nil
	}
	return h.retire(old)
}

// swap is the single mutation point. minLevel is stored first so the gate
// never lags behind a State that is already visible. It refuses once the
// handle is closed; closing marks it so.
func (h *Handle) swap(s *State, closing bool) (*State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	h.closed = closing
	old := h.state.Load()
	h.minLevel.Store(int64(s.minLevel))
	h.state.Store(s)
	return old, true
}

// Report sends err to the diagnostics channel and to observers.
func (h *Handle) Report(err error) {
	if err == nil {
		return
	}
	h.rep.report(err)
	for _, o := range h.loadObservers() {
		o.OnError(err)
	}
}

func (h *Handle) AddObserver(o Observer) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	cur := h.snapshotObservers()
	cur = append(cur, o)
	h.observers.Store(cur)
}

func (h *Handle) loadObservers() []Observer {
	obs, _ := h.observers.Load().([]Observer)
	return obs
}

func (h *Handle) snapshotObservers() []Observer {
	v := h.observers.Load()
	if v == nil {
		return nil
	}
	cur := v.([]Observer)
	if len(cur) == 0 {
		return nil
	}
	out := make([]Observer, len(cur))
	copy(out, cur)
	return out
}

// acquire pins the active State. A State that was retired between the load
// and the pin is released again and the newer one is used instead.
func (h *Handle) acquire() *State {
	for {
		s := h.state.Load()
		s.refs.Add(1)
		if !s.retired.Load() {
			return s
		}
		h.release(s)
	}
}

func (h *Handle) release(s *State) {
	if s.refs.Add(-1) == 0 && s.retired.Load() {
		if err := s.Close(); err != nil {
			h.Report(err)
		}
	}
}

// retire marks s as superseded and closes it now if nothing pins it.
func (h *Handle) retire(s *State) error {
	s.retired.Store(true)
	if s.refs.Load() == 0 {
		return s.Close()
	}
	return nil
}

func (h *Handle) dispatch(s *State, n *node, rec *Record) {
	if !n.level.Enables(rec.Level) {
		return
	}
	for _, idx := range n.appenders {
		a := s.appenders[idx]
		if err := appendSafe(a.Appender, rec); err != nil {
			h.Report(&AppendError{Appender: a.Name, Logger: rec.Logger, Err: err})
		}
	}

	obs := h.loadObservers()
	if len(obs) == 0 {
		return
	}
	ev := EventData{
		Level:  rec.Level,
		Logger: rec.Logger,
		Msg:    rec.Message,
		At:     rec.At,
		Fields: append([]Field(nil), rec.Fields...),
	}
	for _, o := range obs {
		o.OnEvent(ev)
	}
}

func appendSafe(a Appender, rec *Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during append: %v", r)
		}
	}()
	return a.Append(rec)
}
