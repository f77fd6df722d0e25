package hlog

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

// blocking parks Append until release is closed.
type blocking struct {
	recorder
	entered chan struct{}
	release chan struct{}
}

func (b *blocking) Append(rec *Record) error {
	close(b.entered)
	<-b.release
	return b.recorder.Append(rec)
}

func TestDispatchOrder(t *testing.T) {
	t.Parallel()
	var order []string
	mk := func(name string) Appender {
		return AppenderFunc(func(*Record) error {
			order = append(order, name)
			return nil
		})
	}
	h, err := NewHandle(Config{
		Appenders: []NamedAppender{{Name: "a", Appender: mk("a")}, {Name: "b", Appender: mk("b")}, {Name: "c", Appender: mk("c")}},
		Root:      RootConfig{Level: LevelInfo, Appenders: []string{"b"}},
		Loggers:   []LoggerConfig{{Name: "x", Level: LevelInfo, Appenders: []string{"c", "a"}, Additive: true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	h.Dispatch(&Record{Level: LevelInfo, Logger: "x.y", Message: "m"})

	want := []string{"c", "a", "b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestAppendErrorIsReported(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.DebugLevel)
	bad := &recorder{err: errors.New("disk full")}
	good := &recorder{}
	var seen []error
	h, err := NewBuilder().
		WithAppender("bad", bad).
		WithAppender("good", good).
		WithRoot(LevelInfo, "bad", "good").
		AddObserver(ObserverFuncs{Error: func(err error) { seen = append(seen, err) }}).
		WithOptions(WithDiagnostics(zap.New(core))).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	h.Logger("svc").Error().Msg("boom")

	if n := len(good.records()); n != 1 {
		t.Fatalf("failing appender stopped the next one: %d records", n)
	}
	if len(seen) != 1 {
		t.Fatalf("observer saw %d errors", len(seen))
	}
	var ae *AppendError
	if !errors.As(seen[0], &ae) || ae.Appender != "bad" || ae.Logger != "svc" {
		t.Fatalf("unexpected error %v", seen[0])
	}
	if !errors.Is(seen[0], ErrAppend) || ErrorKind(seen[0]) != "append" {
		t.Fatalf("error kind = %q", ErrorKind(seen[0]))
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("diagnostics entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["kind"] != "append" || fields["appender"] != "bad" || fields["logger"] != "svc" {
		t.Fatalf("diagnostics fields = %v", fields)
	}
}

func TestAppendPanicIsRecovered(t *testing.T) {
	t.Parallel()
	var reported []error
	after := &recorder{}
	h, err := NewBuilder().
		WithAppender("panics", AppenderFunc(func(*Record) error { panic("nil map") })).
		WithAppender("after", after).
		WithRoot(LevelInfo, "panics", "after").
		WithOptions(WithErrorHandler(func(err error) { reported = append(reported, err) })).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	h.Root().Info().Msg("survives")

	if len(reported) != 1 || !errors.Is(reported[0], ErrAppend) {
		t.Fatalf("reported = %v", reported)
	}
	if len(after.records()) != 1 {
		t.Fatal("appender after the panicking one was skipped")
	}
}

func TestReportLimit(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.DebugLevel)
	var observed atomic.Int64
	h, err := NewBuilder().
		WithAppender("bad", &recorder{err: errors.New("nope")}).
		WithRoot(LevelInfo, "bad").
		AddObserver(ObserverFuncs{Error: func(error) { observed.Add(1) }}).
		WithOptions(WithDiagnostics(zap.New(core)), WithReportLimit(rate.Every(1<<62), 1)).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	for range 5 {
		h.Root().Info().Msg("x")
	}

	if logs.Len() != 1 {
		t.Fatalf("diagnostics entries = %d, want 1", logs.Len())
	}
	if got := h.rep.Suppressed(); got != 4 {
		t.Fatalf("suppressed = %d, want 4", got)
	}
	if observed.Load() != 5 {
		t.Fatalf("observers saw %d errors, want 5", observed.Load())
	}
}

func TestReplaceNotifiesAndClosesOldState(t *testing.T) {
	t.Parallel()
	var changes []ConfigChange
	old := &recorder{}
	h, err := NewBuilder().
		WithAppender("old", old).
		WithRoot(LevelWarn, "old").
		AddObserver(ObserverFuncs{Config: func(c ConfigChange) { changes = append(changes, c) }}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	next := &recorder{}
	s, err := NewState(Config{
		Appenders: []NamedAppender{{Name: "next", Appender: next}, {Name: "spare", Appender: &recorder{}}},
		Root:      RootConfig{Level: LevelDebug, Appenders: []string{"next"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	h.Replace(s)

	if old.closeCount() != 1 {
		t.Fatalf("old appender closed %d times", old.closeCount())
	}
	if h.Current() != s || h.MinLevel() != LevelDebug {
		t.Fatal("new state not active")
	}
	if len(changes) != 1 || changes[0] != (ConfigChange{OldMin: LevelWarn, NewMin: LevelDebug, Appenders: 2}) {
		t.Fatalf("changes = %+v", changes)
	}

	h.Root().Debug().Msg("to next")
	if len(next.records()) != 1 || len(old.records()) != 0 {
		t.Fatal("event routed to the wrong state")
	}
}

func TestReplaceWaitsForInFlightDispatch(t *testing.T) {
	t.Parallel()
	slow := &blocking{entered: make(chan struct{}), release: make(chan struct{})}
	h, err := NewBuilder().
		WithAppender("slow", slow).
		WithRoot(LevelInfo, "slow").
		Build()
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Root().Info().Msg("in flight")
	}()
	<-slow.entered

	off, _ := NewState(OffConfig())
	h.Replace(off)
	if slow.closeCount() != 0 {
		t.Fatal("appender closed while an append was running")
	}

	close(slow.release)
	<-done
	if slow.closeCount() != 1 {
		t.Fatalf("appender closed %d times after dispatch", slow.closeCount())
	}
	if len(slow.records()) != 1 {
		t.Fatal("in-flight event lost")
	}
}

func TestConcurrentLoggingDuringReplace(t *testing.T) {
	t.Parallel()
	newState := func(level Level) (*State, *recorder) {
		rec := &recorder{}
		s, err := NewState(Config{
			Appenders: []NamedAppender{{Name: "rec", Appender: rec}},
			Root:      RootConfig{Level: level, Appenders: []string{"rec"}},
			Loggers:   []LoggerConfig{{Name: "w", Level: LevelDebug, Additive: true}},
		})
		if err != nil {
			t.Fatal(err)
		}
		return s, rec
	}

	first, firstRec := newState(LevelInfo)
	h := NewHandleWithState(first, WithErrorHandler(func(err error) { t.Errorf("unexpected report: %v", err) }))
	recs := []*recorder{firstRec}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := h.Logger("w.worker")
			for {
				select {
				case <-stop:
					return
				default:
					l.Debug().Int("n", 1).Msg("tick")
				}
			}
		}()
	}

	for i := range 50 {
		s, rec := newState(Level(i % 3 * 4))
		recs = append(recs, rec)
		h.Replace(s)
	}
	close(stop)
	wg.Wait()
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	for i, rec := range recs {
		if rec.closeCount() != 1 {
			t.Fatalf("state %d closed %d times", i, rec.closeCount())
		}
		for _, e := range rec.records() {
			if e.Logger != "w.worker" || e.Level != LevelDebug {
				t.Fatalf("unexpected record %+v", e)
			}
		}
	}
}

func TestCloseDisablesLogging(t *testing.T) {
	t.Parallel()
	h, rec := newTestHandle(t, LevelInfo)
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if rec.closeCount() != 1 {
		t.Fatal("appender not closed")
	}
	if h.MinLevel() != LevelOff || h.Enabled(LevelFatal, "") {
		t.Fatal("closed handle still enabled")
	}
	h.Root().Fatal().Msg("dropped")
	h.Dispatch(&Record{Level: LevelFatal, Message: "dropped"})
	if len(rec.records()) != 0 {
		t.Fatal("closed handle dispatched")
	}
}

func TestAddObserverAfterBuild(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandle(t, LevelInfo)
	var n atomic.Int64
	h.AddObserver(ObserverFuncs{Event: func(EventData) { n.Add(1) }})
	h.Root().Info().Msg("a")
	h.Root().Debug().Msg("filtered")
	if n.Load() != 1 {
		t.Fatalf("observer saw %d events", n.Load())
	}
}

func TestReportLimitWithErrorHandler(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var got []error
	h, err := NewBuilder().
		WithAppender("bad", &recorder{err: errors.New("nope")}).
		WithRoot(LevelInfo, "bad").
		WithOptions(
			WithErrorHandler(func(err error) {
				mu.Lock()
				got = append(got, err)
				mu.Unlock()
			}),
			WithReportLimit(rate.Every(50*time.Millisecond), 1),
		).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	for range 4 {
		h.Root().Info().Msg("x")
	}
	time.Sleep(120 * time.Millisecond)
	h.Root().Info().Msg("x")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("handler called %d times, want 2", len(got))
	}
	last := got[1]
	if !errors.Is(last, ErrAppend) || !strings.Contains(last.Error(), "3 earlier reports suppressed") {
		t.Fatalf("last report = %v", last)
	}
	if n := h.rep.Suppressed(); n != 0 {
		t.Fatalf("suppressed counter not reset: %d", n)
	}
}

func TestReplaceAfterCloseIsRefused(t *testing.T) {
	t.Parallel()
	var changes int
	h, _ := newTestHandle(t, LevelInfo)
	h.AddObserver(ObserverFuncs{Config: func(ConfigChange) { changes++ }})
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	late := &recorder{}
	s, err := NewState(Config{
		Appenders: []NamedAppender{{Name: "late", Appender: late}},
		Root:      RootConfig{Level: LevelTrace, Appenders: []string{"late"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	h.Replace(s)

	if h.MinLevel() != LevelOff || h.Enabled(LevelFatal, "") {
		t.Fatal("Replace re-enabled a closed handle")
	}
	if late.closeCount() != 1 {
		t.Fatalf("refused state's appender closed %d times", late.closeCount())
	}
	if changes != 0 {
		t.Fatalf("OnConfig fired %d times", changes)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
