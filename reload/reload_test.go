package reload

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/config"
	"github.com/trickstertwo/hlog/source"
)

type sink struct {
	mu     sync.Mutex
	msgs   []string
	closed bool
}

func (s *sink) Append(r *hlog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, r.Message)
	return nil
}

func (s *sink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *sink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.msgs...)
}

func (s *sink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// testCreator builds "mem" appenders and remembers every one, in order.
type testCreator struct {
	*config.Creator
	mu    sync.Mutex
	sinks []*sink
}

func newTestCreator() *testCreator {
	tc := &testCreator{Creator: config.NewCreator()}
	tc.Register("mem", func(string, *koanf.Koanf) (hlog.Appender, error) {
		s := &sink{}
		tc.mu.Lock()
		tc.sinks = append(tc.sinks, s)
		tc.mu.Unlock()
		return s, nil
	})
	return tc
}

func (tc *testCreator) built() []*sink {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]*sink(nil), tc.sinks...)
}

func diagnostics() (hlog.Option, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return hlog.WithDiagnostics(zap.New(core)), logs
}

const (
	infoDoc = `
refresh_rate: 1h
appenders: {out: {kind: mem}}
root: {level: info, appenders: [out]}
`
	debugDoc = `
refresh_rate: 2h
appenders: {out: {kind: mem}}
root: {level: debug, appenders: [out]}
`
	finalDoc = `
appenders: {out: {kind: mem}}
root: {level: error, appenders: [out]}
`
	brokenDoc = "root: [nope"
)

func setup(t *testing.T, doc string) (*hlog.Handle, *Reloader, *source.Memory, *testCreator, *observer.ObservedLogs) {
	t.Helper()
	src := source.NewMemory(config.FormatYAML, []byte(doc))
	tc := newTestCreator()
	diag, logs := diagnostics()
	h, r := Setup(context.Background(), src, tc.Creator, WithHandleOptions(diag))
	t.Cleanup(func() { _ = h.Close() })
	return h, r, src, tc, logs
}

func TestSetup_InitialLoad(t *testing.T) {
	h, r, _, tc, logs := setup(t, infoDoc)
	require.NotNil(t, r)
	assert.Equal(t, time.Hour, r.Interval())
	assert.True(t, h.Enabled(hlog.LevelInfo, "any"))
	assert.False(t, h.Enabled(hlog.LevelDebug, "any"))
	assert.Len(t, tc.built(), 1)
	assert.Zero(t, logs.Len())
}

func TestSetup_NoRefreshRateMeansNoReloader(t *testing.T) {
	h, r, _, _, _ := setup(t, finalDoc)
	assert.Nil(t, r)
	assert.Equal(t, hlog.LevelError, h.MinLevel())
}

func TestSetup_BrokenDocumentFallsBackToOff(t *testing.T) {
	h, r, _, _, logs := setup(t, brokenDoc)
	assert.Nil(t, r)
	assert.Equal(t, hlog.LevelOff, h.MinLevel())
	assert.False(t, h.Enabled(hlog.LevelFatal, ""))
	require.Equal(t, 1, logs.FilterField(zap.String("kind", "parse")).Len())
}

func TestSetup_UnreadableSignatureStillLoads(t *testing.T) {
	src := source.NewMemory(config.FormatYAML, []byte(infoDoc))
	src.FailSignature(errors.New("stat denied"))
	diag, logs := diagnostics()
	h, r := Setup(context.Background(), src, newTestCreator().Creator, WithHandleOptions(diag))
	defer h.Close()

	require.NotNil(t, r)
	assert.True(t, h.Enabled(hlog.LevelInfo, ""))
	assert.Equal(t, 1, logs.FilterField(zap.String("kind", "source_read")).Len())

	// The zero signature differs from any real one: the first good poll reloads.
	src.FailSignature(nil)
	reloaded, err := r.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded)
}

func TestPoll_UnchangedSignatureSkips(t *testing.T) {
	_, r, src, _, _ := setup(t, infoDoc)
	reads := src.Reads()
	reloaded, err := r.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, reloaded)
	assert.Equal(t, reads, src.Reads())
}

func TestPoll_SwapsStateAndClosesOldAppenders(t *testing.T) {
	h, r, src, tc, _ := setup(t, infoDoc)
	var changes []hlog.ConfigChange
	h.AddObserver(hlog.ObserverFuncs{Config: func(c hlog.ConfigChange) { changes = append(changes, c) }})

	src.Set([]byte(debugDoc))
	reloaded, err := r.Poll(context.Background())
	require.NoError(t, err)
	require.True(t, reloaded)

	assert.True(t, h.Enabled(hlog.LevelDebug, "svc"))
	assert.Equal(t, 2*time.Hour, r.Interval())
	sinks := tc.built()
	require.Len(t, sinks, 2)
	assert.True(t, sinks[0].isClosed(), "retired appender closed")
	assert.False(t, sinks[1].isClosed())
	require.Len(t, changes, 1)
	assert.Equal(t, hlog.ConfigChange{OldMin: hlog.LevelInfo, NewMin: hlog.LevelDebug, Appenders: 1}, changes[0])

	h.Logger("svc").Debug().Msg("after reload")
	assert.Equal(t, []string{"after reload"}, sinks[1].messages())
}

func TestPoll_FailedReloadIsNotRetriedUntilSourceChanges(t *testing.T) {
	h, r, src, _, logs := setup(t, infoDoc)
	ctx := context.Background()

	src.Set([]byte(brokenDoc))
	reads := src.Reads()

	_, err := r.Poll(ctx)
	require.ErrorIs(t, err, hlog.ErrParse)
	assert.Equal(t, reads+1, src.Reads())
	assert.Equal(t, hlog.LevelInfo, h.MinLevel(), "active state untouched")

	for i := 0; i < 5; i++ {
		reloaded, err := r.Poll(ctx)
		require.NoError(t, err)
		assert.False(t, reloaded)
	}
	assert.Equal(t, reads+1, src.Reads(), "broken document read exactly once")
	assert.Equal(t, 1, logs.FilterField(zap.String("kind", "parse")).Len())
	assert.Equal(t, time.Hour, r.Interval(), "interval kept after failure")

	src.Set([]byte(debugDoc))
	reloaded, err := r.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, hlog.LevelDebug, h.MinLevel())
}

func TestPoll_SignatureFailureRetriedEveryInterval(t *testing.T) {
	h, r, src, _, logs := setup(t, infoDoc)
	ctx := context.Background()

	src.FailSignature(errors.New("nfs hiccup"))
	for i := 0; i < 3; i++ {
		_, err := r.Poll(ctx)
		require.ErrorIs(t, err, hlog.ErrSourceRead)
	}
	assert.Equal(t, 3, logs.FilterField(zap.String("kind", "source_read")).Len())

	src.FailSignature(nil)
	reloaded, err := r.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded, "signature unchanged")
	assert.Equal(t, hlog.LevelInfo, h.MinLevel())
}

func TestPoll_AppenderBuildFailureKeepsState(t *testing.T) {
	h, r, src, tc, _ := setup(t, infoDoc)
	src.Set([]byte("refresh_rate: 1h\nappenders: {out: {kind: missing}}\nroot: {level: trace, appenders: [out]}\n"))

	_, err := r.Poll(context.Background())
	require.ErrorIs(t, err, hlog.ErrAppenderBuild)
	assert.Equal(t, hlog.LevelInfo, h.MinLevel())
	assert.False(t, tc.built()[0].isClosed())
}

func TestRun_StopsWhenConfigurationDropsRefreshRate(t *testing.T) {
	src := source.NewMemory(config.FormatYAML, []byte("refresh_rate: 10ms\nroot: {level: info}\n"))
	diag, _ := diagnostics()
	h, r := Setup(context.Background(), src, newTestCreator().Creator, WithHandleOptions(diag))
	defer h.Close()
	require.NotNil(t, r)

	errc := make(chan error, 1)
	go func() { errc <- r.Run(context.Background()) }()

	src.Set([]byte(finalDoc))
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reload loop did not terminate")
	}
	assert.Equal(t, hlog.LevelError, h.MinLevel())
	assert.Zero(t, r.Interval())
	<-r.Done()
}

func TestRun_ContextCancel(t *testing.T) {
	_, r, _, _, _ := setup(t, infoDoc)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run ignored cancellation")
	}
}

func TestRun_WatchWakesEarly(t *testing.T) {
	src := source.NewMemory(config.FormatYAML, []byte(infoDoc))
	diag, _ := diagnostics()
	h, r := Setup(context.Background(), src, newTestCreator().Creator, WithHandleOptions(diag), WithWatch())
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	src.Set([]byte(debugDoc))
	require.Eventually(t, func() bool { return h.MinLevel() == hlog.LevelDebug }, 5*time.Second, 5*time.Millisecond)
}

func TestInitWithSource_InstallsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	diag, _ := diagnostics()

	src := source.NewMemory(config.FormatYAML, []byte(infoDoc))
	h, r, err := InitWithSource(ctx, src, newTestCreator().Creator, WithHandleOptions(diag))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Same(t, h, hlog.Installed())

	_, _, err = InitWithSource(ctx, src, newTestCreator().Creator, WithHandleOptions(diag))
	assert.ErrorIs(t, err, hlog.ErrAlreadyInstalled)
	assert.Same(t, h, hlog.Installed())
}

func TestInitFile_RejectsUnknownExtension(t *testing.T) {
	_, _, err := InitFile(context.Background(), filepath.Join(t.TempDir(), "logging.ini"), nil)
	require.Error(t, err)
}
