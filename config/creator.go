package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/knadh/koanf/v2"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/appender/writer"
)

// Factory builds the appender called name from its options. k holds the
// appender's own table, kind included.
type Factory func(name string, k *koanf.Koanf) (hlog.Appender, error)

// Creator maps appender kinds to factories. It is safe for concurrent use;
// the reload loop shares one Creator for its whole lifetime.
type Creator struct {
	mu    sync.RWMutex
	kinds map[string]Factory
}

// NewCreator returns a Creator with no kinds registered.
func NewCreator() *Creator {
	return &Creator{kinds: make(map[string]Factory)}
}

// CreatorOption configures the built-in kinds of DefaultCreator.
type CreatorOption func(*builtins)

// WithWriterMetrics attaches m to every console and file appender.
func WithWriterMetrics(m writer.MetricsCollector) CreatorOption {
	return func(b *builtins) { b.metrics = m }
}

// DefaultCreator knows console, file, zap, zerolog and slog.
func DefaultCreator(opts ...CreatorOption) *Creator {
	var b builtins
	for _, o := range opts {
		o(&b)
	}
	c := NewCreator()
	c.Register(KindConsole, b.console)
	c.Register(KindFile, b.file)
	c.Register(KindZap, zapFactory)
	c.Register(KindZerolog, zerologFactory)
	c.Register(KindSlog, slogFactory)
	return c
}

// Register adds or replaces the factory for kind.
func (c *Creator) Register(kind string, f Factory) {
	c.mu.Lock()
	c.kinds[kind] = f
	c.mu.Unlock()
}

// Kinds lists the registered kinds, sorted.
func (c *Creator) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.kinds))
	for k := range c.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build creates one appender. Failures wrap hlog.ErrAppenderBuild.
func (c *Creator) Build(d AppenderDoc) (hlog.Appender, error) {
	c.mu.RLock()
	f, ok := c.kinds[d.Kind]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: appender %q: unknown kind %q", hlog.ErrAppenderBuild, d.Name, d.Kind)
	}
	a, err := f(d.Name, d.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: appender %q (%s): %v", hlog.ErrAppenderBuild, d.Name, d.Kind, err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: appender %q (%s): factory returned nil", hlog.ErrAppenderBuild, d.Name, d.Kind)
	}
	return a, nil
}
