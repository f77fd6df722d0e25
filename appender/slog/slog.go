// Package slogappender forwards hlog records to a log/slog Handler.
package slogappender

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/appender/file"
)

// LoggerKey is the attribute carrying the hlog logger name.
const LoggerKey = "logger"

// Appender adapts hlog to a slog.Handler. Levels share slog's numeric scale,
// so the mapping is the identity; Trace and Fatal get their own names.
type Appender struct {
	h      slog.Handler
	closer io.Closer
	once   sync.Once
}

// New wraps a handler. A nil handler uses slog.Default().Handler().
func New(h slog.Handler) *Appender {
	if h == nil {
		h = slog.Default().Handler()
	}
	return &Appender{h: h}
}

// Config is a code-first configuration for Build.
type Config struct {
	Writer io.Writer // default: os.Stdout
	JSON   bool      // slog.NewJSONHandler instead of slog.NewTextHandler
}

// Build creates a text or JSON handler over cfg.Writer accepting every level.
func Build(cfg Config) *Appender {
	w := cfg.Writer
	var closer io.Closer
	if w == nil {
		w, _ = file.Target("stdout", file.Rotation{})
	} else if c, ok := w.(io.Closer); ok && !file.IsStream(w) {
		closer = c
	}
	opts := &slog.HandlerOptions{Level: slog.Level(hlog.LevelTrace), ReplaceAttr: levelNames}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &Appender{h: h, closer: closer}
}

// Append implements hlog.Appender. The handler's error is returned as-is.
func (a *Appender) Append(r *hlog.Record) error {
	ctx := context.Background()
	lvl := slog.Level(r.Level)
	if !a.h.Enabled(ctx, lvl) {
		return nil
	}
	rec := slog.NewRecord(r.At, lvl, r.Message, 0)
	if r.Logger != "" {
		rec.AddAttrs(slog.String(LoggerKey, r.Logger))
	}
	for i := range r.Fields {
		rec.AddAttrs(toAttr(&r.Fields[i]))
	}
	return a.h.Handle(ctx, rec)
}

// Close closes an owned writer.
func (a *Appender) Close() error {
	var err error
	a.once.Do(func() {
		if a.closer != nil {
			err = a.closer.Close()
		}
	})
	return err
}

func levelNames(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 || attr.Key != slog.LevelKey {
		return attr
	}
	if l, ok := attr.Value.Any().(slog.Level); ok {
		switch hlog.Level(l) {
		case hlog.LevelTrace, hlog.LevelFatal:
			return slog.String(slog.LevelKey, hlog.Level(l).String())
		}
	}
	return attr
}

func toAttr(f *hlog.Field) slog.Attr {
	switch f.Kind {
	case hlog.KindString:
		return slog.String(f.K, f.Str)
	case hlog.KindInt64:
		return slog.Int64(f.K, f.Int64)
	case hlog.KindUint64:
		return slog.Uint64(f.K, f.Uint64)
	case hlog.KindFloat64:
		return slog.Float64(f.K, f.Float64)
	case hlog.KindBool:
		return slog.Bool(f.K, f.Bool)
	case hlog.KindDuration:
		return slog.Duration(f.K, f.Dur)
	case hlog.KindTime:
		return slog.Time(f.K, f.Time)
	default:
		return slog.Any(f.K, f.Value())
	}
}
