// Package zerologappender forwards hlog records to an rs/zerolog logger.
package zerologappender

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/appender/file"
)

// LoggerFieldName is the key carrying the hlog logger name.
const LoggerFieldName = "logger"

// Appender bridges hlog to zerolog.
//
//   - Fast pre-check against GetLevel() so a disabled backend level never
//     allocates a zerolog.Event.
//   - The record time is written as RFC3339Nano under
//     zerolog.TimestampFieldName without touching zerolog's global format.
//   - Fatal is treated as error level to avoid os.Exit side-effects.
type Appender struct {
	l      zerolog.Logger
	w      *errWriter // nil when wrapping a caller-supplied logger
	mu     sync.Mutex
	closer io.Closer
}

// New wraps an existing logger; write failures go to zerolog.ErrorHandler.
func New(l zerolog.Logger) *Appender {
	return &Appender{l: l}
}

// Config is a code-first configuration for Build.
type Config struct {
	Writer  io.Writer // default: os.Stdout
	Console bool      // human readable zerolog.ConsoleWriter, no colors
}

// Build creates a zerolog logger over cfg.Writer. Write failures are returned
// from Append and a closable writer is closed with the appender.
func Build(cfg Config) *Appender {
	w := cfg.Writer
	var closer io.Closer
	if w == nil {
		w, _ = file.Target("stdout", file.Rotation{})
	} else if c, ok := w.(io.Closer); ok && !file.IsStream(w) {
		closer = c
	}
	ew := &errWriter{w: w}
	var out io.Writer = ew
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: ew, NoColor: true, TimeFormat: time.RFC3339Nano}
	}
	return &Appender{l: zerolog.New(out).Level(zerolog.TraceLevel), w: ew, closer: closer}
}

// Append implements hlog.Appender.
func (a *Appender) Append(r *hlog.Record) error {
	zlvl := mapLevel(r.Level)
	if zlvl < a.l.GetLevel() || zlvl < zerolog.GlobalLevel() {
		return nil
	}

	if a.w != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.w.err = nil
	}

	ev := a.l.WithLevel(zlvl)
	ev.Str(zerolog.TimestampFieldName, r.At.UTC().Format(time.RFC3339Nano))
	if r.Logger != "" {
		ev.Str(LoggerFieldName, r.Logger)
	}
	for i := range r.Fields {
		appendEventField(ev, &r.Fields[i])
	}
	ev.Msg(r.Message)

	if a.w != nil {
		return a.w.err
	}
	return nil
}

// Close closes an owned writer.
func (a *Appender) Close() error {
	if a.closer == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.closer.Close()
	a.closer = nil
	return err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.err = errors.Join(e.err, err)
	}
	return n, err
}

func mapLevel(l hlog.Level) zerolog.Level {
	switch {
	case l <= hlog.LevelTrace:
		return zerolog.TraceLevel
	case l <= hlog.LevelDebug:
		return zerolog.DebugLevel
	case l <= hlog.LevelInfo:
		return zerolog.InfoLevel
	case l <= hlog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func appendEventField(e *zerolog.Event, f *hlog.Field) {
	switch f.Kind {
	case hlog.KindString:
		e.Str(f.K, f.Str)
	case hlog.KindInt64:
		e.Int64(f.K, f.Int64)
	case hlog.KindUint64:
		e.Uint64(f.K, f.Uint64)
	case hlog.KindFloat64:
		e.Float64(f.K, f.Float64)
	case hlog.KindBool:
		e.Bool(f.K, f.Bool)
	case hlog.KindDuration:
		e.Dur(f.K, f.Dur)
	case hlog.KindTime:
		e.Time(f.K, f.Time)
	case hlog.KindError:
		if f.Err != nil {
			e.AnErr(f.K, f.Err)
		}
	case hlog.KindBytes:
		e.Bytes(f.K, f.Bytes)
	default:
		e.Interface(f.K, f.Value())
	}
}
