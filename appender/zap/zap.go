// Package zapappender forwards hlog records to a go.uber.org/zap logger.
package zapappender

import (
	"errors"
	"io"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/appender/file"
)

// Appender bridges hlog to zap.
//
//   - Uses Logger.Check(level, msg) so disabled backend levels cost nothing.
//   - Writes the record's timestamp and logger name into the zap entry, so the
//     encoder's TimeKey/NameKey carry hlog's authoritative values.
//   - Maps LevelFatal to Error to avoid os.Exit in library code.
type Appender struct {
	l      *zap.Logger
	sink   *trackingSink // nil when wrapping a caller-supplied logger
	mu     sync.Mutex
	closer io.Closer
}

// New wraps an existing zap logger. Write failures are reported by zap on the
// logger's ErrorOutput and are not returned from Append.
func New(l *zap.Logger) *Appender {
	if l == nil {
		l = zap.NewNop()
	}
	return &Appender{l: l}
}

// Config is a code-first configuration for a zap core built by Build.
type Config struct {
	Writer        io.Writer // default: os.Stdout
	Console       bool      // zapcore.NewConsoleEncoder instead of JSON
	EncoderConfig zapcore.EncoderConfig
}

// DefaultEncoderConfig is used by Build when Config.EncoderConfig is zero.
func DefaultEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// Build creates a zap logger over cfg.Writer and wraps it. Unlike New, write
// failures are returned from Append, and a closable writer (a rotated file)
// is closed with the appender.
func Build(cfg Config) *Appender {
	w := cfg.Writer
	var closer io.Closer
	if w == nil {
		w, _ = file.Target("stdout", file.Rotation{})
	} else if c, ok := w.(io.Closer); ok && !file.IsStream(w) {
		closer = c
	}

	encCfg := cfg.EncoderConfig
	if encCfg.MessageKey == "" {
		encCfg = DefaultEncoderConfig()
	}
	var enc zapcore.Encoder
	if cfg.Console {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	sink := &trackingSink{ws: zapcore.AddSync(w)}
	// zap has no trace; debug is the most verbose backend level and hlog
	// already filtered the record.
	core := zapcore.NewCore(enc, sink, zapcore.DebugLevel)
	return &Appender{l: zap.New(core), sink: sink, closer: closer}
}

// Append implements hlog.Appender.
func (a *Appender) Append(r *hlog.Record) error {
	ce := a.l.Check(toZapLevel(r.Level), r.Message)
	if ce == nil {
		return nil
	}
	ce.Time = r.At
	ce.LoggerName = r.Logger

	zfs := make([]zap.Field, 0, len(r.Fields))
	for i := range r.Fields {
		zfs = append(zfs, toZapField(&r.Fields[i]))
	}

	if a.sink == nil {
		ce.Write(zfs...)
		return nil
	}
	// Serialise so the captured error belongs to this entry.
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink.err = nil
	ce.Write(zfs...)
	return a.sink.err
}

// Close flushes the zap core and closes an owned writer.
func (a *Appender) Close() error {
	err := a.l.Sync()
	if ignorableSyncError(err) {
		err = nil
	}
	if a.closer != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		err = errors.Join(err, a.closer.Close())
	}
	return err
}

// Logger exposes the underlying zap logger.
func (a *Appender) Logger() *zap.Logger { return a.l }

// Syncing stdout/stderr fails with EINVAL or ENOTTY on most platforms.
func ignorableSyncError(err error) bool {
	return err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}

type trackingSink struct {
	ws  zapcore.WriteSyncer
	err error
}

func (s *trackingSink) Write(p []byte) (int, error) {
	n, err := s.ws.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

func (s *trackingSink) Sync() error { return s.ws.Sync() }

func toZapLevel(l hlog.Level) zapcore.Level {
	switch {
	case l <= hlog.LevelDebug:
		return zapcore.DebugLevel
	case l <= hlog.LevelInfo:
		return zapcore.InfoLevel
	case l <= hlog.LevelWarn:
		return zapcore.WarnLevel
	default:
		// Avoid Fatal/DPanic to prevent exits in library code.
		return zapcore.ErrorLevel
	}
}

func toZapField(f *hlog.Field) zap.Field {
	switch f.Kind {
	case hlog.KindString:
		return zap.String(f.K, f.Str)
	case hlog.KindInt64:
		return zap.Int64(f.K, f.Int64)
	case hlog.KindUint64:
		return zap.Uint64(f.K, f.Uint64)
	case hlog.KindFloat64:
		return zap.Float64(f.K, f.Float64)
	case hlog.KindBool:
		return zap.Bool(f.K, f.Bool)
	case hlog.KindDuration:
		return zap.Duration(f.K, f.Dur)
	case hlog.KindTime:
		return zap.Time(f.K, f.Time)
	case hlog.KindError:
		if f.Err == nil {
			return zap.Skip()
		}
		return zap.NamedError(f.K, f.Err)
	case hlog.KindBytes:
		return zap.ByteString(f.K, f.Bytes)
	case hlog.KindAny:
		return zap.Any(f.K, f.Any)
	default:
		return zap.Skip()
	}
}
