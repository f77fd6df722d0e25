// Package file provides the rolling file appender and the target resolution
// shared by the backend appenders (stdout, stderr or a rotated file path).
package file

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/trickstertwo/hlog/appender/writer"
)

// Rotation configures lumberjack. Zero values use lumberjack's defaults
// (100 MB, keep everything, never expire).
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	LocalTime  bool
}

// Options configures a file appender.
type Options struct {
	Path     string
	Rotation Rotation
	Writer   writer.Options
}

var ErrNoPath = errors.New("file appender: path is required")

// NewWriter returns a lumberjack logger for path, creating the parent
// directory. The file itself is opened lazily on first write.
func NewWriter(path string, r Rotation) (*lumberjack.Logger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
		LocalTime:  r.LocalTime,
	}, nil
}

// New builds a text or JSON appender writing to a rotated file.
func New(o Options) (*writer.Appender, error) {
	lj, err := NewWriter(o.Path, o.Rotation)
	if err != nil {
		return nil, err
	}
	return writer.New(lj, o.Writer), nil
}

// Target resolves "stdout", "stderr" (or "") to the process streams and
// anything else to a rotated file at that path. Callers own the returned
// writer; the process streams must not be closed.
func Target(target string, r Rotation) (io.Writer, error) {
	switch strings.ToLower(target) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	lj, err := NewWriter(target, r)
	if err != nil {
		return nil, err
	}
	return lj, nil
}

// IsStream reports whether w is one of the process standard streams.
func IsStream(w io.Writer) bool {
	return w == os.Stdout || w == os.Stderr
}
