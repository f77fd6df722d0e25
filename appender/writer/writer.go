package writer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/trickstertwo/hlog"
)

// Format defines the output format for log entries
type Format uint8

const (
	FormatText Format = iota + 1
	FormatJSON
)

// ParseFormat maps "text" and "json" (case-insensitive) to a Format; the empty
// string selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown format %q", s)
	}
}

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// Options configures the appender.
type Options struct {
	// Format specifies the output format (Text or JSON)
	Format Format

	// TimeFormat specifies custom time format (empty = RFC3339Nano)
	TimeFormat string

	// LevelWriters optionally routes given levels to another writer.
	LevelWriters map[hlog.Level]io.Writer

	// Metrics observes every write; optional.
	Metrics MetricsCollector
}

// MetricsCollector receives write metrics. Implementations must be concurrency-safe.
type MetricsCollector interface {
	Written(level hlog.Level, size int, err error)
}

// Appender encodes records into a pooled buffer and writes each one with a
// single Write call.
type Appender struct {
	w       io.Writer
	levels  map[hlog.Level]io.Writer
	metrics MetricsCollector
	mu      sync.Mutex
	enc     encoder
	closer  io.Closer
	closeMu sync.Once
}

// New creates an Appender writing to w. If w is an io.Closer other than
// os.Stdout/os.Stderr it is closed by Close.
func New(w io.Writer, opts Options) *Appender {
	if w == nil {
		w = os.Stdout
	}
	if opts.Format == 0 {
		opts.Format = FormatText
	}
	a := &Appender{w: w, levels: opts.LevelWriters, metrics: opts.Metrics}
	if opts.Format == FormatJSON {
		a.enc = jsonEncoder{timeFormat: opts.TimeFormat}
	} else {
		a.enc = textEncoder{timeFormat: opts.TimeFormat}
	}
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		a.closer = c
	}
	return a
}

// NewConsole returns a text or JSON appender on stdout ("stdout" or "") or
// stderr ("stderr").
func NewConsole(target string, opts Options) (*Appender, error) {
	switch strings.ToLower(target) {
	case "", "stdout":
		return New(os.Stdout, opts), nil
	case "stderr":
		return New(os.Stderr, opts), nil
	default:
		return nil, fmt.Errorf("console target must be stdout or stderr, got %q", target)
	}
}

func (a *Appender) writer(level hlog.Level) io.Writer {
	if w, ok := a.levels[level]; ok {
		return w
	}
	return a.w
}

// Append implements hlog.Appender.
func (a *Appender) Append(r *hlog.Record) error {
	buf := getBuf()
	defer putBuf(buf)

	a.enc.encode(buf, r)
	buf.writeByte('\n')

	a.mu.Lock()
	n, err := a.writer(r.Level).Write(buf.b)
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.Written(r.Level, n, err)
	}
	if err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}
	if n < len(buf.b) {
		return io.ErrShortWrite
	}
	return nil
}

// Close closes the underlying writer when it owns one.
func (a *Appender) Close() error {
	var err error
	a.closeMu.Do(func() {
		if a.closer == nil {
			return
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		err = a.closer.Close()
		if errors.Is(err, os.ErrClosed) {
			err = nil
		}
	})
	return err
}
