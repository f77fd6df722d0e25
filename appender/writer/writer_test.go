package writer

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/hlog"
)

var at = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func record(fields ...hlog.Field) *hlog.Record {
	return &hlog.Record{At: at, Level: hlog.LevelWarn, Logger: "app.db", Message: "slow query", Fields: fields}
}

func TestTextLine(t *testing.T) {
	var buf bytes.Buffer
	a := New(&buf, Options{})

	require.NoError(t, a.Append(record(
		hlog.Str("table", "users"),
		hlog.Int("rows", 3),
		hlog.Dur("took", 1500*time.Millisecond),
		hlog.Bool("cached", false),
		hlog.Bytes("blob", []byte("abc")),
		hlog.Any("weird", struct{}{}),
	)))

	assert.Equal(t,
		`ts=2024-01-02T03:04:05Z level=WARN logger=app.db msg="slow query" table=users rows=3 took=1.5s cached=false blob=len:3 weird=unknown`+"\n",
		buf.String())
}

func TestTextRootLoggerOmitsName(t *testing.T) {
	var buf bytes.Buffer
	a := New(&buf, Options{})
	r := record()
	r.Logger = ""
	require.NoError(t, a.Append(r))
	assert.NotContains(t, buf.String(), "logger=")
}

func TestJSONLineIsValid(t *testing.T) {
	var buf bytes.Buffer
	a := New(&buf, Options{Format: FormatJSON})

	require.NoError(t, a.Append(record(
		hlog.Str("q", "select \"x\"\n"),
		hlog.Float64("nan", math.NaN()),
		hlog.Err(errors.New("boom")),
		hlog.Bytes("raw", []byte{1, 2, 3}),
		hlog.Any("m", map[string]int{"a": 1}),
		hlog.Any("n", int16(-7)),
	)))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "WARN", got["level"])
	assert.Equal(t, "app.db", got["logger"])
	assert.Equal(t, "slow query", got["msg"])
	assert.Equal(t, "select \"x\"\n", got["q"])
	assert.Nil(t, got["nan"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, "AQID", got["raw"])
	assert.Equal(t, map[string]any{"a": float64(1)}, got["m"])
	assert.Equal(t, float64(-7), got["n"])
	assert.True(t, strings.HasSuffix(buf.String(), "}\n"))
}

func TestLevelWriters(t *testing.T) {
	var all, errs bytes.Buffer
	a := New(&all, Options{LevelWriters: map[hlog.Level]io.Writer{hlog.LevelError: &errs}})

	require.NoError(t, a.Append(&hlog.Record{At: at, Level: hlog.LevelInfo, Message: "a"}))
	require.NoError(t, a.Append(&hlog.Record{At: at, Level: hlog.LevelError, Message: "b"}))

	assert.Contains(t, all.String(), "msg=a")
	assert.NotContains(t, all.String(), "msg=b")
	assert.Contains(t, errs.String(), "msg=b")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteErrorReturned(t *testing.T) {
	a := New(failingWriter{}, Options{})
	err := a.Append(record())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

type closingBuffer struct {
	bytes.Buffer
	closed int
}

func (c *closingBuffer) Close() error { c.closed++; return nil }

func TestCloseOnce(t *testing.T) {
	w := &closingBuffer{}
	a := New(w, Options{})
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, 1, w.closed)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewConsoleRejectsUnknownTarget(t *testing.T) {
	_, err := NewConsole("printer", Options{})
	assert.Error(t, err)
}
