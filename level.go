package hlog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Level mirrors slog numeric semantics and extends with Trace (-8) and Fatal (12).
//
// As a threshold, a Level enables every event whose level is >= the threshold,
// so LevelTrace is the most verbose setting and LevelOff disables everything.
type Level int

const (
	LevelTrace Level = -8
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
	LevelFatal Level = 12

	// LevelOff is only meaningful as a threshold.
	LevelOff Level = math.MaxInt32
)

// Enables reports whether an event at level passes threshold l.
func (l Level) Enables(level Level) bool { return level >= l }

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelOff:
		return "OFF"
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel accepts the level names case-insensitively ("warning" and "none"
// are aliases for warn and off).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	case "off", "none":
		return LevelOff, nil
	}
	return LevelInfo, fmt.Errorf("hlog: unknown level %q", s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
