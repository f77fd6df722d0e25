package config

import (
	"fmt"
	"io"

	"github.com/knadh/koanf/v2"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/appender/file"
	slogappender "github.com/trickstertwo/hlog/appender/slog"
	"github.com/trickstertwo/hlog/appender/writer"
	zapappender "github.com/trickstertwo/hlog/appender/zap"
	zerologappender "github.com/trickstertwo/hlog/appender/zerolog"
)

// Built-in appender kinds.
const (
	KindConsole = "console"
	KindFile    = "file"
	KindZap     = "zap"
	KindZerolog = "zerolog"
	KindSlog    = "slog"
)

type builtins struct {
	metrics writer.MetricsCollector
}

// console: target (stdout|stderr), format (text|json), time_format.
func (b builtins) console(_ string, k *koanf.Koanf) (hlog.Appender, error) {
	opts, err := b.writerOptions(k)
	if err != nil {
		return nil, err
	}
	return writer.NewConsole(k.String("target"), opts)
}

// file: path, format, time_format and the rotation keys.
func (b builtins) file(_ string, k *koanf.Koanf) (hlog.Appender, error) {
	opts, err := b.writerOptions(k)
	if err != nil {
		return nil, err
	}
	return file.New(file.Options{Path: k.String("path"), Rotation: rotation(k), Writer: opts})
}

// zap: target (stdout|stderr|path), encoding (json|console), rotation keys.
func zapFactory(_ string, k *koanf.Koanf) (hlog.Appender, error) {
	w, err := target(k)
	if err != nil {
		return nil, err
	}
	var console bool
	switch enc := k.String("encoding"); enc {
	case "", "json":
	case "console":
		console = true
	default:
		return nil, fmt.Errorf("unknown zap encoding %q", enc)
	}
	return zapappender.Build(zapappender.Config{Writer: w, Console: console}), nil
}

// zerolog: target, console (bool), rotation keys.
func zerologFactory(_ string, k *koanf.Koanf) (hlog.Appender, error) {
	w, err := target(k)
	if err != nil {
		return nil, err
	}
	return zerologappender.Build(zerologappender.Config{Writer: w, Console: k.Bool("console")}), nil
}

// slog: target, format (text|json), rotation keys.
func slogFactory(_ string, k *koanf.Koanf) (hlog.Appender, error) {
	f, err := writer.ParseFormat(k.String("format"))
	if err != nil {
		return nil, err
	}
	w, err := target(k)
	if err != nil {
		return nil, err
	}
	return slogappender.Build(slogappender.Config{Writer: w, JSON: f == writer.FormatJSON}), nil
}

func (b builtins) writerOptions(k *koanf.Koanf) (writer.Options, error) {
	f, err := writer.ParseFormat(k.String("format"))
	if err != nil {
		return writer.Options{}, err
	}
	return writer.Options{Format: f, TimeFormat: k.String("time_format"), Metrics: b.metrics}, nil
}

// target accepts "target" or, for symmetry with the file kind, "path".
func target(k *koanf.Koanf) (io.Writer, error) {
	t := k.String("target")
	if t == "" {
		t = k.String("path")
	}
	return file.Target(t, rotation(k))
}

func rotation(k *koanf.Koanf) file.Rotation {
	return file.Rotation{
		MaxSizeMB:  k.Int("max_size_mb"),
		MaxBackups: k.Int("max_backups"),
		MaxAgeDays: k.Int("max_age_days"),
		Compress:   k.Bool("compress"),
		LocalTime:  k.Bool("local_time"),
	}
}
