package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/trickstertwo/hlog"
)

// DefaultEnvPrefix is the environment prefix used by WithEnv("").
const DefaultEnvPrefix = "HLOG_"

// Document is a parsed, not yet validated configuration document.
//
//	refresh_rate: 30s
//	appenders:
//	  stdout: {kind: console, format: text}
//	root: {level: info, appenders: [stdout]}
//	loggers:
//	  - {name: app.db, level: debug, appenders: [stdout], additive: true}
type Document struct {
	RefreshRate string      `koanf:"refresh_rate"`
	Root        RootDoc     `koanf:"root"`
	Loggers     []LoggerDoc `koanf:"loggers"`

	// Appenders sorted by name.
	Appenders []AppenderDoc `koanf:"-"`
}

type RootDoc struct {
	Level     string   `koanf:"level"`
	Appenders []string `koanf:"appenders"`
}

type LoggerDoc struct {
	Name      string   `koanf:"name"`
	Level     string   `koanf:"level"`
	Appenders []string `koanf:"appenders"`
	Additive  *bool    `koanf:"additive"`
}

// AppenderDoc is one entry of the appenders table. Options holds every key of
// the entry, kind included, for the kind's Factory.
type AppenderDoc struct {
	Name    string
	Kind    string
	Options *koanf.Koanf
}

type parseOptions struct {
	envPrefix string
	useEnv    bool
}

// ParseOption customises Parse and Load.
type ParseOption func(*parseOptions)

// WithEnv overlays environment variables on the document. With prefix
// HLOG_, HLOG_ROOT__LEVEL=debug sets root.level and
// HLOG_APPENDERS__STDOUT__FORMAT=json sets appenders.stdout.format.
func WithEnv(prefix string) ParseOption {
	return func(o *parseOptions) {
		if prefix == "" {
			prefix = DefaultEnvPrefix
		}
		o.envPrefix = prefix
		o.useEnv = true
	}
}

// Parse decodes doc. Syntax errors wrap hlog.ErrParse.
func Parse(doc []byte, format Format, opts ...ParseOption) (*Document, error) {
	var po parseOptions
	for _, o := range opts {
		o(&po)
	}

	p, err := format.parser()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hlog.ErrParse, err)
	}
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(doc), p); err != nil {
		return nil, fmt.Errorf("%w: %v", hlog.ErrParse, err)
	}
	if po.useEnv {
		prefix := po.envPrefix
		if err := k.Load(env.Provider(prefix, ".", func(s string) string {
			// HLOG_ROOT__LEVEL -> root.level; single underscores stay (refresh_rate).
			return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, prefix)), "__", ".")
		}), nil); err != nil {
			return nil, fmt.Errorf("%w: environment: %v", hlog.ErrParse, err)
		}
	}

	var d Document
	if err := k.Unmarshal("", &d); err != nil {
		return nil, fmt.Errorf("%w: %v", hlog.ErrParse, err)
	}

	for _, name := range k.MapKeys("appenders") {
		sub := k.Cut("appenders." + name)
		kind := sub.String("kind")
		if kind == "" {
			return nil, fmt.Errorf("%w: appender %q has no kind", hlog.ErrInvalidConfig, name)
		}
		d.Appenders = append(d.Appenders, AppenderDoc{Name: name, Kind: kind, Options: sub})
	}
	return &d, nil
}

// Refresh parses refresh_rate. Zero means no reload loop.
func (d *Document) Refresh() (time.Duration, error) {
	s := strings.TrimSpace(d.RefreshRate)
	if s == "" {
		return 0, nil
	}
	r, err := time.ParseDuration(s)
	if err != nil {
		// bare integers are seconds
		secs, convErr := strconv.ParseInt(s, 10, 64)
		if convErr != nil {
			return 0, fmt.Errorf("%w: refresh_rate %q: %v", hlog.ErrInvalidConfig, d.RefreshRate, err)
		}
		r = time.Duration(secs) * time.Second
	}
	if r < 0 {
		return 0, fmt.Errorf("%w: refresh_rate %q is negative", hlog.ErrInvalidConfig, d.RefreshRate)
	}
	return r, nil
}

// Rules converts root and loggers into typed rules, in document order.
// Omitted root level means info and omitted additive means true; a logger
// must name its level.
func (d *Document) Rules() (hlog.RootConfig, []hlog.LoggerConfig, error) {
	root := hlog.RootConfig{Level: hlog.LevelInfo, Appenders: d.Root.Appenders}
	if d.Root.Level != "" {
		lvl, err := hlog.ParseLevel(d.Root.Level)
		if err != nil {
			return root, nil, fmt.Errorf("%w: root: %v", hlog.ErrInvalidConfig, err)
		}
		root.Level = lvl
	}

	loggers := make([]hlog.LoggerConfig, 0, len(d.Loggers))
	for i, l := range d.Loggers {
		if strings.TrimSpace(l.Name) == "" {
			return root, nil, fmt.Errorf("%w: logger #%d has no name", hlog.ErrInvalidConfig, i)
		}
		lvl, err := hlog.ParseLevel(l.Level)
		if err != nil {
			return root, nil, fmt.Errorf("%w: logger %q: %v", hlog.ErrInvalidConfig, l.Name, err)
		}
		lc := hlog.LoggerConfig{Name: l.Name, Level: lvl, Appenders: l.Appenders, Additive: true}
		if l.Additive != nil {
			lc.Additive = *l.Additive
		}
		loggers = append(loggers, lc)
	}
	return root, loggers, nil
}
