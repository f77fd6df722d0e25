// Package config turns a YAML or TOML document into a validated hlog.State.
//
// Parsing goes through koanf (rawbytes provider plus the yaml or go-toml
// parser), optionally overlaid with HLOG_ environment variables. Appenders
// are created by kind through a Creator.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/trickstertwo/hlog"
)

// Loaded is the outcome of a successful Load.
type Loaded struct {
	// RefreshRate is how often the source should be polled; zero disables
	// reloading.
	RefreshRate time.Duration
	Config      hlog.Config
	// State is built from Config and ready to publish. Its appenders are
	// owned by it.
	State *hlog.State
}

// Load parses doc, creates its appenders and builds the State. On any
// failure every appender already created is closed again.
func Load(doc []byte, format Format, creator *Creator, opts ...ParseOption) (*Loaded, error) {
	d, err := Parse(doc, format, opts...)
	if err != nil {
		return nil, err
	}
	return Build(d, creator)
}

// Build is Load for an already parsed document.
func Build(d *Document, creator *Creator) (*Loaded, error) {
	if creator == nil {
		creator = DefaultCreator()
	}
	refresh, err := d.Refresh()
	if err != nil {
		return nil, err
	}
	root, loggers, err := d.Rules()
	if err != nil {
		return nil, err
	}

	cfg := hlog.Config{Root: root, Loggers: loggers}
	for _, ad := range d.Appenders {
		a, err := creator.Build(ad)
		if err != nil {
			return nil, errors.Join(err, CloseAppenders(cfg.Appenders))
		}
		cfg.Appenders = append(cfg.Appenders, hlog.NamedAppender{Name: ad.Name, Appender: a})
	}

	st, err := hlog.NewState(cfg)
	if err != nil {
		return nil, errors.Join(err, CloseAppenders(cfg.Appenders))
	}
	return &Loaded{RefreshRate: refresh, Config: cfg, State: st}, nil
}

// CloseAppenders closes every io.Closer in as.
func CloseAppenders(as []hlog.NamedAppender) error {
	var errs []error
	for _, a := range as {
		if c, ok := a.Appender.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close appender %q: %w", a.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
