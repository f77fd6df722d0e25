package hlog

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// RootConfig configures the root logger.
type RootConfig struct {
	Level     Level
	Appenders []string
}

// LoggerConfig is one named-logger rule. Additive loggers also write to the
// appenders of their nearest configured ancestor.
type LoggerConfig struct {
	Name      string
	Level     Level
	Appenders []string
	Additive  bool
}

// Config is the typed configuration a State is built from. Loggers may be
// listed in any order; parents are applied before their descendants.
type Config struct {
	Appenders []NamedAppender
	Root      RootConfig
	Loggers   []LoggerConfig
}

// OffConfig disables every logger and has no appenders.
func OffConfig() Config {
	return Config{Root: RootConfig{Level: LevelOff}}
}

// State is an immutable, fully resolved configuration: the logger tree plus
// the appender table its nodes index into. A State is published by exactly one
// Handle and is never modified afterwards; reconfiguration builds a new one.
type State struct {
	root      *node
	appenders []NamedAppender
	minLevel  Level

	// Lifetime tracking for the dispatches that captured this State.
	refs      atomic.Int64
	retired   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewState validates cfg and builds its logger tree.
func NewState(cfg Config) (*State, error) {
	index := make(map[string]int, len(cfg.Appenders))
	for i, a := range cfg.Appenders {
		switch {
		case a.Name == "":
			return nil, fmt.Errorf("%w: appender #%d has no name", ErrInvalidConfig, i)
		case a.Appender == nil:
			return nil, fmt.Errorf("%w: appender %q is nil", ErrInvalidConfig, a.Name)
		}
		if _, dup := index[a.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate appender %q", ErrInvalidConfig, a.Name)
		}
		index[a.Name] = i
	}
	lookup := func(owner string, names []string) ([]int, error) {
		out := make([]int, 0, len(names))
		for _, name := range names {
			idx, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s references unknown appender %q", ErrInvalidConfig, owner, name)
			}
			out = append(out, idx)
		}
		return out, nil
	}

	rootIdx, err := lookup("root", cfg.Root.Appenders)
	if err != nil {
		return nil, err
	}
	root := &node{level: cfg.Root.Level, appenders: appendUnique(nil, rootIdx)}

	type rule struct {
		cfg   LoggerConfig
		idx   []int
		depth int
	}
	rules := make([]rule, 0, len(cfg.Loggers))
	seen := make(map[string]struct{}, len(cfg.Loggers))
	for _, l := range cfg.Loggers {
		if err := validateName(l.Name); err != nil {
			return nil, err
		}
		if _, dup := seen[l.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate logger %q", ErrInvalidConfig, l.Name)
		}
		seen[l.Name] = struct{}{}
		idx, err := lookup("logger "+l.Name, l.Appenders)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule{cfg: l, idx: idx, depth: strings.Count(l.Name, Separator)})
	}
	// Ancestors first, so every node inherits from its configured parent
	// whatever order the rules were listed in.
	slices.SortStableFunc(rules, func(a, b rule) int { return a.depth - b.depth })
	for _, r := range rules {
		root.insert(r.cfg.Name, r.idx, r.cfg.Additive, r.cfg.Level)
	}

	return &State{
		root:      root,
		appenders: slices.Clone(cfg.Appenders),
		minLevel:  root.minLevel(),
	}, nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: logger without a name", ErrInvalidConfig)
	}
	for _, seg := range strings.Split(name, Separator) {
		if seg == "" {
			return fmt.Errorf("%w: logger %q has an empty segment", ErrInvalidConfig, name)
		}
	}
	return nil
}

// MinLevel is the least restrictive threshold of any logger in the State.
func (s *State) MinLevel() Level { return s.minLevel }

// Enabled reports whether an event at level from logger name passes.
func (s *State) Enabled(level Level, name string) bool {
	return s.root.resolve(name).level.Enables(level)
}

// Resolve returns the effective threshold and appender names for name.
func (s *State) Resolve(name string) (Level, []string) {
	n := s.root.resolve(name)
	return n.level, s.names(n.appenders)
}

// Walk visits every node of the tree, configured or implied, parents first.
func (s *State) Walk(fn func(name string, level Level, appenders []string)) {
	s.root.walk("", func(name string, n *node) {
		fn(name, n.level, s.names(n.appenders))
	})
}

func (s *State) names(idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = s.appenders[j].Name
	}
	return out
}

// Close closes the State's io.Closer appenders. Handles do this themselves for
// States they retire; call it directly only for States never published.
func (s *State) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		for _, a := range s.appenders {
			c, ok := a.Appender.(io.Closer)
			if !ok {
				continue
			}
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close appender %q: %w", a.Name, err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
