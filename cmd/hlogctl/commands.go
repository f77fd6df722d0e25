package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/config"
)

func newCheckCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a configuration file and print the logger tree",
		Long: `Validate a configuration file and print every node of the resulting
logger tree, including implied intermediate nodes.

Examples:
  # Validate kinds and references only
  hlogctl check log.yaml

  # Also construct the appenders (opens files)
  hlogctl check --build log.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := load(f, args[0])
			if err != nil {
				return err
			}
			defer loaded.State.Close()
			printTree(cmd.OutOrStdout(), loaded)
			return nil
		},
	}
}

func newResolveCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <file> <logger> [level]",
		Short: "Show the effective configuration of a logger name",
		Long: `Resolve a dotted logger name by longest-prefix match and print its
effective level and appenders. With a level, also print whether an event at
that level would be emitted.

Examples:
  hlogctl resolve log.yaml app.db.pool
  hlogctl resolve log.yaml app.db.pool debug`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var lvl hlog.Level
			if len(args) == 3 {
				var err error
				if lvl, err = hlog.ParseLevel(args[2]); err != nil {
					return err
				}
			}
			loaded, err := load(f, args[0])
			if err != nil {
				return err
			}
			defer loaded.State.Close()

			out := cmd.OutOrStdout()
			name := args[1]
			level, apps := loaded.State.Resolve(name)
			fmt.Fprintf(out, "logger:    %s\n", displayName(name))
			fmt.Fprintf(out, "level:     %s\n", level)
			fmt.Fprintf(out, "appenders: %s\n", strings.Join(apps, ", "))
			if len(args) == 3 {
				fmt.Fprintf(out, "enabled:   %t (%s)\n", loaded.State.Enabled(lvl, name), lvl)
			}
			return nil
		},
	}
}

func load(f *rootFlags, path string) (*config.Loaded, error) {
	format := config.Format(strings.ToLower(f.format))
	if format == "" {
		var err error
		if format, err = config.FormatFromPath(path); err != nil {
			return nil, err
		}
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hlog.ErrSourceRead, err)
	}
	var opts []config.ParseOption
	if f.env {
		opts = append(opts, config.WithEnv(""))
	}
	creator := config.DefaultCreator()
	if !f.build {
		creator = dryRun(creator)
	}
	return config.Load(doc, format, creator, opts...)
}

// dryRun accepts the kinds c knows without constructing anything.
func dryRun(c *config.Creator) *config.Creator {
	dry := config.NewCreator()
	for _, kind := range c.Kinds() {
		dry.Register(kind, func(string, *koanf.Koanf) (hlog.Appender, error) {
			return hlog.AppenderFunc(func(*hlog.Record) error { return nil }), nil
		})
	}
	return dry
}

func printTree(out io.Writer, l *config.Loaded) {
	if l.RefreshRate > 0 {
		fmt.Fprintf(out, "refresh rate: %s\n", l.RefreshRate)
	} else {
		fmt.Fprintln(out, "refresh rate: none (no reload)")
	}
	fmt.Fprintf(out, "min level:    %s\n\n", l.State.MinLevel())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOGGER\tLEVEL\tAPPENDERS")
	l.State.Walk(func(name string, level hlog.Level, apps []string) {
		depth := 0
		if name != "" {
			depth = strings.Count(name, hlog.Separator) + 1
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\n", strings.Repeat("  ", depth), displayName(name), level, strings.Join(apps, ","))
	})
	_ = tw.Flush()
}

func displayName(name string) string {
	if name == "" {
		return "(root)"
	}
	return name
}
