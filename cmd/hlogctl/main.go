// Package main implements hlogctl, a CLI to validate hlog configuration
// files and inspect how logger names resolve against them.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version information
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	format string
	env    bool
	build  bool
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:   "hlogctl",
		Short: "Inspect hlog configuration files",
		Long: `hlogctl validates hierarchical logging configuration files (YAML or TOML)
and shows the effective level and appenders of any logger name.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&f.format, "format", "", "document format (yaml|toml); default from file extension")
	cmd.PersistentFlags().BoolVar(&f.env, "env", false, "apply HLOG_ environment overrides")
	cmd.PersistentFlags().BoolVar(&f.build, "build", false, "construct real appenders instead of validating kinds only")

	cmd.AddCommand(newCheckCmd(&f))
	cmd.AddCommand(newResolveCmd(&f))
	return cmd
}
