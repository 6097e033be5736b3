package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion returns the version line.
func PrintVersion() string {
	return fmt.Sprintf("flowd v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// NewRootCommand creates the root command for flowd
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "flowd",
		Short: "flowd - run a flow application",
		Long: `flowd runs a flow application container with an HTTP engine and an
optional cron scheduler, configured from a YAML, TOML or JSON file and
environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file (.yaml, .yml, .toml or .json)")
	flags.StringVar(&opts.envPrefix, "env-prefix", "FLOW", "prefix of environment variables overriding configuration")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text, json or zap")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	}
}
