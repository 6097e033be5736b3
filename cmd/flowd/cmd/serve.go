package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/flow/config"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *globalOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the application and serve until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, flush, err := opts.newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer flush()

			cfg, err := opts.loadConfig(environ())
			if err != nil {
				return err
			}

			sc, err := NewContainer(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if watch && opts.configPath != "" {
				watcher, err := config.NewWatcher(sc.Config, opts.configPath,
					config.WithOnChange(func(c *config.Config) {
						if _, err := c.ApplyEnv(opts.envPrefix, environ()); err != nil {
							logger.Warn("Environment overrides not reapplied", "error", err)
						}
						logger.Info("Configuration reloaded", "path", opts.configPath)
					}),
					config.WithOnError(func(err error) {
						logger.Error("Configuration reload failed", "path", opts.configPath, "error", err)
					}),
				)
				if err != nil {
					return err
				}
				defer func() { _ = watcher.Close() }()
				go func() { _ = watcher.Run(ctx) }()
			}

			return sc.App.Run(ctx)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the configuration file when it changes")
	return cmd
}
