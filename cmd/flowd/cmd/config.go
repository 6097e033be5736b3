package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command, which prints the effective
// configuration after the file and environment were applied.
func NewConfigCommand(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(environ())
			if err != nil {
				return err
			}

			var out []byte
			switch format {
			case "yaml":
				out, err = yaml.Marshal(cfg.GetAll())
			case "json":
				out, err = json.MarshalIndent(cfg.GetAll(), "", "  ")
				out = append(out, '\n')
			default:
				return fmt.Errorf("%w: %q", ErrUnknownOutput, format)
			}
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "output format: yaml or json")
	return cmd
}
