package config

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/pcmplay/internal/conf"
)

// Command creates the config command
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after defaults, config file, environment and flags are applied. Secrets are masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return conf.DumpYAML(cmd.OutOrStdout(), settings)
		},
	}
}
