package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dtnkit/bpa/internal/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (file + env + defaults)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(getConfigFile())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
