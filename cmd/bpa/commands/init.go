package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dtnkit/bpa/internal/cliprompt"
	"github.com/dtnkit/bpa/internal/config"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample configuration file",
	Long: `Create a sample bpa configuration file.

By default the file is written to $XDG_CONFIG_HOME/bpa/config.yaml, and the
local node identity and first CLA are left as placeholders for you to edit.
Pass --interactive to be walked through the node EID, admin API, and
metrics settings instead.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "prompt for node identity and CLA settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = DefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := &config.Config{
		Node: config.NodeConfig{EID: "dtn://node1/"},
		CLAs: []config.CLAConfig{{Name: "mtcp", ListenAddr: "0.0.0.0:4556"}},
	}
	config.ApplyDefaults(cfg)

	if initInteractive {
		if err := runInitWizard(cfg); err != nil {
			if err == cliprompt.ErrAborted {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			return err
		}
	}

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1. Edit the configuration file to customize your setup")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. Start the agent with: bpa start")
	fmt.Fprintf(cmd.OutOrStdout(), "  3. Or specify a custom config: bpa start --config %s\n", path)
	return nil
}

func runInitWizard(cfg *config.Config) error {
	eidStr, err := cliprompt.InputRequired("Local node EID (e.g. dtn://node1/ or ipn:1.0)")
	if err != nil {
		return err
	}
	cfg.Node.EID = eidStr

	claName, err := cliprompt.Select("CLA scheme for the first adapter", []string{"mtcp", "tcpclv3", "tcpclv4"})
	if err != nil {
		return err
	}
	listenAddr, err := cliprompt.Input("CLA listen address", "0.0.0.0:4556")
	if err != nil {
		return err
	}
	cfg.CLAs = []config.CLAConfig{{Name: claName, ListenAddr: listenAddr}}

	adminEnabled, err := cliprompt.Confirm("Enable the read-only admin API", true)
	if err != nil {
		return err
	}
	cfg.AdminAPI.Enabled = adminEnabled
	if adminEnabled {
		port, err := cliprompt.InputPort("Admin API port", cfg.AdminAPI.Port)
		if err != nil {
			return err
		}
		cfg.AdminAPI.Port = port
	}

	metricsEnabled, err := cliprompt.Confirm("Enable Prometheus metrics", true)
	if err != nil {
		return err
	}
	cfg.Metrics.Enabled = metricsEnabled
	if metricsEnabled {
		port, err := cliprompt.InputPort("Metrics port", cfg.Metrics.Port)
		if err != nil {
			return err
		}
		cfg.Metrics.Port = port
	}

	return nil
}
