// Package config implements the `bpa config` command group: inspecting,
// validating, and generating a JSON Schema for the effective configuration.
package config

import "github.com/spf13/cobra"

// Cmd is the `config` command group, added to the root command.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate bpa configuration",
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(schemaCmd)
}

// getConfigFile is threaded in from the root command's persistent --config
// flag by each subcommand's RunE, since cobra command groups in different
// packages don't share package-level state directly.
type configFileGetter func() string

var getConfigFile configFileGetter

// SetConfigFileGetter wires the root command's --config flag accessor in,
// called once from commands.init().
func SetConfigFileGetter(f func() string) {
	getConfigFile = f
}
