package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dtnkit/bpa/internal/config"
	"github.com/dtnkit/bpa/internal/logger"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/bpa, falling back to
// ~/.config/bpa.
func DefaultConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "bpa")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultStateDir returns $XDG_STATE_HOME/bpa, falling back to
// ~/.local/state/bpa.
func DefaultStateDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "/tmp"
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "bpa")
}

// DefaultPidFile returns the default PID file path.
func DefaultPidFile() string {
	return filepath.Join(DefaultStateDir(), "bpa.pid")
}

func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if _, err := os.Stat(DefaultConfigPath()); err == nil {
		return DefaultConfigPath()
	}
	return "defaults"
}
