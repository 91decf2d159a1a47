package config

import (
	"fmt"

	"github.com/dtnkit/bpa/pkg/eid"
)

// Validate checks cfg for the handful of required fields and closed-set
// values this config carries. Kept as inline checks rather than a
// third-party validator (go-playground/validator is overkill for a config
// this small — see DESIGN.md).
func Validate(cfg *Config) error {
	if cfg.Node.EID == "" {
		return fmt.Errorf("node.eid is required")
	}
	local, err := eid.Parse(cfg.Node.EID)
	if err != nil {
		return fmt.Errorf("node.eid: %w", err)
	}
	if !local.IsNodeID() {
		return fmt.Errorf("node.eid must be a node identifier (no service/demux part), got %q", cfg.Node.EID)
	}

	for i, cla := range cfg.CLAs {
		if cla.Name == "" {
			return fmt.Errorf("clas[%d].name is required", i)
		}
		if cla.ListenAddr == "" {
			return fmt.Errorf("clas[%d].listen_addr is required", i)
		}
	}

	switch cfg.Processor.FailurePolicy {
	case "drop", "reschedule":
	default:
		return fmt.Errorf("processor.failure_policy must be %q or %q, got %q", "drop", "reschedule", cfg.Processor.FailurePolicy)
	}

	switch cfg.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level must be one of DEBUG, INFO, WARN, ERROR, got %q", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}

	if cfg.ControlPlane.Enabled {
		switch cfg.ControlPlane.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("controlplane.driver must be sqlite or postgres, got %q", cfg.ControlPlane.Driver)
		}
		if cfg.ControlPlane.DSN == "" {
			return fmt.Errorf("controlplane.dsn is required when controlplane.enabled is true")
		}
	}

	if cfg.S3Offload.Enabled && cfg.S3Offload.Bucket == "" {
		return fmt.Errorf("s3_offload.bucket is required when s3_offload.enabled is true")
	}

	if cfg.AgentAuth.Enabled && len(cfg.AgentAuth.Secret) < 32 {
		return fmt.Errorf("agent_auth.secret must be at least 32 characters when agent_auth.enabled is true")
	}

	return nil
}
