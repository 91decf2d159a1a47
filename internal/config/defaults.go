package config

import (
	"strings"
	"time"

	"github.com/dtnkit/bpa/internal/bytesize"
)

// ApplyDefaults fills in any unspecified configuration fields with sensible
// defaults, the way the teacher's pkg/config.ApplyDefaults does per-section.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyRouterDefaults(&cfg.Router)
	applyContactManagerDefaults(&cfg.ContactManager)
	applyProcessorDefaults(&cfg.Processor)
	applyMetricsDefaults(&cfg.Metrics)
	applyAdminAPIDefaults(&cfg.AdminAPI)
	applyAgentAuthDefaults(&cfg.AgentAuth)
	applyTelemetryDefaults(&cfg.Telemetry)
	for i := range cfg.CLAs {
		applyCLADefaults(&cfg.CLAs[i])
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyRouterDefaults(cfg *RouterConfig) {
	if cfg.FragmentMinPayload == 0 {
		cfg.FragmentMinPayload = 64
	}
	if cfg.RouterMaxFragments == 0 {
		cfg.RouterMaxFragments = 16
	}
	// MaximumBundleSize left at zero means "no separate global ceiling"; the
	// router already treats that as unlimited (routing.InfiniteCapacity).
}

func applyContactManagerDefaults(cfg *ContactManagerConfig) {
	if cfg.MaxConcurrentContacts == 0 {
		cfg.MaxConcurrentContacts = 16
	}
}

func applyProcessorDefaults(cfg *ProcessorConfig) {
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = "reschedule"
	}
	if cfg.KnownListTTL == 0 {
		cfg.KnownListTTL = time.Hour
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = 256
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyAdminAPIDefaults(cfg *AdminAPIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8081
	}
}

func applyAgentAuthDefaults(cfg *AgentAuthConfig) {
	if cfg.Issuer == "" {
		cfg.Issuer = "bpa"
	}
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = time.Hour
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyCLADefaults(cfg *CLAConfig) {
	if cfg.MaxBundleSize == 0 {
		cfg.MaxBundleSize = 16 * bytesize.MiB
	}
	if cfg.RXBufferSize == 0 {
		cfg.RXBufferSize = 64 * bytesize.KiB
	}
}
