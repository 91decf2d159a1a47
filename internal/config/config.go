// Package config loads the BPA's static configuration: local node identity,
// CLA listen addresses, and the tunables for the routing table, router,
// contact manager, and bundle processor (SPEC_FULL.md §1.2), mirroring the
// teacher's pkg/config/config.go precedence and decode-hook conventions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dtnkit/bpa/internal/bytesize"
)

// Config is the BPA's top-level configuration.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (BPA_*), for keys the configuration file sets
//  2. Configuration file (YAML)
//  3. Default values
//
// No CLI flag is bound to a configuration key (the CLI's --config flag only
// selects the file), and an environment variable for a key the file does
// not set is not read.
type Config struct {
	// Node is this agent's local node identity.
	Node NodeConfig `mapstructure:"node" yaml:"node"`

	// CLAs lists the convergence-layer adapters to launch at startup.
	CLAs []CLAConfig `mapstructure:"clas" yaml:"clas"`

	// ContactSeedFile optionally points at a YAML file of nodes/contacts to
	// preload into the routing table at startup (§2 Routing Table seed).
	ContactSeedFile string `mapstructure:"contact_seed_file" yaml:"contact_seed_file,omitempty"`

	// Router holds the Router's fragmentation/capacity tunables.
	Router RouterConfig `mapstructure:"router" yaml:"router"`

	// ContactManager holds the Contact Manager's tunables.
	ContactManager ContactManagerConfig `mapstructure:"contact_manager" yaml:"contact_manager"`

	// Processor holds the Bundle Processor's tunables.
	Processor ProcessorConfig `mapstructure:"processor" yaml:"processor"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics configures the Prometheus metrics HTTP server.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ControlPlane optionally configures durable routing-table-configuration
	// persistence (nodes/contacts as administered, not in-flight bundles).
	ControlPlane ControlPlaneConfig `mapstructure:"controlplane" yaml:"controlplane,omitempty"`

	// S3Offload optionally configures payload offload for oversized bundles.
	S3Offload S3OffloadConfig `mapstructure:"s3_offload" yaml:"s3_offload,omitempty"`

	// AdminAPI optionally configures the read-only HTTP introspection server.
	AdminAPI AdminAPIConfig `mapstructure:"admin_api" yaml:"admin_api,omitempty"`

	// AgentAuth optionally configures signed-token verification for agent
	// registration (pkg/aap). When disabled, the registry falls back to
	// bare shared-secret comparison (spec §3's original behavior).
	AgentAuth AgentAuthConfig `mapstructure:"agent_auth" yaml:"agent_auth,omitempty"`

	// Telemetry configures OpenTelemetry trace export.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry,omitempty"`
}

// TelemetryConfig configures OpenTelemetry trace export (internal/telemetry).
type TelemetryConfig struct {
	// Enabled controls whether spans are exported at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// Insecure disables TLS on the OTLP connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure,omitempty"`

	// SampleRate is the trace sampling rate, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate,omitempty"`
}

// NodeConfig identifies this agent on the network.
type NodeConfig struct {
	// EID is this node's local endpoint identifier, e.g. "dtn://node1/" or
	// "ipn:1.0".
	EID string `mapstructure:"eid" yaml:"eid"`
}

// CLAConfig configures one convergence-layer adapter instance.
type CLAConfig struct {
	// Name identifies the CLA scheme, e.g. "mtcp", "tcpclv3".
	Name string `mapstructure:"name" yaml:"name"`

	// ListenAddr is the address the CLA binds to. Opaque to the core; only
	// the named CLA implementation interprets it.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// MaxBundleSize caps a single bundle's wire size on this CLA. Supports
	// human-readable sizes ("16Mi", "64KB") via bytesize.ByteSize.
	MaxBundleSize bytesize.ByteSize `mapstructure:"max_bundle_size" yaml:"max_bundle_size,omitempty"`

	// RXBufferSize sizes the CLA's per-link read buffer, drawn from
	// internal/bufpool. Supports human-readable sizes.
	RXBufferSize bytesize.ByteSize `mapstructure:"rx_buffer_size" yaml:"rx_buffer_size,omitempty"`
}

// RouterConfig holds the Router's fragmentation/capacity tunables.
type RouterConfig struct {
	// FragmentMinPayload is the minimum payload bytes a fragment must carry
	// to be worth sending.
	FragmentMinPayload int `mapstructure:"fragment_min_payload" yaml:"fragment_min_payload"`

	// RouterMaxFragments caps how many fragments one bundle may be split
	// into.
	RouterMaxFragments int `mapstructure:"router_max_fragments" yaml:"router_max_fragments"`

	// MaximumBundleSize is the global MBS ceiling applied regardless of any
	// per-contact capacity. Supports human-readable sizes.
	MaximumBundleSize bytesize.ByteSize `mapstructure:"maximum_bundle_size" yaml:"maximum_bundle_size,omitempty"`
}

// ContactManagerConfig holds the Contact Manager's tunables.
type ContactManagerConfig struct {
	// MaxConcurrentContacts bounds how many contacts may be Active at once.
	MaxConcurrentContacts int `mapstructure:"max_concurrent_contacts" yaml:"max_concurrent_contacts"`

	// PollJitter is parsed as a duration but not passed to the Contact
	// Manager; it has no effect on wake-up timing.
	PollJitter time.Duration `mapstructure:"poll_jitter" yaml:"poll_jitter,omitempty"`
}

// ProcessorConfig holds the Bundle Processor's tunables.
type ProcessorConfig struct {
	// FailurePolicy selects TRANSMISSION_FAILURE handling: "drop" or
	// "reschedule".
	FailurePolicy string `mapstructure:"failure_policy" yaml:"failure_policy"`

	// KnownListTTL bounds how long a delivered bundle's id is remembered for
	// duplicate suppression.
	KnownListTTL time.Duration `mapstructure:"known_list_ttl" yaml:"known_list_ttl"`

	// QueueCapacity sizes the BP's signal queue.
	QueueCapacity int `mapstructure:"queue_capacity" yaml:"queue_capacity"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output: DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a path.
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server run.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	Port int `mapstructure:"port" yaml:"port"`
}

// AdminAPIConfig configures the read-only HTTP introspection server
// (internal/adminapi): node/contact listings for operators. It is
// never on the bundle signal path.
type AdminAPIConfig struct {
	// Enabled controls whether the admin API HTTP server runs.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the admin API.
	Port int `mapstructure:"port" yaml:"port"`
}

// AgentAuthConfig optionally configures pkg/aap's signed-token
// verification for AGENT_REGISTER/AGENT_REGISTER_RPC.
type AgentAuthConfig struct {
	// Enabled controls whether registration secrets must be signed tokens
	// rather than bare strings.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Secret is the HMAC signing key. Must be at least 32 characters.
	Secret string `mapstructure:"secret" yaml:"secret,omitempty"`

	// Issuer is the token issuer claim.
	Issuer string `mapstructure:"issuer" yaml:"issuer,omitempty"`

	// TokenDuration is how long an issued registration token remains valid.
	TokenDuration time.Duration `mapstructure:"token_duration" yaml:"token_duration,omitempty"`
}

// ControlPlaneConfig optionally configures the durable routing-table
// configuration store.
type ControlPlaneConfig struct {
	// Enabled controls whether a control-plane database is used at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Driver selects the backing database: "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// DSN is the database connection string.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// S3OffloadConfig optionally configures payload offload for oversized
// bundles (internal/store/s3).
type S3OffloadConfig struct {
	// Enabled controls whether payload offload to S3 is active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Bucket is the destination S3 bucket name.
	Bucket string `mapstructure:"bucket" yaml:"bucket,omitempty"`

	// Region is the AWS region the bucket lives in.
	Region string `mapstructure:"region" yaml:"region,omitempty"`

	// OffloadThreshold is the payload size above which a bundle's payload is
	// spilled to S3 instead of kept in memory.
	OffloadThreshold bytesize.ByteSize `mapstructure:"offload_threshold" yaml:"offload_threshold,omitempty"`
}

// Load reads configuration from file, environment, and defaults.
//
// configPath may be empty or name a file that does not exist, in which case
// only defaults apply; environment variables are not read either.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v, configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to path in YAML form, for `bpa init`'s sample config and
// `bpa config show`.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("BPA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
}

func readConfigFile(v *viper.Viper, configPath string) (bool, error) {
	if configPath == "" {
		return false, nil
	}
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// decodeHooks composes the ByteSize and time.Duration mapstructure decode
// hooks, so config files and environment variables can use human-readable
// strings for both (spec §1.2's "exactly as the teacher documents").
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
