package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
node:
  eid: "dtn://node1/"
clas:
  - name: mtcp
    listen_addr: "0.0.0.0:4556"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 64, cfg.Router.FragmentMinPayload)
	assert.Equal(t, 16, cfg.Router.RouterMaxFragments)
	assert.Equal(t, 16, cfg.ContactManager.MaxConcurrentContacts)
	assert.Equal(t, "reschedule", cfg.Processor.FailurePolicy)
	assert.Equal(t, time.Hour, cfg.Processor.KnownListTTL)
	assert.Equal(t, 256, cfg.Processor.QueueCapacity)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	require.Len(t, cfg.CLAs, 1)
	assert.EqualValues(t, 16*1024*1024, cfg.CLAs[0].MaxBundleSize)
	assert.EqualValues(t, 64*1024, cfg.CLAs[0].RXBufferSize)
}

func TestLoadParsesHumanReadableSizesAndDurations(t *testing.T) {
	path := writeConfigFile(t, `
node:
  eid: "dtn://node1/"
clas:
  - name: mtcp
    listen_addr: "0.0.0.0:4556"
    max_bundle_size: 1Gi
    rx_buffer_size: 256KB
router:
  maximum_bundle_size: 2Gi
contact_manager:
  poll_jitter: 250ms
processor:
  known_list_ttl: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.EqualValues(t, 1<<30, cfg.CLAs[0].MaxBundleSize)
	assert.EqualValues(t, 256*1000, cfg.CLAs[0].RXBufferSize)
	assert.EqualValues(t, 2<<30, cfg.Router.MaximumBundleSize)
	assert.Equal(t, 250*time.Millisecond, cfg.ContactManager.PollJitter)
	assert.Equal(t, 30*time.Minute, cfg.Processor.KnownListTTL)
}

func TestLoadRejectsMissingNodeEID(t *testing.T) {
	path := writeConfigFile(t, `
clas:
  - name: mtcp
    listen_addr: "0.0.0.0:4556"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node.eid")
}

func TestLoadRejectsServiceEIDAsNodeIdentity(t *testing.T) {
	path := writeConfigFile(t, `
node:
  eid: "dtn://node1/echo"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node identifier")
}

func TestLoadRejectsUnknownFailurePolicy(t *testing.T) {
	path := writeConfigFile(t, `
node:
  eid: "dtn://node1/"
processor:
  failure_policy: "explode"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_policy")
}

func TestLoadRequiresDSNWhenControlPlaneEnabled(t *testing.T) {
	path := writeConfigFile(t, `
node:
  eid: "dtn://node1/"
controlplane:
  enabled: true
  driver: sqlite
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn")
}

func TestSaveRoundTrips(t *testing.T) {
	cfg := &Config{Node: NodeConfig{EID: "dtn://node1/"}}
	ApplyDefaults(cfg)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Node.EID, loaded.Node.EID)
	assert.Equal(t, cfg.Logging.Level, loaded.Logging.Level)
}
