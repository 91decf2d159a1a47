package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpa/pkg/configagent"
)

func writeSeedFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadSeedConvertsNodesToAddCommands(t *testing.T) {
	path := writeSeedFile(t, `
- eid: dtn://node2/
  cla_address: 10.0.0.2:4556
  endpoints:
    - dtn://node2/mailbox
  contacts:
    - from_s: 100
      to_s: 200
      bitrate_bps: 1000
      endpoints:
        - dtn://node3/
`)

	cmds, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	cmd := cmds[0]
	assert.Equal(t, configagent.CmdAdd, cmd.Type)
	assert.Equal(t, "dtn://node2/", cmd.NodeEID.String())
	assert.Equal(t, "10.0.0.2:4556", cmd.CLAAddress)
	require.Len(t, cmd.Endpoints, 1)
	assert.Equal(t, "dtn://node2/mailbox", cmd.Endpoints[0].String())

	require.Len(t, cmd.Contacts, 1)
	assert.Equal(t, int64(100_000), cmd.Contacts[0].FromMs)
	assert.Equal(t, int64(200_000), cmd.Contacts[0].ToMs)
	assert.Equal(t, int64(1000), cmd.Contacts[0].BitrateBps)
	require.Len(t, cmd.Contacts[0].Endpoints, 1)
	assert.Equal(t, "dtn://node3/", cmd.Contacts[0].Endpoints[0].String())
}

func TestLoadSeedRejectsInvalidEID(t *testing.T) {
	path := writeSeedFile(t, `
- eid: "not-a-valid-eid"
`)
	_, err := LoadSeed(path)
	assert.Error(t, err)
}

func TestLoadSeedMissingFile(t *testing.T) {
	_, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
