package configagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpa/internal/routing"
)

func TestParseAddNodeOnly(t *testing.T) {
	cmd, err := Parse([]byte("1(dtn://peer/);"))
	require.NoError(t, err)
	assert.Equal(t, CmdAdd, cmd.Type)
	assert.Equal(t, "dtn://peer/", cmd.NodeEID.String())
	assert.Empty(t, cmd.CLAAddress)
	assert.Nil(t, cmd.Endpoints)
	assert.Nil(t, cmd.Contacts)
}

func TestParseNodeEIDNormalizedToNodeID(t *testing.T) {
	cmd, err := Parse([]byte("1(dtn://peer/app);"))
	require.NoError(t, err)
	assert.Equal(t, "dtn://peer/", cmd.NodeEID.String())
}

func TestParseWithReliabilityInRange(t *testing.T) {
	cmd, err := Parse([]byte("1(dtn://peer/),500;"))
	require.NoError(t, err)
	assert.Equal(t, CmdAdd, cmd.Type)
}

func TestParseRejectsReliabilityOutOfRange(t *testing.T) {
	_, err := Parse([]byte("1(dtn://peer/),42;"))
	require.Error(t, err)

	_, err = Parse([]byte("1(dtn://peer/),1001;"))
	require.Error(t, err)
}

func TestParseWithCLAAddressAndEndpoints(t *testing.T) {
	cmd, err := Parse([]byte("2(dtn://peer/):(mtcp:192.168.1.1:4556):[(dtn://peer/app1),(dtn://peer/app2)];"))
	require.NoError(t, err)
	assert.Equal(t, CmdUpdate, cmd.Type)
	assert.Equal(t, "mtcp:192.168.1.1:4556", cmd.CLAAddress)
	require.Len(t, cmd.Endpoints, 2)
	assert.Equal(t, "dtn://peer/app1", cmd.Endpoints[0].String())
	assert.Equal(t, "dtn://peer/app2", cmd.Endpoints[1].String())
}

func TestParseWithContactList(t *testing.T) {
	cmd, err := Parse([]byte("1(dtn://peer/):(mtcp:1.2.3.4:4556):[{100,200,1000},{300,400,2000,[(dtn://peer/app)]}];"))
	require.NoError(t, err)
	require.Len(t, cmd.Contacts, 2)

	assert.Equal(t, int64(100_000), cmd.Contacts[0].FromMs)
	assert.Equal(t, int64(200_000), cmd.Contacts[0].ToMs)
	assert.Equal(t, int64(1000), cmd.Contacts[0].BitrateBps)
	assert.Nil(t, cmd.Contacts[0].Endpoints)

	assert.Equal(t, int64(300_000), cmd.Contacts[1].FromMs)
	require.Len(t, cmd.Contacts[1].Endpoints, 1)
	assert.Equal(t, "dtn://peer/app", cmd.Contacts[1].Endpoints[0].String())
}

func TestParseDeleteWithContactWindowsOnly(t *testing.T) {
	cmd, err := Parse([]byte("3(dtn://peer/):[{100,200,0}];"))
	require.NoError(t, err)
	assert.Equal(t, CmdDelete, cmd.Type)
	require.Len(t, cmd.Contacts, 1)
	windows := cmd.contactWindows()
	assert.Equal(t, [2]int64{100_000, 200_000}, windows[0])
}

func TestParseQuery(t *testing.T) {
	cmd, err := Parse([]byte("4(dtn://peer/);"))
	require.NoError(t, err)
	assert.Equal(t, CmdQuery, cmd.Type)
}

func TestParseRejectsUnknownCommandByte(t *testing.T) {
	_, err := Parse([]byte("9(dtn://peer/);"))
	require.Error(t, err)
}

func TestParseRejectsMissingTerminator(t *testing.T) {
	_, err := Parse([]byte("1(dtn://peer/)"))
	require.Error(t, err)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse([]byte("1(dtn://peer/);garbage"))
	require.Error(t, err)
}

func TestParseRejectsContactTimeOverflow(t *testing.T) {
	_, err := Parse([]byte("1(dtn://peer/):():[{99999999999999999999,1,1}];"))
	require.Error(t, err)
}

func TestApplyAddThenQueryRoundTrips(t *testing.T) {
	table := routing.New(nil)

	add, err := Parse([]byte("1(dtn://peer/):(mtcp:1.2.3.4:4556):[(dtn://peer/app)]:[{0,60,1000}];"))
	require.NoError(t, err)
	_, err = Apply(table, add)
	require.NoError(t, err)

	query, err := Parse([]byte("4(dtn://peer/);"))
	require.NoError(t, err)
	result, err := Apply(table, query)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "mtcp:1.2.3.4:4556", result.CLAAddress)
	require.Len(t, result.Endpoints, 1)
	require.Len(t, result.Contacts, 1)
	assert.Equal(t, int64(1000), result.Contacts[0].BitrateBps)
}

func TestApplyQueryUnknownNodeErrors(t *testing.T) {
	table := routing.New(nil)
	query, err := Parse([]byte("4(dtn://nobody/);"))
	require.NoError(t, err)
	_, err = Apply(table, query)
	require.Error(t, err)
}

func TestApplyDeleteRemovesNode(t *testing.T) {
	table := routing.New(nil)
	add, err := Parse([]byte("1(dtn://peer/);"))
	require.NoError(t, err)
	_, err = Apply(table, add)
	require.NoError(t, err)

	del, err := Parse([]byte("3(dtn://peer/);"))
	require.NoError(t, err)
	_, err = Apply(table, del)
	require.NoError(t, err)

	_, ok := table.LookupByEID(add.NodeEID)
	assert.False(t, ok)
}
