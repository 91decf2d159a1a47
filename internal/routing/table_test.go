package routing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/pkg/eid"
)

func mustEID(t *testing.T, s string) eid.EID {
	t.Helper()
	e, err := eid.Parse(s)
	require.NoError(t, err)
	return e
}

func TestAddNodeInsertsNew(t *testing.T) {
	tbl := New(nil)
	b := mustEID(t, "dtn://b/")
	node := &Node{EID: b}
	tbl.AddNode(node)

	got, ok := tbl.LookupByEID(b)
	require.True(t, ok)
	require.Equal(t, b, got.EID)
}

func TestAddNodeUnionsClaAddress(t *testing.T) {
	tbl := New(nil)
	b := mustEID(t, "dtn://b/")
	tbl.AddNode(&Node{EID: b, ClaAddress: "mtcp:1.2.3.4:4556"})
	tbl.AddNode(&Node{EID: b, ClaAddress: ""})

	got, _ := tbl.LookupByEID(b)
	require.Equal(t, "mtcp:1.2.3.4:4556", got.ClaAddress)

	tbl.AddNode(&Node{EID: b, ClaAddress: "mtcp:9.9.9.9:4556"})
	got, _ = tbl.LookupByEID(b)
	require.Equal(t, "mtcp:9.9.9.9:4556", got.ClaAddress)
}

func TestAddNodeMergesOverlappingContacts(t *testing.T) {
	tbl := New(nil)
	b := mustEID(t, "dtn://b/")
	node1 := &Node{EID: b}
	c1 := NewContact(node1, 0, 10_000, 100, nil)
	node1.Contacts = []*Contact{c1}
	tbl.AddNode(node1)

	node2 := &Node{EID: b}
	c2 := NewContact(node2, 5_000, 15_000, 200, nil)
	node2.Contacts = []*Contact{c2}
	tbl.AddNode(node2)

	got, _ := tbl.LookupByEID(b)
	require.Len(t, got.Contacts, 1)
	require.Equal(t, int64(0), got.Contacts[0].FromMs)
	require.Equal(t, int64(15_000), got.Contacts[0].ToMs)
	require.Equal(t, int64(200), got.Contacts[0].BitrateBps)
}

func TestAddNodeDisjointContactsSortedByFromMs(t *testing.T) {
	tbl := New(nil)
	b := mustEID(t, "dtn://b/")
	node1 := &Node{EID: b}
	node1.Contacts = []*Contact{NewContact(node1, 10_000, 20_000, 100, nil)}
	tbl.AddNode(node1)

	node2 := &Node{EID: b}
	node2.Contacts = []*Contact{NewContact(node2, 0, 5_000, 100, nil)}
	tbl.AddNode(node2)

	got, _ := tbl.LookupByEID(b)
	require.Len(t, got.Contacts, 2)
	require.Equal(t, int64(0), got.Contacts[0].FromMs)
	require.Equal(t, int64(10_000), got.Contacts[1].FromMs)
}

func TestContactsNeverOverlapInvariant(t *testing.T) {
	tbl := New(nil)
	b := mustEID(t, "dtn://b/")
	node := &Node{EID: b}
	node.Contacts = []*Contact{
		NewContact(node, 0, 10_000, 100, nil),
		NewContact(node, 20_000, 30_000, 100, nil),
	}
	tbl.AddNode(node)

	got, _ := tbl.LookupByEID(b)
	for i := 0; i < len(got.Contacts); i++ {
		for j := i + 1; j < len(got.Contacts); j++ {
			require.False(t, got.Contacts[i].Overlaps(got.Contacts[j]))
		}
	}
}

func TestDeleteNodeRemovesEntirely(t *testing.T) {
	tbl := New(nil)
	b := mustEID(t, "dtn://b/")
	tbl.AddNode(&Node{EID: b})
	tbl.DeleteNode(b, nil, nil)

	_, ok := tbl.LookupByEID(b)
	require.False(t, ok)
}

func TestDeleteContactByWindow(t *testing.T) {
	tbl := New(nil)
	b := mustEID(t, "dtn://b/")
	node := &Node{EID: b}
	node.Contacts = []*Contact{NewContact(node, 0, 10_000, 100, nil)}
	tbl.AddNode(node)

	tbl.DeleteContact(b, 0, 10_000)

	got, _ := tbl.LookupByEID(b)
	require.Empty(t, got.Contacts)
}

func TestContactsForEndpointReverseIndex(t *testing.T) {
	tbl := New(nil)
	b := mustEID(t, "dtn://b/")
	app := mustEID(t, "dtn://b/app")
	node := &Node{EID: b, Endpoints: []eid.EID{app}}
	node.Contacts = []*Contact{NewContact(node, 0, 10_000, 100, nil)}
	tbl.AddNode(node)

	contacts := tbl.ContactsForEndpoint(app)
	require.Len(t, contacts, 1)

	contactsByNode := tbl.ContactsForEndpoint(b)
	require.Len(t, contactsByNode, 1)
}

func TestOnContactPassedClearsActiveAndRemoves(t *testing.T) {
	tbl := New(nil)
	b := mustEID(t, "dtn://b/")
	node := &Node{EID: b}
	c := NewContact(node, 0, 10_000, 100, nil)
	c.Active = true
	node.Contacts = []*Contact{c}
	tbl.AddNode(node)

	tbl.OnContactPassed(c)

	require.False(t, c.Active)
	got, _ := tbl.LookupByEID(b)
	require.Empty(t, got.Contacts)
}

func TestReplaceNodeReschedulesDisplacedBundles(t *testing.T) {
	var rescheduledCount int
	tbl := New(func(bundles []*bundle.Bundle) {
		rescheduledCount += len(bundles)
	})

	b := mustEID(t, "dtn://b/")
	src := mustEID(t, "dtn://a/")
	node := &Node{EID: b}
	c := NewContact(node, 0, 10_000, 100, nil)
	bdl, err := bundle.NewLocalBundle(bundle.V7, src, b, eid.NullDTN, 0, 60_000, 1, 1, []byte("hi"))
	require.NoError(t, err)
	c.QueuedBundles = []*bundle.Bundle{bdl}
	node.Contacts = []*Contact{c}
	tbl.AddNode(node)

	tbl.ReplaceNode(&Node{EID: b})

	require.Equal(t, 1, rescheduledCount)
}
