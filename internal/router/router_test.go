package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/internal/routing"
	"github.com/dtnkit/bpa/pkg/eid"
)

func mustEID(t *testing.T, s string) eid.EID {
	t.Helper()
	e, err := eid.Parse(s)
	require.NoError(t, err)
	return e
}

func newTestBundle(t *testing.T, dest eid.EID, payloadLen int, mustNotFrag bool) *bundle.Bundle {
	t.Helper()
	src := mustEID(t, "dtn://a/")
	flags := bundle.ProcessingFlags(0)
	if mustNotFrag {
		flags |= bundle.FlagMustNotFragment
	}
	b, err := bundle.NewLocalBundle(bundle.V7, src, dest, eid.NullDTN, flags, 60_000, 1000, 1, make([]byte, payloadLen))
	require.NoError(t, err)
	return b
}

func setupTableWithOneContact(t *testing.T, fromMs, toMs, bitrate int64) (*routing.Table, eid.EID) {
	t.Helper()
	dest := mustEID(t, "dtn://b/")
	tbl := routing.New(nil)
	node := &routing.Node{EID: dest}
	node.Contacts = []*routing.Contact{routing.NewContact(node, fromMs, toMs, bitrate, nil)}
	tbl.AddNode(node)
	return tbl, dest
}

func TestRouteBundleNoRouteWhenNoContact(t *testing.T) {
	tbl := routing.New(nil)
	r := New(tbl, DefaultConfig(), nil, mustEID(t, "dtn://a/"))
	dest := mustEID(t, "dtn://nowhere/")
	b := newTestBundle(t, dest, 100, false)

	status, _, err := r.RouteBundle(b, 0, routing.PriorityNormal)
	require.Equal(t, StatusNoRoute, status)
	require.Error(t, err)
}

func TestRouteBundleSingleFragmentFits(t *testing.T) {
	tbl, dest := setupTableWithOneContact(t, 0, 10_000, 1000) // 10s * 1000B/s = 10000B capacity
	r := New(tbl, DefaultConfig(), nil, mustEID(t, "dtn://a/"))
	b := newTestBundle(t, dest, 200, false)

	status, plan, err := r.RouteBundle(b, 0, routing.PriorityNormal)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	require.Len(t, plan.Assignments, 1)
	require.Equal(t, uint64(200), plan.Assignments[0].PayloadLength)
}

func TestRouteBundleCommitsCapacity(t *testing.T) {
	tbl, dest := setupTableWithOneContact(t, 0, 10_000, 1000)
	r := New(tbl, DefaultConfig(), nil, mustEID(t, "dtn://a/"))
	b := newTestBundle(t, dest, 200, false)

	node, _ := tbl.LookupByEID(dest)
	before := node.Contacts[0].RemainingP1

	status, plan, err := r.RouteBundle(b, 0, routing.PriorityNormal)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	after := node.Contacts[0].RemainingP1
	require.Less(t, after, before)

	r.RemoveBundleFromContact(plan.Assignments[0], routing.PriorityNormal)
	require.Equal(t, before, node.Contacts[0].RemainingP1)
}

func TestRouteBundleMustNotFragmentFailsIfTooBig(t *testing.T) {
	tbl, dest := setupTableWithOneContact(t, 0, 1_000, 10) // tiny capacity
	r := New(tbl, DefaultConfig(), nil, mustEID(t, "dtn://a/"))
	b := newTestBundle(t, dest, 10_000, true)

	status, _, err := r.RouteBundle(b, 0, routing.PriorityNormal)
	require.Equal(t, StatusNoRoute, status)
	require.Error(t, err)
}

func TestRouteBundleFragmentsAcrossTwoContacts(t *testing.T) {
	dest := mustEID(t, "dtn://b/")
	tbl := routing.New(nil)
	node := &routing.Node{EID: dest}
	node.Contacts = []*routing.Contact{
		routing.NewContact(node, 0, 10_000, 100, nil),      // 1000B
		routing.NewContact(node, 10_000, 20_000, 100, nil), // 1000B
	}
	tbl.AddNode(node)

	cfg := DefaultConfig()
	r := New(tbl, cfg, nil, mustEID(t, "dtn://a/"))
	b := newTestBundle(t, dest, 1500, false)

	status, plan, err := r.RouteBundle(b, 0, routing.PriorityNormal)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)
	require.GreaterOrEqual(t, len(plan.Assignments), 2)

	var total uint64
	usedContacts := make(map[*routing.Contact]bool)
	for _, a := range plan.Assignments {
		total += a.PayloadLength
		usedContacts[a.Contact] = true
	}
	require.Equal(t, uint64(1500), total)
	require.Len(t, usedContacts, 2, "both contacts should carry a fragment, in schedule order")

	for _, c := range node.Contacts {
		require.GreaterOrEqual(t, c.RemainingP0, int64(0), "a single contact must not be over-committed")
	}
}

func TestRouteBundleMaxFragmentsExceeded(t *testing.T) {
	dest := mustEID(t, "dtn://b/")
	tbl := routing.New(nil)
	node := &routing.Node{EID: dest}
	// Four tiny contacts, each far too small individually, forcing >3 fragments.
	for i := 0; i < 4; i++ {
		from := int64(i * 10_000)
		node.Contacts = append(node.Contacts, routing.NewContact(node, from, from+1_000, 180, nil)) // 180B: 64B header + 116B payload
	}
	tbl.AddNode(node)

	cfg := DefaultConfig()
	cfg.RouterMaxFragments = 3
	cfg.FragmentMinPayload = 1
	r := New(tbl, cfg, nil, mustEID(t, "dtn://a/"))
	b := newTestBundle(t, dest, 400, false)

	status, _, err := r.RouteBundle(b, 0, routing.PriorityNormal)
	require.Error(t, err)
	require.Equal(t, StatusNoRoute, status)
}

func TestRouteBundleExpiredBundle(t *testing.T) {
	tbl, dest := setupTableWithOneContact(t, 0, 10_000, 1000)
	r := New(tbl, DefaultConfig(), nil, mustEID(t, "dtn://a/"))
	b := newTestBundle(t, dest, 100, false)
	b.CreationTimestampMs = 0
	b.LifetimeMs = 1

	status, _, err := r.RouteBundle(b, 1_000_000, routing.PriorityNormal)
	require.Error(t, err)
	require.Equal(t, StatusExpired, status)
}
