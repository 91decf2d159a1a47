// Package routing implements the Routing Table (spec C2): an in-memory
// index of known nodes, their reachable endpoints, and timed contacts,
// dual-indexed by node EID and by reachable-endpoint EID.
package routing

import (
	"sort"
	"sync"

	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/pkg/eid"
)

// InfiniteCapacity is the sentinel signed-32 value representing "infinite"
// remaining/total capacity (spec §3).
const InfiniteCapacity int64 = 1<<31 - 1

// Priority is the routing priority class. P0 is the broadest bucket: every
// bundle consumes P0; Normal+ also consumes P1; High-only also consumes P2.
type Priority int

const (
	PriorityBulk Priority = iota
	PriorityNormal
	PriorityHigh
)

// RescheduleFunc is the hook the Bundle Processor injects so the routing
// table can ask for bundles to be re-routed without depending on the BP or
// CLA packages (spec §4.2: "rescheduling hook injected by the BP").
type RescheduleFunc func(bundles []*bundle.Bundle)

// Contact is a scheduled time window during which a node is reachable via
// a CLA address at a bitrate.
type Contact struct {
	Node *Node

	FromMs int64
	ToMs   int64

	BitrateBps int64

	TotalCapacity int64
	RemainingP0   int64
	RemainingP1   int64
	RemainingP2   int64

	ExtraEndpoints []eid.EID // contact-only reachable endpoints
	QueuedBundles  []*bundle.Bundle

	Active bool
}

// durationCapacity computes duration_s * bitrate clamped to InfiniteCapacity.
func durationCapacity(fromMs, toMs, bitrateBps int64) int64 {
	if bitrateBps <= 0 {
		return InfiniteCapacity
	}
	durationS := (toMs - fromMs) / 1000
	cap := durationS * bitrateBps
	if cap <= 0 || cap > InfiniteCapacity {
		return InfiniteCapacity
	}
	return cap
}

// NewContact constructs a contact with freshly computed capacity.
func NewContact(node *Node, fromMs, toMs, bitrateBps int64, endpoints []eid.EID) *Contact {
	cap := durationCapacity(fromMs, toMs, bitrateBps)
	return &Contact{
		Node:           node,
		FromMs:         fromMs,
		ToMs:           toMs,
		BitrateBps:     bitrateBps,
		TotalCapacity:  cap,
		RemainingP0:    cap,
		RemainingP1:    cap,
		RemainingP2:    cap,
		ExtraEndpoints: endpoints,
	}
}

// RemainingFor returns the remaining capacity for the given priority.
func (c *Contact) RemainingFor(p Priority) int64 {
	switch p {
	case PriorityHigh:
		return c.RemainingP2
	case PriorityNormal:
		return c.RemainingP1
	default:
		return c.RemainingP0
	}
}

// Overlaps reports whether c and other share any part of their time window.
func (c *Contact) Overlaps(other *Contact) bool {
	return c.FromMs < other.ToMs && other.FromMs < c.ToMs
}

// merge combines other into c in place: union of endpoints, new bitrate and
// recomputed capacity, minus the bytes already consumed against the old
// capacity (spec §4.2 "new bitrate + recomputed capacity"). Queued bundles are
// concatenated; the caller is responsible for re-deciding whether any now
// exceed the recomputed P0 capacity.
func (c *Contact) merge(other *Contact) {
	if other.FromMs < c.FromMs {
		c.FromMs = other.FromMs
	}
	if other.ToMs > c.ToMs {
		c.ToMs = other.ToMs
	}
	c.BitrateBps = other.BitrateBps
	newCap := durationCapacity(c.FromMs, c.ToMs, c.BitrateBps)
	consumed := c.TotalCapacity - c.RemainingP0
	c.TotalCapacity = newCap
	c.RemainingP0 = newCap - consumed
	c.RemainingP1 = min64(c.RemainingP1, c.RemainingP0)
	c.RemainingP2 = min64(c.RemainingP2, c.RemainingP1)
	c.ExtraEndpoints = unionEIDs(c.ExtraEndpoints, other.ExtraEndpoints)
	c.QueuedBundles = append(c.QueuedBundles, other.QueuedBundles...)
}

// Node (spec §3): EID, optional CLA address, reachable endpoints, contacts.
type Node struct {
	EID        eid.EID
	ClaAddress string
	Endpoints  []eid.EID // non-node EIDs reachable via this node
	Contacts   []*Contact
}

// endpointEntry is a reference-counted reverse-index entry: the contacts
// (ordered by ToMs) reachable via a given endpoint EID.
type endpointEntry struct {
	refCount int
	contacts []*Contact
}

// Table is the routing table. The zero value is not usable; use New.
//
// Per spec §5, one global mutex guards the table; the Bundle Processor
// holds it during router calls and the Contact Manager during scheduling
// decisions. Exported Lock/Unlock let callers that need multi-step
// read-modify-write sequences (the Contact Manager's event loop) hold the
// lock across several calls; the single-call convenience methods below
// take and release it themselves.
type Table struct {
	mu sync.Mutex

	nodes     map[string]*Node // keyed by node EID string
	endpoints map[string]*endpointEntry

	reschedule RescheduleFunc
}

// New constructs an empty routing table. reschedule may be nil until the
// Bundle Processor wires itself in during startup.
func New(reschedule RescheduleFunc) *Table {
	return &Table{
		nodes:     make(map[string]*Node),
		endpoints: make(map[string]*endpointEntry),
		reschedule: reschedule,
	}
}

// SetRescheduleFunc wires the BP's rescheduling hook post-construction.
func (t *Table) SetRescheduleFunc(fn RescheduleFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reschedule = fn
}

// Lock acquires the table's mutex for a multi-step operation.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock releases the table's mutex.
func (t *Table) Unlock() { t.mu.Unlock() }

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func unionEIDs(a, b []eid.EID) []eid.EID {
	seen := make(map[string]struct{}, len(a))
	out := append([]eid.EID(nil), a...)
	for _, e := range a {
		seen[e.String()] = struct{}{}
	}
	for _, e := range b {
		if _, ok := seen[e.String()]; !ok {
			out = append(out, e)
			seen[e.String()] = struct{}{}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
