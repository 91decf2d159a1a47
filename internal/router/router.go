// Package router implements the Router (spec C3): computes a forwarding
// plan for one bundle over the current routing table, choosing contacts,
// deciding whether to fragment, and allocating contact capacity per
// priority.
package router

import (
	"github.com/dtnkit/bpa/internal/bpaerr"
	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/internal/routing"
	"github.com/dtnkit/bpa/pkg/eid"
)

// RouteStatus is the Router's outcome for one route-bundle call.
type RouteStatus int

const (
	StatusOK RouteStatus = iota
	StatusNoRoute
	StatusNoTimelyContact
	StatusNoMemory
	StatusExpired
)

func (s RouteStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoRoute:
		return "NO_ROUTE"
	case StatusNoTimelyContact:
		return "NO_TIMELY_CONTACT"
	case StatusNoMemory:
		return "NO_MEMORY"
	case StatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// FragmentAssignment is one planned fragment: the contact it is assigned
// to and the payload byte range it carries.
type FragmentAssignment struct {
	Contact        *routing.Contact
	Position       bundle.FragmentPosition
	PayloadOffset  uint64
	PayloadLength  uint64
	HeaderOverhead int64
}

// serializedSize is the capacity a's transmission actually consumes on its
// contact: payload plus the fragment's own header overhead (spec §4.3
// "Capacity accounting" subtracts the serialized fragment size, not just
// the payload).
func (a FragmentAssignment) serializedSize() int64 {
	return int64(a.PayloadLength) + a.HeaderOverhead
}

// Plan is the Router's committed forwarding plan for a bundle: either a
// single assignment (no fragmentation needed) or several, covering the
// full payload left to right.
type Plan struct {
	Assignments []FragmentAssignment
	Priority    routing.Priority
}

// Config holds the Router's tunables (spec §4.3 + §1.2's internal/config
// wiring): FragmentMinPayload is the minimum payload bytes a fragment must
// carry to be worth sending; RouterMaxFragments caps how many fragments one
// bundle may be split into; MaximumBundleSize is the global MBS ceiling
// applied on top of any per-contact CLA MBS.
type Config struct {
	FragmentMinPayload int
	RouterMaxFragments int
	MaximumBundleSize  int64
}

// DefaultConfig returns the Router's default tunables.
func DefaultConfig() Config {
	return Config{
		FragmentMinPayload: 64,
		RouterMaxFragments: 16,
		MaximumBundleSize:  routing.InfiniteCapacity,
	}
}

// ClaMaxBundleSizer resolves the maximum bundle size a CLA supports for one
// outgoing transmission, keyed by the node's CLA address; implemented by
// internal/cla's registry. A nil resolver is treated as "no CLA-imposed
// limit" (only the global MBS applies).
type ClaMaxBundleSizer interface {
	MaxBundleSize(claAddress string) int64
}

// Router computes forwarding plans against a routing table.
type Router struct {
	table   *routing.Table
	cfg     Config
	claMBS  ClaMaxBundleSizer
	localID eid.EID
}

// New constructs a Router bound to table, with the given tunables and
// (optional) CLA max-bundle-size resolver.
func New(table *routing.Table, cfg Config, claMBS ClaMaxBundleSizer, localID eid.EID) *Router {
	return &Router{table: table, cfg: cfg, claMBS: claMBS, localID: localID}
}

// RouteBundle computes a forwarding plan for b at priority p, as of nowMs.
// On StatusOK it has already committed the plan's capacity against the
// chosen contacts (spec §4.3 "Capacity accounting"); callers that later
// abandon the plan must call RemoveBundleFromContact for each assignment.
func (r *Router) RouteBundle(b *bundle.Bundle, nowMs int64, p routing.Priority) (RouteStatus, *Plan, error) {
	if b.IsExpired(nowMs) {
		return StatusExpired, nil, bpaerr.New(bpaerr.Expired, "bundle expired before routing")
	}

	candidates := r.candidateContacts(b.DestEID, nowMs)
	if len(candidates) == 0 {
		return StatusNoRoute, nil, bpaerr.New(bpaerr.NoRoute, "no contact reaches destination")
	}

	payloadLen := uint64(b.PayloadLen())

	// Single-fragment attempt: does the bundle fit whole in any one contact?
	for _, c := range candidates {
		headerOverhead := b.FragmentMinimumSize(bundle.FragmentFirst)
		avail := r.availablePayload(c, p, headerOverhead)
		if avail < 0 {
			continue
		}
		if uint64(avail) >= payloadLen {
			assignment := FragmentAssignment{
				Contact:        c,
				Position:       bundle.FragmentFirst,
				PayloadOffset:  0,
				PayloadLength:  payloadLen,
				HeaderOverhead: int64(headerOverhead),
			}
			r.commit(assignment, p)
			return StatusOK, &Plan{Assignments: []FragmentAssignment{assignment}, Priority: p}, nil
		}
	}

	if b.ProcessingFlags&bundle.FlagMustNotFragment != 0 {
		return StatusNoRoute, nil, bpaerr.New(bpaerr.NoRoute, "bundle too large and must-not-fragment is set")
	}

	plan, status, err := r.packFragments(b, candidates, p)
	if err != nil {
		return status, nil, err
	}
	for _, a := range plan.Assignments {
		r.commit(a, p)
	}
	return StatusOK, plan, nil
}

// candidateContacts resolves dest to an ordered (by ToMs) contact list,
// falling back to the destination's node-ID prefix (spec §4.3 step 1).
func (r *Router) candidateContacts(dest eid.EID, nowMs int64) []*routing.Contact {
	contacts := r.table.ContactsForEndpoint(dest)
	if len(contacts) == 0 {
		contacts = r.table.ContactsForEndpoint(dest.NodeID())
	}

	out := contacts[:0:0]
	for _, c := range contacts {
		if c.ToMs <= nowMs {
			continue
		}
		out = append(out, c)
	}
	return out
}

// availablePayload returns how much payload capacity a contact offers a
// fragment with the given header overhead, honoring the global
// FragmentMinPayload floor, the contact's own remaining capacity, the CLA's
// MBS, and the global MBS. Returns -1 if the contact cannot usefully carry
// any payload at all.
func (r *Router) availablePayload(c *routing.Contact, p routing.Priority, headerOverhead int) int64 {
	remaining := c.RemainingFor(p)
	if remaining == routing.InfiniteCapacity {
		remaining = r.cfg.MaximumBundleSize
	}

	avail := remaining - int64(headerOverhead)
	if avail < int64(r.cfg.FragmentMinPayload) {
		return -1
	}

	if r.claMBS != nil {
		if mbs := r.claMBS.MaxBundleSize(c.Node.ClaAddress); mbs > 0 && mbs < routing.InfiniteCapacity {
			claAvail := mbs - int64(headerOverhead)
			if claAvail < avail {
				avail = claAvail
			}
		}
	}
	if r.cfg.MaximumBundleSize > 0 && r.cfg.MaximumBundleSize < routing.InfiniteCapacity {
		globalAvail := r.cfg.MaximumBundleSize - int64(headerOverhead)
		if globalAvail < avail {
			avail = globalAvail
		}
	}
	if avail < int64(r.cfg.FragmentMinPayload) {
		return -1
	}
	return avail
}

// commit subtracts a's serialized fragment size from its contact's
// capacity counters, per spec §4.3's priority-cascade rule.
func (r *Router) commit(a FragmentAssignment, p routing.Priority) {
	adjustCapacity(a.Contact, p, -a.serializedSize())
}

// RemoveBundleFromContact reverses a prior commitment (spec §4.3: "on
// failed/cancelled transmission the inverse applies").
func (r *Router) RemoveBundleFromContact(a FragmentAssignment, p routing.Priority) {
	adjustCapacity(a.Contact, p, a.serializedSize())
}

func adjustCapacity(c *routing.Contact, p routing.Priority, delta int64) {
	if c.TotalCapacity == routing.InfiniteCapacity {
		return
	}
	c.RemainingP0 += delta
	if p >= routing.PriorityNormal {
		c.RemainingP1 += delta
	}
	if p >= routing.PriorityHigh {
		c.RemainingP2 += delta
	}
}
