package routing

import (
	"sort"

	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/pkg/eid"
)

// AddNode inserts node, or unions it into an existing node with the same
// EID (spec §4.2): CLA address replaced iff the new one is non-empty,
// endpoints set-unioned, contacts merged pairwise (overlap -> merge in
// place; disjoint -> inserted ordered by FromMs). Contacts whose remaining
// P0 capacity goes negative after the merge are rescheduled via the
// injected hook.
func (t *Table) AddNode(node *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addNodeLocked(node)
}

func (t *Table) addNodeLocked(node *Node) {
	key := node.EID.String()
	existing, ok := t.nodes[key]
	if !ok {
		t.nodes[key] = node
		t.indexNodeLocked(node)
		return
	}

	if node.ClaAddress != "" {
		existing.ClaAddress = node.ClaAddress
	}
	newEndpoints := diffEIDs(node.Endpoints, existing.Endpoints)
	for _, e := range newEndpoints {
		t.addEndpointRefLocked(e)
	}
	existing.Endpoints = unionEIDs(existing.Endpoints, node.Endpoints)

	var rescheduleCandidates []*Contact
	for _, nc := range node.Contacts {
		merged := false
		for _, ec := range existing.Contacts {
			if ec.Overlaps(nc) {
				ec.merge(nc)
				if ec.RemainingP0 < 0 {
					rescheduleCandidates = append(rescheduleCandidates, ec)
				}
				merged = true
				break
			}
		}
		if !merged {
			existing.Contacts = append(existing.Contacts, nc)
			for _, e := range nc.ExtraEndpoints {
				t.addEndpointRefLocked(e)
			}
			t.indexContactLocked(existing.EID.String(), nc)
		}
	}
	sort.Slice(existing.Contacts, func(i, j int) bool {
		return existing.Contacts[i].FromMs < existing.Contacts[j].FromMs
	})
	t.reindexContactsForEndpointLocked(existing)

	if t.reschedule != nil {
		for _, c := range rescheduleCandidates {
			t.reschedule(c.QueuedBundles)
		}
	}
}

// diffEIDs returns entries of candidate not already present in existing.
func diffEIDs(candidate, existing []eid.EID) []eid.EID {
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[e.String()] = struct{}{}
	}
	var out []eid.EID
	for _, e := range candidate {
		if _, ok := seen[e.String()]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// ReplaceNode is delete-then-add, but routes any displaced bundles through
// the rescheduling hook rather than silently dropping them (spec §4.2).
func (t *Table) ReplaceNode(node *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := node.EID.String()
	if existing, ok := t.nodes[key]; ok {
		var displaced []*bundle.Bundle
		for _, c := range existing.Contacts {
			displaced = append(displaced, c.QueuedBundles...)
		}
		t.deleteNodeLocked(existing.EID, nil, nil)
		if t.reschedule != nil && len(displaced) > 0 {
			t.reschedule(displaced)
		}
	}
	t.addNodeLocked(node)
}

// DeleteNode removes a node (if endpoints and contacts are both empty) or
// just the listed endpoints/contacts (spec §4.2). Contact match is exact
// (FromMs, ToMs).
func (t *Table) DeleteNode(nodeEID eid.EID, endpoints []eid.EID, contactWindows [][2]int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleteNodeLocked(nodeEID, endpoints, contactWindows)
}

func (t *Table) deleteNodeLocked(nodeEID eid.EID, endpoints []eid.EID, contactWindows [][2]int64) {
	key := nodeEID.String()
	node, ok := t.nodes[key]
	if !ok {
		return
	}

	if len(endpoints) == 0 && len(contactWindows) == 0 {
		for _, c := range node.Contacts {
			if c.Active {
				// Active contacts are detached, not freed, per spec §3:
				// "it is detached and freed on contact-end."
				c.Node = nil
				continue
			}
			t.removeContactEndpointRefsLocked(node, c)
		}
		for _, e := range node.Endpoints {
			t.releaseEndpointRefLocked(e)
		}
		t.releaseEndpointRefLocked(node.EID)
		delete(t.nodes, key)
		return
	}

	for _, e := range endpoints {
		node.Endpoints = removeEID(node.Endpoints, e)
		t.releaseEndpointRefLocked(e)
	}
	for _, win := range contactWindows {
		idx := -1
		for i, c := range node.Contacts {
			if c.FromMs == win[0] && c.ToMs == win[1] {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		c := node.Contacts[idx]
		if c.Active {
			c.Node = nil
		} else {
			t.removeContactEndpointRefsLocked(node, c)
		}
		node.Contacts = append(node.Contacts[:idx], node.Contacts[idx+1:]...)
	}
}

func removeEID(list []eid.EID, target eid.EID) []eid.EID {
	out := list[:0]
	for _, e := range list {
		if !e.Equal(target) {
			out = append(out, e)
		}
	}
	return out
}

// DeleteContact removes one contact from its node by exact time window.
func (t *Table) DeleteContact(nodeEID eid.EID, fromMs, toMs int64) {
	t.DeleteNode(nodeEID, nil, [][2]int64{{fromMs, toMs}})
}

// OnContactPassed finalizes a contact once its time window has elapsed:
// clears Active and, if its owning node was already deleted (the contact
// was detached), frees the contact's remaining references.
func (t *Table) OnContactPassed(c *Contact) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c.Active = false
	if c.Node == nil {
		// Detached: its node was deleted while this contact was active.
		return
	}
	node := c.Node
	for i, nc := range node.Contacts {
		if nc == c {
			node.Contacts = append(node.Contacts[:i], node.Contacts[i+1:]...)
			break
		}
	}
	t.removeContactEndpointRefsLocked(node, c)
}

// LookupByEID returns the node registered under eid, if any.
func (t *Table) LookupByEID(target eid.EID) (*Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[target.String()]
	return n, ok
}

// IterateNodes calls fn for every node, in unspecified order, stopping
// early if fn returns false.
func (t *Table) IterateNodes(fn func(*Node) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range t.nodes {
		if !fn(n) {
			return
		}
	}
}
