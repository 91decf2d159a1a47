package routing

import (
	"sort"

	"github.com/dtnkit/bpa/pkg/eid"
)

// indexNodeLocked registers every endpoint reachable via node (the node EID
// itself, its reachable-endpoint list, and each contact's extra endpoints)
// in the reverse index.
func (t *Table) indexNodeLocked(node *Node) {
	t.addEndpointRefLocked(node.EID)
	for _, e := range node.Endpoints {
		t.addEndpointRefLocked(e)
	}
	for _, c := range node.Contacts {
		t.indexContactLocked(node.EID.String(), c)
		for _, e := range c.ExtraEndpoints {
			t.addEndpointRefLocked(e)
		}
	}
}

// indexContactLocked adds c to the reverse-index contact lists for every
// endpoint that currently resolves to node nodeKey (its own EID, the node's
// reachable endpoints, and the contact's own extra endpoints).
func (t *Table) indexContactLocked(nodeKey string, c *Contact) {
	node := t.nodes[nodeKey]
	if node == nil {
		return
	}
	keys := make([]string, 0, 1+len(node.Endpoints)+len(c.ExtraEndpoints))
	keys = append(keys, node.EID.String())
	for _, e := range node.Endpoints {
		keys = append(keys, e.String())
	}
	for _, e := range c.ExtraEndpoints {
		keys = append(keys, e.String())
	}
	for _, k := range keys {
		entry := t.endpoints[k]
		if entry == nil {
			continue
		}
		entry.contacts = append(entry.contacts, c)
		sort.Slice(entry.contacts, func(i, j int) bool { return entry.contacts[i].ToMs < entry.contacts[j].ToMs })
	}
}

// reindexContactsForEndpointLocked rebuilds the reverse-index contact lists
// for every endpoint of node, used after a bulk merge where individual
// per-contact incremental indexing would be error-prone.
func (t *Table) reindexContactsForEndpointLocked(node *Node) {
	keys := []string{node.EID.String()}
	for _, e := range node.Endpoints {
		keys = append(keys, e.String())
	}
	for _, k := range keys {
		entry := t.endpoints[k]
		if entry == nil {
			continue
		}
		entry.contacts = contactsReachableViaKey(node, k)
	}
}

func contactsReachableViaKey(node *Node, key string) []*Contact {
	var out []*Contact
	nodeMatches := node.EID.String() == key
	endpointMatches := false
	for _, e := range node.Endpoints {
		if e.String() == key {
			endpointMatches = true
			break
		}
	}
	for _, c := range node.Contacts {
		if nodeMatches || endpointMatches {
			out = append(out, c)
			continue
		}
		for _, e := range c.ExtraEndpoints {
			if e.String() == key {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToMs < out[j].ToMs })
	return out
}

// addEndpointRefLocked increments the reference count of endpoint e's
// reverse-index entry, creating it if absent.
func (t *Table) addEndpointRefLocked(e eid.EID) {
	key := e.String()
	entry := t.endpoints[key]
	if entry == nil {
		entry = &endpointEntry{}
		t.endpoints[key] = entry
	}
	entry.refCount++
}

// releaseEndpointRefLocked decrements the reference count, deleting the
// entry at refcount 0 (spec §4.2: "entries vanish at refcount 0").
func (t *Table) releaseEndpointRefLocked(e eid.EID) {
	key := e.String()
	entry := t.endpoints[key]
	if entry == nil {
		return
	}
	entry.refCount--
	if entry.refCount <= 0 {
		delete(t.endpoints, key)
	}
}

// removeContactEndpointRefsLocked releases c's contribution to the reverse
// index (its node's endpoints plus its own extra endpoints), and removes c
// from those endpoint's contact lists.
func (t *Table) removeContactEndpointRefsLocked(node *Node, c *Contact) {
	keys := []string{node.EID.String()}
	for _, e := range node.Endpoints {
		keys = append(keys, e.String())
	}
	for _, e := range c.ExtraEndpoints {
		keys = append(keys, e.String())
		t.releaseEndpointRefLocked(e)
	}
	for _, k := range keys {
		entry := t.endpoints[k]
		if entry == nil {
			continue
		}
		for i, ec := range entry.contacts {
			if ec == c {
				entry.contacts = append(entry.contacts[:i], entry.contacts[i+1:]...)
				break
			}
		}
	}
}

// ContactsForEndpoint returns the ToMs-ordered contact list reachable via
// endpoint e, as used by the Router (spec §4.2: "Lookups used by the
// Router take from this index").
func (t *Table) ContactsForEndpoint(e eid.EID) []*Contact {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry := t.endpoints[e.String()]
	if entry == nil {
		return nil
	}
	return append([]*Contact(nil), entry.contacts...)
}
