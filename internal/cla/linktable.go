package cla

import (
	"sync"

	"github.com/google/uuid"
)

// ContactParameters is the per-link state a multi-link (TCP-family) CLA
// keeps behind its address-keyed hash table (spec §4.5 "Multi-link CLAs").
// Concrete CLAs embed this and add their own transport fields (socket,
// framing state); LinkTable only owns the identity, the queue, and the
// opportunistic flag shared by every transport.
type ContactParameters struct {
	mu sync.Mutex

	LinkID        string // minted once at link creation, stable identity
	Address       string // the full CLA address this link serves
	Opportunistic bool
	Queue         *TXQueue
}

// ID implements the Link interface.
func (p *ContactParameters) ID() string { return p.LinkID }

// newContactParameters mints a fresh entry with a UUID identity.
func newContactParameters(address string, queueCapacity int) *ContactParameters {
	return &ContactParameters{
		LinkID:  uuid.NewString(),
		Address: address,
		Queue:   NewTXQueue(queueCapacity),
	}
}

// LinkTable is the hash table from CLA address to ContactParameters that
// every multi-link CLA maintains (spec §4.5). Creation races — two
// concurrent start-scheduled-contact calls for the same address — are
// resolved by the table's own mutex: the loser finds the winner's entry and
// marks it non-opportunistic, exactly as the spec describes.
type LinkTable struct {
	mu      sync.Mutex
	entries map[string]*ContactParameters
}

// NewLinkTable constructs an empty link table.
func NewLinkTable() *LinkTable {
	return &LinkTable{entries: make(map[string]*ContactParameters)}
}

// GetOrCreate returns the existing entry for address, or creates one. When
// a race is lost (the entry already existed), the winner's entry has its
// Opportunistic flag cleared, matching "the second call finds the existing
// entry and simply marks it non-opportunistic."
func (t *LinkTable) GetOrCreate(address string, queueCapacity int) (*ContactParameters, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[address]; ok {
		existing.mu.Lock()
		existing.Opportunistic = false
		existing.mu.Unlock()
		return existing, false
	}

	entry := newContactParameters(address, queueCapacity)
	t.entries[address] = entry
	return entry, true
}

// Get returns the entry for address, if any.
func (t *LinkTable) Get(address string) (*ContactParameters, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[address]
	return e, ok
}

// Remove deletes the entry for address (called from DisconnectHandler).
func (t *LinkTable) Remove(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, address)
}

// SetOpportunistic updates an entry's opportunistic flag under its own lock.
func (t *LinkTable) SetOpportunistic(address string, opportunistic bool) {
	t.mu.Lock()
	e, ok := t.entries[address]
	t.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.Opportunistic = opportunistic
	e.mu.Unlock()
}
