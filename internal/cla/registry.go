package cla

import (
	"strings"
	"sync"

	"github.com/dtnkit/bpa/internal/contactmgr"
)

// BPNotifier is the subset of the Bundle Processor's signal intake a CLA
// drives directly: reporting the outcome of an attempted transmission and a
// link going down (spec §4.5's TRANSMISSION_SUCCESS / TRANSMISSION_FAILURE
// / LINK_DOWN signals). BUNDLE_INCOMING is raised by the RX task's Parser
// callback instead, once it has an assembled *bundle.Bundle in hand — this
// package only ever sees raw wire bytes, not parsed bundles.
type BPNotifier interface {
	TransmissionResult(cmd Command, success bool)
	ContactOver(claAddr string)
}

// Registry resolves CLA addresses to the CLA instance registered for their
// scheme prefix ("mtcp:1.2.3.4:4556" -> the "mtcp" CLA) and exposes the
// router's and contact manager's narrow views onto that.
//
// Multi-link CLAs additionally maintain their own hash table from full
// address to a contactParameters entry; that table lives per-CLA
// (see LinkTable) since only the CLA implementation knows how to construct
// a link for its transport. Registry only dispatches by scheme.
type Registry struct {
	mu   sync.RWMutex
	clas map[string]CLA // keyed by CLA name ("mtcp", "tcpclv3", ...)
}

// NewRegistry constructs an empty CLA registry.
func NewRegistry() *Registry {
	return &Registry{clas: make(map[string]CLA)}
}

// Register adds a CLA under its own Name().
func (r *Registry) Register(c CLA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clas[c.Name()] = c
}

// scheme extracts the CLA name prefix from a "<cla-name>:<addr>" address.
func scheme(claAddr string) string {
	i := strings.IndexByte(claAddr, ':')
	if i < 0 {
		return claAddr
	}
	return claAddr[:i]
}

// Resolve implements contactmgr.CLAResolver.
func (r *Registry) Resolve(claAddr string) (contactmgr.CLAHandle, bool) {
	r.mu.RLock()
	c, ok := r.clas[scheme(claAddr)]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return Handle{cla: c}, true
}

// MaxBundleSize implements router.ClaMaxBundleSizer.
func (r *Registry) MaxBundleSize(claAddr string) int64 {
	r.mu.RLock()
	c, ok := r.clas[scheme(claAddr)]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return c.MBS()
}

// Handle adapts a CLA to the narrow contactmgr.CLAHandle interface so the
// Contact Manager package does not need to import the full cla.CLA vtable.
type Handle struct {
	cla CLA
}

func (h Handle) StartScheduledContact(nodeAddr, claAddress string) error {
	return h.cla.StartScheduledContact(nodeAddr, claAddress)
}

func (h Handle) EndScheduledContact(nodeAddr, claAddress string) error {
	return h.cla.EndScheduledContact(nodeAddr, claAddress)
}

func (h Handle) GetTXQueue(nodeAddr, claAddress string) (contactmgr.TXQueue, bool) {
	q, ok := h.cla.GetTXQueue(nodeAddr, claAddress)
	if !ok {
		return nil, false
	}
	return q, true
}
