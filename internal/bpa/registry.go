package bpa

import (
	"github.com/dtnkit/bpa/internal/bpaerr"
	"github.com/dtnkit/bpa/internal/bundle"
)

// DeliveryCallback is the Agent interface's delivery entry point (spec §6):
// invoked by the Bundle Processor's own goroutine, so it must not block.
type DeliveryCallback func(adu bundle.ADU, param any)

// agentEntry is one registry slot (spec §3 Agent registry): sink id,
// optional shared secret, delivery callback, opaque parameter.
type agentEntry struct {
	sinkID   string
	secret   string
	callback DeliveryCallback
	param    any
}

// TokenVerifier authenticates an AGENT_REGISTER/AGENT_REGISTER_RPC call
// whose "secret" field carries a signed token (pkg/aap) rather than a bare
// shared secret: it must verify the token's signature, confirm it was
// issued for this exact sinkID/role, and return the underlying secret the
// registry's cross-role match check should compare against. When unset,
// the registry falls back to comparing secret as a plain string (spec §3's
// original "their secrets must match").
type TokenVerifier func(sinkID string, isSubscriber bool, token string) (secret string, err error)

// agentRegistry holds the two sink-id-keyed maps (subscribers vs RPC
// agents) the BP owns exclusively; no lock needed since only the BP
// goroutine ever touches it (spec §5 "owned exclusively by the BP task").
type agentRegistry struct {
	subscribers map[string]*agentEntry
	rpcAgents   map[string]*agentEntry
	verify      TokenVerifier
}

func newAgentRegistry() *agentRegistry {
	return &agentRegistry{
		subscribers: make(map[string]*agentEntry),
		rpcAgents:   make(map[string]*agentEntry),
	}
}

// SetVerifier wires a TokenVerifier in, switching Register from bare
// secret-string comparison to signed-token verification.
func (r *agentRegistry) SetVerifier(v TokenVerifier) { r.verify = v }

// Register adds an entry, enforcing "at most one subscriber and one RPC
// agent per sink id; if both exist their secrets must match" (spec §3).
func (r *agentRegistry) Register(sinkID string, isSubscriber bool, secret string, cb DeliveryCallback, param any) error {
	table := r.rpcAgents
	other := r.subscribers
	if isSubscriber {
		table, other = other, table
	}

	if _, exists := table[sinkID]; exists {
		return bpaerr.New(bpaerr.InvalidInput, "sink already registered for this role")
	}

	effective := secret
	if r.verify != nil {
		verified, err := r.verify(sinkID, isSubscriber, secret)
		if err != nil {
			return bpaerr.Newf(bpaerr.Unauthorized, "agent token verification failed: %v", err)
		}
		effective = verified
	}

	if peer, exists := other[sinkID]; exists && peer.secret != effective {
		return bpaerr.New(bpaerr.Unauthorized, "shared secret does not match existing registration for sink")
	}

	table[sinkID] = &agentEntry{sinkID: sinkID, secret: effective, callback: cb, param: param}
	return nil
}

// Deregister removes the entry for sinkID/role, if present.
func (r *agentRegistry) Deregister(sinkID string, isSubscriber bool) {
	if isSubscriber {
		delete(r.subscribers, sinkID)
		return
	}
	delete(r.rpcAgents, sinkID)
}

// Lookup resolves a sink id to a delivery target, preferring the
// subscriber over the RPC agent when both exist.
func (r *agentRegistry) Lookup(sinkID string) (*agentEntry, bool) {
	if e, ok := r.subscribers[sinkID]; ok {
		return e, true
	}
	e, ok := r.rpcAgents[sinkID]
	return e, ok
}
