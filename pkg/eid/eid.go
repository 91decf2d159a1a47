// Package eid parses and validates DTN Endpoint Identifiers.
//
// An EID is a URI of scheme "dtn" or "ipn" naming a DTN endpoint. This
// package is a stable, reusable interface (unlike internal/bundle, which is
// specific to this agent's pipeline) so it lives under pkg/.
package eid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Scheme identifies the EID's URI scheme.
type Scheme int

const (
	SchemeDTN Scheme = iota
	SchemeIPN
)

func (s Scheme) String() string {
	if s == SchemeIPN {
		return "ipn"
	}
	return "dtn"
}

// EID is a parsed, validated endpoint identifier.
type EID struct {
	Scheme Scheme
	raw    string

	// dtn scheme
	dtnNodeName string // authority, e.g. "a" for "dtn://a/app"
	dtnDemux    string // path after authority, e.g. "/app"

	// ipn scheme
	ipnNode    uint64
	ipnService uint64
}

// NullDTN is the distinguished "no endpoint" EID, dtn:none.
var NullDTN = EID{Scheme: SchemeDTN, raw: "dtn:none", dtnNodeName: "none"}

// Parse validates and parses s into an EID. Malformed EIDs return errors
// wrapping ErrMalformed (errors.go), checkable by callers via errors.Is, per
// the teacher's convention of %w-wrapped, program-checkable errors.
func Parse(s string) (EID, error) {
	if s == "" {
		return EID{}, fmt.Errorf("eid: %w: empty string", ErrMalformed)
	}

	switch {
	case strings.HasPrefix(s, "dtn:"):
		return parseDTN(s)
	case strings.HasPrefix(s, "ipn:"):
		return parseIPN(s)
	default:
		return EID{}, fmt.Errorf("eid: %w: unknown scheme in %q", ErrMalformed, s)
	}
}

func parseDTN(s string) (EID, error) {
	rest := strings.TrimPrefix(s, "dtn:")
	if rest == "none" {
		return NullDTN, nil
	}
	if !strings.HasPrefix(rest, "//") {
		return EID{}, fmt.Errorf("eid: %w: dtn EID missing authority in %q", ErrMalformed, s)
	}
	rest = strings.TrimPrefix(rest, "//")
	if rest == "" {
		return EID{}, fmt.Errorf("eid: %w: dtn EID empty authority in %q", ErrMalformed, s)
	}

	slash := strings.IndexByte(rest, '/')
	var authority, demux string
	if slash < 0 {
		authority = rest
		demux = ""
	} else {
		authority = rest[:slash]
		demux = rest[slash:]
	}
	if authority == "" {
		return EID{}, fmt.Errorf("eid: %w: dtn EID empty node name in %q", ErrMalformed, s)
	}

	return EID{
		Scheme:      SchemeDTN,
		raw:         s,
		dtnNodeName: authority,
		dtnDemux:    demux,
	}, nil
}

func parseIPN(s string) (EID, error) {
	rest := strings.TrimPrefix(s, "ipn:")
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return EID{}, fmt.Errorf("eid: %w: ipn EID missing '.' in %q", ErrMalformed, s)
	}
	nodeStr, svcStr := rest[:dot], rest[dot+1:]
	node, err := strconv.ParseUint(nodeStr, 10, 64)
	if err != nil {
		return EID{}, fmt.Errorf("eid: %w: ipn node number %q: %v", ErrMalformed, nodeStr, err)
	}
	svc, err := strconv.ParseUint(svcStr, 10, 64)
	if err != nil {
		return EID{}, fmt.Errorf("eid: %w: ipn service number %q: %v", ErrMalformed, svcStr, err)
	}
	return EID{
		Scheme:     SchemeIPN,
		raw:        s,
		ipnNode:    node,
		ipnService: svc,
	}, nil
}

// String returns the canonical wire representation.
func (e EID) String() string {
	return e.raw
}

// IsNull reports whether e is the distinguished null endpoint (dtn:none).
func (e EID) IsNull() bool {
	return e.Scheme == SchemeDTN && e.dtnNodeName == "none"
}

// IsNodeID reports whether e names a node (as opposed to an application
// endpoint reachable through a node): for dtn, the demux part is empty or
// "/"; for ipn, the service number is 0.
//
// Per spec §9's open question, ipn:<n>.0 is tolerated as a valid local node
// ID, matching the source's behavior, even though a node ID conventionally
// ending in a zero service number could be mistaken for "null". We decide
// that open question by accepting it: see DESIGN.md.
func (e EID) IsNodeID() bool {
	switch e.Scheme {
	case SchemeDTN:
		return e.dtnDemux == "" || e.dtnDemux == "/"
	case SchemeIPN:
		return e.ipnService == 0
	default:
		return false
	}
}

// NodeID returns the node-identifying EID that would own e (stripping any
// application-specific demux/service component).
func (e EID) NodeID() EID {
	if e.IsNodeID() {
		return e
	}
	switch e.Scheme {
	case SchemeDTN:
		return EID{Scheme: SchemeDTN, raw: "dtn://" + e.dtnNodeName + "/", dtnNodeName: e.dtnNodeName, dtnDemux: "/"}
	case SchemeIPN:
		raw := fmt.Sprintf("ipn:%d.0", e.ipnNode)
		return EID{Scheme: SchemeIPN, raw: raw, ipnNode: e.ipnNode, ipnService: 0}
	default:
		return e
	}
}

// SharesNodePrefix reports whether e and local name the same node, i.e.
// whether a bundle addressed to e should be treated as locally destined by
// a BPA whose local node ID is local.
func (e EID) SharesNodePrefix(local EID) bool {
	if e.Scheme != local.Scheme {
		return false
	}
	switch e.Scheme {
	case SchemeDTN:
		return e.dtnNodeName == local.dtnNodeName
	case SchemeIPN:
		return e.ipnNode == local.ipnNode
	default:
		return false
	}
}

// Equal reports whether two EIDs have the same canonical representation.
func (e EID) Equal(other EID) bool {
	return e.raw == other.raw
}

// MarshalJSON renders e as its canonical URI string, so EIDs serialize
// naturally in persisted records and HTTP responses (internal/store,
// internal/adminapi) without exposing the unexported scheme-specific
// fields.
func (e EID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.raw)
}

// UnmarshalJSON parses e from its canonical URI string, the inverse of
// MarshalJSON.
func (e *EID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// SinkID returns the application-specific part of e used to key the agent
// registry (spec §6 "well-known sink ids"): the dtn demux with its leading
// slash trimmed, or the ipn service number as a decimal string.
func (e EID) SinkID() string {
	switch e.Scheme {
	case SchemeDTN:
		return strings.TrimPrefix(e.dtnDemux, "/")
	case SchemeIPN:
		return strconv.FormatUint(e.ipnService, 10)
	default:
		return ""
	}
}
