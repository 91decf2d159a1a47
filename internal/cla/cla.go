// Package cla defines the Convergence-Layer Adapter abstraction (spec C5):
// a per-CLA vtable plus the generic per-link RX/TX task scaffolding that
// drives any implementation of it. Concrete transports (TCP-family,
// file-based) are out of scope; this package is the contract and the
// scaffolding every concrete CLA plugs into.
package cla

import (
	"context"

	"github.com/dtnkit/bpa/internal/bundle"
)

// MBSUnlimited is the sentinel "no maximum bundle size" value (spec §4.5
// "mbs ... or a sentinel for unlimited").
const MBSUnlimited int64 = -1

// ParseStatus is the framing parser's report after consuming RX bytes.
type ParseStatus int

const (
	// ParseNeedMore means the parser consumed the buffer (or a prefix of
	// it) but has not yet assembled a full bundle.
	ParseNeedMore ParseStatus = iota
	// ParseBundleReady means the parser completed a bundle; RawBundle in
	// the Result holds the assembled wire bytes.
	ParseBundleReady
	// ParseError means the framing state machine encountered malformed
	// input; the RX task must invoke DisconnectHandler.
	ParseError
)

// ParseResult is returned by RXForward.
type ParseResult struct {
	Status ParseStatus
	// Consumed is how many bytes of the input buffer the parser consumed.
	// The RX task re-feeds any unconsumed suffix on the next call.
	Consumed int
	RawBundle []byte
}

// Link identifies one established connection a CLA is driving RX/TX tasks
// for. CLAs mint their own opaque handle; the generic tasks only compare it
// for logging/identity.
type Link interface {
	// ID returns a stable identifier for this link (e.g. a UUID minted at
	// connect time), used only for logging and as a map key.
	ID() string
}

// CLA is the vtable every convergence-layer adapter implements (spec §4.5).
// The generic RX/TX task runners in this package operate against this
// interface alone, so a concrete transport plugs in without the core
// knowing its wire details.
type CLA interface {
	// Name returns the CLA identifier, e.g. "tcpclv3", "mtcp".
	Name() string

	// Launch starts the CLA's listener/connector task(s). Non-blocking.
	Launch(ctx context.Context) error

	// MBS returns the maximum bundle size this CLA supports per outgoing
	// transmission, or MBSUnlimited.
	MBS() int64

	// GetTXQueue returns the bounded TX queue for the link currently
	// serving claAddr, or ok=false if no link is active for it.
	GetTXQueue(eidStr, claAddr string) (*TXQueue, bool)

	// StartScheduledContact begins (or associates to an existing)
	// connection to claAddr. Idempotent for overlapping contacts.
	StartScheduledContact(eidStr, claAddr string) error

	// EndScheduledContact marks the connection opportunistic (kept) or
	// terminates it, per the CLA's own policy.
	EndScheduledContact(eidStr, claAddr string) error

	// BeginPacket/EndPacket/SendPacketData are the streaming framing
	// adapter the generic TX task drives while serializing a bundle.
	// Errors here must trigger DisconnectHandler.
	BeginPacket(link Link, length int) error
	SendPacketData(link Link, p []byte) (int, error)
	EndPacket(link Link) error

	// RXResetParsers reinitializes link's framing state machine (called
	// once at connect time and after a completed bundle).
	RXResetParsers(link Link)

	// RXForward feeds buf[:n] through link's framing parser.
	RXForward(link Link, buf []byte, n int) ParseResult

	// Read performs one byte-oriented read from link.
	Read(link Link, buf []byte) (int, error)

	// DisconnectHandler closes the transport and signals RX/TX
	// termination for link.
	DisconnectHandler(link Link)
}

// Command is one TX queue entry (spec §4.5 "commands = {bundles-list,
// cla-address} or finalize").
type Command struct {
	Bundles []*bundle.Bundle
	ClaAddr string
	// Finalize, when true, is a drain-and-exit instruction; Bundles is
	// ignored.
	Finalize bool
}

// TXQueue is a per-link bounded FIFO of Commands. A buffered Go channel
// already is both the bounded queue and the admission semaphore the spec
// describes as two separate primitives (capacity gates Enqueue the same
// way acquiring a semaphore token would).
type TXQueue struct {
	ch chan Command
}

// NewTXQueue constructs a TX queue with the given capacity.
func NewTXQueue(capacity int) *TXQueue {
	return &TXQueue{ch: make(chan Command, capacity)}
}

// Enqueue offers cmds as one command, returning false if the queue is full
// (spec §4.4's Contact Manager treats false as "retry later").
func (q *TXQueue) Enqueue(bundles []*bundle.Bundle) bool {
	select {
	case q.ch <- Command{Bundles: bundles}:
		return true
	default:
		return false
	}
}

// EnqueueFinalize offers a finalize command, blocking until there is room
// (finalize must never be silently dropped).
func (q *TXQueue) EnqueueFinalize() {
	q.ch <- Command{Finalize: true}
}

// Len returns the number of commands currently queued.
func (q *TXQueue) Len() int { return len(q.ch) }

// Receive blocks until a command is available or ctx is done.
func (q *TXQueue) Receive(ctx context.Context) (Command, bool) {
	select {
	case cmd := <-q.ch:
		return cmd, true
	case <-ctx.Done():
		return Command{}, false
	}
}

// Drain empties the queue, returning whatever commands were pending
// (spec §4.5 "finalize: drain remaining commands as failures").
func (q *TXQueue) Drain() []Command {
	var out []Command
	for {
		select {
		case cmd := <-q.ch:
			out = append(out, cmd)
		default:
			return out
		}
	}
}
