package bundle

import "github.com/dtnkit/bpa/pkg/eid"

// Store is the optional persistence hook spec §6 leaves as an interface
// with "no implementation commitment": the core stays memory-resident
// (spec §1 Non-goal: persistent bundle storage), but a Store can be
// plugged in underneath it to survive a restart without losing queued
// bundles or monotonic counters.
//
// Implementations: internal/store/badger (embedded KV) and
// internal/store/s3 (payload offload for oversized bundles). Both are
// optional; the Bundle Processor and Contact Manager never require one.
type Store interface {
	// Init prepares the store for use, scoped to identifier (e.g. the
	// local node EID), so multiple BPA instances can share a backend
	// without colliding.
	Init(identifier string) error

	// StoreBundle persists b so it can later be retrieved by
	// PopSequenceFor or PopSequenceNext.
	StoreBundle(b *Bundle) error

	// PopSequenceFor removes and returns the oldest stored bundle destined
	// for destination's node, if any.
	PopSequenceFor(destination eid.EID) (*Bundle, bool, error)

	// PopSequenceNext removes and returns the oldest stored bundle
	// regardless of destination, if any.
	PopSequenceNext() (*Bundle, bool, error)

	// SetUint64/GetUint64 persist small scalar state (e.g. the next
	// sequence number to hand out) alongside the bundle queue.
	SetUint64(key string, value uint64) error
	GetUint64(key string) (value uint64, ok bool, err error)

	// Close releases any underlying resources.
	Close() error
}
