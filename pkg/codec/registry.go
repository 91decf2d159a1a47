package codec

import (
	"fmt"
	"sync"

	"github.com/dtnkit/bpa/internal/bundle"
)

// Factory constructs a fresh, per-link Codec instance. Registered once per
// bundle-protocol version, since a Codec carries incremental framing state
// and must not be shared across links. cmd/bpa creates a Registry but
// registers no factories.
type Factory func() Codec

// Registry maps bundle-protocol versions to the Factory that builds a
// codec for them, and dispatches inbound wire bytes to the right one by
// sniffing the leading byte (spec §6's "version-selected bundle parser").
type Registry struct {
	mu        sync.RWMutex
	factories map[bundle.Version]Factory
}

// NewRegistry constructs an empty codec registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[bundle.Version]Factory)}
}

// Register associates version with factory, overwriting any prior
// registration for that version.
func (r *Registry) Register(version bundle.Version, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[version] = factory
}

// New builds a fresh codec for version, or an error if nothing is
// registered for it.
func (r *Registry) New(version bundle.Version) (Codec, error) {
	r.mu.RLock()
	factory, ok := r.factories[version]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("codec: no codec registered for version %d", version)
	}
	return factory(), nil
}

// NewForFirstByte sniffs version from firstByte and builds a codec for it.
func (r *Registry) NewForFirstByte(firstByte byte) (Codec, error) {
	version, ok := Sniff(firstByte)
	if !ok {
		return nil, ErrUnknownVersion
	}
	return r.New(version)
}

// Serialize picks b.Version's codec and serializes b through it; its shape
// matches internal/cla.Serializer, though cmd/bpa does not wire it into a CLA.
func (r *Registry) Serialize(b *bundle.Bundle, write WriteFunc) error {
	c, err := r.New(b.Version)
	if err != nil {
		return err
	}
	return c.Serialize(b, write)
}
