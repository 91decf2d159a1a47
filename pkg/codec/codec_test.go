package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/pkg/eid"
)

// fakeCodec is a minimal test double satisfying Codec: it treats the first
// byte as the version tag (Registry.NewForFirstByte only sniffs it, so it
// is still the first byte of the chunk) and everything else as one opaque
// payload, completing in a single Parse call. Real BPv6/BPv7 codecs are out of scope for this package.
type fakeCodec struct {
	version bundle.Version
	buf     []byte
}

func newFakeCodec(v bundle.Version) *fakeCodec { return &fakeCodec{version: v} }

func (c *fakeCodec) Version() bundle.Version { return c.version }

func (c *fakeCodec) Reset() { c.buf = nil }

func (c *fakeCodec) Parse(chunk []byte, send SendBundleFunc) (ReadResult, error) {
	c.buf = append(c.buf, chunk...)

	local, _ := eid.Parse("dtn://local/")
	b, err := bundle.NewLocalBundle(c.version, local, local, eid.NullDTN, 0, 3600000, 0, 1, append([]byte(nil), c.buf[1:]...))
	if err != nil {
		return ReadResult{}, err
	}
	if err := send(b); err != nil {
		return ReadResult{}, err
	}
	return ReadResult{BytesConsumed: len(chunk), Status: Done}, nil
}

func (c *fakeCodec) Serialize(b *bundle.Bundle, write WriteFunc) error {
	versionByte := byte(0x06)
	if b.Version == bundle.V7 {
		versionByte = 0x80
	}
	payload := b.Payload()
	out := append([]byte{versionByte}, payload.Payload...)
	_, err := write(out)
	return err
}

func TestSniff(t *testing.T) {
	v, ok := Sniff(0x06)
	require.True(t, ok)
	require.Equal(t, bundle.V6, v)

	v, ok = Sniff(0x85)
	require.True(t, ok)
	require.Equal(t, bundle.V7, v)

	_, ok = Sniff(0xff)
	require.False(t, ok)
}

func TestRegistryParseFramedDispatchesByVersion(t *testing.T) {
	reg := NewRegistry()
	reg.Register(bundle.V6, func() Codec { return newFakeCodec(bundle.V6) })
	reg.Register(bundle.V7, func() Codec { return newFakeCodec(bundle.V7) })

	var got *bundle.Bundle
	send := func(b *bundle.Bundle) error { got = b; return nil }

	raw := append([]byte{0x06}, []byte("hello")...)
	require.NoError(t, reg.ParseFramed(raw, send))
	require.NotNil(t, got)
	require.Equal(t, bundle.V6, got.Version)
	require.Equal(t, []byte("hello"), got.Payload().Payload)

	got = nil
	raw7 := append([]byte{0x85}, []byte("world")...)
	require.NoError(t, reg.ParseFramed(raw7, send))
	require.NotNil(t, got)
	require.Equal(t, bundle.V7, got.Version)
}

func TestRegistryParseFramedUnknownVersion(t *testing.T) {
	reg := NewRegistry()
	err := reg.ParseFramed([]byte{0xff, 0x01}, func(*bundle.Bundle) error { return nil })
	require.ErrorIs(t, err, ErrUnknownVersion)
}

func TestRegistryParseFramedNoCodecRegistered(t *testing.T) {
	reg := NewRegistry()
	err := reg.ParseFramed([]byte{0x06, 0x01}, func(*bundle.Bundle) error { return nil })
	require.Error(t, err)
}

func TestRegistrySerializeRoundTrips(t *testing.T) {
	reg := NewRegistry()
	reg.Register(bundle.V6, func() Codec { return newFakeCodec(bundle.V6) })

	local, err := eid.Parse("dtn://local/")
	require.NoError(t, err)
	b, err := bundle.NewLocalBundle(bundle.V6, local, local, eid.NullDTN, 0, 3600000, 0, 1, []byte("payload"))
	require.NoError(t, err)

	var out []byte
	err = reg.Serialize(b, func(p []byte) (int, error) {
		out = append(out, p...)
		return len(p), nil
	})
	require.NoError(t, err)
	require.Equal(t, byte(0x06), out[0])
	require.Equal(t, []byte("payload"), out[1:])
}
