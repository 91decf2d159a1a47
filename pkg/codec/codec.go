// Package codec defines the black-box bundle codec boundary (spec §6): a
// streaming parse/serialize interface the core calls into without ever
// knowing whether it is talking to BPv6 or BPv7 wire bytes. Concrete
// BPv6/BPv7 encoding is explicitly out of scope (spec §1 Non-goals); this
// package is the contract plus the version-dispatch scaffolding every
// concrete wire codec registers against.
package codec

import (
	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/internal/bpaerr"
)

// Status is the framing state a Parse call leaves the codec in.
type Status int

const (
	// Good means chunk was consumed but no bundle has completed yet.
	Good Status = iota
	// Done means Parse assembled a complete bundle and invoked SendBundle.
	Done
	// Error means the input is malformed; the caller must disconnect the link.
	Error
)

func (s Status) String() string {
	switch s {
	case Good:
		return "Good"
	case Done:
		return "Done"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// BulkReadRequest asks the caller to fill Buffer with RemainingBytes more
// wire bytes before calling Parse again with an empty chunk (spec §6: "on
// bulk-read, the caller must fill the provided buffer before calling parse
// again with an empty chunk"). Used by codecs that know a large fixed-size
// field (e.g. a payload block) is coming and want to skip the framer's
// normal byte-at-a-time accounting for it.
type BulkReadRequest struct {
	Buffer         []byte
	RemainingBytes int
}

// ReadResult is Parse's report after consuming (a prefix of) chunk.
type ReadResult struct {
	BytesConsumed   int
	Status          Status
	BulkReadRequest *BulkReadRequest
}

// SendBundleFunc is the caller-supplied closure a Codec invokes exactly
// once per completed bundle, on the call whose ReadResult.Status is Done.
type SendBundleFunc func(b *bundle.Bundle) error

// WriteFunc pushes serialized bytes to the transport. A short write or
// error aborts serialization; bytes already written through WriteFunc are
// not retracted (spec §6: "partial failures do not undo already-emitted
// bytes; transport must reset").
type WriteFunc func(p []byte) (int, error)

// Codec is one bundle-protocol version's wire parser/serializer, driven
// entirely through the streaming interface spec §6 describes. A Codec
// instance is per-link state: RX framing is incremental, so Parse
// accumulates partial input across calls.
type Codec interface {
	// Version reports which protocol version this codec implements.
	Version() bundle.Version

	// Parse consumes (a prefix of) chunk, advancing this codec's internal
	// framing state. On Status == Done it has already invoked send with
	// the assembled bundle. Reset must be called before reusing the codec
	// for a new bundle.
	Parse(chunk []byte, send SendBundleFunc) (ReadResult, error)

	// Reset reinitializes parsing state, called once per link at connect
	// time and again after each completed bundle (mirrors the CLA's own
	// RXResetParsers convention in internal/cla).
	Reset()

	// Serialize writes b's wire form via write, the inverse streaming
	// operation to Parse.
	Serialize(b *bundle.Bundle, write WriteFunc) error
}

// Sniff inspects the first byte of a not-yet-framed bundle to decide which
// version's codec should parse it (spec §6's "version-selected bundle
// parser"): a BPv6 primary block's SDNV-encoded version field starts with
// the literal value 6, while a BPv7 bundle is always a CBOR indefinite- or
// definite-length array, whose initial byte's major type is 4 (top 3 bits
// 0b100, i.e. 0x80-0x9f).
func Sniff(firstByte byte) (bundle.Version, bool) {
	switch {
	case firstByte == 0x06:
		return bundle.V6, true
	case firstByte&0xe0 == 0x80:
		return bundle.V7, true
	default:
		return 0, false
	}
}

// ErrUnknownVersion is returned by a Registry when Sniff cannot classify
// the leading byte of an inbound stream.
var ErrUnknownVersion = bpaerr.New(bpaerr.InvalidInput, "codec: unrecognized bundle version byte")
