// Package bundle implements the Bundle Entity Model (spec C1): a typed,
// version-agnostic representation of a bundle together with the utility
// operations the rest of the core needs (duplication, expiration,
// fragment sizing, unique-id extraction, ADU conversion).
//
// Concrete BPv6/BPv7 wire encoding is out of scope (spec §1); this package
// only defines the in-memory shape and the arithmetic the Router and
// Bundle Processor perform over it.
package bundle

import (
	"fmt"

	"github.com/dtnkit/bpa/pkg/eid"
)

// Version identifies which bundle protocol version produced a bundle.
type Version int

const (
	V6 Version = 6
	V7 Version = 7
)

// RetentionConstraint is a bitset naming why a bundle must not yet be freed.
type RetentionConstraint uint8

const (
	DispatchPending RetentionConstraint = 1 << iota
	ForwardPending
	ReassemblyPending
	CustodyAccepted
	Own
)

func (rc RetentionConstraint) Has(flag RetentionConstraint) bool { return rc&flag != 0 }
func (rc RetentionConstraint) IsZero() bool                      { return rc == 0 }

// ProcessingFlags is the BPv7 primary-block bundle-processing-control-flags
// bitset (a superset also used to model BPv6 equivalents).
type ProcessingFlags uint32

const (
	FlagIsFragment ProcessingFlags = 1 << iota
	FlagAdminRecord
	FlagMustNotFragment
	FlagAcknowledgementRequested
	FlagStatusTimeRequested
	FlagReportReception
	FlagReportForwarding
	FlagReportDelivery
	FlagReportDeletion
)

// BlockType identifies an extension block's semantic type.
type BlockType uint64

const (
	BlockTypePayload BlockType = 1
	BlockTypePreviousNode BlockType = 6
	BlockTypeBundleAge BlockType = 7
	BlockTypeHopCount BlockType = 10
)

// BlockFlags controls unprocessable-block handling (BPv7 §4.3.2).
type BlockFlags uint8

const (
	BlockFlagMustReplicate BlockFlags = 1 << iota
	BlockFlagReportIfUnprocessable
	BlockFlagDeleteBundleIfUnprocessable
	BlockFlagDiscardIfUnprocessable
)

// ExtensionBlock is one block in a bundle's ordered block list.
type ExtensionBlock struct {
	Type     BlockType
	Number   uint64
	Flags    BlockFlags
	CRCType  uint8
	Payload  []byte
	EIDRefs  []eid.EID // optional EID reference list
}

// HopCountBlock is the decoded payload of a BlockTypeHopCount block.
type HopCountBlock struct {
	Limit uint32
	Count uint32
}

// BundleAgeBlock is the decoded payload of a BlockTypeBundleAge block, in ms.
type BundleAgeBlock uint64

// Bundle is the in-memory representation of one bundle (or bundle fragment).
type Bundle struct {
	Version Version

	ProcessingFlags     ProcessingFlags
	RetentionConstraints RetentionConstraint

	SourceEID     eid.EID
	DestEID       eid.EID
	ReportToEID   eid.EID
	CustodianEID  eid.EID // current-custodian; unused (custody Non-goal) but modeled

	CRCType uint8

	CreationTimestampMs int64 // ms since the DTN epoch (2000-01-01T00:00:00Z)
	ReceptionTimestampMs int64 // ms, local wall clock; set exactly once by the BP
	SequenceNumber      uint64

	LifetimeMs int64

	FragmentOffset   uint64
	TotalADULength   uint64 // only meaningful when FlagIsFragment is set

	Blocks       []*ExtensionBlock
	PayloadIndex int // index into Blocks of the distinguished payload block; -1 if absent
}

// Payload returns the bundle's payload block, or nil if none is present
// (which would violate the C1 invariant and should never happen for a
// bundle that passed New*).
func (b *Bundle) Payload() *ExtensionBlock {
	if b.PayloadIndex < 0 || b.PayloadIndex >= len(b.Blocks) {
		return nil
	}
	return b.Blocks[b.PayloadIndex]
}

// PayloadLen returns the payload block's byte length, or 0 if absent.
func (b *Bundle) PayloadLen() int {
	if p := b.Payload(); p != nil {
		return len(p.Payload)
	}
	return 0
}

// NewLocalBundle constructs a bundle for local origination, taking ownership
// of payload regardless of outcome (spec §4.1): on validation failure the
// caller must treat payload as consumed.
func NewLocalBundle(version Version, source, dest, reportTo eid.EID, flags ProcessingFlags, lifetimeMs int64, creationMs int64, seqNum uint64, payload []byte) (*Bundle, error) {
	if dest.IsNull() {
		return nil, fmt.Errorf("bundle: invalid destination EID")
	}

	payloadBlock := &ExtensionBlock{
		Type:    BlockTypePayload,
		Number:  1,
		Payload: payload,
	}

	return &Bundle{
		Version:              version,
		ProcessingFlags:       flags,
		RetentionConstraints: DispatchPending | Own,
		SourceEID:            source,
		DestEID:              dest,
		ReportToEID:          reportTo,
		CreationTimestampMs:  creationMs,
		SequenceNumber:       seqNum,
		LifetimeMs:           lifetimeMs,
		Blocks:               []*ExtensionBlock{payloadBlock},
		PayloadIndex:         0,
	}, nil
}

// Duplicate returns a deep copy of b, used e.g. when fragmenting (the
// original's extension blocks are replicated per block-flag policy) or when
// handing a bundle to a contact's queued-bundle list that may outlive the
// original reference.
func (b *Bundle) Duplicate() *Bundle {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Blocks = make([]*ExtensionBlock, len(b.Blocks))
	for i, blk := range b.Blocks {
		blkCopy := *blk
		blkCopy.Payload = append([]byte(nil), blk.Payload...)
		blkCopy.EIDRefs = append([]eid.EID(nil), blk.EIDRefs...)
		cp.Blocks[i] = &blkCopy
	}
	return &cp
}

// UniqueID is the tuple identity defined by spec §3. Two bundles are the
// same fragment iff their UniqueID is equal; the same original ADU iff
// ADUKey is equal.
type UniqueID struct {
	Version             Version
	SourceEID           string
	CreationTimestampMs int64
	SequenceNumber      uint64
	FragmentOffset      uint64
	PayloadLength       int
}

// ADUKey identifies the original ADU a fragment belongs to, ignoring offset
// and length.
type ADUKey struct {
	Version             Version
	SourceEID           string
	CreationTimestampMs int64
	SequenceNumber      uint64
}

// ExtractUniqueID computes b's unique identifier.
func (b *Bundle) ExtractUniqueID() UniqueID {
	return UniqueID{
		Version:             b.Version,
		SourceEID:           b.SourceEID.String(),
		CreationTimestampMs: b.CreationTimestampMs,
		SequenceNumber:      b.SequenceNumber,
		FragmentOffset:      b.FragmentOffset,
		PayloadLength:       b.PayloadLen(),
	}
}

// ADUKey computes the key identifying b's original ADU (ignoring fragment
// offset/length), for grouping fragments into a reassembly slot.
func (b *Bundle) ADUKey() ADUKey {
	return ADUKey{
		Version:             b.Version,
		SourceEID:           b.SourceEID.String(),
		CreationTimestampMs: b.CreationTimestampMs,
		SequenceNumber:      b.SequenceNumber,
	}
}

// IsFragment reports whether b is a fragment of a larger ADU.
func (b *Bundle) IsFragment() bool {
	return b.ProcessingFlags&FlagIsFragment != 0
}

// ADU is the application data unit produced once a bundle (or its
// reassembled fragments) is ready for local delivery: addressing headers
// plus a payload buffer, decoupled from any source bundle's ownership.
type ADU struct {
	Source  eid.EID
	Dest    eid.EID
	Flags   ProcessingFlags
	Payload []byte
}

// ToADU detaches b's payload into a standalone ADU, per spec §4.1
// "convert-to-ADU ... detaching payload ownership from the bundle".
func (b *Bundle) ToADU() ADU {
	var payload []byte
	if p := b.Payload(); p != nil {
		payload = p.Payload
		p.Payload = nil
	}
	return ADU{
		Source:  b.SourceEID,
		Dest:    b.DestEID,
		Flags:   b.ProcessingFlags,
		Payload: payload,
	}
}

// FindBlock returns the first extension block of the given type, or nil.
func (b *Bundle) FindBlock(t BlockType) *ExtensionBlock {
	for _, blk := range b.Blocks {
		if blk.Type == t {
			return blk
		}
	}
	return nil
}
