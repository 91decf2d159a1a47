package bundle

// FragmentPosition identifies where in a multi-fragment sequence a
// fragment sits, since first/middle/last fragments carry different header
// overhead (the primary block's fragment-offset/total-adu-length fields
// only differ in presence; extension blocks may differ in which ones must
// be replicated per fragment per BPv7 §5.9).
type FragmentPosition int

const (
	FragmentFirst FragmentPosition = iota
	FragmentMiddle
	FragmentLast
)

// primaryBlockFixedOverhead is a conservative, version-independent estimate
// of the primary block's non-payload wire footprint (EIDs, timestamps,
// flags, CRC). The real figure is codec-specific (CBOR for BPv7, SDNV for
// BPv6); the core only needs a stable upper bound to reason about capacity,
// per spec §4.1's "assuming a known payload-size placeholder" contract.
const primaryBlockFixedOverhead = 64

// FragmentMinimumSize returns the byte count the primary block and
// replicated extension blocks would occupy in a fragment at the given
// position, excluding payload. The Router uses this to compute how much of
// a contact's remaining capacity is available for payload bytes.
func (b *Bundle) FragmentMinimumSize(pos FragmentPosition) int {
	size := primaryBlockFixedOverhead

	for _, blk := range b.Blocks {
		if blk.Type == BlockTypePayload {
			continue
		}
		if !mustReplicate(blk, pos) {
			continue
		}
		size += extensionBlockOverhead(blk)
	}

	return size
}

// mustReplicate decides whether blk needs to be carried in a fragment at
// pos. Blocks flagged MustReplicate always are; otherwise only the first
// fragment carries non-payload extension blocks (mirroring BPv7 §5.9's
// "replicate in every fragment" flag semantics, simplified: the core treats
// unflagged blocks as first-fragment-only, which is the common case for
// blocks like the hop-count block).
func mustReplicate(blk *ExtensionBlock, pos FragmentPosition) bool {
	if blk.Flags&BlockFlagMustReplicate != 0 {
		return true
	}
	return pos == FragmentFirst
}

// Fragment carves out a sub-bundle covering payload bytes [offset,
// offset+length) of b's original ADU, at the given position in the
// fragment sequence, replicating extension blocks per mustReplicate. The
// total-ADU-length recorded is b's own payload length unless b is itself
// already a fragment, in which case its TotalADULength is preserved.
func (b *Bundle) Fragment(pos FragmentPosition, offset, length uint64) *Bundle {
	frag := *b
	frag.ProcessingFlags |= FlagIsFragment
	frag.FragmentOffset = offset
	if b.IsFragment() {
		frag.TotalADULength = b.TotalADULength
	} else {
		frag.TotalADULength = uint64(b.PayloadLen())
	}

	payload := b.Payload()
	var slice []byte
	if payload != nil {
		slice = append([]byte(nil), payload.Payload[offset:offset+length]...)
	}

	frag.Blocks = nil
	for _, blk := range b.Blocks {
		if blk.Type == BlockTypePayload {
			continue
		}
		if !mustReplicate(blk, pos) {
			continue
		}
		cp := *blk
		cp.Payload = append([]byte(nil), blk.Payload...)
		frag.Blocks = append(frag.Blocks, &cp)
	}

	payloadBlock := &ExtensionBlock{Type: BlockTypePayload, Number: 1, Payload: slice}
	frag.Blocks = append(frag.Blocks, payloadBlock)
	frag.PayloadIndex = len(frag.Blocks) - 1

	return &frag
}

// extensionBlockOverhead estimates a block's non-payload wire footprint:
// block header fields (type, number, flags, CRC, length prefix) plus its
// own payload, since non-payload extension blocks are carried whole.
func extensionBlockOverhead(blk *ExtensionBlock) int {
	const blockHeaderFixedOverhead = 16
	return blockHeaderFixedOverhead + len(blk.Payload)
}
