package bundle

import (
	"encoding/binary"
)

// ExpirationMs computes b's expiration deadline in ms, per spec §4.1:
//
//	creation != 0  -> creation + lifetime
//	creation == 0  -> now + lifetime - bundle_age - (now - reception)
//
// nowMs is the caller's current time (ms since the DTN epoch); the
// anonymous-source branch needs it because expiration is otherwise
// undefined until reception.
func (b *Bundle) ExpirationMs(nowMs int64) (int64, error) {
	if b.CreationTimestampMs != 0 {
		return b.CreationTimestampMs + b.LifetimeMs, nil
	}

	ageBlk := b.FindBlock(BlockTypeBundleAge)
	if ageBlk == nil {
		return 0, errAnonymousNoAge
	}
	age := decodeBundleAge(ageBlk.Payload)
	elapsedSinceReception := nowMs - b.ReceptionTimestampMs
	return nowMs + b.LifetimeMs - int64(age) - elapsedSinceReception, nil
}

// IsExpired reports whether b's expiration deadline has passed as of nowMs.
func (b *Bundle) IsExpired(nowMs int64) bool {
	exp, err := b.ExpirationMs(nowMs)
	if err != nil {
		// Anonymous source with no bundle-age block: spec §8 boundary
		// behavior says this must be rejected as InvalidInput upstream;
		// from the expiration check alone we conservatively treat it as
		// expired so it cannot silently bypass retention cleanup.
		return true
	}
	return exp < nowMs
}

func decodeBundleAge(payload []byte) uint64 {
	if len(payload) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(payload[:8])
}

func encodeBundleAge(age uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, age)
	return buf
}

// UpdateBundleAgeBlock refreshes (or creates) b's bundle-age extension
// block to reflect elapsed time since reception, as the CLA TX task does
// immediately before every transmission (spec §4.5 TX task step).
func (b *Bundle) UpdateBundleAgeBlock(nowMs int64) {
	age := uint64(0)
	if b.ReceptionTimestampMs != 0 && nowMs > b.ReceptionTimestampMs {
		age = uint64(nowMs - b.ReceptionTimestampMs)
	}

	blk := b.FindBlock(BlockTypeBundleAge)
	if blk == nil {
		blk = &ExtensionBlock{Type: BlockTypeBundleAge, Number: b.nextBlockNumber()}
		b.insertBeforePayload(blk)
	}
	blk.Payload = encodeBundleAge(age)
}

// UpdatePreviousNodeBlock refreshes (or creates) b's previous-node extension
// block to localEID immediately before transmission, mirroring the
// bundle-age refresh above (spec SUPPLEMENTED FEATURES: the CLA TX task
// rewrites this block on every hop in addition to bundle age).
func (b *Bundle) UpdatePreviousNodeBlock(localEID []byte) {
	blk := b.FindBlock(BlockTypePreviousNode)
	if blk == nil {
		blk = &ExtensionBlock{Type: BlockTypePreviousNode, Number: b.nextBlockNumber()}
		b.insertBeforePayload(blk)
	}
	blk.Payload = localEID
}

func (b *Bundle) nextBlockNumber() uint64 {
	max := uint64(0)
	for _, blk := range b.Blocks {
		if blk.Number > max {
			max = blk.Number
		}
	}
	return max + 1
}

// insertBeforePayload inserts blk into b.Blocks immediately before the
// payload block, preserving the C1 invariant that payload is last in wire
// order.
func (b *Bundle) insertBeforePayload(blk *ExtensionBlock) {
	idx := b.PayloadIndex
	if idx < 0 || idx > len(b.Blocks) {
		b.Blocks = append(b.Blocks, blk)
		return
	}
	b.Blocks = append(b.Blocks[:idx], append([]*ExtensionBlock{blk}, b.Blocks[idx:]...)...)
	b.PayloadIndex = idx + 1
}
