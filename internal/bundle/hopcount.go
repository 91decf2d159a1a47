package bundle

import "encoding/binary"

// decodeHopCount parses a hop-count block payload (BPv7 §4.3.4): two
// big-endian uint32s, limit then count.
func decodeHopCount(payload []byte) HopCountBlock {
	if len(payload) < 8 {
		return HopCountBlock{}
	}
	return HopCountBlock{
		Limit: binary.BigEndian.Uint32(payload[0:4]),
		Count: binary.BigEndian.Uint32(payload[4:8]),
	}
}

func encodeHopCount(h HopCountBlock) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], h.Limit)
	binary.BigEndian.PutUint32(buf[4:8], h.Count)
	return buf
}

// CheckAndIncrementHopCount implements the forward-path hop-count check
// (spec §4.6 "Validate hop-count block; if hop count reached limit ->
// delete with HOP_LIMIT_EXCEEDED; else increment"). A bundle with no
// hop-count block has no limit and always passes.
func (b *Bundle) CheckAndIncrementHopCount() (exceeded bool) {
	blk := b.FindBlock(BlockTypeHopCount)
	if blk == nil {
		return false
	}
	hc := decodeHopCount(blk.Payload)
	if hc.Count >= hc.Limit {
		return true
	}
	hc.Count++
	blk.Payload = encodeHopCount(hc)
	return false
}
