package bpa

// BIBEHeader is the 2-byte encapsulation header archipel-core's cla_bibe.c
// and bibe_proto.c prepend to an encapsulated bundle (SPEC_FULL.md
// SUPPLEMENTED FEATURES: administrative records of type 3 or 7).
type BIBEHeader struct {
	Version uint8
	Flags   uint8
}

// adminRecordType is the RFC 9171 §6.1.1 "administrative record type code"
// carried as this agent's admin-record payloads' leading byte, so
// deliverAdminRecord can tell a status report from a BIBE-encapsulated
// bundle without a full CBOR decode.
type adminRecordType uint8

const (
	adminRecordTypeStatusReport adminRecordType = 1
	adminRecordTypeCustodySignal adminRecordType = 3
	adminRecordTypeEncapsulated  adminRecordType = 7

	// SinkBIBE is the well-known sink name for BIBE-delivered bundles
	// (spec §6 "well-known sink IDs").
	SinkBIBE = "bibe"
	// SinkBIBENumeric is the ipn-scheme numeric equivalent.
	SinkBIBENumeric = "2925"
)

// decapsulateBIBE strips payload's leading record-type byte and 2-byte
// {version, flags} header, returning the encapsulated bundle's raw bytes
// for re-dispatch. ok is false for anything but an encapsulated-bundle
// admin record.
func decapsulateBIBE(payload []byte) (BIBEHeader, []byte, bool) {
	if len(payload) < 3 || adminRecordType(payload[0]) != adminRecordTypeEncapsulated {
		return BIBEHeader{}, nil, false
	}
	hdr := BIBEHeader{Version: payload[1], Flags: payload[2]}
	return hdr, payload[3:], true
}

// encapsulateBIBE prepends hdr to raw, the inverse of decapsulateBIBE, used
// when this agent originates a BIBE-encapsulated bundle.
func encapsulateBIBE(hdr BIBEHeader, raw []byte) []byte {
	out := make([]byte, 0, 3+len(raw))
	out = append(out, byte(adminRecordTypeEncapsulated), hdr.Version, hdr.Flags)
	return append(out, raw...)
}
