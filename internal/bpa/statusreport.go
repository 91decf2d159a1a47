package bpa

import (
	"encoding/binary"

	"github.com/dtnkit/bpa/internal/bpaerr"
	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/pkg/eid"
)

// Reason is the BPv7 status-report reason code (§6.1.2), reused for BPv6's
// smaller equivalent set.
type Reason uint8

const (
	ReasonNoAdditionalInfo Reason = iota
	ReasonLifetimeExpired
	ReasonForwardedOverUnidirectionalLink
	ReasonTransmissionCancelled
	ReasonDepletedStorage
	ReasonDestEIDUnintelligible
	ReasonNoKnownRouteToDest
	ReasonNoTimelyContact
	ReasonBlockUnintelligible
	ReasonHopLimitExceeded
	ReasonTrafficPared
	ReasonBlockUnsupported
)

// String returns the reason's snake_case name, used as a metrics label.
func (r Reason) String() string {
	switch r {
	case ReasonLifetimeExpired:
		return "lifetime_expired"
	case ReasonForwardedOverUnidirectionalLink:
		return "forwarded_over_unidirectional_link"
	case ReasonTransmissionCancelled:
		return "transmission_cancelled"
	case ReasonDepletedStorage:
		return "depleted_storage"
	case ReasonDestEIDUnintelligible:
		return "dest_eid_unintelligible"
	case ReasonNoKnownRouteToDest:
		return "no_known_route_to_dest"
	case ReasonNoTimelyContact:
		return "no_timely_contact"
	case ReasonBlockUnintelligible:
		return "block_unintelligible"
	case ReasonHopLimitExceeded:
		return "hop_limit_exceeded"
	case ReasonTrafficPared:
		return "traffic_pared"
	case ReasonBlockUnsupported:
		return "block_unsupported"
	default:
		return "no_additional_info"
	}
}

// statusIndicator identifies which of the four status-report events (spec
// §4.6's "reception/forwarding/delivery/deletion") this report carries.
type statusIndicator uint8

const (
	statusReceived statusIndicator = 1 << iota
	statusForwarded
	statusDelivered
	statusDeleted
)

// buildStatusReport constructs a new administrative-record bundle reporting
// on subject, addressed to subject's report-to EID, originated by local
// (spec §4.6 "Status report generation"). The wire encoding of the report's
// logical fields is a fixed binary layout local to this agent — the BPv6/
// BPv7 administrative-record CBOR/SDNV encodings are the codec's concern
// (out of scope per spec §1) — but the fields carried (indicator, reason,
// subject identity, timestamp) match RFC 9171 §6.1.1's bundle status report.
//
// Returns nil if no report should be sent: report-to is null, "dtn:none",
// or shares local's node prefix (spec §4.6 "prevents loops").
func buildStatusReport(subject *bundle.Bundle, indicator statusIndicator, reason Reason, local eid.EID, nowMs int64) *bundle.Bundle {
	reportTo := subject.ReportToEID
	if reportTo.IsNull() || reportTo.SharesNodePrefix(local) {
		return nil
	}

	payload := encodeStatusReport(subject, indicator, reason, nowMs)
	b, err := bundle.NewLocalBundle(
		subject.Version,
		local,
		reportTo,
		eid.NullDTN,
		bundle.FlagAdminRecord,
		subject.LifetimeMs,
		nowMs,
		0,
		payload,
	)
	if err != nil {
		return nil
	}
	return b
}

// encodeStatusReport packs the report's logical fields: admin-record type
// (1B, always adminRecordTypeStatusReport so deliverAdminRecord can tell
// this apart from a BIBE-encapsulated bundle), indicator (1B), reason (1B),
// timestamp (8B), subject source EID (length-prefixed), subject creation
// timestamp (8B), subject sequence number (8B).
func encodeStatusReport(subject *bundle.Bundle, indicator statusIndicator, reason Reason, nowMs int64) []byte {
	srcStr := subject.SourceEID.String()
	buf := make([]byte, 0, 19+len(srcStr))
	buf = append(buf, byte(adminRecordTypeStatusReport), byte(indicator), byte(reason))
	buf = appendUint64(buf, uint64(nowMs))
	buf = appendUint64(buf, uint64(len(srcStr)))
	buf = append(buf, srcStr...)
	buf = appendUint64(buf, uint64(subject.CreationTimestampMs))
	buf = appendUint64(buf, subject.SequenceNumber)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// reasonForKind maps a bpaerr.Kind to the status-report reason it implies
// (spec §7's policy column).
func reasonForKind(kind bpaerr.Kind) Reason {
	switch kind {
	case bpaerr.Expired:
		return ReasonLifetimeExpired
	case bpaerr.HopLimitExceeded:
		return ReasonHopLimitExceeded
	case bpaerr.NoRoute, bpaerr.NoTimelyContact:
		return ReasonNoKnownRouteToDest
	case bpaerr.OutOfMemory:
		return ReasonDepletedStorage
	default:
		return ReasonNoAdditionalInfo
	}
}
