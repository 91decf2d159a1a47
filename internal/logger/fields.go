package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Bundle identity
	// ========================================================================
	KeyComponent  = "component"   // which subsystem emitted the log line: bp, router, contactmgr, cla
	KeyBundleID   = "bundle_id"   // the bundle's extracted unique identifier
	KeySourceEID  = "source_eid"  // bundle source EID
	KeyDestEID    = "dest_eid"    // bundle destination EID
	KeyReportToID = "report_eid"  // bundle report-to EID
	KeyVersion    = "version"     // bundle protocol version, 6 or 7
	KeySeqNum     = "seqnum"      // bundle creation sequence number
	KeyCreated    = "created_ms"  // bundle creation timestamp, ms since the DTN epoch
	KeyLifetimeMs = "lifetime_ms" // bundle lifetime, ms
	KeyFragOffset = "frag_offset" // fragment offset, if fragmented
	KeyFragLen    = "frag_len"    // fragment payload length

	// ========================================================================
	// Dispatch outcome
	// ========================================================================
	KeyReason    = "reason"     // status-report / deletion reason code
	KeyRouteCode = "route_code" // router.RouteStatus result
	KeySinkID    = "sink_id"    // agent registry sink identifier

	// ========================================================================
	// Routing table / contacts
	// ========================================================================
	KeyNodeEID    = "node_eid"   // routing table node EID
	KeyClaAddr    = "cla_addr"   // CLA address (transport-specific)
	KeyFromMs     = "from_ms"    // contact window start, ms
	KeyToMs       = "to_ms"      // contact window end, ms
	KeyBitrate    = "bitrate"    // contact bitrate, bytes/s
	KeyPriority   = "priority"   // routing priority class: 0 (bulk), 1 (normal), 2 (expedited)
	KeyCapacity   = "capacity"   // remaining contact capacity, bytes

	// ========================================================================
	// CLA / link
	// ========================================================================
	KeyClaName   = "cla_name"   // CLA identifier, e.g. "mtcp", "tcpclv3"
	KeyLinkAddr  = "link_addr"  // established link's CLA address
	KeyQueueDepth = "queue_depth" // TX queue depth at enqueue/dequeue time

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorCode  = "error_code"  // numeric/symbolic error code
	KeyAttempt    = "attempt"     // retry attempt number
	KeyMaxRetries = "max_retries" // maximum retry attempts

	// ========================================================================
	// Persistence backends (optional bundle store)
	// ========================================================================
	KeyStoreName = "store_name" // named bundle store backend: badger, s3, none
	KeyBucket    = "bucket"     // S3 bucket name
	KeyKey       = "key"        // object key in the backing store
)

// ----------------------------------------------------------------------------
// Field constructors for type safety
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Component returns a slog.Attr naming the subsystem handling the bundle
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// BundleID returns a slog.Attr for a bundle's extracted unique identifier
func BundleID(id string) slog.Attr {
	return slog.String(KeyBundleID, id)
}

// SourceEID returns a slog.Attr for the bundle source EID
func SourceEID(eid string) slog.Attr {
	return slog.String(KeySourceEID, eid)
}

// DestEID returns a slog.Attr for the bundle destination EID
func DestEID(eid string) slog.Attr {
	return slog.String(KeyDestEID, eid)
}

// Reason returns a slog.Attr for a status-report/deletion reason code
func Reason(code string) slog.Attr {
	return slog.String(KeyReason, code)
}

// NodeEID returns a slog.Attr for a routing-table node EID
func NodeEID(eid string) slog.Attr {
	return slog.String(KeyNodeEID, eid)
}

// ClaAddr returns a slog.Attr for a CLA address
func ClaAddr(addr string) slog.Attr {
	return slog.String(KeyClaAddr, addr)
}

// Bitrate returns a slog.Attr for a contact bitrate in bytes/s
func Bitrate(bps int64) slog.Attr {
	return slog.Int64(KeyBitrate, bps)
}

// Priority returns a slog.Attr for a routing priority class
func Priority(p int) slog.Attr {
	return slog.Int(KeyPriority, p)
}

// DurationMs returns a slog.Attr for an operation duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error value
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
