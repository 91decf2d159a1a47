package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for bundle-processing spans.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Bundle identity attributes
	// ========================================================================
	AttrBundleID   = "bundle.id"
	AttrSourceEID  = "bundle.source_eid"
	AttrDestEID    = "bundle.dest_eid"
	AttrReportEID  = "bundle.report_eid"
	AttrVersion    = "bundle.version" // 6 or 7
	AttrSeqNum     = "bundle.seqnum"
	AttrCreated    = "bundle.created_ms"
	AttrLifetimeMs = "bundle.lifetime_ms"
	AttrFragOffset = "bundle.frag_offset"
	AttrFragLen    = "bundle.frag_len"
	AttrPayloadLen = "bundle.payload_len"

	// ========================================================================
	// Dispatch/processing attributes
	// ========================================================================
	AttrComponent = "bpa.component" // bp, router, contactmgr, cla
	AttrReason    = "bpa.reason"    // status report / deletion reason code
	AttrRouteCode = "bpa.route_code"
	AttrSinkID    = "bpa.sink_id"

	// ========================================================================
	// Routing table / contact attributes
	// ========================================================================
	AttrNodeEID  = "routing.node_eid"
	AttrFromMs   = "contact.from_ms"
	AttrToMs     = "contact.to_ms"
	AttrBitrate  = "contact.bitrate"
	AttrPriority = "bundle.priority"
	AttrCapacity = "contact.capacity"

	// ========================================================================
	// CLA / link attributes
	// ========================================================================
	AttrClaName    = "cla.name" // e.g. "mtcp", "tcpclv3"
	AttrClaAddr    = "cla.addr"
	AttrLinkAddr   = "link.addr"
	AttrQueueDepth = "link.queue_depth"

	// ========================================================================
	// Persistence backend attributes (optional bundle store)
	// ========================================================================
	AttrStoreName = "store.name"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"

	// ========================================================================
	// Operation metadata
	// ========================================================================
	AttrDurationMs = "op.duration_ms"
	AttrErrorCode  = "op.error_code"
	AttrAttempt    = "op.attempt"
	AttrMaxRetries = "op.max_retries"
)

// Span names for pipeline operations.
// Format: <component>.<operation>
const (
	// ========================================================================
	// Bundle processor spans
	// ========================================================================
	SpanBPReceive    = "bp.receive"
	SpanBPDispatch   = "bp.dispatch"
	SpanBPForward    = "bp.forward"
	SpanBPDeliver    = "bp.deliver"
	SpanBPDrop       = "bp.drop"
	SpanBPFragment   = "bp.fragment"
	SpanBPReassemble = "bp.reassemble"

	// ========================================================================
	// Router spans
	// ========================================================================
	SpanRouterLookup   = "router.lookup"
	SpanRouterEnqueue  = "router.enqueue"
	SpanRouterFragment = "router.fragment"

	// ========================================================================
	// Routing table spans
	// ========================================================================
	SpanRoutingTableAdd    = "routing_table.add"
	SpanRoutingTableRemove = "routing_table.remove"
	SpanRoutingTableQuery  = "routing_table.query"

	// ========================================================================
	// Contact manager spans
	// ========================================================================
	SpanContactActivate   = "contact.activate"
	SpanContactDeactivate = "contact.deactivate"
	SpanContactSchedule   = "contact.schedule"

	// ========================================================================
	// CLA spans
	// ========================================================================
	SpanCLASend    = "cla.send"
	SpanCLAReceive = "cla.receive"
	SpanCLAConnect = "cla.connect"
	SpanCLAClose   = "cla.close"

	// ========================================================================
	// Bundle store spans
	// ========================================================================
	SpanStorePut    = "store.put"
	SpanStoreGet    = "store.get"
	SpanStoreDelete = "store.delete"
)

// BundleID returns an attribute for a bundle's extracted unique identifier.
func BundleID(id string) attribute.KeyValue {
	return attribute.String(AttrBundleID, id)
}

// SourceEID returns an attribute for the bundle source EID.
func SourceEID(eid string) attribute.KeyValue {
	return attribute.String(AttrSourceEID, eid)
}

// DestEID returns an attribute for the bundle destination EID.
func DestEID(eid string) attribute.KeyValue {
	return attribute.String(AttrDestEID, eid)
}

// Version returns an attribute for the bundle protocol version.
func Version(v int) attribute.KeyValue {
	return attribute.Int(AttrVersion, v)
}

// PayloadLen returns an attribute for the payload block length.
func PayloadLen(n int) attribute.KeyValue {
	return attribute.Int64(AttrPayloadLen, int64(n))
}

// FragOffset returns an attribute for the fragment offset.
func FragOffset(offset uint64) attribute.KeyValue {
	return attribute.Int64(AttrFragOffset, int64(offset))
}

// FragLen returns an attribute for the fragment payload length.
func FragLen(length uint64) attribute.KeyValue {
	return attribute.Int64(AttrFragLen, int64(length))
}

// Component returns an attribute naming the subsystem handling the bundle.
func Component(name string) attribute.KeyValue {
	return attribute.String(AttrComponent, name)
}

// Reason returns an attribute for a status-report/deletion reason code.
func Reason(code string) attribute.KeyValue {
	return attribute.String(AttrReason, code)
}

// RouteCode returns an attribute for the router's dispatch result.
func RouteCode(code string) attribute.KeyValue {
	return attribute.String(AttrRouteCode, code)
}

// SinkID returns an attribute for the agent registry sink identifier.
func SinkID(id string) attribute.KeyValue {
	return attribute.String(AttrSinkID, id)
}

// NodeEID returns an attribute for a routing table node EID.
func NodeEID(eid string) attribute.KeyValue {
	return attribute.String(AttrNodeEID, eid)
}

// Bitrate returns an attribute for a contact bitrate in bytes/s.
func Bitrate(bps int64) attribute.KeyValue {
	return attribute.Int64(AttrBitrate, bps)
}

// Priority returns an attribute for a bundle's routing priority class.
func Priority(p int) attribute.KeyValue {
	return attribute.Int(AttrPriority, p)
}

// Capacity returns an attribute for remaining contact capacity in bytes.
func Capacity(bytes int64) attribute.KeyValue {
	return attribute.Int64(AttrCapacity, bytes)
}

// ClaName returns an attribute for a CLA identifier (e.g. "mtcp").
func ClaName(name string) attribute.KeyValue {
	return attribute.String(AttrClaName, name)
}

// ClaAddr returns an attribute for a CLA address (transport-specific).
func ClaAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClaAddr, addr)
}

// LinkAddr returns an attribute for an established link's CLA address.
func LinkAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrLinkAddr, addr)
}

// QueueDepth returns an attribute for a TX queue depth.
func QueueDepth(n int) attribute.KeyValue {
	return attribute.Int(AttrQueueDepth, n)
}

// StoreName returns an attribute for a named bundle store backend.
func StoreName(name string) attribute.KeyValue {
	return attribute.String(AttrStoreName, name)
}

// Bucket returns an attribute for an S3 bucket name.
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for a backing-store object key.
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Attempt returns an attribute for a retry attempt number.
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// StartBundleSpan starts a span for a bundle-processor pipeline stage.
// This is a convenience function that sets the common bundle-identity
// attributes shared by every stage.
func StartBundleSpan(ctx context.Context, spanName, bundleID, sourceEID, destEID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		BundleID(bundleID),
		SourceEID(sourceEID),
		DestEID(destEID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartRouterSpan starts a span for a router operation.
func StartRouterSpan(ctx context.Context, operation, bundleID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		BundleID(bundleID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "router."+operation, trace.WithAttributes(allAttrs...))
}

// StartContactSpan starts a span for a contact manager operation.
func StartContactSpan(ctx context.Context, operation, nodeEID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		NodeEID(nodeEID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "contact."+operation, trace.WithAttributes(allAttrs...))
}

// StartCLASpan starts a span for a convergence-layer adapter operation.
func StartCLASpan(ctx context.Context, operation, claName, linkAddr string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ClaName(claName),
		LinkAddr(linkAddr),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "cla."+operation, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a bundle store operation.
func StartStoreSpan(ctx context.Context, operation, storeName, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		StoreName(storeName),
		StorageKey(key),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "store."+operation, trace.WithAttributes(allAttrs...))
}

// FormatHandle renders an opaque identifier (e.g. a CLA contact handle) as hex,
// for attaching to span attributes without exposing raw bytes.
func FormatHandle(handle []byte) string {
	return fmt.Sprintf("%x", handle)
}
