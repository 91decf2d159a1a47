package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds bundle-scoped logging context, threaded through the
// receive -> dispatch -> forward/deliver pipeline.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Component string    // which component is currently handling the bundle (bp, router, contactmgr, cla)
	BundleID  string    // extracted unique identifier, for correlating log lines across the pipeline
	SourceEID string    // bundle source EID
	DestEID   string    // bundle destination EID
	LinkAddr  string    // CLA address of the link involved, if any
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a bundle identified by bundleID.
func NewLogContext(bundleID string) *LogContext {
	return &LogContext{
		BundleID:  bundleID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Component: lc.Component,
		BundleID:  lc.BundleID,
		SourceEID: lc.SourceEID,
		DestEID:   lc.DestEID,
		LinkAddr:  lc.LinkAddr,
		StartTime: lc.StartTime,
	}
}

// WithComponent returns a copy with the active component set
func (lc *LogContext) WithComponent(component string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Component = component
	}
	return clone
}

// WithEIDs returns a copy with source/destination EIDs set
func (lc *LogContext) WithEIDs(source, dest string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SourceEID = source
		clone.DestEID = dest
	}
	return clone
}

// WithLink returns a copy with the CLA link address set
func (lc *LogContext) WithLink(addr string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.LinkAddr = addr
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
