// Package metrics provides Prometheus instrumentation for the Bundle
// Processor's receive/forward/deliver pipeline, contact activations, and
// per-link TX queue depth (SPEC_FULL.md §1.5).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks BPA-wide Prometheus metrics.
//
// All metrics use the bpa_ prefix. Every method handles a nil receiver as a
// no-op, so components can be constructed with NullMetrics() when metrics
// are disabled without branching at every call site.
type Metrics struct {
	// BundlesReceivedTotal counts bundles entering the receive path.
	BundlesReceivedTotal prometheus.Counter

	// BundlesForwardedTotal counts bundles successfully handed to a contact.
	BundlesForwardedTotal prometheus.Counter

	// BundlesDeliveredTotal counts bundles delivered to a local agent.
	BundlesDeliveredTotal prometheus.Counter

	// BundlesDroppedTotal counts bundle deletions, by reason.
	BundlesDroppedTotal *prometheus.CounterVec

	// ContactActivationsTotal counts contacts transitioning to Active.
	ContactActivationsTotal prometheus.Counter

	// TXQueueDepth tracks the current queue depth per CLA link.
	TXQueueDepth *prometheus.GaugeVec

	// ReassemblySlotCount tracks the number of in-progress fragment
	// reassembly slots.
	ReassemblySlotCount prometheus.Gauge
}

// NewMetrics creates BPA metrics with the bpa_ prefix and registers them
// against reg (typically prometheus.DefaultRegisterer).
//
// Panics if registration fails, which is expected only during
// initialization (e.g. a duplicate registration bug), matching the
// teacher's own MustRegister convention.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BundlesReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bpa_bundles_received_total",
			Help: "Total bundles entering the receive path.",
		}),
		BundlesForwardedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bpa_bundles_forwarded_total",
			Help: "Total bundles successfully handed to a contact for transmission.",
		}),
		BundlesDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bpa_bundles_delivered_total",
			Help: "Total bundles delivered to a local registered agent.",
		}),
		BundlesDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bpa_bundles_dropped_total",
				Help: "Total bundles deleted, by deletion reason.",
			},
			[]string{"reason"},
		),
		ContactActivationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bpa_contact_activations_total",
			Help: "Total contacts transitioning from scheduled to active.",
		}),
		TXQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bpa_tx_queue_depth",
				Help: "Current outbound queue depth, by CLA link.",
			},
			[]string{"link"},
		),
		ReassemblySlotCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bpa_reassembly_slot_count",
			Help: "Current number of in-progress fragment reassembly slots.",
		}),
	}

	reg.MustRegister(
		m.BundlesReceivedTotal,
		m.BundlesForwardedTotal,
		m.BundlesDeliveredTotal,
		m.BundlesDroppedTotal,
		m.ContactActivationsTotal,
		m.TXQueueDepth,
		m.ReassemblySlotCount,
	)

	return m
}

// RecordReceived increments the received-bundle counter.
func (m *Metrics) RecordReceived() {
	if m == nil {
		return
	}
	m.BundlesReceivedTotal.Inc()
}

// RecordForwarded increments the forwarded-bundle counter.
func (m *Metrics) RecordForwarded() {
	if m == nil {
		return
	}
	m.BundlesForwardedTotal.Inc()
}

// RecordDelivered increments the delivered-bundle counter.
func (m *Metrics) RecordDelivered() {
	if m == nil {
		return
	}
	m.BundlesDeliveredTotal.Inc()
}

// RecordDropped increments the dropped-bundle counter for reason.
func (m *Metrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.BundlesDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordContactActivation increments the contact-activation counter.
func (m *Metrics) RecordContactActivation() {
	if m == nil {
		return
	}
	m.ContactActivationsTotal.Inc()
}

// SetTXQueueDepth updates the TX queue depth gauge for link.
func (m *Metrics) SetTXQueueDepth(link string, depth int) {
	if m == nil {
		return
	}
	m.TXQueueDepth.WithLabelValues(link).Set(float64(depth))
}

// SetReassemblySlotCount updates the reassembly slot count gauge.
func (m *Metrics) SetReassemblySlotCount(count int) {
	if m == nil {
		return
	}
	m.ReassemblySlotCount.Set(float64(count))
}

// NullMetrics returns nil, which acts as a no-op metrics collector: every
// Metrics method handles a nil receiver gracefully.
func NullMetrics() *Metrics {
	return nil
}
