package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, reg *prometheus.Registry) map[string]bool {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	m.RecordReceived()
	m.RecordForwarded()
	m.RecordDelivered()
	m.RecordDropped("lifetime_expired")
	m.RecordContactActivation()
	m.SetTXQueueDepth("mtcp:1.2.3.4:4556", 3)
	m.SetReassemblySlotCount(2)

	names := gatherNames(t, reg)
	for _, want := range []string{
		"bpa_bundles_received_total",
		"bpa_bundles_forwarded_total",
		"bpa_bundles_delivered_total",
		"bpa_bundles_dropped_total",
		"bpa_contact_activations_total",
		"bpa_tx_queue_depth",
		"bpa_reassembly_slot_count",
	} {
		assert.True(t, names[want], "expected metric %q to be registered", want)
	}
}

func TestNilMetricsMethodsDoNotPanic(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordReceived()
		m.RecordForwarded()
		m.RecordDelivered()
		m.RecordDropped("hop_limit_exceeded")
		m.RecordContactActivation()
		m.SetTXQueueDepth("link", 1)
		m.SetReassemblySlotCount(1)
	})
}

func TestNullMetricsReturnsNil(t *testing.T) {
	assert.Nil(t, NullMetrics())
}
