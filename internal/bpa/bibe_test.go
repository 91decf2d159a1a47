package bpa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncapsulateDecapsulateBIBERoundTrip(t *testing.T) {
	hdr := BIBEHeader{Version: 1, Flags: 0x07}
	raw := []byte{0xAA, 0xBB, 0xCC}

	wire := encapsulateBIBE(hdr, raw)
	got, payload, ok := decapsulateBIBE(wire)

	require.True(t, ok)
	assert.Equal(t, hdr, got)
	assert.Equal(t, raw, payload)
}

func TestDecapsulateBIBERejectsStatusReportPayload(t *testing.T) {
	statusReportPayload := []byte{byte(adminRecordTypeStatusReport), 0x01, 0x00}

	_, _, ok := decapsulateBIBE(statusReportPayload)

	assert.False(t, ok)
}

func TestDecapsulateBIBERejectsShortPayload(t *testing.T) {
	_, _, ok := decapsulateBIBE([]byte{byte(adminRecordTypeEncapsulated), 0x01})
	assert.False(t, ok)
}
