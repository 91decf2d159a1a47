package eid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSONRendersCanonicalString(t *testing.T) {
	e, err := Parse("dtn://node1/app")
	require.NoError(t, err)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Equal(t, `"dtn://node1/app"`, string(data))
}

func TestUnmarshalJSONRoundTrips(t *testing.T) {
	want, err := Parse("ipn:2.1")
	require.NoError(t, err)

	data, err := json.Marshal(want)
	require.NoError(t, err)

	var got EID
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, want.Equal(got))
	assert.Equal(t, want.String(), got.String())
}

func TestUnmarshalJSONRejectsMalformed(t *testing.T) {
	var e EID
	err := json.Unmarshal([]byte(`"not-an-eid"`), &e)
	assert.Error(t, err)
}

func TestMarshalUnmarshalInStruct(t *testing.T) {
	type wrapper struct {
		Source EID `json:"source"`
	}
	src, err := Parse("dtn://node1/app")
	require.NoError(t, err)

	data, err := json.Marshal(wrapper{Source: src})
	require.NoError(t, err)

	var got wrapper
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, src.String(), got.Source.String())
}
