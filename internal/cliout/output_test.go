package cliout

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":      FormatTable,
		"table": FormatTable,
		"json":  FormatJSON,
		"yaml":  FormatYAML,
		"yml":   FormatYAML,
		"JSON":  FormatJSON,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestPrintTable(t *testing.T) {
	rows := NewRows("A", "B")
	rows.Add("1", "2")
	rows.Add("3", "4")

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, rows))
	out := buf.String()
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "4")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatJSON, map[string]string{"k": "v"}))
	assert.Contains(t, buf.String(), `"k": "v"`)
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatYAML, map[string]string{"k": "v"}))
	assert.Contains(t, buf.String(), "k: v")
}

func TestPrintFallsBackToJSONWhenNotATableRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, map[string]string{"k": "v"}))
	assert.Contains(t, buf.String(), "k")
}
