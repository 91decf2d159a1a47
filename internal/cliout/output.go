// Package cliout formats bpa CLI command output as a table, JSON, or YAML,
// selected by each command's --format flag.
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Format is an output format a command can be asked to render in.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses --format's value, defaulting to table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

// TableRenderer is implemented by values that can lay themselves out as a
// table; used by Print when Format is FormatTable.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// Print writes data to w in the given format. Table format requires data to
// implement TableRenderer; anything else falls back to JSON.
func Print(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		enc.SetIndent(2)
		return enc.Encode(data)
	default:
		renderer, ok := data.(TableRenderer)
		if !ok {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		}
		return printTable(w, renderer)
	}
}

func printTable(w io.Writer, data TableRenderer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(data.Headers())
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	for _, row := range data.Rows() {
		table.Append(row)
	}
	table.Render()
	return nil
}

// Rows is a TableRenderer built from plain headers/rows, for ad-hoc tables.
type Rows struct {
	headers []string
	rows    [][]string
}

// NewRows builds a Rows table with the given column headers.
func NewRows(headers ...string) *Rows {
	return &Rows{headers: headers}
}

// Add appends a data row.
func (r *Rows) Add(cols ...string) {
	r.rows = append(r.rows, cols)
}

func (r *Rows) Headers() []string  { return r.headers }
func (r *Rows) Rows() [][]string   { return r.rows }
