package efientry

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Formats accepted by WriteDiagnostics.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Record is the flattened form of a Diagnostic used by the structured
// output formats.
type Record struct {
	File    string `json:"file" yaml:"file"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
	Kind    Kind   `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

func (ds Diagnostics) Records() []Record {
	recs := make([]Record, len(ds))
	for i, d := range ds {
		recs[i] = Record{
			File:    d.Pos.Filename,
			Line:    d.Pos.Line,
			Column:  d.Pos.Column,
			Kind:    d.Kind,
			Message: d.Message,
		}
	}
	return recs
}

// WriteDiagnostics prints ds in the named format.
func WriteDiagnostics(w io.Writer, ds Diagnostics, format string) error {
	switch format {
	case "", FormatText:
		for _, d := range ds {
			if _, err := fmt.Fprintln(w, d); err != nil {
				return err
			}
		}
		return nil
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Position", "Kind", "Message")
		for _, d := range ds {
			pos := d.Pos.Filename + ":" + strconv.Itoa(d.Pos.Line) + ":" + strconv.Itoa(d.Pos.Column)
			if err := table.Append(pos, d.Kind.String(), d.Message); err != nil {
				return err
			}
		}
		return table.Render()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ds.Records())
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ds.Records()); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("efientry: unknown format %q", format)
}
