// Package domain contains the shared domain contracts for the DAQ
// interface: datasets decoded from telemetry uploads, plot slot
// configuration, rendered figures, and the diagnostics surfaced to users.
package domain

import (
	"time"
)

// ColumnKind classifies the scalar type inferred for a column at load time.
type ColumnKind string

const (
	ColumnKindNumeric  ColumnKind = "numeric"
	ColumnKindTemporal ColumnKind = "temporal"
	ColumnKindText     ColumnKind = "text"
)

// Column is one named series of scalar values within a dataset. Values
// preserves the raw cell text in row order; Floats is populated only for
// numeric columns and holds NaN where a cell is empty or unparseable.
type Column struct {
	Name   string     `json:"name" validate:"required"`
	Kind   ColumnKind `json:"kind"`
	Values []string   `json:"values"`
	Floats []float64  `json:"-"`
}

// Dataset is one uploaded file's decoded tabular contents, keyed by the
// file name it was uploaded under. Immutable after load.
type Dataset struct {
	Name      string    `json:"name" validate:"required"`
	Columns   []Column  `json:"columns"`
	RowCount  int       `json:"row_count"`
	SizeBytes int64     `json:"size_bytes"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// ColumnNames returns the column names in their original order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or false when the dataset has no such
// column.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the dataset contains the named column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.Column(name)
	return ok
}

// Rows materializes the dataset in row order for tabular previews. Cells
// keep their raw text exactly as decoded.
func (d *Dataset) Rows() [][]string {
	rows := make([][]string, d.RowCount)
	for r := 0; r < d.RowCount; r++ {
		row := make([]string, len(d.Columns))
		for c := range d.Columns {
			if r < len(d.Columns[c].Values) {
				row[c] = d.Columns[c].Values[r]
			}
		}
		rows[r] = row
	}
	return rows
}

// DatasetSummary is the listing view of a dataset: shape and column kinds
// without the cell payload.
type DatasetSummary struct {
	Name      string          `json:"name"`
	RowCount  int             `json:"row_count"`
	SizeBytes int64           `json:"size_bytes"`
	LoadedAt  time.Time       `json:"loaded_at"`
	Columns   []ColumnSummary `json:"columns"`
}

// ColumnSummary describes one column for dataset listings.
type ColumnSummary struct {
	Name     string     `json:"name"`
	Kind     ColumnKind `json:"kind"`
	NonEmpty int        `json:"non_empty"`
}

// Summarize builds the listing view for the dataset.
func (d *Dataset) Summarize() DatasetSummary {
	summary := DatasetSummary{
		Name:      d.Name,
		RowCount:  d.RowCount,
		SizeBytes: d.SizeBytes,
		LoadedAt:  d.LoadedAt,
		Columns:   make([]ColumnSummary, len(d.Columns)),
	}
	for i, c := range d.Columns {
		nonEmpty := 0
		for _, v := range c.Values {
			if v != "" {
				nonEmpty++
			}
		}
		summary.Columns[i] = ColumnSummary{Name: c.Name, Kind: c.Kind, NonEmpty: nonEmpty}
	}
	return summary
}
