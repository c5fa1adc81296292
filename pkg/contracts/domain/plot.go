package domain

import (
	"fmt"
)

// Slot count bounds for a session. The dashboard offers 1-4 charts and
// starts with two.
const (
	MinSlotCount     = 1
	MaxSlotCount     = 4
	DefaultSlotCount = 2
)

// RenderMode selects how a plot slot draws its series.
type RenderMode string

const (
	ModeLine    RenderMode = "line"
	ModeScatter RenderMode = "scatter"
)

// Valid reports whether the mode is one of the supported render modes.
func (m RenderMode) Valid() bool {
	return m == ModeLine || m == ModeScatter
}

// SpecField names a mutable PlotSpec field in a slot update event.
type SpecField string

const (
	FieldSource  SpecField = "source"
	FieldXColumn SpecField = "x_column"
	FieldYColumn SpecField = "y_column"
	FieldMode    SpecField = "mode"
)

// Valid reports whether the field is one of the updatable spec fields.
func (f SpecField) Valid() bool {
	switch f {
	case FieldSource, FieldXColumn, FieldYColumn, FieldMode:
		return true
	}
	return false
}

// PlotSpec is the configuration for one chart slot: which dataset it reads,
// which columns feed the axes, and how the series is drawn. Title is derived
// from the other fields and never set directly.
type PlotSpec struct {
	Source  string     `json:"source" validate:"required"`
	XColumn string     `json:"x_column" validate:"required"`
	YColumn string     `json:"y_column" validate:"required"`
	Mode    RenderMode `json:"mode" validate:"required,oneof=line scatter"`
	Title   string     `json:"title"`
}

// ComputeTitle derives the display title from the current source and axis
// selections.
func (s PlotSpec) ComputeTitle() string {
	return fmt.Sprintf("%s - %s vs %s", s.Source, s.YColumn, s.XColumn)
}

// GridColumn returns the dashboard grid column for a slot index. Slots flow
// into a fixed two-column grid; this is presentational only.
func GridColumn(slot int) int {
	return slot % 2
}
