package domain

import (
	"time"
)

// RenderedFigure is the output of one renderer invocation for one slot.
// HTML holds a self-contained chart fragment; Empty marks the placeholder
// figure returned when a slot could not be drawn.
type RenderedFigure struct {
	Slot        int          `json:"slot"`
	GridColumn  int          `json:"grid_column"`
	Title       string       `json:"title"`
	Mode        RenderMode   `json:"mode"`
	Empty       bool         `json:"empty"`
	HTML        string       `json:"html"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	RenderedAt  time.Time    `json:"rendered_at"`
}

// FigureBatch is the result of one render trigger: exactly one figure per
// live slot, in slot order. Stale becomes true again as soon as any slot or
// dataset changes after the render.
type FigureBatch struct {
	SessionID  string           `json:"session_id"`
	Figures    []RenderedFigure `json:"figures"`
	RenderedAt time.Time        `json:"rendered_at"`
}
