package services

import "errors"

// Session service errors
var (
	// Figure errors
	ErrNoFigures       = errors.New("no figures rendered yet")
	ErrSlotNotRendered = errors.New("slot has no rendered figure")
	ErrEmptyFigure     = errors.New("figure is empty and cannot be captured")

	// Export errors
	ErrUnsupportedExportFormat = errors.New("unsupported export format")

	// Upload errors
	ErrNoUploads = errors.New("no files uploaded")

	// WebSocket errors
	ErrWebSocketUpgrade = errors.New("websocket upgrade failed")
	ErrWebSocketClosed  = errors.New("websocket connection closed")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
