// Package events contains the event contracts pushed over the WebSocket
// channel while a session is being loaded, configured, and rendered.
package events

import (
	"time"

	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message.
type MessageType string

const (
	// Connection lifecycle
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"

	// Session lifecycle
	MessageTypeSessionCreated MessageType = "session:created"
	MessageTypeSessionEnded   MessageType = "session:ended"

	// Upload surface: one diagnostic message per failed file, one loaded
	// message per dataset that survived decoding.
	MessageTypeDatasetLoaded    MessageType = "dataset:loaded"
	MessageTypeUploadDiagnostic MessageType = "upload:diagnostic"

	// Plot configuration: slot:updated fires on every accepted change,
	// config:diagnostic carries the stale-column notices a source change
	// produces.
	MessageTypeSlotsResized     MessageType = "slots:resized"
	MessageTypeSlotUpdated      MessageType = "slot:updated"
	MessageTypeConfigDiagnostic MessageType = "config:diagnostic"

	// Render trigger lifecycle
	MessageTypeRenderStarted    MessageType = "render:started"
	MessageTypeRenderCompleted  MessageType = "render:completed"
	MessageTypeRenderDiagnostic MessageType = "render:diagnostic"
)

// Message is the envelope for every event broadcast to dashboard clients.
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// DatasetLoadedData accompanies MessageTypeDatasetLoaded.
type DatasetLoadedData struct {
	Name     string `json:"name"`
	RowCount int    `json:"row_count"`
	Columns  int    `json:"columns"`
}

// DiagnosticData accompanies upload:diagnostic and render:diagnostic.
type DiagnosticData struct {
	Diagnostic domain.Diagnostic `json:"diagnostic"`
}

// SlotUpdatedData accompanies MessageTypeSlotUpdated.
type SlotUpdatedData struct {
	Slot  int             `json:"slot"`
	Field string          `json:"field"`
	Spec  domain.PlotSpec `json:"spec"`
}

// SlotsResizedData accompanies MessageTypeSlotsResized.
type SlotsResizedData struct {
	Count int `json:"count"`
}

// RenderCompletedData accompanies MessageTypeRenderCompleted.
type RenderCompletedData struct {
	Figures     int `json:"figures"`
	Diagnostics int `json:"diagnostics"`
}
