// Package testutil provides shared test helpers, primarily an in-memory
// slog handler so tests can assert on what a component logged.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogRecord is one captured log line with its attributes flattened.
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// CaptureHandler is a slog.Handler that keeps every record in memory.
// It is safe for concurrent use, so components that log from goroutines
// (the websocket hub, the session sweeper) can share one handler.
type CaptureHandler struct {
	mu      sync.Mutex
	records *[]LogRecord
	attrs   []slog.Attr
}

// NewCaptureLogger returns a logger whose output lands in the returned
// handler instead of a stream.
func NewCaptureLogger() (*slog.Logger, *CaptureHandler) {
	h := &CaptureHandler{records: &[]LogRecord{}}
	return slog.New(h), h
}

// Enabled captures every level; filtering belongs in assertions.
func (h *CaptureHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// Handle stores the record.
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// WithAttrs returns a handler that stamps the attrs on every record while
// writing into the same capture buffer.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &CaptureHandler{records: h.records, attrs: merged}
}

// WithGroup is accepted but not nested; grouped attrs keep their leaf keys.
func (h *CaptureHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Records returns a copy of everything captured so far.
func (h *CaptureHandler) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogRecord, len(*h.records))
	copy(out, *h.records)
	return out
}

// ByLevel returns the captured records at exactly the given level.
func (h *CaptureHandler) ByLevel(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// HasMessage reports whether any captured message contains the substring.
func (h *CaptureHandler) HasMessage(substring string) bool {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, substring) {
			return true
		}
	}
	return false
}

// CountMessage returns how many captured messages contain the substring.
func (h *CaptureHandler) CountMessage(substring string) int {
	n := 0
	for _, r := range h.Records() {
		if strings.Contains(r.Message, substring) {
			n++
		}
	}
	return n
}

// HasAttr reports whether any captured record carries the attribute.
func (h *CaptureHandler) HasAttr(key string, value any) bool {
	for _, r := range h.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}
