package testutil

import (
	"log/slog"
	"testing"
)

func TestCaptureHandler_RecordsAndAttrs(t *testing.T) {
	logger, captured := NewCaptureLogger()

	logger.Info("dataset loaded", slog.String("file", "run7.csv"), slog.Int("rows", 3))
	logger.Warn("file skipped", slog.String("file", "notes.txt"))

	records := captured.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !captured.HasMessage("dataset loaded") {
		t.Error("missing 'dataset loaded' message")
	}
	if !captured.HasAttr("file", "notes.txt") {
		t.Error("missing file attr on the skip record")
	}
	if got := len(captured.ByLevel(slog.LevelWarn)); got != 1 {
		t.Errorf("expected 1 warn record, got %d", got)
	}
}

func TestCaptureHandler_WithAttrsSharesBuffer(t *testing.T) {
	logger, captured := NewCaptureLogger()
	component := logger.With(slog.String("component", "ingest"))

	component.Info("dataset loaded")

	if !captured.HasAttr("component", "ingest") {
		t.Error("derived logger should stamp its attrs into the shared capture")
	}
}

func TestCaptureHandler_CountMessage(t *testing.T) {
	logger, captured := NewCaptureLogger()

	logger.Warn("file skipped", slog.String("file", "a.txt"))
	logger.Warn("file skipped", slog.String("file", "b.txt"))

	if got := captured.CountMessage("file skipped"); got != 2 {
		t.Errorf("expected 2 skip messages, got %d", got)
	}
}
