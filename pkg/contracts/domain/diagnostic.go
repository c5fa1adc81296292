package domain

import (
	"fmt"
)

// DiagnosticCode classifies a user-visible, non-fatal condition. Every code
// degrades one file or one slot; none of them aborts the surrounding batch.
type DiagnosticCode string

const (
	DiagUnsupportedFileType   DiagnosticCode = "unsupported_file_type"
	DiagDecodeFailure         DiagnosticCode = "decode_failure"
	DiagEmptyCatalog          DiagnosticCode = "empty_catalog"
	DiagStaleColumnReference  DiagnosticCode = "stale_column_reference"
	DiagUnsupportedRenderMode DiagnosticCode = "unsupported_render_mode"
)

// Diagnostic is one user-visible notice attributed to the file or plot slot
// that produced it.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Subject string         `json:"subject"`
	Message string         `json:"message"`
}

// NewUnsupportedFileType reports a skipped upload whose extension is not a
// recognized tabular format.
func NewUnsupportedFileType(fileName string) Diagnostic {
	return Diagnostic{
		Code:    DiagUnsupportedFileType,
		Subject: fileName,
		Message: fmt.Sprintf("Unsupported file type: %s", fileName),
	}
}

// NewDecodeFailure reports a recognized file whose contents could not be
// decoded.
func NewDecodeFailure(fileName string, cause error) Diagnostic {
	return Diagnostic{
		Code:    DiagDecodeFailure,
		Subject: fileName,
		Message: fmt.Sprintf("Error loading %s: %v", fileName, cause),
	}
}

// NewEmptyCatalog reports that no dataset survived loading, so column
// selection cannot proceed.
func NewEmptyCatalog() Diagnostic {
	return Diagnostic{
		Code:    DiagEmptyCatalog,
		Message: "No usable data: every uploaded file failed to load",
	}
}

// NewStaleColumnReference reports an axis selection that was reset because
// the slot's new source does not carry the previously selected column.
func NewStaleColumnReference(slot int, column, source string) Diagnostic {
	return Diagnostic{
		Code:    DiagStaleColumnReference,
		Subject: fmt.Sprintf("slot %d", slot),
		Message: fmt.Sprintf("Column %q is not present in %s; selection reset", column, source),
	}
}

// NewUnsupportedRenderMode reports a slot whose mode is not a supported
// render mode; the slot yields an empty figure instead of failing the batch.
func NewUnsupportedRenderMode(slot int, mode string) Diagnostic {
	return Diagnostic{
		Code:    DiagUnsupportedRenderMode,
		Subject: fmt.Sprintf("slot %d", slot),
		Message: fmt.Sprintf("Unsupported plot type: %s", mode),
	}
}
