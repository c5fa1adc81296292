package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize UTF-8 encoded CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Exporter serializes datasets for download
type Exporter struct {
	logger *slog.Logger
}

// New creates an exporter
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger.With(slog.String("component", "exporter"))}
}

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	// BOMPrefix adds a UTF-8 BOM for Excel compatibility
	BOMPrefix bool
}

// CSV writes the dataset as CSV: the header row, then rows in order
func (e *Exporter) CSV(w io.Writer, ds domain.Dataset, opts CSVOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(ds.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range ds.Rows() {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	e.logger.Debug("dataset exported",
		slog.String("dataset", ds.Name),
		slog.String("format", "csv"),
		slog.Int("rows", ds.RowCount))
	return nil
}
