package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// XLSX writes the dataset as a single-sheet workbook
func (e *Exporter) XLSX(w io.Writer, ds domain.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := setSheetRow(f, sheet, 1, ds.ColumnNames()); err != nil {
		return err
	}
	for i, row := range ds.Rows() {
		if err := setSheetRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("dataset exported",
		slog.String("dataset", ds.Name),
		slog.String("format", "xlsx"),
		slog.Int("rows", ds.RowCount))
	return nil
}

func setSheetRow(f *excelize.File, sheet string, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
