// Package exporter writes loaded datasets back out as downloadable files.
//
// Exports reproduce the upload as the loader understood it: one header
// row, then data rows in order, with cell text verbatim. Two formats are
// supported:
//
// CSV: plain comma-separated output, optionally prefixed with a UTF-8 BOM
// so Excel detects the encoding.
//
// XLSX: a single-sheet workbook.
//
// Example usage:
//
//	exp := exporter.New(logger)
//	err := exp.CSV(w, dataset, exporter.CSVOptions{BOMPrefix: true})
package exporter
