// Package ingest decodes uploaded telemetry files into datasets.
//
// # Architecture
//
// The package is organized around a single Loader:
//
// 1. Validation: extension allowlist, size gate, office temp-file filter
// 2. Decoding: CSV via encoding/csv, workbooks via excelize
// 3. Typing: every column is classified numeric, temporal, or text
//
// # Usage
//
// Basic loading example:
//
//	loader := ingest.NewLoader(cfg.Upload, logger)
//	result := loader.Load(ctx, []ingest.Upload{{Name: "lap1.csv", Data: raw}})
//	for _, ds := range result.Datasets {
//	    fmt.Println(ds.Name, ds.RowCount)
//	}
//
// # Error Handling
//
// Failures never abort a batch. Each file that cannot be loaded yields
// exactly one diagnostic in Result.Diagnostics and no partial dataset:
//
//	- unrecognized extensions produce an unsupported-file-type diagnostic
//	- recognized but undecodable files produce a decode-failure diagnostic
//
// An empty Result.Datasets is a state the caller must handle, not an error.
package ingest
