// Package render turns plot slot configurations into figures.
//
// # Architecture
//
// The package has two render paths that share the same slot semantics:
//
//   - figure.go builds interactive HTML figures with go-echarts, one
//     self-contained document per slot, styled with the fixed dark theme.
//   - snapshot.go rasterizes a rendered HTML figure to PNG through a
//     headless Chrome tab for download and report use.
//
// # Usage
//
//	renderer := render.NewRenderer(cfg.Render, logger)
//	batch := renderer.Batch(ctx, session.ID, session.Slots(), session.Datasets())
//
// # Error Handling
//
// Rendering is batch-oriented and slot failures stay local: a slot whose
// mode is not supported yields an empty figure carrying one diagnostic,
// and the remaining slots render normally. Batch never fails as a whole.
package render
