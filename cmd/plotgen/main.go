// Package main provides the plotgen CLI: the DAQ ingestion and rendering
// pipeline run offline against a single telemetry log.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/ingest"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/render"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

var (
	xColumn     string
	yColumn     string
	mode        string
	format      string
	outputPath  string
	snapshot    bool
	listColumns bool
	width       int
	height      int
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "plotgen [telemetry-log]",
		Short: "Render a telemetry chart without the web dashboard",
		Long: `plotgen runs the same ingestion and rendering pipeline as the DAQ
interface server against a single CSV or xlsx telemetry log, writing a
self-contained HTML chart or a PNG image.

PNG output uses the native renderer by default. Pass --snapshot to
rasterize the HTML chart through headless Chrome instead, which is
slower but pixel-faithful to the dashboard.`,
		Version: contracts.GetFullVersionString(),
		Args:    cobra.ExactArgs(1),
		RunE:    run,
	}

	rootCmd.Flags().StringVarP(&xColumn, "x-column", "x", "", "Column for the x axis (default: first column)")
	rootCmd.Flags().StringVarP(&yColumn, "y-column", "y", "", "Column for the y axis (default: second column)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "line", "Render mode: line or scatter")
	rootCmd.Flags().StringVarP(&format, "format", "f", "html", "Output format: html or png")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: input name with the format extension)")
	rootCmd.Flags().BoolVar(&snapshot, "snapshot", false, "Render PNG through headless Chrome (implies --format png)")
	rootCmd.Flags().BoolVar(&listColumns, "columns", false, "List the dataset's columns and exit")
	rootCmd.Flags().IntVar(&width, "width", 0, "PNG width in pixels (default: from configuration)")
	rootCmd.Flags().IntVar(&height, "height", 0, "PNG height in pixels (default: from configuration)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	input := args[0]

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	// Logs go to stderr so chart output can be piped.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	if width <= 0 {
		width = cfg.Render.SnapshotWidth
	}
	if height <= 0 {
		height = cfg.Render.SnapshotHeight
	}

	ds, err := loadDataset(cmd.Context(), cfg, logger, input)
	if err != nil {
		return err
	}

	if listColumns {
		printColumns(cmd.OutOrStdout(), ds)
		return nil
	}

	spec, err := buildSpec(ds)
	if err != nil {
		return err
	}

	if snapshot {
		format = "png"
	}

	out := outputPath
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
	}

	switch format {
	case "html":
		err = writeHTML(cfg, logger, spec, ds, out)
	case "png":
		err = writePNG(cmd.Context(), cfg, logger, spec, ds, out)
	default:
		return fmt.Errorf("invalid format: %s (must be html or png)", format)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
	return nil
}

// loadDataset runs the file through the same loader the server uses.
func loadDataset(ctx context.Context, cfg *config.Config, logger *slog.Logger, input string) (domain.Dataset, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("reading %s: %w", input, err)
	}

	loader := ingest.NewLoader(cfg.Upload, logger)
	result := loader.Load(ctx, []ingest.Upload{{Name: filepath.Base(input), Data: data}})

	for _, diag := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "warning: %s\n", diag.Message)
	}
	if len(result.Datasets) == 0 {
		return domain.Dataset{}, fmt.Errorf("no dataset loaded from %s", input)
	}

	return result.Datasets[0], nil
}

// buildSpec assembles and validates the plot slot configuration from flags.
func buildSpec(ds domain.Dataset) (domain.PlotSpec, error) {
	columns := ds.ColumnNames()
	if len(columns) == 0 {
		return domain.PlotSpec{}, fmt.Errorf("dataset %s has no columns", ds.Name)
	}

	x := xColumn
	if x == "" {
		x = columns[0]
	}
	y := yColumn
	if y == "" {
		y = columns[0]
		if len(columns) > 1 {
			y = columns[1]
		}
	}

	if !ds.HasColumn(x) {
		return domain.PlotSpec{}, fmt.Errorf("column %q not found in %s (available: %s)",
			x, ds.Name, strings.Join(columns, ", "))
	}
	if !ds.HasColumn(y) {
		return domain.PlotSpec{}, fmt.Errorf("column %q not found in %s (available: %s)",
			y, ds.Name, strings.Join(columns, ", "))
	}

	renderMode := domain.RenderMode(mode)
	if !renderMode.Valid() {
		return domain.PlotSpec{}, fmt.Errorf("invalid mode: %s (must be line or scatter)", mode)
	}

	spec := domain.PlotSpec{
		Source:  ds.Name,
		XColumn: x,
		YColumn: y,
		Mode:    renderMode,
	}
	spec.Title = spec.ComputeTitle()
	return spec, nil
}

// writeHTML renders the chart as a self-contained HTML document.
func writeHTML(cfg *config.Config, logger *slog.Logger, spec domain.PlotSpec, ds domain.Dataset, out string) error {
	fig, err := renderFigure(cfg, logger, spec, ds)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(fig.HTML), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}

// writePNG renders the chart as PNG, natively or through headless Chrome.
func writePNG(ctx context.Context, cfg *config.Config, logger *slog.Logger, spec domain.PlotSpec, ds domain.Dataset, out string) error {
	if snapshot {
		fig, err := renderFigure(cfg, logger, spec, ds)
		if err != nil {
			return err
		}
		snapshotter := render.NewSnapshotter(cfg.Render, logger)
		png, err := snapshotter.PNG(ctx, fig.HTML)
		if err != nil {
			return fmt.Errorf("capturing snapshot: %w", err)
		}
		if err := os.WriteFile(out, png, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		return nil
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	defer f.Close()

	if err := render.NativePNG(f, spec, ds, width, height); err != nil {
		return fmt.Errorf("rendering png: %w", err)
	}
	return nil
}

// renderFigure runs the slot through the dashboard renderer and surfaces any
// diagnostics as errors.
func renderFigure(cfg *config.Config, logger *slog.Logger, spec domain.PlotSpec, ds domain.Dataset) (domain.RenderedFigure, error) {
	renderer := render.NewRenderer(cfg.Render, logger)
	fig := renderer.Figure(0, spec, ds)
	if fig.Empty {
		if len(fig.Diagnostics) > 0 {
			return fig, fmt.Errorf("rendering failed: %s", fig.Diagnostics[0].Message)
		}
		return fig, fmt.Errorf("rendering produced an empty figure")
	}
	return fig, nil
}

// printColumns writes a plain column listing for eyeballing a fresh log.
func printColumns(w io.Writer, ds domain.Dataset) {
	summary := ds.Summarize()
	fmt.Fprintf(w, "%s: %d rows\n", summary.Name, summary.RowCount)
	for _, col := range summary.Columns {
		fmt.Fprintf(w, "  %-24s %-9s %d non-empty\n", col.Name, col.Kind, col.NonEmpty)
	}
}
