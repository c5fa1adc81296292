package render

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// Renderer builds HTML figures from plot slots. It is stateless and safe
// for concurrent use.
type Renderer struct {
	logger *slog.Logger
	width  string
	height string
}

// NewRenderer creates a figure renderer with the configured canvas size
func NewRenderer(cfg config.RenderConfig, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		logger: logger.With(slog.String("component", "renderer")),
		width:  cfg.ChartWidth,
		height: cfg.ChartHeight,
	}
}

// Batch renders one figure per slot, in slot order. Slot failures stay
// local; the batch always carries a figure for every slot it reached.
func (r *Renderer) Batch(ctx context.Context, sessionID string, slots []domain.PlotSpec, datasets []domain.Dataset) *domain.FigureBatch {
	byName := make(map[string]domain.Dataset, len(datasets))
	for _, ds := range datasets {
		byName[ds.Name] = ds
	}

	batch := &domain.FigureBatch{
		SessionID:  sessionID,
		Figures:    make([]domain.RenderedFigure, 0, len(slots)),
		RenderedAt: time.Now().UTC(),
	}

	for i, spec := range slots {
		if ctx.Err() != nil {
			r.logger.Warn("render batch cancelled",
				slog.String("session_id", sessionID),
				slog.Int("rendered", i))
			break
		}

		ds, ok := byName[spec.Source]
		if !ok {
			r.logger.Warn("slot references unknown dataset",
				slog.Int("slot", i),
				slog.String("source", spec.Source))
			batch.Figures = append(batch.Figures, r.emptyFigure(i, spec))
			continue
		}
		batch.Figures = append(batch.Figures, r.Figure(i, spec, ds))
	}
	return batch
}

// Figure renders one slot against its source dataset. An unsupported
// mode yields an empty figure carrying exactly one diagnostic.
func (r *Renderer) Figure(slot int, spec domain.PlotSpec, ds domain.Dataset) domain.RenderedFigure {
	if !spec.Mode.Valid() {
		r.logger.Warn("unsupported render mode",
			slog.Int("slot", slot),
			slog.String("mode", string(spec.Mode)))
		return r.emptyFigure(slot, spec, domain.NewUnsupportedRenderMode(slot, string(spec.Mode)))
	}

	x, okX := ds.Column(spec.XColumn)
	y, okY := ds.Column(spec.YColumn)
	var diags []domain.Diagnostic
	if !okX {
		diags = append(diags, domain.NewStaleColumnReference(slot, spec.XColumn, ds.Name))
	}
	if !okY {
		diags = append(diags, domain.NewStaleColumnReference(slot, spec.YColumn, ds.Name))
	}
	if len(diags) > 0 {
		return r.emptyFigure(slot, spec, diags...)
	}

	xType := axisType(x.Kind)
	// Value and time x axes take [x, y] pairs; category axes take the
	// label list on the axis and bare y values in the series.
	paired := xType != "category"

	var (
		html string
		err  error
	)
	switch spec.Mode {
	case domain.ModeLine:
		html, err = r.lineHTML(spec, x, y, ds.RowCount, xType, paired)
	case domain.ModeScatter:
		html, err = r.scatterHTML(spec, x, y, ds.RowCount, xType, paired)
	}
	if err != nil {
		r.logger.Error("figure render failed",
			slog.Int("slot", slot),
			slog.String("title", spec.Title),
			slog.String("error", err.Error()))
		return r.emptyFigure(slot, spec)
	}

	r.logger.Debug("figure rendered",
		slog.Int("slot", slot),
		slog.String("source", spec.Source),
		slog.String("mode", string(spec.Mode)),
		slog.Int("rows", ds.RowCount))

	return domain.RenderedFigure{
		Slot:       slot,
		GridColumn: domain.GridColumn(slot),
		Title:      spec.Title,
		Mode:       spec.Mode,
		HTML:       html,
		RenderedAt: time.Now().UTC(),
	}
}

func (r *Renderer) lineHTML(spec domain.PlotSpec, x, y *domain.Column, rows int, xType string, paired bool) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(darkGlobalOptions(spec.Title, xType, "value", r.width, r.height)...)

	if !paired {
		line.SetXAxis(x.Values)
	}

	data := make([]opts.LineData, 0, rows)
	for i := 0; i < rows; i++ {
		value, ok := pointValue(x, y, i, paired)
		if !ok {
			continue
		}
		data = append(data, opts.LineData{Value: value})
	}

	line.AddSeries(spec.YColumn, data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return renderHTML(line)
}

func (r *Renderer) scatterHTML(spec domain.PlotSpec, x, y *domain.Column, rows int, xType string, paired bool) (string, error) {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(darkGlobalOptions(spec.Title, xType, "value", r.width, r.height)...)

	if !paired {
		scatter.SetXAxis(x.Values)
	}

	data := make([]opts.ScatterData, 0, rows)
	for i := 0; i < rows; i++ {
		value, ok := pointValue(x, y, i, paired)
		if !ok {
			continue
		}
		data = append(data, opts.ScatterData{Value: value, SymbolSize: 8})
	}

	scatter.AddSeries(spec.YColumn, data)
	return renderHTML(scatter)
}

// emptyFigure renders the themed shell with no series. It stands in for
// any slot that could not be drawn and is still a valid figure document.
func (r *Renderer) emptyFigure(slot int, spec domain.PlotSpec, diags ...domain.Diagnostic) domain.RenderedFigure {
	shell := charts.NewLine()
	shell.SetGlobalOptions(darkGlobalOptions(spec.Title, "value", "value", r.width, r.height)...)

	html, err := renderHTML(shell)
	if err != nil {
		r.logger.Error("empty figure render failed",
			slog.Int("slot", slot),
			slog.String("error", err.Error()))
		html = ""
	}

	return domain.RenderedFigure{
		Slot:        slot,
		GridColumn:  domain.GridColumn(slot),
		Title:       spec.Title,
		Mode:        spec.Mode,
		Empty:       true,
		HTML:        html,
		Diagnostics: diags,
		RenderedAt:  time.Now().UTC(),
	}
}

// axisType picks the ECharts axis type for a column kind
func axisType(kind domain.ColumnKind) string {
	switch kind {
	case domain.ColumnKindNumeric:
		return "value"
	case domain.ColumnKindTemporal:
		return "time"
	default:
		return "category"
	}
}

// pointValue computes the series value for one row. Paired mode emits
// [x, y] tuples; category mode emits the y value alone, where nil draws
// a gap. The bool is false when the row has no x coordinate to plot.
func pointValue(x, y *domain.Column, i int, paired bool) (interface{}, bool) {
	if !paired {
		return yValue(y, i), true
	}
	xv := xValue(x, i)
	if xv == nil {
		return nil, false
	}
	return []interface{}{xv, yValue(y, i)}, true
}

// xValue extracts row i of the x column: floats for numeric axes, raw
// text for time axes (ECharts parses the timestamp strings directly).
func xValue(col *domain.Column, i int) interface{} {
	switch col.Kind {
	case domain.ColumnKindNumeric:
		if i < len(col.Floats) && !math.IsNaN(col.Floats[i]) {
			return col.Floats[i]
		}
		return nil
	case domain.ColumnKindTemporal:
		if i < len(col.Values) && col.Values[i] != "" {
			return col.Values[i]
		}
		return nil
	default:
		return nil
	}
}

// yValue extracts row i of the y column. Temporal columns plot as epoch
// seconds on the value axis; blanks and unparseable cells become nil.
func yValue(col *domain.Column, i int) interface{} {
	switch col.Kind {
	case domain.ColumnKindNumeric, domain.ColumnKindTemporal:
		if i < len(col.Floats) && !math.IsNaN(col.Floats[i]) {
			return col.Floats[i]
		}
		return nil
	default:
		if i < len(col.Values) && col.Values[i] != "" {
			return col.Values[i]
		}
		return nil
	}
}

type htmlRenderer interface {
	Render(w io.Writer) error
}

func renderHTML(chart htmlRenderer) (string, error) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
