package render

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NU-Formula-Racing/daq-interface-25/internal/config"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

func newTestRenderer() *Renderer {
	cfg := config.RenderConfig{ChartWidth: "900px", ChartHeight: "500px"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRenderer(cfg, logger)
}

func telemetryDataset() domain.Dataset {
	return domain.Dataset{
		Name: "lap1.csv",
		Columns: []domain.Column{
			{
				Name:   "t",
				Kind:   domain.ColumnKindNumeric,
				Values: []string{"0", "1", "2"},
				Floats: []float64{0, 1, 2},
			},
			{
				Name:   "rpm",
				Kind:   domain.ColumnKindNumeric,
				Values: []string{"3000", "", "4200"},
				Floats: []float64{3000, math.NaN(), 4200},
			},
			{
				Name:   "driver",
				Kind:   domain.ColumnKindText,
				Values: []string{"sam", "sam", "alex"},
				Floats: []float64{math.NaN(), math.NaN(), math.NaN()},
			},
		},
		RowCount: 3,
	}
}

func lineSpec() domain.PlotSpec {
	spec := domain.PlotSpec{
		Source:  "lap1.csv",
		XColumn: "t",
		YColumn: "rpm",
		Mode:    domain.ModeLine,
	}
	spec.Title = spec.ComputeTitle()
	return spec
}

func TestFigure_Line(t *testing.T) {
	r := newTestRenderer()
	fig := r.Figure(0, lineSpec(), telemetryDataset())

	assert.Equal(t, 0, fig.Slot)
	assert.Equal(t, 0, fig.GridColumn)
	assert.Equal(t, "lap1.csv - rpm vs t", fig.Title)
	assert.Equal(t, domain.ModeLine, fig.Mode)
	assert.False(t, fig.Empty)
	assert.Empty(t, fig.Diagnostics)

	assert.Contains(t, fig.HTML, "lap1.csv - rpm vs t")
	assert.Contains(t, fig.HTML, `"line"`)
	assert.Contains(t, fig.HTML, themeBackground)
	assert.Contains(t, fig.HTML, themeForeground)
	assert.Contains(t, fig.HTML, themeGrid)
}

func TestFigure_Scatter(t *testing.T) {
	r := newTestRenderer()
	spec := lineSpec()
	spec.Mode = domain.ModeScatter

	fig := r.Figure(1, spec, telemetryDataset())

	assert.Equal(t, 1, fig.GridColumn)
	assert.False(t, fig.Empty)
	assert.Contains(t, fig.HTML, `"scatter"`)
}

func TestFigure_NaNBecomesNull(t *testing.T) {
	r := newTestRenderer()
	fig := r.Figure(0, lineSpec(), telemetryDataset())

	// the blank rpm cell must not leak NaN into the document
	assert.NotContains(t, fig.HTML, "NaN")
	assert.Contains(t, fig.HTML, "null")
}

func TestFigure_TextXColumnUsesCategoryAxis(t *testing.T) {
	r := newTestRenderer()
	spec := lineSpec()
	spec.XColumn = "driver"
	spec.Title = spec.ComputeTitle()

	fig := r.Figure(0, spec, telemetryDataset())

	assert.False(t, fig.Empty)
	assert.Contains(t, fig.HTML, `"category"`)
	assert.Contains(t, fig.HTML, "alex")
}

func TestFigure_UnsupportedMode(t *testing.T) {
	r := newTestRenderer()
	spec := lineSpec()
	spec.Mode = domain.RenderMode("bar")

	fig := r.Figure(0, spec, telemetryDataset())

	assert.True(t, fig.Empty)
	require.Len(t, fig.Diagnostics, 1)
	assert.Equal(t, domain.DiagUnsupportedRenderMode, fig.Diagnostics[0].Code)
	assert.Equal(t, "Unsupported plot type: bar", fig.Diagnostics[0].Message)

	// the placeholder is still a full figure document
	assert.Contains(t, fig.HTML, themeBackground)
}

func TestFigure_MissingColumn(t *testing.T) {
	r := newTestRenderer()
	spec := lineSpec()
	spec.YColumn = "speed"

	fig := r.Figure(0, spec, telemetryDataset())

	assert.True(t, fig.Empty)
	require.Len(t, fig.Diagnostics, 1)
	assert.Equal(t, domain.DiagStaleColumnReference, fig.Diagnostics[0].Code)
}

func TestBatch(t *testing.T) {
	r := newTestRenderer()
	ds := telemetryDataset()

	second := lineSpec()
	second.Mode = domain.ModeScatter

	batch := r.Batch(context.Background(), "sess-1", []domain.PlotSpec{lineSpec(), second}, []domain.Dataset{ds})

	assert.Equal(t, "sess-1", batch.SessionID)
	require.Len(t, batch.Figures, 2)
	assert.Equal(t, 0, batch.Figures[0].Slot)
	assert.Equal(t, 1, batch.Figures[1].Slot)
	assert.Equal(t, 0, batch.Figures[0].GridColumn)
	assert.Equal(t, 1, batch.Figures[1].GridColumn)
	assert.False(t, batch.RenderedAt.IsZero())
}

func TestBatch_SlotFailureStaysLocal(t *testing.T) {
	r := newTestRenderer()
	ds := telemetryDataset()

	broken := lineSpec()
	broken.Mode = domain.RenderMode("heatmap")

	batch := r.Batch(context.Background(), "sess-1", []domain.PlotSpec{broken, lineSpec()}, []domain.Dataset{ds})

	require.Len(t, batch.Figures, 2)
	assert.True(t, batch.Figures[0].Empty)
	assert.Len(t, batch.Figures[0].Diagnostics, 1)
	assert.False(t, batch.Figures[1].Empty)
}

func TestBatch_UnknownSource(t *testing.T) {
	r := newTestRenderer()
	spec := lineSpec()
	spec.Source = "gone.csv"

	batch := r.Batch(context.Background(), "sess-1", []domain.PlotSpec{spec}, []domain.Dataset{telemetryDataset()})

	require.Len(t, batch.Figures, 1)
	assert.True(t, batch.Figures[0].Empty)
}

func TestAxisType(t *testing.T) {
	tests := []struct {
		kind domain.ColumnKind
		want string
	}{
		{domain.ColumnKindNumeric, "value"},
		{domain.ColumnKindTemporal, "time"},
		{domain.ColumnKindText, "category"},
	}
	for _, tt := range tests {
		if got := axisType(tt.kind); got != tt.want {
			t.Errorf("axisType(%s) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestDarkAxis(t *testing.T) {
	label, split := darkAxis("value")
	assert.Equal(t, themeForeground, label.Color)
	assert.Equal(t, themeGrid, split.LineStyle.Color)
	assert.Equal(t, opts.Bool(true), split.Show)

	// category axes suppress gridlines
	_, split = darkAxis("category")
	assert.Equal(t, opts.Bool(false), split.Show)
}

func TestDarkGlobalOptions_ThemesBothAxes(t *testing.T) {
	r := newTestRenderer()

	spec := lineSpec()
	spec.XColumn = "driver"
	spec.Title = spec.ComputeTitle()
	fig := r.Figure(0, spec, telemetryDataset())

	require.False(t, fig.Empty)
	// axis labels on both axes plus the y-axis line carry the theme
	assert.GreaterOrEqual(t, strings.Count(fig.HTML, themeForeground), 3)
	assert.Contains(t, fig.HTML, themeGrid)
	assert.Contains(t, fig.HTML, "axisLine")
}

func TestFigureHTMLIsSelfContained(t *testing.T) {
	r := newTestRenderer()
	fig := r.Figure(0, lineSpec(), telemetryDataset())

	assert.True(t, strings.Contains(fig.HTML, "<html"), "figure should be a full document")
	assert.Contains(t, fig.HTML, "echarts")
}
