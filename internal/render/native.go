package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	apperrors "github.com/NU-Formula-Racing/daq-interface-25/internal/errors"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// The fixed dark theme in image colors, matching the HTML figures.
var (
	nativeBackground = color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
	nativeForeground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	nativeGrid       = color.RGBA{R: 0x4a, G: 0x4a, B: 0x4a, A: 0xff}
	nativeSeries     = color.RGBA{R: 0x54, G: 0x70, B: 0xc6, A: 0xff}
)

// NativePNG draws one slot as a static PNG without a browser. Rows whose
// coordinates cannot be plotted are dropped; text x columns fall back to
// the row index.
func NativePNG(w io.Writer, spec domain.PlotSpec, ds domain.Dataset, widthPx, heightPx int) error {
	if !spec.Mode.Valid() {
		return apperrors.NewRenderError(fmt.Sprintf("unsupported plot type: %s", spec.Mode), nil)
	}

	x, ok := ds.Column(spec.XColumn)
	if !ok {
		return apperrors.NewRenderError(fmt.Sprintf("column %q is not present in %s", spec.XColumn, ds.Name), nil)
	}
	y, ok := ds.Column(spec.YColumn)
	if !ok {
		return apperrors.NewRenderError(fmt.Sprintf("column %q is not present in %s", spec.YColumn, ds.Name), nil)
	}

	pts := xyPoints(x, y, ds.RowCount)
	if len(pts) == 0 {
		return apperrors.NewRenderError(fmt.Sprintf("no drawable points for %s vs %s", spec.YColumn, spec.XColumn), nil)
	}

	p := plot.New()
	applyDarkTheme(p, spec, x.Kind == domain.ColumnKindTemporal)

	switch spec.Mode {
	case domain.ModeLine:
		line, err := plotter.NewLine(pts)
		if err != nil {
			return apperrors.NewRenderError("building line series", err)
		}
		line.Color = nativeSeries
		p.Add(line)
	case domain.ModeScatter:
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return apperrors.NewRenderError("building scatter series", err)
		}
		scatter.GlyphStyle.Color = nativeSeries
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
	}

	writer, err := p.WriterTo(vg.Points(float64(widthPx)), vg.Points(float64(heightPx)), "png")
	if err != nil {
		return apperrors.NewRenderError("encoding png", err)
	}
	if _, err := writer.WriteTo(w); err != nil {
		return apperrors.NewRenderError("writing png", err)
	}
	return nil
}

func applyDarkTheme(p *plot.Plot, spec domain.PlotSpec, temporalX bool) {
	p.Title.Text = spec.Title
	p.X.Label.Text = spec.XColumn
	p.Y.Label.Text = spec.YColumn

	p.BackgroundColor = nativeBackground
	p.Title.TextStyle.Color = nativeForeground
	for _, axis := range []*plot.Axis{&p.X, &p.Y} {
		axis.Label.TextStyle.Color = nativeForeground
		axis.LineStyle.Color = nativeGrid
		axis.Tick.LineStyle.Color = nativeGrid
		axis.Tick.Label.Color = nativeForeground
	}
	if temporalX {
		p.X.Tick.Marker = plot.TimeTicks{Format: "01-02 15:04:05"}
	}

	grid := plotter.NewGrid()
	grid.Vertical.Color = nativeGrid
	grid.Horizontal.Color = nativeGrid
	p.Add(grid)
}

// xyPoints pairs the two columns row by row, skipping rows either side
// cannot supply. Numeric and temporal columns use their float series;
// a text x column is replaced by the row index.
func xyPoints(x, y *domain.Column, rows int) plotter.XYs {
	pts := make(plotter.XYs, 0, rows)
	for i := 0; i < rows; i++ {
		xv, okX := floatAt(x, i)
		if x.Kind == domain.ColumnKindText {
			xv, okX = float64(i), true
		}
		yv, okY := floatAt(y, i)
		if !okX || !okY {
			continue
		}
		pts = append(pts, plotter.XY{X: xv, Y: yv})
	}
	return pts
}

func floatAt(col *domain.Column, i int) (float64, bool) {
	if i >= len(col.Floats) || math.IsNaN(col.Floats[i]) {
		return 0, false
	}
	return col.Floats[i], true
}
