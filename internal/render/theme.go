package render

import (
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Fixed dark theme shared by every figure. The UI offers no theme
// selection, so these are constants rather than configuration.
const (
	themeBackground = "#111111"
	themeForeground = "#FFFFFF"
	themeGrid       = "#4a4a4a"
)

// darkAxis styles one axis for the dark theme: white labels, dim gridlines.
func darkAxis(axisType string) (*opts.AxisLabel, *opts.SplitLine) {
	label := &opts.AxisLabel{Show: opts.Bool(true), Color: themeForeground}
	split := &opts.SplitLine{
		Show:      opts.Bool(true),
		LineStyle: &opts.LineStyle{Color: themeGrid},
	}
	// Category axes draw a gridline per label, which turns dense text
	// axes into solid walls. Keep gridlines to value/time axes.
	if axisType == "category" {
		split.Show = opts.Bool(false)
	}
	return label, split
}

// darkGlobalOptions assembles the shared SetGlobalOptions list for a
// figure: dark canvas, titled header, themed axes.
func darkGlobalOptions(title, xType, yType, width, height string) []charts.GlobalOpts {
	xLabel, xSplit := darkAxis(xType)
	yLabel, ySplit := darkAxis(yType)

	// Only YAxis exposes AxisLine in this go-echarts version; the x axis
	// keeps its default line and is themed through labels and gridlines.
	yLine := &opts.AxisLine{
		Show:      opts.Bool(true),
		LineStyle: &opts.LineStyle{Color: themeGrid},
	}

	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       title,
			Width:           width,
			Height:          height,
			BackgroundColor: themeBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      title,
			Left:       "center",
			TitleStyle: &opts.TextStyle{Color: themeForeground},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      xType,
			AxisLabel: xLabel,
			SplitLine: xSplit,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      yType,
			AxisLabel: yLabel,
			AxisLine:  yLine,
			SplitLine: ySplit,
		}),
	}
}
