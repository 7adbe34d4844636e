package chart

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DefaultTheme is the echarts theme used when none is configured.
const DefaultTheme = "chalk"

// HTMLRenderer renders interactive echarts documents suitable for an
// iframe srcdoc.
type HTMLRenderer struct {
	Theme  string
	Width  string
	Height string
}

func (r *HTMLRenderer) Render(p *Plan) (*Artifact, error) {
	theme, width, height := r.Theme, r.Width, r.Height
	if theme == "" {
		theme = DefaultTheme
	}
	if width == "" {
		width = "100%"
	}
	if height == "" {
		height = "420px"
	}
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: p.Title,
			Theme:     theme,
			Width:     width,
			Height:    height,
		}),
		charts.WithTitleOpts(opts.Title{Title: p.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(p.Series) > 1), Top: "30"}),
		charts.WithGridOpts(opts.Grid{Left: "10%", Right: "5%", Bottom: "20%", Top: "80"}),
		charts.WithYAxisOpts(opts.YAxis{Name: p.YLabel, Type: "value"}),
	}

	var buf bytes.Buffer
	switch p.Kind {
	case KindBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(append(global,
			charts.WithXAxisOpts(opts.XAxis{Name: p.XLabel, Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		)...)
		bar.SetXAxis(p.Labels)
		for _, s := range p.Series {
			data := make([]opts.BarData, len(s.Values))
			for i, v := range s.Values {
				data[i] = opts.BarData{Value: echartsValue(v)}
			}
			bar.AddSeries(s.Name, data)
		}
		if err := bar.Render(&buf); err != nil {
			return nil, fmt.Errorf("render bar chart: %w", err)
		}
	case KindLine:
		line := charts.NewLine()
		line.SetGlobalOptions(append(global,
			charts.WithXAxisOpts(opts.XAxis{Name: p.XLabel, Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		)...)
		line.SetXAxis(p.Labels)
		for _, s := range p.Series {
			data := make([]opts.LineData, len(s.Values))
			for i, v := range s.Values {
				data[i] = opts.LineData{Value: echartsValue(v)}
			}
			line.AddSeries(s.Name, data,
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(len(s.Values) <= 200)}),
			)
		}
		if err := line.Render(&buf); err != nil {
			return nil, fmt.Errorf("render line chart: %w", err)
		}
	case KindScatter:
		sc := charts.NewScatter()
		sc.SetGlobalOptions(append(global,
			charts.WithXAxisOpts(opts.XAxis{Name: p.XLabel, Type: "value"}),
		)...)
		for _, s := range p.Series {
			data := make([]opts.ScatterData, len(s.Points))
			for i, pt := range s.Points {
				data[i] = opts.ScatterData{Value: []interface{}{pt.X, pt.Y}}
			}
			sc.AddSeries(s.Name, data)
		}
		if err := sc.Render(&buf); err != nil {
			return nil, fmt.Errorf("render scatter chart: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, p.Kind)
	}
	return &Artifact{Format: FormatHTML, Title: p.Title, Content: buf.Bytes()}, nil
}

// echartsValue maps gaps to "-", which echarts treats as a missing point.
func echartsValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return v
}
