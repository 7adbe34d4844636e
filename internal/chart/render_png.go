package chart

import (
	"bytes"
	"fmt"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// PNGRenderer renders static images with go-chart.
type PNGRenderer struct {
	Width  int
	Height int
}

const maxTicks = 12

func (r *PNGRenderer) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = 900
	}
	if h <= 0 {
		h = 480
	}
	return w, h
}

func (r *PNGRenderer) Render(p *Plan) (*Artifact, error) {
	var buf bytes.Buffer
	var err error
	if p.Kind == KindBar && len(p.Series) == 1 {
		bc := r.bars(p)
		if len(bc.Bars) == 0 {
			return nil, ErrNoData
		}
		err = bc.Render(gochart.PNG, &buf)
	} else {
		ch, cerr := r.xy(p)
		if cerr != nil {
			return nil, cerr
		}
		err = ch.Render(gochart.PNG, &buf)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s png: %w", p.Kind, err)
	}
	return &Artifact{Format: FormatPNG, Title: p.Title, Content: buf.Bytes()}, nil
}

func (r *PNGRenderer) bars(p *Plan) *gochart.BarChart {
	w, h := r.size()
	vals := p.Series[0].Values
	bars := make([]gochart.Value, 0, len(vals))
	lo, hi := 0.0, 0.0
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		bars = append(bars, gochart.Value{Value: v, Label: p.Labels[i]})
	}
	if hi == lo {
		hi = lo + 1
	}
	slot := (w - 140) / max(len(bars), 1)
	barWidth := min(slot*7/10, 60)
	barWidth = max(barWidth, 2)
	spacing := max(slot-barWidth, 1)
	return &gochart.BarChart{
		Title:      p.Title,
		Width:      w,
		Height:     h,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 90}},
		XAxis:      gochart.Style{TextRotationDegrees: 45},
		YAxis: gochart.YAxis{
			Name:  p.YLabel,
			Range: &gochart.ContinuousRange{Min: lo, Max: hi * 1.05},
		},
		Bars: bars,
	}
}

// xy draws lines, scatters and multi-series bars on continuous axes.
// Category labels become ticks at their index.
func (r *PNGRenderer) xy(p *Plan) (*gochart.Chart, error) {
	w, h := r.size()
	var series []gochart.Series
	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	track := func(x, y float64) {
		xlo, xhi = math.Min(xlo, x), math.Max(xhi, x)
		ylo, yhi = math.Min(ylo, y), math.Max(yhi, y)
	}
	for i, s := range p.Series {
		color := gochart.GetDefaultColor(i)
		style := gochart.Style{StrokeColor: color, StrokeWidth: 2}
		if p.Kind != KindLine {
			style = gochart.Style{StrokeWidth: gochart.Disabled, DotWidth: 4, DotColor: color}
		}
		var xs, ys []float64
		if p.Kind == KindScatter {
			for _, pt := range s.Points {
				xs = append(xs, pt.X)
				ys = append(ys, pt.Y)
				track(pt.X, pt.Y)
			}
		} else {
			for j, v := range s.Values {
				if math.IsNaN(v) {
					continue
				}
				xs = append(xs, float64(j))
				ys = append(ys, v)
				track(float64(j), v)
			}
		}
		if len(xs) == 0 {
			continue
		}
		series = append(series, gochart.ContinuousSeries{Name: s.Name, XValues: xs, YValues: ys, Style: style})
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}
	if p.Kind != KindScatter {
		xlo, xhi = -0.5, float64(len(p.Labels))-0.5
	}
	if xhi == xlo {
		xlo, xhi = xlo-1, xhi+1
	}
	if yhi == ylo {
		ylo, yhi = ylo-1, yhi+1
	}
	pad := (yhi - ylo) * 0.05
	ch := &gochart.Chart{
		Title:      p.Title,
		Width:      w,
		Height:     h,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 48}},
		XAxis: gochart.XAxis{
			Name:  p.XLabel,
			Range: &gochart.ContinuousRange{Min: xlo, Max: xhi},
			Ticks: categoryTicks(p),
		},
		YAxis: gochart.YAxis{
			Name:  p.YLabel,
			Range: &gochart.ContinuousRange{Min: ylo - pad, Max: yhi + pad},
		},
		Series: series,
	}
	if len(series) > 1 {
		ch.Elements = []gochart.Renderable{gochart.Legend(ch)}
	}
	return ch, nil
}

// categoryTicks thins category labels to at most maxTicks ticks.
func categoryTicks(p *Plan) []gochart.Tick {
	if p.Kind == KindScatter || len(p.Labels) == 0 {
		return nil
	}
	step := (len(p.Labels) + maxTicks - 1) / maxTicks
	var ticks []gochart.Tick
	for i := 0; i < len(p.Labels); i += step {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: clipLabel(p.Labels[i], 14)})
	}
	return ticks
}

func clipLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
