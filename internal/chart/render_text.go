package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TextRenderer draws charts for a terminal.
type TextRenderer struct {
	Width int
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	palette    = []lipgloss.Color{"39", "82", "214", "205", "226", "141", "45", "196", "118", "208"}
)

func (r *TextRenderer) Render(p *Plan) (*Artifact, error) {
	width := r.Width
	if width <= 0 {
		width = 40
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Title))
	b.WriteString("\n")
	switch p.Kind {
	case KindBar:
		vals := p.Totals
		if len(vals) == 0 && len(p.Series) > 0 {
			vals = p.Series[0].Values
		}
		writeBars(&b, p.Labels, vals, width)
	case KindLine:
		for i, s := range p.Series {
			style := lipgloss.NewStyle().Foreground(palette[i%len(palette)])
			line, lo, hi := sparkline(s.Values)
			fmt.Fprintf(&b, "%s %s %s\n", s.Name, style.Render(line), mutedStyle.Render(fmt.Sprintf("[%.4g .. %.4g]", lo, hi)))
		}
	case KindScatter:
		writeScatter(&b, p, width)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, p.Kind)
	}
	return &Artifact{Format: FormatText, Title: p.Title, Content: []byte(strings.TrimRight(b.String(), "\n"))}, nil
}

func writeBars(b *strings.Builder, labels []string, vals []float64, width int) {
	labelW := 0
	for _, l := range labels {
		labelW = max(labelW, lipgloss.Width(clipLabel(l, 24)))
	}
	top := 0.0
	for _, v := range vals {
		if !math.IsNaN(v) {
			top = math.Max(top, math.Abs(v))
		}
	}
	barStyle := lipgloss.NewStyle().Foreground(palette[0])
	for i, l := range labels {
		v := vals[i]
		filled := 0
		if top > 0 && !math.IsNaN(v) {
			filled = int(math.Round(float64(width) * math.Abs(v) / top))
		}
		name := clipLabel(l, 24)
		pad := strings.Repeat(" ", labelW-lipgloss.Width(name))
		fmt.Fprintf(b, "%s%s %s%s %.4g\n", name, pad,
			barStyle.Render(strings.Repeat("█", filled)),
			mutedStyle.Render(strings.Repeat("░", width-filled)),
			v)
	}
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// sparkline renders values, leaving blanks for gaps.
func sparkline(values []float64) (string, float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !math.IsNaN(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	var out strings.Builder
	for _, v := range values {
		switch {
		case math.IsNaN(v):
			out.WriteRune(' ')
		case hi == lo:
			out.WriteRune(sparkChars[len(sparkChars)/2])
		default:
			out.WriteRune(sparkChars[int((v-lo)/(hi-lo)*float64(len(sparkChars)-1))])
		}
	}
	return out.String(), lo, hi
}

func writeScatter(b *strings.Builder, p *Plan, width int) {
	const rows = 12
	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for _, s := range p.Series {
		for _, pt := range s.Points {
			xlo, xhi = math.Min(xlo, pt.X), math.Max(xhi, pt.X)
			ylo, yhi = math.Min(ylo, pt.Y), math.Max(yhi, pt.Y)
		}
	}
	grid := make([][]string, rows)
	for i := range grid {
		grid[i] = make([]string, width)
		for j := range grid[i] {
			grid[i][j] = " "
		}
	}
	scale := func(v, lo, hi float64, n int) int {
		if hi == lo {
			return n / 2
		}
		return int((v - lo) / (hi - lo) * float64(n-1))
	}
	for i, s := range p.Series {
		dot := lipgloss.NewStyle().Foreground(palette[i%len(palette)]).Render("•")
		for _, pt := range s.Points {
			grid[rows-1-scale(pt.Y, ylo, yhi, rows)][scale(pt.X, xlo, xhi, width)] = dot
		}
	}
	for _, row := range grid {
		b.WriteString(mutedStyle.Render("│"))
		b.WriteString(strings.Join(row, ""))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("└" + strings.Repeat("─", width)))
	b.WriteString("\n")
	fmt.Fprintf(b, "%s %s\n", mutedStyle.Render(fmt.Sprintf("x=%s [%.4g .. %.4g]", p.XLabel, xlo, xhi)),
		mutedStyle.Render(fmt.Sprintf("y=%s [%.4g .. %.4g]", p.YLabel, ylo, yhi)))
	if len(p.Series) > 1 {
		var legend []string
		for i, s := range p.Series {
			legend = append(legend, lipgloss.NewStyle().Foreground(palette[i%len(palette)]).Render("• "+s.Name))
		}
		b.WriteString(strings.Join(legend, "  "))
		b.WriteString("\n")
	}
}
