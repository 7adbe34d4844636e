package chart

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/csvinsight/internal/dataset"
)

const (
	// MaxCategories bounds the number of bars drawn for a categorical axis.
	MaxCategories = 20
	// MaxHueSeries bounds the number of series produced by a hue column.
	MaxHueSeries = 10
)

var (
	ErrUnsupportedKind     = errors.New("unsupported chart type")
	ErrInsufficientColumns = errors.New("dataset lacks suitable columns")
	ErrNoData              = errors.New("no plottable values")
)

// Hints are suggested column names per plot role.
type Hints struct {
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	Hue string `json:"hue,omitempty"`
}

// IsZero reports whether no role is hinted.
func (h Hints) IsZero() bool { return h.X == "" && h.Y == "" && h.Hue == "" }

// Valid returns a copy of h with every role that names a missing column cleared.
func (h Hints) Valid(ds *dataset.Dataset) Hints {
	keep := func(name string) string {
		name = strings.TrimSpace(name)
		if _, ok := ds.Column(name); ok {
			return name
		}
		return ""
	}
	return Hints{X: keep(h.X), Y: keep(h.Y), Hue: keep(h.Hue)}
}

// Mode describes how a plan aggregates the data.
type Mode string

const (
	// ModeGrouped is a bar chart of mean y per x category.
	ModeGrouped Mode = "grouped"
	// ModeDistribution is a frequency bar chart of a single column.
	ModeDistribution Mode = "distribution"
	// ModeSeries is a line of y over x in row order.
	ModeSeries Mode = "series"
	// ModeIndex is a line of y over row position.
	ModeIndex Mode = "index"
	// ModePoints is a scatter of numeric x against numeric y.
	ModePoints Mode = "points"
)

// Point is one scatter sample.
type Point struct{ X, Y float64 }

// Series is one drawn series. Values align with Plan.Labels and use NaN for
// gaps; Points is used by scatter plans instead.
type Series struct {
	Name   string
	Values []float64
	Points []Point
}

// Plan is a resolved, renderer-independent chart description.
type Plan struct {
	Kind   Kind
	Mode   Mode
	Title  string
	X      string
	Y      string
	Hue    string
	XLabel string
	YLabel string
	Labels []string
	Series []Series
	// Totals holds the per-label value ignoring hue, for bar plans.
	Totals []float64
}

// Resolve picks columns for the requested chart type and aggregates the data
// into a Plan. It has no side effects; equal inputs give equal plans.
func Resolve(ds *dataset.Dataset, label string, hints Hints, question string) (*Plan, error) {
	kind, ok := ParseKind(label)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, label)
	}
	if ds == nil || len(ds.Columns) == 0 || ds.NumRows() == 0 {
		return nil, ErrNoData
	}
	h := hints.Valid(ds)
	x, y, hue := h.X, h.Y, h.Hue
	if x == "" && y == "" {
		var err error
		if x, y, err = inferColumns(ds, kind); err != nil {
			return nil, err
		}
	}
	// A lone axis is always treated as the measured column.
	if y == "" {
		x, y = "", x
	}
	if hue == x || hue == y {
		hue = ""
	}

	p := &Plan{Kind: kind, X: x, Y: y, Hue: hue, XLabel: x, YLabel: y}
	var err error
	switch kind {
	case KindBar:
		if x == "" {
			err = p.distribution(ds)
		} else {
			err = p.grouped(ds)
		}
	case KindLine:
		if x == "" {
			err = p.index(ds)
		} else {
			err = p.series(ds)
		}
	case KindScatter:
		if x == "" {
			return nil, fmt.Errorf("%w: scatter needs two numeric columns", ErrInsufficientColumns)
		}
		err = p.points(ds)
	}
	if err != nil {
		return nil, err
	}
	p.Title = title(p, question)
	return p, nil
}

func inferColumns(ds *dataset.Dataset, kind Kind) (x, y string, err error) {
	nums := ds.NumericColumns()
	cats := ds.CategoricalColumns()
	switch kind {
	case KindBar:
		switch {
		case len(cats) > 0 && len(nums) > 0:
			return cats[0], nums[0], nil
		case len(nums) > 0:
			return "", nums[0], nil
		case len(cats) > 0:
			return "", cats[0], nil
		}
	case KindLine:
		switch {
		case len(nums) >= 2:
			return nums[0], nums[1], nil
		case len(nums) == 1:
			return "", nums[0], nil
		}
	case KindScatter:
		if len(nums) >= 2 {
			return nums[0], nums[1], nil
		}
	}
	return "", "", fmt.Errorf("%w for a %s chart", ErrInsufficientColumns, kind)
}

func title(p *Plan, question string) string {
	if p.X != "" && p.Y != "" {
		return fmt.Sprintf("%s by %s", p.Y, p.X)
	}
	if q := strings.TrimSpace(question); q != "" {
		return q
	}
	if p.Mode == ModeDistribution {
		return "Distribution of " + p.Y
	}
	return "Trend of " + p.Y
}

// hueKeys returns the most frequent hue values (ties by value) among the
// given rows, capped at MaxHueSeries.
func hueKeys(col *dataset.Column, rows []int) []string {
	counts := map[string]int{}
	for _, i := range rows {
		counts[hueValue(col, i)]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] == counts[keys[j]] {
			return keys[i] < keys[j]
		}
		return counts[keys[i]] > counts[keys[j]]
	})
	if len(keys) > MaxHueSeries {
		keys = keys[:MaxHueSeries]
	}
	return keys
}

func hueValue(col *dataset.Column, i int) string {
	v := strings.TrimSpace(col.Values[i])
	if v == "" {
		return "(blank)"
	}
	return v
}

func indexOf(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for i, k := range keys {
		m[k] = i
	}
	return m
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// grouped builds mean(y) per x category, sorted descending and truncated.
func (p *Plan) grouped(ds *dataset.Dataset) error {
	p.Mode = ModeGrouped
	xc, _ := ds.Column(p.X)
	yc, _ := ds.Column(p.Y)
	type acc struct {
		sum float64
		n   int
	}
	groups := map[string]*acc{}
	var rows []int
	for i := range xc.Values {
		xv := strings.TrimSpace(xc.Values[i])
		if xv == "" {
			continue
		}
		yv, ok := yc.Float(i)
		if !ok {
			continue
		}
		a := groups[xv]
		if a == nil {
			a = &acc{}
			groups[xv] = a
		}
		a.sum += yv
		a.n++
		rows = append(rows, i)
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: %q has no numeric values grouped by %q", ErrNoData, p.Y, p.X)
	}
	labels := make([]string, 0, len(groups))
	for k := range groups {
		labels = append(labels, k)
	}
	mean := func(k string) float64 { return groups[k].sum / float64(groups[k].n) }
	sort.Slice(labels, func(i, j int) bool {
		mi, mj := mean(labels[i]), mean(labels[j])
		if mi == mj {
			return labels[i] < labels[j]
		}
		return mi > mj
	})
	if len(labels) > MaxCategories {
		labels = labels[:MaxCategories]
	}
	p.Labels = labels
	p.Totals = make([]float64, len(labels))
	for i, k := range labels {
		p.Totals[i] = mean(k)
	}
	p.YLabel = "mean " + p.Y

	if p.Hue == "" {
		p.Series = []Series{{Name: p.Y, Values: append([]float64(nil), p.Totals...)}}
		return nil
	}
	hc, _ := ds.Column(p.Hue)
	keys := hueKeys(hc, rows)
	pos := indexOf(keys)
	at := indexOf(labels)
	sums := make([][]float64, len(keys))
	cnts := make([][]int, len(keys))
	for i := range keys {
		sums[i] = make([]float64, len(labels))
		cnts[i] = make([]int, len(labels))
	}
	for _, i := range rows {
		s, ok := pos[hueValue(hc, i)]
		if !ok {
			continue
		}
		l, ok := at[strings.TrimSpace(xc.Values[i])]
		if !ok {
			continue
		}
		yv, _ := yc.Float(i)
		sums[s][l] += yv
		cnts[s][l]++
	}
	for s, k := range keys {
		vals := nanSlice(len(labels))
		for l := range labels {
			if cnts[s][l] > 0 {
				vals[l] = sums[s][l] / float64(cnts[s][l])
			}
		}
		p.Series = append(p.Series, Series{Name: k, Values: vals})
	}
	return nil
}

// distribution builds a frequency chart of the single column p.Y: a
// histogram for numeric data, value counts otherwise.
func (p *Plan) distribution(ds *dataset.Dataset) error {
	p.Mode = ModeDistribution
	p.Hue = ""
	col, _ := ds.Column(p.Y)
	p.XLabel, p.YLabel = p.Y, "count"
	if col.IsNumeric() {
		var vals []float64
		for i := range col.Values {
			if v, ok := col.Float(i); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			return fmt.Errorf("%w: %q has no numeric values", ErrNoData, p.Y)
		}
		p.Labels, p.Totals = histogram(vals)
	} else {
		counts := map[string]int{}
		for i := range col.Values {
			if v := strings.TrimSpace(col.Values[i]); v != "" {
				counts[v]++
			}
		}
		if len(counts) == 0 {
			return fmt.Errorf("%w: %q is empty", ErrNoData, p.Y)
		}
		labels := make([]string, 0, len(counts))
		for k := range counts {
			labels = append(labels, k)
		}
		sort.Slice(labels, func(i, j int) bool {
			if counts[labels[i]] == counts[labels[j]] {
				return labels[i] < labels[j]
			}
			return counts[labels[i]] > counts[labels[j]]
		})
		if len(labels) > MaxCategories {
			labels = labels[:MaxCategories]
		}
		p.Labels = labels
		p.Totals = make([]float64, len(labels))
		for i, k := range labels {
			p.Totals[i] = float64(counts[k])
		}
	}
	p.Series = []Series{{Name: "count", Values: append([]float64(nil), p.Totals...)}}
	return nil
}

// histogram bins values into equal-width buckets using Sturges' rule,
// capped at MaxCategories.
func histogram(vals []float64) ([]string, []float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []string{fmt.Sprintf("%.4g", lo)}, []float64{float64(len(vals))}
	}
	k := int(math.Ceil(math.Log2(float64(len(vals))))) + 1
	if k > MaxCategories {
		k = MaxCategories
	}
	if k < 1 {
		k = 1
	}
	// hi/k - lo/k stays finite when hi-lo overflows.
	width := hi/float64(k) - lo/float64(k)
	counts := make([]float64, k)
	for _, v := range vals {
		pos := v/width - lo/width
		b := k - 1
		switch {
		case pos < 0:
			b = 0
		case pos < float64(k):
			b = int(pos)
		}
		counts[b]++
	}
	labels := make([]string, k)
	for b := 0; b < k; b++ {
		from, to := lo+float64(b)*width, lo+float64(b+1)*width
		if b == k-1 {
			labels[b] = fmt.Sprintf("[%.4g, %.4g]", from, hi)
		} else {
			labels[b] = fmt.Sprintf("[%.4g, %.4g)", from, to)
		}
	}
	return labels, counts
}

// series builds a line of y over x in row order, split by hue when set.
func (p *Plan) series(ds *dataset.Dataset) error {
	p.Mode = ModeSeries
	xc, _ := ds.Column(p.X)
	yc, _ := ds.Column(p.Y)
	var rows []int
	for i := range xc.Values {
		if strings.TrimSpace(xc.Values[i]) == "" {
			continue
		}
		if _, ok := yc.Float(i); !ok {
			continue
		}
		rows = append(rows, i)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %q has no numeric values", ErrNoData, p.Y)
	}
	if p.Hue == "" {
		vals := make([]float64, len(rows))
		p.Labels = make([]string, len(rows))
		for n, i := range rows {
			p.Labels[n] = strings.TrimSpace(xc.Values[i])
			vals[n], _ = yc.Float(i)
		}
		p.Series = []Series{{Name: p.Y, Values: vals}}
		return nil
	}
	hc, _ := ds.Column(p.Hue)
	keys := hueKeys(hc, rows)
	pos := indexOf(keys)
	at := map[string]int{}
	type cell struct{ s, l int }
	var cells []cell
	var ys []float64
	for _, i := range rows {
		s, ok := pos[hueValue(hc, i)]
		if !ok {
			continue
		}
		xv := strings.TrimSpace(xc.Values[i])
		l, seen := at[xv]
		if !seen {
			l = len(p.Labels)
			at[xv] = l
			p.Labels = append(p.Labels, xv)
		}
		yv, _ := yc.Float(i)
		cells = append(cells, cell{s, l})
		ys = append(ys, yv)
	}
	p.Series = make([]Series, len(keys))
	for s, k := range keys {
		p.Series[s] = Series{Name: k, Values: nanSlice(len(p.Labels))}
	}
	for n, c := range cells {
		p.Series[c.s].Values[c.l] = ys[n]
	}
	return nil
}

// index builds a line of y against row position.
func (p *Plan) index(ds *dataset.Dataset) error {
	p.Mode = ModeIndex
	p.Hue = ""
	p.XLabel = "row"
	yc, _ := ds.Column(p.Y)
	var vals []float64
	for i := range yc.Values {
		v, ok := yc.Float(i)
		if !ok {
			continue
		}
		p.Labels = append(p.Labels, fmt.Sprint(i))
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return fmt.Errorf("%w: %q has no numeric values", ErrNoData, p.Y)
	}
	p.Series = []Series{{Name: p.Y, Values: vals}}
	return nil
}

// points builds scatter samples where both axes parse as numbers.
func (p *Plan) points(ds *dataset.Dataset) error {
	p.Mode = ModePoints
	xc, _ := ds.Column(p.X)
	yc, _ := ds.Column(p.Y)
	var rows []int
	var pts []Point
	for i := range xc.Values {
		xv, okx := xc.Float(i)
		yv, oky := yc.Float(i)
		if !okx || !oky {
			continue
		}
		rows = append(rows, i)
		pts = append(pts, Point{X: xv, Y: yv})
	}
	if len(pts) == 0 {
		return fmt.Errorf("%w: %q and %q share no numeric rows", ErrNoData, p.X, p.Y)
	}
	if p.Hue == "" {
		p.Series = []Series{{Name: p.Y, Points: pts}}
		return nil
	}
	hc, _ := ds.Column(p.Hue)
	keys := hueKeys(hc, rows)
	pos := indexOf(keys)
	p.Series = make([]Series, len(keys))
	for s, k := range keys {
		p.Series[s].Name = k
	}
	for n, i := range rows {
		if s, ok := pos[hueValue(hc, i)]; ok {
			p.Series[s].Points = append(p.Series[s].Points, pts[n])
		}
	}
	return nil
}
