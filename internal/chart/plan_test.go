package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/csvinsight/internal/dataset"
)

const drinksCSV = `country,beer_servings,spirit_servings,continent
Afghanistan,0,0,AS
Albania,89,132,EU
Algeria,25,0,AF
Andorra,245,138,EU
Angola,217,57,AF
`

func mustParse(t *testing.T, csv string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Parse("test.csv", strings.NewReader(csv), dataset.Options{})
	require.NoError(t, err)
	return ds
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"bar chart":    KindBar,
		"Bar Chart":    KindBar,
		"BAR":          KindBar,
		"line-graph":   KindLine,
		"Line Chart":   KindLine,
		"scatter plot": KindScatter,
		"scatterplot":  KindScatter,
		" Scatter ":    KindScatter,
	}
	for in, want := range cases {
		got, ok := ParseKind(in)
		assert.Truef(t, ok, "ParseKind(%q) should be supported", in)
		assert.Equalf(t, want, got, "ParseKind(%q)", in)
	}
	for _, in := range []string{"None", "", "pie chart", "histogram", "chart"} {
		_, ok := ParseKind(in)
		assert.Falsef(t, ok, "ParseKind(%q) should be unsupported", in)
	}
}

func TestResolveBarInfersGroupedMean(t *testing.T) {
	ds := mustParse(t, drinksCSV)
	p, err := Resolve(ds, "bar chart", Hints{}, "Which country drinks the most beer?")
	require.NoError(t, err)

	assert.Equal(t, ModeGrouped, p.Mode)
	assert.Equal(t, "country", p.X)
	assert.Equal(t, "beer_servings", p.Y)
	assert.Equal(t, "beer_servings by country", p.Title)
	assert.Equal(t, []string{"Andorra", "Angola", "Albania", "Algeria", "Afghanistan"}, p.Labels)
	require.Len(t, p.Series, 1)
	assert.Equal(t, []float64{245, 217, 89, 25, 0}, p.Series[0].Values)
}

func TestResolveBarTruncatesToTopCategories(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,score\n")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "c%02d,%d\n", i, i)
		fmt.Fprintf(&b, "c%02d,%d\n", i, i+2)
	}
	ds := mustParse(t, b.String())
	p, err := Resolve(ds, "Bar", Hints{}, "")
	require.NoError(t, err)

	assert.Len(t, p.Labels, MaxCategories)
	assert.Equal(t, "c24", p.Labels[0])
	assert.Equal(t, 25.0, p.Totals[0])
	assert.True(t, sort.SliceIsSorted(p.Totals, func(i, j int) bool { return p.Totals[i] > p.Totals[j] }))
}

func TestResolveBarWithoutCategoricalIsDistribution(t *testing.T) {
	ds := mustParse(t, "a,b\n1,10\n2,20\n3,30\n4,40\n")
	p, err := Resolve(ds, "bar chart", Hints{}, "")
	require.NoError(t, err)
	assert.Equal(t, ModeDistribution, p.Mode)
	assert.Equal(t, "a", p.Y)
	assert.Equal(t, "Distribution of a", p.Title)

	var total float64
	for _, v := range p.Totals {
		total += v
	}
	assert.Equal(t, 4.0, total)
}

func TestResolveDiscardsUnknownHint(t *testing.T) {
	ds := mustParse(t, drinksCSV)
	p, err := Resolve(ds, "bar chart", Hints{X: "nonexistent", Y: "beer_servings"}, "How is beer distributed?")
	require.NoError(t, err)

	assert.Equal(t, ModeDistribution, p.Mode)
	assert.Empty(t, p.X)
	assert.Equal(t, "beer_servings", p.Y)
	assert.Equal(t, "How is beer distributed?", p.Title)
	assert.Equal(t, []float64{2, 1, 0, 2}, p.Totals)
	assert.Equal(t, "[0, 61.25)", p.Labels[0])
}

func TestHistogramHandlesOverflowingSpan(t *testing.T) {
	vals := []float64{-1e308, 0, 1e308}
	var labels []string
	var counts []float64
	require.NotPanics(t, func() { labels, counts = histogram(vals) })
	require.Len(t, counts, len(labels))
	var total float64
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 3.0, total)
	assert.Equal(t, 1.0, counts[0])
	assert.Equal(t, 1.0, counts[len(counts)-1])

	ds := mustParse(t, "v\n-1e308\n1e308\n")
	p, err := Resolve(ds, "bar", Hints{}, "")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, p.Totals)
	for _, l := range p.Labels {
		assert.NotContains(t, l, "Inf")
	}
}

func TestResolveCategoricalDistribution(t *testing.T) {
	ds := mustParse(t, drinksCSV)
	p, err := Resolve(ds, "bar", Hints{X: "continent"}, "")
	require.NoError(t, err)
	assert.Equal(t, ModeDistribution, p.Mode)
	assert.Equal(t, []string{"AF", "EU", "AS"}, p.Labels)
	assert.Equal(t, []float64{2, 2, 1}, p.Totals)
}

func TestResolveBarWithHue(t *testing.T) {
	ds := mustParse(t, "region,product,sales\nN,a,10\nN,b,20\nS,a,5\nS,b,15\n")
	p, err := Resolve(ds, "bar", Hints{X: "region", Y: "sales", Hue: "product"}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"N", "S"}, p.Labels)
	assert.Equal(t, []float64{15, 10}, p.Totals)
	require.Len(t, p.Series, 2)
	assert.Equal(t, "a", p.Series[0].Name)
	assert.Equal(t, []float64{10, 5}, p.Series[0].Values)
	assert.Equal(t, []float64{20, 15}, p.Series[1].Values)
}

func TestResolveLine(t *testing.T) {
	ds := mustParse(t, drinksCSV)
	p, err := Resolve(ds, "line chart", Hints{}, "")
	require.NoError(t, err)
	assert.Equal(t, ModeSeries, p.Mode)
	assert.Equal(t, "beer_servings", p.X)
	assert.Equal(t, "spirit_servings", p.Y)
	assert.Equal(t, "spirit_servings by beer_servings", p.Title)
	assert.Equal(t, []string{"0", "89", "25", "245", "217"}, p.Labels)

	single := mustParse(t, "name,v\na,3\nb,x\nc,5\nd,6\n")
	p, err = Resolve(single, "Line", Hints{}, "How does v change?")
	require.NoError(t, err)
	assert.Equal(t, ModeIndex, p.Mode)
	assert.Equal(t, "How does v change?", p.Title)
	assert.Equal(t, []string{"0", "2", "3"}, p.Labels)
	assert.Equal(t, []float64{3, 5, 6}, p.Series[0].Values)
}

func TestResolveLineWithHueLeavesGaps(t *testing.T) {
	ds := mustParse(t, "day,city,temp\n1,A,10\n1,B,20\n2,A,11\n3,B,22\n")
	p, err := Resolve(ds, "line", Hints{X: "day", Y: "temp", Hue: "city"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, p.Labels)
	require.Len(t, p.Series, 2)
	assert.Equal(t, 10.0, p.Series[0].Values[0])
	assert.True(t, math.IsNaN(p.Series[0].Values[2]))
	assert.True(t, math.IsNaN(p.Series[1].Values[1]))
}

func TestResolveScatter(t *testing.T) {
	ds := mustParse(t, drinksCSV)
	p, err := Resolve(ds, "scatter plot", Hints{}, "")
	require.NoError(t, err)
	assert.Equal(t, ModePoints, p.Mode)
	require.Len(t, p.Series, 1)
	assert.Len(t, p.Series[0].Points, 5)
	assert.Equal(t, Point{X: 245, Y: 138}, p.Series[0].Points[3])

	p, err = Resolve(ds, "scatter", Hints{X: "beer_servings", Y: "spirit_servings", Hue: "continent"}, "")
	require.NoError(t, err)
	assert.Len(t, p.Series, 3)
}

func TestResolveScatterNeedsTwoNumericColumns(t *testing.T) {
	ds := mustParse(t, "name,v\na,1\nb,2\n")
	_, err := Resolve(ds, "scatter plot", Hints{}, "")
	assert.ErrorIs(t, err, ErrInsufficientColumns)
	assert.Nil(t, ResolveAndRender(ds, "scatter plot", Hints{}, "", &TextRenderer{}, nil))
}

func TestResolveUnsupportedLabel(t *testing.T) {
	ds := mustParse(t, drinksCSV)
	_, err := Resolve(ds, "None", Hints{}, "")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	assert.Nil(t, ResolveAndRender(ds, "pie chart", Hints{}, "", &TextRenderer{}, nil))
}

func TestResolveNoData(t *testing.T) {
	ds := mustParse(t, "name,v\na,x\nb,y\n")
	_, err := Resolve(ds, "bar", Hints{X: "name", Y: "v"}, "")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestResolveIsIdempotent(t *testing.T) {
	ds := mustParse(t, drinksCSV)
	h := Hints{X: "continent", Y: "spirit_servings"}
	a, err := Resolve(ds, "bar chart", h, "q")
	require.NoError(t, err)
	b, err := Resolve(ds, "bar chart", h, "q")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
