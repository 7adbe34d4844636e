package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// ProfileOptions controls the size of a dataset summary.
type ProfileOptions struct {
	// SampleRows is the number of head rows included in the summary.
	SampleRows int
	// TopValues is the number of most frequent values listed per categorical column.
	TopValues int
}

// DefaultProfileOptions returns the bounded settings used for prompts.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{SampleRows: 5, TopValues: 5}
}

// Report is a compact description of a dataset: schema, statistics and head rows.
type Report struct {
	Name    string
	Rows    int
	Cols    []ColumnSummary
	Samples [][]string
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// Profile computes per-column statistics for d.
func Profile(d *Dataset, opt ProfileOptions) *Report {
	if opt.SampleRows <= 0 {
		opt.SampleRows = 5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	rep := &Report{Name: d.Name, Rows: d.NumRows(), Samples: d.Head(opt.SampleRows)}
	for i := range d.Columns {
		c := &d.Columns[i]
		s := ColumnSummary{Name: c.Name, Kind: c.Kind}
		cats := map[string]int{}
		// numeric stats via Welford
		var n int
		var mean, m2 float64
		min, max := math.Inf(1), math.Inf(-1)
		for j, raw := range c.Values {
			v := strings.TrimSpace(raw)
			if v == "" {
				s.Missing++
				continue
			}
			s.NonNull++
			cats[v]++
			if c.Kind != KindNumeric {
				continue
			}
			x, ok := c.Float(j)
			if !ok {
				continue
			}
			n++
			if x < min {
				min = x
			}
			if x > max {
				max = x
			}
			delta := x - mean
			mean += delta / float64(n)
			m2 += delta * (x - mean)
		}
		s.Unique = len(cats)
		switch c.Kind {
		case KindNumeric:
			if n > 0 {
				s.Min, s.Max, s.Mean = min, max, mean
			}
			if n > 1 {
				s.Std = math.Sqrt(m2 / float64(n-1))
			}
		case KindCategorical:
			s.TopValues = topCounts(cats, opt.TopValues)
		case KindText:
			for _, v := range c.Values {
				if strings.TrimSpace(v) == "" {
					continue
				}
				s.ExampleTexts = append(s.ExampleTexts, v)
				if len(s.ExampleTexts) == 3 {
					break
				}
			}
		}
		rep.Cols = append(rep.Cols, s)
	}
	return rep
}

func topCounts(m map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(m))
	for k, v := range m {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

// Markdown renders a compact report suitable for prompts.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		case KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case KindText:
			if len(c.ExampleTexts) > 0 {
				b.WriteString("; e.g. ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(clip(ex, 80)))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				b.WriteString(safeVal(clip(val, 80)))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

// Preview renders the first n rows as an aligned plain-text table with a
// leading row index.
func (d *Dataset) Preview(n int) string {
	rows := d.Head(n)
	ncol := len(d.Columns)
	if ncol == 0 {
		return "(empty dataset)"
	}
	idxWidth := len(fmt.Sprint(len(rows) - 1))
	widths := make([]int, ncol)
	for j, c := range d.Columns {
		widths[j] = utf8.RuneCountInString(c.Name)
		for _, row := range rows {
			if w := utf8.RuneCountInString(clip(row[j], 40)); w > widths[j] {
				widths[j] = w
			}
		}
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", idxWidth))
	for j, c := range d.Columns {
		b.WriteString("  ")
		b.WriteString(padLeft(c.Name, widths[j]))
	}
	b.WriteString("\n")
	for i, row := range rows {
		b.WriteString(padLeft(fmt.Sprint(i), idxWidth))
		for j := range d.Columns {
			b.WriteString("  ")
			b.WriteString(padLeft(clip(safeVal(row[j]), 40), widths[j]))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func padLeft(s string, w int) string {
	n := utf8.RuneCountInString(s)
	if n >= w {
		return s
	}
	return strings.Repeat(" ", w-n) + s
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-3]) + "..."
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
