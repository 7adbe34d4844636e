package dataset

import "strings"

// Kind is the inferred scalar type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
	KindText        Kind = "text"
	KindUnknown     Kind = "unknown"
)

func (k Kind) valid() bool {
	switch k {
	case KindNumeric, KindDatetime, KindCategorical, KindText, KindUnknown:
		return true
	}
	return false
}

// Dataset is an uploaded table held for the duration of a session.
// Values are kept as the raw cell strings; typed views are derived on demand.
type Dataset struct {
	Name    string
	Columns []Column
	// Locale used when the dataset was parsed. Zero means auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// Column is a named, typed column of raw cell values.
type Column struct {
	Name   string
	Kind   Kind
	Values []string

	dec, thou rune
}

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// ColumnNames returns the column names in dataset order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	if d == nil || name == "" {
		return nil, false
	}
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// NumericColumns returns the names of numeric columns in dataset order.
func (d *Dataset) NumericColumns() []string {
	return d.columnsOf(KindNumeric)
}

// CategoricalColumns returns categorical and free-text columns in dataset order.
func (d *Dataset) CategoricalColumns() []string {
	return d.columnsOf(KindCategorical, KindText)
}

func (d *Dataset) columnsOf(kinds ...Kind) []string {
	var out []string
	for _, c := range d.Columns {
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c.Name)
				break
			}
		}
	}
	return out
}

// bindLocale propagates the dataset locale to its columns.
func (d *Dataset) bindLocale() {
	for i := range d.Columns {
		d.Columns[i].dec = d.DecimalSeparator
		d.Columns[i].thou = d.ThousandsSeparator
	}
}

// Head returns up to n rows in row-major order.
func (d *Dataset) Head(n int) [][]string {
	rows := d.NumRows()
	if n < 0 || n > rows {
		n = rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(d.Columns))
		for j, c := range d.Columns {
			row[j] = c.Values[i]
		}
		out[i] = row
	}
	return out
}

// Float parses the i-th value as a number.
func (c *Column) Float(i int) (float64, bool) {
	if c == nil || i < 0 || i >= len(c.Values) {
		return 0, false
	}
	v := strings.TrimSpace(c.Values[i])
	if v == "" {
		return 0, false
	}
	return parseNumeric(v, c.dec, c.thou)
}

// IsNumeric reports whether the column was inferred as numeric.
func (c *Column) IsNumeric() bool { return c != nil && c.Kind == KindNumeric }
