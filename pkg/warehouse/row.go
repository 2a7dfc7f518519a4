package warehouse

import (
	"fmt"
)

// columnIndex is shared by every row of one result.
type columnIndex struct {
	names    []string
	position map[string]int
}

func newColumnIndex(names []string) *columnIndex {
	idx := &columnIndex{
		names:    names,
		position: make(map[string]int, len(names)),
	}
	// First occurrence wins when a result repeats a column name.
	for i, n := range names {
		if _, ok := idx.position[n]; !ok {
			idx.position[n] = i
		}
	}
	return idx
}

// Row is one result row addressable by position or by column name.
// The number of values always equals the number of columns.
type Row struct {
	cols   *columnIndex
	values []any
}

// NewRow pairs values with column names. It fails when the arities differ.
func NewRow(columns []string, values []any) (Row, error) {
	if len(columns) != len(values) {
		return Row{}, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}
	return Row{cols: newColumnIndex(columns), values: values}, nil
}

// Len returns the number of values in the row.
func (r Row) Len() int {
	return len(r.values)
}

// At returns the value at position i, or nil when i is out of range.
func (r Row) At(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// Get returns the value for the named column.
func (r Row) Get(name string) (any, bool) {
	if r.cols == nil {
		return nil, false
	}
	i, ok := r.cols.position[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Value returns the value for the named column, or nil when absent.
func (r Row) Value(name string) any {
	v, _ := r.Get(name)
	return v
}

// String returns the named value formatted as text. Nil and missing values are "".
func (r Row) String(name string) string {
	return formatValue(r.Value(name))
}

// StringAt is String by position.
func (r Row) StringAt(i int) string {
	return formatValue(r.At(i))
}

// FirstString returns the first non-empty value among the candidate columns.
// Different warehouse versions name SHOW output columns differently.
func (r Row) FirstString(names ...string) string {
	for _, n := range names {
		if s := r.String(n); s != "" {
			return s
		}
	}
	return ""
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	if r.cols == nil {
		return nil
	}
	return r.cols.names
}

// Values returns a copy of the row values in column order.
func (r Row) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// Map returns the row keyed by column name.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, n := range r.Columns() {
		if _, ok := m[n]; !ok {
			m[n] = r.values[i]
		}
	}
	return m
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// Result is a fully materialized statement result.
type Result struct {
	Columns []string
	Rows    []Row
}

// NewResult wraps raw row arrays with the column names.
func NewResult(columns []string, raw [][]any) (*Result, error) {
	if columns == nil {
		columns = []string{}
	}
	idx := newColumnIndex(columns)
	rows := make([]Row, 0, len(raw))
	for i, values := range raw {
		if len(values) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(values), len(columns))
		}
		rows = append(rows, Row{cols: idx, values: values})
	}
	return &Result{Columns: columns, Rows: rows}, nil
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// Maps returns every row keyed by column name.
func (r *Result) Maps() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Map()
	}
	return out
}
