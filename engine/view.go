package engine

import (
	"fmt"
)

// ============================================================================
// SERIES / FRAME CONSTRUCTION AND ROW SELECTION
// ============================================================================
// Row selection collects the surviving row positions in one pass, then
// materializes a new value that holds only those rows. Parents are never
// touched.
// ============================================================================

// NewSeries creates a Series with a default 0..n-1 index.
// The kind is inferred from the values.
func NewSeries(name string, values []any) *Series {
	return newSeries(name, inferKind(values), rangeLabels(len(values)), cloneValues(values))
}

// NewTypedSeries creates a Series with an explicit kind and a default index.
func NewTypedSeries(name string, kind Kind, values []any) *Series {
	return newSeries(name, kind, rangeLabels(len(values)), cloneValues(values))
}

func newSeries(name string, kind Kind, labels, values []any) *Series {
	return &Series{name: name, kind: kind, labels: labels, values: values}
}

// NewFrame builds a Frame from columns of equal length and unique names.
// The index of the first column becomes the frame index.
func NewFrame(columns ...*Series) (*Frame, error) {
	f := &Frame{}
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if seen[c.name] {
			return nil, fmt.Errorf("duplicate column name %q", c.name)
		}
		seen[c.name] = true
		if i == 0 {
			f.index = c.index
			f.labels = c.labels
		} else if c.Len() != len(f.labels) {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.name, c.Len(), len(f.labels))
		}
		f.columns = append(f.columns, &Series{name: c.name, kind: c.kind, index: f.index, labels: f.labels, values: c.values})
	}
	if f.labels == nil {
		f.labels = []any{}
	}
	return f, nil
}

func newFrame(index string, labels []any, columns []*Series) *Frame {
	cols := make([]*Series, len(columns))
	for i, c := range columns {
		cols[i] = &Series{name: c.name, kind: c.kind, index: index, labels: labels, values: c.values}
	}
	return &Frame{index: index, labels: labels, columns: cols}
}

func rangeLabels(n int) []any {
	labels := make([]any, n)
	for i := range labels {
		labels[i] = int64(i)
	}
	return labels
}

func cloneValues(values []any) []any {
	out := make([]any, len(values))
	copy(out, values)
	return out
}

// ============================================================================
// SERIES ACCESSORS
// ============================================================================

func (s *Series) Name() string { return s.name }
func (s *Series) Kind() Kind   { return s.kind }
func (s *Series) Len() int     { return len(s.values) }

// Value returns the value at position i.
func (s *Series) Value(i int) any { return s.values[i] }

// Label returns the index label at position i.
func (s *Series) Label(i int) any { return s.labels[i] }

// Values returns a copy of the values.
func (s *Series) Values() []any { return cloneValues(s.values) }

// Labels returns a copy of the index labels.
func (s *Series) Labels() []any { return cloneValues(s.labels) }

// IndexName returns the name of the index, empty for a default range index.
func (s *Series) IndexName() string { return s.index }

func (s *Series) withValues(name string, kind Kind, values []any) *Series {
	return &Series{name: name, kind: kind, index: s.index, labels: s.labels, values: values}
}

func (s *Series) take(rows []int) *Series {
	labels := make([]any, len(rows))
	values := make([]any, len(rows))
	for i, r := range rows {
		labels[i] = s.labels[r]
		values[i] = s.values[r]
	}
	return &Series{name: s.name, kind: s.kind, index: s.index, labels: labels, values: values}
}

func (s *Series) head(n int) *Series { return s.take(headRows(s.Len(), n)) }
func (s *Series) tail(n int) *Series { return s.take(tailRows(s.Len(), n)) }

// position finds the first row whose label equals label.
func (s *Series) position(label any) (int, bool) {
	return findLabel(s.labels, label)
}

// ============================================================================
// FRAME ACCESSORS
// ============================================================================

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.labels) }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.columns) }

// ColumnNames returns the column names in order.
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.name
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Series, bool) {
	for _, c := range f.columns {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Columns returns the columns in order.
func (f *Frame) Columns() []*Series {
	out := make([]*Series, len(f.columns))
	copy(out, f.columns)
	return out
}

// Labels returns a copy of the row index.
func (f *Frame) Labels() []any { return cloneValues(f.labels) }

// IndexName returns the name of the row index.
func (f *Frame) IndexName() string { return f.index }

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame { return f.take(headRows(f.Len(), n)) }

func (f *Frame) take(rows []int) *Frame {
	labels := make([]any, len(rows))
	for i, r := range rows {
		labels[i] = f.labels[r]
	}
	cols := make([]*Series, len(f.columns))
	for i, c := range f.columns {
		values := make([]any, len(rows))
		for j, r := range rows {
			values[j] = c.values[r]
		}
		cols[i] = &Series{name: c.name, kind: c.kind, index: f.index, labels: labels, values: values}
	}
	return &Frame{index: f.index, labels: labels, columns: cols}
}

func (f *Frame) tail(n int) *Frame { return f.take(tailRows(f.Len(), n)) }

func (f *Frame) selectColumns(names []string) (*Frame, error) {
	var missing []string
	cols := make([]*Series, 0, len(names))
	for _, n := range names {
		c, ok := f.Column(n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		cols = append(cols, c)
	}
	if len(missing) > 0 {
		return nil, keyErrorf("%s not in index", formatList(stringsToAny(missing)))
	}
	return newFrame(f.index, f.labels, cols), nil
}

// row returns row i as a Series indexed by column name.
func (f *Frame) row(i int) *Series {
	labels := make([]any, len(f.columns))
	values := make([]any, len(f.columns))
	for j, c := range f.columns {
		labels[j] = c.name
		values[j] = c.values[i]
	}
	return newSeries(labelString(f.labels[i]), inferKind(values), labels, values)
}

func headRows(n, k int) []int {
	if k < 0 {
		k = n + k
		if k < 0 {
			k = 0
		}
	}
	if k > n {
		k = n
	}
	rows := make([]int, k)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func tailRows(n, k int) []int {
	if k < 0 {
		k = n + k
		if k < 0 {
			k = 0
		}
	}
	if k > n {
		k = n
	}
	rows := make([]int, k)
	for i := range rows {
		rows[i] = n - k + i
	}
	return rows
}

func sliceRows(n int, lo, hi *int64) []int {
	start, stop := 0, n
	if lo != nil {
		start = clampIndex(int(*lo), n)
	}
	if hi != nil {
		stop = clampIndex(int(*hi), n)
	}
	var rows []int
	for i := start; i < stop; i++ {
		rows = append(rows, i)
	}
	return rows
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func findLabel(labels []any, label any) (int, bool) {
	for i, l := range labels {
		if equalValues(l, label) {
			return i, true
		}
	}
	return -1, false
}
