package engine

// ============================================================================
// ENGINE TYPES — Typed columns, frames and render-ready results
// ============================================================================
// A Frame is a set of equally long Series that share one row index.
// Every operation returns new values; nothing in this package writes into
// an existing Series or Frame after construction.
//
// Cell values are one of: int64, float64, string, bool, nil (missing).
// A float64 NaN is also treated as missing.
// ============================================================================

// Kind is the storage type of a Series.
type Kind int

const (
	KindObject Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

// String returns the dtype name a data analyst would expect to see.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	default:
		return "object"
	}
}

// Numeric reports whether values of this kind take part in arithmetic.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat || k == KindBool
}

// Series is a named, indexed column of values.
type Series struct {
	name   string
	kind   Kind
	index  string // index name, set by grouping and value_counts
	labels []any
	values []any
}

// Frame is a table of named Series sharing a row index.
type Frame struct {
	index   string
	labels  []any
	columns []*Series
}

// ============================================================================
// RESULT — Classified, render-ready output
// ============================================================================

// Class is the render classification of an evaluated value.
// Every value maps to exactly one Class.
type Class string

const (
	ClassEmpty       Class = "empty"        // empty table or series
	ClassSingleValue Class = "single_value" // one-row series
	ClassTable       Class = "table"        // multi-row series or any non-empty table
	ClassList        Class = "list"         // list or tuple
	ClassMissing     Class = "missing"      // NaN / None
	ClassScalar      Class = "scalar"       // any other scalar
)

// Result is the executor's render-ready output.
type Result struct {
	Success bool   `json:"success"`
	Class   Class  `json:"class"`
	Type    string `json:"type"` // "text", "table", "list"
	Reply   string `json:"reply"`

	// Exactly one of these is populated based on Class.
	TableData *TableData `json:"tableData,omitempty"`
	Items     []string   `json:"items,omitempty"`
	Data      *TextData  `json:"data,omitempty"`

	// Value is the raw evaluated value (*Frame, *Series, []any or a scalar).
	Value any `json:"-"`
}

// TableData defines how to render a table.
type TableData struct {
	Title     string     `json:"title"`
	Columns   []Column   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"totalRows"`
	Truncated bool       `json:"truncated,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "index", "text", "number", "bool"
	Align string `json:"align"` // "left", "right"
}

// TextData is the payload for single-value and scalar answers.
type TextData struct {
	Value string `json:"value"`
	Type  string `json:"type"` // int, float, str, bool
	Label string `json:"label,omitempty"`
}
