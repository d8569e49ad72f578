package schema

import (
	"fmt"
	"strings"
)

// ============================================================================
// SCHEMA — Describes the shape of a dataset for the prompt and the validator
// ============================================================================
// Derived from the uploaded frame (FromFrame) or loaded from a snapshot.
// The translator uses it to build prompts and repair generated code.
// The guard uses it to reject code that names columns that do not exist.
// ============================================================================

// Type is the coarse column type shown to the language model.
type Type string

const (
	TypeInteger Type = "integer"
	TypeFloat   Type = "float"
	TypeText    Type = "text"
	TypeOther   Type = "other"
)

// Numeric reports whether the type takes part in aggregation.
func (t Type) Numeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// ParseType accepts the stored form of a Type.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeInteger, TypeFloat, TypeText, TypeOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

// ColumnDescriptor describes one column.
type ColumnDescriptor struct {
	Name    string
	Type    Type
	Samples []string
}

// Sample joins the sample values the way they appear in the prompt.
func (c ColumnDescriptor) Sample() string {
	return strings.Join(c.Samples, ", ")
}

// Schema is the ordered column list of one dataset.
// Built once per upload and never modified afterwards.
type Schema struct {
	Columns []ColumnDescriptor
	Rows    int
	Cols    int
}

// New builds a Schema, rejecting empty and duplicate column names.
func New(columns []ColumnDescriptor, rows int) (*Schema, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column name is empty")
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
	}
	cols := make([]ColumnDescriptor, len(columns))
	copy(cols, columns)
	return &Schema{Columns: cols, Rows: rows, Cols: len(cols)}, nil
}

// Names returns the column names in dataset order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether name is a column of the dataset.
func (s *Schema) Has(name string) bool {
	_, ok := s.Column(name)
	return ok
}

// Column looks up a descriptor by exact name.
func (s *Schema) Column(name string) (ColumnDescriptor, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// TextColumns returns the names of text columns in dataset order.
func (s *Schema) TextColumns() []string {
	return s.namesWhere(func(t Type) bool { return t == TypeText })
}

// NumericColumns returns the names of integer and float columns in dataset order.
func (s *Schema) NumericColumns() []string {
	return s.namesWhere(Type.Numeric)
}

func (s *Schema) namesWhere(keep func(Type) bool) []string {
	var names []string
	for _, c := range s.Columns {
		if keep(c.Type) {
			names = append(names, c.Name)
		}
	}
	return names
}

// BySnakeName maps each column's snake form to its real name.
// "math score" → "math_score". Only names that change are included.
func (s *Schema) BySnakeName() map[string]string {
	out := make(map[string]string)
	for _, c := range s.Columns {
		if snake := SnakeName(c.Name); snake != c.Name {
			out[snake] = c.Name
		}
	}
	return out
}

// SnakeName converts "Column Name" → "column_name": lowercased, spaces to
// underscores.
func SnakeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
