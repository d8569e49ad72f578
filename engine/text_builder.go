package engine

import (
	"fmt"
)

// ============================================================================
// TEXT BUILDER — Produces TextData for single values and scalars
// ============================================================================

// singleValueText renders the lone value of a one-row Series.
func singleValueText(s *Series, cfg *config) *TextData {
	v := s.values[0]
	label := renderCell(s.labels[0], -1)
	if s.name != "" {
		label = s.name + " · " + label
	}
	return &TextData{
		Value: displayValue(v, cfg.precision),
		Type:  valueType(v),
		Label: label,
	}
}

func scalarText(v any, cfg *config) *TextData {
	return &TextData{
		Value: displayValue(v, cfg.precision),
		Type:  valueType(v),
	}
}

// displayValue is the human form of a scalar: integers get separators.
func displayValue(v any, precision int) string {
	switch x := v.(type) {
	case int64:
		return FormatInt(x)
	case *boundMethod:
		return fmt.Sprintf("<method %s of %s>", x.name, typeName(x.recv))
	case *groupBy:
		return fmt.Sprintf("<grouping by %s: %d groups>", x.indexName(), len(x.groups))
	case *seriesGroupBy:
		return fmt.Sprintf("<grouping of %q by %s: %d groups>", x.column.name, x.parent.indexName(), len(x.parent.groups))
	case *indexer, *strAccessor, pdModule:
		return fmt.Sprintf("<%s>", typeName(v))
	}
	return renderCell(v, precision)
}

func valueType(v any) string {
	switch v.(type) {
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case bool:
		return "bool"
	}
	return "object"
}
