package engine

import (
	"fmt"
	"strings"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a Series or Frame
// ============================================================================
// The row index is always the first column so filtered rows keep their
// original positions and grouped results keep their group keys.
// ============================================================================

func indexColumn(name string) Column {
	return Column{Key: "index", Label: name, Type: "index", Align: "left"}
}

func valueColumn(key, label string, kind Kind) Column {
	switch {
	case kind == KindBool:
		return Column{Key: key, Label: label, Type: "bool", Align: "left"}
	case kind.Numeric():
		return Column{Key: key, Label: label, Type: "number", Align: "right"}
	}
	return Column{Key: key, Label: label, Type: "text", Align: "left"}
}

func seriesTable(s *Series, cfg *config) *TableData {
	label := s.name
	if label == "" {
		label = "value"
	}
	columns := []Column{indexColumn(s.index), valueColumn("value", label, s.kind)}

	n := min(s.Len(), cfg.maxRows)
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []string{
			renderCell(s.labels[i], -1),
			renderCell(s.values[i], cfg.precision),
		})
	}

	return &TableData{
		Title:     s.name,
		Columns:   columns,
		Rows:      rows,
		TotalRows: s.Len(),
		Truncated: s.Len() > n,
	}
}

func frameTable(f *Frame, cfg *config) *TableData {
	columns := make([]Column, 0, f.Width()+1)
	columns = append(columns, indexColumn(f.index))
	for i, c := range f.columns {
		columns = append(columns, valueColumn(fmt.Sprintf("c%d", i), c.name, c.kind))
	}

	n := min(f.Len(), cfg.maxRows)
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(columns))
		row = append(row, renderCell(f.labels[i], -1))
		for _, c := range f.columns {
			row = append(row, renderCell(c.values[i], cfg.precision))
		}
		rows = append(rows, row)
	}

	return &TableData{
		Columns:   columns,
		Rows:      rows,
		TotalRows: f.Len(),
		Truncated: f.Len() > n,
	}
}

func tableReply(t *TableData) string {
	if t.Truncated {
		return fmt.Sprintf("%s rows (showing the first %s).", FormatInt(int64(t.TotalRows)), FormatInt(int64(len(t.Rows))))
	}
	return fmt.Sprintf("%s rows.", FormatInt(int64(t.TotalRows)))
}

// renderCell formats one cell. Missing cells render as NaN.
func renderCell(v any, precision int) string {
	if IsMissing(v) {
		return "NaN"
	}
	if t, ok := v.(tuple); ok {
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = renderCell(p, precision)
		}
		return strings.Join(parts, ", ")
	}
	return FormatValue(v, precision)
}
