package schema

import (
	"fmt"

	"github.com/spektr-org/cogniview/engine"
	"github.com/spektr-org/cogniview/helpers"
)

// ============================================================================
// AUTO-DISCOVERY — Schema from a loaded frame
// ============================================================================
// Per column:
//   1. Storage kind → coarse Type (integer, float, text, other)
//   2. First n rows → distinct non-missing sample values, first-seen order
// No AI needed. Nothing is read beyond the first n rows for samples.
// ============================================================================

// DefaultSampleRows is the number of leading rows sampled per column.
const DefaultSampleRows = 5

// FromFrame derives the Schema of frame. Samples are the distinct
// non-missing values among the first n rows (n <= 0 uses DefaultSampleRows).
func FromFrame(frame *engine.Frame, n int) (*Schema, error) {
	if frame == nil {
		return nil, fmt.Errorf("no dataset loaded")
	}
	if n <= 0 {
		n = DefaultSampleRows
	}

	head := frame.Head(n)
	columns := make([]ColumnDescriptor, 0, frame.Width())
	for _, col := range head.Columns() {
		columns = append(columns, ColumnDescriptor{
			Name:    col.Name(),
			Type:    typeOf(col.Kind()),
			Samples: collectSamples(col),
		})
	}
	return New(columns, frame.Len())
}

// DiscoverFromCSV parses CSV bytes and derives their schema in one step.
func DiscoverFromCSV(data []byte, n int) (*engine.Frame, *Schema, error) {
	frame, err := helpers.ParseCSV(data)
	if err != nil {
		return nil, nil, err
	}
	sch, err := FromFrame(frame, n)
	if err != nil {
		return nil, nil, err
	}
	return frame, sch, nil
}

func typeOf(k engine.Kind) Type {
	switch k {
	case engine.KindInt:
		return TypeInteger
	case engine.KindFloat:
		return TypeFloat
	case engine.KindString:
		return TypeText
	case engine.KindObject:
		return TypeText
	}
	return TypeOther
}

// collectSamples picks the distinct rendered values of col in row order.
func collectSamples(col *engine.Series) []string {
	samples := make([]string, 0, col.Len())
	seen := make(map[string]bool, col.Len())
	for i := 0; i < col.Len(); i++ {
		v := col.Value(i)
		if engine.IsMissing(v) {
			continue
		}
		s := engine.FormatValue(v, -1)
		if seen[s] {
			continue
		}
		seen[s] = true
		samples = append(samples, s)
	}
	return samples
}
