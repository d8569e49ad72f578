package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// CELL VALUES — Missing checks, coercion, comparison and formatting
// ============================================================================

// IsMissing reports whether v is a missing marker (nil or NaN).
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// toFloat converts numeric cells to float64. bool counts as 0/1.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return float64(x), true
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x), true
		}
	}
	return 0, false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64, bool, int:
		return true
	}
	return false
}

// inferKind picks the narrowest Kind that holds every non-missing value.
func inferKind(values []any) Kind {
	var ints, floats, bools, strs, other int
	for _, v := range values {
		if IsMissing(v) {
			if _, ok := v.(float64); ok {
				floats++
			}
			continue
		}
		switch v.(type) {
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		case string:
			strs++
		default:
			other++
		}
	}
	switch {
	case other > 0 || (strs > 0 && (ints+floats+bools) > 0):
		return KindObject
	case strs > 0:
		return KindString
	case bools > 0 && ints+floats == 0:
		return KindBool
	case floats > 0:
		return KindFloat
	case ints > 0:
		return KindInt
	}
	return KindObject
}

// equalValues is label equality: numbers compare numerically, missing equals missing.
func equalValues(a, b any) bool {
	if IsMissing(a) || IsMissing(b) {
		return IsMissing(a) && IsMissing(b)
	}
	if isNumber(a) && isNumber(b) {
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		return x == y
	}
	if ta, ok := a.(tuple); ok {
		tb, ok := b.(tuple)
		return ok && sameItems(ta, tb)
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	return aok && bok && sa == sb
}

// compareValues orders two non-missing values. Mixing strings with numbers
// is a TypeError, matching what an analyst sees from the reference library.
func compareValues(a, b any, op string) (int, error) {
	if isNumber(a) && isNumber(b) {
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.Compare(sa, sb), nil
	}
	return 0, typeErrorf("'%s' not supported between instances of '%s' and '%s'", op, typeName(a), typeName(b))
}

// lessForSort orders values for sorting: missing last, numbers before strings.
func lessForSort(a, b any) bool {
	am, bm := IsMissing(a), IsMissing(b)
	if am || bm {
		return !am && bm
	}
	if isNumber(a) != isNumber(b) {
		return isNumber(a)
	}
	c, err := compareValues(a, b, "<")
	if err != nil {
		return FormatValue(a, -1) < FormatValue(b, -1)
	}
	return c < 0
}

// typeName names v the way the reference library's errors do.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case int64, int:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case bool:
		return "bool"
	case *Series:
		return "Series"
	case *Frame:
		return "DataFrame"
	case *groupBy:
		return "DataFrameGroupBy"
	case *seriesGroupBy:
		return "SeriesGroupBy"
	case tuple:
		return "tuple"
	case []any:
		return "list"
	}
	return fmt.Sprintf("%T", v)
}

// FormatValue renders a cell. precision < 0 keeps the shortest exact form.
func FormatValue(v any, precision int) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x, precision)
	case []any:
		return formatList(x)
	case tuple:
		return "(" + strings.TrimSuffix(strings.TrimPrefix(formatList(x), "["), "]") + ")"
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64, precision int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if precision >= 0 {
		p := math.Pow(10, float64(precision))
		f = math.Round(f*p) / p
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatList(items []any) string {
	parts := make([]string, len(items))
	for i, it := range items {
		if s, ok := it.(string); ok {
			parts[i] = "'" + s + "'"
			continue
		}
		parts[i] = FormatValue(it, -1)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func labelString(v any) string { return FormatValue(v, -1) }

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// quoteKey formats a lookup key the way a KeyError message shows it.
func quoteKey(v any) string {
	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}
	return FormatValue(v, -1)
}
