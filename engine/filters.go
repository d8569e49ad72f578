package engine

import (
	"strings"
)

// ============================================================================
// FILTERS — Boolean masks and row selection
// ============================================================================
// Single pass: a mask is walked once, surviving positions are collected,
// and the result is materialized with take(). The source is never modified.
// ============================================================================

// maskRows returns the positions where mask is true.
// Missing mask cells count as false.
func maskRows(mask *Series, n int) ([]int, error) {
	if mask.Len() != n {
		return nil, valueErrorf("Item wrong length %d instead of %d.", mask.Len(), n)
	}
	rows := make([]int, 0, n)
	for i, v := range mask.values {
		switch b := v.(type) {
		case bool:
			if b {
				rows = append(rows, i)
			}
		case nil:
		default:
			if !IsMissing(v) {
				return nil, keyErrorf("None of [%s] are in the [columns]", formatList(mask.values))
			}
		}
	}
	return rows, nil
}

func isBoolMask(v any) bool {
	s, ok := v.(*Series)
	return ok && s.kind == KindBool
}

func filterFrame(f *Frame, mask *Series) (*Frame, error) {
	rows, err := maskRows(mask, f.Len())
	if err != nil {
		return nil, err
	}
	return f.take(rows), nil
}

func filterSeries(s *Series, mask *Series) (*Series, error) {
	rows, err := maskRows(mask, s.Len())
	if err != nil {
		return nil, err
	}
	return s.take(rows), nil
}

// boolSeries builds a bool Series sharing s's index.
func boolSeries(s *Series, name string, fn func(v any) bool) *Series {
	out := make([]any, s.Len())
	for i, v := range s.values {
		out[i] = fn(v)
	}
	return s.withValues(name, KindBool, out)
}

func missingMask(s *Series, want bool) *Series {
	return boolSeries(s, s.name, func(v any) bool { return IsMissing(v) == want })
}

func missingFrame(f *Frame, want bool) *Frame {
	cols := make([]*Series, len(f.columns))
	for i, c := range f.columns {
		cols[i] = missingMask(c, want)
	}
	return newFrame(f.index, f.labels, cols)
}

func isin(s *Series, items []any) *Series {
	return boolSeries(s, s.name, func(v any) bool {
		for _, it := range items {
			if !IsMissing(v) && equalValues(v, it) {
				return true
			}
		}
		return false
	})
}

func between(s *Series, lo, hi any) (*Series, error) {
	var cmpErr error
	out := boolSeries(s, s.name, func(v any) bool {
		if IsMissing(v) || cmpErr != nil {
			return false
		}
		a, err := compareValues(v, lo, ">=")
		if err != nil {
			cmpErr = err
			return false
		}
		b, err := compareValues(v, hi, "<=")
		if err != nil {
			cmpErr = err
			return false
		}
		return a >= 0 && b <= 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	return out, nil
}

// ============================================================================
// STRING MATCHING — .str accessor predicates
// ============================================================================

func strPredicate(s *Series, pat string, caseSensitive bool, match func(v, pat string) bool) *Series {
	if !caseSensitive {
		pat = strings.ToLower(pat)
	}
	out := make([]any, s.Len())
	for i, v := range s.values {
		str, ok := v.(string)
		if !ok {
			out[i] = nil
			continue
		}
		if !caseSensitive {
			str = strings.ToLower(str)
		}
		out[i] = match(str, pat)
	}
	return s.withValues(s.name, KindBool, out)
}

func strMap(s *Series, fn func(string) any, kind Kind) *Series {
	out := make([]any, s.Len())
	for i, v := range s.values {
		str, ok := v.(string)
		if !ok {
			out[i] = nil
			continue
		}
		out[i] = fn(str)
	}
	return s.withValues(s.name, kind, out)
}
