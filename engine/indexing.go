package engine

// ============================================================================
// INDEXING — [], .loc[] and .iloc[]
// ============================================================================

func getItem(target any, keys []any) (any, error) {
	switch t := target.(type) {
	case *Frame:
		if len(keys) != 1 {
			return nil, keyErrorf("%s", FormatValue(tuple(keys), -1))
		}
		return frameItem(t, keys[0])
	case *Series:
		if len(keys) != 1 {
			return nil, keyErrorf("%s", FormatValue(tuple(keys), -1))
		}
		return seriesItem(t, keys[0])
	case *groupBy:
		if len(keys) != 1 {
			return nil, valueErrorf("Cannot subset columns with a tuple with more than one element. Use a list instead.")
		}
		if name, ok := keys[0].(string); ok {
			return t.column(name)
		}
		names, err := toStrings(keys[0])
		if err != nil {
			return nil, err
		}
		return t.selectColumns(names)
	case *indexer:
		if t.positional {
			return ilocItem(t.target, keys)
		}
		return locItem(t.target, keys)
	case []any:
		return sequenceItem(t, keys, "list")
	case tuple:
		return sequenceItem(t, keys, "tuple")
	case string:
		if len(keys) == 1 {
			if i, ok := keys[0].(int64); ok {
				r := []rune(t)
				pos := int(i)
				if pos < 0 {
					pos += len(r)
				}
				if pos < 0 || pos >= len(r) {
					return nil, indexErrorf("string index out of range")
				}
				return string(r[pos]), nil
			}
		}
	}
	return nil, typeErrorf("'%s' object is not subscriptable", typeName(target))
}

func frameItem(f *Frame, key any) (any, error) {
	switch k := key.(type) {
	case string:
		c, ok := f.Column(k)
		if !ok {
			return nil, keyErrorf("'%s'", k)
		}
		return c, nil
	case []any:
		names, err := toStrings(k)
		if err != nil {
			return nil, err
		}
		return f.selectColumns(names)
	case *Series:
		if k.kind == KindBool || allBoolOrMissing(k.values) {
			return filterFrame(f, k)
		}
		names, err := toStrings(k.values)
		if err != nil {
			return nil, err
		}
		return f.selectColumns(names)
	case sliceKey:
		rows, err := positionalSlice(k, f.Len())
		if err != nil {
			return nil, err
		}
		return f.take(rows), nil
	}
	return nil, keyErrorf("%s", quoteKey(key))
}

func allBoolOrMissing(values []any) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if _, ok := v.(bool); !ok && !IsMissing(v) {
			return false
		}
	}
	return true
}

func seriesItem(s *Series, key any) (any, error) {
	switch k := key.(type) {
	case *Series:
		return filterSeries(s, k)
	case sliceKey:
		rows, err := positionalSlice(k, s.Len())
		if err != nil {
			return nil, err
		}
		return s.take(rows), nil
	case []any:
		return seriesLabels(s, k)
	}
	if pos, ok := s.position(key); ok {
		return s.values[pos], nil
	}
	// An integer key falls back to position when the index holds no integers.
	if i, ok := key.(int64); ok && !hasIntLabels(s.labels) {
		return positionalValue(s, int(i))
	}
	return nil, keyErrorf("%s", quoteKey(key))
}

func seriesLabels(s *Series, labels []any) (*Series, error) {
	rows := make([]int, 0, len(labels))
	var missing []any
	for _, l := range labels {
		pos, ok := s.position(l)
		if !ok {
			missing = append(missing, l)
			continue
		}
		rows = append(rows, pos)
	}
	if len(missing) > 0 {
		return nil, keyErrorf("\"%s not in index\"", formatList(missing))
	}
	return s.take(rows), nil
}

func hasIntLabels(labels []any) bool {
	for _, l := range labels {
		if _, ok := l.(int64); ok {
			return true
		}
	}
	return false
}

func positionalValue(s *Series, i int) (any, error) {
	n := s.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, indexErrorf("index %d is out of bounds for axis 0 with size %d", i, n)
	}
	return s.values[i], nil
}

func sliceBound(v any) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	i, ok := v.(int64)
	if !ok {
		return nil, typeErrorf("slice indices must be integers or None, not %s", typeName(v))
	}
	return &i, nil
}

func positionalSlice(k sliceKey, n int) ([]int, error) {
	lo, err := sliceBound(k.lo)
	if err != nil {
		return nil, err
	}
	hi, err := sliceBound(k.hi)
	if err != nil {
		return nil, err
	}
	return sliceRows(n, lo, hi), nil
}

func sequenceItem(items []any, keys []any, kind string) (any, error) {
	if len(keys) != 1 {
		return nil, typeErrorf("%s indices must be integers or slices, not tuple", kind)
	}
	switch k := keys[0].(type) {
	case int64:
		i := int(k)
		if i < 0 {
			i += len(items)
		}
		if i < 0 || i >= len(items) {
			return nil, indexErrorf("%s index out of range", kind)
		}
		return items[i], nil
	case sliceKey:
		rows, err := positionalSlice(k, len(items))
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = items[r]
		}
		if kind == "tuple" {
			return tuple(out), nil
		}
		return out, nil
	}
	return nil, typeErrorf("%s indices must be integers or slices, not %s", kind, typeName(keys[0]))
}

// ============================================================================
// LABEL LOCATOR
// ============================================================================

func locItem(target any, keys []any) (any, error) {
	switch t := target.(type) {
	case *Series:
		if len(keys) != 1 {
			return nil, &EvalError{Kind: "IndexingError", Message: "Too many indexers"}
		}
		return locSeries(t, keys[0])
	case *Frame:
		switch len(keys) {
		case 1:
			return locRows(t, keys[0])
		case 2:
			rows, err := locRows(t, keys[0])
			if err != nil {
				return nil, err
			}
			return locColumns(rows, keys[1])
		}
		return nil, &EvalError{Kind: "IndexingError", Message: "Too many indexers"}
	}
	return nil, typeErrorf("'%s' object is not subscriptable", typeName(target))
}

func locSeries(s *Series, key any) (any, error) {
	switch k := key.(type) {
	case *Series:
		return filterSeries(s, k)
	case []any:
		return seriesLabels(s, k)
	case sliceKey:
		rows, err := labelSlice(s.labels, k)
		if err != nil {
			return nil, err
		}
		return s.take(rows), nil
	}
	pos, ok := s.position(key)
	if !ok {
		return nil, keyErrorf("%s", quoteKey(key))
	}
	return s.values[pos], nil
}

// locRows selects rows by mask, label, label list or label slice.
// A single label yields the row as a Series.
func locRows(f *Frame, key any) (any, error) {
	switch k := key.(type) {
	case *Series:
		return filterFrame(f, k)
	case []any:
		rows := make([]int, 0, len(k))
		for _, l := range k {
			pos, ok := findLabel(f.labels, l)
			if !ok {
				return nil, keyErrorf("\"%s not in index\"", formatList([]any{l}))
			}
			rows = append(rows, pos)
		}
		return f.take(rows), nil
	case sliceKey:
		rows, err := labelSlice(f.labels, k)
		if err != nil {
			return nil, err
		}
		return f.take(rows), nil
	}
	pos, ok := findLabel(f.labels, key)
	if !ok {
		return nil, keyErrorf("%s", quoteKey(key))
	}
	return f.row(pos), nil
}

func locColumns(rows any, key any) (any, error) {
	switch r := rows.(type) {
	case *Frame:
		if k, ok := key.(sliceKey); ok && k.lo == nil && k.hi == nil {
			return r, nil
		}
		if name, ok := key.(string); ok {
			c, found := r.Column(name)
			if !found {
				return nil, keyErrorf("'%s'", name)
			}
			return c, nil
		}
		names, err := toStrings(key)
		if err != nil {
			return nil, err
		}
		return r.selectColumns(names)
	case *Series:
		return locSeries(r, key)
	}
	return nil, typeErrorf("'%s' object is not subscriptable", typeName(rows))
}

// labelSlice is inclusive of both end labels.
func labelSlice(labels []any, k sliceKey) ([]int, error) {
	start, stop := 0, len(labels)-1
	if k.lo != nil {
		pos, ok := findLabel(labels, k.lo)
		if !ok {
			return nil, keyErrorf("%s", quoteKey(k.lo))
		}
		start = pos
	}
	if k.hi != nil {
		pos, ok := findLabel(labels, k.hi)
		if !ok {
			return nil, keyErrorf("%s", quoteKey(k.hi))
		}
		stop = pos
	}
	var rows []int
	for i := start; i <= stop; i++ {
		rows = append(rows, i)
	}
	return rows, nil
}

// ============================================================================
// POSITIONAL LOCATOR
// ============================================================================

func ilocItem(target any, keys []any) (any, error) {
	switch t := target.(type) {
	case *Series:
		if len(keys) != 1 {
			return nil, &EvalError{Kind: "IndexingError", Message: "Too many indexers"}
		}
		return ilocSeries(t, keys[0])
	case *Frame:
		if len(keys) > 2 {
			return nil, &EvalError{Kind: "IndexingError", Message: "Too many indexers"}
		}
		rows, err := ilocRows(t, keys[0])
		if err != nil {
			return nil, err
		}
		if len(keys) == 1 {
			return rows, nil
		}
		return ilocColumns(rows, keys[1])
	}
	return nil, typeErrorf("'%s' object is not subscriptable", typeName(target))
}

func ilocSeries(s *Series, key any) (any, error) {
	switch k := key.(type) {
	case int64:
		v, err := positionalValue(s, int(k))
		if err != nil {
			return nil, indexErrorf("single positional indexer is out-of-bounds")
		}
		return v, nil
	case sliceKey:
		rows, err := positionalSlice(k, s.Len())
		if err != nil {
			return nil, err
		}
		return s.take(rows), nil
	case []any:
		rows, err := positions(k, s.Len())
		if err != nil {
			return nil, err
		}
		return s.take(rows), nil
	}
	return nil, typeErrorf("Cannot index by location index with a non-integer key")
}

func ilocRows(f *Frame, key any) (any, error) {
	switch k := key.(type) {
	case int64:
		i := int(k)
		if i < 0 {
			i += f.Len()
		}
		if i < 0 || i >= f.Len() {
			return nil, indexErrorf("single positional indexer is out-of-bounds")
		}
		return f.row(i), nil
	case sliceKey:
		rows, err := positionalSlice(k, f.Len())
		if err != nil {
			return nil, err
		}
		return f.take(rows), nil
	case []any:
		rows, err := positions(k, f.Len())
		if err != nil {
			return nil, err
		}
		return f.take(rows), nil
	}
	return nil, typeErrorf("Cannot index by location index with a non-integer key")
}

func ilocColumns(rows any, key any) (any, error) {
	switch r := rows.(type) {
	case *Series:
		return ilocSeries(r, key)
	case *Frame:
		switch k := key.(type) {
		case int64:
			i := int(k)
			if i < 0 {
				i += r.Width()
			}
			if i < 0 || i >= r.Width() {
				return nil, indexErrorf("single positional indexer is out-of-bounds")
			}
			return r.columns[i], nil
		case sliceKey:
			idx, err := positionalSlice(k, r.Width())
			if err != nil {
				return nil, err
			}
			return r.selectColumns(columnNamesAt(r, idx))
		case []any:
			idx, err := positions(k, r.Width())
			if err != nil {
				return nil, err
			}
			return r.selectColumns(columnNamesAt(r, idx))
		}
	}
	return nil, typeErrorf("Cannot index by location index with a non-integer key")
}

func columnNamesAt(f *Frame, idx []int) []string {
	names := make([]string, len(idx))
	for i, j := range idx {
		names[i] = f.columns[j].name
	}
	return names
}

func positions(items []any, n int) ([]int, error) {
	out := make([]int, len(items))
	for i, it := range items {
		k, ok := it.(int64)
		if !ok {
			return nil, typeErrorf("Cannot index by location index with a non-integer key")
		}
		p := int(k)
		if p < 0 {
			p += n
		}
		if p < 0 || p >= n {
			return nil, indexErrorf("positional indexers are out-of-bounds")
		}
		out[i] = p
	}
	return out, nil
}
