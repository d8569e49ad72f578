package engine

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ============================================================================
// METHODS — The allow-list of attributes and operations per value type
// ============================================================================
// Anything not listed here is an AttributeError. There is deliberately no
// generic apply/eval/lambda: each method is a fixed Go function.
// ============================================================================

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var (
	reductions = set(aggMean, aggSum, aggMin, aggMax, aggMedian, aggStd, aggVar, aggCount, aggNunique, aggAny, aggAll)

	frameMethods = set("head", "tail", "query", "groupby", "sort_values", "nlargest", "nsmallest",
		"mean", "sum", "min", "max", "median", "std", "var", "count", "nunique", "any", "all",
		"isnull", "isna", "notnull", "notna", "dropna", "drop_duplicates", "describe",
		"reset_index", "round", "agg", "aggregate", "copy")

	seriesMethods = set("mean", "sum", "min", "max", "median", "std", "var", "count", "nunique", "any", "all",
		"unique", "mode", "value_counts", "idxmax", "idxmin", "argmax", "argmin", "head", "tail",
		"sort_values", "sort_index", "nlargest", "nsmallest", "round", "abs",
		"isnull", "isna", "notnull", "notna", "isin", "between", "tolist", "to_list", "to_frame",
		"dropna", "drop_duplicates", "describe", "item", "reset_index", "agg", "aggregate",
		"corr", "fillna", "copy")

	groupMethods = set("mean", "sum", "min", "max", "median", "std", "var", "count", "nunique",
		"first", "last", "size", "agg", "aggregate")

	strMethods = set("contains", "startswith", "endswith", "lower", "upper", "strip", "title", "len")

	pdFunctions = set("isna", "isnull", "notna", "notnull")
)

// ============================================================================
// ATTRIBUTES
// ============================================================================

func getAttr(target any, name string) (any, error) {
	switch t := target.(type) {
	case pdModule:
		if pdFunctions[name] {
			return &boundMethod{recv: t, name: name}, nil
		}
		return nil, attrErrorf("module 'pandas' has no attribute '%s'", name)
	case *Frame:
		return frameAttr(t, name)
	case *Series:
		return seriesAttr(t, name)
	case *groupBy:
		if groupMethods[name] {
			return &boundMethod{recv: t, name: name}, nil
		}
		if _, ok := t.frame.Column(name); ok && !t.isKey(name) {
			return t.column(name)
		}
		return nil, attrErrorf("'DataFrameGroupBy' object has no attribute '%s'", name)
	case *seriesGroupBy:
		if groupMethods[name] {
			return &boundMethod{recv: t, name: name}, nil
		}
		return nil, attrErrorf("'SeriesGroupBy' object has no attribute '%s'", name)
	case *strAccessor:
		if strMethods[name] {
			return &boundMethod{recv: t, name: name}, nil
		}
		return nil, attrErrorf("'StringMethods' object has no attribute '%s'", name)
	case *indexer:
		return nil, attrErrorf("'_LocIndexer' object has no attribute '%s'", name)
	case *boundMethod:
		return nil, attrErrorf("'method' object has no attribute '%s'", name)
	}
	return scalarAttr(target, name)
}

func frameAttr(f *Frame, name string) (any, error) {
	switch name {
	case "shape":
		return tuple{int64(f.Len()), int64(f.Width())}, nil
	case "columns":
		return stringsToAny(f.ColumnNames()), nil
	case "index":
		return cloneValues(f.labels), nil
	case "empty":
		return f.Len() == 0 || f.Width() == 0, nil
	case "size":
		return int64(f.Len() * f.Width()), nil
	case "ndim":
		return int64(2), nil
	case "dtypes":
		return dtypes(f), nil
	case "loc":
		return &indexer{target: f}, nil
	case "iloc":
		return &indexer{target: f, positional: true}, nil
	case "values":
		rows := make([]any, f.Len())
		for i := range rows {
			row := make([]any, f.Width())
			for j, c := range f.columns {
				row[j] = c.values[i]
			}
			rows[i] = row
		}
		return rows, nil
	}
	if frameMethods[name] {
		return &boundMethod{recv: f, name: name}, nil
	}
	if c, ok := f.Column(name); ok {
		return c, nil
	}
	return nil, attrErrorf("'DataFrame' object has no attribute '%s'", name)
}

func seriesAttr(s *Series, name string) (any, error) {
	switch name {
	case "index":
		return cloneValues(s.labels), nil
	case "values":
		return cloneValues(s.values), nil
	case "size":
		return int64(s.Len()), nil
	case "shape":
		return tuple{int64(s.Len())}, nil
	case "ndim":
		return int64(1), nil
	case "dtype":
		return s.kind.String(), nil
	case "name":
		if s.name == "" {
			return nil, nil
		}
		return s.name, nil
	case "empty":
		return s.Len() == 0, nil
	case "loc":
		return &indexer{target: s}, nil
	case "iloc":
		return &indexer{target: s, positional: true}, nil
	case "str":
		if s.kind != KindString && !(s.kind == KindObject && allStringOrMissing(s.values)) {
			return nil, attrErrorf("Can only use .str accessor with string values!")
		}
		return &strAccessor{s: s}, nil
	}
	if seriesMethods[name] {
		return &boundMethod{recv: s, name: name}, nil
	}
	return nil, attrErrorf("'Series' object has no attribute '%s'", name)
}

func allStringOrMissing(values []any) bool {
	for _, v := range values {
		if _, ok := v.(string); !ok && !IsMissing(v) {
			return false
		}
	}
	return true
}

func scalarAttr(v any, name string) (any, error) {
	switch v.(type) {
	case int64, float64, bool:
		if name == "round" || name == "item" {
			return &boundMethod{recv: v, name: name}, nil
		}
	case string:
		switch name {
		case "lower", "upper", "strip", "title", "startswith", "endswith":
			return &boundMethod{recv: v, name: name}, nil
		}
	}
	msg := fmt.Sprintf("'%s' object has no attribute '%s'", typeName(v), name)
	if seriesMethods[name] || frameMethods[name] {
		msg += "; the previous step already produced a single scalar value"
	}
	return nil, &EvalError{Kind: KindAttributeError, Message: msg}
}

// ============================================================================
// INVOCATION
// ============================================================================

func (e *env) invoke(m *boundMethod, a *callArgs) (any, error) {
	switch r := m.recv.(type) {
	case pdModule:
		return pdCall(a)
	case *Frame:
		return e.frameCall(r, a)
	case *Series:
		return seriesCall(r, a)
	case *groupBy:
		return groupCall(r, a)
	case *seriesGroupBy:
		return seriesGroupCall(r, a)
	case *strAccessor:
		return strCall(r.s, a)
	}
	return scalarCall(m.recv, a)
}

func pdCall(a *callArgs) (any, error) {
	if err := a.expect(1, "obj"); err != nil {
		return nil, err
	}
	v, err := a.required(0, "obj")
	if err != nil {
		return nil, err
	}
	want := a.method == "isna" || a.method == "isnull"
	switch x := v.(type) {
	case *Series:
		return missingMask(x, want), nil
	case *Frame:
		return missingFrame(x, want), nil
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			out[i] = IsMissing(it) == want
		}
		return out, nil
	}
	return IsMissing(v) == want, nil
}

func (e *env) frameCall(f *Frame, a *callArgs) (any, error) {
	switch a.method {
	case "head", "tail":
		if err := a.expect(1, "n"); err != nil {
			return nil, err
		}
		n, err := a.intArg(0, "n", 5)
		if err != nil {
			return nil, err
		}
		if a.method == "head" {
			return f.Head(n), nil
		}
		return f.tail(n), nil

	case "query":
		if err := a.expect(1, "expr"); err != nil {
			return nil, err
		}
		src, err := a.stringArg(0, "expr")
		if err != nil {
			return nil, err
		}
		return e.query(f, src)

	case "groupby":
		if err := a.expect(1, "by", "as_index", "sort", "dropna"); err != nil {
			return nil, err
		}
		keys, err := a.stringsArg(0, "by")
		if err != nil {
			return nil, err
		}
		asIndex, err := a.boolArg(-1, "as_index", true)
		if err != nil {
			return nil, err
		}
		g, err := newGroupBy(f, keys)
		if err != nil {
			return nil, err
		}
		g.flat = !asIndex
		return g, nil

	case "sort_values":
		if err := a.expect(2, "by", "ascending"); err != nil {
			return nil, err
		}
		by, err := a.stringsArg(0, "by")
		if err != nil {
			return nil, err
		}
		asc, err := ascendingArg(a, 1, len(by))
		if err != nil {
			return nil, err
		}
		return sortFrame(f, by, asc)

	case "nlargest", "nsmallest":
		if err := a.expect(2, "n", "columns"); err != nil {
			return nil, err
		}
		n, err := a.intArg(0, "n", 5)
		if err != nil {
			return nil, err
		}
		col, err := a.stringArg(1, "columns")
		if err != nil {
			return nil, err
		}
		return frameNLargest(f, n, col, a.method == "nlargest")

	case "mean", "sum", "min", "max", "median", "std", "var", "count", "nunique", "any", "all":
		if err := a.expect(0, "numeric_only", "skipna"); err != nil {
			return nil, err
		}
		return reduceFrame(f, a.method)

	case "agg", "aggregate":
		agg, err := aggArg(a)
		if err != nil {
			return nil, err
		}
		return reduceFrame(f, agg)

	case "isnull", "isna", "notnull", "notna":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return missingFrame(f, a.method == "isnull" || a.method == "isna"), nil

	case "dropna":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return dropMissingFrame(f), nil

	case "drop_duplicates":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return dropDuplicateFrame(f), nil

	case "describe":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return describeFrame(f)

	case "reset_index":
		if err := a.expect(0, "drop"); err != nil {
			return nil, err
		}
		drop, err := a.boolArg(-1, "drop", false)
		if err != nil {
			return nil, err
		}
		return resetFrameIndex(f, drop)

	case "round":
		if err := a.expect(1, "decimals"); err != nil {
			return nil, err
		}
		d, err := a.intArg(0, "decimals", 0)
		if err != nil {
			return nil, err
		}
		cols := make([]*Series, len(f.columns))
		for i, c := range f.columns {
			cols[i] = roundSeries(c, d)
		}
		return newFrame(f.index, f.labels, cols), nil

	case "copy":
		return f, nil
	}
	return nil, attrErrorf("'DataFrame' object has no attribute '%s'", a.method)
}

func seriesCall(s *Series, a *callArgs) (any, error) {
	switch a.method {
	case "mean", "sum", "min", "max", "median", "std", "var", "count", "nunique", "any", "all":
		if err := a.expect(0, "skipna", "numeric_only"); err != nil {
			return nil, err
		}
		return reduce(s, a.method)

	case "agg", "aggregate":
		agg, err := aggArg(a)
		if err != nil {
			return nil, err
		}
		return reduce(s, agg)

	case "unique":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return distinct(s.values), nil

	case "mode":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return mode(s), nil

	case "value_counts":
		if err := a.expect(0, "normalize", "ascending", "sort", "dropna"); err != nil {
			return nil, err
		}
		norm, err := a.boolArg(-1, "normalize", false)
		if err != nil {
			return nil, err
		}
		asc, err := a.boolArg(-1, "ascending", false)
		if err != nil {
			return nil, err
		}
		return valueCounts(s, norm, asc), nil

	case "idxmax", "idxmin", "argmax", "argmin":
		if err := a.expect(0, "skipna"); err != nil {
			return nil, err
		}
		pos, err := extremePosition(s, strings.HasSuffix(a.method, "max"), a.method)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(a.method, "arg") {
			return int64(pos), nil
		}
		return s.labels[pos], nil

	case "head", "tail":
		if err := a.expect(1, "n"); err != nil {
			return nil, err
		}
		n, err := a.intArg(0, "n", 5)
		if err != nil {
			return nil, err
		}
		if a.method == "head" {
			return s.head(n), nil
		}
		return s.tail(n), nil

	case "sort_values", "sort_index":
		if err := a.expect(0, "ascending"); err != nil {
			return nil, err
		}
		asc, err := a.boolArg(-1, "ascending", true)
		if err != nil {
			return nil, err
		}
		if a.method == "sort_index" {
			return sortSeriesByIndex(s, asc), nil
		}
		return sortSeries(s, asc), nil

	case "nlargest", "nsmallest":
		if err := a.expect(1, "n"); err != nil {
			return nil, err
		}
		n, err := a.intArg(0, "n", 5)
		if err != nil {
			return nil, err
		}
		if !s.kind.Numeric() {
			return nil, typeErrorf("Cannot use method '%s' with dtype %s", a.method, s.kind)
		}
		return nlargest(s, n, a.method == "nlargest"), nil

	case "round":
		if err := a.expect(1, "decimals"); err != nil {
			return nil, err
		}
		d, err := a.intArg(0, "decimals", 0)
		if err != nil {
			return nil, err
		}
		if !s.kind.Numeric() && !allMissing(s.values) {
			return nil, typeErrorf("Expected numeric dtype, got %s instead.", s.kind)
		}
		return roundSeries(s, d), nil

	case "abs":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		out := make([]any, s.Len())
		for i, v := range s.values {
			switch x := v.(type) {
			case int64:
				if x < 0 {
					x = -x
				}
				out[i] = x
			case float64:
				out[i] = math.Abs(x)
			case nil:
				out[i] = nil
			default:
				return nil, typeErrorf("bad operand type for abs(): '%s'", typeName(v))
			}
		}
		return s.withValues(s.name, s.kind, out), nil

	case "isnull", "isna", "notnull", "notna":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return missingMask(s, a.method == "isnull" || a.method == "isna"), nil

	case "isin":
		if err := a.expect(1, "values"); err != nil {
			return nil, err
		}
		v, err := a.required(0, "values")
		if err != nil {
			return nil, err
		}
		items, ok := asList(v)
		if !ok {
			other, isSeries := v.(*Series)
			if !isSeries {
				return nil, typeErrorf("only list-like objects are allowed to be passed to isin(), you passed a `%s`", typeName(v))
			}
			items = other.values
		}
		return isin(s, items), nil

	case "between":
		if err := a.expect(2, "left", "right"); err != nil {
			return nil, err
		}
		lo, err := a.required(0, "left")
		if err != nil {
			return nil, err
		}
		hi, err := a.required(1, "right")
		if err != nil {
			return nil, err
		}
		return between(s, lo, hi)

	case "tolist", "to_list":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return cloneValues(s.values), nil

	case "to_frame":
		if err := a.expect(1, "name"); err != nil {
			return nil, err
		}
		name := s.name
		if v, ok := a.get(0, "name"); ok {
			name = FormatValue(v, -1)
		}
		if name == "" {
			name = "0"
		}
		col := &Series{name: name, kind: s.kind, index: s.index, labels: s.labels, values: s.values}
		return newFrame(s.index, s.labels, []*Series{col}), nil

	case "dropna":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return dropMissingSeries(s), nil

	case "drop_duplicates":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return dropDuplicateSeries(s), nil

	case "describe":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return describeSeries(s)

	case "item":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		if s.Len() != 1 {
			return nil, valueErrorf("can only convert an array of size 1 to a Python scalar")
		}
		return s.values[0], nil

	case "reset_index":
		if err := a.expect(0, "drop", "name"); err != nil {
			return nil, err
		}
		drop, err := a.boolArg(-1, "drop", false)
		if err != nil {
			return nil, err
		}
		if drop {
			return newSeries(s.name, s.kind, rangeLabels(s.Len()), s.values), nil
		}
		name := s.name
		if v, ok := a.kw["name"]; ok {
			name = FormatValue(v, -1)
		}
		return resetSeriesIndex(s, name)

	case "corr":
		if err := a.expect(1, "other"); err != nil {
			return nil, err
		}
		v, err := a.required(0, "other")
		if err != nil {
			return nil, err
		}
		other, ok := v.(*Series)
		if !ok {
			return nil, typeErrorf("corr() argument must be a Series, not '%s'", typeName(v))
		}
		return correlation(s, other)

	case "fillna":
		if err := a.expect(1, "value"); err != nil {
			return nil, err
		}
		v, err := a.required(0, "value")
		if err != nil {
			return nil, err
		}
		if !isScalar(v) {
			return nil, typeErrorf("\"value\" parameter must be a scalar, but you passed a \"%s\"", typeName(v))
		}
		out := make([]any, s.Len())
		for i, cell := range s.values {
			if IsMissing(cell) {
				cell = v
			}
			out[i] = cell
		}
		return s.withValues(s.name, inferKind(out), out), nil

	case "copy":
		return s, nil
	}
	return nil, attrErrorf("'Series' object has no attribute '%s'", a.method)
}

func groupCall(g *groupBy, a *callArgs) (any, error) {
	agg := a.method
	switch a.method {
	case "agg", "aggregate":
		var err error
		if agg, err = aggArg(a); err != nil {
			return nil, err
		}
	default:
		if err := a.expect(0, "numeric_only"); err != nil {
			return nil, err
		}
	}
	if !reductions[agg] && agg != aggSize && agg != aggFirst && agg != aggLast {
		return nil, attrErrorf("'DataFrameGroupBy' object has no attribute '%s'", agg)
	}
	v, err := g.aggregate(agg)
	if err != nil {
		return nil, err
	}
	return g.finish(v)
}

func seriesGroupCall(sg *seriesGroupBy, a *callArgs) (any, error) {
	agg := a.method
	switch a.method {
	case "agg", "aggregate":
		var err error
		if agg, err = aggArg(a); err != nil {
			return nil, err
		}
	default:
		if err := a.expect(0, "numeric_only"); err != nil {
			return nil, err
		}
	}
	if !reductions[agg] && agg != aggSize && agg != aggFirst && agg != aggLast {
		return nil, attrErrorf("'SeriesGroupBy' object has no attribute '%s'", agg)
	}
	s, err := sg.aggregate(agg)
	if err != nil {
		return nil, err
	}
	return sg.parent.finish(s)
}

// finish applies as_index=False by moving group keys into columns.
func (g *groupBy) finish(v any) (any, error) {
	if !g.flat {
		return v, nil
	}
	switch x := v.(type) {
	case *Series:
		return resetSeriesIndex(x, x.name)
	case *Frame:
		return resetFrameIndex(x, false)
	}
	return v, nil
}

func aggArg(a *callArgs) (string, error) {
	if err := a.expect(1, "func"); err != nil {
		return "", err
	}
	v, err := a.required(0, "func")
	if err != nil {
		return "", err
	}
	name, ok := v.(string)
	if !ok {
		return "", typeErrorf("agg() only accepts the name of an aggregation, got '%s'", typeName(v))
	}
	if name == "average" {
		name = aggMean
	}
	if !reductions[name] && name != aggSize && name != aggFirst && name != aggLast {
		return "", attrErrorf("'%s' is not a valid function for aggregation", name)
	}
	return name, nil
}

func ascendingArg(a *callArgs, i, n int) ([]bool, error) {
	out := make([]bool, n)
	for j := range out {
		out[j] = true
	}
	v, ok := a.get(i, "ascending")
	if !ok {
		return out, nil
	}
	if b, isBool := v.(bool); isBool {
		for j := range out {
			out[j] = b
		}
		return out, nil
	}
	items, isList := asList(v)
	if !isList || len(items) != n {
		return nil, valueErrorf("Length of ascending (%d) != length of by (%d)", len(items), n)
	}
	for j, it := range items {
		b, isBool := it.(bool)
		if !isBool {
			return nil, valueErrorf("For argument \"ascending\" expected type bool, received type %s.", typeName(it))
		}
		out[j] = b
	}
	return out, nil
}

func strCall(s *Series, a *callArgs) (any, error) {
	switch a.method {
	case "contains":
		if err := a.expect(1, "pat", "case", "regex", "na"); err != nil {
			return nil, err
		}
		pat, err := a.stringArg(0, "pat")
		if err != nil {
			return nil, err
		}
		caseSensitive, err := a.boolArg(-1, "case", true)
		if err != nil {
			return nil, err
		}
		useRegex, err := a.boolArg(-1, "regex", true)
		if err != nil {
			return nil, err
		}
		if !useRegex {
			return strPredicate(s, pat, caseSensitive, strings.Contains), nil
		}
		if !caseSensitive {
			pat = "(?i)" + pat
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, &EvalError{Kind: "error", Message: err.Error()}
		}
		return strPredicate(s, pat, true, func(v, _ string) bool { return re.MatchString(v) }), nil

	case "startswith", "endswith":
		if err := a.expect(1, "pat"); err != nil {
			return nil, err
		}
		pat, err := a.stringArg(0, "pat")
		if err != nil {
			return nil, err
		}
		fn := strings.HasPrefix
		if a.method == "endswith" {
			fn = strings.HasSuffix
		}
		return strPredicate(s, pat, true, fn), nil

	case "lower", "upper", "strip", "title":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		fn := stringMethod(a.method)
		return strMap(s, func(v string) any { return fn(v) }, KindString), nil

	case "len":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return strMap(s, func(v string) any { return int64(utf8.RuneCountInString(v)) }, KindInt), nil
	}
	return nil, attrErrorf("'StringMethods' object has no attribute '%s'", a.method)
}

func stringMethod(name string) func(string) string {
	switch name {
	case "lower":
		return strings.ToLower
	case "upper":
		return strings.ToUpper
	case "strip":
		return strings.TrimSpace
	}
	return titleCase
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func scalarCall(v any, a *callArgs) (any, error) {
	switch a.method {
	case "item":
		return v, nil
	case "round":
		if err := a.expect(1, "decimals"); err != nil {
			return nil, err
		}
		d, err := a.intArg(0, "decimals", 0)
		if err != nil {
			return nil, err
		}
		return roundValue(v, d), nil
	case "startswith", "endswith":
		s := v.(string)
		if err := a.expect(1); err != nil {
			return nil, err
		}
		pat, err := a.stringArg(0, "prefix")
		if err != nil {
			return nil, err
		}
		if a.method == "startswith" {
			return strings.HasPrefix(s, pat), nil
		}
		return strings.HasSuffix(s, pat), nil
	case "lower", "upper", "strip", "title":
		if err := a.expect(0); err != nil {
			return nil, err
		}
		return stringMethod(a.method)(v.(string)), nil
	}
	return nil, attrErrorf("'%s' object has no attribute '%s'", typeName(v), a.method)
}

// ============================================================================
// HELPERS
// ============================================================================

func roundValue(v any, decimals int) any {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(f*p) / p
}

func roundSeries(s *Series, decimals int) *Series {
	out := make([]any, s.Len())
	for i, v := range s.values {
		out[i] = roundValue(v, decimals)
	}
	return s.withValues(s.name, s.kind, out)
}

// resetSeriesIndex turns the index into a leading column.
func resetSeriesIndex(s *Series, name string) (*Frame, error) {
	if name == "" {
		name = "0"
	}
	col := &Series{name: name, kind: s.kind, index: s.index, labels: s.labels, values: s.values}
	return resetFrameIndex(newFrame(s.index, s.labels, []*Series{col}), false)
}

func resetFrameIndex(f *Frame, drop bool) (*Frame, error) {
	labels := rangeLabels(f.Len())
	if drop {
		return newFrame("", labels, f.columns), nil
	}
	names := strings.Split(f.index, ", ")
	if f.index == "" {
		names = []string{"index"}
	}
	var cols []*Series
	for i, n := range names {
		if _, exists := f.Column(n); exists {
			return nil, valueErrorf("cannot insert %s, already exists", n)
		}
		values := make([]any, f.Len())
		for r, l := range f.labels {
			if t, ok := l.(tuple); ok && len(names) > 1 {
				values[r] = t[i]
			} else {
				values[r] = l
			}
		}
		cols = append(cols, &Series{name: n, kind: inferKind(values), labels: labels, values: values})
	}
	cols = append(cols, f.columns...)
	return newFrame("", labels, cols), nil
}

// correlation is Pearson's r over rows where both sides are present.
func correlation(x, y *Series) (any, error) {
	if x.Len() != y.Len() {
		return nil, valueErrorf("operands could not be broadcast together with shapes (%d,) (%d,)", x.Len(), y.Len())
	}
	var xs, ys []float64
	for i := range x.values {
		if IsMissing(x.values[i]) || IsMissing(y.values[i]) {
			continue
		}
		a, aok := toFloat(x.values[i])
		b, bok := toFloat(y.values[i])
		if !aok || !bok {
			return nil, typeErrorf("unsupported operand type(s) for -: 'str' and 'float'")
		}
		xs = append(xs, a)
		ys = append(ys, b)
	}
	if len(xs) < 2 {
		return math.NaN(), nil
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(len(xs))
	my /= float64(len(ys))
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN(), nil
	}
	return sxy / math.Sqrt(sxx*syy), nil
}
