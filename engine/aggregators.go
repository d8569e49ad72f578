package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ============================================================================
// AGGREGATORS — Reductions, grouping, sorting and counting
// ============================================================================
// Reductions skip missing cells. Grouping collects row positions per key in
// one pass (like the old groupBySingle), then sorts keys and drops missing.
// ============================================================================

// tuple is an immutable sequence value such as df.shape or a multi-key label.
type tuple []any

// Aggregation names shared by Series, Frame and GroupBy reductions.
const (
	aggMean    = "mean"
	aggSum     = "sum"
	aggMin     = "min"
	aggMax     = "max"
	aggMedian  = "median"
	aggStd     = "std"
	aggVar     = "var"
	aggCount   = "count"
	aggNunique = "nunique"
	aggSize    = "size"
	aggAny     = "any"
	aggAll     = "all"
	aggFirst   = "first"
	aggLast    = "last"
)

// numericOnly reports whether a reduction needs numbers.
func numericOnly(agg string) bool {
	switch agg {
	case aggMean, aggMedian, aggStd, aggVar:
		return true
	}
	return false
}

func present(s *Series) []any {
	out := make([]any, 0, s.Len())
	for _, v := range s.values {
		if !IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

func floats(values []any) ([]float64, bool) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// reduce collapses a Series to a scalar.
func reduce(s *Series, agg string) (any, error) {
	vals := present(s)
	switch agg {
	case aggCount:
		return int64(len(vals)), nil
	case aggSize:
		return int64(s.Len()), nil
	case aggNunique:
		return int64(len(distinct(vals))), nil
	case aggFirst:
		if len(vals) == 0 {
			return math.NaN(), nil
		}
		return vals[0], nil
	case aggLast:
		if len(vals) == 0 {
			return math.NaN(), nil
		}
		return vals[len(vals)-1], nil
	case aggAny, aggAll:
		want := agg == aggAny
		for _, v := range vals {
			if truthy(v) == want {
				return want, nil
			}
		}
		return !want, nil
	case aggMin, aggMax:
		if len(vals) == 0 {
			return math.NaN(), nil
		}
		best := vals[0]
		for _, v := range vals[1:] {
			c, err := compareValues(v, best, "<")
			if err != nil {
				return nil, err
			}
			if (agg == aggMin && c < 0) || (agg == aggMax && c > 0) {
				best = v
			}
		}
		return best, nil
	case aggSum:
		return sumValues(s, vals)
	}

	fs, ok := floats(vals)
	if !ok {
		return nil, typeErrorf("Could not convert %s to numeric", truncateText(FormatValue(vals, -1), 60))
	}
	switch agg {
	case aggMean:
		if len(fs) == 0 {
			return math.NaN(), nil
		}
		var total float64
		for _, f := range fs {
			total += f
		}
		return total / float64(len(fs)), nil
	case aggMedian:
		return quantile(fs, 0.5), nil
	case aggStd, aggVar:
		if len(fs) < 2 {
			return math.NaN(), nil
		}
		var mean float64
		for _, f := range fs {
			mean += f
		}
		mean /= float64(len(fs))
		var ss float64
		for _, f := range fs {
			ss += (f - mean) * (f - mean)
		}
		variance := ss / float64(len(fs)-1)
		if agg == aggVar {
			return variance, nil
		}
		return math.Sqrt(variance), nil
	}
	return nil, attrErrorf("'Series' object has no attribute '%s'", agg)
}

func sumValues(s *Series, vals []any) (any, error) {
	if s.kind == KindString || s.kind == KindObject {
		if len(vals) > 0 {
			if _, ok := vals[0].(string); ok {
				var b strings.Builder
				for _, v := range vals {
					str, ok := v.(string)
					if !ok {
						return nil, unsupportedOperandsText("+", v, "str")
					}
					b.WriteString(str)
				}
				return b.String(), nil
			}
		}
	}
	var isum int64
	var fsum float64
	useFloat := s.kind == KindFloat
	for _, v := range vals {
		switch x := v.(type) {
		case float64:
			useFloat = true
			fsum += x
		default:
			n, ok := toInt(x)
			if !ok {
				return nil, typeErrorf("unsupported operand type(s) for +: 'int' and '%s'", typeName(v))
			}
			isum += n
		}
	}
	if useFloat {
		return fsum + float64(isum), nil
	}
	return isum, nil
}

func unsupportedOperandsText(op string, v any, other string) error {
	return typeErrorf("unsupported operand type(s) for %s: '%s' and '%s'", op, typeName(v), other)
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case tuple:
		return len(x) > 0
	}
	return true
}

// quantile uses linear interpolation between closest ranks.
func quantile(fs []float64, q float64) float64 {
	if len(fs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(fs))
	copy(sorted, fs)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// distinct returns values in first-appearance order.
func distinct(values []any) []any {
	var out []any
	for _, v := range values {
		seen := false
		for _, o := range out {
			if equalValues(o, v) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}

// ============================================================================
// POSITIONAL EXTREMES
// ============================================================================

// extremePosition returns the position of the first max (or min) value.
func extremePosition(s *Series, wantMax bool, method string) (int, error) {
	best := -1
	for i, v := range s.values {
		if IsMissing(v) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		c, err := compareValues(v, s.values[best], ">")
		if err != nil {
			return 0, err
		}
		if (wantMax && c > 0) || (!wantMax && c < 0) {
			best = i
		}
	}
	if best < 0 {
		return 0, valueErrorf("attempt to get %s of an empty sequence", method)
	}
	return best, nil
}

// ============================================================================
// FRAME REDUCTIONS
// ============================================================================

// reduceFrame applies agg to each column and returns a Series indexed by
// column name. Numeric-only reductions skip text columns.
func reduceFrame(f *Frame, agg string) (*Series, error) {
	var labels, values []any
	for _, c := range f.columns {
		if (numericOnly(agg) || agg == aggSum) && !c.kind.Numeric() {
			continue
		}
		v, err := reduce(c, agg)
		if err != nil {
			return nil, err
		}
		labels = append(labels, c.name)
		values = append(values, v)
	}
	if labels == nil {
		labels, values = []any{}, []any{}
	}
	return newSeries("", inferKind(values), labels, values), nil
}

// ============================================================================
// GROUPING
// ============================================================================

type group struct {
	label any
	rows  []int
}

// groupBy is a lazily aggregated frame grouping.
type groupBy struct {
	frame     *Frame
	keys      []string
	groups    []group
	selection []string // nil selects every non-key column
	flat      bool     // as_index=False
}

// seriesGroupBy is a grouping narrowed to one column.
type seriesGroupBy struct {
	parent *groupBy
	column *Series
}

func newGroupBy(f *Frame, keys []string) (*groupBy, error) {
	if len(keys) == 0 {
		return nil, typeErrorf("You have to supply one of 'by' and 'level'")
	}
	cols := make([]*Series, len(keys))
	for i, k := range keys {
		c, ok := f.Column(k)
		if !ok {
			return nil, keyErrorf("'%s'", k)
		}
		cols[i] = c
	}

	index := make(map[string]int)
	var groups []group
	for row := 0; row < f.Len(); row++ {
		parts := make(tuple, len(cols))
		missing := false
		for i, c := range cols {
			parts[i] = c.values[row]
			if IsMissing(parts[i]) {
				missing = true
			}
		}
		if missing {
			continue
		}
		var label any = parts
		if len(parts) == 1 {
			label = parts[0]
		}
		key := groupKey(parts)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, group{label: label})
		}
		groups[pos].rows = append(groups[pos].rows, row)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return lessLabel(groups[i].label, groups[j].label)
	})
	return &groupBy{frame: f, keys: keys, groups: groups}, nil
}

func groupKey(parts tuple) string {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "%T:%s\x00", normalizeNumber(p), FormatValue(normalizeNumber(p), -1))
	}
	return b.String()
}

// normalizeNumber folds integral floats into int64 so 1 and 1.0 share a group.
func normalizeNumber(v any) any {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return int64(f)
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return v
}

func lessLabel(a, b any) bool {
	ta, aok := a.(tuple)
	tb, bok := b.(tuple)
	if aok && bok {
		for i := range ta {
			if i >= len(tb) {
				return false
			}
			if lessForSort(ta[i], tb[i]) {
				return true
			}
			if lessForSort(tb[i], ta[i]) {
				return false
			}
		}
		return len(ta) < len(tb)
	}
	return lessForSort(a, b)
}

func (g *groupBy) indexName() string { return strings.Join(g.keys, ", ") }

func (g *groupBy) labels() []any {
	out := make([]any, len(g.groups))
	for i, grp := range g.groups {
		out[i] = grp.label
	}
	return out
}

func (g *groupBy) isKey(name string) bool {
	for _, k := range g.keys {
		if k == name {
			return true
		}
	}
	return false
}

func (g *groupBy) column(name string) (*seriesGroupBy, error) {
	c, ok := g.frame.Column(name)
	if !ok {
		return nil, keyErrorf("'Column not found: %s'", name)
	}
	return &seriesGroupBy{parent: g, column: c}, nil
}

func (g *groupBy) selectColumns(names []string) (*groupBy, error) {
	for _, n := range names {
		if _, ok := g.frame.Column(n); !ok {
			return nil, keyErrorf("'Columns not found: %s'", n)
		}
	}
	return &groupBy{frame: g.frame, keys: g.keys, groups: g.groups, selection: names, flat: g.flat}, nil
}

// aggregate reduces every selected column per group into a Frame.
func (g *groupBy) aggregate(agg string) (any, error) {
	if agg == aggSize {
		return g.size(), nil
	}
	var cols []*Series
	names := g.selection
	if names == nil {
		for _, c := range g.frame.columns {
			if !g.isKey(c.name) {
				names = append(names, c.name)
			}
		}
	}
	for _, name := range names {
		c, _ := g.frame.Column(name)
		if numericOnly(agg) && !c.kind.Numeric() {
			if g.selection != nil {
				return nil, typeErrorf("agg function failed [how->%s,dtype->%s]", agg, c.kind)
			}
			continue
		}
		s, err := (&seriesGroupBy{parent: g, column: c}).aggregate(agg)
		if err != nil {
			return nil, err
		}
		cols = append(cols, s)
	}
	return newFrame(g.indexName(), g.labels(), cols), nil
}

func (g *groupBy) size() *Series {
	values := make([]any, len(g.groups))
	for i, grp := range g.groups {
		values[i] = int64(len(grp.rows))
	}
	return &Series{name: "size", kind: KindInt, index: g.indexName(), labels: g.labels(), values: values}
}

// aggregate reduces the column per group into a Series named after it.
func (sg *seriesGroupBy) aggregate(agg string) (*Series, error) {
	g := sg.parent
	if agg == aggSize {
		s := g.size()
		s.name = sg.column.name
		return s, nil
	}
	if numericOnly(agg) && !sg.column.kind.Numeric() {
		return nil, typeErrorf("agg function failed [how->%s,dtype->%s]", agg, sg.column.kind)
	}
	values := make([]any, len(g.groups))
	for i, grp := range g.groups {
		v, err := reduce(sg.column.take(grp.rows), agg)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	kind := inferKind(values)
	if agg == aggMean || agg == aggMedian || agg == aggStd || agg == aggVar {
		kind = KindFloat
	}
	return &Series{name: sg.column.name, kind: kind, index: g.indexName(), labels: g.labels(), values: values}, nil
}

// ============================================================================
// SORTING
// ============================================================================

func sortSeries(s *Series, ascending bool) *Series {
	rows := rangeInts(s.Len())
	sort.SliceStable(rows, func(i, j int) bool {
		return orderedLess(s.values[rows[i]], s.values[rows[j]], ascending)
	})
	return s.take(rows)
}

func sortSeriesByIndex(s *Series, ascending bool) *Series {
	rows := rangeInts(s.Len())
	sort.SliceStable(rows, func(i, j int) bool {
		return orderedLess(s.labels[rows[i]], s.labels[rows[j]], ascending)
	})
	return s.take(rows)
}

// orderedLess keeps missing values last in either direction.
func orderedLess(a, b any, ascending bool) bool {
	if IsMissing(a) || IsMissing(b) {
		return !IsMissing(a) && IsMissing(b)
	}
	if ascending {
		return lessLabel(a, b)
	}
	return lessLabel(b, a)
}

func sortFrame(f *Frame, by []string, ascending []bool) (*Frame, error) {
	cols := make([]*Series, len(by))
	for i, name := range by {
		c, ok := f.Column(name)
		if !ok {
			return nil, keyErrorf("'%s'", name)
		}
		cols[i] = c
	}
	rows := rangeInts(f.Len())
	sort.SliceStable(rows, func(i, j int) bool {
		for k, c := range cols {
			a, b := c.values[rows[i]], c.values[rows[j]]
			if equalValues(a, b) {
				continue
			}
			return orderedLess(a, b, ascending[k])
		}
		return false
	})
	return f.take(rows), nil
}

func rangeInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// nlargest keeps the n largest (or smallest) non-missing values.
func nlargest(s *Series, n int, largest bool) *Series {
	sorted := sortSeries(s.take(nonMissingRows(s)), !largest)
	return sorted.head(n)
}

func nonMissingRows(s *Series) []int {
	rows := make([]int, 0, s.Len())
	for i, v := range s.values {
		if !IsMissing(v) {
			rows = append(rows, i)
		}
	}
	return rows
}

func frameNLargest(f *Frame, n int, column string, largest bool) (*Frame, error) {
	c, ok := f.Column(column)
	if !ok {
		return nil, keyErrorf("'%s'", column)
	}
	if !c.kind.Numeric() {
		return nil, typeErrorf("Column '%s' has dtype %s, cannot use method 'nlargest' with this dtype", column, c.kind)
	}
	rows := nonMissingRows(c)
	sort.SliceStable(rows, func(i, j int) bool {
		return orderedLess(c.values[rows[i]], c.values[rows[j]], !largest)
	})
	if n < len(rows) {
		rows = rows[:max(n, 0)]
	}
	return f.take(rows), nil
}

// ============================================================================
// COUNTING
// ============================================================================

// valueCounts counts distinct non-missing values, most frequent first.
// Ties keep first-appearance order.
func valueCounts(s *Series, normalize, ascending bool) *Series {
	vals := present(s)
	labels := distinct(vals)
	counts := make([]int64, len(labels))
	for _, v := range vals {
		for i, l := range labels {
			if equalValues(l, v) {
				counts[i]++
				break
			}
		}
	}
	order := rangeInts(len(labels))
	sort.SliceStable(order, func(i, j int) bool {
		if ascending {
			return counts[order[i]] < counts[order[j]]
		}
		return counts[order[i]] > counts[order[j]]
	})

	outLabels := make([]any, len(order))
	outValues := make([]any, len(order))
	for i, o := range order {
		outLabels[i] = labels[o]
		if normalize {
			outValues[i] = float64(counts[o]) / float64(len(vals))
		} else {
			outValues[i] = counts[o]
		}
	}
	name, kind := "count", KindInt
	if normalize {
		name, kind = "proportion", KindFloat
	}
	return &Series{name: name, kind: kind, index: s.name, labels: outLabels, values: outValues}
}

// mode returns the most frequent values, sorted.
func mode(s *Series) *Series {
	counts := valueCounts(s, false, false)
	var top []any
	for i, v := range counts.values {
		if i == 0 || v.(int64) == counts.values[0].(int64) {
			top = append(top, counts.labels[i])
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return lessForSort(top[i], top[j]) })
	if top == nil {
		top = []any{}
	}
	return newSeries(s.name, s.kind, rangeLabels(len(top)), top)
}

// ============================================================================
// CLEANUP
// ============================================================================

func dropMissingSeries(s *Series) *Series { return s.take(nonMissingRows(s)) }

func dropMissingFrame(f *Frame) *Frame {
	rows := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		keep := true
		for _, c := range f.columns {
			if IsMissing(c.values[i]) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, i)
		}
	}
	return f.take(rows)
}

func dropDuplicateSeries(s *Series) *Series {
	var rows []int
	for i, v := range s.values {
		dup := false
		for _, r := range rows {
			if equalValues(s.values[r], v) {
				dup = true
				break
			}
		}
		if !dup {
			rows = append(rows, i)
		}
	}
	return s.take(rows)
}

func dropDuplicateFrame(f *Frame) *Frame {
	seen := make(map[string]bool)
	rows := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		parts := make(tuple, len(f.columns))
		for j, c := range f.columns {
			parts[j] = c.values[i]
		}
		key := groupKey(parts)
		if !seen[key] {
			seen[key] = true
			rows = append(rows, i)
		}
	}
	return f.take(rows)
}

// ============================================================================
// DESCRIBE
// ============================================================================

var numericSummary = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

func describeSeries(s *Series) (*Series, error) {
	if !s.kind.Numeric() {
		vals := present(s)
		counts := valueCounts(s, false, false)
		var top, freq any = math.NaN(), math.NaN()
		if counts.Len() > 0 {
			top, freq = counts.labels[0], counts.values[0]
		}
		labels := []any{"count", "unique", "top", "freq"}
		values := []any{int64(len(vals)), int64(counts.Len()), top, freq}
		return newSeries(s.name, KindObject, labels, values), nil
	}
	fs, _ := floats(present(s))
	values := make([]any, len(numericSummary))
	values[0] = float64(len(fs))
	mean, _ := reduce(s, aggMean)
	std, _ := reduce(s, aggStd)
	values[1], values[2] = mean, std
	if len(fs) == 0 {
		for i := 3; i < len(values); i++ {
			values[i] = math.NaN()
		}
	} else {
		values[3] = quantile(fs, 0)
		values[4] = quantile(fs, 0.25)
		values[5] = quantile(fs, 0.5)
		values[6] = quantile(fs, 0.75)
		values[7] = quantile(fs, 1)
	}
	return newSeries(s.name, KindFloat, stringsToAny(numericSummary), values), nil
}

func describeFrame(f *Frame) (*Frame, error) {
	var cols []*Series
	for _, c := range f.columns {
		if c.kind.Numeric() {
			d, _ := describeSeries(c)
			cols = append(cols, d)
		}
	}
	if cols == nil {
		for _, c := range f.columns {
			d, _ := describeSeries(c)
			cols = append(cols, d)
		}
	}
	if cols == nil {
		return nil, valueErrorf("Cannot describe a DataFrame without columns")
	}
	return newFrame("", cols[0].labels, cols), nil
}

// dtypes lists each column's storage type.
func dtypes(f *Frame) *Series {
	labels := make([]any, len(f.columns))
	values := make([]any, len(f.columns))
	for i, c := range f.columns {
		labels[i] = c.name
		values[i] = c.kind.String()
	}
	return newSeries("", KindString, labels, values)
}

// ============================================================================
// FORMATTING
// ============================================================================

// FormatInt formats an integer with thousands separators: 12345 → "12,345".
func FormatInt(n int64) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}
