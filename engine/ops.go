package engine

import (
	"math"

	"github.com/spektr-org/cogniview/expr"
)

// ============================================================================
// ELEMENTWISE OPERATORS — Comparison, arithmetic and mask logic
// ============================================================================
// Series operands are paired by position; both sides of an expression built
// from the same frame share the same index, so position equals label.
// ============================================================================

var opSymbols = map[expr.TokenType]string{
	expr.EQ: "==", expr.NEQ: "!=", expr.LT: "<", expr.LE: "<=", expr.GT: ">", expr.GE: ">=",
	expr.PLUS: "+", expr.MINUS: "-", expr.STAR: "*", expr.SLASH: "/", expr.DSLASH: "//",
	expr.PERCENT: "%", expr.AMP: "&", expr.PIPE: "|",
}

func isComparison(op expr.TokenType) bool {
	switch op {
	case expr.EQ, expr.NEQ, expr.LT, expr.LE, expr.GT, expr.GE:
		return true
	}
	return false
}

// binaryOp applies op to any mix of Series, Frame and scalar operands.
func binaryOp(op expr.TokenType, a, b any) (any, error) {
	switch x := a.(type) {
	case *Series:
		switch y := b.(type) {
		case *Series:
			return seriesSeriesOp(op, x, y)
		case *Frame, *groupBy, *seriesGroupBy, []any, tuple:
			return nil, unsupportedOperands(op, a, b)
		default:
			return seriesScalarOp(op, x, y, false)
		}
	case *Frame:
		if isScalar(b) {
			return frameScalarOp(op, x, b)
		}
		return nil, unsupportedOperands(op, a, b)
	default:
		if s, ok := b.(*Series); ok && isScalar(a) {
			return seriesScalarOp(op, s, a, true)
		}
		if f, ok := b.(*Frame); ok && isScalar(a) {
			return frameScalarOp(op, f, a)
		}
		if isScalar(a) && isScalar(b) {
			if err := scalarDivisionByZero(op, a, b); err != nil {
				return nil, err
			}
			return scalarOp(op, a, b)
		}
		if op == expr.EQ || op == expr.NEQ {
			return (op == expr.NEQ) != sameValue(a, b), nil
		}
		return nil, unsupportedOperands(op, a, b)
	}
}

func seriesSeriesOp(op expr.TokenType, x, y *Series) (any, error) {
	if x.Len() != y.Len() {
		if isComparison(op) {
			return nil, valueErrorf("Can only compare identically-labeled Series objects")
		}
		return nil, valueErrorf("operands could not be broadcast together with shapes (%d,) (%d,)", x.Len(), y.Len())
	}
	out := make([]any, x.Len())
	for i := range out {
		v, err := scalarOp(op, x.values[i], y.values[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	name := x.name
	if x.name != y.name {
		name = ""
	}
	return x.withValues(name, resultKind(op, out), out), nil
}

func seriesScalarOp(op expr.TokenType, s *Series, v any, swapped bool) (*Series, error) {
	out := make([]any, s.Len())
	for i, cell := range s.values {
		var r any
		var err error
		if swapped {
			r, err = scalarOp(op, v, cell)
		} else {
			r, err = scalarOp(op, cell, v)
		}
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return s.withValues(s.name, resultKind(op, out), out), nil
}

func frameScalarOp(op expr.TokenType, f *Frame, v any) (*Frame, error) {
	cols := make([]*Series, len(f.columns))
	for i, c := range f.columns {
		s, err := seriesScalarOp(op, c, v, false)
		if err != nil {
			return nil, err
		}
		cols[i] = s
	}
	return newFrame(f.index, f.labels, cols), nil
}

func resultKind(op expr.TokenType, out []any) Kind {
	if isComparison(op) {
		return KindBool
	}
	k := inferKind(out)
	if k == KindObject && len(out) > 0 && allMissing(out) {
		return KindFloat
	}
	return k
}

func allMissing(values []any) bool {
	for _, v := range values {
		if !IsMissing(v) {
			return false
		}
	}
	return true
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, int64, float64, string, bool, int:
		return true
	}
	return false
}

// sameValue is == for non-elementwise operands such as two lists.
func sameValue(a, b any) bool {
	switch x := a.(type) {
	case []any:
		y, ok := b.([]any)
		return ok && sameItems(x, y)
	case tuple:
		y, ok := b.(tuple)
		return ok && sameItems(x, y)
	case *Frame:
		y, ok := b.(*Frame)
		return ok && x == y
	case *groupBy:
		y, ok := b.(*groupBy)
		return ok && x == y
	}
	return false
}

func sameItems(x, y []any) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !equalValues(x[i], y[i]) {
			return false
		}
	}
	return true
}

func unsupportedOperands(op expr.TokenType, a, b any) error {
	return typeErrorf("unsupported operand type(s) for %s: '%s' and '%s'", opSymbols[op], typeName(a), typeName(b))
}

// scalarOp applies op to two cells.
func scalarOp(op expr.TokenType, a, b any) (any, error) {
	switch op {
	case expr.EQ:
		return !IsMissing(a) && !IsMissing(b) && equalValues(a, b), nil
	case expr.NEQ:
		return IsMissing(a) || IsMissing(b) || !equalValues(a, b), nil
	case expr.LT, expr.LE, expr.GT, expr.GE:
		if IsMissing(a) || IsMissing(b) {
			return false, nil
		}
		c, err := compareValues(a, b, opSymbols[op])
		if err != nil {
			return nil, err
		}
		switch op {
		case expr.LT:
			return c < 0, nil
		case expr.LE:
			return c <= 0, nil
		case expr.GT:
			return c > 0, nil
		}
		return c >= 0, nil
	case expr.AMP, expr.PIPE:
		return logicalOp(op, a, b)
	}
	return arithmeticOp(op, a, b)
}

func logicalOp(op expr.TokenType, a, b any) (any, error) {
	if IsMissing(a) {
		a = false
	}
	if IsMissing(b) {
		b = false
	}
	x, xok := a.(bool)
	y, yok := b.(bool)
	if xok && yok {
		if op == expr.AMP {
			return x && y, nil
		}
		return x || y, nil
	}
	i, iok := a.(int64)
	j, jok := b.(int64)
	if (iok || xok) && (jok || yok) {
		if xok {
			i, _ = toInt(x)
		}
		if yok {
			j, _ = toInt(y)
		}
		if op == expr.AMP {
			return i & j, nil
		}
		return i | j, nil
	}
	return nil, unsupportedOperands(op, a, b)
}

func arithmeticOp(op expr.TokenType, a, b any) (any, error) {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok && op == expr.PLUS {
			return sa + sb, nil
		}
		if !IsMissing(b) {
			return nil, unsupportedOperands(op, a, b)
		}
	}
	if _, ok := b.(string); ok && !IsMissing(a) {
		return nil, unsupportedOperands(op, a, b)
	}
	if IsMissing(a) || IsMissing(b) {
		return math.NaN(), nil
	}
	if !isNumber(a) || !isNumber(b) {
		return nil, unsupportedOperands(op, a, b)
	}

	_, af := a.(float64)
	_, bf := b.(float64)
	if !af && !bf && op != expr.SLASH {
		x, _ := toInt(a)
		y, _ := toInt(b)
		switch op {
		case expr.PLUS:
			return x + y, nil
		case expr.MINUS:
			return x - y, nil
		case expr.STAR:
			return x * y, nil
		case expr.DSLASH:
			if y == 0 {
				return divideByZero(float64(x)), nil
			}
			q := x / y
			if (x%y != 0) && ((x < 0) != (y < 0)) {
				q--
			}
			return q, nil
		case expr.PERCENT:
			if y == 0 {
				return math.NaN(), nil
			}
			m := x % y
			if m != 0 && ((m < 0) != (y < 0)) {
				m += y
			}
			return m, nil
		}
	}

	x, _ := toFloat(a)
	y, _ := toFloat(b)
	switch op {
	case expr.PLUS:
		return x + y, nil
	case expr.MINUS:
		return x - y, nil
	case expr.STAR:
		return x * y, nil
	case expr.SLASH:
		if y == 0 {
			return divideByZero(x), nil
		}
		return x / y, nil
	case expr.DSLASH:
		if y == 0 {
			return divideByZero(x), nil
		}
		return math.Floor(x / y), nil
	case expr.PERCENT:
		if y == 0 {
			return math.NaN(), nil
		}
		m := math.Mod(x, y)
		if m != 0 && ((m < 0) != (y < 0)) {
			m += y
		}
		return m, nil
	}
	return nil, unsupportedOperands(op, a, b)
}

// scalarDivisionByZero rejects scalar / 0, // 0 and % 0. Element-wise
// division over a Series still yields inf or NaN per cell.
func scalarDivisionByZero(op expr.TokenType, a, b any) error {
	if op != expr.SLASH && op != expr.DSLASH && op != expr.PERCENT {
		return nil
	}
	if IsMissing(a) || IsMissing(b) || !isNumber(a) || !isNumber(b) {
		return nil
	}
	if y, _ := toFloat(b); y != 0 {
		return nil
	}
	switch op {
	case expr.SLASH:
		return zeroDivisionErrorf("division by zero")
	case expr.DSLASH:
		return zeroDivisionErrorf("integer division or modulo by zero")
	}
	return zeroDivisionErrorf("integer modulo by zero")
}

func divideByZero(x float64) float64 {
	switch {
	case x > 0:
		return math.Inf(1)
	case x < 0:
		return math.Inf(-1)
	}
	return math.NaN()
}

// unaryOp applies - or ~ to a Series or a scalar.
func unaryOp(op expr.TokenType, v any) (any, error) {
	switch x := v.(type) {
	case *Series:
		out := make([]any, x.Len())
		for i, cell := range x.values {
			r, err := unaryScalar(op, cell)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return x.withValues(x.name, inferKind(out), out), nil
	case *Frame:
		cols := make([]*Series, len(x.columns))
		for i, c := range x.columns {
			s, err := unaryOp(op, c)
			if err != nil {
				return nil, err
			}
			cols[i] = s.(*Series)
		}
		return newFrame(x.index, x.labels, cols), nil
	}
	if !isScalar(v) {
		return nil, typeErrorf("bad operand type for unary %s: '%s'", unarySymbol(op), typeName(v))
	}
	return unaryScalar(op, v)
}

func unaryScalar(op expr.TokenType, v any) (any, error) {
	if IsMissing(v) {
		if op == expr.TILDE {
			return nil, typeErrorf("bad operand type for unary ~: 'float'")
		}
		return math.NaN(), nil
	}
	switch x := v.(type) {
	case bool:
		if op == expr.TILDE {
			return !x, nil
		}
		if x {
			return int64(-1), nil
		}
		return int64(0), nil
	case int64:
		if op == expr.TILDE {
			return ^x, nil
		}
		return -x, nil
	case float64:
		if op == expr.MINUS {
			return -x, nil
		}
	}
	return nil, typeErrorf("bad operand type for unary %s: '%s'", unarySymbol(op), typeName(v))
}

func unarySymbol(op expr.TokenType) string {
	if op == expr.TILDE {
		return "~"
	}
	return "-"
}
