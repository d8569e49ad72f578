package engine

import (
	"fmt"
	"strings"

	"github.com/spektr-org/cogniview/expr"
)

// ============================================================================
// EVALUATOR — Walks one parsed query expression against a Frame
// ============================================================================
// The evaluation environment has exactly two names: df (the frame) and pd
// (a module object exposing isna/notna). Nothing else is reachable: the
// grammar has no statements or imports, and the evaluator knows only the
// operations listed in methods.go.
// ============================================================================

// Evaluate parses code and returns the raw value it evaluates to.
// A panic inside an operation is recovered and reported as an EvalError.
func Evaluate(code string, frame *Frame) (value any, err error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	if frame == nil {
		return nil, fmt.Errorf("no dataset loaded")
	}
	node, err := expr.Parse(code)
	if err != nil {
		return nil, &EvalError{Kind: KindSyntaxError, Message: err.Error()}
	}

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &EvalError{Kind: KindValueError, Message: fmt.Sprintf("operation failed: %v", r)}
		}
	}()

	e := &env{df: frame}
	return e.eval(node)
}

// env is one evaluation scope. In query mode bare names resolve to the
// columns of scope and boolean keywords combine masks elementwise.
type env struct {
	df    *Frame
	scope *Frame
}

// pdModule is the value bound to pd.
type pdModule struct{}

// boundMethod is an attribute that names a callable operation.
type boundMethod struct {
	recv any
	name string
}

// indexer is the value of .loc or .iloc.
type indexer struct {
	target     any
	positional bool
}

// strAccessor is the value of Series.str.
type strAccessor struct {
	s *Series
}

// sliceKey is a start:stop subscript.
type sliceKey struct {
	lo, hi any
}

func (e *env) eval(n expr.Node) (any, error) {
	switch n := n.(type) {
	case *expr.Name:
		return e.lookup(n.Ident)
	case *expr.Str:
		return n.Value, nil
	case *expr.Int:
		return n.Value, nil
	case *expr.Float:
		return n.Value, nil
	case *expr.Const:
		return n.Value, nil
	case *expr.List:
		items, err := e.evalAll(n.Items)
		if err != nil {
			return nil, err
		}
		return items, nil
	case *expr.Tuple:
		items, err := e.evalAll(n.Items)
		if err != nil {
			return nil, err
		}
		return tuple(items), nil
	case *expr.Attr:
		target, err := e.eval(n.Target)
		if err != nil {
			return nil, err
		}
		return getAttr(target, n.Name)
	case *expr.Call:
		return e.call(n)
	case *expr.Index:
		target, err := e.eval(n.Target)
		if err != nil {
			return nil, err
		}
		keys, err := e.subscript(n.Items)
		if err != nil {
			return nil, err
		}
		return getItem(target, keys)
	case *expr.Binary:
		return e.binary(n)
	case *expr.Unary:
		return e.unary(n)
	case *expr.Slice:
		return nil, &EvalError{Kind: KindSyntaxError, Message: "slice outside of a subscript"}
	}
	return nil, &EvalError{Kind: KindSyntaxError, Message: fmt.Sprintf("unsupported expression %s", n)}
}

func (e *env) lookup(name string) (any, error) {
	if e.scope != nil {
		if c, ok := e.scope.Column(name); ok {
			return c, nil
		}
		if name == "index" {
			return newSeries("index", inferKind(e.scope.labels), e.scope.labels, cloneValues(e.scope.labels)), nil
		}
		return nil, &EvalError{Kind: KindNameError, Message: fmt.Sprintf("name '%s' is not defined", name)}
	}
	switch name {
	case "df":
		return e.df, nil
	case "pd":
		return pdModule{}, nil
	}
	return nil, &EvalError{Kind: KindNameError, Message: fmt.Sprintf("name '%s' is not defined", name)}
}

func (e *env) evalAll(nodes []expr.Node) ([]any, error) {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		v, err := e.eval(n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *env) subscript(items []expr.Node) ([]any, error) {
	keys := make([]any, len(items))
	for i, it := range items {
		if s, ok := it.(*expr.Slice); ok {
			var k sliceKey
			var err error
			if s.Lo != nil {
				if k.lo, err = e.eval(s.Lo); err != nil {
					return nil, err
				}
			}
			if s.Hi != nil {
				if k.hi, err = e.eval(s.Hi); err != nil {
					return nil, err
				}
			}
			keys[i] = k
			continue
		}
		v, err := e.eval(it)
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}
	return keys, nil
}

func (e *env) call(n *expr.Call) (any, error) {
	fn, err := e.eval(n.Func)
	if err != nil {
		return nil, err
	}
	m, ok := fn.(*boundMethod)
	if !ok {
		return nil, typeErrorf("'%s' object is not callable", typeName(fn))
	}
	args := &callArgs{method: m.name, kw: make(map[string]any, len(n.Kwargs))}
	if args.pos, err = e.evalAll(n.Args); err != nil {
		return nil, err
	}
	for _, kw := range n.Kwargs {
		if _, dup := args.kw[kw.Name]; dup {
			return nil, &EvalError{Kind: KindSyntaxError, Message: fmt.Sprintf("keyword argument repeated: %s", kw.Name)}
		}
		v, err := e.eval(kw.Value)
		if err != nil {
			return nil, err
		}
		args.kw[kw.Name] = v
	}
	return e.invoke(m, args)
}

func (e *env) binary(n *expr.Binary) (any, error) {
	left, err := e.eval(n.L)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case expr.AND, expr.OR:
		if _, ok := left.(*Series); ok && e.scope != nil {
			right, err := e.eval(n.R)
			if err != nil {
				return nil, err
			}
			op := expr.AMP
			if n.Op == expr.OR {
				op = expr.PIPE
			}
			return binaryOp(op, left, right)
		}
		lt, err := truthValue(left)
		if err != nil {
			return nil, err
		}
		// and/or yield an operand, not a bool.
		if (n.Op == expr.AND && !lt) || (n.Op == expr.OR && lt) {
			return left, nil
		}
		return e.eval(n.R)
	}

	right, err := e.eval(n.R)
	if err != nil {
		return nil, err
	}
	if n.Op == expr.IN {
		return e.contains(left, right)
	}
	return binaryOp(n.Op, left, right)
}

func (e *env) unary(n *expr.Unary) (any, error) {
	x, err := e.eval(n.X)
	if err != nil {
		return nil, err
	}
	if n.Op != expr.NOT {
		return unaryOp(n.Op, x)
	}
	if s, ok := x.(*Series); ok && e.scope != nil {
		return unaryOp(expr.TILDE, s)
	}
	b, err := truthValue(x)
	if err != nil {
		return nil, err
	}
	return !b, nil
}

// contains implements "x in y".
func (e *env) contains(item, container any) (any, error) {
	if s, ok := item.(*Series); ok && e.scope != nil {
		items, ok := asList(container)
		if !ok {
			if c, isSeries := container.(*Series); isSeries {
				items = c.values
			} else {
				items = []any{container}
			}
		}
		return isin(s, items), nil
	}
	switch c := container.(type) {
	case []any:
		return containsValue(c, item)
	case tuple:
		return containsValue(c, item)
	case string:
		sub, ok := item.(string)
		if !ok {
			return nil, typeErrorf("'in <string>' requires string as left operand, not %s", typeName(item))
		}
		return strings.Contains(c, sub), nil
	case *Series:
		_, found := findLabel(c.labels, item)
		return found, nil
	case *Frame:
		name, ok := item.(string)
		if !ok {
			return false, nil
		}
		_, found := c.Column(name)
		return found, nil
	}
	return nil, typeErrorf("argument of type '%s' is not iterable", typeName(container))
}

func containsValue(items []any, v any) (any, error) {
	if _, ok := v.(*Series); ok {
		return nil, ambiguousTruth("Series")
	}
	for _, it := range items {
		if equalValues(it, v) {
			return true, nil
		}
	}
	return false, nil
}

func truthValue(v any) (bool, error) {
	switch v.(type) {
	case *Series:
		return false, ambiguousTruth("Series")
	case *Frame:
		return false, ambiguousTruth("DataFrame")
	}
	return truthy(v), nil
}

func ambiguousTruth(kind string) error {
	return valueErrorf("The truth value of a %s is ambiguous. Use a.empty, a.bool(), a.item(), a.any() or a.all().", kind)
}

// query evaluates a filter expression where bare names are columns of f.
func (e *env) query(f *Frame, src string) (*Frame, error) {
	node, err := expr.Parse(src)
	if err != nil {
		return nil, &EvalError{Kind: KindSyntaxError, Message: err.Error()}
	}
	q := &env{df: e.df, scope: f}
	v, err := q.eval(node)
	if err != nil {
		return nil, err
	}
	mask, ok := v.(*Series)
	if !ok || mask.kind != KindBool {
		return nil, valueErrorf("query expression must produce a boolean mask, got %s", typeName(v))
	}
	return filterFrame(f, mask)
}
