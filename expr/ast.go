package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is an expression tree node.
type Node interface {
	Pos() int
	String() string
}

// Name is a bare identifier such as df or pd.
type Name struct {
	Ident string
	At    int
}

// Str is a string literal.
type Str struct {
	Value string
	At    int
}

// Int is an integer literal.
type Int struct {
	Value int64
	At    int
}

// Float is a floating-point literal.
type Float struct {
	Value float64
	At    int
}

// Const is True, False or None.
type Const struct {
	Value any // bool or nil
	At    int
}

// List is a bracketed list literal: ["a", "b"].
type List struct {
	Items []Node
	At    int
}

// Tuple is a parenthesized, comma-separated group: (a, b).
type Tuple struct {
	Items []Node
	At    int
}

// Attr is attribute access: target.name.
type Attr struct {
	Target Node
	Name   string
	At     int
}

// Kwarg is a keyword argument in a call.
type Kwarg struct {
	Name  string
	Value Node
}

// Call is a call expression: fn(args..., name=value...).
type Call struct {
	Func   Node
	Args   []Node
	Kwargs []Kwarg
	At     int
}

// Slice is a start:stop range inside a subscript. Either bound may be nil.
type Slice struct {
	Lo, Hi Node
	At     int
}

// Index is a subscript: target[items...]. A single key has one item;
// df.loc[mask, "col"] has two.
type Index struct {
	Target Node
	Items  []Node
	At     int
}

// Binary is a binary operation.
type Binary struct {
	Op   TokenType
	L, R Node
	At   int
}

// Unary is a prefix operation: -x, ~x, not x.
type Unary struct {
	Op TokenType
	X  Node
	At int
}

func (n *Name) Pos() int   { return n.At }
func (n *Str) Pos() int    { return n.At }
func (n *Int) Pos() int    { return n.At }
func (n *Float) Pos() int  { return n.At }
func (n *Const) Pos() int  { return n.At }
func (n *List) Pos() int   { return n.At }
func (n *Tuple) Pos() int  { return n.At }
func (n *Attr) Pos() int   { return n.At }
func (n *Call) Pos() int   { return n.At }
func (n *Slice) Pos() int  { return n.At }
func (n *Index) Pos() int  { return n.At }
func (n *Binary) Pos() int { return n.At }
func (n *Unary) Pos() int  { return n.At }

func (n *Name) String() string  { return n.Ident }
func (n *Str) String() string   { return strconv.Quote(n.Value) }
func (n *Int) String() string   { return strconv.FormatInt(n.Value, 10) }
func (n *Float) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

func (n *Const) String() string {
	switch v := n.Value.(type) {
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return "None"
	}
}

func (n *List) String() string  { return "[" + joinNodes(n.Items) + "]" }
func (n *Tuple) String() string { return "(" + joinNodes(n.Items) + ")" }
func (n *Attr) String() string  { return n.Target.String() + "." + n.Name }

func (n *Call) String() string {
	parts := make([]string, 0, len(n.Args)+len(n.Kwargs))
	for _, a := range n.Args {
		parts = append(parts, a.String())
	}
	for _, kw := range n.Kwargs {
		parts = append(parts, kw.Name+"="+kw.Value.String())
	}
	return n.Func.String() + "(" + strings.Join(parts, ", ") + ")"
}

func (n *Slice) String() string {
	lo, hi := "", ""
	if n.Lo != nil {
		lo = n.Lo.String()
	}
	if n.Hi != nil {
		hi = n.Hi.String()
	}
	return lo + ":" + hi
}

func (n *Index) String() string { return n.Target.String() + "[" + joinNodes(n.Items) + "]" }

func (n *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", n.L, opText(n.Op), n.R)
}

func (n *Unary) String() string {
	if n.Op == NOT {
		return "not " + n.X.String()
	}
	return opText(n.Op) + n.X.String()
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

func opText(t TokenType) string {
	return strings.Trim(t.String(), "'")
}

// Walk calls fn for n and every node beneath it, depth first.
// Returning false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *List:
		for _, it := range v.Items {
			Walk(it, fn)
		}
	case *Tuple:
		for _, it := range v.Items {
			Walk(it, fn)
		}
	case *Attr:
		Walk(v.Target, fn)
	case *Call:
		Walk(v.Func, fn)
		for _, a := range v.Args {
			Walk(a, fn)
		}
		for _, kw := range v.Kwargs {
			Walk(kw.Value, fn)
		}
	case *Slice:
		Walk(v.Lo, fn)
		Walk(v.Hi, fn)
	case *Index:
		Walk(v.Target, fn)
		for _, it := range v.Items {
			Walk(it, fn)
		}
	case *Binary:
		Walk(v.L, fn)
		Walk(v.R, fn)
	case *Unary:
		Walk(v.X, fn)
	}
}
