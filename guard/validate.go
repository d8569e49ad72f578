package guard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spektr-org/cogniview/expr"
	"github.com/spektr-org/cogniview/schema"
)

// ============================================================================
// STATIC VALIDATOR — Schema and pattern checks before execution
// ============================================================================
// Entry point: Validate(code, schema, opts...)
//
// Checks, in order:
//   1. Rephrase request from the normalizer → RephraseRequired
//   2. Empty code, assignment, multiple statements, unparsable text
//      → StructurallyInvalidChain
//   3. Column references (df["x"], df[["x", "y"]], groupby keys,
//      .loc[..., "x"], sort/nlargest columns, names inside df.query)
//      → UnresolvedColumn, listing the real names
//   4. Denylisted extremum chains (.max().idxmax(), ...)
//      → StructurallyInvalidChain
//   5. Known method typos (.value_count(, .groupBy(, ...)
//      → StructurallyInvalidChain
//
// Validation never executes the code.
// ============================================================================

// Result is the outcome of Validate.
type Result struct {
	Valid  bool   `json:"valid"`
	Kind   Kind   `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
	Hint   string `json:"hint,omitempty"`
	// Column is the offending name for UnresolvedColumn.
	Column string `json:"column,omitempty"`
}

// Message is the user-facing rejection text. It always ends with a
// rephrase hint.
func (r Result) Message() string {
	if r.Valid {
		return ""
	}
	if strings.HasSuffix(r.Reason, hintRephrase) {
		return r.Reason
	}
	return strings.TrimSpace(r.Reason + " " + hintRephrase)
}

// Fault converts a rejection into a Fault. It returns nil for valid code.
func (r Result) Fault(diag *Diagnostic) *Fault {
	if r.Valid {
		return nil
	}
	if diag == nil {
		diag = &Diagnostic{}
	}
	diag.Fault = r.Reason
	return &Fault{Kind: r.Kind, Message: r.Message(), Hint: r.Hint, Diagnostic: diag}
}

// Option configures Validate.
type Option func(*validator)

// WithRephrase rejects the code with RephraseRequired and reason.
// An empty reason is ignored.
func WithRephrase(reason string) Option {
	return func(v *validator) { v.rephrase = reason }
}

type validator struct {
	schema   *schema.Schema
	rephrase string
}

// Validate statically checks code against sch.
func Validate(code string, sch *schema.Schema, opts ...Option) Result {
	v := &validator{schema: sch}
	if v.schema == nil {
		v.schema = &schema.Schema{}
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.rephrase != "" {
		return reject(KindRephraseRequired, v.rephrase, hintRephrase)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return reject(KindStructurallyInvalidChain, "No code was generated for this question.", hintRephrase)
	}
	if res, bad := structural(code); bad {
		return res
	}

	root, err := expr.Parse(code)
	if err != nil {
		return reject(KindStructurallyInvalidChain,
			fmt.Sprintf("The generated code is not a single valid expression (%v).", err), hintRephrase)
	}

	for _, name := range columnRefs(root) {
		if !v.schema.Has(name) {
			res := reject(KindUnresolvedColumn,
				fmt.Sprintf("Column %q not found. Available columns: %s", name, quoteAll(v.schema.Names())),
				hintColumn)
			res.Column = name
			return res
		}
	}

	if res, bad := deniedChain(root); bad {
		return res
	}
	if res, bad := typo(root); bad {
		return res
	}
	return Result{Valid: true}
}

func reject(kind Kind, reason, hint string) Result {
	return Result{Kind: kind, Reason: reason, Hint: hint}
}

// ============================================================================
// STRUCTURE — one expression, no assignment
// ============================================================================

// structural rejects assignments and statement separators. An "=" is a
// keyword argument only when its innermost open bracket is a call paren.
func structural(code string) (Result, bool) {
	if strings.Contains(code, "\n") {
		return reject(KindStructurallyInvalidChain, "The generated code spans several lines; only one expression is allowed.", hintRephrase), true
	}

	if semicolonOutsideStrings(code) {
		return reject(KindStructurallyInvalidChain, "The generated code contains several statements; only one expression is allowed.", hintRephrase), true
	}

	toks, err := expr.Lex(code)
	if err != nil {
		// reported by Parse
		return Result{}, false
	}

	var stack []expr.TokenType
	for _, tok := range toks {
		switch tok.Type {
		case expr.LPAREN, expr.LSQUARE:
			stack = append(stack, tok.Type)
		case expr.RPAREN, expr.RSQUARE:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case expr.ASSIGN:
			if len(stack) == 0 || stack[len(stack)-1] != expr.LPAREN {
				return reject(KindStructurallyInvalidChain, "The generated code assigns a value; only read-only queries are allowed.", hintRephrase), true
			}
		}
	}
	return Result{}, false
}

func semicolonOutsideStrings(code string) bool {
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ';':
			return true
		}
	}
	return false
}

// ============================================================================
// COLUMN REFERENCES
// ============================================================================

// frameMethods return a frame with the same columns as their receiver.
var frameMethods = map[string]bool{
	"head": true, "tail": true, "query": true, "sort_values": true,
	"dropna": true, "drop_duplicates": true, "nlargest": true,
	"nsmallest": true, "isnull": true, "isna": true, "notnull": true,
	"notna": true,
}

// isFrame reports whether n statically evaluates to the dataset or a row
// subset of it.
func isFrame(n expr.Node) bool {
	switch v := n.(type) {
	case *expr.Name:
		return v.Ident == "df"
	case *expr.Index:
		if len(v.Items) != 1 {
			return false
		}
		if _, isStr := v.Items[0].(*expr.Str); isStr {
			return false
		}
		if a, ok := v.Target.(*expr.Attr); ok && (a.Name == "loc" || a.Name == "iloc") {
			return isFrame(a.Target)
		}
		return isFrame(v.Target)
	case *expr.Call:
		a, ok := v.Func.(*expr.Attr)
		return ok && frameMethods[a.Name] && isFrame(a.Target)
	}
	return false
}

// groupByCall returns the groupby call n, if n is one on a frame.
func groupByCall(n expr.Node) (*expr.Call, bool) {
	c, ok := n.(*expr.Call)
	if !ok {
		return nil, false
	}
	a, ok := c.Func.(*expr.Attr)
	if !ok || a.Name != "groupby" || !isFrame(a.Target) {
		return nil, false
	}
	return c, true
}

// columnRefs collects every string that the code uses as a column name,
// in source order, without duplicates.
func columnRefs(root expr.Node) []string {
	var out []string
	seen := map[string]bool{}
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}

	expr.Walk(root, func(n expr.Node) bool {
		switch v := n.(type) {
		case *expr.Index:
			if len(v.Items) == 1 && (isFrame(v.Target) || isGroupBy(v.Target)) {
				add(keyStrings(v.Items[0])...)
			}
			if a, ok := v.Target.(*expr.Attr); ok && a.Name == "loc" && isFrame(a.Target) && len(v.Items) == 2 {
				add(keyStrings(v.Items[1])...)
			}

		case *expr.Call:
			a, ok := v.Func.(*expr.Attr)
			if !ok || !isFrame(a.Target) {
				return true
			}
			switch a.Name {
			case "groupby", "sort_values":
				add(argStrings(v, 0, "by")...)
			case "nlargest", "nsmallest":
				add(argStrings(v, 1, "columns")...)
			case "query":
				if len(v.Args) == 1 {
					if s, ok := v.Args[0].(*expr.Str); ok {
						add(queryNames(s.Value)...)
					}
				}
			}
		}
		return true
	})
	return out
}

func isGroupBy(n expr.Node) bool {
	_, ok := groupByCall(n)
	return ok
}

// keyStrings returns the string keys of "x" or ["x", "y"].
func keyStrings(n expr.Node) []string {
	switch v := n.(type) {
	case *expr.Str:
		return []string{v.Value}
	case *expr.List:
		var out []string
		for _, it := range v.Items {
			if s, ok := it.(*expr.Str); ok {
				out = append(out, s.Value)
			}
		}
		return out
	}
	return nil
}

func argStrings(c *expr.Call, pos int, kw string) []string {
	if pos < len(c.Args) {
		return keyStrings(c.Args[pos])
	}
	for _, k := range c.Kwargs {
		if k.Name == kw {
			return keyStrings(k.Value)
		}
	}
	return nil
}

// queryNames returns the bare and backtick names used in a query string.
// Unparsable query text is left for the executor to report.
func queryNames(src string) []string {
	root, err := expr.Parse(src)
	if err != nil {
		return nil
	}
	var out []string
	expr.Walk(root, func(n expr.Node) bool {
		if name, ok := n.(*expr.Name); ok && name.Ident != "index" {
			out = append(out, name.Ident)
		}
		return true
	})
	return out
}

// ============================================================================
// DENYLISTED CHAINS + TYPOS
// ============================================================================

var (
	positional = map[string]bool{"idxmax": true, "idxmin": true, "argmax": true, "argmin": true}
	extremum   = map[string]bool{"idxmax": true, "idxmin": true, "argmax": true, "argmin": true, "max": true, "min": true}

	typos = map[string]string{
		"value_count": "value_counts",
		"groupBy":     "groupby",
		"sort_value":  "sort_values",
		"valuecounts": "value_counts",
		"isNull":      "isnull",
	}
)

// deniedChain rejects an extremum call applied directly to another
// extremum call when either side is positional: the inner call already
// collapsed to one value, so the outer call has nothing left to rank.
func deniedChain(root expr.Node) (Result, bool) {
	var res Result
	found := false
	expr.Walk(root, func(n expr.Node) bool {
		if found {
			return false
		}
		outer, ok := methodCall(n)
		if !ok || !extremum[outer.name] {
			return true
		}
		inner, ok := methodCall(outer.recv)
		if !ok || !extremum[inner.name] {
			return true
		}
		if positional[outer.name] || positional[inner.name] {
			res = reject(KindStructurallyInvalidChain,
				fmt.Sprintf("Cannot chain .%s() with .%s(): .%s() already returns a single value.", inner.name, outer.name, inner.name),
				hintScalarCollapse)
			found = true
			return false
		}
		return true
	})
	return res, found
}

func typo(root expr.Node) (Result, bool) {
	var res Result
	found := false
	expr.Walk(root, func(n expr.Node) bool {
		if a, ok := n.(*expr.Attr); ok && !found {
			if fix, bad := typos[a.Name]; bad {
				res = reject(KindStructurallyInvalidChain,
					fmt.Sprintf("Typo: use .%s() instead of .%s().", fix, a.Name), hintMethod)
				found = true
			}
		}
		return !found
	})
	return res, found
}

type method struct {
	recv expr.Node
	name string
}

// methodCall matches recv.name() with no arguments.
func methodCall(n expr.Node) (method, bool) {
	c, ok := n.(*expr.Call)
	if !ok || len(c.Args) > 0 || len(c.Kwargs) > 0 {
		return method{}, false
	}
	a, ok := c.Func.(*expr.Attr)
	if !ok {
		return method{}, false
	}
	return method{recv: a.Target, name: a.Name}, true
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return strings.Join(quoted, ", ")
}
