package expr

import (
	"fmt"
	"strconv"
)

// ============================================================================
// PARSER — Pratt parser over the token stream
// ============================================================================
// Precedence follows Python, lowest first:
//   or < and < not < comparisons < | < & < + - < * / // % < unary - ~ < postfix
// Exactly one expression is accepted; anything after it is a syntax error.
// ============================================================================

const (
	bpOr      = 10
	bpAnd     = 20
	bpNot     = 30
	bpCompare = 40
	bpPipe    = 50
	bpAmp     = 60
	bpSum     = 70
	bpProduct = 80
	bpUnary   = 90
)

func infixBP(t TokenType) (int, bool) {
	switch t {
	case OR:
		return bpOr, true
	case AND:
		return bpAnd, true
	case EQ, NEQ, LT, LE, GT, GE, IN, NOT:
		return bpCompare, true
	case PIPE:
		return bpPipe, true
	case AMP:
		return bpAmp, true
	case PLUS, MINUS:
		return bpSum, true
	case STAR, SLASH, DSLASH, PERCENT:
		return bpProduct, true
	}
	return 0, false
}

// Parse parses a single expression.
func Parse(src string) (Node, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	switch tok := p.peek(); tok.Type {
	case EOF:
		return n, nil
	case ASSIGN:
		return nil, &SyntaxError{Pos: tok.Pos, Msg: "assignment is not allowed in a query expression"}
	default:
		return nil, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected %s after expression", tok.Type)}
	}
}

type parser struct {
	toks []Token
	i    int
}

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) peekAt(off int) Token {
	if p.i+off >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+off]
}

func (p *parser) advance() Token {
	tok := p.toks[p.i]
	if tok.Type != EOF {
		p.i++
	}
	return tok
}

func (p *parser) match(t TokenType) bool {
	if p.peek().Type == t {
		p.advance()
		return true
	}
	return false
}

func (p *parser) need(t TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != t {
		return tok, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("expected %s, found %s", t, tok.Type)}
	}
	return p.advance(), nil
}

func (p *parser) expr(minBP int) (Node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		bp, ok := infixBP(tok.Type)
		if !ok || bp <= minBP {
			return left, nil
		}
		// "not" is only infix as part of "not in".
		if tok.Type == NOT {
			if p.peekAt(1).Type != IN {
				return left, nil
			}
			p.advance()
			p.advance()
			right, err := p.expr(bp)
			if err != nil {
				return nil, err
			}
			left = &Unary{Op: NOT, X: &Binary{Op: IN, L: left, R: right, At: tok.Pos}, At: tok.Pos}
			continue
		}
		p.advance()
		right, err := p.expr(bp)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.Type, L: left, R: right, At: tok.Pos}
	}
}

func (p *parser) prefix() (Node, error) {
	tok := p.advance()
	var n Node
	switch tok.Type {
	case IDENT:
		n = &Name{Ident: tok.Text, At: tok.Pos}
	case STRING:
		n = &Str{Value: tok.Text, At: tok.Pos}
	case INT:
		v, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.Pos, Msg: "integer literal out of range"}
		}
		n = &Int{Value: v, At: tok.Pos}
	case FLOAT:
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.Pos, Msg: "malformed number"}
		}
		n = &Float{Value: v, At: tok.Pos}
	case TRUE:
		n = &Const{Value: true, At: tok.Pos}
	case FALSE:
		n = &Const{Value: false, At: tok.Pos}
	case NONE:
		n = &Const{Value: nil, At: tok.Pos}
	case LPAREN:
		group, err := p.group(tok)
		if err != nil {
			return nil, err
		}
		n = group
	case LSQUARE:
		items, err := p.items(RSQUARE)
		if err != nil {
			return nil, err
		}
		n = &List{Items: items, At: tok.Pos}
	case MINUS, TILDE:
		x, err := p.expr(bpUnary)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: tok.Type, X: x, At: tok.Pos}, nil
	case NOT:
		x, err := p.expr(bpNot)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: NOT, X: x, At: tok.Pos}, nil
	case EOF:
		return nil, &SyntaxError{Pos: tok.Pos, Msg: "unexpected end of expression"}
	default:
		return nil, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected %s", tok.Type)}
	}
	return p.postfix(n)
}

// group parses the remainder of a parenthesized expression or tuple.
func (p *parser) group(open Token) (Node, error) {
	if p.match(RPAREN) {
		return &Tuple{At: open.Pos}, nil
	}
	first, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if !p.match(COMMA) {
		if _, err := p.need(RPAREN); err != nil {
			return nil, err
		}
		return first, nil
	}
	items := []Node{first}
	for p.peek().Type != RPAREN {
		it, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RPAREN); err != nil {
		return nil, err
	}
	return &Tuple{Items: items, At: open.Pos}, nil
}

// items parses comma-separated expressions up to the closing token,
// allowing a trailing comma.
func (p *parser) items(closing TokenType) ([]Node, error) {
	var items []Node
	for p.peek().Type != closing {
		it, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(closing); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *parser) postfix(n Node) (Node, error) {
	for {
		tok := p.peek()
		switch tok.Type {
		case PERIOD:
			p.advance()
			name, err := p.need(IDENT)
			if err != nil {
				return nil, err
			}
			n = &Attr{Target: n, Name: name.Text, At: name.Pos}
		case LSQUARE:
			p.advance()
			items, err := p.subscript()
			if err != nil {
				return nil, err
			}
			n = &Index{Target: n, Items: items, At: tok.Pos}
		case LPAREN:
			p.advance()
			call, err := p.call(n, tok)
			if err != nil {
				return nil, err
			}
			n = call
		default:
			return n, nil
		}
	}
}

func (p *parser) subscript() ([]Node, error) {
	var items []Node
	for {
		it, err := p.subscriptItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RSQUARE); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *parser) subscriptItem() (Node, error) {
	start := p.peek()
	var lo Node
	if start.Type != COLON {
		n, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if p.peek().Type != COLON {
			return n, nil
		}
		lo = n
	}
	p.advance() // ':'
	var hi Node
	if t := p.peek().Type; t != RSQUARE && t != COMMA {
		n, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		hi = n
	}
	return &Slice{Lo: lo, Hi: hi, At: start.Pos}, nil
}

func (p *parser) call(fn Node, open Token) (Node, error) {
	call := &Call{Func: fn, At: open.Pos}
	for p.peek().Type != RPAREN {
		if p.peek().Type == IDENT && p.peekAt(1).Type == ASSIGN {
			name := p.advance()
			p.advance()
			v, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			call.Kwargs = append(call.Kwargs, Kwarg{Name: name.Text, Value: v})
		} else {
			if len(call.Kwargs) > 0 {
				return nil, &SyntaxError{Pos: p.peek().Pos, Msg: "positional argument follows keyword argument"}
			}
			v, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, v)
		}
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}
