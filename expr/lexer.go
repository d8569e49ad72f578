package expr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ============================================================================
// LEXER — Single-line query expressions
// ============================================================================
// The grammar is a small, Python-flavoured expression language:
//   df["math score"].mean()
//   df[df["gender"] == "female"].groupby("lunch")["reading score"].mean()
//   df.query("lunch == 'standard' and `math score` > 50").shape[0]
//
// Statements, imports, lambdas and comprehensions have no tokens at all.
// ============================================================================

// TokenType identifies the kind of a lexical token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	IDENT
	STRING
	INT
	FLOAT

	LPAREN   // (
	RPAREN   // )
	LSQUARE  // [
	RSQUARE  // ]
	COMMA    // ,
	PERIOD   // .
	COLON    // :
	ASSIGN   // =
	EQ       // ==
	NEQ      // !=
	LT       // <
	LE       // <=
	GT       // >
	GE       // >=
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	DSLASH   // //
	PERCENT  // %
	AMP      // &
	PIPE     // |
	TILDE    // ~

	AND
	OR
	NOT
	IN
	TRUE
	FALSE
	NONE
)

var tokenNames = map[TokenType]string{
	EOF: "end of input", ILLEGAL: "illegal", IDENT: "name", STRING: "string",
	INT: "integer", FLOAT: "number", LPAREN: "'('", RPAREN: "')'",
	LSQUARE: "'['", RSQUARE: "']'", COMMA: "','", PERIOD: "'.'", COLON: "':'",
	ASSIGN: "'='", EQ: "'=='", NEQ: "'!='", LT: "'<'", LE: "'<='", GT: "'>'",
	GE: "'>='", PLUS: "'+'", MINUS: "'-'", STAR: "'*'", SLASH: "'/'",
	DSLASH: "'//'", PERCENT: "'%'", AMP: "'&'", PIPE: "'|'", TILDE: "'~'",
	AND: "'and'", OR: "'or'", NOT: "'not'", IN: "'in'", TRUE: "'True'",
	FALSE: "'False'", NONE: "'None'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"and":   AND,
	"or":    OR,
	"not":   NOT,
	"in":    IN,
	"True":  TRUE,
	"False": FALSE,
	"None":  NONE,
	// lowercase forms appear inside query strings
	"true":  TRUE,
	"false": FALSE,
}

// Token is a lexical token. Pos is the byte offset in the source.
type Token struct {
	Type TokenType
	Text string // identifier name or decoded string literal
	Pos  int
}

// SyntaxError reports a lexing or parsing failure.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid syntax at position %d: %s", e.Pos, e.Msg)
}

// Lex splits src into tokens, terminated by an EOF token.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src}
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '"' || c == '\'':
		return l.lexString(c)
	case c == '`':
		return l.lexBacktick()
	case isDigit(c) || (c == '.' && isDigit(l.peekByte(1))):
		return l.lexNumber()
	case c == '_' || c >= utf8.RuneSelf || unicode.IsLetter(rune(c)):
		return l.lexIdent()
	}

	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "==":
		l.pos += 2
		return Token{Type: EQ, Pos: start}, nil
	case "!=":
		l.pos += 2
		return Token{Type: NEQ, Pos: start}, nil
	case "<=":
		l.pos += 2
		return Token{Type: LE, Pos: start}, nil
	case ">=":
		l.pos += 2
		return Token{Type: GE, Pos: start}, nil
	case "//":
		l.pos += 2
		return Token{Type: DSLASH, Pos: start}, nil
	}

	single := map[byte]TokenType{
		'(': LPAREN, ')': RPAREN, '[': LSQUARE, ']': RSQUARE, ',': COMMA,
		'.': PERIOD, ':': COLON, '=': ASSIGN, '<': LT, '>': GT, '+': PLUS,
		'-': MINUS, '*': STAR, '/': SLASH, '%': PERCENT, '&': AMP, '|': PIPE,
		'~': TILDE,
	}
	if tt, ok := single[c]; ok {
		l.pos++
		return Token{Type: tt, Pos: start}, nil
	}
	return Token{}, &SyntaxError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
}

func (l *lexer) lexString(quote byte) (Token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return Token{Type: STRING, Text: b.String(), Pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return Token{}, &SyntaxError{Pos: l.pos, Msg: "unterminated escape"}
			}
			esc := l.src[l.pos+1]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(esc)
			}
			l.pos += 2
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return Token{}, &SyntaxError{Pos: start, Msg: "unterminated string literal"}
}

// lexBacktick reads a `quoted name`, used by query strings for column names
// that contain spaces.
func (l *lexer) lexBacktick() (Token, error) {
	start := l.pos
	end := strings.IndexByte(l.src[l.pos+1:], '`')
	if end < 0 {
		return Token{}, &SyntaxError{Pos: start, Msg: "unterminated backtick name"}
	}
	name := l.src[l.pos+1 : l.pos+1+end]
	l.pos += end + 2
	return Token{Type: IDENT, Text: name, Pos: start}, nil
}

func (l *lexer) lexNumber() (Token, error) {
	start := l.pos
	isFloat := false
scan:
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isDigit(c) || c == '_':
			l.pos++
		case c == '.' && !isFloat:
			isFloat = true
			l.pos++
		case (c == 'e' || c == 'E') && l.pos > start:
			isFloat = true
			l.pos++
			if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
				l.pos++
			}
		default:
			break scan
		}
	}
	text := strings.ReplaceAll(l.src[start:l.pos], "_", "")
	if isFloat {
		return Token{Type: FLOAT, Text: text, Pos: start}, nil
	}
	return Token{Type: INT, Text: text, Pos: start}, nil
}

func (l *lexer) lexIdent() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		l.pos += size
	}
	if l.pos == start {
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		return Token{}, &SyntaxError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", r)}
	}
	word := l.src[start:l.pos]
	if tt, ok := keywords[word]; ok {
		return Token{Type: tt, Text: word, Pos: start}, nil
	}
	return Token{Type: IDENT, Text: word, Pos: start}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
