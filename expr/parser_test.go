package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexTokens(t *testing.T) {
	toks, err := Lex(`df["math score"] >= 50 & ~df.x`)
	require.NoError(t, err)

	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		IDENT, LSQUARE, STRING, RSQUARE, GE, INT, AMP, TILDE, IDENT, PERIOD, IDENT, EOF,
	}, types)
	assert.Equal(t, "math score", toks[2].Text)
}

func TestLexStringsAndBackticks(t *testing.T) {
	toks, err := Lex("'Master\\'s degree' `reading score`")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, "Master's degree", toks[0].Text)
	assert.Equal(t, IDENT, toks[1].Type)
	assert.Equal(t, "reading score", toks[1].Text)
}

func TestLexNumbers(t *testing.T) {
	toks, err := Lex("3 4.5 1e3 .25")
	require.NoError(t, err)
	assert.Equal(t, INT, toks[0].Type)
	assert.Equal(t, FLOAT, toks[1].Type)
	assert.Equal(t, FLOAT, toks[2].Type)
	assert.Equal(t, FLOAT, toks[3].Type)
}

func TestLexRejectsUnknownCharacters(t *testing.T) {
	for _, src := range []string{`df["a"]; import os`, "df[“gender”]", `df["open`} {
		_, err := Lex(src)
		var se *SyntaxError
		assert.True(t, errors.As(err, &se), "expected syntax error for %q", src)
	}
}

func TestParseRoundTrip(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`df["math score"].mean()`, `df["math score"].mean()`},
		{`df[df["gender"] == "female"].shape[0]`, `df[(df["gender"] == "female")].shape[0]`},
		{`df.groupby("lunch")["reading score"].mean().idxmax()`, `df.groupby("lunch")["reading score"].mean().idxmax()`},
		{`df[["a", "b"]]`, `df[["a", "b"]]`},
		{`df.loc[df["x"] > 1, "y"]`, `df.loc[(df["x"] > 1), "y"]`},
		{`df.head(3)`, `df.head(3)`},
		{`df["x"].value_counts(normalize=True)`, `df["x"].value_counts(normalize=True)`},
		{`df[(df["a"] > 1) & (df["b"] < 2)]`, `df[((df["a"] > 1) & (df["b"] < 2))]`},
		{`df.iloc[1:3]`, `df.iloc[1:3]`},
		{`-df["x"].min()`, `-df["x"].min()`},
		{`not a in b`, `not (a in b)`},
		{`a not in b`, `not (a in b)`},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			n, err := Parse(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, n.String())
		})
	}
}

func TestParsePrecedence(t *testing.T) {
	n, err := Parse(`a == 1 and b > 2 or c`)
	require.NoError(t, err)
	assert.Equal(t, `(((a == 1) and (b > 2)) or c)`, n.String())

	n, err = Parse(`1 + 2 * 3`)
	require.NoError(t, err)
	assert.Equal(t, `(1 + (2 * 3))`, n.String())
}

func TestParseRejectsStatements(t *testing.T) {
	for _, src := range []string{
		`df["x"] = 1`,
		`df["x"].mean() df`,
		`df[`,
		`df.sort_values(by="x", True)`,
		``,
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			var se *SyntaxError
			require.Error(t, err)
			assert.True(t, errors.As(err, &se))
		})
	}
}

func TestWalkVisitsEveryNode(t *testing.T) {
	n, err := Parse(`df[df["a"] == "x"].groupby(["b", "c"]).size()`)
	require.NoError(t, err)

	var strs []string
	Walk(n, func(n Node) bool {
		if s, ok := n.(*Str); ok {
			strs = append(strs, s.Value)
		}
		return true
	})
	assert.Equal(t, []string{"a", "x", "b", "c"}, strs)
}
