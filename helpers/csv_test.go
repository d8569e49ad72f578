package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/cogniview/engine"
)

const scores = `gender,lunch,math score,ratio,passed
female,standard,72,0.5,true
male,free/reduced,69,N/A,false
female,standard,90,1.25,TRUE
male,,47,2,false
female,free/reduced,76,3.5,
`

func TestParseCSVTypes(t *testing.T) {
	f, err := ParseCSV([]byte(scores))
	require.NoError(t, err)

	assert.Equal(t, 5, f.Len())
	assert.Equal(t, []string{"gender", "lunch", "math score", "ratio", "passed"}, f.ColumnNames())

	want := map[string]engine.Kind{
		"gender":     engine.KindString,
		"lunch":      engine.KindString,
		"math score": engine.KindInt,
		"ratio":      engine.KindFloat,
		"passed":     engine.KindBool,
	}
	for name, kind := range want {
		col, ok := f.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, kind, col.Kind(), name)
	}

	math, _ := f.Column("math score")
	assert.Equal(t, int64(72), math.Value(0))

	ratio, _ := f.Column("ratio")
	assert.Nil(t, ratio.Value(1))
	assert.Equal(t, 2.0, ratio.Value(3))

	lunch, _ := f.Column("lunch")
	assert.Nil(t, lunch.Value(3))

	passed, _ := f.Column("passed")
	assert.Equal(t, true, passed.Value(2))
	assert.Nil(t, passed.Value(4))
}

func TestParseCSVNonConformingCellsBecomeMissing(t *testing.T) {
	data := "amount\n10\n20\n30\n40\nunknown\n"
	f, err := ParseCSV([]byte(data))
	require.NoError(t, err)

	col, _ := f.Column("amount")
	assert.Equal(t, engine.KindInt, col.Kind())
	assert.Nil(t, col.Value(4))
}

func TestParseCSVBelowThresholdStaysText(t *testing.T) {
	data := "code\n1\n2\nA\nB\nC\n"
	f, err := ParseCSV([]byte(data))
	require.NoError(t, err)

	col, _ := f.Column("code")
	assert.Equal(t, engine.KindString, col.Kind())
	assert.Equal(t, "1", col.Value(0))
}

func TestParseCSVHeaders(t *testing.T) {
	data := "a,,a,a\n1,2,3,4\n"
	f, err := ParseCSV([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Unnamed: 1", "a.1", "a.2"}, f.ColumnNames())
}

func TestParseCSVShortRowsArePadded(t *testing.T) {
	data := "x,y\n1,2\n3\n"
	f, err := ParseCSV([]byte(data))
	require.NoError(t, err)

	y, _ := f.Column("y")
	assert.Equal(t, 2, y.Len())
	assert.Nil(t, y.Value(1))
}

func TestParseCSVCurrencyAndSeparators(t *testing.T) {
	data := "price\n\"$1,234.50\"\n-$3\n12\n"
	f, err := ParseCSV([]byte(data))
	require.NoError(t, err)

	col, _ := f.Column("price")
	assert.Equal(t, engine.KindFloat, col.Kind())
	assert.Equal(t, []any{1234.5, -3.0, 12.0}, col.Values())
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(nil)
	assert.Error(t, err)
}
