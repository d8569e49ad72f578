package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// students is a five-row exam-scores frame.
//
//	gender  lunch         math score  reading score
//	female  standard      72          72
//	male    free/reduced  69          90
//	female  standard      90          95
//	male    standard      47          57
//	female  free/reduced  76          78
func students(t *testing.T) *Frame {
	t.Helper()
	f, err := NewFrame(
		NewSeries("gender", []any{"female", "male", "female", "male", "female"}),
		NewSeries("lunch", []any{"standard", "free/reduced", "standard", "standard", "free/reduced"}),
		NewSeries("math score", []any{int64(72), int64(69), int64(90), int64(47), int64(76)}),
		NewSeries("reading score", []any{int64(72), int64(90), int64(95), int64(57), int64(78)}),
	)
	require.NoError(t, err)
	return f
}

func execute(t *testing.T, code string, opts ...Option) *Result {
	t.Helper()
	res, err := Execute(code, students(t), opts...)
	require.NoError(t, err, code)
	require.True(t, res.Success)
	return res
}

func evalErr(t *testing.T, code string) *EvalError {
	t.Helper()
	_, err := Execute(code, students(t))
	require.Error(t, err, code)
	var ee *EvalError
	require.True(t, errors.As(err, &ee), "expected *EvalError, got %T: %v", err, err)
	return ee
}

func TestExecuteAverageIsScalar(t *testing.T) {
	res := execute(t, `df["math score"].mean()`)
	assert.Equal(t, ClassScalar, res.Class)
	assert.Equal(t, "text", res.Type)
	assert.InDelta(t, 70.8, res.Value.(float64), 1e-9)
	assert.Equal(t, "70.8", res.Reply)
	assert.Equal(t, "float", res.Data.Type)
}

func TestExecuteValueCountsIsTable(t *testing.T) {
	res := execute(t, `df["gender"].value_counts()`)
	assert.Equal(t, ClassTable, res.Class)
	require.NotNil(t, res.TableData)
	assert.Equal(t, [][]string{{"female", "3"}, {"male", "2"}}, res.TableData.Rows)
	assert.Equal(t, "gender", res.TableData.Columns[0].Label)
	assert.Equal(t, "count", res.TableData.Columns[1].Label)
	assert.Equal(t, "number", res.TableData.Columns[1].Type)
	assert.Equal(t, 2, res.TableData.TotalRows)
}

func TestExecuteGroupedMeanIdxmax(t *testing.T) {
	res := execute(t, `df.groupby("gender")["math score"].mean().idxmax()`)
	assert.Equal(t, ClassScalar, res.Class)
	assert.Equal(t, "female", res.Value)

	res = execute(t, `df.groupby("lunch")["reading score"].mean().idxmax()`)
	assert.Equal(t, "free/reduced", res.Value)
}

func TestExecuteGroupedMeanTable(t *testing.T) {
	res := execute(t, `df.groupby("gender")["math score"].mean()`)
	assert.Equal(t, ClassTable, res.Class)
	assert.Equal(t, [][]string{{"female", "79.33"}, {"male", "58.0"}}, res.TableData.Rows)
	assert.Equal(t, "gender", res.TableData.Columns[0].Label)
}

func TestExecuteMultiKeyGroupBySize(t *testing.T) {
	res := execute(t, `df.groupby(["gender", "lunch"]).size()`)
	assert.Equal(t, ClassTable, res.Class)
	assert.Equal(t, [][]string{
		{"female, free/reduced", "1"},
		{"female, standard", "2"},
		{"male, free/reduced", "1"},
		{"male, standard", "1"},
	}, res.TableData.Rows)
}

func TestExecuteSingleRowSeries(t *testing.T) {
	res := execute(t, `df["math score"].head(1)`)
	assert.Equal(t, ClassSingleValue, res.Class)
	assert.Equal(t, "72", res.Reply)
	assert.Equal(t, "math score · 0", res.Data.Label)
}

func TestExecuteEmptyAndMissing(t *testing.T) {
	res := execute(t, `df[df["math score"] > 100]`)
	assert.Equal(t, ClassEmpty, res.Class)

	res = execute(t, `df[df["math score"] > 100]["math score"].mean()`)
	assert.Equal(t, ClassMissing, res.Class)
	assert.True(t, math.IsNaN(res.Value.(float64)))
}

func TestExecuteEmptyListIsEmpty(t *testing.T) {
	res := execute(t, `df[df["gender"] == "other"]["gender"].unique()`)
	assert.Equal(t, ClassEmpty, res.Class)
	assert.Equal(t, "No results found for this question.", res.Reply)
	assert.Nil(t, res.Items)
}

func TestExecuteScalarDivisionByZero(t *testing.T) {
	for _, code := range []string{
		`df["math score"].max() // 0`,
		`df["math score"].max() / 0`,
		`df["math score"].mean() % 0`,
	} {
		ee := evalErr(t, code)
		assert.Equal(t, KindZeroDivision, ee.Kind, code)
	}

	// Element-wise division keeps per-cell inf.
	res := execute(t, `df["math score"] / 0`)
	assert.Equal(t, ClassTable, res.Class)
	s := res.Value.(*Series)
	assert.True(t, math.IsInf(s.Value(0).(float64), 1))
}

func TestExecuteListResults(t *testing.T) {
	res := execute(t, `df.columns`)
	assert.Equal(t, ClassList, res.Class)
	assert.Equal(t, []string{"gender", "lunch", "math score", "reading score"}, res.Items)

	res = execute(t, `df.shape`)
	assert.Equal(t, ClassList, res.Class)
	assert.Equal(t, []string{"5", "4"}, res.Items)

	res = execute(t, `df.sort_values("math score", ascending=False).head(2)["gender"].tolist()`)
	assert.Equal(t, []string{"female", "female"}, res.Items)
}

func TestExecuteFilters(t *testing.T) {
	cases := []struct {
		code string
		want any
	}{
		{`df[df["gender"] == "female"].shape[0]`, int64(3)},
		{`df.query("lunch == 'standard' and ` + "`math score`" + ` > 50").shape[0]`, int64(2)},
		{`df[(df["gender"] == "male") & (df["lunch"] == "standard")]["math score"].iloc[0]`, int64(47)},
		{`df[df["lunch"].str.contains("free")].shape[0]`, int64(2)},
		{`df[df["gender"].isin(["male"])]["reading score"].sum()`, int64(147)},
		{`df[df["math score"].between(70, 80)].shape[0]`, int64(2)},
		{`df.loc[df["math score"].idxmax(), "gender"]`, "female"},
		{`df["gender"].nunique()`, int64(2)},
		{`df["gender"].mode()[0]`, "female"},
		{`df.nlargest(1, "reading score")["gender"].iloc[0]`, "female"},
		{`df["math score"].max() - df["math score"].min()`, int64(43)},
		{`pd.isna(df["math score"]).sum()`, int64(0)},
		{`df.gender.value_counts()["male"]`, int64(2)},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			res := execute(t, tc.code)
			assert.Equal(t, tc.want, res.Value)
		})
	}
}

func TestExecuteLocMaskWithColumn(t *testing.T) {
	res := execute(t, `df.loc[df["lunch"] == "standard", "math score"].mean()`)
	assert.InDelta(t, 69.6667, res.Value.(float64), 1e-3)
}

func TestExecuteMissingLabelIsKeyError(t *testing.T) {
	ee := evalErr(t, `df.groupby("gender")["math score"].mean()["other"]`)
	assert.Equal(t, KindKeyError, ee.Kind)
	assert.Equal(t, "KeyError: 'other'", ee.Error())

	ee = evalErr(t, `df["height"].mean()`)
	assert.Equal(t, KindKeyError, ee.Kind)
}

func TestExecuteMethodOnScalarMentionsScalar(t *testing.T) {
	ee := evalErr(t, `df["math score"].max().idxmax()`)
	assert.Equal(t, KindAttributeError, ee.Kind)
	assert.Contains(t, ee.Message, "idxmax")
	assert.Contains(t, ee.Message, "scalar")
}

func TestExecuteRejectsAmbientCapabilities(t *testing.T) {
	cases := map[string]string{
		`open("/etc/passwd")`:       KindNameError,
		`__import__("os")`:          KindNameError,
		`len(df)`:                   KindNameError,
		`df.to_csv("out.csv")`:      KindAttributeError,
		`pd.read_csv("x.csv")`:      KindAttributeError,
		`df["math score"].apply`:    KindAttributeError,
		`df["x"] = 1`:               KindSyntaxError,
		`df.head(); df.tail()`:      KindSyntaxError,
		`df["math score"].mean()()`: KindTypeError,
	}
	for code, kind := range cases {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, kind, evalErr(t, code).Kind)
		})
	}
}

func TestExecuteAmbiguousTruthValue(t *testing.T) {
	ee := evalErr(t, `df[df["math score"] > 50 and df["reading score"] > 50]`)
	assert.Equal(t, KindValueError, ee.Kind)
	assert.Contains(t, ee.Message, "truth value of a Series is ambiguous")
}

func TestExecuteTypeMismatch(t *testing.T) {
	ee := evalErr(t, `df["gender"].mean()`)
	assert.Equal(t, KindTypeError, ee.Kind)

	ee = evalErr(t, `df[df["gender"] > 3]`)
	assert.Equal(t, KindTypeError, ee.Kind)

	// Equality across types is simply false.
	res := execute(t, `df[df["gender"] == 3]`)
	assert.Equal(t, ClassEmpty, res.Class)
}

func TestExecuteEmptyCode(t *testing.T) {
	_, err := Execute("   ", students(t))
	assert.ErrorIs(t, err, ErrEmptyCode)
}

func TestExecuteMaxRowsTruncates(t *testing.T) {
	res := execute(t, `df`, WithMaxRows(2))
	assert.Equal(t, ClassTable, res.Class)
	assert.True(t, res.TableData.Truncated)
	assert.Len(t, res.TableData.Rows, 2)
	assert.Equal(t, 5, res.TableData.TotalRows)
	assert.Equal(t, []string{"0", "female", "standard", "72", "72"}, res.TableData.Rows[0])
}

func TestExecutePrecision(t *testing.T) {
	res := execute(t, `df.groupby("gender")["math score"].mean().max()`, WithPrecision(4))
	assert.Equal(t, "79.3333", res.Reply)
}

func TestExecuteNeverMutatesFrame(t *testing.T) {
	f := students(t)
	before := students(t)

	for _, code := range []string{
		`df.sort_values("math score")`,
		`df.dropna().drop_duplicates()`,
		`df[df["gender"] == "male"]`,
		`df.groupby("lunch").mean()`,
		`df["math score"].round(1).abs()`,
		`df["math score"].fillna(0)`,
		`df.reset_index()`,
		`df.groupby("gender", as_index=False)["math score"].sum()`,
		`df["math score"] * 2`,
	} {
		_, err := Execute(code, f)
		require.NoError(t, err, code)
	}

	opt := cmp.AllowUnexported(Frame{}, Series{})
	assert.Empty(t, cmp.Diff(before, f, opt))
}

func TestClassifyEveryValue(t *testing.T) {
	s1 := NewSeries("x", []any{int64(1)})
	s3 := NewSeries("x", []any{int64(1), int64(2), int64(3)})
	empty, err := NewFrame(NewSeries("x", []any{}))
	require.NoError(t, err)
	full, err := NewFrame(s3)
	require.NoError(t, err)

	cases := []struct {
		name  string
		value any
		want  Class
	}{
		{"empty frame", empty, ClassEmpty},
		{"frame", full, ClassTable},
		{"empty series", NewSeries("x", []any{}), ClassEmpty},
		{"one-row series", s1, ClassSingleValue},
		{"series", s3, ClassTable},
		{"list", []any{"a"}, ClassList},
		{"empty list", []any{}, ClassEmpty},
		{"empty tuple", tuple{}, ClassEmpty},
		{"tuple", tuple{int64(1), int64(2)}, ClassList},
		{"nil", nil, ClassMissing},
		{"nan", math.NaN(), ClassMissing},
		{"int", int64(4), ClassScalar},
		{"bool", true, ClassScalar},
		{"string", "female", ClassScalar},
		{"echoed code", `df.gender`, ClassEmpty},
		{"method value", &boundMethod{recv: s3, name: "mean"}, ClassScalar},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Classify(tc.value, `df.gender`)
			assert.Equal(t, tc.want, res.Class)
			assert.NotEmpty(t, res.Reply)
		})
	}
}

func TestDescribeAndDtypes(t *testing.T) {
	res := execute(t, `df["math score"].describe()`)
	assert.Equal(t, ClassTable, res.Class)
	assert.Equal(t, []string{"count", "5.0"}, res.TableData.Rows[0])
	assert.Equal(t, []string{"max", "90.0"}, res.TableData.Rows[7])

	res = execute(t, `df.dtypes`)
	assert.Equal(t, [][]string{
		{"gender", "object"}, {"lunch", "object"}, {"math score", "int64"}, {"reading score", "int64"},
	}, res.TableData.Rows)
}

func TestMissingValues(t *testing.T) {
	f, err := NewFrame(
		NewSeries("city", []any{"Oslo", nil, "Lima"}),
		NewSeries("temp", []any{3.5, math.NaN(), 18.0}),
	)
	require.NoError(t, err)

	res, err := Execute(`df.isnull().sum()`, f)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"city", "1"}, {"temp", "1"}}, res.TableData.Rows)

	res, err = Execute(`df["temp"].mean()`, f)
	require.NoError(t, err)
	assert.InDelta(t, 10.75, res.Value.(float64), 1e-9)

	res, err = Execute(`df["city"].value_counts().shape[0]`, f)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Value)
}
