package guard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/cogniview/schema"
)

func examSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.ColumnDescriptor{
		{Name: "gender", Type: schema.TypeText, Samples: []string{"female", "male"}},
		{Name: "lunch", Type: schema.TypeText, Samples: []string{"standard", "free/reduced"}},
		{Name: "math score", Type: schema.TypeInteger, Samples: []string{"72", "69"}},
		{Name: "reading score", Type: schema.TypeInteger, Samples: []string{"72", "90"}},
	}, 1000)
	require.NoError(t, err)
	return sch
}

func TestValidateAccepts(t *testing.T) {
	sch := examSchema(t)
	for _, code := range []string{
		`df["math score"].mean()`,
		`df.shape[0]`,
		`df.groupby("gender")["math score"].mean().idxmax()`,
		`df.groupby(["gender", "lunch"])["reading score"].mean()`,
		`df[df["gender"] == "female"]["math score"].mean()`,
		`df[["gender", "math score"]].head(3)`,
		`df.query("gender == 'female' and lunch == 'standard'").shape[0]`,
		"df.query(\"`math score` > 70\")[\"gender\"].value_counts()",
		`df.sort_values("math score", ascending=False).head(3)`,
		`df.sort_values(by=["gender", "math score"]).head()`,
		`df.nlargest(3, "reading score")`,
		`df.loc[df["math score"] > 70, "gender"].value_counts()`,
		`df["math score"].max().max()`,
		`df.isnull().sum()`,
	} {
		t.Run(code, func(t *testing.T) {
			res := Validate(code, sch)
			assert.True(t, res.Valid, res.Reason)
			assert.Empty(t, res.Kind)
			assert.Nil(t, res.Fault(nil))
		})
	}
}

func TestValidateUnresolvedColumn(t *testing.T) {
	sch := examSchema(t)
	cases := []struct {
		code   string
		column string
	}{
		{`df["Math Score"].mean()`, "Math Score"},
		{`df[["gender", "school"]]`, "school"},
		{`df.groupby("class")["math score"].mean()`, "class"},
		{`df.groupby("gender")["writing score"].mean()`, "writing score"},
		{`df.query("age > 3").shape[0]`, "age"},
		{`df.sort_values(by="rank").head()`, "rank"},
		{`df.nsmallest(2, "height")`, "height"},
		{`df.loc[df["math score"] > 1, "name"]`, "name"},
		{`df[df["grade"] > 1].shape[0]`, "grade"},
		{`df[df["math score"] > 70]["total"].sum()`, "total"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			res := Validate(tc.code, sch)
			require.False(t, res.Valid)
			assert.Equal(t, KindUnresolvedColumn, res.Kind)
			assert.Equal(t, tc.column, res.Column)
			assert.Contains(t, res.Reason, `"`+tc.column+`" not found`)
			assert.Contains(t, res.Reason, `Available columns: "gender", "lunch", "math score", "reading score"`)
			assert.Equal(t, hintColumn, res.Hint)
		})
	}
}

func TestValidateStructurallyInvalid(t *testing.T) {
	sch := examSchema(t)
	cases := []struct {
		name   string
		code   string
		reason string
		hint   string
	}{
		{"max then idxmax", `df["math score"].max().idxmax()`, "Cannot chain .max() with .idxmax()", hintScalarCollapse},
		{"idxmax then max", `df["math score"].idxmax().max()`, "Cannot chain .idxmax() with .max()", hintScalarCollapse},
		{"argmax then idxmin", `df.groupby("gender")["math score"].mean().argmax().idxmin()`, "Cannot chain", hintScalarCollapse},
		{"assignment", `x = df.shape[0]`, "assigns a value", hintRephrase},
		{"assignment in brackets", `df[df["gender"] = "female"]`, "assigns a value", hintRephrase},
		{"two statements", `df.head(); df.shape[0]`, "several statements", hintRephrase},
		{"two lines", "df.head()\ndf.shape[0]", "several lines", hintRephrase},
		{"unbalanced", `df["math score"`, "not a single valid expression", hintRephrase},
		{"value_count typo", `df["gender"].value_count()`, "use .value_counts() instead of .value_count()", hintMethod},
		{"groupBy typo", `df.groupBy("gender").size()`, "use .groupby() instead of .groupBy()", hintMethod},
		{"sort_value typo", `df.sort_value("math score")`, "use .sort_values()", hintMethod},
		{"empty", "  ", "No code was generated", hintRephrase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Validate(tc.code, sch)
			require.False(t, res.Valid)
			assert.Equal(t, KindStructurallyInvalidChain, res.Kind)
			assert.Contains(t, res.Reason, tc.reason)
			assert.Equal(t, tc.hint, res.Hint)
		})
	}
}

func TestValidateSemicolonInsideStringIsAllowed(t *testing.T) {
	res := Validate(`df[df["lunch"] == "a;b"].shape[0]`, examSchema(t))
	assert.True(t, res.Valid, res.Reason)
}

func TestValidateRephraseWins(t *testing.T) {
	res := Validate(`df["math score"].mean()`, examSchema(t),
		WithRephrase("Ask which gender has the highest average math score."))
	require.False(t, res.Valid)
	assert.Equal(t, KindRephraseRequired, res.Kind)
	assert.Equal(t, "Ask which gender has the highest average math score.", res.Reason)

	res = Validate(`df["math score"].mean()`, examSchema(t), WithRephrase(""))
	assert.True(t, res.Valid)
}

func TestValidateColumnCheckPrecedesChainCheck(t *testing.T) {
	res := Validate(`df["score"].max().idxmax()`, examSchema(t))
	assert.Equal(t, KindUnresolvedColumn, res.Kind)
}

func TestValidateWithoutSchema(t *testing.T) {
	res := Validate(`df["a"].sum()`, nil)
	assert.Equal(t, KindUnresolvedColumn, res.Kind)
	assert.True(t, Validate(`df.shape[0]`, nil).Valid)
}

func TestResultFault(t *testing.T) {
	res := Validate(`df["nope"].sum()`, examSchema(t))
	f := res.Fault(&Diagnostic{Question: "q", Code: `df["nope"].sum()`})
	require.NotNil(t, f)
	assert.Equal(t, KindUnresolvedColumn, f.Kind)
	assert.Equal(t, res.Reason+" "+hintRephrase, f.Message)
	assert.True(t, strings.HasSuffix(res.Message(), hintRephrase))
	assert.Equal(t, res.Reason, f.Diagnostic.Fault)
	assert.Equal(t, "q", f.Diagnostic.Question)
	assert.True(t, IsKind(f, KindUnresolvedColumn))
	assert.Nil(t, f.Unwrap())
}

func TestResultMessageEndsWithRephraseHint(t *testing.T) {
	sch := examSchema(t)
	for _, code := range []string{``, `df["x"]`, `x = 1`, `df["gender"].value_count()`} {
		msg := Validate(code, sch).Message()
		assert.True(t, strings.HasSuffix(msg, hintRephrase), msg)
		assert.Equal(t, 1, strings.Count(msg, hintRephrase), msg)
	}
	assert.Empty(t, Validate(`df.shape[0]`, sch).Message())
}
