package translator

import (
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
		{Name: "test preparation course", Type: schema.TypeText, Samples: []string{"none", "completed"}},
		{Name: "math score", Type: schema.TypeInteger, Samples: []string{"72", "69"}},
		{Name: "reading score", Type: schema.TypeInteger, Samples: []string{"72", "90"}},
	}, 1000)
	require.NoError(t, err)
	return sch
}

func TestNormalize(t *testing.T) {
	sch := examSchema(t)

	cases := []struct {
		name     string
		raw      string
		question string
		want     string
	}{
		{"already clean", `df["math score"].mean()`, "", `df["math score"].mean()`},
		{"tagged fence", "```python\ndf.reading_score.mean()\n```", "", `df["reading score"].mean()`},
		{"untagged fence", "Sure:\n```\ndf.shape[0]\n```\nDone.", "", `df.shape[0]`},
		{"prose then code with comment", "Here is the code:\ndf.shape[0]  # number of rows", "", `df.shape[0]`},
		{"hash inside a string is kept", `df[df["gender"] == "#1"].shape[0]`, "", `df[df["gender"] == "#1"].shape[0]`},
		{"no code line keeps last line", "The answer is\n42", "", "42"},
		{"attribute access", `df.gender.value_counts()`, "", `df["gender"].value_counts()`},
		{"attribute access inside a string is kept", `df[df["lunch"] == "df.gender"].shape[0]`, "", `df[df["lunch"] == "df.gender"].shape[0]`},
		{"method call is not a column", `df.count()`, "", `df.count()`},
		{"two-key selection", `df["gender", "lunch"]`, "", `df[["gender", "lunch"]]`},
		{"three-key selection", `df["gender", "lunch", "math score"].head()`, "", `df[["gender", "lunch", "math score"]].head()`},
		{"loc argmax", `df["gender"].loc[df["math score"].argmax()]`, "", `df.groupby("gender")["math score"].mean().idxmax()`},
		{"loc argmin", `df.loc[df["reading score"].argmin(), "lunch"]`, "", `df.groupby("lunch")["reading score"].mean().idxmin()`},
		{"smart quotes", "df[df[“gender”] == ‘male’].shape[0]", "", `df[df["gender"] == 'male'].shape[0]`},
		{"stray backslash", `df[\"math score\"].max()`, "", `df["math score"].max()`},
		{
			"nested groupby",
			`df.query("lunch == 'standard'")["gender"].groupby(df.query("lunch == 'standard'")["gender"])`,
			"",
			`df.groupby("gender")["math score"].mean().idxmax()`,
		},
		{"bare snake column", `df[test_preparation_course == "completed"].shape[0]`, "", `df[df["test preparation course"] == "completed"].shape[0]`},
		{"bare snake column already bracketed elsewhere", `df[df["test preparation course"] == "x"]["test_preparation_course"]`, "", `df[df["test preparation course"] == "x"]["test_preparation_course"]`},
		{"value_count typo", `df["gender"].value_count()`, "", `df["gender"].value_counts()`},
		{
			"pinned filter answering a which-question",
			`df[df["lunch"] == "standard"]["reading score"].mean()`,
			"Which lunch type has the highest reading score?",
			`df.groupby("lunch")["reading score"].mean().idxmax()`,
		},
		{
			"pinned filter answering a lowest-question",
			`df[df["lunch"] == "standard"]["reading score"].mean()`,
			"Which lunch type has the lowest reading score?",
			`df.groupby("lunch")["reading score"].mean().idxmin()`,
		},
		{
			"pinned filter answering the question asked",
			`df[df["lunch"] == "standard"]["reading score"].mean()`,
			"What is the average reading score for standard lunch?",
			`df[df["lunch"] == "standard"]["reading score"].mean()`,
		},
		{"empty", "   ", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.raw, sch, WithQuestion(tc.question))
			assert.Equal(t, tc.want, got)
			assert.NotContains(t, got, "\n")

			// Normalizing an already normalized line changes nothing.
			assert.Equal(t, got, Normalize(got, sch, WithQuestion(tc.question)))
		})
	}
}

func TestNormalizeAttributeRewriteForEveryColumn(t *testing.T) {
	sch := examSchema(t)
	for _, c := range sch.Columns {
		raw := "df." + schema.SnakeName(c.Name) + ".nunique()"
		assert.Equal(t, `df["`+c.Name+`"].nunique()`, Normalize(raw, sch), c.Name)
	}
}

func TestNormalizeDetailedRecordsRepairs(t *testing.T) {
	sch := examSchema(t)

	out := NormalizeDetailed(`df["math score"].mean()`, sch)
	assert.Empty(t, out.Repairs)
	assert.Empty(t, out.Rephrase)

	out = NormalizeDetailed("```python\ndf.reading_score.value_count()\n```", sch)
	assert.Equal(t, `df["reading score"].value_counts()`, out.Code)
	rules := make([]Rule, 0, len(out.Repairs))
	for _, r := range out.Repairs {
		rules = append(rules, r.Rule)
		assert.False(t, r.Substituted)
	}
	assert.Equal(t, []Rule{RuleExtractFence, RuleAttributeAccess, RuleValueCountsTypo}, rules)

	out = NormalizeDetailed(`df["gender"].loc[df["math score"].argmax()]`, sch)
	require.NotEmpty(t, out.Repairs)
	last := out.Repairs[len(out.Repairs)-1]
	assert.Equal(t, RuleLocArgmax, last.Rule)
	assert.True(t, last.Substituted)
	assert.Contains(t, last.Note, `df.groupby("gender")`)
}

func TestNormalizeRejectPolicy(t *testing.T) {
	sch := examSchema(t)
	raw := `df["gender"].loc[df["math score"].argmax()]`

	out := NormalizeDetailed(raw, sch, WithPolicy(PolicyReject))
	assert.Equal(t, raw, out.Code)
	assert.Contains(t, out.Rephrase, "which gender has the highest average math score")
	assert.Empty(t, out.Repairs)

	out = NormalizeDetailed(`df[df["lunch"] == "standard"]["reading score"].mean()`, sch,
		WithPolicy(PolicyReject), WithQuestion("Which lunch is best for reading?"))
	assert.NotEmpty(t, out.Rephrase)
}

func TestNormalizeFallbackWithoutTextColumn(t *testing.T) {
	sch, err := schema.New([]schema.ColumnDescriptor{
		{Name: "a", Type: schema.TypeInteger},
		{Name: "b", Type: schema.TypeFloat},
	}, 3)
	require.NoError(t, err)

	raw := `df["a"].loc[df["b"].argmax()]`
	out := NormalizeDetailed(raw, sch)
	assert.Equal(t, raw, out.Code)
	assert.NotEmpty(t, out.Rephrase)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Reject")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySubstitute, p)

	_, err = ParsePolicy("ignore")
	assert.Error(t, err)
}
