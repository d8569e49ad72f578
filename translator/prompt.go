package translator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spektr-org/cogniview/schema"
)

// ============================================================================
// PROMPT BUILDER — Schema-driven instruction for one line of query code
// ============================================================================
// Sections, in order:
//   - Role: exactly one line of query code, nothing else
//   - Access rule: bracket access only, names may contain spaces
//   - Numbered rules: grouping idioms, quoting, banned chains
//   - Fixed GOOD / BAD example lines
//   - Examples built from this dataset's own columns
//   - METADATA: JSON array of {Column, Type, Sample}
//   - QUESTION and the closing one-line instruction
//
// The model sees column names, types and a handful of sample values.
// It never sees the data itself. The output is deterministic for a given
// schema and question.
// ============================================================================

// BuildPrompt generates the complete instruction sent to the model.
func BuildPrompt(sch *schema.Schema, question string) string {
	var b strings.Builder

	// ── Role ──────────────────────────────────────────────────────────────
	b.WriteString(`You are an expert data analyst. Your ONLY job is to return ONE LINE of valid Python Pandas code.

You will be given:
- METADATA: a description of the DataFrame df (column names, data types, sample values)
- QUESTION: a natural language question from the user

`)

	// ── Access rule ───────────────────────────────────────────────────────
	b.WriteString(`IMPORTANT RULE:
ALWAYS access columns with square brackets: df["reading score"]
NEVER use dot-style like df.reading_score. It breaks when a column name has spaces.

`)

	// ── Rules / examples / metadata ───────────────────────────────────────
	b.WriteString(rulesSection)
	b.WriteString(examplesSection)
	b.WriteString(datasetExamples(sch))
	b.WriteString(metadataSection(sch))

	// ── Question ──────────────────────────────────────────────────────────
	fmt.Fprintf(&b, "QUESTION:\n%s\n\n", strings.TrimSpace(question))
	b.WriteString("Respond with ONLY one line of valid Python Pandas code.\n")

	return b.String()
}

// ============================================================================
// SECTION BUILDERS
// ============================================================================

const rulesSection = `STRICT RULES:
1. Use ONLY column names from METADATA.
2. Always access columns using square brackets: df["column name"]
3. NEVER use dot-access like df.reading_score.
4. Return ONLY one line of code. No explanation, no markdown, no comments.
5. Always use the DataFrame name: df
6. Use double quotes for string values: "value"
7. Use df.query("...") or a boolean mask df[df["column"] == "value"] for filters.
8. For group comparisons like "Which group has the highest average X?", use:
   df.groupby("group_column")["numeric_column"].mean().idxmax()
9. When using groupby, apply .mean() only to numeric columns.
10. NEVER use .loc[...] with .argmax() or .argmin(). Use groupby().mean().idxmax() instead.
11. NEVER make up snake_case variable names like test_preparation_course.
    Always use the exact column name from METADATA with quotes: df["test preparation course"]
12. To count a specific value like "male", use:
    df["column"].value_counts()["value"]
13. For a filtered group comparison like "Which gender has the highest score among X?", use:
    df[df["filter_column"] == "value"].groupby("group_column")["numeric_column"].mean().idxmax()
14. To get the most common value in a column, use:
    df["column"].value_counts().idxmax()
15. NEVER chain .idxmax() with .max(), or .idxmin() with .min(), in either order.
16. NEVER assign, import, define functions, or write more than one statement.

`

const examplesSection = `GOOD EXAMPLES:
df.shape[0]
df["math score"].mean()
df[df["gender"] == "female"].shape[0]
df.query("lunch == 'standard'")["reading score"].mean()
df.groupby("lunch")["reading score"].mean().idxmax()
df[df["test preparation course"] == "completed"].shape[0]
df["gender"].value_counts()["male"]
df[df["lunch"] == "standard"].groupby("gender")["reading score"].mean().idxmax()
df.groupby(["gender", "lunch"])["math score"].mean()
df["gender"].value_counts().idxmax()

BAD EXAMPLES:
df.reading_score.mean()
df.gender.value_counts()
df["gender"].loc[df["math score"].argmax()]
df[test_preparation_course]
df[test_preparation_course == "completed"]
df["math score"].max().idxmax()
df.query("lunch == 'standard'")["reading score"].idxmax()

`

// datasetExamples adds a few GOOD lines built from this dataset's columns so
// the model sees its own names in the expected idioms.
func datasetExamples(sch *schema.Schema) string {
	if sch == nil {
		return ""
	}
	texts, nums := sch.TextColumns(), sch.NumericColumns()
	if len(texts) == 0 && len(nums) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("EXAMPLES FOR THIS DATASET:\n")
	if len(nums) > 0 {
		fmt.Fprintf(&b, "df[%s].mean()\n", strconv.Quote(nums[0]))
	}
	if len(texts) > 0 {
		fmt.Fprintf(&b, "df[%s].value_counts()\n", strconv.Quote(texts[0]))
	}
	if len(texts) > 0 && len(nums) > 0 {
		fmt.Fprintf(&b, "df.groupby(%s)[%s].mean().idxmax()\n", strconv.Quote(texts[0]), strconv.Quote(nums[0]))
		if c, ok := sch.Column(texts[0]); ok && len(c.Samples) > 0 {
			fmt.Fprintf(&b, "df[df[%s] == %s][%s].mean()\n",
				strconv.Quote(texts[0]), strconv.Quote(c.Samples[0]), strconv.Quote(nums[0]))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// promptColumn is the serialized form of one column in METADATA.
type promptColumn struct {
	Column string `json:"Column"`
	Type   string `json:"Type"`
	Sample string `json:"Sample"`
}

func metadataSection(sch *schema.Schema) string {
	cols := []promptColumn{}
	if sch != nil {
		for _, c := range sch.Columns {
			cols = append(cols, promptColumn{Column: c.Name, Type: string(c.Type), Sample: c.Sample()})
		}
	}
	// Marshalling plain strings cannot fail.
	data, _ := json.MarshalIndent(cols, "", "  ")
	return fmt.Sprintf("METADATA:\n%s\n\n", data)
}
