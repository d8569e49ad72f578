package translator

import (
	"fmt"

	"github.com/spektr-org/cogniview/schema"
)

// Suggest proposes starter questions for a dataset, built from its first
// numeric and first text column plus a few dataset-wide questions.
func Suggest(sch *schema.Schema) []string {
	var out []string
	if sch == nil {
		return out
	}
	nums, texts := sch.NumericColumns(), sch.TextColumns()

	if len(nums) > 0 {
		out = append(out,
			fmt.Sprintf("What is the average of %s?", nums[0]),
			fmt.Sprintf("What is the maximum value in %s?", nums[0]),
			fmt.Sprintf("How many rows have %s greater than 50?", nums[0]),
		)
	}
	if len(texts) > 0 {
		out = append(out,
			fmt.Sprintf("Count the number of unique values in %s", texts[0]),
			fmt.Sprintf("What is the most common value in %s?", texts[0]),
		)
	}
	if len(nums) > 0 && len(texts) > 0 {
		out = append(out, fmt.Sprintf("Which %s has the highest average %s?", texts[0], nums[0]))
	}
	return append(out,
		"How many rows are there in total?",
		"Show me the first 3 rows",
		"What columns have missing values?",
	)
}
