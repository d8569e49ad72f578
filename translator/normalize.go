package translator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spektr-org/cogniview/schema"
)

// ============================================================================
// CODE NORMALIZER — Repairs raw completions into one query line
// ============================================================================
// Entry point: Normalize(raw, schema, opts...)
//
// Steps, in order (each idempotent, later steps assume earlier ones ran):
//   1. Trim, extract the first fenced block (language-tagged fence first)
//   2. Pick the first line starting with df / pd. (else the last line)
//   3. Drop a trailing # comment
//   4. df.math_score → df["math score"]
//   5. df["a", "b"] → df[["a", "b"]]
//   6. .loc[ ... argmax() ] → grouped-mean fallback
//   7. Smart quotes → straight, stray backslashes removed
//   8. df.query(..)["X"].groupby(df.query(..)["X"]) → grouped-mean fallback
//   9. bare math_score → df["math score"]
//  10. .value_count( → .value_counts(
//  11. "which/highest/most" question answered with a single-value filter
//      → grouped-mean fallback on the filtered column
//
// Fallbacks are derived from the schema and the offending line. Under
// PolicyReject nothing is substituted and a rephrase request is recorded.
// ============================================================================

// FallbackPolicy decides what happens when a line matches a known
// malformation that has no faithful repair.
type FallbackPolicy string

const (
	// PolicySubstitute replaces the line with a grouped-mean question
	// built from the columns it references and records a Repair.
	PolicySubstitute FallbackPolicy = "substitute"
	// PolicyReject leaves the line alone and asks the user to rephrase.
	PolicyReject FallbackPolicy = "reject"
)

// ParsePolicy accepts "substitute" or "reject" (case-insensitive).
func ParsePolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicySubstitute, PolicyReject:
		return p, nil
	case "":
		return PolicySubstitute, nil
	}
	return "", fmt.Errorf("unknown fallback policy %q (valid: substitute, reject)", s)
}

// Rule names one normalization step.
type Rule string

const (
	RuleExtractFence     Rule = "extract_fence"
	RuleSelectLine       Rule = "select_line"
	RuleStripComment     Rule = "strip_comment"
	RuleAttributeAccess  Rule = "attribute_access"
	RuleMultiColumn      Rule = "multi_column"
	RuleLocArgmax        Rule = "loc_argmax"
	RuleQuotes           Rule = "quotes"
	RuleNestedGroupBy    Rule = "nested_groupby"
	RuleBareColumn       Rule = "bare_column"
	RuleValueCountsTypo  Rule = "value_counts_typo"
	RulePinnedFilterMean Rule = "pinned_filter_mean"
)

// Repair records one change made to the completion.
type Repair struct {
	Rule Rule   `json:"rule"`
	Note string `json:"note"`
	// Substituted is set when the line was replaced by a fallback that
	// may answer a different question than the one asked.
	Substituted bool `json:"substituted,omitempty"`
}

// Normalized is the outcome of NormalizeDetailed.
type Normalized struct {
	Code    string   `json:"code"`
	Repairs []Repair `json:"repairs,omitempty"`
	// Rephrase is non-empty when a known malformation was found and the
	// policy forbids substitution.
	Rephrase string `json:"rephrase,omitempty"`
}

// NormalizeOption configures the normalizer.
type NormalizeOption func(*normalizer)

// WithPolicy sets the fallback policy. The default is PolicySubstitute.
func WithPolicy(p FallbackPolicy) NormalizeOption {
	return func(n *normalizer) {
		if p != "" {
			n.policy = p
		}
	}
}

// WithQuestion supplies the user's question for intent checks (step 11).
func WithQuestion(q string) NormalizeOption {
	return func(n *normalizer) { n.question = q }
}

type normalizer struct {
	schema   *schema.Schema
	policy   FallbackPolicy
	question string
	out      Normalized
}

// Normalize repairs raw completion text into a single query line.
func Normalize(raw string, sch *schema.Schema, opts ...NormalizeOption) string {
	return NormalizeDetailed(raw, sch, opts...).Code
}

// NormalizeDetailed is Normalize with the list of repairs applied and any
// rephrase request.
func NormalizeDetailed(raw string, sch *schema.Schema, opts ...NormalizeOption) Normalized {
	n := &normalizer{schema: sch, policy: PolicySubstitute}
	if n.schema == nil {
		n.schema = &schema.Schema{}
	}
	for _, opt := range opts {
		opt(n)
	}

	code := n.apply(RuleExtractFence, "extracted code from fenced block", extractFence, strings.TrimSpace(raw))
	code = n.apply(RuleSelectLine, "kept the single query line", selectLine, code)
	code = n.apply(RuleStripComment, "removed trailing comment", stripComment, code)
	code = n.apply(RuleAttributeAccess, "rewrote attribute access to bracket access", n.rewriteAttributeAccess, code)
	code = n.apply(RuleMultiColumn, "wrapped multi-column selection in double brackets", wrapMultiColumn, code)
	code = n.locArgmax(code)
	code = n.apply(RuleQuotes, "normalized quotes and backslashes", normalizeQuotes, code)
	code = n.nestedGroupBy(code)
	code = n.apply(RuleBareColumn, "rewrote bare column name to bracket access", n.rewriteBareColumns, code)
	code = n.apply(RuleValueCountsTypo, "fixed .value_count( typo", fixValueCounts, code)
	code = n.pinnedFilterMean(code)

	n.out.Code = code
	return n.out
}

func (n *normalizer) apply(rule Rule, note string, step func(string) string, code string) string {
	out := step(code)
	if out != code && code != "" {
		n.out.Repairs = append(n.out.Repairs, Repair{Rule: rule, Note: note})
	}
	return out
}

// ============================================================================
// STEPS 1–3 — Isolate one line
// ============================================================================

var (
	taggedFence = regexp.MustCompile("(?s)```[A-Za-z][\\w+-]*[ \\t]*\\r?\\n(.*?)```")
	anyFence    = regexp.MustCompile("(?s)```(.*?)```")
)

func extractFence(code string) string {
	if !strings.Contains(code, "```") {
		return code
	}
	if m := taggedFence.FindStringSubmatch(code); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyFence.FindStringSubmatch(code); m != nil {
		return strings.TrimSpace(m[1])
	}
	// Unterminated fence: drop the opening marker and its tag.
	_, rest, _ := strings.Cut(code, "```")
	if i := strings.IndexByte(rest, '\n'); i >= 0 && !strings.HasPrefix(strings.TrimSpace(rest[:i]), "df") {
		rest = rest[i+1:]
	}
	return strings.TrimSpace(rest)
}

func selectLine(code string) string {
	code = strings.ReplaceAll(code, "\\\r\n", "")
	code = strings.ReplaceAll(code, "\\\n", "")

	var last string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if startsWithHandle(line) {
			return line
		}
		last = line
	}
	return last
}

func startsWithHandle(line string) bool {
	if strings.HasPrefix(line, "pd.") {
		return true
	}
	if !strings.HasPrefix(line, "df") {
		return false
	}
	return len(line) == 2 || !isIdentByte(line[2])
}

func stripComment(code string) string {
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
		case c == '#':
			return strings.TrimSpace(code[:i])
		}
	}
	return code
}

// ============================================================================
// STEPS 4, 5, 9 — Column access repairs
// ============================================================================

var attrAccess = regexp.MustCompile(`\bdf\.([A-Za-z_][A-Za-z0-9_]*)`)

func (n *normalizer) rewriteAttributeAccess(code string) string {
	bySnake := make(map[string]string, len(n.schema.Columns))
	for _, c := range n.schema.Columns {
		snake := schema.SnakeName(c.Name)
		if _, dup := bySnake[snake]; !dup {
			bySnake[snake] = c.Name
		}
	}

	spans := stringSpans(code)
	var b strings.Builder
	last := 0
	for _, m := range attrAccess.FindAllStringSubmatchIndex(code, -1) {
		start, end := m[0], m[1]
		name, ok := bySnake[code[m[2]:m[3]]]
		if !ok || inSpans(spans, start) || (end < len(code) && code[end] == '(') {
			continue
		}
		b.WriteString(code[last:start])
		b.WriteString(columnRef(name))
		last = end
	}
	if last == 0 {
		return code
	}
	b.WriteString(code[last:])
	return b.String()
}

var multiColumn = regexp.MustCompile(`\bdf\[\s*((?:"[^"]*"|'[^']*')(?:\s*,\s*(?:"[^"]*"|'[^']*'))+)\s*\]`)

func wrapMultiColumn(code string) string {
	return multiColumn.ReplaceAllString(code, "df[[$1]]")
}

func (n *normalizer) rewriteBareColumns(code string) string {
	for _, c := range n.schema.Columns {
		if !strings.Contains(c.Name, " ") {
			continue
		}
		snake := schema.SnakeName(c.Name)
		if !strings.Contains(code, snake) {
			continue
		}
		ref := columnRef(c.Name)
		if strings.Contains(code, ref) || strings.Contains(code, "df['"+c.Name+"']") {
			continue
		}
		code = replaceBareToken(code, snake, ref)
	}
	return code
}

// replaceBareToken replaces whole-word occurrences of token that sit outside
// string literals and are not attribute names.
func replaceBareToken(code, token, with string) string {
	spans := stringSpans(code)
	var b strings.Builder
	last := 0
	for i := 0; ; {
		j := strings.Index(code[i:], token)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(token)
		i = end
		if start > 0 && (isIdentByte(code[start-1]) || code[start-1] == '.') {
			continue
		}
		if end < len(code) && isIdentByte(code[end]) {
			continue
		}
		if inSpans(spans, start) {
			continue
		}
		b.WriteString(code[last:start])
		b.WriteString(with)
		last = end
	}
	if last == 0 {
		return code
	}
	b.WriteString(code[last:])
	return b.String()
}

// ============================================================================
// STEPS 7, 10 — Character and typo fixes
// ============================================================================

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'", "‚", "'",
	"\\\n", "",
	"\\", "",
)

func normalizeQuotes(code string) string {
	return quoteReplacer.Replace(code)
}

func fixValueCounts(code string) string {
	return strings.ReplaceAll(code, ".value_count(", ".value_counts(")
}

// ============================================================================
// STEPS 6, 8, 11 — Known malformations with no faithful repair
// ============================================================================

var (
	argExtremum   = regexp.MustCompile(`\.arg(max|min)\(\)`)
	nestedGroupBy = regexp.MustCompile(`df\.query\([^)]+\)\[\s*["']([^"']+)["']\s*\]\.groupby\(\s*df\.query\([^)]+\)\[\s*["']([^"']+)["']\s*\]\s*\)`)
	pinnedFilter  = regexp.MustCompile(`^df\[\s*df\[\s*["']([^"']+)["']\s*\]\s*==\s*(?:"[^"]*"|'[^']*')\s*\]\[\s*["']([^"']+)["']\s*\]\.mean\(\)$`)
	askForMost    = regexp.MustCompile(`(?i)\b(which|highest|most|best|top|lowest|least|worst)\b`)
	askForLeast   = regexp.MustCompile(`(?i)\b(lowest|least|worst)\b`)
	quotedString  = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)
)

func (n *normalizer) locArgmax(code string) string {
	if !strings.Contains(code, ".loc[") {
		return code
	}
	m := argExtremum.FindStringSubmatch(code)
	if m == nil {
		return code
	}
	return n.fallback(RuleLocArgmax, code, "", "idx"+m[1],
		"a positional argmax/argmin inside .loc[...] mixes positions with labels")
}

func (n *normalizer) nestedGroupBy(code string) string {
	m := nestedGroupBy.FindStringSubmatch(code)
	if m == nil {
		return code
	}
	return n.fallback(RuleNestedGroupBy, code, m[1], "idxmax",
		"a filtered column cannot be grouped by itself")
}

func (n *normalizer) pinnedFilterMean(code string) string {
	m := pinnedFilter.FindStringSubmatch(code)
	if m == nil || !askForMost.MatchString(n.question) {
		return code
	}
	key, value := m[1], m[2]
	if !n.isText(key) || !n.isNumeric(value) {
		return code
	}
	extremum := "idxmax"
	if askForLeast.MatchString(n.question) {
		extremum = "idxmin"
	}
	return n.fallback(RulePinnedFilterMean, code, key, extremum,
		fmt.Sprintf("the code averages %q for one %q value but the question compares groups", value, key))
}

// fallback builds df.groupby("<text>")["<numeric>"].mean().<extremum>() from
// the columns the offending line references, falling back to the first text
// and numeric columns of the schema.
func (n *normalizer) fallback(rule Rule, code, key, extremum, why string) string {
	text, num := "", ""
	if n.isText(key) {
		text = key
	}
	for _, m := range quotedString.FindAllStringSubmatch(code, -1) {
		name := m[1] + m[2]
		switch {
		case text == "" && n.isText(name):
			text = name
		case num == "" && n.isNumeric(name):
			num = name
		}
	}
	if text == "" {
		if cols := n.schema.TextColumns(); len(cols) > 0 {
			text = cols[0]
		}
	}
	if num == "" {
		if cols := n.schema.NumericColumns(); len(cols) > 0 {
			num = cols[0]
		}
	}

	if text == "" || num == "" {
		n.out.Rephrase = fmt.Sprintf("The generated code could not be repaired: %s. Try asking a more specific question.", why)
		return code
	}

	replacement := fmt.Sprintf("df.groupby(%s)[%s].mean().%s()", strconv.Quote(text), strconv.Quote(num), extremum)
	if n.policy == PolicyReject {
		n.out.Rephrase = fmt.Sprintf("The generated code could not be trusted: %s. Try asking which %s has the highest average %s.", why, text, num)
		return code
	}

	n.out.Repairs = append(n.out.Repairs, Repair{
		Rule:        rule,
		Note:        fmt.Sprintf("%s; answered as `%s` instead", why, replacement),
		Substituted: true,
	})
	return replacement
}

func (n *normalizer) isText(name string) bool {
	c, ok := n.schema.Column(name)
	return ok && c.Type == schema.TypeText
}

func (n *normalizer) isNumeric(name string) bool {
	c, ok := n.schema.Column(name)
	return ok && c.Type.Numeric()
}

// ============================================================================
// HELPERS
// ============================================================================

func columnRef(name string) string {
	return "df[" + strconv.Quote(name) + "]"
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// stringSpans returns the [start, end) byte ranges of quoted literals.
func stringSpans(code string) [][2]int {
	var spans [][2]int
	var quote byte
	start := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				spans = append(spans, [2]int{start, i + 1})
				quote = 0
			}
		case c == '"' || c == '\'':
			quote, start = c, i
		}
	}
	if quote != 0 {
		spans = append(spans, [2]int{start, len(code)})
	}
	return spans
}

func inSpans(spans [][2]int, pos int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}
