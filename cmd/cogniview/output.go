package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/spektr-org/cogniview/engine"
	"github.com/spektr-org/cogniview/schema"
	"github.com/spektr-org/cogniview/session"
)

// ============================================================================
// TEXT STYLES
// ============================================================================

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	codeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	answerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	faultStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	hintStyle     = lipgloss.NewStyle().Italic(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ============================================================================
// ATTEMPTS
// ============================================================================

func writeAttempt(w io.Writer, a *session.Attempt, format string) error {
	switch format {
	case "csv":
		return writeAttemptCSV(w, a)
	case "text":
		_, err := fmt.Fprintln(w, renderAttempt(a))
		return err
	}
	return writeJSON(w, a, format)
}

func writeAttempts(w io.Writer, attempts []*session.Attempt, format string) error {
	switch format {
	case "json", "pretty":
		return writeJSON(w, attempts, format)
	case "text":
		blocks := make([]string, len(attempts))
		for i, a := range attempts {
			blocks[i] = renderAttempt(a)
		}
		_, err := fmt.Fprintln(w, strings.Join(blocks, "\n\n"))
		return err
	}

	// csv: one block per question, separated by a blank record
	for i, a := range attempts {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeAttemptCSV(w, a); err != nil {
			return err
		}
	}
	return nil
}

func renderAttempt(a *session.Attempt) string {
	lines := []string{questionStyle.Render("Q: " + a.Question)}
	if a.NormalizedCode != "" {
		lines = append(lines, codeStyle.Render("   "+a.NormalizedCode))
	}
	for _, r := range a.Repairs {
		if r.Substituted {
			lines = append(lines, noticeStyle.Render("   note: "+r.Note))
		}
	}

	if a.Fault != nil {
		lines = append(lines, faultStyle.Render(a.Fault.Message))
		if a.Fault.Hint != "" {
			lines = append(lines, hintStyle.Render(a.Fault.Hint))
		}
		return strings.Join(lines, "\n")
	}
	if a.Notice != "" {
		lines = append(lines, noticeStyle.Render("No matching data."))
	}
	if a.Result != nil {
		lines = append(lines, renderResult(a.Result))
	}
	return strings.Join(lines, "\n")
}

func writeAttemptCSV(w io.Writer, a *session.Attempt) error {
	if a.Fault != nil {
		return writeRecords(w, [][]string{
			{"Error", "Hint"},
			{a.Fault.Message, a.Fault.Hint},
		})
	}
	return writeResultCSV(w, a.Result)
}

// ============================================================================
// RESULTS
// ============================================================================

func writeResult(w io.Writer, res *engine.Result, format string) error {
	switch format {
	case "csv":
		return writeResultCSV(w, res)
	case "text":
		_, err := fmt.Fprintln(w, renderResult(res))
		return err
	}
	return writeJSON(w, res, format)
}

func renderResult(res *engine.Result) string {
	switch {
	case res.TableData != nil:
		out := renderTable(res.TableData)
		if res.TableData.Truncated {
			out += "\n" + noticeStyle.Render(fmt.Sprintf("showing %d of %d rows", len(res.TableData.Rows), res.TableData.TotalRows))
		}
		return out
	case res.Items != nil:
		lines := make([]string, len(res.Items))
		for i, it := range res.Items {
			lines[i] = "  • " + it
		}
		return strings.Join(lines, "\n")
	case res.Reply != "":
		return answerStyle.Render(res.Reply)
	}
	return noticeStyle.Render("No result.")
}

func renderTable(td *engine.TableData) string {
	headers := make([]string, len(td.Columns))
	right := make([]bool, len(td.Columns))
	for i, c := range td.Columns {
		headers[i] = c.Label
		right[i] = c.Align == "right"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(td.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col < len(right) && right[col] {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		})
	return t.String()
}

func writeResultCSV(w io.Writer, res *engine.Result) error {
	if res == nil {
		return writeRecords(w, [][]string{{"Result", "No data"}})
	}
	switch {
	case res.TableData != nil:
		records := make([][]string, 0, len(res.TableData.Rows)+1)
		header := make([]string, len(res.TableData.Columns))
		for i, c := range res.TableData.Columns {
			header[i] = c.Label
		}
		records = append(records, header)
		records = append(records, res.TableData.Rows...)
		return writeRecords(w, records)
	case res.Items != nil:
		records := [][]string{{"Value"}}
		for _, it := range res.Items {
			records = append(records, []string{it})
		}
		return writeRecords(w, records)
	}

	reply := res.Reply
	if reply == "" {
		reply = "No data"
	}
	label := ""
	if res.Data != nil {
		label = res.Data.Label
	}
	return writeRecords(w, [][]string{{"Summary", "Label"}, {reply, label}})
}

// ============================================================================
// SCHEMA + LISTS
// ============================================================================

func writeSchema(w io.Writer, sch *schema.Schema, format string) error {
	switch format {
	case "text":
		rows := make([][]string, len(sch.Columns))
		for i, c := range sch.Columns {
			rows[i] = []string{c.Name, string(c.Type), c.Sample()}
		}
		td := &engine.TableData{
			Columns: []engine.Column{{Label: "column"}, {Label: "type"}, {Label: "sample"}},
			Rows:    rows,
		}
		_, err := fmt.Fprintf(w, "%s\n%d rows × %d columns\n", renderTable(td), sch.Rows, sch.Cols)
		return err
	case "csv":
		records := [][]string{{"column", "type", "sample"}}
		for _, c := range sch.Columns {
			records = append(records, []string{c.Name, string(c.Type), c.Sample()})
		}
		return writeRecords(w, records)
	case "pretty":
		data, err := sch.Marshal(true)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	data, err := sch.Marshal(true)
	if err != nil {
		return err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, compact.String())
	return err
}

func writeList(w io.Writer, header string, items []string, format string) error {
	switch format {
	case "text":
		for i, it := range items {
			if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, it); err != nil {
				return err
			}
		}
		return nil
	case "csv":
		records := [][]string{{header}}
		for _, it := range items {
			records = append(records, []string{it})
		}
		return writeRecords(w, records)
	}
	return writeJSON(w, items, format)
}

// ============================================================================
// ENCODERS
// ============================================================================

func writeJSON(w io.Writer, v any, format string) error {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func writeRecords(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
