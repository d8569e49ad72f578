package helpers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spektr-org/cogniview/engine"
)

// ============================================================================
// CSV HELPER — Parses CSV bytes into a typed engine.Frame
// ============================================================================
// Consumer reads the CSV from wherever it lives (file, upload, S3).
// This helper converts the raw bytes into typed columns:
//   1. Header row → column names (blank → "Unnamed: i", duplicates → "a.1")
//   2. Missing markers → nil
//   3. Per column: bool / integer / float / text, 80% of present cells must
//      conform; cells that do not conform become missing
// ============================================================================

// typeThreshold is the share of present cells that must parse for a column
// to take a non-text type.
const typeThreshold = 0.8

var missingMarkers = map[string]bool{
	"":     true,
	"null": true,
	"NULL": true,
	"N/A":  true,
	"n/a":  true,
	"NaN":  true,
	"nan":  true,
}

// ParseCSV parses CSV bytes into a Frame. The first record is the header.
// Short rows are padded with missing cells; malformed rows are skipped.
func ParseCSV(data []byte) (*engine.Frame, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	reader.FieldsPerRecord = -1

	// Read header
	headers, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("CSV is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	names := columnNames(headers)

	cells := make([][]string, len(names))
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" && len(names) > 1 {
			continue // blank line
		}
		for i := range names {
			val := ""
			if i < len(row) {
				val = strings.TrimSpace(row[i])
			}
			cells[i] = append(cells[i], val)
		}
	}

	columns := make([]*engine.Series, len(names))
	for i, name := range names {
		kind, values := convertColumn(cells[i])
		columns[i] = engine.NewTypedSeries(name, kind, values)
	}
	frame, err := engine.NewFrame(columns...)
	if err != nil {
		return nil, fmt.Errorf("failed to build frame: %w", err)
	}
	return frame, nil
}

// columnNames cleans the header row the way analysts expect from a CSV
// reader: blank names become "Unnamed: i", repeats get ".1", ".2" suffixes.
func columnNames(headers []string) []string {
	names := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		names[i] = name
	}
	return names
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// convertColumn detects the column type and converts every cell to it.
func convertColumn(raw []string) (engine.Kind, []any) {
	present := 0
	boolCount, intCount, floatCount := 0, 0, 0
	for _, v := range raw {
		if missingMarkers[v] {
			continue
		}
		present++
		if _, ok := parseBool(v); ok {
			boolCount++
		}
		if _, ok := parseInt(v); ok {
			intCount++
		}
		if _, ok := parseFloat(v); ok {
			floatCount++
		}
	}

	values := make([]any, len(raw))
	if present == 0 {
		return engine.KindFloat, values
	}

	threshold := int(float64(present) * typeThreshold)
	if threshold < 1 {
		threshold = 1
	}

	switch {
	case boolCount >= threshold:
		for i, v := range raw {
			if b, ok := parseBool(v); ok {
				values[i] = b
			}
		}
		return engine.KindBool, values

	case intCount >= threshold && intCount == floatCount:
		for i, v := range raw {
			if n, ok := parseInt(v); ok {
				values[i] = n
			}
		}
		return engine.KindInt, values

	case floatCount >= threshold:
		for i, v := range raw {
			if f, ok := parseFloat(v); ok {
				values[i] = f
			}
		}
		return engine.KindFloat, values
	}

	for i, v := range raw {
		if !missingMarkers[v] {
			values[i] = v
		}
	}
	return engine.KindString, values
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func parseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(cleanNumber(s), 10, 64)
	return n, err == nil
}

func parseFloat(s string) (float64, bool) {
	if missingMarkers[s] {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleanNumber(s), 64)
	return f, err == nil
}

// cleanNumber strips thousands separators and a leading currency symbol:
// "$1,234.56" → "1234.56".
func cleanNumber(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	for _, sym := range []string{"$", "€", "£"} {
		s = strings.TrimPrefix(s, sym)
	}
	if strings.Contains(s, ",") && !strings.HasPrefix(s, ",") {
		s = strings.ReplaceAll(s, ",", "")
	}
	if neg {
		s = "-" + s
	}
	return s
}
