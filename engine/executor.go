package engine

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// EXECUTOR — Evaluate + Classify
// ============================================================================
// Entry point: Execute(code, frame, opts...)
//
// Pipeline:
//   1. Parse the single-line expression
//   2. Evaluate it with only df and pd bound
//   3. Classify the value into exactly one Class
//   4. Build the render payload (table / text / list)
//
// This function never calls an AI service and never mutates the frame.
// ============================================================================

// Execute evaluates code against frame and returns a render-ready Result.
// Evaluation faults are returned as *EvalError.
//
// Options:
//   - WithMaxRows(n) — truncates table payloads after n rows
//   - WithPrecision(p) — decimal places for rendered floats
//   - WithLogger(l) — debug logging of code, class and duration
func Execute(code string, frame *Frame, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	start := time.Now()

	value, err := Evaluate(code, frame)
	if err != nil {
		cfg.logger.Debug("evaluation failed",
			zap.String("code", code),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	res := classify(value, strings.TrimSpace(code), cfg)
	cfg.logger.Debug("evaluation complete",
		zap.String("code", code),
		zap.String("class", string(res.Class)),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

// Classify maps an evaluated value to its render class and payload.
// code is the expression that produced value; a string result that merely
// echoes it is treated as empty.
func Classify(value any, code string, opts ...Option) *Result {
	return classify(value, strings.TrimSpace(code), applyOptions(opts))
}

func classify(value any, code string, cfg *config) *Result {
	res := &Result{Success: true, Value: value}

	switch v := value.(type) {
	case *Frame:
		if v.Len() == 0 || v.Width() == 0 {
			return emptyResult(res)
		}
		res.Class, res.Type = ClassTable, "table"
		res.TableData = frameTable(v, cfg)
		res.Reply = tableReply(res.TableData)

	case *Series:
		switch v.Len() {
		case 0:
			return emptyResult(res)
		case 1:
			res.Class, res.Type = ClassSingleValue, "text"
			res.Data = singleValueText(v, cfg)
			res.Reply = res.Data.Value
		default:
			res.Class, res.Type = ClassTable, "table"
			res.TableData = seriesTable(v, cfg)
			res.Reply = tableReply(res.TableData)
		}

	case []any:
		return listResult(res, v, cfg)
	case tuple:
		return listResult(res, v, cfg)

	case string:
		if v == code {
			return emptyResult(res)
		}
		res.Class, res.Type = ClassScalar, "text"
		res.Data = scalarText(v, cfg)
		res.Reply = res.Data.Value

	default:
		if IsMissing(value) {
			res.Class, res.Type = ClassMissing, "text"
			res.Reply = "No valid result: the answer is missing (NaN)."
			return res
		}
		res.Class, res.Type = ClassScalar, "text"
		res.Data = scalarText(value, cfg)
		res.Reply = res.Data.Value
	}
	return res
}

func emptyResult(res *Result) *Result {
	res.Class, res.Type = ClassEmpty, "text"
	res.Reply = "No results found for this question."
	return res
}

func listResult(res *Result, items []any, cfg *config) *Result {
	if len(items) == 0 {
		return emptyResult(res)
	}
	res.Class, res.Type = ClassList, "list"
	res.Items = make([]string, len(items))
	for i, it := range items {
		res.Items[i] = renderCell(it, cfg.precision)
	}
	res.Reply = fmt.Sprintf("%s item(s): %s", FormatInt(int64(len(items))), strings.Join(res.Items, ", "))
	return res
}
