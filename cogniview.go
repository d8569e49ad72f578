// Package cogniview answers natural-language questions about a tabular
// dataset without letting a language model run arbitrary code.
//
// Usage:
//
//	import "github.com/spektr-org/cogniview/session"
//
//	s := session.New(completer, session.WithLogger(logger))
//	if err := s.LoadCSV(data); err != nil { ... }
//	attempt, err := s.Ask(ctx, "Which gender has the highest math score?")
//
// The model receives only column names, types and a few sample values and
// returns one line of dataframe code. That line is repaired (translator),
// checked against the schema (guard) and evaluated by a small interpreter
// that binds nothing but df and pd (engine). The dataset never leaves the
// process.
package cogniview
