// Package guard decides whether generated query code may run and turns
// every failure along the way into a user-facing Fault.
package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spektr-org/cogniview/engine"
)

// ============================================================================
// ERROR TAXONOMY
// ============================================================================

// Kind classifies a failed (or empty) attempt.
type Kind string

const (
	// KindGenerationUnavailable: the completion service failed or timed out.
	KindGenerationUnavailable Kind = "GenerationUnavailable"
	// KindUnresolvedColumn: the code names a column the dataset lacks.
	KindUnresolvedColumn Kind = "UnresolvedColumn"
	// KindStructurallyInvalidChain: the code is not a single well-formed
	// query, or it chains calls that cannot compose.
	KindStructurallyInvalidChain Kind = "StructurallyInvalidChain"
	// KindRephraseRequired: the completion matched a known malformation
	// and substitution is disabled.
	KindRephraseRequired Kind = "RephraseRequired"
	// KindExecutionFault: evaluation raised.
	KindExecutionFault Kind = "ExecutionFault"
	// KindEmptyOrMissingResult: evaluation succeeded with an empty or NaN
	// result. Informational; the attempt still succeeds.
	KindEmptyOrMissingResult Kind = "EmptyOrMissingResult"
)

// ResultKind reports KindEmptyOrMissingResult for empty and missing
// classifications, and "" for everything else.
func ResultKind(class engine.Class) Kind {
	if class == engine.ClassEmpty || class == engine.ClassMissing {
		return KindEmptyOrMissingResult
	}
	return ""
}

// ============================================================================
// DIAGNOSTIC + FAULT
// ============================================================================

// Diagnostic is the debug bundle kept for a failed attempt.
type Diagnostic struct {
	Question      string   `json:"question"`
	RawCompletion string   `json:"rawCompletion,omitempty"`
	Code          string   `json:"code"`
	Columns       []string `json:"columns"`
	Fault         string   `json:"fault"`
}

// Fault is a failure converted for the user: what happened, what to try,
// and the diagnostic bundle.
type Fault struct {
	Kind       Kind        `json:"kind"`
	Message    string      `json:"message"`
	Hint       string      `json:"hint"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
	Err        error       `json:"-"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// IsKind reports whether err is a *Fault of kind k.
func IsKind(err error, k Kind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == k
}

// Unavailable wraps a completion failure.
func Unavailable(err error, diag *Diagnostic) *Fault {
	return &Fault{
		Kind:       KindGenerationUnavailable,
		Message:    "The language model did not respond in time. Please try again in a moment.",
		Hint:       hintRetryLater,
		Diagnostic: withFault(diag, err),
		Err:        err,
	}
}

// ExecutionFailed wraps an evaluation error with heuristic guidance.
func ExecutionFailed(err error, diag *Diagnostic) *Fault {
	return &Fault{
		Kind:       KindExecutionFault,
		Message:    "Execution error: " + err.Error(),
		Hint:       HintFor(err),
		Diagnostic: withFault(diag, err),
		Err:        err,
	}
}

func withFault(diag *Diagnostic, err error) *Diagnostic {
	if diag == nil {
		diag = &Diagnostic{}
	}
	if err != nil {
		diag.Fault = err.Error()
	}
	return diag
}

// ============================================================================
// HINTS
// ============================================================================

const (
	hintScalarCollapse = "idxmax() Error: try asking 'Which category has the highest value?' instead of 'What is the highest value?'"
	hintColumn         = "Column Error: the column name doesn't exist in your dataset."
	hintMethod         = "Method Error: invalid operation. Try using simpler terms."
	hintRephrase       = "Try rephrasing your question or use one of the suggested questions."
	hintRetryLater     = "The question itself is fine; ask it again."
)

// HintFor picks guidance from the text of an execution fault.
func HintFor(err error) string {
	if err == nil {
		return hintRephrase
	}
	msg := strings.ToLower(err.Error())

	var ee *engine.EvalError
	isKind := func(kind string) bool {
		if errors.As(err, &ee) {
			return ee.Kind == kind
		}
		return strings.Contains(msg, strings.ToLower(kind))
	}

	switch {
	case strings.Contains(msg, "idxmax") && (strings.Contains(msg, "scalar") || strings.Contains(msg, "cannot")):
		return hintScalarCollapse
	case isKind(engine.KindKeyError):
		return hintColumn
	case isKind(engine.KindAttributeError):
		return hintMethod
	}
	return hintRephrase
}
