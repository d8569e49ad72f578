package engine

import (
	"errors"
	"fmt"
)

// ErrEmptyCode is returned when Execute is given blank code.
var ErrEmptyCode = errors.New("no code to execute")

// EvalError is a fault raised while evaluating a query expression.
// Kind uses the exception names analysts already know from notebooks
// (KeyError, AttributeError, ...), so downstream hints can match on them.
type EvalError struct {
	Kind    string
	Message string
}

func (e *EvalError) Error() string {
	if e.Message == "" {
		return e.Kind
	}
	return e.Kind + ": " + e.Message
}

const (
	KindKeyError       = "KeyError"
	KindAttributeError = "AttributeError"
	KindTypeError      = "TypeError"
	KindValueError     = "ValueError"
	KindNameError      = "NameError"
	KindSyntaxError    = "SyntaxError"
	KindIndexError     = "IndexError"
	KindZeroDivision   = "ZeroDivisionError"
)

func keyErrorf(format string, args ...any) error {
	return &EvalError{Kind: KindKeyError, Message: fmt.Sprintf(format, args...)}
}

func attrErrorf(format string, args ...any) error {
	return &EvalError{Kind: KindAttributeError, Message: fmt.Sprintf(format, args...)}
}

func typeErrorf(format string, args ...any) error {
	return &EvalError{Kind: KindTypeError, Message: fmt.Sprintf(format, args...)}
}

func valueErrorf(format string, args ...any) error {
	return &EvalError{Kind: KindValueError, Message: fmt.Sprintf(format, args...)}
}

func zeroDivisionErrorf(format string, args ...any) error {
	return &EvalError{Kind: KindZeroDivision, Message: fmt.Sprintf(format, args...)}
}

func indexErrorf(format string, args ...any) error {
	return &EvalError{Kind: KindIndexError, Message: fmt.Sprintf(format, args...)}
}
