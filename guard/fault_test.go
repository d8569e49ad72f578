package guard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spektr-org/cogniview/engine"
)

func TestHintFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"scalar collapse", &engine.EvalError{Kind: engine.KindAttributeError,
			Message: "'float' object has no attribute 'idxmax'; the previous step already produced a single scalar value"}, hintScalarCollapse},
		{"key error", &engine.EvalError{Kind: engine.KindKeyError, Message: "'Math'"}, hintColumn},
		{"attribute error", &engine.EvalError{Kind: engine.KindAttributeError, Message: "'Series' object has no attribute 'foo'"}, hintMethod},
		{"wrapped key error", fmt.Errorf("run: %w", &engine.EvalError{Kind: engine.KindKeyError}), hintColumn},
		{"plain text key error", errors.New("KeyError: 'x'"), hintColumn},
		{"type error", &engine.EvalError{Kind: engine.KindTypeError, Message: "unsupported operand"}, hintRephrase},
		{"nil", nil, hintRephrase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HintFor(tc.err))
		})
	}
}

func TestExecutionFailed(t *testing.T) {
	cause := &engine.EvalError{Kind: engine.KindKeyError, Message: "'Math'"}
	f := ExecutionFailed(cause, &Diagnostic{Question: "q", Code: `df["Math"]`, Columns: []string{"math"}})

	assert.Equal(t, KindExecutionFault, f.Kind)
	assert.Equal(t, "Execution error: KeyError: 'Math'", f.Message)
	assert.Equal(t, hintColumn, f.Hint)
	assert.Equal(t, "KeyError: 'Math'", f.Diagnostic.Fault)
	assert.Equal(t, []string{"math"}, f.Diagnostic.Columns)
	assert.ErrorIs(t, f, error(cause))
	assert.Equal(t, "ExecutionFault: Execution error: KeyError: 'Math'", f.Error())
}

func TestUnavailable(t *testing.T) {
	f := Unavailable(context.DeadlineExceeded, nil)
	assert.Equal(t, KindGenerationUnavailable, f.Kind)
	assert.ErrorIs(t, f, context.DeadlineExceeded)
	assert.Equal(t, hintRetryLater, f.Hint)
	assert.NotNil(t, f.Diagnostic)
	assert.True(t, IsKind(fmt.Errorf("ask: %w", f), KindGenerationUnavailable))
	assert.False(t, IsKind(errors.New("x"), KindGenerationUnavailable))
}

func TestResultKind(t *testing.T) {
	assert.Equal(t, KindEmptyOrMissingResult, ResultKind(engine.ClassEmpty))
	assert.Equal(t, KindEmptyOrMissingResult, ResultKind(engine.ClassMissing))
	assert.Equal(t, Kind(""), ResultKind(engine.ClassScalar))
	assert.Equal(t, Kind(""), ResultKind(engine.ClassTable))
}
