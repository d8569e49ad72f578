// Package session runs question → code → result attempts against one
// loaded dataset at a time.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/spektr-org/cogniview/engine"
	"github.com/spektr-org/cogniview/guard"
	"github.com/spektr-org/cogniview/translator"
)

// State is the stage an Attempt reached.
type State string

const (
	StateSubmitted       State = "submitted"
	StateNormalized      State = "normalized"
	StateRejected        State = "rejected"
	StateValidated       State = "validated"
	StateRendered        State = "rendered"
	StateExecutionFailed State = "execution_failed"
	// StateUnavailable: no completion was obtained (timeout, provider
	// failure or a newer question superseded this one).
	StateUnavailable State = "unavailable"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateRendered, StateExecutionFailed, StateUnavailable:
		return true
	}
	return false
}

// Attempt is one question's trip through the pipeline. Attempts are not
// persisted; a Session keeps only the latest.
type Attempt struct {
	ID             uuid.UUID           `json:"id"`
	Question       string              `json:"question"`
	RawCompletion  string              `json:"rawCompletion,omitempty"`
	NormalizedCode string              `json:"code,omitempty"`
	Repairs        []translator.Repair `json:"repairs,omitempty"`
	Validation     guard.Result        `json:"validation"`
	Result         *engine.Result      `json:"result,omitempty"`
	Fault          *guard.Fault        `json:"fault,omitempty"`
	// Notice is KindEmptyOrMissingResult for empty or NaN answers.
	Notice   guard.Kind    `json:"notice,omitempty"`
	State    State         `json:"state"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the attempt produced a rendered result.
func (a *Attempt) Succeeded() bool {
	return a.State == StateRendered
}

func (a *Attempt) diagnostic(columns []string) *guard.Diagnostic {
	return &guard.Diagnostic{
		Question:      a.Question,
		RawCompletion: a.RawCompletion,
		Code:          a.NormalizedCode,
		Columns:       columns,
	}
}
