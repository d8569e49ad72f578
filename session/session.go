package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spektr-org/cogniview/engine"
	"github.com/spektr-org/cogniview/guard"
	"github.com/spektr-org/cogniview/helpers"
	"github.com/spektr-org/cogniview/schema"
	"github.com/spektr-org/cogniview/translator"
)

// ============================================================================
// SESSION — Explicit per-session context + attempt orchestration
// ============================================================================
// Entry point: Session.Ask(ctx, question)
//
// Pipeline per attempt:
//   1. BuildPrompt(schema, question)          → Submitted
//   2. Completer.Generate                      → Unavailable on failure
//   3. NormalizeDetailed(raw, schema)          → Normalized
//   4. guard.Validate(code, schema)            → Rejected | Validated
//   5. engine.Execute(code, frame)             → ExecutionFailed | Rendered
//
// One attempt runs at a time. A new Ask (or a new dataset) cancels the
// attempt in flight; the superseded attempt never renders a result.
// ============================================================================

// ErrNoDataset is returned by Ask before any dataset is loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// PreviewRows is the number of rows returned by Preview.
const PreviewRows = 5

const cancelledMessage = "The question was cancelled before an answer was produced."

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolicy sets the normalizer fallback policy.
func WithPolicy(p translator.FallbackPolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithSampleRows sets how many sample values the schema keeps per column.
func WithSampleRows(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.sampleRows = n
		}
	}
}

// WithRender sets the executor's table row cap and float precision.
func WithRender(maxRows, precision int) Option {
	return func(s *Session) {
		s.maxRows = maxRows
		s.precision = precision
	}
}

// Session holds one user's dataset, schema and latest attempt.
type Session struct {
	id        uuid.UUID
	completer translator.Completer
	logger    *zap.Logger

	policy     translator.FallbackPolicy
	sampleRows int
	maxRows    int
	precision  int

	mu     sync.Mutex
	frame  *engine.Frame
	schema *schema.Schema
	cancel context.CancelFunc
	seq    uint64
	last   *Attempt
}

// New creates a Session that asks completer for code.
func New(completer translator.Completer, opts ...Option) *Session {
	s := &Session{
		id:         uuid.New(),
		completer:  completer,
		logger:     zap.NewNop(),
		policy:     translator.PolicySubstitute,
		sampleRows: schema.DefaultSampleRows,
		maxRows:    500,
		precision:  2,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id.String()))
	return s
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// ============================================================================
// DATASET
// ============================================================================

// Load replaces the dataset. The prior schema and latest attempt are
// discarded and any attempt in flight is cancelled.
func (s *Session) Load(frame *engine.Frame) error {
	if frame == nil {
		return fmt.Errorf("load dataset: %w", ErrNoDataset)
	}
	sch, err := schema.FromFrame(frame, s.sampleRows)
	if err != nil {
		return fmt.Errorf("derive schema: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.seq++
	s.frame = frame
	s.schema = sch
	s.last = nil
	s.logger.Info("dataset loaded", zap.Int("rows", sch.Rows), zap.Int("cols", sch.Cols))
	return nil
}

// LoadCSV parses data and loads it.
func (s *Session) LoadCSV(data []byte) error {
	frame, err := helpers.ParseCSV(data)
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}
	return s.Load(frame)
}

// Schema returns the active schema, or nil before Load.
func (s *Session) Schema() *schema.Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}

// Frame returns the active dataset, or nil before Load.
func (s *Session) Frame() *engine.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Last returns the most recent finished attempt, or nil.
func (s *Session) Last() *Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Preview renders the first PreviewRows rows of the dataset.
func (s *Session) Preview() (*engine.Result, error) {
	frame := s.Frame()
	if frame == nil {
		return nil, ErrNoDataset
	}
	return engine.Classify(frame.Head(PreviewRows), "", s.engineOptions()...), nil
}

// Suggestions returns starter questions for the active schema.
func (s *Session) Suggestions() []string {
	return translator.Suggest(s.Schema())
}

// Cancel stops the attempt in flight, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Session) cancelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// ============================================================================
// ASK
// ============================================================================

// Ask runs question through the pipeline. Every outcome, including
// rejection and faults, is reported on the returned Attempt; the error is
// non-nil only when no attempt could start.
func (s *Session) Ask(ctx context.Context, question string) (*Attempt, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is empty")
	}
	if s.completer == nil {
		return nil, errors.New("no completer configured")
	}

	s.mu.Lock()
	if s.frame == nil {
		s.mu.Unlock()
		return nil, ErrNoDataset
	}
	s.cancelLocked()
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.seq++
	seq := s.seq
	frame, sch := s.frame, s.schema
	s.mu.Unlock()
	defer cancel()

	a := &Attempt{ID: uuid.New(), Question: question, State: StateSubmitted}
	log := s.logger.With(zap.String("attempt", a.ID.String()))
	start := time.Now()

	s.run(ctx, a, frame, sch, log)
	a.Duration = time.Since(start)

	s.mu.Lock()
	if s.seq == seq {
		s.cancel = nil
		s.last = a
	}
	s.mu.Unlock()

	log.Info("attempt finished",
		zap.String("state", string(a.State)),
		zap.String("code", a.NormalizedCode),
		zap.Duration("duration", a.Duration))
	return a, nil
}

func (s *Session) run(ctx context.Context, a *Attempt, frame *engine.Frame, sch *schema.Schema, log *zap.Logger) {
	columns := sch.Names()

	// 1–2. Completion
	raw, err := s.completer.Generate(ctx, translator.BuildPrompt(sch, a.Question))
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		a.State = StateUnavailable
		a.Fault = guard.Unavailable(err, a.diagnostic(columns))
		if errors.Is(err, context.Canceled) {
			a.Fault.Message = cancelledMessage
		}
		log.Warn("completion unavailable", zap.String("stage", "generate"), zap.Error(err))
		return
	}
	a.RawCompletion = raw

	// 3. Normalize
	norm := translator.NormalizeDetailed(raw, sch,
		translator.WithPolicy(s.policy),
		translator.WithQuestion(a.Question))
	a.NormalizedCode = norm.Code
	a.Repairs = norm.Repairs
	a.State = StateNormalized
	for _, r := range norm.Repairs {
		log.Debug("repair applied", zap.String("stage", "normalize"), zap.String("rule", string(r.Rule)), zap.Bool("substituted", r.Substituted))
	}

	// 4. Validate
	a.Validation = guard.Validate(norm.Code, sch, guard.WithRephrase(norm.Rephrase))
	if !a.Validation.Valid {
		a.State = StateRejected
		a.Fault = a.Validation.Fault(a.diagnostic(columns))
		log.Info("code rejected", zap.String("stage", "validate"), zap.String("kind", string(a.Validation.Kind)), zap.String("code", norm.Code))
		return
	}
	a.State = StateValidated

	// 5. Execute
	if err := ctx.Err(); err != nil {
		a.State = StateExecutionFailed
		a.Fault = guard.ExecutionFailed(err, a.diagnostic(columns))
		a.Fault.Message = cancelledMessage
		return
	}
	res, err := engine.Execute(norm.Code, frame, s.engineOptions(engine.WithLogger(log))...)
	if err != nil {
		a.State = StateExecutionFailed
		a.Fault = guard.ExecutionFailed(err, a.diagnostic(columns))
		log.Info("execution failed", zap.String("stage", "execute"), zap.Error(err))
		return
	}
	if ctx.Err() != nil {
		a.State = StateExecutionFailed
		a.Fault = guard.ExecutionFailed(ctx.Err(), a.diagnostic(columns))
		a.Fault.Message = cancelledMessage
		return
	}
	a.Result = res
	a.Notice = guard.ResultKind(res.Class)
	a.State = StateRendered
}

func (s *Session) engineOptions(extra ...engine.Option) []engine.Option {
	return append([]engine.Option{
		engine.WithMaxRows(s.maxRows),
		engine.WithPrecision(s.precision),
	}, extra...)
}
