package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// RELIABLE COMPLETER — Per-call timeout + bounded retry
// ============================================================================
// The completion service may hang, rate-limit or return nothing. Reliable
// bounds every call with a timeout and retries transient failures a fixed
// number of times. When the budget is exhausted the error wraps
// ErrGenerationUnavailable so callers can tell it apart from validation and
// execution faults. A cancelled caller context is never retried.
// ============================================================================

// ErrGenerationUnavailable marks a completion that could not be obtained.
var ErrGenerationUnavailable = errors.New("generation unavailable")

// Reliable wraps a Completer with a timeout and retries.
type Reliable struct {
	next    Completer
	timeout time.Duration
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// ReliableOption configures a Reliable completer.
type ReliableOption func(*Reliable)

// WithTimeout sets the per-call timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) ReliableOption {
	return func(r *Reliable) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) ReliableOption {
	return func(r *Reliable) {
		if n >= 0 {
			r.retries = n
		}
	}
}

// WithBackoff sets the pause between attempts.
func WithBackoff(d time.Duration) ReliableOption {
	return func(r *Reliable) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

// WithCompletionLogger attaches a logger. A nil logger is ignored.
func WithCompletionLogger(l *zap.Logger) ReliableOption {
	return func(r *Reliable) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReliable wraps next. Defaults: 45s timeout, one retry, 500ms backoff.
func NewReliable(next Completer, opts ...ReliableOption) *Reliable {
	r := &Reliable{
		next:    next,
		timeout: DefaultTimeout,
		retries: 1,
		backoff: 500 * time.Millisecond,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate calls the wrapped completer, retrying transient failures.
func (r *Reliable) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		text, err := r.once(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		if !transient(err) {
			break
		}
		r.logger.Warn("completion attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.retries+1),
			zap.Error(err))
	}
	return "", fmt.Errorf("%w: %w", ErrGenerationUnavailable, lastErr)
}

func (r *Reliable) once(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.next.Generate(callCtx, prompt)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return text, err
}

// transient reports whether another attempt could succeed.
func transient(err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, ErrEmptyCompletion):
		return true
	}
	code := statusCode(err)
	return code == 429 || code >= 500
}
