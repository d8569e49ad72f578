package translator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose view worker starts in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// scripted returns the given results in order, then repeats the last one.
func scripted(calls *atomic.Int32, results ...func(ctx context.Context) (string, error)) Completer {
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(results) {
			i = len(results) - 1
		}
		return results[i](ctx)
	})
}

func succeed(text string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return text, nil }
}

func fail(err error) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return "", err }
}

func hang(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestReliableRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	r := NewReliable(scripted(&calls, fail(ErrEmptyCompletion), succeed(`df.shape[0]`)), WithBackoff(0))

	text, err := r.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `df.shape[0]`, text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestReliableExhaustedIsGenerationUnavailable(t *testing.T) {
	var calls atomic.Int32
	r := NewReliable(scripted(&calls, fail(ErrEmptyCompletion)), WithBackoff(0), WithRetries(2))

	_, err := r.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReliablePermanentFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("invalid API key")
	r := NewReliable(scripted(&calls, fail(boom)), WithBackoff(0))

	_, err := r.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReliableTimeout(t *testing.T) {
	var calls atomic.Int32
	r := NewReliable(scripted(&calls, hang), WithTimeout(10*time.Millisecond), WithBackoff(0))

	start := time.Now()
	_, err := r.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), calls.Load())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestReliableCallerCancellationIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	r := NewReliable(scripted(&calls, hang), WithBackoff(0))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := r.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrGenerationUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), Config{}, nil)
	assert.ErrorContains(t, err, "API key is required")
}
