package translator

import (
	"context"
	"time"
)

// ============================================================================
// TRANSLATOR — AI boundary for natural language → one line of query code
// ============================================================================
// The Completer is the ONLY component that calls an external AI service.
// It receives a prompt built from schema metadata + the user question.
// It NEVER sees raw data. Only column names, types and sample values.
//
// Everything after the completion (Normalize, validation, execution) is
// local and deterministic.
// ============================================================================

// Completer turns a prompt into raw completion text.
// Implementations: Gemini, Reliable (timeout + retry wrapper), test fakes.
type Completer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f CompleterFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash-lite"

// DefaultTimeout bounds one completion call.
const DefaultTimeout = 45 * time.Second

// Config holds translator configuration.
type Config struct {
	APIKey  string        // AI provider API key (consumer's key)
	Model   string        // Model name (e.g., "gemini-2.5-flash-lite")
	BaseURL string        // API endpoint override (empty = SDK default)
	Timeout time.Duration // per-call timeout (0 = DefaultTimeout)
	Retries int           // retries after the first attempt on transient failure
}

// DefaultGeminiConfig returns a Config with sensible Gemini defaults.
func DefaultGeminiConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   DefaultModel,
		Timeout: DefaultTimeout,
		Retries: 1,
	}
}
