package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ============================================================================
// GEMINI COMPLETER — Calls Google Gemini for prompt → raw completion
// ============================================================================
// One synchronous GenerateContent call: no streaming, no tools, no
// multi-turn context. Temperature 0 so the same prompt tends to produce the
// same line. Timeouts and retries live in Reliable, not here.
//
// This is the ONLY file that makes external API calls.
// ============================================================================

// ErrEmptyCompletion is returned when the model produced no text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Gemini implements Completer using the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini creates a Gemini completer. The API key is required.
func NewGemini(ctx context.Context, cfg Config, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY)")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{client: client, model: cfg.Model, logger: logger}, nil
}

// Model returns the configured model id.
func (g *Gemini) Model() string { return g.model }

// Generate sends prompt to the model and returns the concatenated text parts
// of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:    genai.Ptr[float32](0),
		CandidateCount: 1,
	})
	if err != nil {
		g.logger.Warn("gemini request failed",
			zap.String("model", g.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := candidateText(resp)
	g.logger.Debug("gemini completion",
		zap.String("model", g.model),
		zap.Int("chars", len(text)),
		zap.Duration("duration", time.Since(start)))

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// statusCode extracts the HTTP status of a GenAI API error, or 0.
func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
