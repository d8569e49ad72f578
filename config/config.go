// Package config loads cogniview settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spektr-org/cogniview/schema"
	"github.com/spektr-org/cogniview/translator"
)

// Config holds all cogniview configuration.
type Config struct {
	// Completion service
	LLM LLMConfig `yaml:"llm"`

	// Schema discovery
	Schema SchemaConfig `yaml:"schema"`

	// Code normalizer
	Normalizer NormalizerConfig `yaml:"normalizer"`

	// Result rendering
	Render RenderConfig `yaml:"render"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the completion client.
type LLMConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Timeout string `yaml:"timeout"` // per call, e.g. "45s"
	Retries int    `yaml:"retries"`
}

// SchemaConfig configures schema discovery.
type SchemaConfig struct {
	SampleRows int `yaml:"sample_rows"`
}

// NormalizerConfig configures the repair pipeline.
type NormalizerConfig struct {
	// FallbackPolicy is "substitute" or "reject".
	FallbackPolicy string `yaml:"fallback_policy"`
}

// RenderConfig configures result payloads.
type RenderConfig struct {
	MaxRows   int `yaml:"max_rows"`
	Precision int `yaml:"precision"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:   translator.DefaultModel,
			Timeout: translator.DefaultTimeout.String(),
			Retries: 1,
		},
		Schema: SchemaConfig{
			SampleRows: schema.DefaultSampleRows,
		},
		Normalizer: NormalizerConfig{
			FallbackPolicy: string(translator.PolicySubstitute),
		},
		Render: RenderConfig{
			MaxRows:   500,
			Precision: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file. The API key is never written.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *c
	out.LLM.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("COGNIVIEW_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if timeout := os.Getenv("COGNIVIEW_TIMEOUT"); timeout != "" {
		c.LLM.Timeout = timeout
	}
	if policy := os.Getenv("COGNIVIEW_FALLBACK"); policy != "" {
		c.Normalizer.FallbackPolicy = policy
	}
}

// GetLLMTimeout returns the per-call completion timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return translator.DefaultTimeout
	}
	return d
}

// GetFallbackPolicy returns the parsed normalizer policy, falling back to
// substitution for unknown values.
func (c *Config) GetFallbackPolicy() translator.FallbackPolicy {
	p, err := translator.ParsePolicy(c.Normalizer.FallbackPolicy)
	if err != nil {
		return translator.PolicySubstitute
	}
	return p
}

// TranslatorConfig converts the LLM section for translator.NewGemini.
func (c *Config) TranslatorConfig() translator.Config {
	return translator.Config{
		APIKey:  c.LLM.APIKey,
		Model:   c.LLM.Model,
		BaseURL: c.LLM.BaseURL,
		Timeout: c.GetLLMTimeout(),
		Retries: c.LLM.Retries,
	}
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration. The API key is checked separately
// by RequireAPIKey since offline commands do not need it.
func (c *Config) Validate() error {
	if _, err := translator.ParsePolicy(c.Normalizer.FallbackPolicy); err != nil {
		return err
	}
	if c.LLM.Timeout != "" {
		if d, err := time.ParseDuration(c.LLM.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("invalid llm timeout %q", c.LLM.Timeout)
		}
	}
	if c.LLM.Retries < 0 {
		return fmt.Errorf("llm retries must be >= 0, got %d", c.LLM.Retries)
	}
	if c.Schema.SampleRows < 1 {
		return fmt.Errorf("schema sample_rows must be >= 1, got %d", c.Schema.SampleRows)
	}
	if c.Render.MaxRows < 1 {
		return fmt.Errorf("render max_rows must be >= 1, got %d", c.Render.MaxRows)
	}

	level := strings.ToLower(c.Logging.Level)
	for _, l := range ValidLogLevels {
		if level == l {
			return nil
		}
	}
	return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
}

// RequireAPIKey reports a missing completion API key.
func (c *Config) RequireAPIKey() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY or llm.api_key)")
	}
	return nil
}
