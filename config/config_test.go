package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/cogniview/translator"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "COGNIVIEW_MODEL", "COGNIVIEW_TIMEOUT", "COGNIVIEW_FALLBACK"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, translator.DefaultModel, cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 5, cfg.Schema.SampleRows)
	assert.Equal(t, translator.PolicySubstitute, cfg.GetFallbackPolicy())
	assert.Equal(t, 500, cfg.Render.MaxRows)
	assert.Equal(t, 2, cfg.Render.Precision)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMissingFileStillAppliesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("COGNIVIEW_FALLBACK", "reject")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, translator.PolicyReject, cfg.GetFallbackPolicy())
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cogniview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gemini-2.0-flash
  timeout: 10s
  retries: 3
render:
  max_rows: 50
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 10*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 3, cfg.LLM.Retries)
	assert.Equal(t, 50, cfg.Render.MaxRows)
	assert.Equal(t, 2, cfg.Render.Precision, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)

	t.Setenv("COGNIVIEW_MODEL", "override-model")
	t.Setenv("COGNIVIEW_TIMEOUT", "2s")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "override-model", cfg.LLM.Model)
	assert.Equal(t, 2*time.Second, cfg.GetLLMTimeout())

	tc := cfg.TranslatorConfig()
	assert.Equal(t, "override-model", tc.Model)
	assert.Equal(t, 2*time.Second, tc.Timeout)
	assert.Equal(t, 3, tc.Retries)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unterminated"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestSaveRoundTripOmitsAPIKey(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "secret"
	cfg.Render.MaxRows = 20

	path := filepath.Join(t.TempDir(), "nested", "cogniview.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Equal(t, "secret", cfg.LLM.APIKey, "Save must not modify the receiver")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, loaded.Render.MaxRows)
	assert.Empty(t, loaded.LLM.APIKey)
	assert.Error(t, loaded.RequireAPIKey())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad policy", func(c *Config) { c.Normalizer.FallbackPolicy = "ignore" }, "unknown fallback policy"},
		{"bad timeout", func(c *Config) { c.LLM.Timeout = "soon" }, "invalid llm timeout"},
		{"negative timeout", func(c *Config) { c.LLM.Timeout = "-1s" }, "invalid llm timeout"},
		{"negative retries", func(c *Config) { c.LLM.Retries = -1 }, "retries"},
		{"no samples", func(c *Config) { c.Schema.SampleRows = 0 }, "sample_rows"},
		{"no rows", func(c *Config) { c.Render.MaxRows = 0 }, "max_rows"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid logging level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestGettersFallBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "never"
	cfg.Normalizer.FallbackPolicy = "nope"
	assert.Equal(t, translator.DefaultTimeout, cfg.GetLLMTimeout())
	assert.Equal(t, translator.PolicySubstitute, cfg.GetFallbackPolicy())
}
