package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "data/categories.json", cfg.Input.Categories)
	assert.Equal(t, 5, cfg.Engine.PatternTopK)
	assert.Equal(t, 3, cfg.Engine.ExampleTopK)
	assert.Equal(t, 0.6, cfg.Thresholds.Recategorize)
	assert.Equal(t, 0.6, cfg.Thresholds.LowConfidence)
	assert.Equal(t, 0.6, cfg.Thresholds.MultiCategory)
	assert.Equal(t, "standard", cfg.Output.Verbosity)
	assert.Equal(t, 10, cfg.Output.PreviewLimit)
	assert.Equal(t, 10*time.Second, cfg.Output.WebhookTimeout)
	assert.Empty(t, cfg.History.Path)

	report, annotation, err := cfg.Policies()
	require.NoError(t, err)
	assert.Equal(t, classifier.PolicyStrict, report)
	assert.Equal(t, classifier.PolicyRelaxed, annotation)
}

func TestDefaultMatchesViperDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TAXODRIFT_THRESHOLDS_RECATEGORIZE", "0.72")
	t.Setenv("TAXODRIFT_ENGINE_REPORT_POLICY", "relaxed")
	t.Setenv("TAXODRIFT_INPUT_EMBEDDINGS_DIR", "/srv/shards")
	t.Setenv("TAXODRIFT_ENGINE_WORKERS", "8")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 0.72, cfg.Thresholds.Recategorize)
	assert.Equal(t, "/srv/shards", cfg.Input.EmbeddingsDir)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, 0.72, cfg.DriftThresholds().Recategorize)

	report, _, err := cfg.Policies()
	require.NoError(t, err)
	assert.Equal(t, classifier.PolicyRelaxed, report)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxodrift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  categories: taxonomy/categories.yaml
  patterns: taxonomy/patterns.json
engine:
  pattern_top_k: 7
thresholds:
  multi_category: 0.55
output:
  verbosity: full
  webhook_url: https://ci.example.com/hooks/taxonomy
  webhook_headers:
    X-Token: abc123
  webhook_timeout: 30s
`), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "taxonomy/categories.yaml", cfg.Input.Categories)
	assert.Equal(t, 7, cfg.Engine.PatternTopK)
	assert.Equal(t, 3, cfg.Engine.ExampleTopK, "unset keys keep defaults")
	assert.Equal(t, 0.55, cfg.Thresholds.MultiCategory)
	assert.Equal(t, "full", cfg.Output.Verbosity)
	assert.Equal(t, "https://ci.example.com/hooks/taxonomy", cfg.Output.WebhookURL)
	assert.Equal(t, map[string]string{"x-token": "abc123"}, cfg.Output.WebhookHeaders, "viper lowercases keys")
	assert.Equal(t, 30*time.Second, cfg.Output.WebhookTimeout)

	src := cfg.Sources()
	assert.Equal(t, "taxonomy/patterns.json", src.Patterns)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load(New(), "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no categories", func(c *Config) { c.Input.Categories = "" }},
		{"no embeddings", func(c *Config) { c.Input.EmbeddingsDir = "" }},
		{"negative workers", func(c *Config) { c.Engine.Workers = -1 }},
		{"zero top k", func(c *Config) { c.Engine.PatternTopK = 0 }},
		{"unknown policy", func(c *Config) { c.Engine.AnnotationPolicy = "lenient" }},
		{"threshold range", func(c *Config) { c.Thresholds.LowConfidence = 1.2 }},
		{"verbosity", func(c *Config) { c.Output.Verbosity = "loud" }},
		{"preview", func(c *Config) { c.Output.PreviewLimit = -3 }},
		{"webhook timeout", func(c *Config) { c.Output.WebhookTimeout = 0 }},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
