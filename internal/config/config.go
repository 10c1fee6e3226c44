package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/crimson-sun/taxodrift/internal/corpus"
	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
	"github.com/crimson-sun/taxodrift/internal/engine/drift"
	"github.com/crimson-sun/taxodrift/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g.
// TAXODRIFT_THRESHOLDS_RECATEGORIZE=0.65.
const EnvPrefix = "TAXODRIFT"

// Config holds all taxodrift configuration.
type Config struct {
	Input      InputConfig     `mapstructure:"input"`
	Engine     EngineConfig    `mapstructure:"engine"`
	Thresholds ThresholdConfig `mapstructure:"thresholds"`
	Output     OutputConfig    `mapstructure:"output"`
	History    HistoryConfig   `mapstructure:"history"`
	LogLevel   string          `mapstructure:"log_level"`
	LogFormat  string          `mapstructure:"log_format"` // "text" or "json"
}

// InputConfig locates the three input data sets.
type InputConfig struct {
	Categories    string `mapstructure:"categories"`
	Patterns      string `mapstructure:"patterns"`
	EmbeddingsDir string `mapstructure:"embeddings_dir"`
	ShardGlob     string `mapstructure:"shard_glob"`
}

// EngineConfig holds classification settings.
type EngineConfig struct {
	Workers          int    `mapstructure:"workers"` // 0 = GOMAXPROCS
	PatternTopK      int    `mapstructure:"pattern_top_k"`
	ExampleTopK      int    `mapstructure:"example_top_k"`
	ReportPolicy     string `mapstructure:"report_policy"`     // buckets report histograms
	AnnotationPolicy string `mapstructure:"annotation_policy"` // buckets enhanced-corpus annotations
}

// ThresholdConfig holds the drift analyzer cutoffs.
type ThresholdConfig struct {
	Recategorize  float64 `mapstructure:"recategorize"`
	LowConfidence float64 `mapstructure:"low_confidence"`
	MultiCategory float64 `mapstructure:"multi_category"`
}

// OutputConfig holds artifact destinations.
type OutputConfig struct {
	Report       string `mapstructure:"report"`   // full JSON report, "" to skip
	Enhanced     string `mapstructure:"enhanced"` // enhanced corpus, "" to skip
	Metrics      string `mapstructure:"metrics"`  // prometheus textfile, "" to skip
	Pretty       bool   `mapstructure:"pretty"`
	Verbosity    string `mapstructure:"verbosity"` // "minimal", "standard", "full"
	PreviewLimit int    `mapstructure:"preview_limit"`

	WebhookURL     string            `mapstructure:"webhook_url"` // "" disables
	WebhookHeaders map[string]string `mapstructure:"webhook_headers"`
	WebhookTimeout time.Duration     `mapstructure:"webhook_timeout"` // per attempt
}

// HistoryConfig holds the run history database location.
type HistoryConfig struct {
	Path string `mapstructure:"path"` // "" disables history
}

// Default returns the built-in configuration, before any file or
// environment override.
func Default() Config {
	th := drift.DefaultThresholds()
	return Config{
		Input: InputConfig{
			Categories:    "data/categories.json",
			Patterns:      "data/patterns.json",
			EmbeddingsDir: "data/embeddings",
			ShardGlob:     corpus.DefaultShardGlob,
		},
		Engine: EngineConfig{
			PatternTopK:      5,
			ExampleTopK:      3,
			ReportPolicy:     classifier.PolicyStrict.Name,
			AnnotationPolicy: classifier.PolicyRelaxed.Name,
		},
		Thresholds: ThresholdConfig{
			Recategorize:  th.Recategorize,
			LowConfidence: th.LowConfidence,
			MultiCategory: th.MultiCategory,
		},
		Output: OutputConfig{
			Report:       "out/report.json",
			Enhanced:     "out/patterns_enhanced.json",
			Pretty:       true,
			Verbosity:    "standard",
			PreviewLimit: 10,

			WebhookTimeout: 10 * time.Second,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// New returns a viper instance with every default registered and
// environment overrides enabled.
func New() *viper.Viper {
	v := viper.New()
	d := Default()

	v.SetDefault("input.categories", d.Input.Categories)
	v.SetDefault("input.patterns", d.Input.Patterns)
	v.SetDefault("input.embeddings_dir", d.Input.EmbeddingsDir)
	v.SetDefault("input.shard_glob", d.Input.ShardGlob)

	v.SetDefault("engine.workers", d.Engine.Workers)
	v.SetDefault("engine.pattern_top_k", d.Engine.PatternTopK)
	v.SetDefault("engine.example_top_k", d.Engine.ExampleTopK)
	v.SetDefault("engine.report_policy", d.Engine.ReportPolicy)
	v.SetDefault("engine.annotation_policy", d.Engine.AnnotationPolicy)

	v.SetDefault("thresholds.recategorize", d.Thresholds.Recategorize)
	v.SetDefault("thresholds.low_confidence", d.Thresholds.LowConfidence)
	v.SetDefault("thresholds.multi_category", d.Thresholds.MultiCategory)

	v.SetDefault("output.report", d.Output.Report)
	v.SetDefault("output.enhanced", d.Output.Enhanced)
	v.SetDefault("output.metrics", d.Output.Metrics)
	v.SetDefault("output.pretty", d.Output.Pretty)
	v.SetDefault("output.verbosity", d.Output.Verbosity)
	v.SetDefault("output.preview_limit", d.Output.PreviewLimit)
	v.SetDefault("output.webhook_url", d.Output.WebhookURL)
	v.SetDefault("output.webhook_timeout", d.Output.WebhookTimeout)

	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file (YAML, JSON or TOML, by extension)
// and decodes the merged settings.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Input.Categories == "" {
		errs = append(errs, errors.New("input.categories is required"))
	}
	if c.Input.Patterns == "" {
		errs = append(errs, errors.New("input.patterns is required"))
	}
	if c.Input.EmbeddingsDir == "" {
		errs = append(errs, errors.New("input.embeddings_dir is required"))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers must be >= 0, got %d", c.Engine.Workers))
	}
	if c.Engine.PatternTopK < 1 {
		errs = append(errs, fmt.Errorf("engine.pattern_top_k must be >= 1, got %d", c.Engine.PatternTopK))
	}
	if c.Engine.ExampleTopK < 1 {
		errs = append(errs, fmt.Errorf("engine.example_top_k must be >= 1, got %d", c.Engine.ExampleTopK))
	}
	if _, _, err := c.Policies(); err != nil {
		errs = append(errs, err)
	}
	if err := c.DriftThresholds().Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Output.Verbosity {
	case "minimal", "standard", "full":
	default:
		errs = append(errs, fmt.Errorf("output.verbosity %q must be minimal, standard or full", c.Output.Verbosity))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	if c.Output.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("output.webhook_timeout must be > 0, got %s", c.Output.WebhookTimeout))
	}
	if c.Output.PreviewLimit < 0 {
		errs = append(errs, fmt.Errorf("output.preview_limit must be >= 0, got %d", c.Output.PreviewLimit))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Sources returns the corpus inputs.
func (c Config) Sources() corpus.Sources {
	return corpus.Sources{
		Categories:    c.Input.Categories,
		Patterns:      c.Input.Patterns,
		EmbeddingsDir: c.Input.EmbeddingsDir,
		ShardGlob:     c.Input.ShardGlob,
	}
}

// Policies resolves the report and annotation confidence policies.
func (c Config) Policies() (report, annotation classifier.Policy, err error) {
	report, err = classifier.PolicyByName(c.Engine.ReportPolicy)
	if err != nil {
		return report, annotation, fmt.Errorf("engine.report_policy: %w", err)
	}
	annotation, err = classifier.PolicyByName(c.Engine.AnnotationPolicy)
	if err != nil {
		return report, annotation, fmt.Errorf("engine.annotation_policy: %w", err)
	}
	return report, annotation, nil
}

// DriftThresholds returns the analyzer thresholds.
func (c Config) DriftThresholds() drift.Thresholds {
	return drift.Thresholds{
		Recategorize:  c.Thresholds.Recategorize,
		LowConfidence: c.Thresholds.LowConfidence,
		MultiCategory: c.Thresholds.MultiCategory,
	}
}
