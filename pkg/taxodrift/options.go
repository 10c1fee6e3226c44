package taxodrift

import (
	"time"

	"github.com/crimson-sun/taxodrift/internal/config"
)

type options struct {
	cfg   config.Config
	clock func() time.Time
}

// Option configures a Drift instance.
type Option func(*options)

// WithInputs sets the category registry, the pattern registry and the
// embedding shard directory.
func WithInputs(categories, patterns, embeddingsDir string) Option {
	return func(o *options) {
		o.cfg.Input.Categories = categories
		o.cfg.Input.Patterns = patterns
		o.cfg.Input.EmbeddingsDir = embeddingsDir
	}
}

// WithShardGlob sets the doublestar pattern selecting shard files under
// the embedding directory. Default: every .json, .json.gz and .json.zst.
func WithShardGlob(glob string) Option {
	return func(o *options) {
		o.cfg.Input.ShardGlob = glob
	}
}

// WithThresholds sets the recategorize, low-confidence and multi-category
// cutoffs. Default: 0.6 each.
func WithThresholds(recategorize, lowConfidence, multiCategory float64) Option {
	return func(o *options) {
		o.cfg.Thresholds = config.ThresholdConfig{
			Recategorize:  recategorize,
			LowConfidence: lowConfidence,
			MultiCategory: multiCategory,
		}
	}
}

// WithPolicies names the confidence policies used for report histograms
// and for annotations ("strict" or "relaxed").
// Default: strict for the report, relaxed for annotations.
func WithPolicies(report, annotation string) Option {
	return func(o *options) {
		o.cfg.Engine.ReportPolicy = report
		o.cfg.Engine.AnnotationPolicy = annotation
	}
}

// WithTopK sets how many ranked categories are kept per pattern and per
// example. Default: 5 and 3.
func WithTopK(patterns, examples int) Option {
	return func(o *options) {
		o.cfg.Engine.PatternTopK = patterns
		o.cfg.Engine.ExampleTopK = examples
	}
}

// WithWorkers bounds classification parallelism. 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.cfg.Engine.Workers = n
	}
}

// WithReportFile also persists the full report as JSON at path.
func WithReportFile(path string) Option {
	return func(o *options) {
		o.cfg.Output.Report = path
	}
}

// WithEnhancedFile also persists the enhanced corpus as JSON at path.
func WithEnhancedFile(path string) Option {
	return func(o *options) {
		o.cfg.Output.Enhanced = path
	}
}

// WithClock replaces time.Now as the report timestamp source. A nil
// clock is ignored.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

func defaultOptions() options {
	cfg := config.Default()
	cfg.Output.Report = ""
	cfg.Output.Enhanced = ""
	return options{cfg: cfg, clock: time.Now}
}
