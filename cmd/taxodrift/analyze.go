package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/taxodrift/internal/config"
	"github.com/crimson-sun/taxodrift/internal/output"
	"github.com/crimson-sun/taxodrift/internal/output/stdout"
	"github.com/crimson-sun/taxodrift/internal/pipeline"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		quiet   bool
		noColor bool
	)
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify the corpus and write the drift report",
		Long: `Load the category registry, the pattern registry and every embedding
shard, classify each pattern and example against the category centroids,
and write the report, the enhanced corpus and any configured metrics,
history or webhook destinations. A summary is printed to stdout.

Unreadable registries and embedding dimension mismatches abort the run
with exit code 2. Corrupt shards and incomplete records are skipped and
listed in the report's coverage section.`,
		Example: `  taxodrift analyze --categories data/categories.json --patterns data/patterns.json --embeddings data/embeddings
  taxodrift analyze --config taxodrift.yaml --verbosity full --history .taxodrift/history.db
  TAXODRIFT_THRESHOLDS_RECATEGORIZE=0.7 taxodrift analyze --metrics /var/lib/node_exporter/taxodrift.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbosity, err := output.ParseVerbosity(a.cfg.Output.Verbosity)
			if err != nil {
				return err
			}

			var extra []output.Output
			if !quiet {
				opts := []stdout.Option{
					stdout.WithWriter(cmd.OutOrStdout()),
					stdout.WithPreviewLimit(a.cfg.Output.PreviewLimit),
				}
				if noColor {
					opts = append(opts, stdout.WithColor(false))
				}
				extra = append(extra, stdout.New(verbosity, opts...))
			}

			p, err := pipeline.FromConfig(a.cfg, extra)
			if err != nil {
				return err
			}
			_, runErr := p.Run(cmd.Context())
			if closeErr := p.Close(); closeErr != nil && runErr == nil {
				runErr = fmt.Errorf("close outputs: %w", closeErr)
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.String("categories", d.Input.Categories, "category registry (json or yaml)")
	f.String("patterns", d.Input.Patterns, "pattern registry (json)")
	f.String("embeddings", d.Input.EmbeddingsDir, "directory of embedding shards")
	f.String("shard-glob", d.Input.ShardGlob, "doublestar pattern selecting shard files")

	f.Int("workers", d.Engine.Workers, "classification workers; 0 uses GOMAXPROCS")
	f.Int("pattern-top-k", d.Engine.PatternTopK, "ranked categories kept per pattern")
	f.Int("example-top-k", d.Engine.ExampleTopK, "ranked categories kept per example")
	f.String("report-policy", d.Engine.ReportPolicy, "confidence policy for report histograms: strict or relaxed")
	f.String("annotation-policy", d.Engine.AnnotationPolicy, "confidence policy for annotations: strict or relaxed")

	f.Float64("recategorize-threshold", d.Thresholds.Recategorize, "minimum score to recommend a new category")
	f.Float64("low-confidence-threshold", d.Thresholds.LowConfidence, "best-match score below which a pattern is flagged")
	f.Float64("multi-category-threshold", d.Thresholds.MultiCategory, "score at which a ranked category counts toward multi-category")

	f.String("report", d.Output.Report, "report output path; empty skips")
	f.String("enhanced", d.Output.Enhanced, "enhanced corpus output path; empty skips")
	f.String("metrics", d.Output.Metrics, "prometheus textfile path; empty skips")
	f.String("webhook", d.Output.WebhookURL, "URL to POST the report summary to; empty skips")
	f.Duration("webhook-timeout", d.Output.WebhookTimeout, "timeout for each webhook attempt")
	f.Bool("pretty", d.Output.Pretty, "indent JSON artifacts")
	f.String("verbosity", d.Output.Verbosity, "summary detail: minimal, standard or full")
	f.Int("preview-limit", d.Output.PreviewLimit, "entries per list in the standard summary")

	f.BoolVarP(&quiet, "quiet", "q", false, "do not print the summary")
	f.BoolVar(&noColor, "no-color", false, "disable colored output")

	bindFlags(a.v, cmd, map[string]string{
		"input.categories":          "categories",
		"input.patterns":            "patterns",
		"input.embeddings_dir":      "embeddings",
		"input.shard_glob":          "shard-glob",
		"engine.workers":            "workers",
		"engine.pattern_top_k":      "pattern-top-k",
		"engine.example_top_k":      "example-top-k",
		"engine.report_policy":      "report-policy",
		"engine.annotation_policy":  "annotation-policy",
		"thresholds.recategorize":   "recategorize-threshold",
		"thresholds.low_confidence": "low-confidence-threshold",
		"thresholds.multi_category": "multi-category-threshold",
		"output.report":             "report",
		"output.enhanced":           "enhanced",
		"output.metrics":            "metrics",
		"output.webhook_url":        "webhook",
		"output.webhook_timeout":    "webhook-timeout",
		"output.pretty":             "pretty",
		"output.verbosity":          "verbosity",
		"output.preview_limit":      "preview-limit",
	})
	return cmd
}
