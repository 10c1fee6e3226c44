package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/taxodrift/internal/config"
	"github.com/crimson-sun/taxodrift/internal/corpus"
	"github.com/crimson-sun/taxodrift/internal/engine"
	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
	"github.com/crimson-sun/taxodrift/internal/engine/drift"
	"github.com/crimson-sun/taxodrift/internal/history"
	"github.com/crimson-sun/taxodrift/internal/metrics"
	"github.com/crimson-sun/taxodrift/internal/output"
	"github.com/crimson-sun/taxodrift/internal/output/file"
	"github.com/crimson-sun/taxodrift/internal/output/multi"
	"github.com/crimson-sun/taxodrift/internal/output/webhook"
	"github.com/crimson-sun/taxodrift/internal/report"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces time.Now as the source of the report timestamp.
// A nil clock is ignored.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline runs load → categorize → analyze → build → write as one batch.
// Every stage consumes the previous stage's complete output.
type Pipeline struct {
	sources  corpus.Sources
	engine   *engine.Engine
	analyzer *drift.Analyzer
	settings report.Settings
	output   output.Output // nil = artifacts are only returned
	now      func() time.Time
}

// New creates a Pipeline from the given components.
func New(src corpus.Sources, eng *engine.Engine, an *drift.Analyzer, settings report.Settings, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		sources:  src,
		engine:   eng,
		analyzer: an,
		settings: settings,
		output:   out,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the whole batch. Fatal load errors abort before anything
// is written; recoverable ones are carried into the report's coverage.
func (p *Pipeline) Run(ctx context.Context) (output.Artifacts, error) {
	start := time.Now()

	c, err := corpus.Load(ctx, p.sources)
	if err != nil {
		return output.Artifacts{}, fmt.Errorf("pipeline load: %w", err)
	}

	res, err := p.engine.Categorize(ctx, c)
	if err != nil {
		return output.Artifacts{}, fmt.Errorf("pipeline categorize: %w", err)
	}

	analysis := p.analyzer.Analyze(res)

	rep := report.Build(report.Input{
		Corpus:   c,
		Result:   res,
		Analysis: analysis,
		Settings: p.settings,
	}, p.now())
	a := output.Artifacts{
		Report: rep,
		Enhanced: &report.EnhancedCorpus{
			CorpusID: rep.Metadata.CorpusID,
			Patterns: report.Enhance(res),
			Extra:    c.RegistryExtra,
		},
	}

	slog.Info("analysis complete",
		"corpus", rep.Metadata.CorpusID,
		"pattern_coverage", rep.Coverage.PatternPercent,
		"example_coverage", rep.Coverage.ExamplePercent,
		"recategorize", len(rep.Recommendations.Recategorize),
		"low_confidence", len(rep.Recommendations.LowConfidence),
		"mismatches", len(rep.Mismatches),
		"skipped", rep.Coverage.Skipped.Total(),
		"elapsed", time.Since(start),
	)

	if p.output != nil {
		if err := p.output.Write(ctx, a); err != nil {
			return a, fmt.Errorf("pipeline output: %w", err)
		}
	}
	return a, nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	if p.output == nil {
		return nil
	}
	return p.output.Close()
}

// FromConfig assembles a Pipeline from configuration. Every destination
// the configuration names is wired behind one multi output, followed by
// extra.
func FromConfig(cfg config.Config, extra []output.Output, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reportPolicy, annotationPolicy, err := cfg.Policies()
	if err != nil {
		return nil, err
	}
	verbosity, err := output.ParseVerbosity(cfg.Output.Verbosity)
	if err != nil {
		return nil, err
	}

	settings := report.Settings{
		Thresholds:       cfg.DriftThresholds(),
		ReportPolicy:     reportPolicy,
		AnnotationPolicy: annotationPolicy,
		PatternTopK:      cfg.Engine.PatternTopK,
		ExampleTopK:      cfg.Engine.ExampleTopK,
	}
	eng := engine.New(
		classifier.New(settings.PatternTopK, annotationPolicy),
		classifier.New(settings.ExampleTopK, annotationPolicy),
		engine.WithWorkers(cfg.Engine.Workers),
	)
	an := drift.New(settings.Thresholds, reportPolicy)

	var outs []output.Output
	if cfg.Output.Report != "" || cfg.Output.Enhanced != "" {
		// The persisted report is always complete; verbosity only shapes
		// human-facing destinations.
		f, err := file.New(cfg.Output.Report, cfg.Output.Enhanced, file.WithPretty(cfg.Output.Pretty))
		if err != nil {
			return nil, err
		}
		outs = append(outs, f)
	}
	if cfg.Output.Metrics != "" {
		outs = append(outs, metrics.New(cfg.Output.Metrics))
	}
	if cfg.Output.WebhookURL != "" {
		outs = append(outs, webhook.New(cfg.Output.WebhookURL,
			webhook.WithHeaders(cfg.Output.WebhookHeaders),
			webhook.WithTimeout(cfg.Output.WebhookTimeout),
			webhook.WithVerbosity(verbosity, cfg.Output.PreviewLimit)))
	}
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, errors.Join(err, multi.New(outs...).Close())
		}
		outs = append(outs, store)
	}
	outs = append(outs, extra...)

	return New(cfg.Sources(), eng, an, settings, multi.New(outs...), opts...), nil
}
