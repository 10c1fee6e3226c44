// Package metrics exports run results as Prometheus gauges written to a
// node-exporter textfile, so taxonomy drift can be graphed and alerted on
// across scheduled runs.
package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crimson-sun/taxodrift/internal/output"
	"github.com/crimson-sun/taxodrift/internal/report"
)

const namespace = "taxodrift"

// Exporter is an output.Output that renders the report as gauges.
type Exporter struct {
	path     string
	registry *prometheus.Registry

	corpusSize      *prometheus.GaugeVec
	coverage        *prometheus.GaugeVec
	accuracy        *prometheus.GaugeVec
	recommendations *prometheus.GaugeVec
	confidence      *prometheus.GaugeVec
	skipped         *prometheus.GaugeVec
	lastRun         prometheus.Gauge
}

// New creates an exporter writing to the textfile at path.
func New(path string) *Exporter {
	e := &Exporter{
		path:     path,
		registry: prometheus.NewRegistry(),
	}

	e.corpusSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "size",
			Help:      "Number of loaded records by kind",
		},
		[]string{"kind"},
	)
	e.coverage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "coverage_ratio",
			Help:      "Fraction of records that received a classification",
		},
		[]string{"level"},
	)
	e.accuracy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "drift",
			Name:      "accuracy_ratio",
			Help:      "Agreement between new classifications and reference labels",
		},
		[]string{"kind"},
	)
	e.recommendations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "drift",
			Name:      "recommendations",
			Help:      "Number of drift findings by kind",
		},
		[]string{"kind"},
	)
	e.confidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "drift",
			Name:      "confidence_bucket",
			Help:      "Classifications per confidence bucket",
		},
		[]string{"level", "bucket"},
	)
	e.skipped = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "skipped_records",
			Help:      "Records or shards skipped while loading",
		},
		[]string{"source"},
	)
	e.lastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the report was generated",
		},
	)

	e.registry.MustRegister(
		e.corpusSize, e.coverage, e.accuracy, e.recommendations,
		e.confidence, e.skipped, e.lastRun,
	)
	return e
}

// Registry exposes the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Observe sets every gauge from r.
func (e *Exporter) Observe(r *report.Report) {
	m := r.Metadata
	e.corpusSize.WithLabelValues("categories").Set(float64(m.Categories))
	e.corpusSize.WithLabelValues("patterns").Set(float64(m.Patterns))
	e.corpusSize.WithLabelValues("examples").Set(float64(m.Examples))
	e.corpusSize.WithLabelValues("shards").Set(float64(m.ShardsLoaded))

	e.coverage.WithLabelValues("pattern").Set(r.Coverage.PatternPercent / 100)
	e.coverage.WithLabelValues("example").Set(r.Coverage.ExamplePercent / 100)

	e.accuracy.WithLabelValues("pattern").Set(r.Accuracy.Pattern.Percent / 100)
	e.accuracy.WithLabelValues("example").Set(r.Accuracy.Example.Percent / 100)
	e.accuracy.WithLabelValues("example_pattern").Set(r.Accuracy.ExamplePatternAgreement.Percent / 100)

	recs := r.Recommendations
	e.recommendations.WithLabelValues("recategorize").Set(float64(len(recs.Recategorize)))
	e.recommendations.WithLabelValues("low_confidence").Set(float64(len(recs.LowConfidence)))
	e.recommendations.WithLabelValues("multi_category").Set(float64(len(recs.MultiCategory)))
	e.recommendations.WithLabelValues("noted_disagreements").Set(float64(recs.NotedDisagreements))
	e.recommendations.WithLabelValues("unlabeled").Set(float64(recs.UnlabeledPatterns))
	e.recommendations.WithLabelValues("mismatches").Set(float64(len(r.Mismatches)))

	for level, h := range map[string]struct{ high, medium, low int }{
		"pattern": {r.Confidence.Patterns.High, r.Confidence.Patterns.Medium, r.Confidence.Patterns.Low},
		"example": {r.Confidence.Examples.High, r.Confidence.Examples.Medium, r.Confidence.Examples.Low},
	} {
		e.confidence.WithLabelValues(level, "high").Set(float64(h.high))
		e.confidence.WithLabelValues(level, "medium").Set(float64(h.medium))
		e.confidence.WithLabelValues(level, "low").Set(float64(h.low))
	}

	sk := r.Coverage.Skipped
	e.skipped.WithLabelValues("categories").Set(float64(len(sk.Categories)))
	e.skipped.WithLabelValues("patterns").Set(float64(len(sk.Patterns)))
	e.skipped.WithLabelValues("embeddings").Set(float64(len(sk.Embeddings)))
	e.skipped.WithLabelValues("shards").Set(float64(len(sk.Shards)))

	e.lastRun.Set(float64(m.GeneratedAt.Unix()))
}

// Write observes the report and rewrites the textfile.
func (e *Exporter) Write(_ context.Context, a output.Artifacts) error {
	if a.Report == nil {
		return nil
	}
	e.Observe(a.Report)
	if err := prometheus.WriteToTextfile(e.path, e.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", e.path, err)
	}
	slog.Info("metrics written", "path", e.path)
	return nil
}

func (e *Exporter) Close() error {
	return nil
}
