// Package report assembles the run artifact and the enhanced corpus copy.
// Everything here is a pure function of its inputs; the only
// non-deterministic field, the timestamp, is supplied by the caller.
package report

import (
	"time"

	"github.com/crimson-sun/taxodrift/internal/corpus"
	"github.com/crimson-sun/taxodrift/internal/engine"
	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
	"github.com/crimson-sun/taxodrift/internal/engine/drift"
	"github.com/crimson-sun/taxodrift/internal/engine/vecmath"
)

// Tool identifies the producer in report metadata.
const Tool = "taxodrift"

// Settings are the caller-supplied knobs recorded in the report.
type Settings struct {
	Thresholds       drift.Thresholds  `json:"thresholds"`
	ReportPolicy     classifier.Policy `json:"report_policy"`
	AnnotationPolicy classifier.Policy `json:"annotation_policy"`
	PatternTopK      int               `json:"pattern_top_k"`
	ExampleTopK      int               `json:"example_top_k"`
}

// Metadata describes the run.
type Metadata struct {
	Tool         string    `json:"tool"`
	GeneratedAt  time.Time `json:"generated_at"`
	CorpusID     string    `json:"corpus_id"`
	Categories   int       `json:"categories"`
	Patterns     int       `json:"patterns"`
	Examples     int       `json:"examples"`
	Dimension    int       `json:"dimension"`
	ShardsLoaded int       `json:"shards_loaded"`
	Settings     Settings  `json:"settings"`
}

// Coverage is the engine's coverage plus every recoverable load problem.
type Coverage struct {
	engine.Coverage
	Skipped corpus.Skipped `json:"skipped"`
}

// Accuracy groups the agreement rates.
type Accuracy struct {
	Pattern                 drift.Accuracy `json:"pattern"`
	Example                 drift.Accuracy `json:"example"`
	ExamplePatternAgreement drift.Accuracy `json:"example_pattern_agreement"`
}

// Confidence groups the bucket histograms and score statistics.
type Confidence struct {
	Patterns     drift.Histogram `json:"patterns"`
	Examples     drift.Histogram `json:"examples"`
	PatternStats vecmath.Stats   `json:"pattern_stats"`
	ExampleStats vecmath.Stats   `json:"example_stats"`
}

// Recommendations are the actionable lists.
type Recommendations struct {
	Recategorize       []drift.Recategorization `json:"recategorize"`
	LowConfidence      []drift.LowConfidence    `json:"low_confidence"`
	MultiCategory      []drift.MultiCategory    `json:"multi_category"`
	NotedDisagreements int                      `json:"noted_disagreements"`
	UnlabeledPatterns  int                      `json:"unlabeled_patterns"`
}

// Report is the persisted run artifact. Lists are never truncated here;
// see Preview for the capped view.
type Report struct {
	Metadata        Metadata              `json:"metadata"`
	Coverage        Coverage              `json:"coverage"`
	Accuracy        Accuracy              `json:"accuracy"`
	Confidence      Confidence            `json:"confidence"`
	Recommendations Recommendations       `json:"recommendations"`
	Mismatches      []drift.Mismatch      `json:"pattern_example_mismatches"`
	Transitions     []drift.Transition    `json:"transitions"`
	Distribution    []drift.CategoryCount `json:"category_distribution"`
}

// Input is everything Build needs.
type Input struct {
	Corpus   *corpus.Corpus
	Result   *engine.Result
	Analysis drift.Analysis
	Settings Settings
}

// Build assembles the report. Re-running on identical input yields an
// identical report apart from GeneratedAt.
func Build(in Input, now time.Time) *Report {
	a := in.Analysis
	return &Report{
		Metadata: Metadata{
			Tool:         Tool,
			GeneratedAt:  now.UTC(),
			CorpusID:     in.Corpus.Fingerprint(),
			Categories:   in.Corpus.Taxonomy.Len(),
			Patterns:     len(in.Corpus.Patterns),
			Examples:     in.Corpus.ExampleCount(),
			Dimension:    in.Corpus.Taxonomy.Dimension(),
			ShardsLoaded: in.Corpus.ShardsLoaded,
			Settings:     in.Settings,
		},
		Coverage: Coverage{
			Coverage: in.Result.Coverage,
			Skipped:  normalizeSkipped(in.Corpus.Skipped),
		},
		Accuracy: Accuracy{
			Pattern:                 a.PatternAccuracy,
			Example:                 a.ExampleAccuracy,
			ExamplePatternAgreement: a.ExamplePatternAgreement,
		},
		Confidence: Confidence{
			Patterns:     a.PatternHistogram,
			Examples:     a.ExampleHistogram,
			PatternStats: a.PatternStats,
			ExampleStats: a.ExampleStats,
		},
		Recommendations: Recommendations{
			Recategorize:       nonNil(a.Recategorize),
			LowConfidence:      nonNil(a.LowConfidence),
			MultiCategory:      nonNil(a.MultiCategory),
			NotedDisagreements: a.NotedDisagreements,
			UnlabeledPatterns:  a.Unlabeled,
		},
		Mismatches:   nonNil(a.Mismatches),
		Transitions:  nonNil(a.Transitions),
		Distribution: nonNil(a.Distribution),
	}
}

// Preview returns a copy of r with every list capped at limit entries, for
// human-readable summaries. limit <= 0 returns r unchanged.
func Preview(r *Report, limit int) *Report {
	if limit <= 0 {
		return r
	}
	cp := *r
	cp.Recommendations.Recategorize = capped(r.Recommendations.Recategorize, limit)
	cp.Recommendations.LowConfidence = capped(r.Recommendations.LowConfidence, limit)
	cp.Recommendations.MultiCategory = capped(r.Recommendations.MultiCategory, limit)
	cp.Mismatches = capped(r.Mismatches, limit)
	cp.Transitions = capped(r.Transitions, limit)
	return &cp
}

func capped[T any](s []T, limit int) []T {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

// nonNil makes empty lists serialize as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func normalizeSkipped(s corpus.Skipped) corpus.Skipped {
	s.Categories = nonNil(s.Categories)
	s.Patterns = nonNil(s.Patterns)
	s.Embeddings = nonNil(s.Embeddings)
	s.Shards = nonNil(s.Shards)
	return s
}
