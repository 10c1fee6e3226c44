package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/taxodrift/internal/corpus"
	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
	"github.com/crimson-sun/taxodrift/internal/engine/taxonomy"
	"github.com/crimson-sun/taxodrift/internal/engine/vecmath"
	"github.com/crimson-sun/taxodrift/internal/model"
)

// Engine classifies every pattern and every example of a corpus against
// the taxonomy. Patterns and examples are scored independently.
type Engine struct {
	patterns *classifier.Classifier
	examples *classifier.Classifier
	workers  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of patterns classified concurrently.
// Values below 1 keep the default of GOMAXPROCS. Results do not depend on
// the value.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New creates an Engine. patterns and examples may use different top-K
// sizes and confidence policies.
func New(patterns, examples *classifier.Classifier, opts ...Option) *Engine {
	e := &Engine{
		patterns: patterns,
		examples: examples,
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Coverage reports how much of the corpus had embeddings and was classified.
type Coverage struct {
	PatternsTotal     int     `json:"patterns_total"`
	PatternsAnnotated int     `json:"patterns_annotated"`
	PatternPercent    float64 `json:"pattern_coverage_percent"`
	ExamplesTotal     int     `json:"examples_total"`
	ExamplesAnnotated int     `json:"examples_annotated"`
	ExamplePercent    float64 `json:"example_coverage_percent"`
}

// Result is the annotated corpus, in registry order.
type Result struct {
	Taxonomy *taxonomy.Taxonomy
	Patterns []model.AnnotatedPattern
	Coverage Coverage
}

// Categorize annotates every pattern and example that has an embedding.
// Items without one are left unannotated and only show up in Coverage.
// Each pattern is written to its own slot, so parallel and sequential runs
// produce identical results.
func (e *Engine) Categorize(ctx context.Context, c *corpus.Corpus) (*Result, error) {
	annotated := make([]model.AnnotatedPattern, len(c.Patterns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range c.Patterns {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ap, err := e.annotate(&c.Patterns[i], c)
			if err != nil {
				return err
			}
			annotated[i] = ap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Taxonomy: c.Taxonomy,
		Patterns: annotated,
		Coverage: coverageOf(annotated),
	}
	slog.Info("categorization complete",
		"patterns", res.Coverage.PatternsTotal,
		"patterns_annotated", res.Coverage.PatternsAnnotated,
		"examples", res.Coverage.ExamplesTotal,
		"examples_annotated", res.Coverage.ExamplesAnnotated,
	)
	return res, nil
}

// annotate walks one pattern through
// Unclassified -> PatternClassified -> ExamplesClassified -> Annotated.
// Examples are classified even when the pattern itself has no embedding.
func (e *Engine) annotate(p *model.Pattern, c *corpus.Corpus) (model.AnnotatedPattern, error) {
	ap := model.AnnotatedPattern{Pattern: p, State: model.Unclassified}

	if vec, ok := c.PatternVectors[p.ID]; ok {
		cls, err := e.patterns.Classify(vec, c.Taxonomy)
		if err != nil {
			return ap, fmt.Errorf("engine: pattern %q: %w", p.ID, err)
		}
		ap.Classification = &cls
		ap.State = model.PatternClassified
	}

	if len(p.Examples) > 0 {
		ap.Examples = make([]model.AnnotatedExample, len(p.Examples))
	}
	for i := range p.Examples {
		ex := &p.Examples[i]
		ap.Examples[i] = model.AnnotatedExample{Example: ex}

		vec, ok := c.ExampleVectors[ex.ID]
		if !ok {
			continue
		}
		cls, err := e.examples.Classify(vec, c.Taxonomy)
		if err != nil {
			return ap, fmt.Errorf("engine: example %q: %w", ex.ID, err)
		}
		ap.Examples[i].Classification = &cls
		if ap.State == model.PatternClassified {
			ap.State = model.ExamplesClassified
		}
	}

	if ap.State != model.Unclassified {
		ap.State = model.Annotated
	}
	return ap, nil
}

func coverageOf(patterns []model.AnnotatedPattern) Coverage {
	var cov Coverage
	cov.PatternsTotal = len(patterns)
	for _, ap := range patterns {
		if ap.Classification != nil {
			cov.PatternsAnnotated++
		}
		cov.ExamplesTotal += len(ap.Examples)
		for _, ex := range ap.Examples {
			if ex.Classification != nil {
				cov.ExamplesAnnotated++
			}
		}
	}
	cov.PatternPercent = vecmath.Percent(cov.PatternsAnnotated, cov.PatternsTotal)
	cov.ExamplePercent = vecmath.Percent(cov.ExamplesAnnotated, cov.ExamplesTotal)
	return cov
}
