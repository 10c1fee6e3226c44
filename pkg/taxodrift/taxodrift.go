package taxodrift

import (
	"context"
	"fmt"

	"github.com/crimson-sun/taxodrift/internal/corpus"
	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
	"github.com/crimson-sun/taxodrift/internal/engine/taxonomy"
	"github.com/crimson-sun/taxodrift/internal/model"
	"github.com/crimson-sun/taxodrift/internal/pipeline"
	"github.com/crimson-sun/taxodrift/internal/report"
)

// Report is the full run artifact.
type Report = report.Report

// EnhancedCorpus is the pattern registry with classifications attached.
type EnhancedCorpus = report.EnhancedCorpus

// Classification is the result of scoring one vector against every category.
type Classification = model.Classification

// Score is one ranked category match.
type Score = model.Score

// Category is one taxonomy entry, in registry order.
type Category struct {
	Slug  string
	Name  string
	Group string
}

// Drift runs taxonomy drift analysis over one corpus. The category
// registry is loaded once by New; Run reloads every input so repeated
// runs pick up new shards. Classify is safe for concurrent use.
type Drift struct {
	opts       options
	taxonomy   *taxonomy.Taxonomy
	classifier *classifier.Classifier
}

// New validates the options and loads the category registry.
func New(opts ...Option) (*Drift, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("taxodrift: %w", err)
	}
	_, annotation, err := o.cfg.Policies()
	if err != nil {
		return nil, fmt.Errorf("taxodrift: %w", err)
	}

	cats, _, err := corpus.LoadCategories(o.cfg.Input.Categories)
	if err != nil {
		return nil, fmt.Errorf("taxodrift: %w", err)
	}
	tax, err := taxonomy.New(cats)
	if err != nil {
		return nil, fmt.Errorf("taxodrift: %w", err)
	}

	return &Drift{
		opts:       o,
		taxonomy:   tax,
		classifier: classifier.New(o.cfg.Engine.PatternTopK, annotation),
	}, nil
}

// Categories returns the loaded taxonomy in registry order.
func (d *Drift) Categories() []Category {
	labels := d.taxonomy.Labels()
	out := make([]Category, len(labels))
	for i, c := range labels {
		out[i] = Category{Slug: c.Slug, Name: c.Name, Group: c.Group}
	}
	return out
}

// Dimension is the embedding length every vector must have.
func (d *Drift) Dimension() int {
	return d.taxonomy.Dimension()
}

// Classify scores a single embedding against the loaded taxonomy using
// the annotation policy.
func (d *Drift) Classify(vector []float32) (Classification, error) {
	if len(vector) != d.taxonomy.Dimension() {
		return Classification{}, &model.DimensionMismatchError{
			Path: "classify", Want: d.taxonomy.Dimension(), Got: len(vector),
		}
	}
	c, err := d.classifier.Classify(vector, d.taxonomy)
	if err != nil {
		return Classification{}, fmt.Errorf("taxodrift: %w", err)
	}
	return c, nil
}

// Run loads the corpus, classifies it and returns the report and the
// enhanced corpus. Files configured with WithReportFile or
// WithEnhancedFile are written before Run returns.
func (d *Drift) Run(ctx context.Context) (*Report, *EnhancedCorpus, error) {
	p, err := pipeline.FromConfig(d.opts.cfg, nil, pipeline.WithClock(d.opts.clock))
	if err != nil {
		return nil, nil, fmt.Errorf("taxodrift: %w", err)
	}
	defer p.Close()

	a, err := p.Run(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("taxodrift: %w", err)
	}
	return a.Report, a.Enhanced, nil
}
