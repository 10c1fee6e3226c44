package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/taxodrift/internal/corpus"
	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
	"github.com/crimson-sun/taxodrift/internal/engine/fixtures"
	"github.com/crimson-sun/taxodrift/internal/engine/taxonomy"
	"github.com/crimson-sun/taxodrift/internal/model"
)

func loadFixture(t *testing.T) *corpus.Corpus {
	t.Helper()
	src, err := fixtures.Materialize(t.TempDir())
	require.NoError(t, err)
	c, err := corpus.Load(context.Background(), src)
	require.NoError(t, err)
	return c
}

func newTestEngine(workers int) *Engine {
	return New(
		classifier.New(5, classifier.PolicyRelaxed),
		classifier.New(3, classifier.PolicyRelaxed),
		WithWorkers(workers),
	)
}

func byID(t *testing.T, res *Result, id string) model.AnnotatedPattern {
	t.Helper()
	for _, ap := range res.Patterns {
		if ap.Pattern.ID == id {
			return ap
		}
	}
	t.Fatalf("pattern %q not in result", id)
	return model.AnnotatedPattern{}
}

func TestCategorizeFixture(t *testing.T) {
	res, err := newTestEngine(1).Categorize(context.Background(), loadFixture(t))
	require.NoError(t, err)

	assert.Equal(t, Coverage{
		PatternsTotal:     5,
		PatternsAnnotated: 3,
		PatternPercent:    60,
		ExamplesTotal:     5,
		ExamplesAnnotated: 4,
		ExamplePercent:    80,
	}, res.Coverage)

	step := byID(t, res, fixtures.Stepwise)
	require.NotNil(t, step.Classification)
	assert.Equal(t, model.Annotated, step.State)
	assert.Equal(t, "chain-of-thought", step.Classification.Category)
	assert.Equal(t, "Chain of Thought", step.Pattern.OriginalCategory, "original label is preserved")
	require.Len(t, step.Examples, 2)
	assert.Equal(t, "chain-of-thought", step.Examples[0].Classification.Category)
	assert.Equal(t, "output-formatting", step.Examples[1].Classification.Category)
	assert.Len(t, step.Examples[0].Classification.TopK, 3)

	persona := byID(t, res, fixtures.Persona)
	assert.Equal(t, "role-prompting", persona.Classification.Category)
	assert.InDelta(t, 0.75, persona.Classification.Confidence, 1e-6)

	unembedded := byID(t, res, fixtures.Unembedded)
	assert.Nil(t, unembedded.Classification)
	assert.Equal(t, model.Unclassified, unembedded.State)
	require.NotNil(t, unembedded.Examples[0].Classification, "examples are classified independently")
	assert.Equal(t, "role-prompting", unembedded.Examples[0].Classification.Category)

	orphan := byID(t, res, fixtures.Orphan)
	assert.Nil(t, orphan.Classification)
	assert.Nil(t, orphan.Examples[0].Classification)
}

func TestCategorizeParallelMatchesSequential(t *testing.T) {
	c := loadFixture(t)

	seq, err := newTestEngine(1).Categorize(context.Background(), c)
	require.NoError(t, err)
	for _, workers := range []int{2, 4, 16} {
		par, err := newTestEngine(workers).Categorize(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, seq.Coverage, par.Coverage)
		require.Len(t, par.Patterns, len(seq.Patterns))
		for i := range seq.Patterns {
			assert.Equal(t, seq.Patterns[i].Pattern.ID, par.Patterns[i].Pattern.ID)
			assert.Equal(t, seq.Patterns[i].Classification, par.Patterns[i].Classification)
			assert.Equal(t, seq.Patterns[i].Examples, par.Patterns[i].Examples)
		}
	}
}

func TestCategorizeEmptyCorpus(t *testing.T) {
	tax, err := taxonomy.New([]model.Category{{Slug: "x", Vector: []float32{1, 0}}})
	require.NoError(t, err)
	c := &corpus.Corpus{Taxonomy: tax}

	res, err := newTestEngine(4).Categorize(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, Coverage{}, res.Coverage)
	assert.Empty(t, res.Patterns)
}

func TestCategorizeNearestCentroid(t *testing.T) {
	tax, err := taxonomy.New([]model.Category{
		{Slug: "x", Name: "X", Vector: []float32{1, 0}},
		{Slug: "y", Name: "Y", Vector: []float32{0, 1}},
		{Slug: "z", Name: "Z", Vector: []float32{0.7, 0.7}},
	})
	require.NoError(t, err)
	c := &corpus.Corpus{
		Taxonomy:       tax,
		Patterns:       []model.Pattern{{ID: "p", OriginalCategory: "y", OriginalSlug: "y"}},
		PatternVectors: map[string][]float32{"p": {0.9, 0.1}},
	}

	res, err := newTestEngine(1).Categorize(context.Background(), c)
	require.NoError(t, err)
	cls := res.Patterns[0].Classification
	require.NotNil(t, cls)
	assert.Equal(t, "x", cls.Category)
	assert.InDelta(t, 0.994, cls.Confidence, 1e-3)

	var ySim float64
	for _, s := range cls.TopK {
		if s.Category == "y" {
			ySim = s.Score
		}
	}
	assert.InDelta(t, 0.110, ySim, 1e-3)
	assert.Equal(t, 100.0, res.Coverage.PatternPercent)
	assert.Equal(t, 0.0, res.Coverage.ExamplePercent)
}

func TestCategorizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestEngine(2).Categorize(ctx, loadFixture(t))
	assert.ErrorIs(t, err, context.Canceled)
}
