package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/taxodrift/internal/corpus"
	"github.com/crimson-sun/taxodrift/internal/engine"
	"github.com/crimson-sun/taxodrift/internal/engine/classifier"
	"github.com/crimson-sun/taxodrift/internal/engine/drift"
	"github.com/crimson-sun/taxodrift/internal/engine/fixtures"
	"github.com/crimson-sun/taxodrift/internal/model"
)

func testSettings() Settings {
	return Settings{
		Thresholds:       drift.DefaultThresholds(),
		ReportPolicy:     classifier.PolicyStrict,
		AnnotationPolicy: classifier.PolicyRelaxed,
		PatternTopK:      5,
		ExampleTopK:      3,
	}
}

func buildInput(t *testing.T, src corpus.Sources) Input {
	t.Helper()
	c, err := corpus.Load(context.Background(), src)
	require.NoError(t, err)

	s := testSettings()
	eng := engine.New(
		classifier.New(s.PatternTopK, s.AnnotationPolicy),
		classifier.New(s.ExampleTopK, s.AnnotationPolicy),
		engine.WithWorkers(3),
	)
	res, err := eng.Categorize(context.Background(), c)
	require.NoError(t, err)

	return Input{
		Corpus:   c,
		Result:   res,
		Analysis: drift.New(s.Thresholds, s.ReportPolicy).Analyze(res),
		Settings: s,
	}
}

func fixtureSources(t *testing.T) corpus.Sources {
	t.Helper()
	src, err := fixtures.Materialize(t.TempDir())
	require.NoError(t, err)
	return src
}

func TestBuild(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	r := Build(buildInput(t, fixtureSources(t)), now)

	assert.Equal(t, Tool, r.Metadata.Tool)
	assert.True(t, r.Metadata.GeneratedAt.Equal(now))
	assert.Equal(t, time.UTC, r.Metadata.GeneratedAt.Location())
	assert.Equal(t, 3, r.Metadata.Categories)
	assert.Equal(t, 5, r.Metadata.Patterns)
	assert.Equal(t, 5, r.Metadata.Examples)
	assert.Equal(t, 3, r.Metadata.Dimension)
	assert.Equal(t, 2, r.Metadata.ShardsLoaded)
	assert.Equal(t, "strict", r.Metadata.Settings.ReportPolicy.Name)

	assert.Equal(t, 60.0, r.Coverage.PatternPercent)
	assert.Equal(t, 80.0, r.Coverage.ExamplePercent)
	require.Len(t, r.Coverage.Skipped.Shards, 1)
	assert.Equal(t, fixtures.CorruptShard, filepath.Base(r.Coverage.Skipped.Shards[0].Path))

	assert.Len(t, r.Recommendations.Recategorize, 1)
	assert.Len(t, r.Recommendations.LowConfidence, 1)
	assert.Len(t, r.Recommendations.MultiCategory, 1)
	assert.Equal(t, 1, r.Recommendations.NotedDisagreements)
	assert.Len(t, r.Mismatches, 1)
	assert.Len(t, r.Transitions, 3)
	assert.Len(t, r.Distribution, 3)
}

func TestBuildEmptyListsSerializeAsArrays(t *testing.T) {
	in := buildInput(t, fixtureSources(t))
	in.Analysis = drift.Analysis{}
	in.Corpus.Skipped = corpus.Skipped{}

	data, err := json.Marshal(Build(in, time.Unix(0, 0)))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	recs := decoded["recommendations"].(map[string]any)
	assert.Equal(t, []any{}, recs["recategorize"])
	assert.Equal(t, []any{}, decoded["pattern_example_mismatches"])
	skipped := decoded["coverage"].(map[string]any)["skipped"].(map[string]any)
	assert.Equal(t, []any{}, skipped["shards"])
}

func TestBuildDeterministic(t *testing.T) {
	src := fixtureSources(t)

	first, err := json.Marshal(Build(buildInput(t, src), time.Unix(1000, 0)))
	require.NoError(t, err)
	second, err := json.Marshal(Build(buildInput(t, src), time.Unix(2000, 0)))
	require.NoError(t, err)
	assert.NotEqual(t, string(first), string(second), "timestamps differ")

	strip := func(data []byte) map[string]any {
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		delete(m["metadata"].(map[string]any), "generated_at")
		return m
	}
	assert.Equal(t, strip(first), strip(second))

	// Byte-level equality once timestamps match.
	third, err := json.Marshal(Build(buildInput(t, src), time.Unix(1000, 0)))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(third))
}

func TestPreviewCapsLists(t *testing.T) {
	r := Build(buildInput(t, fixtureSources(t)), time.Unix(0, 0))

	p := Preview(r, 2)
	assert.Len(t, p.Transitions, 2)
	assert.Len(t, r.Transitions, 3, "original report is unbounded")
	assert.Len(t, p.Mismatches, 1)

	assert.Same(t, r, Preview(r, 0))
}

func TestEnhance(t *testing.T) {
	in := buildInput(t, fixtureSources(t))
	enhanced := Enhance(in.Result)
	require.Len(t, enhanced, 5)

	persona := enhanced[1]
	assert.Equal(t, fixtures.Persona, persona.ID)
	assert.Equal(t, "role-prompting", persona.Category)
	assert.Equal(t, "Chain of Thought", persona.OriginalCategory)
	require.NotNil(t, persona.Classification)

	unembedded := enhanced[3]
	assert.Equal(t, "role_prompting", unembedded.Category, "unclassified patterns keep their label")
	assert.Nil(t, unembedded.Classification)
	require.Len(t, unembedded.Examples, 1)
	assert.NotNil(t, unembedded.Examples[0].Classification)

	// The input registry is untouched.
	assert.Equal(t, "Chain of Thought", in.Corpus.Patterns[1].OriginalCategory)
}

func TestEnhancedJSONRoundTrip(t *testing.T) {
	in := buildInput(t, fixtureSources(t))
	data, err := json.MarshalIndent(EnhancedCorpus{CorpusID: in.Corpus.Fingerprint(), Patterns: Enhance(in.Result)}, "", "  ")
	require.NoError(t, err)

	var raw struct {
		Patterns []map[string]json.RawMessage `json:"patterns"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	first := raw.Patterns[0]
	assert.JSONEq(t, `"prompting-survey.pdf"`, string(first["source"]), "unknown fields survive")
	assert.JSONEq(t, `"Chain of Thought"`, string(first["original_category"]))
	assert.Contains(t, first, "semantic_classification")

	// Feeding the enhanced copy back in keeps the original provenance label.
	path := filepath.Join(t.TempDir(), "enhanced.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	patterns, _, err := corpus.LoadPatterns(path)
	require.NoError(t, err)
	require.Len(t, patterns, 5)
	assert.Equal(t, "Chain of Thought", patterns[1].OriginalCategory)
	assert.Equal(t, "chain-of-thought", patterns[1].OriginalSlug)
	assert.Equal(t, fixtures.Stepwise+"-1", patterns[0].Examples[1].ID)
}

func TestEnhanceKeepsUnreadableRegistryContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "version": 3,
  "source": "survey",
  "patterns": [
    {"id": "a", "title": "Titled", "category": "x", "examples": ["one", 42, {"content": "three"}, true]},
    {"id": "b", "name": "Named", "category": "x", "examples": "see appendix"}
  ]
}`), 0o644))

	reg, err := corpus.ReadPatternRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Patterns, 2)
	assert.Len(t, reg.Skipped, 3)

	res := &engine.Result{}
	for i := range reg.Patterns {
		p := &reg.Patterns[i]
		ap := model.AnnotatedPattern{Pattern: p}
		for j := range p.Examples {
			ap.Examples = append(ap.Examples, model.AnnotatedExample{Example: &p.Examples[j]})
		}
		res.Patterns = append(res.Patterns, ap)
	}

	data, err := json.Marshal(EnhancedCorpus{CorpusID: "c1", Patterns: Enhance(res), Extra: reg.Extra})
	require.NoError(t, err)

	var got struct {
		Version  int                          `json:"version"`
		Source   string                       `json:"source"`
		CorpusID string                       `json:"corpus_id"`
		Patterns []map[string]json.RawMessage `json:"patterns"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, "survey", got.Source)
	assert.Equal(t, "c1", got.CorpusID)
	require.Len(t, got.Patterns, 2)

	a := got.Patterns[0]
	assert.NotContains(t, a, "name", "a title does not become a name")
	assert.JSONEq(t, `"Titled"`, string(a["title"]))
	var examples []json.RawMessage
	require.NoError(t, json.Unmarshal(a["examples"], &examples))
	require.Len(t, examples, 4)
	assert.JSONEq(t, `42`, string(examples[1]))
	assert.JSONEq(t, `true`, string(examples[3]))
	assert.Contains(t, string(examples[2]), `"three"`)

	b := got.Patterns[1]
	assert.JSONEq(t, `"Named"`, string(b["name"]))
	assert.JSONEq(t, `"see appendix"`, string(b["examples"]))
}
