package taxodrift

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/taxodrift/internal/engine/fixtures"
	"github.com/crimson-sun/taxodrift/internal/model"
)

func newFixtureDrift(t *testing.T, opts ...Option) *Drift {
	t.Helper()
	src, err := fixtures.Materialize(t.TempDir())
	require.NoError(t, err)
	opts = append([]Option{WithInputs(src.Categories, src.Patterns, src.EmbeddingsDir)}, opts...)
	d, err := New(opts...)
	require.NoError(t, err)
	return d
}

func TestCategories(t *testing.T) {
	d := newFixtureDrift(t)

	cats := d.Categories()
	require.Len(t, cats, 3)
	assert.Equal(t, "chain-of-thought", cats[0].Slug)
	assert.Equal(t, "role-prompting", cats[1].Slug)
	assert.Equal(t, "output-formatting", cats[2].Slug)
	assert.Equal(t, 3, d.Dimension())
}

func TestClassify(t *testing.T) {
	d := newFixtureDrift(t)

	c, err := d.Classify([]float32{0.9, 0.1, 0})
	require.NoError(t, err)
	assert.Equal(t, "chain-of-thought", c.Category)
	assert.InDelta(t, 0.994, c.Confidence, 1e-3)
	assert.Equal(t, model.ConfidenceHigh, c.Level)
	require.Len(t, c.TopK, 3)
	assert.Equal(t, "role-prompting", c.TopK[1].Category)
}

func TestClassifyDimensionMismatch(t *testing.T) {
	d := newFixtureDrift(t)

	_, err := d.Classify([]float32{1, 0})
	var dimErr *model.DimensionMismatchError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Want)
}

func TestClassifyConcurrent(t *testing.T) {
	d := newFixtureDrift(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := d.Classify([]float32{0, 1, 0})
			assert.NoError(t, err)
			assert.Equal(t, "role-prompting", c.Category)
		}()
	}
	wg.Wait()
}

func TestRun(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	d := newFixtureDrift(t, WithWorkers(2), WithClock(func() time.Time { return now }))

	rep, enhanced, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now, rep.Metadata.GeneratedAt)
	assert.InDelta(t, 60.0, rep.Coverage.PatternPercent, 1e-9)
	require.Len(t, rep.Recommendations.Recategorize, 1)
	assert.Equal(t, fixtures.Persona, rep.Recommendations.Recategorize[0].PatternID)
	assert.Len(t, enhanced.Patterns, 5)
}

func TestRunNilClockUsesNow(t *testing.T) {
	d := newFixtureDrift(t, WithClock(nil))

	before := time.Now()
	rep, _, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.WithinDuration(t, before, rep.Metadata.GeneratedAt, time.Minute)
}

func TestRunWritesConfiguredFiles(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	enhancedPath := filepath.Join(dir, "enhanced.json")
	d := newFixtureDrift(t, WithReportFile(reportPath), WithEnhancedFile(enhancedPath))

	_, _, err := d.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(enhancedPath)
	require.NoError(t, err)
	var enhanced map[string]any
	require.NoError(t, json.Unmarshal(data, &enhanced))
	assert.Len(t, enhanced["patterns"], 5)
	assert.FileExists(t, reportPath)
}

func TestRunThresholds(t *testing.T) {
	d := newFixtureDrift(t, WithThresholds(0.8, 0.6, 0.6))

	rep, _, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Recommendations.Recategorize, "0.75 is below a 0.8 cutoff")
	assert.Equal(t, 0.8, rep.Metadata.Settings.Thresholds.Recategorize)
}

func TestNewInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"no inputs", []Option{WithInputs("", "", "")}},
		{"bad policy", []Option{WithInputs("c.json", "p.json", "e"), WithPolicies("strict", "loose")}},
		{"bad top k", []Option{WithInputs("c.json", "p.json", "e"), WithTopK(0, 3)}},
		{"bad threshold", []Option{WithInputs("c.json", "p.json", "e"), WithThresholds(2, 0.6, 0.6)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestNewMissingRegistry(t *testing.T) {
	_, err := New(WithInputs(filepath.Join(t.TempDir(), "none.json"), "p.json", "e"))
	var loadErr *model.DataLoadError
	assert.True(t, errors.As(err, &loadErr))
}
