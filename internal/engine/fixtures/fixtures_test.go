package fixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/taxodrift/internal/corpus"
)

func TestMaterializeLoads(t *testing.T) {
	src, err := Materialize(t.TempDir())
	require.NoError(t, err)

	c, err := corpus.Load(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Taxonomy.Len())
	assert.Len(t, c.Patterns, 5)
	assert.Equal(t, 5, c.ExampleCount())
	assert.Equal(t, 2, c.ShardsLoaded)

	require.Len(t, c.Skipped.Shards, 1)
	assert.Equal(t, CorruptShard, filepath.Base(c.Skipped.Shards[0].Path))
	assert.Len(t, c.Skipped.Categories, 1)
	assert.Len(t, c.Skipped.Patterns, 1)

	assert.Contains(t, c.PatternVectors, Vague, "gzip shard should load")
	assert.NotContains(t, c.PatternVectors, Orphan)
	assert.NotContains(t, c.PatternVectors, Unembedded)
}
