package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineIdentity(t *testing.T) {
	vecs := [][]float32{
		{1, 0, 0},
		{0.3, -0.2, 0.9},
		{-4, 2, 7.5},
	}
	for _, v := range vecs {
		sim, err := Cosine(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-9, "cosine(%v, %v)", v, v)
	}
}

func TestCosineZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	sim, err := Cosine(zero, zero)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)

	sim, err = Cosine(zero, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestCosineSymmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{0.9, 0.1}, {0.7, 0.7}},
		{{-1, 0.5}, {0.25, -3}},
	}
	for _, p := range pairs {
		ab, err := Cosine(p[0], p[1])
		require.NoError(t, err)
		ba, err := Cosine(p[1], p[0])
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}
}

func TestCosineNegativePreserved(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-9)
}

func TestCosineLengthMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 0}, []float32{1, 0, 0})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestCosineKnownValues(t *testing.T) {
	sim, err := Cosine([]float32{0.9, 0.1}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.9939, sim, 1e-3)

	sim, err = Cosine([]float32{0.9, 0.1}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.1104, sim, 1e-3)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))

	s := Summarize([]float64{0.5, 0.9, 0.1})
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 0.5, s.Mean, 1e-9)
	assert.Equal(t, 0.1, s.Min)
	assert.Equal(t, 0.9, s.Max)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		n, total int
		want     float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 10, 0},
		{3, 4, 75},
		{10, 10, 100},
	}
	for _, tt := range tests {
		got := Percent(tt.n, tt.total)
		assert.False(t, math.IsNaN(got))
		assert.InDelta(t, tt.want, got, 1e-9, "Percent(%d, %d)", tt.n, tt.total)
	}
}
