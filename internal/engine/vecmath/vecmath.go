// Package vecmath holds the small amount of vector arithmetic the
// classifier needs.
package vecmath

import (
	"errors"
	"math"
)

// ErrLengthMismatch is returned when two vectors differ in length. It always
// indicates an embedding/corpus mismatch upstream.
var ErrLengthMismatch = errors.New("vecmath: vector length mismatch")

// Cosine returns the cosine similarity of a and b.
// A zero-magnitude vector yields 0 rather than an error so classification
// stays total over every input.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Stats summarizes a set of scores.
type Stats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Summarize computes count, mean, min and max. Empty input returns zero Stats.
func Summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(values), Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))
	return s
}

// Percent returns n/total*100, or 0 when total is 0.
func Percent(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
