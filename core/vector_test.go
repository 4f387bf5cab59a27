package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name  string
		input []float32
	}{
		{"unit axis", []float32{1, 0, 0}},
		{"arbitrary", []float32{3, 4, 0}},
		{"negative components", []float32{-1, 2, -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeVector(tt.input)
			require.Len(t, got, len(tt.input))

			var mag float64
			for _, v := range got {
				mag += float64(v) * float64(v)
			}
			assert.InDelta(t, 1.0, math.Sqrt(mag), 1e-5)
		})
	}
}

func TestNormalizeVector_ZeroVector(t *testing.T) {
	got := NormalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, got)
}

func TestNormalizeVector_Empty(t *testing.T) {
	assert.Empty(t, NormalizeVector(nil))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"scale invariant", []float32{2, 0}, []float32{5, 0}, 1.0},
		{"dimension mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"empty", nil, []float32{1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestWeightedCentroid(t *testing.T) {
	t.Run("first member adopts the vector", func(t *testing.T) {
		got := WeightedCentroid(nil, 0, []float32{0, 3, 0})
		assert.InDelta(t, 1.0, float64(got[1]), 1e-6)
	})

	t.Run("weighted average leans toward the larger cluster", func(t *testing.T) {
		centroid := []float32{1, 0}
		got := WeightedCentroid(centroid, 9, []float32{0, 1})

		// 9 members at (1,0) plus one at (0,1): direction stays mostly on x.
		assert.Greater(t, got[0], got[1])
		assert.InDelta(t, 1.0, CosineSimilarity(got, NormalizeVector([]float32{0.9, 0.1})), 1e-6)
	})

	t.Run("mismatched dimensions keep the centroid", func(t *testing.T) {
		centroid := []float32{1, 0}
		got := WeightedCentroid(centroid, 3, []float32{1, 2, 3})
		assert.Equal(t, centroid, got)
	})
}
