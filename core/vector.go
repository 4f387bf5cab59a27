package core

import "math"

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	// Can't normalize zero vector
	if magnitude == 0 {
		result := make([]float32, len(v))
		return result
	}

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// DotProduct calculates the dot product of two vectors. For unit-normalized
// vectors this equals their cosine similarity.
func DotProduct(a, b []float32) float64 {
	var sum float64
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// CosineSimilarity computes the cosine similarity between two vectors of
// equal dimension, without assuming either is normalized.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// WeightedCentroid recomputes a cluster centroid as the count-weighted
// average of an existing centroid and a new member vector. The result is
// re-normalized to unit length.
func WeightedCentroid(centroid []float32, members int, vector []float32) []float32 {
	if len(centroid) == 0 {
		return NormalizeVector(vector)
	}
	if len(vector) != len(centroid) || members <= 0 {
		return centroid
	}

	merged := make([]float32, len(centroid))
	w := float32(members)
	for i := range centroid {
		merged[i] = (centroid[i]*w + vector[i]) / (w + 1)
	}
	return NormalizeVector(merged)
}
