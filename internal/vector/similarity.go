// Package vector provides similarity helpers for embedding vectors.
package vector

import "math"

// CosineSimilarity returns the cosine similarity of two vectors. Mismatched
// lengths or empty vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Similarity returns the cosine similarity clamped to [0, 1]. Raw cosine can
// drift slightly outside the range through floating point, and negative
// similarity carries no signal for matching.
func Similarity(a, b []float32) float64 {
	return ClampUnit(CosineSimilarity(a, b))
}

// ClampUnit clamps x to the [0, 1] interval.
func ClampUnit(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
