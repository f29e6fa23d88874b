package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"empty", nil, nil, 0.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarityClampsToUnit(t *testing.T) {
	// Anti-parallel vectors have raw cosine -1; clamped similarity is 0.
	if got := Similarity([]float32{1, 0}, []float32{-1, 0}); got != 0 {
		t.Errorf("Similarity(anti-parallel) = %v, want 0", got)
	}
	if got := Similarity([]float32{2, 0}, []float32{3, 0}); got != 1 {
		t.Errorf("Similarity(parallel) = %v, want 1", got)
	}
}

func TestClampUnit(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.0000001, 1},
	}
	for _, tt := range tests {
		if got := ClampUnit(tt.in); got != tt.want {
			t.Errorf("ClampUnit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
