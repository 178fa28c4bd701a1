package score

import "math"

// minMagnitude guards against degenerate near-zero embedding vectors
const minMagnitude = 1e-9

// Cosine returns the cosine similarity between two embedding vectors.
// Mismatched lengths, degenerate magnitudes, and NaN/Inf results all
// collapse to 0 rather than propagating into ranking.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	magA, magB := math.Sqrt(normA), math.Sqrt(normB)
	if magA < minMagnitude || magB < minMagnitude {
		return 0
	}

	sim := dot / (magA * magB)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	// Floating error can nudge the ratio slightly outside [-1, 1]
	return math.Max(-1, math.Min(1, sim))
}
