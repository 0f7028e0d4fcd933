package domain

import "math"

// CosineSimilarity returns the normalized dot product of two vectors in
// [-1, 1]. Degenerate inputs (dimension mismatch, empty or zero-magnitude
// vectors) score 0 rather than propagating NaN; callers treat that as
// "no match" and may log it.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
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
