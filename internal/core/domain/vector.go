package domain

import "math"

// CosineDistance returns 1 - cosine similarity of a and b, in [0,2].
// Mismatched lengths or zero vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// CosineRelevance converts a cosine distance into a relevance in [0,1].
func CosineRelevance(distance float64) float64 {
	return math.Max(0, math.Min(1, 1-distance))
}
