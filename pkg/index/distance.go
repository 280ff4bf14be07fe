package index

import (
	"math"
	"sort"
)

// cosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// Mismatched lengths and zero-norm vectors both yield 0, never NaN.
func cosineSimilarity(a, b []float32) float64 {
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

// sortNeighborsDescending sorts results by Similarity descending,
// breaking ties by ID for a stable, reproducible order.
func sortNeighborsDescending(results []Neighbor) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
}
