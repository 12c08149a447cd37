package retriever

import "math"

// cosineSimilarity calculates the cosine similarity between two vectors.
// Degenerate inputs yield NaN or Inf rather than a guess; callers sanitize.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.NaN()
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sanitize maps NaN to 0, +Inf to 1 and -Inf to 0.
func sanitize(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return 0
	case math.IsInf(score, 1):
		return 1
	case math.IsInf(score, -1):
		return 0
	}
	return score
}
