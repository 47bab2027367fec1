package vectorutil

import (
	"fmt"
	"math"
	"sort"

	"campusassist/internal/apperr"
	"campusassist/internal/models"
)

// CosineSimilarity returns the cosine of the angle between a and b in
// [-1, 1]. Vectors of unequal length are a dimension error; a zero or
// empty vector yields 0 rather than an error.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine: len %d vs %d: %w", len(a), len(b), apperr.ErrDimensionMismatch)
	}
	if len(a) == 0 {
		return 0, nil
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

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("euclidean: len %d vs %d: %w", len(a), len(b), apperr.ErrDimensionMismatch)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// TopK scores docs against queryVec by cosine similarity and returns
// the k best, descending. Documents without an embedding are skipped.
// Ties keep input order (stable sort).
func TopK(queryVec []float32, docs []models.Document, k int) ([]models.ScoredDocument, error) {
	if k <= 0 {
		return nil, nil
	}
	scored := make([]models.ScoredDocument, 0, len(docs))
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			continue
		}
		sim, err := CosineSimilarity(queryVec, d.Embedding)
		if err != nil {
			return nil, err
		}
		scored = append(scored, models.ScoredDocument{Document: d, Score: sim})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
