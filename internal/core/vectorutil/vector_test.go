package vectorutil

import (
	"errors"
	"math"
	"testing"

	"campusassist/internal/apperr"
	"campusassist/internal/models"
)

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-2, 0.5, 4}
	ab, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := CosineSimilarity(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if ab != ba {
		t.Fatalf("not symmetric: %v vs %v", ab, ba)
	}
	if ab < -1 || ab > 1 {
		t.Fatalf("out of bounds: %v", ab)
	}
}

func TestCosineSimilaritySelf(t *testing.T) {
	a := []float32{0.3, -0.7, 2.1}
	sim, err := CosineSimilarity(a, a)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Fatalf("self similarity %v, want ~1", sim)
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if sim != 0 {
		t.Fatalf("zero-magnitude vector should score 0, got %v", sim)
	}

	sim, err = CosineSimilarity(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sim != 0 {
		t.Fatalf("empty vectors should score 0, got %v", sim)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	for _, pair := range [][2][]float32{
		{{1}, {1, 2}},
		{{1, 2, 3}, {1}},
		{nil, {1}},
	} {
		if _, err := CosineSimilarity(pair[0], pair[1]); !errors.Is(err, apperr.ErrDimensionMismatch) {
			t.Fatalf("lengths %d/%d: expected dimension mismatch, got %v",
				len(pair[0]), len(pair[1]), err)
		}
	}
}

func TestEuclideanDistance(t *testing.T) {
	d, err := EuclideanDistance([]float32{0, 0}, []float32{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-5) > 1e-9 {
		t.Fatalf("got %v, want 5", d)
	}
	if _, err := EuclideanDistance([]float32{1}, []float32{1, 2}); !errors.Is(err, apperr.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestTopKOrdersAndSkipsMissingEmbeddings(t *testing.T) {
	query := []float32{1, 0}
	docs := []models.Document{
		{ID: "orthogonal", Embedding: []float32{0, 1}},
		{ID: "no-embedding"},
		{ID: "exact", Embedding: []float32{2, 0}},
		{ID: "close", Embedding: []float32{1, 0.5}},
	}

	got, err := TopK(query, docs, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3 (missing embedding skipped)", len(got))
	}
	want := []string{"exact", "close", "orthogonal"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("scores not descending at %d", i)
		}
	}
}

func TestTopKLimit(t *testing.T) {
	query := []float32{1, 0}
	docs := []models.Document{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{0.9, 0.1}},
		{ID: "c", Embedding: []float32{0.8, 0.2}},
	}
	got, err := TopK(query, docs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d, want 2", len(got))
	}
	if got, _ := TopK(query, docs, 0); got != nil {
		t.Fatalf("k=0 should return nothing")
	}
}
