package retrieval

import (
	"context"
	"errors"
	"testing"

	"campusassist/internal/core/memstore"
	"campusassist/internal/models"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func seedDocs(t *testing.T, store *memstore.Store) {
	t.Helper()
	docs := []*models.Document{
		{ID: "d1", Title: "Tuition Fees", Content: "How to pay tuition fees.", Category: models.CategoryFees, Visible: true, Embedding: []float32{1, 0, 0}},
		{ID: "d2", Title: "Lab Rules", Content: "Chemistry lab safety rules.", Category: models.CategoryLab, Visible: true, Embedding: []float32{0, 1, 0}},
		{ID: "d3", Title: "Registrar Hours", Content: "The registrar office is open mornings.", Category: models.CategoryRegistrar, Visible: true},
	}
	for _, d := range docs {
		if err := store.CreateDocument(context.Background(), d); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRetrieveVectorPath(t *testing.T) {
	store := memstore.New()
	seedDocs(t, store)
	r := New(store, &fakeEmbedder{vec: []float32{1, 0.1, 0}}, 2)

	hits, err := r.Retrieve(context.Background(), "how do I pay fees")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].ID != "d1" {
		t.Fatalf("expected d1 first, got %+v", hits)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("scores not descending")
		}
	}
}

func TestRetrieveFallsBackWhenEmbedFails(t *testing.T) {
	store := memstore.New()
	seedDocs(t, store)
	r := New(store, &fakeEmbedder{err: errors.New("quota")}, 3)

	hits, err := r.Retrieve(context.Background(), "registrar office")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("lexical fallback returned nothing")
	}
	if hits[0].ID != "d3" {
		t.Fatalf("expected lexical match d3, got %s", hits[0].ID)
	}
}

func TestRetrieveFallsBackWhenVectorEmpty(t *testing.T) {
	store := memstore.New() // no embedded documents at all
	if err := store.CreateDocument(context.Background(), &models.Document{
		ID: "d1", Title: "Internship Guide", Content: "internship placement process", Visible: true,
	}); err != nil {
		t.Fatal(err)
	}
	r := New(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, 3)

	hits, err := r.Retrieve(context.Background(), "internship placement")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "d1" {
		t.Fatalf("expected lexical hit, got %+v", hits)
	}
}

func TestRetrieveEmptyIsNotAnError(t *testing.T) {
	store := memstore.New()
	r := New(store, &fakeEmbedder{err: errors.New("down")}, 3)

	hits, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected zero hits, got %d", len(hits))
	}
}
