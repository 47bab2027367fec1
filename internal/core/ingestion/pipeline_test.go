package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"campusassist/internal/apperr"
	"campusassist/internal/core/memstore"
	"campusassist/internal/models"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	// failOn makes Embed fail for any text containing the substring.
	failOn string
	// failAll makes every call fail.
	failAll bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failAll || (f.failOn != "" && strings.Contains(text, f.failOn)) {
		return nil, fmt.Errorf("embed %q: %w", text[:10], apperr.ErrRateLimited)
	}
	return []float32{1, float32(len(text)), 0}, nil
}

func newPipeline(store *memstore.Store, emb *fakeEmbedder) *Pipeline {
	return NewPipeline(store, emb, 1000, 200, 2000)
}

func TestIngestShortDocumentSingleRecord(t *testing.T) {
	store := memstore.New()
	p := newPipeline(store, &fakeEmbedder{})

	res, err := p.Ingest(context.Background(), Input{
		Title:      "Policy A",
		Content:    strings.Repeat("a", 50),
		UploaderID: "u1",
		Category:   models.CategoryPolicy,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ChunkCount != 0 {
		t.Fatalf("chunk count %d, want 0", res.ChunkCount)
	}
	if res.Category != models.CategoryPolicy {
		t.Fatalf("category %s", res.Category)
	}
	all := store.AllDocuments()
	if len(all) != 1 {
		t.Fatalf("stored %d documents, want 1", len(all))
	}
	if all[0].IsChunk || len(all[0].Embedding) == 0 {
		t.Fatalf("expected embedded standalone document: %+v", all[0])
	}
}

func TestIngestThresholdBoundaryInclusive(t *testing.T) {
	store := memstore.New()
	p := newPipeline(store, &fakeEmbedder{})

	// Exactly 2000 normalized characters must not trigger chunking.
	res, err := p.Ingest(context.Background(), Input{
		Title:      "Boundary",
		Content:    strings.Repeat("b", 2000),
		UploaderID: "u1",
		Category:   models.CategoryAcademic,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ChunkCount != 0 {
		t.Fatalf("2000 chars must stay standalone, got %d chunks", res.ChunkCount)
	}
	if len(store.AllDocuments()) != 1 {
		t.Fatalf("expected a single record")
	}
}

func TestIngestLongDocumentParentAndChunks(t *testing.T) {
	store := memstore.New()
	emb := &fakeEmbedder{}
	p := newPipeline(store, emb)

	content := strings.TrimSpace(strings.Repeat("The fee office processes payments every term. ", 70)) // ~3200 chars
	res, err := p.Ingest(context.Background(), Input{
		Title:      "Fee Guide",
		Content:    content,
		UploaderID: "u1",
		Category:   models.CategoryFees,
		Tags:       []string{"fees"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ChunkCount < 3 {
		t.Fatalf("expected several chunks, got %d", res.ChunkCount)
	}

	all := store.AllDocuments()
	if len(all) != res.ChunkCount+1 {
		t.Fatalf("stored %d records, want parent + %d chunks", len(all), res.ChunkCount)
	}

	var parent *models.Document
	chunkIdx := map[int]bool{}
	for i := range all {
		d := &all[i]
		if !d.IsChunk {
			if parent != nil {
				t.Fatal("more than one parent stored")
			}
			parent = d
			continue
		}
		if d.ParentDocumentID != res.ID {
			t.Fatalf("chunk %s points at %q, want %q", d.ID, d.ParentDocumentID, res.ID)
		}
		want := fmt.Sprintf("Fee Guide (Chunk %d/%d)", d.ChunkIndex+1, res.ChunkCount)
		if d.Title != want {
			t.Fatalf("chunk title %q, want %q", d.Title, want)
		}
		if d.ChunkCount != res.ChunkCount {
			t.Fatalf("chunk count %d, want %d", d.ChunkCount, res.ChunkCount)
		}
		if len(d.Embedding) == 0 {
			t.Fatalf("chunk %d missing embedding", d.ChunkIndex)
		}
		chunkIdx[d.ChunkIndex] = true
	}
	if parent == nil {
		t.Fatal("no parent stored")
	}
	if len(parent.Embedding) != 0 {
		t.Fatal("parent must not carry an embedding")
	}
	if parent.ChunkCount != res.ChunkCount {
		t.Fatalf("parent chunk count %d", parent.ChunkCount)
	}
	for i := 0; i < res.ChunkCount; i++ {
		if !chunkIdx[i] {
			t.Fatalf("chunk index %d missing", i)
		}
	}
	if emb.calls != res.ChunkCount {
		t.Fatalf("embedder called %d times, want %d", emb.calls, res.ChunkCount)
	}
}

func TestIngestChunkEmbedFailureDegradesOneChunk(t *testing.T) {
	store := memstore.New()
	// First chunk starts with this sentence; only it fails to embed.
	emb := &fakeEmbedder{failOn: "UNIQUEMARKER"}
	p := newPipeline(store, emb)

	content := "UNIQUEMARKER opening sentence about deadlines. " +
		strings.Repeat("Regular sentences continue the document for a while. ", 60)
	res, err := p.Ingest(context.Background(), Input{
		Title:      "Deadlines",
		Content:    content,
		UploaderID: "u1",
		Category:   models.CategoryDeadline,
	})
	if err != nil {
		t.Fatalf("one failed chunk embed must not fail ingestion: %v", err)
	}

	degraded, embedded := 0, 0
	for _, d := range store.AllDocuments() {
		if !d.IsChunk {
			continue
		}
		if len(d.Embedding) == 0 {
			degraded++
		} else {
			embedded++
		}
	}
	if degraded != 1 {
		t.Fatalf("%d degraded chunks, want exactly 1", degraded)
	}
	if embedded != res.ChunkCount-1 {
		t.Fatalf("%d embedded chunks, want %d", embedded, res.ChunkCount-1)
	}
}

func TestIngestShortDocumentEmbedFailureStillStores(t *testing.T) {
	store := memstore.New()
	p := newPipeline(store, &fakeEmbedder{failAll: true})

	res, err := p.Ingest(context.Background(), Input{
		Title:      "Degraded",
		Content:    "short content",
		UploaderID: "u1",
		Category:   models.CategoryOther,
	})
	if err != nil {
		t.Fatalf("embed failure on a short doc must degrade, not fail: %v", err)
	}
	doc, err := store.GetDocumentByID(context.Background(), res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Embedding) != 0 {
		t.Fatal("expected empty embedding")
	}
}

func TestIngestValidation(t *testing.T) {
	p := newPipeline(memstore.New(), &fakeEmbedder{})

	cases := []Input{
		{Title: "", Content: "x", Category: models.CategoryOther},
		{Title: "t", Content: "   \n ", Category: models.CategoryOther},
		{Title: "t", Content: strings.Repeat("x", 50001), Category: models.CategoryOther},
	}
	for i, in := range cases {
		if _, err := p.Ingest(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestIngestUnknownCategoryDefaultsToOther(t *testing.T) {
	store := memstore.New()
	p := newPipeline(store, &fakeEmbedder{})
	res, err := p.Ingest(context.Background(), Input{Title: "t", Content: "c", Category: "bogus"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Category != models.CategoryOther {
		t.Fatalf("category %s, want other", res.Category)
	}
}
