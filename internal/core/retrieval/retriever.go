package retrieval

import (
	"context"
	"log"

	"campusassist/internal/core"
	"campusassist/internal/models"
)

// candidateFactor sizes the vector-search candidate pool relative to k.
const candidateFactor = 10

// Retriever finds the documents most relevant to a question: vector
// search when the question embeds cleanly, lexical search when it
// doesn't or when the vector path comes back empty.
type Retriever struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	topK     int
}

func New(db core.DbClient, embedder core.EmbeddingProvider, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{db: db, embedder: embedder, topK: topK}
}

// Retrieve returns up to topK scored documents for the question. An
// empty result is a valid outcome, not an error; the caller must handle
// zero-context generation. An embedding failure only downgrades the
// search to the lexical path.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]models.ScoredDocument, error) {
	var hits []models.ScoredDocument

	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		log.Printf("retrieval: embed failed, falling back to text search: %v", err)
	} else {
		hits, err = r.db.VectorSearch(ctx, queryVec, r.topK*candidateFactor, r.topK)
		if err != nil {
			log.Printf("retrieval: vector search failed, falling back to text search: %v", err)
			hits = nil
		}
	}

	if len(hits) > 0 {
		return hits, nil
	}

	hits, err = r.db.TextSearch(ctx, question, r.topK)
	if err != nil {
		return nil, err
	}
	return hits, nil
}
