package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"campusassist/internal/apperr"
	"campusassist/internal/core"
	"campusassist/internal/core/textproc"
	"campusassist/internal/models"
)

const (
	// DefaultChunkThreshold: content longer than this (after
	// normalization) is split into chunks; exactly this length is not.
	DefaultChunkThreshold = 2000

	maxContentLen = 50000

	// embedWorkers bounds the per-chunk embedding fan-out.
	embedWorkers = 8
)

// Input is one document to ingest. SourceFileKey points at the
// archived original in object storage when the content came from a
// file upload.
type Input struct {
	Title         string
	Content       string
	UploaderID    string
	Category      models.Category
	Tags          []string
	Metadata      *models.DocumentMetadata
	SourceFileKey string
}

// Result confirms what ingestion produced. ChunkCount is zero for a
// standalone document.
type Result struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Category   models.Category `json:"category"`
	ChunkCount int             `json:"chunk_count,omitempty"`
}

// Pipeline turns raw document text into stored, searchable records:
// normalize, split when long, embed, persist.
type Pipeline struct {
	db       core.DbClient
	embedder core.EmbeddingProvider

	chunkSize    int
	chunkOverlap int
	threshold    int
}

func NewPipeline(db core.DbClient, embedder core.EmbeddingProvider, chunkSize, chunkOverlap, threshold int) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = textproc.DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = textproc.DefaultOverlap
	}
	if threshold <= 0 {
		threshold = DefaultChunkThreshold
	}
	return &Pipeline{
		db:           db,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		threshold:    threshold,
	}
}

// Ingest stores the document. Long content becomes one parent record
// plus one record per chunk; chunk embeddings are produced concurrently.
// An embedding failure never fails the upload: the affected record is
// stored without a vector and remains reachable through text search.
func (p *Pipeline) Ingest(ctx context.Context, in Input) (*Result, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("title required: %w", apperr.ErrValidation)
	}
	content := textproc.Normalize(in.Content)
	if content == "" {
		return nil, fmt.Errorf("content required: %w", apperr.ErrValidation)
	}
	if len(content) > maxContentLen {
		return nil, fmt.Errorf("content exceeds %d chars: %w", maxContentLen, apperr.ErrValidation)
	}
	if !models.ValidCategory(in.Category) {
		in.Category = models.CategoryOther
	}

	if len(content) > p.threshold {
		return p.ingestChunked(ctx, in, content)
	}
	return p.ingestWhole(ctx, in, content)
}

func (p *Pipeline) ingestWhole(ctx context.Context, in Input, content string) (*Result, error) {
	vec, err := p.embedder.Embed(ctx, content)
	if err != nil {
		log.Printf("ingestion: embed failed for %q, storing without vector: %v", in.Title, err)
		vec = nil
	}

	doc := p.newDocument(in, content)
	doc.Embedding = vec
	if err := p.db.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	return &Result{ID: doc.ID, Title: doc.Title, Category: doc.Category}, nil
}

func (p *Pipeline) ingestChunked(ctx context.Context, in Input, content string) (*Result, error) {
	chunks := textproc.Split(content, p.chunkSize, p.chunkOverlap)
	n := len(chunks)

	parent := p.newDocument(in, content)
	parent.ChunkCount = n
	if err := p.db.CreateDocument(ctx, parent); err != nil {
		return nil, fmt.Errorf("store parent document: %w", err)
	}

	// Fan out the chunk embeddings, join before writing.
	vectors := make([][]float32, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for idx, ch := range chunks {
		g.Go(func() error {
			vec, err := p.embedder.Embed(gctx, ch.Text)
			if err != nil {
				log.Printf("ingestion: embed failed for chunk %d/%d of %q, storing without vector: %v",
					idx+1, n, in.Title, err)
				return nil
			}
			vectors[idx] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	wg, wctx := errgroup.WithContext(ctx)
	wg.SetLimit(embedWorkers)
	for idx, ch := range chunks {
		wg.Go(func() error {
			doc := &models.Document{
				ID:               uuid.NewString(),
				Title:            fmt.Sprintf("%s (Chunk %d/%d)", in.Title, idx+1, n),
				Content:          ch.Text,
				Category:         in.Category,
				Embedding:        vectors[idx],
				UploadedBy:       in.UploaderID,
				Visible:          true,
				Tags:             in.Tags,
				IsChunk:          true,
				ParentDocumentID: parent.ID,
				ChunkIndex:       ch.Index,
				ChunkCount:       n,
				CreatedAt:        time.Now(),
			}
			if err := p.db.CreateDocument(wctx, doc); err != nil {
				return fmt.Errorf("store chunk %d/%d: %w", idx+1, n, err)
			}
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}

	return &Result{ID: parent.ID, Title: parent.Title, Category: parent.Category, ChunkCount: n}, nil
}

func (p *Pipeline) newDocument(in Input, content string) *models.Document {
	return &models.Document{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Content:       content,
		Category:      in.Category,
		UploadedBy:    in.UploaderID,
		Visible:       true,
		Tags:          in.Tags,
		Metadata:      in.Metadata,
		SourceFileKey: in.SourceFileKey,
		CreatedAt:     time.Now(),
	}
}
